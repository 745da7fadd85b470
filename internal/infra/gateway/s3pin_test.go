package gateway

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/basecard-xyz/basecard/internal/domain"
)

type fakeObjects struct {
	objects   map[string][]byte
	cid       string
	putErr    error
	headErr   error
	deleteErr error
	deleted   []string
}

func (f *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, _ := io.ReadAll(params.Body)
	f.objects[aws.ToString(params.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(params.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "not found"}
	}
	return &s3.HeadObjectOutput{Metadata: map[string]string{"cid": f.cid}}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(params.Key))
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3PinUploadAndDelete(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{}, cid: "QmCard"}
	store := newS3PinStore(objects, "cards", "https://gw.example")

	artifact, err := store.Upload(context.Background(), []byte("<svg/>"), "alice.svg")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if artifact.CID != "QmCard" {
		t.Fatalf("unexpected cid %s", artifact.CID)
	}
	if !strings.HasSuffix(artifact.ID, "/alice.svg") {
		t.Fatalf("unexpected id %s", artifact.ID)
	}
	if artifact.URL != "https://gw.example/ipfs/QmCard" {
		t.Fatalf("unexpected url %s", artifact.URL)
	}
	if string(objects.objects[artifact.ID]) != "<svg/>" {
		t.Fatalf("artifact not stored under its id")
	}

	if err := store.DeleteByID(context.Background(), artifact.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != artifact.ID {
		t.Fatalf("unexpected deletes %v", objects.deleted)
	}
}

func TestS3PinUploadMissingCID(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{}}
	store := newS3PinStore(objects, "cards", "")

	if _, err := store.Upload(context.Background(), []byte("x"), "x.svg"); err == nil {
		t.Fatalf("expected error when the provider reports no cid")
	}
	if len(objects.objects) != 0 {
		t.Fatalf("expected the uncommitted object to be removed, %d left", len(objects.objects))
	}
	if len(objects.deleted) != 1 || !strings.HasSuffix(objects.deleted[0], "/x.svg") {
		t.Fatalf("unexpected deletes %v", objects.deleted)
	}
}

func TestS3PinUploadHeadFailureRemovesObject(t *testing.T) {
	objects := &fakeObjects{
		objects: map[string][]byte{},
		cid:     "QmCard",
		headErr: &smithy.GenericAPIError{Code: "ServiceUnavailable", Message: "try later"},
	}
	store := newS3PinStore(objects, "cards", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Upload(ctx, []byte("x"), "x.svg")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(objects.objects) != 0 {
		t.Fatalf("expected the uncommitted object to be removed, %d left", len(objects.objects))
	}
}

func TestS3PinUploadPutFailure(t *testing.T) {
	objects := &fakeObjects{
		objects: map[string][]byte{},
		putErr:  &smithy.GenericAPIError{Code: "InternalError", Message: "boom"},
	}
	store := newS3PinStore(objects, "cards", "")

	_, err := store.Upload(context.Background(), []byte("x"), "x.svg")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(objects.deleted) != 1 {
		t.Fatalf("expected the key of an unknown-outcome write to be deleted, got %v", objects.deleted)
	}

	objects.putErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	objects.deleted = nil
	if _, err := store.Upload(context.Background(), []byte("x"), "x.svg"); !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if len(objects.deleted) != 0 {
		t.Fatalf("rejected writes need no cleanup, got %v", objects.deleted)
	}
}

func TestS3PinErrorClassification(t *testing.T) {
	objects := &fakeObjects{
		objects: map[string][]byte{},
		putErr:  &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"},
	}
	store := newS3PinStore(objects, "cards", "")

	_, err := store.Upload(context.Background(), []byte("x"), "x.svg")
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}

	objects.deleteErr = &smithy.GenericAPIError{Code: "NoSuchKey", Message: "missing"}
	if err := store.DeleteByID(context.Background(), "gone"); err != nil {
		t.Fatalf("expected missing key to be treated as deleted, got %v", err)
	}

	objects.deleteErr = &smithy.GenericAPIError{Code: "SlowDown", Message: "busy"}
	err = store.DeleteByID(context.Background(), "busy")
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
