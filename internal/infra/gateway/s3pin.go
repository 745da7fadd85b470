package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/usecase"
)

type S3PinOptions struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Gateway   string
}

// objectAPI is the subset of *s3.Client the pinning store needs.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3PinStore pins artifacts through an S3 compatible IPFS pinning service
// (Filebase and similar). The provider pins every object written to the
// bucket and reports its CID in the "cid" object metadata. The object key is
// used as the artifact id.
type S3PinStore struct {
	client  objectAPI
	bucket  string
	gateway string
}

func NewS3PinStore(ctx context.Context, opts S3PinOptions) (*S3PinStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 pin store: bucket is required")
	}
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")),
		config.WithRegion(opts.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	return newS3PinStore(client, opts.Bucket, opts.Gateway), nil
}

func newS3PinStore(client objectAPI, bucket, gateway string) *S3PinStore {
	if gateway == "" {
		gateway = DefaultPinataGateway
	}
	return &S3PinStore{
		client:  client,
		bucket:  bucket,
		gateway: gateway,
	}
}

func (s *S3PinStore) Upload(ctx context.Context, artifact []byte, displayName string) (domain.UploadedArtifact, error) {
	key := uuid.NewString() + "/" + strings.TrimPrefix(displayName, "/")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(artifact),
		ContentType: aws.String("image/svg+xml"),
	})
	if err != nil {
		err = classifyS3("s3 put", err)
		if errors.Is(err, domain.ErrNetwork) {
			// the write may have landed before the connection failed
			discard(ctx, "s3 put", key, s.DeleteByID)
		}
		return domain.UploadedArtifact{}, err
	}

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		discard(ctx, "s3 head", key, s.DeleteByID)
		return domain.UploadedArtifact{}, classifyS3("s3 head", err)
	}

	cid := head.Metadata["cid"]
	if cid == "" {
		discard(ctx, "s3 head", key, s.DeleteByID)
		return domain.UploadedArtifact{}, fmt.Errorf("s3 pin store: object %s has no cid metadata", key)
	}

	return domain.UploadedArtifact{
		ID:  key,
		CID: cid,
		URL: basecard.GatewayURL(s.gateway, cid),
	}, nil
}

func (s *S3PinStore) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	err = classifyS3("s3 delete", err)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func classifyS3(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "Forbidden":
			return domain.AuthError{Op: op, Err: err}
		case "NoSuchKey", "NotFound":
			return domain.NotFoundError{Resource: "pinned file"}
		case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
			return domain.NetworkError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NetworkError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

var _ usecase.ContentStore = (*S3PinStore)(nil)
