package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/client"
	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/usecase"
)

const (
	DefaultPinataUploadEndpoint = "https://uploads.pinata.cloud"
	DefaultPinataAPIEndpoint    = "https://api.pinata.cloud"
	DefaultPinataGateway        = "https://gateway.pinata.cloud"
)

type PinataOptions struct {
	JWT            string
	UploadEndpoint string
	APIEndpoint    string
	Gateway        string
}

// PinataStore pins artifacts on the public IPFS network through the Pinata
// v3 files API.
type PinataStore struct {
	client  *client.Client
	upload  string
	api     string
	gateway string
}

func NewPinataStore(opts PinataOptions) *PinataStore {
	if opts.UploadEndpoint == "" {
		opts.UploadEndpoint = DefaultPinataUploadEndpoint
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = DefaultPinataAPIEndpoint
	}
	if opts.Gateway == "" {
		opts.Gateway = DefaultPinataGateway
	}
	return &PinataStore{
		client:  client.New("basecard", opts.JWT, 0),
		upload:  strings.TrimSuffix(opts.UploadEndpoint, "/"),
		api:     strings.TrimSuffix(opts.APIEndpoint, "/"),
		gateway: opts.Gateway,
	}
}

type pinataFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	CID      string `json:"cid"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type pinataResponse struct {
	Data pinataFile `json:"data"`
}

func (s *PinataStore) Upload(ctx context.Context, artifact []byte, displayName string) (domain.UploadedArtifact, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("network", "public"); err != nil {
		return domain.UploadedArtifact{}, err
	}
	if err := form.WriteField("name", displayName); err != nil {
		return domain.UploadedArtifact{}, err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, displayName))
	header.Set("Content-Type", "image/svg+xml")
	part, err := form.CreatePart(header)
	if err != nil {
		return domain.UploadedArtifact{}, err
	}
	if _, err := part.Write(artifact); err != nil {
		return domain.UploadedArtifact{}, err
	}
	if err := form.Close(); err != nil {
		return domain.UploadedArtifact{}, err
	}

	req, err := http.NewRequest(http.MethodPost, s.upload+"/v3/files", &body)
	if err != nil {
		return domain.UploadedArtifact{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp pinataResponse
	if err := s.client.Do(ctx, req, &resp); err != nil {
		return domain.UploadedArtifact{}, classify("pinata upload", err)
	}
	if resp.Data.ID == "" || resp.Data.CID == "" {
		if resp.Data.ID != "" {
			discard(ctx, "pinata upload", resp.Data.ID, s.DeleteByID)
		}
		return domain.UploadedArtifact{}, fmt.Errorf("pinata upload: response is missing id or cid")
	}

	return domain.UploadedArtifact{
		ID:  resp.Data.ID,
		CID: resp.Data.CID,
		URL: basecard.GatewayURL(s.gateway, resp.Data.CID),
	}, nil
}

func (s *PinataStore) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	req, err := http.NewRequest(http.MethodDelete, s.api+"/v3/files/public/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	err = classify("pinata delete", s.client.Do(ctx, req, nil))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// classify maps transport and HTTP failures onto the content store error
// taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var transport *client.TransportError
	if errors.As(err, &transport) {
		return domain.NetworkError{Op: op, Err: transport.Err}
	}

	var status *client.StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden:
			return domain.AuthError{Op: op, Err: status}
		case status.Code == http.StatusNotFound:
			return domain.NotFoundError{Resource: "pinned file"}
		case status.Code == http.StatusTooManyRequests || status.Code >= 500:
			return domain.NetworkError{Op: op, Err: status}
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

var _ usecase.ContentStore = (*PinataStore)(nil)
