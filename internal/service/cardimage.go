package service

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/basecard-xyz/basecard/internal/assets"
	"github.com/basecard-xyz/basecard/internal/domain"
)

// closingMarker is where the generated elements are inserted.
const closingMarker = "</svg>"

const (
	maxNicknameLength = 20
	maxBasenameLength = 25
	maxRoleLength     = 30
)

const cardElements = `
    <defs>
      <style>
        @import url('https://fonts.googleapis.com/css2?family=K2D:wght@400;700&amp;display=swap');
      </style>
    </defs>
    <image href="data:%s;base64,%s" x="0" y="60" width="225" height="225" clip-path="url(#profileClipPath)" preserveAspectRatio="xMidYMid slice" />

    <text x="258" y="100" font-family="K2D" font-size="36" fill="white" font-weight="bold">%s</text>
    <text x="258" y="130" font-family="K2D" font-size="16" fill="white" font-weight="lighter">%s</text>
    <text x="258" y="180" font-family="K2D" font-size="28" fill="white" font-weight="bold">%s</text>
  `

// BuildArtifact composites the profile image and the card face into the
// template, right before its closing </svg>. It is deterministic and does
// no I/O.
func BuildArtifact(template []byte, image domain.ProfileImage, face domain.CardFace) ([]byte, error) {
	if len(image.Data) == 0 {
		return nil, domain.InputError{Field: "profileImage", Reason: "image is empty"}
	}
	if strings.TrimSpace(face.Nickname) == "" {
		return nil, domain.InputError{Field: "nickname", Reason: "nickname is required"}
	}
	if strings.TrimSpace(face.Role) == "" {
		return nil, domain.InputError{Field: "role", Reason: "role is required"}
	}

	idx := bytes.LastIndex(template, []byte(closingMarker))
	if idx < 0 {
		return nil, domain.TemplateError{Reason: "missing " + closingMarker + " insertion marker"}
	}

	mimeType := image.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	elements := fmt.Sprintf(cardElements,
		escapeText(mimeType),
		base64.StdEncoding.EncodeToString(image.Data),
		escapeText(truncate(face.Nickname, maxNicknameLength)),
		escapeText(truncate(face.Basename, maxBasenameLength)),
		escapeText(truncate(face.Role, maxRoleLength)),
	)

	var buf bytes.Buffer
	buf.Grow(len(template) + len(elements))
	buf.Write(template[:idx])
	buf.WriteString(elements)
	buf.Write(template[idx:])
	return buf.Bytes(), nil
}

func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// CardImageService renders card artifacts from a fixed template.
type CardImageService struct {
	template     []byte
	defaultImage *domain.ProfileImage
}

func NewCardImageService(template []byte, defaultImage *domain.ProfileImage) *CardImageService {
	return &CardImageService{
		template:     template,
		defaultImage: defaultImage,
	}
}

// LoadCardImageService reads the template and default picture from disk.
// Empty paths fall back to the embedded assets.
func LoadCardImageService(templatePath, defaultImagePath string) (*CardImageService, error) {
	template := assets.CardTemplate
	if templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read card template")
		}
		template = data
	}

	defaultImage := &domain.ProfileImage{
		Data:     assets.DefaultProfileImage,
		MimeType: assets.DefaultProfileImageMimeType,
	}
	if defaultImagePath != "" {
		data, err := os.ReadFile(defaultImagePath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read default profile image")
		}
		defaultImage = &domain.ProfileImage{
			Data:     data,
			MimeType: detectMimeType(defaultImagePath, data),
		}
	}

	if !bytes.Contains(template, []byte(closingMarker)) {
		return nil, domain.TemplateError{Reason: "missing " + closingMarker + " insertion marker"}
	}

	return NewCardImageService(template, defaultImage), nil
}

func (s *CardImageService) ResolveImage(image *domain.ProfileImage) (domain.ProfileImage, error) {
	if image != nil && len(image.Data) > 0 {
		resolved := *image
		if resolved.MimeType == "" {
			resolved.MimeType = http.DetectContentType(resolved.Data)
		}
		return resolved, nil
	}
	if s.defaultImage == nil || len(s.defaultImage.Data) == 0 {
		return domain.ProfileImage{}, domain.InputError{Field: "profileImage", Reason: "a profile image is required"}
	}
	return *s.defaultImage, nil
}

func (s *CardImageService) Build(image domain.ProfileImage, face domain.CardFace) ([]byte, error) {
	return BuildArtifact(s.template, image, face)
}

func detectMimeType(path string, data []byte) string {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return "image/svg+xml"
	}
	return http.DetectContentType(data)
}
