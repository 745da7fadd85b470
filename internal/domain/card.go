package domain

import (
	"strings"
	"time"
)

const (
	MaxSkills   = 8
	MaxWebsites = 3
)

// ProfileImage is a raw user-supplied picture.
type ProfileImage struct {
	Data     []byte
	MimeType string
}

// CardDraft is the client-held input for a single mint attempt.
type CardDraft struct {
	Owner          string            `json:"owner"`
	Nickname       string            `json:"nickname"`
	Role           string            `json:"role"`
	Bio            string            `json:"bio"`
	Socials        map[string]string `json:"socials,omitempty"`
	Skills         []string          `json:"skills,omitempty"`
	Websites       []string          `json:"websites,omitempty"`
	UseBasename    bool              `json:"useBasename"`
	Basename       string            `json:"basename,omitempty"`
	ProfileImage   *ProfileImage     `json:"-"`
	ProfilePreview string            `json:"-"`
}

// Normalize trims the draft fields, removes duplicate skills and websites
// and checks the bounds. It returns an InputError for the first violation.
func (d *CardDraft) Normalize() error {
	d.Owner = strings.TrimSpace(d.Owner)
	d.Nickname = strings.TrimSpace(d.Nickname)
	d.Role = strings.TrimSpace(d.Role)
	d.Bio = strings.TrimSpace(d.Bio)
	d.Basename = strings.TrimSpace(d.Basename)

	if d.Owner == "" {
		return InputError{Field: "owner", Reason: "wallet address is required"}
	}
	if d.Nickname == "" {
		return InputError{Field: "nickname", Reason: "nickname is required"}
	}
	if d.Role == "" {
		return InputError{Field: "role", Reason: "role is required"}
	}

	d.Skills = dedupe(d.Skills)
	if len(d.Skills) > MaxSkills {
		return InputError{Field: "skills", Reason: "at most 8 skills are allowed"}
	}
	d.Websites = dedupe(d.Websites)
	if len(d.Websites) > MaxWebsites {
		return InputError{Field: "websites", Reason: "at most 3 websites are allowed"}
	}

	if !d.UseBasename {
		d.Basename = ""
	}
	if d.ProfileImage != nil && len(d.ProfileImage.Data) == 0 {
		d.ProfileImage = nil
	}
	return nil
}

// Face returns the fields printed on the card image.
func (d CardDraft) Face() CardFace {
	return CardFace{
		Nickname: d.Nickname,
		Role:     d.Role,
		Basename: d.Basename,
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// CardFace is the text composited onto the card image.
type CardFace struct {
	Nickname string
	Role     string
	Basename string
}

// UploadedArtifact is a pinned object in the content store.
type UploadedArtifact struct {
	ID  string `json:"id"`
	CID string `json:"cid"`
	URL string `json:"url"`
}

// CardRecordInput is what the mint flow persists after a successful upload.
type CardRecordInput struct {
	Address      string
	Nickname     string
	Role         string
	Bio          string
	ImageURI     string
	ProfileImage string
	Basename     string
	Skills       []string
	Websites     []string
}

// CardRecord is a stored card, one per wallet address.
type CardRecord struct {
	ID           int64     `json:"id"`
	Address      string    `json:"address"`
	Nickname     string    `json:"nickname"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio"`
	ImageURI     string    `json:"imageURI"`
	ProfileImage string    `json:"profileImage,omitempty"`
	Basename     string    `json:"basename"`
	Skills       []string  `json:"skills"`
	Websites     []string  `json:"websites"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CardUpdate is a partial update; nil fields are left untouched.
type CardUpdate struct {
	Nickname     *string   `json:"nickname,omitempty"`
	Role         *string   `json:"role,omitempty"`
	Bio          *string   `json:"bio,omitempty"`
	ImageURI     *string   `json:"imageURI,omitempty"`
	ProfileImage *string   `json:"profileImage,omitempty"`
	Basename     *string   `json:"basename,omitempty"`
	Skills       *[]string `json:"skills,omitempty"`
	Websites     *[]string `json:"websites,omitempty"`
}

// OnchainCard is the tuple passed to the contract's mint call.
type OnchainCard struct {
	ImageURI string
	Nickname string
	Role     string
	Bio      string
	Basename string
}
