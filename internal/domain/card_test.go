package domain

import (
	"errors"
	"reflect"
	"testing"
)

func TestCardDraftNormalize(t *testing.T) {
	d := CardDraft{
		Owner:       " 0x2222222222222222222222222222222222222222 ",
		Nickname:    " alice ",
		Role:        "Developer ",
		Skills:      []string{"go", " go", "", "solidity"},
		Websites:    []string{"https://a.example", "https://a.example"},
		UseBasename: false,
		Basename:    "alice.base.eth",
		ProfileImage: &ProfileImage{
			Data: nil,
		},
	}

	if err := d.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if d.Nickname != "alice" || d.Role != "Developer" {
		t.Fatalf("fields not trimmed: %+v", d)
	}
	if !reflect.DeepEqual(d.Skills, []string{"go", "solidity"}) {
		t.Fatalf("unexpected skills %v", d.Skills)
	}
	if len(d.Websites) != 1 {
		t.Fatalf("unexpected websites %v", d.Websites)
	}
	if d.Basename != "" {
		t.Fatalf("basename must be cleared when not used")
	}
	if d.ProfileImage != nil {
		t.Fatalf("empty profile image must be dropped")
	}
}

func TestCardDraftNormalizeErrors(t *testing.T) {
	base := func() CardDraft {
		return CardDraft{Owner: "0x2222222222222222222222222222222222222222", Nickname: "alice", Role: "Developer"}
	}

	cases := map[string]func(*CardDraft){
		"missing owner":    func(d *CardDraft) { d.Owner = "" },
		"missing nickname": func(d *CardDraft) { d.Nickname = "  " },
		"missing role":     func(d *CardDraft) { d.Role = "" },
		"too many skills": func(d *CardDraft) {
			d.Skills = []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"}
		},
		"too many websites": func(d *CardDraft) {
			d.Websites = []string{"a", "b", "c", "d"}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			d := base()
			mutate(&d)
			err := d.Normalize()
			if !errors.Is(err, ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
}

func TestUseBasenameKeepsBasename(t *testing.T) {
	d := CardDraft{
		Owner:       "0x2222222222222222222222222222222222222222",
		Nickname:    "alice",
		Role:        "Developer",
		UseBasename: true,
		Basename:    "alice.base.eth",
	}
	if err := d.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if d.Face().Basename != "alice.base.eth" {
		t.Fatalf("expected basename on the card face")
	}
}

func TestErrorClassification(t *testing.T) {
	wrapped := UpstreamError{Step: StepUpload, Err: NetworkError{Op: "upload", Err: errors.New("timeout")}}
	if !errors.Is(wrapped, ErrNetwork) {
		t.Fatalf("expected upstream error to unwrap to network error")
	}
	if !IsRetryable(wrapped) {
		t.Fatalf("network errors are retryable")
	}
	if IsRetryable(UpstreamError{Step: StepUpload, Err: AuthError{Op: "upload"}}) {
		t.Fatalf("auth errors are not retryable")
	}
	if IsRetryable(UserRejectedError{}) {
		t.Fatalf("user rejection is not retryable")
	}
	if wrapped.Error() != "Upload step failed: upload: network error: timeout" {
		t.Fatalf("unexpected message %q", wrapped.Error())
	}
}
