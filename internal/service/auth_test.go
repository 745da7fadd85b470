package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/basecard-xyz/basecard/internal/domain"
)

func sign(t *testing.T, address string, ts int64) (string, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if address == "" {
		address = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(AuthMessage(address, ts))), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return address, hexutil.Encode(sig)
}

func TestAuthSignature(t *testing.T) {
	svc := NewAuthService(domain.Config{})
	ts := time.Now().Unix()
	address, sig := sign(t, "", ts)

	result, err := svc.AuthSignature(context.Background(), address, sig, strconv.FormatInt(ts, 10))
	if err != nil {
		t.Fatalf("auth failed: %v", err)
	}
	if result.Address != address {
		t.Fatalf("expected %s got %s", address, result.Address)
	}
}

func TestAuthSignatureReplay(t *testing.T) {
	svc := NewAuthService(domain.Config{})
	ts := time.Now().Unix()
	address, sig := sign(t, "", ts)

	if _, err := svc.AuthSignature(context.Background(), address, sig, strconv.FormatInt(ts, 10)); err != nil {
		t.Fatalf("first auth failed: %v", err)
	}
	_, err := svc.AuthSignature(context.Background(), address, sig, strconv.FormatInt(ts, 10))
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected replayed signature to be rejected, got %v", err)
	}
}

func TestAuthSignatureExpired(t *testing.T) {
	svc := NewAuthService(domain.Config{AuthMaxClockSkew: time.Minute})
	ts := time.Now().Add(-time.Hour).Unix()
	address, sig := sign(t, "", ts)

	_, err := svc.AuthSignature(context.Background(), address, sig, strconv.FormatInt(ts, 10))
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected expired signature to be rejected, got %v", err)
	}
}

func TestAuthSignatureWrongSigner(t *testing.T) {
	svc := NewAuthService(domain.Config{})
	ts := time.Now().Unix()
	victim := "0x2222222222222222222222222222222222222222"
	_, sig := sign(t, victim, ts)

	_, err := svc.AuthSignature(context.Background(), victim, sig, strconv.FormatInt(ts, 10))
	if !errors.Is(err, domain.ErrAuth) {
		t.Fatalf("expected signer mismatch, got %v", err)
	}
}

func TestAuthSignatureMalformed(t *testing.T) {
	svc := NewAuthService(domain.Config{})
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	cases := []struct {
		name, address, sig, ts string
	}{
		{"bad address", "alice", "0x00", ts},
		{"bad timestamp", "0x2222222222222222222222222222222222222222", "0x00", "yesterday"},
		{"short signature", "0x2222222222222222222222222222222222222222", "0x0102", ts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AuthSignature(context.Background(), tc.address, tc.sig, tc.ts)
			if !errors.Is(err, domain.ErrAuth) {
				t.Fatalf("expected auth error, got %v", err)
			}
		})
	}
}

func TestAuthMessage(t *testing.T) {
	got := AuthMessage("0xABCdef0000000000000000000000000000000000", 1700000000)
	if got != "basecard:0xabcdef0000000000000000000000000000000000:1700000000" {
		t.Fatalf("unexpected message %s", got)
	}
}
