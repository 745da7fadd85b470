package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/basecard-xyz/basecard/internal/domain"
)

var authTracer = otel.Tracer("auth")

const defaultClockSkew = 5 * time.Minute

type AuthService struct {
	maxSkew time.Duration
	seen    *cache.Cache
	now     func() time.Time
}

func NewAuthService(config domain.Config) *AuthService {
	skew := config.AuthMaxClockSkew
	if skew <= 0 {
		skew = defaultClockSkew
	}
	return &AuthService{
		maxSkew: skew,
		seen:    cache.New(2*skew, 2*skew),
		now:     time.Now,
	}
}

type AuthResult struct {
	Address string
}

// AuthMessage is the text a wallet signs (EIP-191 personal_sign) to prove
// control of address at timestamp.
func AuthMessage(address string, timestamp int64) string {
	return fmt.Sprintf("basecard:%s:%d", strings.ToLower(address), timestamp)
}

// AuthSignature verifies that signature was produced by address over
// AuthMessage. Each signature is accepted once.
func (s *AuthService) AuthSignature(ctx context.Context, address, signature, timestamp string) (*AuthResult, error) {
	_, span := authTracer.Start(ctx, "Auth.Service.AuthSignature")
	defer span.End()

	if !common.IsHexAddress(address) {
		err := domain.AuthError{Op: "auth", Err: fmt.Errorf("invalid address")}
		span.RecordError(err)
		return nil, err
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		span.RecordError(errors.Wrap(err, "invalid timestamp"))
		return nil, domain.AuthError{Op: "auth", Err: fmt.Errorf("invalid timestamp")}
	}
	signedAt := time.Unix(ts, 0)
	if d := s.now().Sub(signedAt); d > s.maxSkew || d < -s.maxSkew {
		err := domain.AuthError{Op: "auth", Err: fmt.Errorf("signature expired")}
		span.RecordError(err)
		return nil, err
	}

	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		err := domain.AuthError{Op: "auth", Err: fmt.Errorf("malformed signature")}
		span.RecordError(err)
		return nil, err
	}
	// wallets produce v in {27, 28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	owner := common.HexToAddress(address)
	hash := accounts.TextHash([]byte(AuthMessage(owner.Hex(), ts)))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		span.RecordError(errors.Wrap(err, "signature recovery failed"))
		return nil, domain.AuthError{Op: "auth", Err: fmt.Errorf("invalid signature")}
	}
	if crypto.PubkeyToAddress(*pub) != owner {
		err := domain.AuthError{Op: "auth", Err: fmt.Errorf("signer mismatch")}
		span.RecordError(err)
		return nil, err
	}

	key := owner.Hex() + ":" + signature
	if err := s.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		err := domain.AuthError{Op: "auth", Err: fmt.Errorf("signature already used")}
		span.RecordError(err)
		return nil, err
	}

	return &AuthResult{Address: owner.Hex()}, nil
}
