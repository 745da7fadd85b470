package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces transaction options that sign on behalf of owner.
type Signer interface {
	TransactOpts(ctx context.Context, owner common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

// KeyedSigner signs with a single local key. It can only mint for the
// address that key controls.
type KeyedSigner struct {
	key     string
	address common.Address
}

func NewKeyedSigner(hexKey string) (*KeyedSigner, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	return &KeyedSigner{
		key:     hexKey,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *KeyedSigner) Address() common.Address {
	return s.address
}

func (s *KeyedSigner) TransactOpts(ctx context.Context, owner common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if owner != s.address {
		return nil, fmt.Errorf("signer %s cannot act for %s", s.address.Hex(), owner.Hex())
	}
	key, err := crypto.HexToECDSA(s.key)
	if err != nil {
		return nil, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// ClefSigner forwards signing requests to an external clef instance where
// the wallet owner approves or denies each transaction.
type ClefSigner struct {
	clef *external.ExternalSigner
}

func NewClefSigner(endpoint string) (*ClefSigner, error) {
	clef, err := external.NewExternalSigner(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to external signer: %w", err)
	}
	return &ClefSigner{clef: clef}, nil
}

func (s *ClefSigner) TransactOpts(ctx context.Context, owner common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	account := accounts.Account{Address: owner}
	if !s.clef.Contains(account) {
		return nil, fmt.Errorf("external signer does not manage %s", owner.Hex())
	}
	opts := bind.NewClefTransactor(s.clef, account)
	opts.Context = ctx
	return opts, nil
}
