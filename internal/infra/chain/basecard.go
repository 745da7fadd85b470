package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/usecase"
)

var tracer = otel.Tracer("chain")

const (
	defaultPollInterval = 2 * time.Second
	chainIDCacheKey     = "chainid"
)

// Backend is the node connection the client needs. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Options struct {
	ContractAddress string
	PollInterval    time.Duration
}

// BaseCardClient reads from and mints on the BaseCard contract.
type BaseCardClient struct {
	backend      Backend
	contract     *bind.BoundContract
	address      common.Address
	signer       Signer
	cache        *cache.Cache
	pollInterval time.Duration
	logger       *slog.Logger
}

func NewBaseCardClient(backend Backend, signer Signer, opts Options) (*BaseCardClient, error) {
	if !common.IsHexAddress(opts.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", opts.ContractAddress)
	}
	parsed, err := parseABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse BaseCard abi: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	address := common.HexToAddress(opts.ContractAddress)
	return &BaseCardClient{
		backend:      backend,
		contract:     bind.NewBoundContract(address, parsed, backend, backend, backend),
		address:      address,
		signer:       signer,
		cache:        cache.New(10*time.Minute, 20*time.Minute),
		pollInterval: opts.PollInterval,
		logger:       slog.With(slog.String("module", "chain")),
	}, nil
}

func (c *BaseCardClient) HasMinted(ctx context.Context, address string) (bool, error) {
	ctx, span := tracer.Start(ctx, "Chain.BaseCard.HasMinted")
	defer span.End()

	if !common.IsHexAddress(address) {
		return false, domain.InputError{Field: "owner", Reason: "not a valid address"}
	}

	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "hasMinted", common.HexToAddress(address))
	if err != nil {
		span.RecordError(err)
		return false, domain.NetworkError{Op: "hasMinted", Err: err}
	}
	if len(out) != 1 {
		return false, fmt.Errorf("hasMinted: unexpected output length %d", len(out))
	}
	minted, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("hasMinted: unexpected output type %T", out[0])
	}
	return minted, nil
}

// CurrentNetwork returns the chain id of the connected node. The value is
// cached since it cannot change without reconnecting.
func (c *BaseCardClient) CurrentNetwork(ctx context.Context) (uint64, error) {
	if cached, ok := c.cache.Get(chainIDCacheKey); ok {
		return cached.(uint64), nil
	}

	id, err := c.backend.ChainID(ctx)
	if err != nil {
		return 0, domain.NetworkError{Op: "chainId", Err: err}
	}
	c.cache.Set(chainIDCacheKey, id.Uint64(), cache.DefaultExpiration)
	return id.Uint64(), nil
}

// Mint submits mintBaseCard signed by owner and returns the transaction hash.
func (c *BaseCardClient) Mint(ctx context.Context, owner string, card domain.OnchainCard, socials map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "Chain.BaseCard.Mint")
	defer span.End()

	if !common.IsHexAddress(owner) {
		return "", domain.InputError{Field: "owner", Reason: "not a valid address"}
	}

	chainID, err := c.CurrentNetwork(ctx)
	if err != nil {
		return "", domain.SubmissionError{Err: err}
	}

	opts, err := c.signer.TransactOpts(ctx, common.HexToAddress(owner), new(big.Int).SetUint64(chainID))
	if err != nil {
		span.RecordError(err)
		return "", domain.SubmissionError{Err: err}
	}

	ordered := socialsInOrder(socials)
	keys, values := ordered.Split()
	c.logger.DebugContext(ctx, "Submitting mint",
		slog.String("owner", owner),
		slog.String("imageURI", card.ImageURI),
		slog.Any("socials", ordered),
	)

	tx, err := c.contract.Transact(opts, "mintBaseCard", cardData{
		ImageURI: card.ImageURI,
		Nickname: card.Nickname,
		Role:     card.Role,
		Bio:      card.Bio,
		Basename: card.Basename,
	}, keys, values)
	if err != nil {
		span.RecordError(err)
		return "", classifySubmitError(ctx, err)
	}

	hash := tx.Hash().Hex()
	span.SetAttributes(attribute.String("tx", hash))
	return hash, nil
}

// Watch polls for the receipt of hash. It sends confirming once the
// transaction is being waited on, then exactly one terminal update.
func (c *BaseCardClient) Watch(ctx context.Context, hash string) (<-chan domain.TxUpdate, error) {
	if len(common.FromHex(hash)) != common.HashLength {
		return nil, fmt.Errorf("invalid transaction hash %q", hash)
	}
	txHash := common.HexToHash(hash)
	updates := make(chan domain.TxUpdate, 2)

	go func() {
		defer close(updates)

		send := func(u domain.TxUpdate) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(domain.TxUpdate{Hash: hash, Status: domain.TxConfirming}) {
			return
		}

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			receipt, err := c.backend.TransactionReceipt(ctx, txHash)
			switch {
			case err == nil:
				send(receiptUpdate(hash, receipt))
				return
			case errors.Is(err, ethereum.NotFound):
			case ctx.Err() != nil:
				return
			default:
				c.logger.WarnContext(ctx, "Receipt lookup failed, retrying",
					slog.String("tx", hash),
					slog.String("error", err.Error()),
				)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return updates, nil
}

func receiptUpdate(hash string, receipt *types.Receipt) domain.TxUpdate {
	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		return domain.TxUpdate{Hash: hash, Status: domain.TxConfirmed, Block: block}
	}
	return domain.TxUpdate{
		Hash:   hash,
		Status: domain.TxFailed,
		Block:  block,
		Err:    domain.RevertedError{TxHash: hash},
	}
}

// classifySubmitError separates a signer refusal from node or RPC failures.
func classifySubmitError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return domain.UserRejectedError{Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"denied", "rejected", "declined"} {
		if strings.Contains(msg, marker) {
			return domain.UserRejectedError{Err: err}
		}
	}
	return domain.SubmissionError{Err: err}
}

var _ usecase.ChainMinter = (*BaseCardClient)(nil)
