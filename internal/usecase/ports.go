package usecase

import (
	"context"

	"github.com/basecard-xyz/basecard/internal/domain"
)

// ArtifactBuilder renders the card image.
type ArtifactBuilder interface {
	// ResolveImage returns image, or the default profile picture when image
	// is nil. It fails with an InputError when neither is available.
	ResolveImage(image *domain.ProfileImage) (domain.ProfileImage, error)
	Build(image domain.ProfileImage, face domain.CardFace) ([]byte, error)
}

// ContentStore pins artifacts in a content-addressed store.
type ContentStore interface {
	Upload(ctx context.Context, artifact []byte, displayName string) (domain.UploadedArtifact, error)
	// DeleteByID must treat an unknown id as success.
	DeleteByID(ctx context.Context, id string) error
}

// CardRepository persists card records keyed by owner address.
type CardRepository interface {
	Create(ctx context.Context, input domain.CardRecordInput) (domain.CardRecord, error)
	GetByAddress(ctx context.Context, address string) (domain.CardRecord, error)
	DeleteByAddress(ctx context.Context, address string) error
	Update(ctx context.Context, address string, update domain.CardUpdate) (domain.CardRecord, error)
}

// ChainMinter talks to the BaseCard contract.
type ChainMinter interface {
	HasMinted(ctx context.Context, address string) (bool, error)
	CurrentNetwork(ctx context.Context) (uint64, error)
	Mint(ctx context.Context, owner string, card domain.OnchainCard, socials map[string]string) (string, error)
	// Watch streams status updates for hash and closes the channel after a
	// terminal update or when ctx is done.
	Watch(ctx context.Context, hash string) (<-chan domain.TxUpdate, error)
}

// EventPublisher fans mint progress out to subscribers.
type EventPublisher interface {
	PublishMintEvent(ctx context.Context, event domain.MintEvent) error
}
