package repository

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/infra/database/models"
	"github.com/basecard-xyz/basecard/internal/usecase"
)

const cardCacheTTL = 10 * time.Minute

type CardRepository struct {
	db *gorm.DB
	mc *memcache.Client
}

// NewCardRepository returns a gorm backed card store. mc may be nil to
// disable the read cache.
func NewCardRepository(db *gorm.DB, mc *memcache.Client) *CardRepository {
	return &CardRepository{db: db, mc: mc}
}

func (r *CardRepository) Create(ctx context.Context, input domain.CardRecordInput) (domain.CardRecord, error) {
	if strings.TrimSpace(input.Address) == "" {
		return domain.CardRecord{}, domain.ValidationError{Field: "address", Reason: "address is required"}
	}
	address, err := basecard.NormalizeAddress(input.Address)
	if err != nil {
		return domain.CardRecord{}, domain.ValidationError{Field: "address", Reason: err.Error()}
	}

	card := models.Card{
		Address:      address,
		Nickname:     input.Nickname,
		Role:         input.Role,
		Bio:          input.Bio,
		ImageURI:     input.ImageURI,
		ProfileImage: input.ProfileImage,
		Basename:     input.Basename,
		Skills:       pq.StringArray(nonNil(input.Skills)),
		Websites:     pq.StringArray(nonNil(input.Websites)),
	}

	err = r.db.WithContext(ctx).Create(&card).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.CardRecord{}, domain.ConflictError{Resource: "card", Key: address}
	}
	if err != nil {
		return domain.CardRecord{}, errors.Wrap(err, "failed to create card")
	}

	r.forget(ctx, address)
	return toDomain(card), nil
}

func (r *CardRepository) GetByAddress(ctx context.Context, address string) (domain.CardRecord, error) {
	address, err := basecard.NormalizeAddress(address)
	if err != nil {
		return domain.CardRecord{}, domain.NotFoundError{Resource: "card"}
	}

	if cached, ok := r.cached(ctx, address); ok {
		return cached, nil
	}

	var card models.Card
	err = r.db.WithContext(ctx).
		Where("address = ?", address).
		Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.CardRecord{}, domain.NotFoundError{Resource: "card"}
	}
	if err != nil {
		return domain.CardRecord{}, errors.Wrap(err, "failed to get card")
	}

	record := toDomain(card)
	r.remember(ctx, record)
	return record, nil
}

func (r *CardRepository) DeleteByAddress(ctx context.Context, address string) error {
	address, err := basecard.NormalizeAddress(address)
	if err != nil {
		return domain.NotFoundError{Resource: "card"}
	}

	result := r.db.WithContext(ctx).
		Where("address = ?", address).
		Delete(&models.Card{})
	r.forget(ctx, address)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete card")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "card"}
	}
	return nil
}

func (r *CardRepository) Update(ctx context.Context, address string, update domain.CardUpdate) (domain.CardRecord, error) {
	address, err := basecard.NormalizeAddress(address)
	if err != nil {
		return domain.CardRecord{}, domain.NotFoundError{Resource: "card"}
	}

	var card models.Card
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", address).
			Take(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "card"}
		}
		if err != nil {
			return err
		}

		applyUpdate(&card, update)

		return tx.Save(&card).Error
	})
	r.forget(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CardRecord{}, err
	}
	if err != nil {
		return domain.CardRecord{}, errors.Wrap(err, "failed to update card")
	}

	return toDomain(card), nil
}

func applyUpdate(card *models.Card, update domain.CardUpdate) {
	if update.Nickname != nil {
		card.Nickname = *update.Nickname
	}
	if update.Role != nil {
		card.Role = *update.Role
	}
	if update.Bio != nil {
		card.Bio = *update.Bio
	}
	if update.ImageURI != nil {
		card.ImageURI = *update.ImageURI
	}
	if update.ProfileImage != nil {
		card.ProfileImage = *update.ProfileImage
	}
	if update.Basename != nil {
		card.Basename = *update.Basename
	}
	if update.Skills != nil {
		card.Skills = pq.StringArray(nonNil(*update.Skills))
	}
	if update.Websites != nil {
		card.Websites = pq.StringArray(nonNil(*update.Websites))
	}
}

func toDomain(card models.Card) domain.CardRecord {
	return domain.CardRecord{
		ID:           card.ID,
		Address:      card.Address,
		Nickname:     card.Nickname,
		Role:         card.Role,
		Bio:          card.Bio,
		ImageURI:     card.ImageURI,
		ProfileImage: card.ProfileImage,
		Basename:     card.Basename,
		Skills:       nonNil([]string(card.Skills)),
		Websites:     nonNil([]string(card.Websites)),
		CreatedAt:    card.CDate,
		UpdatedAt:    card.MDate,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// the memcached layer is best effort; failures only cost a database read

func cacheKey(address string) string {
	return "card:" + address
}

func (r *CardRepository) cached(ctx context.Context, address string) (domain.CardRecord, bool) {
	if r.mc == nil {
		return domain.CardRecord{}, false
	}
	item, err := r.mc.Get(cacheKey(address))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			slog.DebugContext(ctx, "card cache get failed", slog.String("error", err.Error()), slog.String("module", "repository"))
		}
		return domain.CardRecord{}, false
	}
	var record domain.CardRecord
	if err := json.Unmarshal(item.Value, &record); err != nil {
		return domain.CardRecord{}, false
	}
	return record, true
}

func (r *CardRepository) remember(ctx context.Context, record domain.CardRecord) {
	if r.mc == nil {
		return
	}
	value, err := json.Marshal(record)
	if err != nil {
		return
	}
	err = r.mc.Set(&memcache.Item{
		Key:        cacheKey(record.Address),
		Value:      value,
		Expiration: int32(cardCacheTTL.Seconds()),
	})
	if err != nil {
		slog.DebugContext(ctx, "card cache set failed", slog.String("error", err.Error()), slog.String("module", "repository"))
	}
}

func (r *CardRepository) forget(ctx context.Context, address string) {
	if r.mc == nil {
		return
	}
	err := r.mc.Delete(cacheKey(address))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		slog.DebugContext(ctx, "card cache delete failed", slog.String("error", err.Error()), slog.String("module", "repository"))
	}
}

var _ usecase.CardRepository = (*CardRepository)(nil)
