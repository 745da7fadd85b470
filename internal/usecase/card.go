package usecase

import (
	"context"
	"strings"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
)

type CardUsecase struct {
	cards CardRepository
}

func NewCardUsecase(cards CardRepository) *CardUsecase {
	return &CardUsecase{cards: cards}
}

func (uc *CardUsecase) Get(ctx context.Context, address string) (domain.CardRecord, error) {
	ctx, span := tracer.Start(ctx, "Card.Usecase.Get")
	defer span.End()

	if !basecard.IsAddress(address) {
		return domain.CardRecord{}, domain.InputError{Field: "address", Reason: "not a valid address"}
	}
	record, err := uc.cards.GetByAddress(ctx, address)
	if err != nil {
		span.RecordError(err)
		return domain.CardRecord{}, err
	}
	return record, nil
}

// Update edits the off-chain profile of an existing card. The image and the
// on-chain data are not touched.
func (uc *CardUsecase) Update(ctx context.Context, address string, update domain.CardUpdate) (domain.CardRecord, error) {
	ctx, span := tracer.Start(ctx, "Card.Usecase.Update")
	defer span.End()

	if !basecard.IsAddress(address) {
		return domain.CardRecord{}, domain.InputError{Field: "address", Reason: "not a valid address"}
	}

	update.ImageURI = nil
	if err := normalizeUpdate(&update); err != nil {
		return domain.CardRecord{}, err
	}

	record, err := uc.cards.Update(ctx, address, update)
	if err != nil {
		span.RecordError(err)
		return domain.CardRecord{}, err
	}
	return record, nil
}

func normalizeUpdate(update *domain.CardUpdate) error {
	trim := func(field string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		*v = strings.TrimSpace(*v)
		if required && *v == "" {
			return domain.InputError{Field: field, Reason: field + " cannot be empty"}
		}
		return nil
	}

	if err := trim("nickname", update.Nickname, true); err != nil {
		return err
	}
	if err := trim("role", update.Role, true); err != nil {
		return err
	}
	if err := trim("bio", update.Bio, false); err != nil {
		return err
	}
	if err := trim("basename", update.Basename, false); err != nil {
		return err
	}

	if update.Skills != nil {
		skills := dedupeList(*update.Skills)
		if len(skills) > domain.MaxSkills {
			return domain.InputError{Field: "skills", Reason: "at most 8 skills are allowed"}
		}
		update.Skills = &skills
	}
	if update.Websites != nil {
		websites := dedupeList(*update.Websites)
		if len(websites) > domain.MaxWebsites {
			return domain.InputError{Field: "websites", Reason: "at most 3 websites are allowed"}
		}
		update.Websites = &websites
	}
	return nil
}

func dedupeList(in []string) []string {
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
