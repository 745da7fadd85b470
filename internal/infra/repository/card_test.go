package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/infra/database/models"
)

func TestCreateRejectsBadAddress(t *testing.T) {
	repo := NewCardRepository(nil, nil)

	_, err := repo.Create(context.Background(), domain.CardRecordInput{Address: ""})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = repo.Create(context.Background(), domain.CardRecordInput{Address: "alice.eth"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetRejectsBadAddress(t *testing.T) {
	repo := NewCardRepository(nil, nil)

	_, err := repo.GetByAddress(context.Background(), "not-an-address")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.DeleteByAddress(context.Background(), "not-an-address"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyUpdate(t *testing.T) {
	card := models.Card{
		Nickname: "alice",
		Role:     "Developer",
		Bio:      "old",
		Skills:   pq.StringArray{"go"},
	}

	bio := "new"
	skills := []string{"go", "rust"}
	applyUpdate(&card, domain.CardUpdate{Bio: &bio, Skills: &skills})

	if card.Nickname != "alice" || card.Role != "Developer" {
		t.Fatalf("untouched fields changed: %+v", card)
	}
	if card.Bio != "new" {
		t.Fatalf("bio not updated")
	}
	if len(card.Skills) != 2 || card.Skills[1] != "rust" {
		t.Fatalf("skills not updated: %v", card.Skills)
	}
}

func TestToDomain(t *testing.T) {
	now := time.Now()
	record := toDomain(models.Card{
		ID:       3,
		Address:  "0x2222222222222222222222222222222222222222",
		ImageURI: "ipfs://QmCard",
		CDate:    now,
		MDate:    now,
	})

	if record.ID != 3 || record.ImageURI != "ipfs://QmCard" {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.Skills == nil || record.Websites == nil {
		t.Fatalf("nil arrays must become empty slices")
	}
	if !record.CreatedAt.Equal(now) {
		t.Fatalf("created time not mapped")
	}
}

// stubPool answers the statements gorm issues with canned results, so the
// repository's error mapping runs against the real postgres dialector.
type stubPool struct {
	err          error
	rowsAffected int64
	queries      []string
}

func (p *stubPool) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (p *stubPool) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	return driver.RowsAffected(p.rowsAffected), nil
}

func (p *stubPool) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	return nil, errors.New("query results not supported")
}

func (p *stubPool) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	p.queries = append(p.queries, query)
	return nil
}

func newStubRepository(t *testing.T, pool *stubPool) *CardRepository {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		t.Fatalf("open gorm: %v", err)
	}
	return NewCardRepository(db, nil)
}

func TestCreateDuplicateAddressIsConflict(t *testing.T) {
	pool := &stubPool{err: &pgconn.PgError{
		Code:           "23505",
		Message:        `duplicate key value violates unique constraint "uniq_card_address"`,
		ConstraintName: "uniq_card_address",
	}}
	repo := newStubRepository(t, pool)

	_, err := repo.Create(context.Background(), domain.CardRecordInput{
		Address:  "0x2222222222222222222222222222222222222222",
		Nickname: "alice",
		ImageURI: "ipfs://QmCard",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(pool.queries) == 0 || !strings.Contains(pool.queries[0], `INSERT INTO "cards"`) {
		t.Fatalf("expected an insert, got %v", pool.queries)
	}
}

func TestCreateOtherFailureIsNotConflict(t *testing.T) {
	pool := &stubPool{err: &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"}}
	repo := newStubRepository(t, pool)

	_, err := repo.Create(context.Background(), domain.CardRecordInput{
		Address:  "0x2222222222222222222222222222222222222222",
		ImageURI: "ipfs://QmCard",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, domain.ErrConflict) {
		t.Fatalf("only unique violations are conflicts, got %v", err)
	}
}

func TestDeleteByAddressRowsAffected(t *testing.T) {
	pool := &stubPool{rowsAffected: 0}
	repo := newStubRepository(t, pool)

	err := repo.DeleteByAddress(context.Background(), "0x2222222222222222222222222222222222222222")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found when no row is deleted, got %v", err)
	}
	if len(pool.queries) != 1 || !strings.Contains(pool.queries[0], `DELETE FROM "cards"`) {
		t.Fatalf("expected a single delete, got %v", pool.queries)
	}

	pool.rowsAffected = 1
	if err := repo.DeleteByAddress(context.Background(), "0x2222222222222222222222222222222222222222"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	pool.err = errors.New("connection reset by peer")
	err = repo.DeleteByAddress(context.Background(), "0x2222222222222222222222222222222222222222")
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected driver failure to surface, got %v", err)
	}
}
