package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/basecard-xyz/basecard"
	"github.com/basecard-xyz/basecard/internal/domain"
)

var tracer = otel.Tracer("mint")

const defaultCleanupTimeout = 30 * time.Second

type MintUsecase struct {
	builder ArtifactBuilder
	store   ContentStore
	cards   CardRepository
	chain   ChainMinter
	events  EventPublisher
	config  domain.Config
	logger  *slog.Logger
}

func NewMintUsecase(
	builder ArtifactBuilder,
	store ContentStore,
	cards CardRepository,
	chain ChainMinter,
	events EventPublisher,
	config domain.Config,
) *MintUsecase {
	if config.CleanupTimeout <= 0 {
		config.CleanupTimeout = defaultCleanupTimeout
	}
	return &MintUsecase{
		builder: builder,
		store:   store,
		cards:   cards,
		chain:   chain,
		events:  events,
		config:  config,
		logger:  slog.With(slog.String("module", "mint")),
	}
}

// mintOperation is the state of one Execute call. It is never shared or
// reused; a retry starts a new one.
type mintOperation struct {
	id       string
	draft    domain.CardDraft
	state    domain.MintState
	failedAt domain.MintStep
	artifact *domain.UploadedArtifact
	record   *domain.CardRecord
	// recordUnknown is set when Create failed without telling us whether
	// the row was written.
	recordUnknown bool
	tx            *domain.MintTransaction
	warnings      []domain.CompensationWarning
	logger        *slog.Logger
}

// Execute runs one mint attempt: build, upload, record, submit, confirm.
// Any failure after the upload rolls back what was created before the
// result is returned.
func (uc *MintUsecase) Execute(ctx context.Context, draft domain.CardDraft) domain.MintFlowResult {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.Execute")
	defer span.End()

	op := &mintOperation{
		id:    uuid.NewString(),
		draft: draft,
		state: domain.StateIdle,
	}
	op.logger = uc.logger.With(slog.String("operation", op.id))
	span.SetAttributes(attribute.String("operation", op.id))

	image, err := uc.checkPreconditions(ctx, op)
	if err != nil {
		return uc.fail(ctx, op, domain.StepPrecondition, err)
	}
	span.SetAttributes(attribute.String("owner", op.draft.Owner))

	artifact, err := uc.builder.Build(image, op.draft.Face())
	if err != nil {
		return uc.fail(ctx, op, domain.StepBuild, err)
	}
	uc.transition(ctx, op, domain.StateImageReady)

	if err := ctx.Err(); err != nil {
		return uc.fail(ctx, op, domain.StepUpload, domain.UserRejectedError{Err: err})
	}
	uploaded, err := uc.upload(ctx, artifact, op)
	if err != nil {
		return uc.fail(ctx, op, domain.StepUpload, err)
	}
	op.artifact = &uploaded
	uc.transition(ctx, op, domain.StateUploaded)

	record, err := uc.record(ctx, op)
	if err != nil {
		op.recordUnknown = !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrValidation)
		return uc.fail(ctx, op, domain.StepRecord, cancelled(ctx, err))
	}
	op.record = &record
	uc.transition(ctx, op, domain.StateRecorded)

	if err := ctx.Err(); err != nil {
		return uc.fail(ctx, op, domain.StepSubmit, domain.UserRejectedError{Err: err})
	}
	hash, err := uc.submit(ctx, op)
	if err != nil {
		return uc.fail(ctx, op, domain.StepSubmit, cancelled(ctx, err))
	}
	op.tx = &domain.MintTransaction{Hash: hash, Status: domain.TxPending}
	uc.transition(ctx, op, domain.StateSubmitted)

	if err := uc.awaitConfirmation(ctx, op); err != nil {
		return uc.fail(ctx, op, domain.StepConfirm, err)
	}
	uc.transition(ctx, op, domain.StateConfirmed)

	op.logger.InfoContext(ctx, "Card minted",
		slog.String("address", op.draft.Owner),
		slog.String("cid", op.artifact.CID),
		slog.Int64("card", op.record.ID),
		slog.String("tx", op.tx.Hash),
	)

	return domain.MintFlowResult{
		Success:     true,
		OperationID: op.id,
		CID:         op.artifact.CID,
		URL:         op.artifact.URL,
		CardID:      op.record.ID,
		TxHash:      op.tx.Hash,
	}
}

func (uc *MintUsecase) checkPreconditions(ctx context.Context, op *mintOperation) (domain.ProfileImage, error) {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.checkPreconditions")
	defer span.End()

	if err := op.draft.Normalize(); err != nil {
		span.RecordError(err)
		return domain.ProfileImage{}, err
	}

	image, err := uc.builder.ResolveImage(op.draft.ProfileImage)
	if err != nil {
		span.RecordError(err)
		return domain.ProfileImage{}, err
	}

	network, err := uc.chain.CurrentNetwork(ctx)
	if err != nil {
		span.RecordError(err)
		return domain.ProfileImage{}, err
	}
	if network != uc.config.TargetChainID {
		return domain.ProfileImage{}, domain.PreconditionError{
			Reason: fmt.Sprintf("connected to chain %d, switch to %s (%d) to mint your BaseCard",
				network, domain.ChainName(uc.config.TargetChainID), uc.config.TargetChainID),
		}
	}

	minted, err := uc.chain.HasMinted(ctx, op.draft.Owner)
	if err != nil {
		span.RecordError(err)
		return domain.ProfileImage{}, err
	}
	if minted {
		return domain.ProfileImage{}, domain.PreconditionError{
			Reason: "this address has already minted a BaseCard, each address can only mint once",
		}
	}

	return image, nil
}

func (uc *MintUsecase) upload(ctx context.Context, artifact []byte, op *mintOperation) (domain.UploadedArtifact, error) {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.upload")
	defer span.End()

	name := op.draft.Nickname
	if name == "" {
		name = "BaseCard"
	}
	displayName := fmt.Sprintf("%s-%016x.svg", name, xxh3.Hash(artifact))

	uploaded, err := uc.store.Upload(ctx, artifact, displayName)
	if err != nil {
		span.RecordError(err)
		return domain.UploadedArtifact{}, err
	}
	span.SetAttributes(attribute.String("cid", uploaded.CID))
	return uploaded, nil
}

func (uc *MintUsecase) record(ctx context.Context, op *mintOperation) (domain.CardRecord, error) {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.record")
	defer span.End()

	record, err := uc.cards.Create(ctx, domain.CardRecordInput{
		Address:      op.draft.Owner,
		Nickname:     op.draft.Nickname,
		Role:         op.draft.Role,
		Bio:          op.draft.Bio,
		ImageURI:     basecard.ComposeIPFSURI(op.artifact.CID),
		ProfileImage: op.draft.ProfilePreview,
		Basename:     op.draft.Basename,
		Skills:       op.draft.Skills,
		Websites:     op.draft.Websites,
	})
	if err != nil {
		span.RecordError(err)
		return domain.CardRecord{}, err
	}
	return record, nil
}

func (uc *MintUsecase) submit(ctx context.Context, op *mintOperation) (string, error) {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.submit")
	defer span.End()

	hash, err := uc.chain.Mint(ctx, op.draft.Owner, domain.OnchainCard{
		ImageURI: basecard.ComposeIPFSURI(op.artifact.CID),
		Nickname: op.draft.Nickname,
		Role:     op.draft.Role,
		Bio:      op.draft.Bio,
		Basename: op.draft.Basename,
	}, op.draft.Socials)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("tx", hash))
	return hash, nil
}

func (uc *MintUsecase) awaitConfirmation(ctx context.Context, op *mintOperation) error {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.awaitConfirmation")
	defer span.End()

	if uc.config.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.ConfirmTimeout)
		defer cancel()
	}

	updates, err := uc.chain.Watch(ctx, op.tx.Hash)
	if err != nil {
		span.RecordError(err)
		return cancelled(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			return domain.UserRejectedError{Err: ctx.Err()}
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return domain.UserRejectedError{Err: ctx.Err()}
				}
				return domain.SubmissionError{Err: errors.New("transaction watch ended without a final status")}
			}
			op.tx.Status = update.Status
			switch update.Status {
			case domain.TxConfirming:
				uc.publish(ctx, op, "")
			case domain.TxConfirmed:
				return nil
			case domain.TxFailed:
				if update.Err != nil {
					return update.Err
				}
				return domain.RevertedError{TxHash: op.tx.Hash}
			case domain.TxRejected:
				return domain.UserRejectedError{Err: update.Err}
			}
		}
	}
}

// fail moves op to Failed, runs compensation for whatever was created and
// builds the failure result. Compensation is awaited so the caller only
// hears back once cleanup has been attempted.
func (uc *MintUsecase) fail(ctx context.Context, op *mintOperation, step domain.MintStep, err error) domain.MintFlowResult {
	op.failedAt = step
	if !isLocal(err) {
		err = domain.UpstreamError{Step: step, Err: err}
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(step))

	uc.transitionFailed(ctx, op, err)
	attrs := []any{
		slog.String("step", string(step)),
		slog.String("address", op.draft.Owner),
		slog.String("error", err.Error()),
	}
	if op.tx != nil {
		// the transaction may still land after we stop watching
		attrs = append(attrs, slog.String("tx", op.tx.Hash))
	}
	op.logger.WarnContext(ctx, "Mint failed", attrs...)

	if op.artifact != nil || op.record != nil {
		uc.compensate(ctx, op)
		uc.transition(ctx, op, domain.StateCompensationComplete)
	}

	result := domain.MintFlowResult{
		Success:     false,
		OperationID: op.id,
		FailedStep:  step,
		Error:       err,
		Message:     err.Error(),
		Warnings:    op.warnings,
	}
	return result
}

// compensate undoes the record and the upload concurrently. Individual
// failures become warnings; nothing is retried.
func (uc *MintUsecase) compensate(ctx context.Context, op *mintOperation) {
	ctx, span := tracer.Start(ctx, "Mint.Usecase.compensate")
	defer span.End()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.config.CleanupTimeout)
	defer cancel()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	warn := func(task string, err error) {
		mu.Lock()
		defer mu.Unlock()
		op.warnings = append(op.warnings, domain.CompensationWarning{Task: task, Err: err})
	}

	if op.record != nil {
		address := op.record.Address
		g.Go(func() error {
			err := uc.cards.DeleteByAddress(ctx, address)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				op.logger.ErrorContext(ctx, "Failed to delete card record",
					slog.String("address", address),
					slog.String("error", err.Error()),
				)
				warn("delete-record", err)
				return nil
			}
			op.logger.InfoContext(ctx, "Card record cleaned up", slog.String("address", address))
			return nil
		})
	}

	if op.record == nil && op.recordUnknown && op.artifact != nil {
		address, imageURI := op.draft.Owner, basecard.ComposeIPFSURI(op.artifact.CID)
		g.Go(func() error {
			err := uc.removeUnconfirmedRecord(ctx, address, imageURI)
			if err != nil {
				op.logger.ErrorContext(ctx, "Failed to remove possibly written card record",
					slog.String("address", address),
					slog.String("error", err.Error()),
				)
				warn("delete-record", err)
			}
			return nil
		})
	}

	if op.artifact != nil {
		id, cid := op.artifact.ID, op.artifact.CID
		g.Go(func() error {
			err := uc.store.DeleteByID(ctx, id)
			if err != nil {
				op.logger.ErrorContext(ctx, "Failed to unpin artifact, it is now orphaned",
					slog.String("id", id),
					slog.String("cid", cid),
					slog.String("error", err.Error()),
				)
				warn("unpin-artifact", err)
				return nil
			}
			op.logger.InfoContext(ctx, "Artifact unpinned", slog.String("id", id), slog.String("cid", cid))
			return nil
		})
	}

	_ = g.Wait()

	for _, w := range op.warnings {
		span.RecordError(w)
	}
}

// removeUnconfirmedRecord deletes the card of address only if it points at
// imageURI, so a row written by another operation is left alone.
func (uc *MintUsecase) removeUnconfirmedRecord(ctx context.Context, address, imageURI string) error {
	existing, err := uc.cards.GetByAddress(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ImageURI != imageURI {
		return nil
	}
	err = uc.cards.DeleteByAddress(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (uc *MintUsecase) transition(ctx context.Context, op *mintOperation, next domain.MintState) {
	op.logger.DebugContext(ctx, "Mint state transition",
		slog.String("from", string(op.state)),
		slog.String("to", string(next)),
	)
	op.state = next
	uc.publish(ctx, op, "")
}

func (uc *MintUsecase) transitionFailed(ctx context.Context, op *mintOperation, err error) {
	op.state = domain.StateFailed
	uc.publish(ctx, op, err.Error())
}

func (uc *MintUsecase) publish(ctx context.Context, op *mintOperation, message string) {
	if uc.events == nil {
		return
	}
	event := domain.MintEvent{
		OperationID: op.id,
		Address:     op.draft.Owner,
		State:       op.state,
		Step:        op.failedAt,
		Error:       message,
		Time:        time.Now(),
	}
	if op.artifact != nil {
		event.CID = op.artifact.CID
	}
	if op.tx != nil {
		event.TxHash = op.tx.Hash
		event.TxStatus = op.tx.Status
	}
	if err := uc.events.PublishMintEvent(context.WithoutCancel(ctx), event); err != nil {
		op.logger.DebugContext(ctx, "Failed to publish mint event", slog.String("error", err.Error()))
	}
}

// cancelled maps a failure caused by the caller giving up to a user
// rejection so it takes the same compensation path.
func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil && !errors.Is(err, domain.ErrUserRejected) {
		return domain.UserRejectedError{Err: ctx.Err()}
	}
	return err
}

// isLocal reports errors that are surfaced verbatim rather than wrapped as
// upstream failures.
func isLocal(err error) bool {
	return errors.Is(err, domain.ErrInput) ||
		errors.Is(err, domain.ErrPrecondition) ||
		errors.Is(err, domain.ErrTemplate)
}
