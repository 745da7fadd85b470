package gateway

import (
	"context"
	"log/slog"
	"time"
)

const discardTimeout = 10 * time.Second

// discard removes an object the provider created for an upload that is
// being reported as failed. The caller never learns its id, so nobody else
// can clean it up.
func discard(ctx context.Context, op, id string, del func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()

	if err := del(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to discard partial upload, it is now orphaned",
			slog.String("op", op),
			slog.String("id", id),
			slog.String("error", err.Error()),
			slog.String("module", "gateway"),
		)
	}
}
