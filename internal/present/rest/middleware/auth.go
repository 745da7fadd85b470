package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/basecard-xyz/basecard/internal/domain"
	"github.com/basecard-xyz/basecard/internal/present/rest/presenter"
	"github.com/basecard-xyz/basecard/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

// IdentifyIdentity attaches the requester address to the context when the
// request carries a valid wallet signature. Requests without one pass
// through anonymously.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyIdentity")
		defer span.End()

		// # wallet signature
		// personal_sign over "basecard:<address>:<timestamp>"
		header := c.Request().Header
		address := header.Get(domain.RequesterAddressHeader)
		signature := header.Get(domain.RequesterSignatureHeader)
		timestamp := header.Get(domain.RequesterTimestampHeader)

		if address != "" && signature != "" && timestamp != "" {
			result, err := s.auth.AuthSignature(ctx, address, signature, timestamp)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthSignature failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.RequesterAddressCtxKey, result.Address)
			span.SetAttributes(attribute.String("RequesterAddress", result.Address))
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireIdentity rejects requests IdentifyIdentity could not authenticate.
func RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if RequesterAddress(c.Request().Context()) == "" {
			return presenter.Unauthorized(c, "a valid wallet signature is required")
		}
		return next(c)
	}
}

func RequesterAddress(ctx context.Context) string {
	address, _ := ctx.Value(domain.RequesterAddressCtxKey).(string)
	return address
}
