package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

const actorKey = "restaurant.actor"

// Module provides the request authenticator to Fx.
var Module = fx.Provide(NewAuthenticator)

var (
	errNotAuthenticated = errorbank.Forbidden("authentication credentials were not provided", errorbank.WithCode("not_authenticated"))
	errInvalidToken     = errorbank.Forbidden("invalid or expired token", errorbank.WithCode("authentication_failed"))
	errNotAdmin         = errorbank.Forbidden("you do not have permission to perform this action", errorbank.WithCode("permission_denied"))
)

// Authenticator resolves bearer tokens into actors.
type Authenticator struct {
	tokens *auth.TokenManager
}

// NewAuthenticator wires an Authenticator.
func NewAuthenticator(tokens *auth.TokenManager) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved actor on the context.
func (a *Authenticator) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return response.New(c).WithError(errNotAuthenticated).Build()
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !(strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "Token")) || token == "" {
				return response.New(c).WithError(errInvalidToken).Build()
			}

			actor, err := a.tokens.Parse(strings.TrimSpace(token))
			if err != nil {
				return response.New(c).WithError(errInvalidToken).Build()
			}

			trace.SpanFromContext(c.Request().Context()).SetAttributes(
				attribute.Int64("enduser.id", actor.ID),
				attribute.Bool("enduser.admin", actor.Admin),
			)
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// RequireAdmin lets only administrators through. It must run after
// Authenticate.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return response.New(c).WithError(errNotAuthenticated).Build()
			}
			if !actor.IsAdmin() {
				return response.New(c).WithError(errNotAdmin).Build()
			}
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated actor of the request.
func ActorFrom(c echo.Context) (identity.Actor, bool) {
	actor, ok := c.Get(actorKey).(identity.Actor)
	return actor, ok
}
