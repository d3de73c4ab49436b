package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/Rockthor1106/restaurant-management-api/internal/dto"
	"github.com/Rockthor1106/restaurant-management-api/internal/presentation/http/response"
	service "github.com/Rockthor1106/restaurant-management-api/internal/service/user"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/middleware"
	"github.com/Rockthor1106/restaurant-management-api/internal/transport/http/request"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/transport/http/auth")

// reservedUsername cannot be claimed through the API.
const reservedUsername = "admin"

var errUsernameReserved = errorbank.BadRequest("this username is reserved", errorbank.WithCode("username_reserved"), errorbank.WithDetail("field", "username"))

// Module wires token and account endpoints.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Handler exposes login and account management.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes on e.
func Register(e *echo.Echo, h *Handler, authn *middleware.Authenticator) {
	e.POST("/auth/token", h.token)

	g := e.Group("/users", authn.Authenticate(), middleware.RequireAdmin())
	g.GET("", h.list)
	g.POST("", h.create)
}

func (h *Handler) token(c echo.Context) error {
	b := response.New(c)

	var payload dto.TokenRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if strings.TrimSpace(payload.Username) == "" || payload.Password == "" {
		return b.WithError(errorbank.BadRequest("username and password are required")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.token")
	defer span.End()

	token, err := h.svc.Login(ctx, payload.Username, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   token.ExpiresAt,
		User:        dto.NewUserResponse(token.User),
	}).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "users.list")
	defer span.End()

	users, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewUserResponses(users)).WithMeta("count", len(users)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateUserRequest
	if err := request.Bind(c, &payload); err != nil {
		return b.WithError(err).Build()
	}
	if strings.EqualFold(strings.TrimSpace(payload.Username), reservedUsername) {
		return b.WithError(errUsernameReserved).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "users.create")
	defer span.End()

	user, err := h.svc.Create(ctx, service.NewUser{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Admin:    payload.IsAdmin,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewUserResponse(user)).Build()
}
