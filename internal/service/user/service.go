package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/user"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

const minPasswordLength = 8

var serviceTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/service/user")

// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
var ErrInvalidCredentials = errorbank.BadRequest("unable to log in with provided credentials", errorbank.WithCode("invalid_credentials"))

// Service manages accounts and issues access tokens.
type Service struct {
	repo   *repo.Repository
	hasher *auth.Hasher
	tokens *auth.TokenManager
	logger *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Hasher     *auth.Hasher
	Tokens     *auth.TokenManager
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: p.Repository, hasher: p.Hasher, tokens: p.Tokens, logger: logger}
}

// NewUser is the input of Create.
type NewUser struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *entity.User
}

// Create registers an account.
func (s *Service) Create(ctx context.Context, in NewUser) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "UserService.Create", trace.WithAttributes(attribute.String("user.username", in.Username)))
	defer span.End()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return nil, errorbank.BadRequest("username is required", errorbank.WithDetail("field", "username"))
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, errorbank.BadRequest("email is not valid", errorbank.WithDetail("field", "email"))
		}
	}
	if len(in.Password) < minPasswordLength {
		return nil, errorbank.BadRequest("password is too short", errorbank.WithDetail("min_length", minPasswordLength))
	}

	exists, err := s.repo.Exists(ctx, in.Username)
	if err != nil {
		return nil, errorbank.Internal("failed to check username", errorbank.WithCause(err))
	}
	if exists {
		return nil, usernameTaken(in.Username)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, errorbank.Internal("failed to hash password", errorbank.WithCause(err))
	}

	now := time.Now().UTC()
	user := &entity.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.Admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, usernameTaken(in.Username)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create user", errorbank.WithCause(err))
	}

	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("username", user.Username), zap.Bool("admin", user.IsAdmin))
	return user, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "UserService.List")
	defer span.End()

	users, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list users", errorbank.WithCause(err))
	}
	return users, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("user not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load user", errorbank.WithCause(err))
	}
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	ctx, span := serviceTracer.Start(ctx, "UserService.Login", trace.WithAttributes(attribute.String("user.username", username)))
	defer span.End()

	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load user", errorbank.WithCause(err))
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		s.logger.Info("login rejected", zap.String("username", user.Username))
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, errorbank.Internal("failed to issue token", errorbank.WithCause(err))
	}
	return &Token{AccessToken: token, ExpiresAt: expires, User: user}, nil
}

func usernameTaken(username string) error {
	return errorbank.Conflict("a user with that username already exists",
		errorbank.WithCode("username_taken"),
		errorbank.WithDetail("username", username),
	)
}
