package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/user"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

func newService(t *testing.T) (*Service, *auth.TokenManager) {
	t.Helper()

	cfg := config.Config{Auth: config.Auth{
		JWTSecret:  "test-secret-0123456789",
		Issuer:     "restaurant-test",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}}
	conns := databasetest.New(t)
	tokens := auth.NewTokenManager(cfg)
	return NewService(Params{
		Repository: repo.NewRepository(conns),
		Hasher:     auth.NewHasher(cfg),
		Tokens:     tokens,
		Logger:     zap.NewNop(),
	}), tokens
}

func TestCreateAndLogin(t *testing.T) {
	svc, tokens := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, NewUser{Username: "manager", Email: "manager@example.com", Password: "s3cret-pass", Admin: true})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	token, err := svc.Login(ctx, "manager", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.User.ID)

	actor, err := tokens.Parse(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, actor.ID)
	assert.True(t, actor.IsAdmin())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "waiter", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "waiter", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, NewUser{Username: "", Password: "s3cret-pass"})
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Create(ctx, NewUser{Username: "a", Password: "short"})
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Create(ctx, NewUser{Username: "a", Email: "not-an-email", Password: "s3cret-pass"})
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.Create(ctx, NewUser{Username: "a", Password: "s3cret-pass"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, NewUser{Username: "a", Password: "s3cret-pass"})
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
