// Package coretest starts the domain graph on an in-memory database for
// package tests.
package coretest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/auth"
	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/core"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/database/databasetest"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging"
	"github.com/Rockthor1106/restaurant-management-api/internal/messaging/messagingtest"
)

// Env exposes the pieces tests usually need next to the populated targets.
type Env struct {
	Config config.Config
	Conns  *database.Connections
	Bus    *messagingtest.Recorder
	Tokens *auth.TokenManager
}

// Config returns the configuration used by Start.
func Config() config.Config {
	return config.Config{
		Auth: config.Auth{
			JWTSecret:  "coretest-secret-0123456789",
			Issuer:     "restaurant-test",
			TokenTTL:   time.Hour,
			BcryptCost: 4,
		},
		Messaging: config.Messaging{
			Enabled: true,
			Kafka:   config.Kafka{Topic: "restaurant.orders"},
		},
		Seed: config.Seed{
			AdminUsername: "manager",
			AdminEmail:    "manager@example.com",
			AdminPassword: "manager-pass",
			Tables:        3,
		},
	}
}

// Start builds the domain graph plus opts, starts it and stops it when the
// test ends.
func Start(t testing.TB, opts ...fx.Option) *Env {
	t.Helper()

	env := &Env{
		Config: Config(),
		Conns:  databasetest.New(t),
		Bus:    &messagingtest.Recorder{},
	}

	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(env.Config, env.Conns, zap.NewNop()),
		fx.Provide(
			func() cache.Store { return cache.NewNoop() },
			func() messaging.Client { return env.Bus },
		),
		core.Module,
		fx.Populate(&env.Tokens),
		fx.Options(opts...),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	return env
}

// Token issues an access token for user.
func (e *Env) Token(t testing.TB, user *entity.User) string {
	t.Helper()
	token, _, err := e.Tokens.Issue(user)
	require.NoError(t, err)
	return token
}
