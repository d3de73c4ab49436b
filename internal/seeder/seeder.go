// Package seeder fills a fresh database with development data.
package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	userrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/user"
	productsvc "github.com/Rockthor1106/restaurant-management-api/internal/service/product"
	tablesvc "github.com/Rockthor1106/restaurant-management-api/internal/service/table"
	usersvc "github.com/Rockthor1106/restaurant-management-api/internal/service/user"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// ErrNoAdminPassword is returned when no admin password was configured.
var ErrNoAdminPassword = errors.New("seed: SEED_ADMIN_PASSWORD is required")

const defaultTableCapacity = 4

var sampleProducts = []struct {
	Name  string
	Price string
}{
	{"Chuleta", "10000"},
	{"Bandeja paisa", "18500"},
	{"Ajiaco", "15000"},
	{"Limonada", "4500"},
	{"Cafe", "2500.500"},
}

// Params collects the seeder dependencies.
type Params struct {
	fx.In

	Config   config.Config
	Users    *usersvc.Service
	UserRepo *userrepo.Repository
	Tables   *tablesvc.Service
	Products *productsvc.Service
	Logger   *zap.Logger
}

// Seeder performs database seeding for local/dev setups. Every step is
// idempotent: rows that already exist are left untouched.
type Seeder struct {
	cfg      config.Seed
	users    *usersvc.Service
	userRepo *userrepo.Repository
	tables   *tablesvc.Service
	products *productsvc.Service
	logger   *zap.Logger
}

// New constructs a Seeder.
func New(p Params) *Seeder {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		cfg:      p.Config.Seed,
		users:    p.Users,
		userRepo: p.UserRepo,
		tables:   p.Tables,
		products: p.Products,
		logger:   logger,
	}
}

// Summary counts the rows written by Run.
type Summary struct {
	AdminCreated bool
	Tables       int
	Products     int
}

// Run seeds the admin account, the configured number of tables and the
// sample menu.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	admin, created, err := s.Admin(ctx, s.cfg.AdminUsername, s.cfg.AdminEmail, s.cfg.AdminPassword)
	if err != nil {
		return sum, err
	}
	sum.AdminCreated = created
	actor := identity.FromUser(admin)

	if sum.Tables, err = s.Tables(ctx, actor, s.cfg.Tables); err != nil {
		return sum, err
	}
	if sum.Products, err = s.Products(ctx, actor); err != nil {
		return sum, err
	}

	s.logger.Info("seed data applied",
		zap.Bool("admin_created", sum.AdminCreated),
		zap.Int("tables", sum.Tables),
		zap.Int("products", sum.Products),
	)
	return sum, nil
}

// Admin returns the administrator named username, creating it when missing.
func (s *Seeder) Admin(ctx context.Context, username, email, password string) (*entity.User, bool, error) {
	existing, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !existing.IsAdmin {
			return nil, false, fmt.Errorf("seed: user %q exists and is not an administrator", username)
		}
		return existing, false, nil
	case !errors.Is(err, userrepo.ErrNotFound):
		return nil, false, err
	}

	if password == "" {
		return nil, false, ErrNoAdminPassword
	}
	user, err := s.users.Create(ctx, usersvc.NewUser{
		Username: username,
		Email:    email,
		Password: password,
		Admin:    true,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Tables creates tables numbered 1..count.
func (s *Seeder) Tables(ctx context.Context, actor identity.Actor, count int) (int, error) {
	created := 0
	for number := 1; number <= count; number++ {
		_, err := s.tables.Create(ctx, actor, number, defaultTableCapacity)
		if skipExisting(err) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed table %d: %w", number, err)
		}
		created++
	}
	return created, nil
}

// Products creates the sample menu.
func (s *Seeder) Products(ctx context.Context, actor identity.Actor) (int, error) {
	created := 0
	for _, sample := range sampleProducts {
		_, err := s.products.Create(ctx, actor, sample.Name, decimal.RequireFromString(sample.Price))
		if skipExisting(err) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed product %q: %w", sample.Name, err)
		}
		created++
	}
	return created, nil
}

func skipExisting(err error) bool {
	return err != nil && errorbank.From(err).Kind() == errorbank.KindConflict
}
