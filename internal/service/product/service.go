package product

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Rockthor1106/restaurant-management-api/internal/cache"
	"github.com/Rockthor1106/restaurant-management-api/internal/config"
	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
	"github.com/Rockthor1106/restaurant-management-api/internal/identity"
	itemrepo "github.com/Rockthor1106/restaurant-management-api/internal/repository/orderitem"
	repo "github.com/Rockthor1106/restaurant-management-api/internal/repository/product"
	"github.com/Rockthor1106/restaurant-management-api/pkg/errorbank"
)

const (
	maxNameLength = 100
	priceScale    = 3
)

// maxPrice is the first value that no longer fits decimal(10,3).
var maxPrice = decimal.New(1, 7)

var serviceTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/service/product")

// Service manages the product catalog.
type Service struct {
	db       *database.Connections
	repo     *repo.Repository
	items    *itemrepo.Repository
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Connections *database.Connections
	Repository  *repo.Repository
	Items       *itemrepo.Repository
	Cache       cache.Store
	Config      config.Config
	Logger      *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:       p.Connections,
		repo:     p.Repository,
		items:    p.Items,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   logger,
	}
}

// Update holds the optional fields of a product edit.
type Update struct {
	Name  *string
	Price *decimal.Decimal
}

// List returns the catalog. activeOnly hides products that cannot be ordered.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.List")
	defer span.End()

	products, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list products", errorbank.WithCause(err))
	}
	return products, nil
}

// Get retrieves a product by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Get", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	key := cache.ProductKey(id)
	if product, err := cache.GetJSON[entity.Product](ctx, s.cache, key); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("products cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err)
	}
	product := v.(*entity.Product)

	if err := cache.SetJSON(ctx, s.cache, key, product, s.cacheTTL); err != nil {
		s.logger.Warn("products cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	return product, nil
}

// Create adds an active product to the catalog.
func (s *Service) Create(ctx context.Context, actor identity.Actor, name string, price decimal.Decimal) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Create", trace.WithAttributes(attribute.String("product.name", name)))
	defer span.End()

	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	taken, err := s.repo.NameTaken(ctx, name, 0)
	if err != nil {
		return nil, errorbank.Internal("failed to check product name", errorbank.WithCause(err))
	}
	if taken {
		return nil, nameTaken(name)
	}

	now := time.Now().UTC()
	product := &entity.Product{
		Name:         name,
		Price:        price,
		IsActive:     true,
		CreatedByID:  actor.Ref(),
		ModifiedByID: actor.Ref(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, nameTaken(name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create product", errorbank.WithCause(err))
	}
	if actor.ID != 0 {
		product.CreatedBy = &entity.User{ID: actor.ID, Username: actor.Username, IsAdmin: actor.Admin}
	}

	s.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("name", name), zap.Int64("actor_id", actor.ID))
	return product, nil
}

// Update changes the name and/or price of a product. Existing order lines
// keep the price they were created with.
func (s *Service) Update(ctx context.Context, actor identity.Actor, id int64, upd Update) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	columns := []string{"modified_by_id", "updated_at"}
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if err := validateName(trimmed); err != nil {
			return nil, err
		}
		upd.Name = &trimmed
		columns = append(columns, "name")
	}
	if upd.Price != nil {
		if err := validatePrice(*upd.Price); err != nil {
			return nil, err
		}
		columns = append(columns, "price")
	}

	var updated *entity.Product
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		products := s.repo.WithTx(tx)
		product, err := products.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		if upd.Name != nil {
			taken, err := products.NameTaken(ctx, *upd.Name, product.ID)
			if err != nil {
				return errorbank.Internal("failed to check product name", errorbank.WithCause(err))
			}
			if taken {
				return nameTaken(*upd.Name)
			}
			product.Name = *upd.Name
		}
		if upd.Price != nil {
			product.Price = *upd.Price
		}
		product.ModifiedByID = actor.Ref()
		product.UpdatedAt = time.Now().UTC()

		if err := products.Update(ctx, product, columns...); err != nil {
			if database.IsUniqueViolation(err) {
				return nameTaken(product.Name)
			}
			return errorbank.Internal("failed to update product", errorbank.WithCause(err))
		}
		if updated, err = products.GetByID(ctx, id); err != nil {
			return notFoundOr(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update rejected")
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

// Activate makes a product orderable again.
func (s *Service) Activate(ctx context.Context, actor identity.Actor, id int64) (*entity.Product, error) {
	return s.setActive(ctx, actor, id, true)
}

// Deactivate withdraws a product from sale. Lines already on orders are kept.
func (s *Service) Deactivate(ctx context.Context, actor identity.Actor, id int64) (*entity.Product, error) {
	return s.setActive(ctx, actor, id, false)
}

// Delete removes a product. Order lines that referenced it keep their name
// and price snapshot and lose only the reference.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "ProductService.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	var detached int64
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		products := s.repo.WithTx(tx)
		product, err := products.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		detached, err = s.items.WithTx(tx).DetachProduct(ctx, product.ID, time.Now().UTC())
		if err != nil {
			return errorbank.Internal("failed to detach order items", errorbank.WithCause(err))
		}
		if err := products.Delete(ctx, product.ID); err != nil {
			return errorbank.Internal("failed to delete product", errorbank.WithCause(err))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete rejected")
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("product deleted", zap.Int64("product_id", id), zap.Int64("items_detached", detached), zap.Int64("actor_id", actor.ID))
	return nil
}

func (s *Service) setActive(ctx context.Context, actor identity.Actor, id int64, active bool) (*entity.Product, error) {
	ctx, span := serviceTracer.Start(ctx, "ProductService.SetActive", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Bool("product.active", active),
	))
	defer span.End()

	var updated *entity.Product
	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		products := s.repo.WithTx(tx)
		product, err := products.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err)
		}
		if active && product.IsActive {
			return errorbank.BadRequest("this product is already active", errorbank.WithCode(entity.CodeAlreadyActive))
		}
		if !active && !product.IsActive {
			return errorbank.BadRequest("this product is already deactivated", errorbank.WithCode(entity.CodeAlreadyInactive))
		}

		product.IsActive = active
		product.ModifiedByID = actor.Ref()
		product.UpdatedAt = time.Now().UTC()
		if err := products.Update(ctx, product, "is_active", "modified_by_id", "updated_at"); err != nil {
			return errorbank.Internal("failed to update product", errorbank.WithCause(err))
		}
		if updated, err = products.GetByID(ctx, id); err != nil {
			return notFoundOr(err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "activation rejected")
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logger.Info("product activation changed", zap.Int64("product_id", id), zap.Bool("active", active), zap.Int64("actor_id", actor.ID))
	return updated, nil
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.ProductKey(id)); err != nil {
		s.logger.Warn("products cache invalidation failed", zap.Int64("id", id), zap.Error(err))
	}
}

func validateName(name string) error {
	if name == "" {
		return errorbank.BadRequest("product name is required", errorbank.WithDetail("field", "name"))
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return errorbank.BadRequest("product name is too long", errorbank.WithDetail("max_length", maxNameLength))
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return errorbank.BadRequest("price cannot be a negative value", errorbank.WithDetail("field", "price"))
	}
	if !price.Equal(price.Truncate(priceScale)) {
		return errorbank.BadRequest("price accepts at most 3 decimal places", errorbank.WithDetail("field", "price"))
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return errorbank.BadRequest("price accepts at most 7 integer digits", errorbank.WithDetail("field", "price"))
	}
	return nil
}

func nameTaken(name string) error {
	return errorbank.Conflict("product with this name already exists",
		errorbank.WithCode("product_name_taken"),
		errorbank.WithDetail("name", name),
	)
}

func notFoundOr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errorbank.NotFound("product not found")
	}
	return errorbank.Internal("failed to load product", errorbank.WithCause(err))
}
