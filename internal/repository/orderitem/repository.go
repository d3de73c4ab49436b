package orderitem

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/repository/orderitem")

// ErrNotFound is returned when an order item is missing.
var ErrNotFound = errors.New("order item not found")

// Filter narrows item listings. Zero values mean no restriction.
type Filter struct {
	OrderID     int64
	CreatedByID int64
}

// Repository encapsulates read/write access for order items.
type Repository struct {
	writer bun.IDB
	reader bun.IDB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// WithTx returns a copy of the repository that reads and writes through tx.
func (r *Repository) WithTx(tx bun.IDB) *Repository {
	return &Repository{writer: tx, reader: tx}
}

// Create inserts a new item line.
func (r *Repository) Create(ctx context.Context, item *entity.OrderItem) error {
	if item == nil {
		return errors.New("nil order item")
	}
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.Create", trace.WithAttributes(attribute.Int64("order.id", item.OrderID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(item).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an item together with its order.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.GetByID", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	item := new(entity.OrderItem)
	err := r.reader.NewSelect().Model(item).
		Relation("Order").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err := finish(span, err); err != nil {
		return nil, err
	}
	return item, nil
}

// FindByOrderAndProduct returns the line of orderID that references productID.
func (r *Repository) FindByOrderAndProduct(ctx context.Context, orderID, productID int64) (*entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.FindByOrderAndProduct", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("product.id", productID),
	))
	defer span.End()

	item := new(entity.OrderItem)
	err := r.writer.NewSelect().Model(item).
		Where("order_id = ?", orderID).
		Where("product_id = ?", productID).
		Scan(ctx)
	if err := finish(span, err); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns items matching filter in insertion order.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.List", trace.WithAttributes(
		attribute.Int64("order.id", filter.OrderID),
		attribute.Int64("user.id", filter.CreatedByID),
	))
	defer span.End()

	items := make([]entity.OrderItem, 0)
	q := r.reader.NewSelect().Model(&items)
	if filter.OrderID > 0 {
		q = q.Where("?TableAlias.order_id = ?", filter.OrderID)
	}
	if filter.CreatedByID > 0 {
		// The subquery is formatted with its own model, so the outer alias is spelled out.
		owned := r.reader.NewSelect().Model((*entity.Order)(nil)).
			Column("id").
			Where("created_by_id = ?", filter.CreatedByID)
		q = q.Where("oi.order_id IN (?)", owned)
	}
	if err := q.OrderExpr("?TableAlias.id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// AddQuantity increments the quantity of an existing line in place.
func (r *Repository) AddQuantity(ctx context.Context, id int64, delta int, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.AddQuantity", trace.WithAttributes(
		attribute.Int64("order_item.id", id),
		attribute.Int("order_item.delta", delta),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.OrderItem)(nil)).
		Set("quantity = quantity + ?", delta).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// SetQuantity overwrites the quantity of a line.
func (r *Repository) SetQuantity(ctx context.Context, id int64, quantity int, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.SetQuantity", trace.WithAttributes(
		attribute.Int64("order_item.id", id),
		attribute.Int("order_item.quantity", quantity),
	))
	defer span.End()

	_, err := r.writer.NewUpdate().Model((*entity.OrderItem)(nil)).
		Set("quantity = ?", quantity).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// Delete removes a single line.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.Delete", trace.WithAttributes(attribute.Int64("order_item.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.OrderItem)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// DeleteByOrders removes every line belonging to orderIDs.
func (r *Repository) DeleteByOrders(ctx context.Context, orderIDs ...int64) error {
	if len(orderIDs) == 0 {
		return nil
	}
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.DeleteByOrders", trace.WithAttributes(attribute.Int64Slice("order.ids", orderIDs)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.OrderItem)(nil)).
		Where("order_id IN (?)", bun.In(orderIDs)).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// DetachProduct clears the product reference of every line pointing at
// productID. The snapshotted name and price stay on the line.
func (r *Repository) DetachProduct(ctx context.Context, productID int64, at time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderItemRepository.DetachProduct", trace.WithAttributes(attribute.Int64("product.id", productID)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.OrderItem)(nil)).
		Set("product_id = NULL").
		Set("updated_at = ?", at).
		Where("product_id = ?", productID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

func finish(span trace.Span, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return err
}
