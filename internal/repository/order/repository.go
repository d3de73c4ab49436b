package order

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

var repoTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders.
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

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.Int64("table.id", order.TableID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order with its table and creator.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).
		Relation("Table").
		Relation("CreatedBy").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err := r.finish(span, err); err != nil {
		return nil, err
	}
	return order, nil
}

// GetForUpdate fetches the bare order row and locks it until the surrounding
// transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetForUpdate", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	q := r.writer.NewSelect().Model(order).Where("id = ?", id)
	if err := r.finish(span, database.ForUpdate(r.writer, q).Scan(ctx)); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns every order, newest first.
func (r *Repository) List(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []entity.Order
	err := r.reader.NewSelect().Model(&orders).
		Relation("Table").
		Relation("CreatedBy").
		OrderExpr("?TableAlias.created_at DESC, ?TableAlias.id DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ExistsActiveForTable reports whether tableID has a non-terminal order.
func (r *Repository) ExistsActiveForTable(ctx context.Context, tableID int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ExistsActiveForTable", trace.WithAttributes(attribute.Int64("table.id", tableID)))
	defer span.End()

	exists, err := r.writer.NewSelect().Model((*entity.Order)(nil)).
		Where("table_id = ?", tableID).
		Where("status NOT IN (?)", bun.In(entity.TerminalStatuses())).
		Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return exists, err
}

// IDsByTable lists the ids of every order placed on tableID.
func (r *Repository) IDsByTable(ctx context.Context, tableID int64) ([]int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.IDsByTable", trace.WithAttributes(attribute.Int64("table.id", tableID)))
	defer span.End()

	var ids []int64
	err := r.writer.NewSelect().Model((*entity.Order)(nil)).
		Column("id").
		Where("table_id = ?", tableID).
		Scan(ctx, &ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return ids, nil
}

// UpdateStatus moves the order from one status to another. The update only
// applies while the stored status still equals from; the number of rows
// changed is returned so callers can detect a lost race.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to entity.OrderStatus, at time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes an order row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// DeleteByTable removes every order placed on tableID.
func (r *Repository) DeleteByTable(ctx context.Context, tableID int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.DeleteByTable", trace.WithAttributes(attribute.Int64("table.id", tableID)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Order)(nil)).Where("table_id = ?", tableID).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

func (r *Repository) finish(span trace.Span, err error) error {
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
