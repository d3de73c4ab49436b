package table

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Rockthor1106/restaurant-management-api/internal/database"
	"github.com/Rockthor1106/restaurant-management-api/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/repository/table")

// ErrNotFound is returned when a table is missing.
var ErrNotFound = errors.New("table not found")

// Repository encapsulates read/write access for tables.
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

// Create inserts a new table.
func (r *Repository) Create(ctx context.Context, table *entity.Table) error {
	if table == nil {
		return errors.New("nil table")
	}
	ctx, span := repoTracer.Start(ctx, "TableRepository.Create", trace.WithAttributes(attribute.Int("table.number", table.Number)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(table).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a table along with its has_active_order flag.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.GetByID", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table := new(entity.Table)
	err := r.selectWithActivity(r.reader, table).Where("?TableAlias.id = ?", id).Scan(ctx)
	if err := finish(span, err); err != nil {
		return nil, err
	}
	return table, nil
}

// GetForUpdate fetches the bare table row and locks it until the surrounding
// transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.GetForUpdate", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	table := new(entity.Table)
	q := r.writer.NewSelect().Model(table).Where("id = ?", id)
	if err := finish(span, database.ForUpdate(r.writer, q).Scan(ctx)); err != nil {
		return nil, err
	}
	return table, nil
}

// List returns every table ordered by number.
func (r *Repository) List(ctx context.Context) ([]entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.List")
	defer span.End()

	var tables []entity.Table
	err := r.selectWithActivity(r.reader, &tables).OrderExpr("?TableAlias.number ASC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return tables, nil
}

// ListAvailable returns active tables with no open order.
func (r *Repository) ListAvailable(ctx context.Context) ([]entity.Table, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.ListAvailable")
	defer span.End()

	var tables []entity.Table
	err := r.selectWithActivity(r.reader, &tables).
		Where("?TableAlias.is_active = ?", true).
		Where("NOT EXISTS (?)", activeOrders(r.reader)).
		OrderExpr("?TableAlias.number ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return tables, nil
}

// NumberTaken reports whether another table already uses number.
func (r *Repository) NumberTaken(ctx context.Context, number int, excludeID int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "TableRepository.NumberTaken", trace.WithAttributes(attribute.Int("table.number", number)))
	defer span.End()

	q := r.writer.NewSelect().Model((*entity.Table)(nil)).Where("number = ?", number)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return exists, err
}

// Update writes the listed columns of table.
func (r *Repository) Update(ctx context.Context, table *entity.Table, columns ...string) error {
	ctx, span := repoTracer.Start(ctx, "TableRepository.Update", trace.WithAttributes(attribute.Int64("table.id", table.ID)))
	defer span.End()

	q := r.writer.NewUpdate().Model(table).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	} else {
		q = q.ExcludeColumn("id", "created_at")
	}
	_, err := q.Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
	}
	return err
}

// Delete removes a table row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "TableRepository.Delete", trace.WithAttributes(attribute.Int64("table.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Table)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

func (r *Repository) selectWithActivity(db bun.IDB, model any) *bun.SelectQuery {
	return db.NewSelect().Model(model).
		ColumnExpr("?TableAlias.*").
		ColumnExpr("EXISTS (?) AS has_active_order", activeOrders(db))
}

// activeOrders selects the open orders of the table aliased t in the outer query.
func activeOrders(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().Model((*entity.Order)(nil)).
		ColumnExpr("1").
		Where("o.table_id = t.id").
		Where("o.status NOT IN (?)", bun.In(entity.TerminalStatuses()))
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
