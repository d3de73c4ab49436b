package product

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

var repoTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/repository/product")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

// Repository encapsulates read/write access for products.
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

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *entity.Product) error {
	if product == nil {
		return errors.New("nil product")
	}
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Create", trace.WithAttributes(attribute.String("product.name", product.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(product).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a product and its creator.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.GetByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).
		Relation("CreatedBy").
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err := finish(span, err); err != nil {
		return nil, err
	}
	return product, nil
}

// GetForUpdate fetches the bare product row and locks it until the
// surrounding transaction ends.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.GetForUpdate", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	q := r.writer.NewSelect().Model(product).Where("id = ?", id)
	if err := finish(span, database.ForUpdate(r.writer, q).Scan(ctx)); err != nil {
		return nil, err
	}
	return product, nil
}

// List returns products ordered by name. activeOnly restricts the result to
// products that can currently be ordered.
func (r *Repository) List(ctx context.Context, activeOnly bool) ([]entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.List", trace.WithAttributes(attribute.Bool("product.active_only", activeOnly)))
	defer span.End()

	var products []entity.Product
	q := r.reader.NewSelect().Model(&products).Relation("CreatedBy")
	if activeOnly {
		q = q.Where("?TableAlias.is_active = ?", true)
	}
	if err := q.OrderExpr("?TableAlias.name ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return products, nil
}

// NameTaken reports whether another product already uses name.
func (r *Repository) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.NameTaken", trace.WithAttributes(attribute.String("product.name", name)))
	defer span.End()

	q := r.writer.NewSelect().Model((*entity.Product)(nil)).Where("name = ?", name)
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

// Update writes the listed columns of product.
func (r *Repository) Update(ctx context.Context, product *entity.Product, columns ...string) error {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Update", trace.WithAttributes(attribute.Int64("product.id", product.ID)))
	defer span.End()

	q := r.writer.NewUpdate().Model(product).WherePK()
	if len(columns) > 0 {
		q = q.Column(columns...)
	} else {
		q = q.ExcludeColumn("id", "created_at", "created_by_id")
	}
	if _, err := q.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

// Delete removes a product row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "ProductRepository.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.Product)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
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
