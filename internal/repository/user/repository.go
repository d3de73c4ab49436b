package user

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

var repoTracer = otel.Tracer("github.com/Rockthor1106/restaurant-management-api/repository/user")

// ErrNotFound is returned when a user is missing.
var ErrNotFound = errors.New("user not found")

// Repository encapsulates read/write access for users.
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

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	ctx, span := repoTracer.Start(ctx, "UserRepository.Create", trace.WithAttributes(attribute.String("user.username", user.Username)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches a user by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	user := new(entity.User)
	if err := finish(span, r.reader.NewSelect().Model(user).Where("id = ?", id).Scan(ctx)); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByUsername fetches a user by login name from the primary.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.GetByUsername", trace.WithAttributes(attribute.String("user.username", username)))
	defer span.End()

	user := new(entity.User)
	if err := finish(span, r.writer.NewSelect().Model(user).Where("username = ?", username).Scan(ctx)); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns every user ordered by username.
func (r *Repository) List(ctx context.Context) ([]entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.List")
	defer span.End()

	var users []entity.User
	if err := r.reader.NewSelect().Model(&users).OrderExpr("username ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return users, nil
}

// Exists reports whether username is already registered.
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "UserRepository.Exists", trace.WithAttributes(attribute.String("user.username", username)))
	defer span.End()

	exists, err := r.writer.NewSelect().Model((*entity.User)(nil)).Where("username = ?", username).Exists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return exists, err
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
