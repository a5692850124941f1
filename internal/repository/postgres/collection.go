package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DylanCerv/sublimacion/internal/domain"
	"github.com/DylanCerv/sublimacion/pkg/database"
	apperrors "github.com/DylanCerv/sublimacion/pkg/errors"
)

const collectionColumns = `id, name, slug, description, image_url, created_at, updated_at`

// CollectionRepository implements repository.CollectionRepository using PostgreSQL.
type CollectionRepository struct {
	db database.DBTX
}

// NewCollectionRepository creates a new PostgreSQL-backed collection repository.
func NewCollectionRepository(db database.DBTX) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Create inserts a new collection. Names and slugs are unique.
func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection) (err error) {
	query := `
		INSERT INTO collections (id, name, slug, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "collections", "insert", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("collection %q already exists", c.Name))
		}
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

// GetByID retrieves a collection by its ID.
func (r *CollectionRepository) GetByID(ctx context.Context, id string) (_ *domain.Collection, err error) {
	query := `SELECT ` + collectionColumns + ` FROM collections WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "collections", "get", query)
	defer func() { end(err) }()

	var c domain.Collection
	err = r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("collection", id)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &c, nil
}

// List returns all collections in creation order.
func (r *CollectionRepository) List(ctx context.Context) (_ []domain.Collection, err error) {
	query := `SELECT ` + collectionColumns + ` FROM collections ORDER BY position ASC`

	ctx, end := database.TraceQuery(ctx, "collections", "list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	collections := []domain.Collection{}
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection rows: %w", err)
	}
	return collections, nil
}

// Update modifies an existing collection.
func (r *CollectionRepository) Update(ctx context.Context, c *domain.Collection) (err error) {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE collections
		SET name = $1, slug = $2, description = $3, image_url = $4, updated_at = $5
		WHERE id = $6`

	ctx, end := database.TraceQuery(ctx, "collections", "update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, c.Name, c.Slug, c.Description, c.ImageURL, c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("collection %q already exists", c.Name))
		}
		return fmt.Errorf("update collection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("collection", c.ID)
	}
	return nil
}

// Delete removes a collection by its ID. The row is only deleted while no
// product references the collection's name, checked in the same statement;
// otherwise a conflict carrying the product count is returned.
func (r *CollectionRepository) Delete(ctx context.Context, id string) (err error) {
	query := `
		DELETE FROM collections c
		WHERE c.id = $1
		  AND NOT EXISTS (SELECT 1 FROM products p WHERE p.collection = c.name)`

	ctx, end := database.TraceQuery(ctx, "collections", "delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return r.deleteRefused(ctx, id)
	}
	return nil
}

// deleteRefused explains why a conditional delete removed nothing.
func (r *CollectionRepository) deleteRefused(ctx context.Context, id string) error {
	query := `
		SELECT c.name, (SELECT COUNT(*) FROM products p WHERE p.collection = c.name)
		FROM collections c
		WHERE c.id = $1`

	var (
		name  string
		count int
	)
	if err := r.db.QueryRow(ctx, query, id).Scan(&name, &count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("collection", id)
		}
		return fmt.Errorf("count products in collection: %w", err)
	}
	if count == 0 {
		return apperrors.Conflict(fmt.Sprintf("collection %q changed while being deleted, retry", name))
	}
	return apperrors.CollectionInUse(name, count)
}
