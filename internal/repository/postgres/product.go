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

const productColumns = `id, name, collection, base_price, discount_percentage, images, description,
	sizes, colors, tags, installments, installment_surcharge, free_shipping_threshold,
	featured, position, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product and reads back its assigned position.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, collection, base_price, discount_percentage, images, description,
			sizes, colors, tags, installments, installment_surcharge, free_shipping_threshold,
			featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING position`

	ctx, end := database.TraceQuery(ctx, "products", "insert", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Collection,
		p.BasePrice,
		p.DiscountPercentage,
		p.Images,
		p.Description,
		p.Sizes,
		p.Colors,
		nonNil(p.Tags),
		p.Installments,
		p.InstallmentSurcharge,
		p.FreeShippingThreshold,
		p.Featured,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.Position)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products", "get", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns all products in catalog order.
func (r *ProductRepository) List(ctx context.Context) (_ []domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY featured DESC, position ASC`

	ctx, end := database.TraceQuery(ctx, "products", "list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Update modifies an existing product. Position and CreatedAt are kept.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, collection = $2, base_price = $3, discount_percentage = $4, images = $5,
		    description = $6, sizes = $7, colors = $8, tags = $9, installments = $10,
		    installment_surcharge = $11, free_shipping_threshold = $12, featured = $13, updated_at = $14
		WHERE id = $15`

	ctx, end := database.TraceQuery(ctx, "products", "update", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query,
		p.Name,
		p.Collection,
		p.BasePrice,
		p.DiscountPercentage,
		p.Images,
		p.Description,
		p.Sizes,
		p.Colors,
		nonNil(p.Tags),
		p.Installments,
		p.InstallmentSurcharge,
		p.FreeShippingThreshold,
		p.Featured,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products", "delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// CountByCollection counts the products referencing a collection name.
func (r *ProductRepository) CountByCollection(ctx context.Context, collection string) (n int, err error) {
	query := `SELECT COUNT(*) FROM products WHERE collection = $1`

	ctx, end := database.TraceQuery(ctx, "products", "count", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products in collection: %w", err)
	}
	return n, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Collection,
		&p.BasePrice,
		&p.DiscountPercentage,
		&p.Images,
		&p.Description,
		&p.Sizes,
		&p.Colors,
		&p.Tags,
		&p.Installments,
		&p.InstallmentSurcharge,
		&p.FreeShippingThreshold,
		&p.Featured,
		&p.Position,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
