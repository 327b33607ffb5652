package repository

import (
	"context"
	"database/sql"
	"errors"

	"marketplace/internal/domain"
)

const productColumns = "id, name, brand, category, price, created_at, updated_at"

type postgresProductRepository struct {
	db *sql.DB
}

// NewPostgresProductRepository creates a catalog store backed by the
// products table. Index maintenance is the database's concern here; the
// contract is identical to the in-memory backend.
func NewPostgresProductRepository(db *sql.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

// Save inserts a new product using parameterized queries; the identity and
// both timestamps come back from the database.
func (r *postgresProductRepository) Save(ctx context.Context, candidate *domain.Product) (*domain.Product, error) {
	if candidate.ID != 0 {
		return nil, ErrIdentityNotAllowed
	}

	query := `
		INSERT INTO products (name, brand, category, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		RETURNING ` + productColumns

	saved, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		candidate.Name,
		candidate.Brand,
		candidate.Category,
		candidate.Price,
	))
	if err != nil {
		return nil, wrapBackend("save product", err)
	}
	return saved, nil
}

// Update replaces the stored fields of an existing product and bumps
// updated_at.
func (r *postgresProductRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		UPDATE products
		SET name = $2, brand = $3, category = $4, price = $5,
		    updated_at = GREATEST(now(), updated_at + interval '1 microsecond')
		WHERE id = $1
		RETURNING ` + productColumns

	updated, err := scanProduct(r.db.QueryRowContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Brand,
		product.Category,
		product.Price,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, wrapBackend("update product", err)
	}
	return updated, nil
}

// DeleteByID removes a product and reports whether a row existed.
func (r *postgresProductRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, wrapBackend("delete product", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, wrapBackend("delete product", err)
	}
	return rows > 0, nil
}

func (r *postgresProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, wrapBackend("find product by id", err)
	}
	return product, nil
}

func (r *postgresProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	return r.queryProducts(ctx, "list products", query)
}

func (r *postgresProductRepository) FindByBrand(ctx context.Context, brand string) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE LOWER(TRIM(brand)) = LOWER(TRIM($1))
		ORDER BY id
	`
	return r.queryProducts(ctx, "find products by brand", query, brand)
}

func (r *postgresProductRepository) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE LOWER(TRIM(category)) = LOWER(TRIM($1))
		ORDER BY id
	`
	return r.queryProducts(ctx, "find products by category", query, category)
}

func (r *postgresProductRepository) FindByPriceRange(ctx context.Context, min, max float64) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE price BETWEEN $1 AND $2
		ORDER BY id
	`
	return r.queryProducts(ctx, "find products by price range", query, min, max)
}

func (r *postgresProductRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, wrapBackend("check product exists", err)
	}
	return exists, nil
}

func (r *postgresProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, wrapBackend("count products", err)
	}
	return count, nil
}

func (r *postgresProductRepository) queryProducts(ctx context.Context, op, query string, args ...any) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapBackend(op, err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, wrapBackend(op, err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapBackend(op, err)
	}
	return products, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Brand,
		&product.Category,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
