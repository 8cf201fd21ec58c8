package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/cart"
	"github.com/example/storefront/internal/category"
)

// ConnectPostgres opens and pings a PostgreSQL connection.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Postgres serves the catalog from PostgreSQL tables maintained by the
// admin back-office.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Product(ctx context.Context, id string) (*cart.Product, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, stock, COALESCE(image_url, ''), category_ids
		FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (p *Postgres) Products(ctx context.Context) ([]cart.Product, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, price, stock, COALESCE(image_url, ''), category_ids
		FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []cart.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*cart.Product, error) {
	var product cart.Product
	var categoryIDs pq.StringArray
	err := row.Scan(&product.ID, &product.Name, &product.Description,
		&product.Price, &product.Stock, &product.ImageURL, &categoryIDs)
	if err != nil {
		return nil, err
	}
	product.CategoryIDs = []string(categoryIDs)
	return &product, nil
}

func (p *Postgres) Coupon(ctx context.Context, code string) (*cart.Coupon, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT code, discount_type, discount_value, max_discount, min_order_value,
		       COALESCE(usage_limit, 0), COALESCE(per_user_limit, 0),
		       valid_from, expires_at, category_ids
		FROM coupons WHERE code = $1`, cart.NormalizeCouponCode(code))

	var coupon cart.Coupon
	var maxDiscount, minOrder decimal.NullDecimal
	var validFrom, expiresAt time.Time
	var categoryIDs pq.StringArray
	err := row.Scan(&coupon.Code, &coupon.DiscountType, &coupon.DiscountValue,
		&maxDiscount, &minOrder, &coupon.UsageLimit, &coupon.PerUserLimit,
		&validFrom, &expiresAt, &categoryIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}

	if maxDiscount.Valid {
		coupon.MaxDiscount = &maxDiscount.Decimal
	}
	if minOrder.Valid {
		coupon.MinOrderValue = &minOrder.Decimal
	}
	coupon.ValidFrom = validFrom
	coupon.ExpiresAt = expiresAt
	coupon.CategoryIDs = []string(categoryIDs)
	return &coupon, nil
}

func (p *Postgres) Categories(ctx context.Context) ([]category.Category, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, slug, COALESCE(description, ''), parent_id, sort_order, is_active
		FROM categories ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []category.Category
	for rows.Next() {
		var c category.Category
		var parentID sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description,
			&parentID, &c.SortOrder, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if parentID.Valid && parentID.String != "" {
			c.Parent = &category.ParentRef{ID: parentID.String}
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
