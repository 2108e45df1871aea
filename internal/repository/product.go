package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/digitalstore/internal/model"
)

const productColumns = `id, product_code, name, description, price, offer_price, category,
	 file_url, file_size, image_url, is_active, download_count, created_by, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.ProductCode, &p.Name, &p.Description, &p.PriceCents, &p.OfferPriceCents, &p.Category,
		&p.FileURL, &p.FileSize, &p.ImageURL, &p.IsActive, &p.DownloadCount, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductFilter описывает параметры выборки каталога.
// SortColumn должен быть заранее сведён к допустимому имени колонки.
type ProductFilter struct {
	Category   string
	Search     string
	SortColumn string
	Desc       bool
}

// CreateProduct создаёт новый товар каталога.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (product_code, name, description, price, offer_price, category,
		                       file_url, file_size, image_url, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+productColumns,
		p.ProductCode, p.Name, p.Description, p.PriceCents, p.OfferPriceCents, p.Category,
		p.FileURL, p.FileSize, p.ImageURL, p.IsActive, p.CreatedBy,
	)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrProductExists, p.ProductCode)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	return created, nil
}

// UpdateProduct перезаписывает изменяемые поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, offer_price = $5, category = $6,
		     file_url = $7, file_size = $8, image_url = $9, is_active = $10, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.PriceCents, p.OfferPriceCents, p.Category,
		p.FileURL, p.FileSize, p.ImageURL, p.IsActive,
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return updated, nil
}

// GetProductByID возвращает товар по идентификатору.
// При onlyActive неактивные товары считаются отсутствующими.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64, onlyActive bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if onlyActive {
		query += ` AND is_active = TRUE`
	}

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// GetProductByCode возвращает товар по внешнему коду.
func (r *PostgresRepository) GetProductByCode(ctx context.Context, code string, onlyActive bool) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE product_code = $1`
	if onlyActive {
		query += ` AND is_active = TRUE`
	}

	p, err := scanProduct(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by code: %w", err)
	}

	return p, nil
}

// GetActiveProductsByIDs возвращает активные товары с указанными идентификаторами.
func (r *PostgresRepository) GetActiveProductsByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1) AND is_active = TRUE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select products by ids: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// ListProducts возвращает активные товары каталога с учётом фильтров и сортировки.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE`
	args := []any{}

	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d)`, len(args), len(args))
	}

	sortColumn := f.SortColumn
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	direction := "ASC"
	if f.Desc {
		direction = "DESC"
	}
	query += fmt.Sprintf(` ORDER BY %s %s`, sortColumn, direction)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
