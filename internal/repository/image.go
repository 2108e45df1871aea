package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/digitalstore/internal/model"
)

const imageColumns = `id, product_code, image_url, image_type, alt_text, is_active, sort_order, created_at, updated_at`

func scanImage(row pgx.Row) (*model.Image, error) {
	var img model.Image
	err := row.Scan(
		&img.ID, &img.ProductCode, &img.ImageURL, &img.ImageType, &img.AltText,
		&img.IsActive, &img.SortOrder, &img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// ListImagesByProduct возвращает активные изображения товара в порядке показа.
func (r *PostgresRepository) ListImagesByProduct(ctx context.Context, productCode string) ([]model.Image, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+imageColumns+`
		 FROM images
		 WHERE product_code = $1 AND is_active = TRUE
		 ORDER BY sort_order, created_at`,
		productCode,
	)
	if err != nil {
		return nil, fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, *img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return images, nil
}

// CreateImage прикрепляет изображение к товару.
func (r *PostgresRepository) CreateImage(ctx context.Context, img *model.Image) (*model.Image, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO images (product_code, image_url, image_type, alt_text, sort_order)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+imageColumns,
		img.ProductCode, img.ImageURL, img.ImageType, img.AltText, img.SortOrder,
	)

	created, err := scanImage(row)
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	return created, nil
}

// SoftDeleteImage помечает изображение неактивным; запись сохраняется.
func (r *PostgresRepository) SoftDeleteImage(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE images SET is_active = FALSE, updated_at = now() WHERE id = $1 AND is_active = TRUE`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete image: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrImageNotFound
	}

	return nil
}
