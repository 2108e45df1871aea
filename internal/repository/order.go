package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/digitalstore/internal/model"
)

// orderColumns перечисляет колонки заказа; выдаваемый токен скрывается после погашения.
const orderColumns = `o.id, o.user_id, o.product_id, o.payment_id, o.amount, o.currency, o.status,
	 CASE WHEN o.download_redeemed_at IS NULL THEN o.download_token END,
	 o.download_redeemed_at, o.download_count, o.last_downloaded,
	 o.payment_method, o.billing_email, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, dest *model.Order) error {
	return row.Scan(
		&dest.ID, &dest.UserID, &dest.ProductID, &dest.PaymentID, &dest.AmountCents, &dest.Currency, &dest.Status,
		&dest.DownloadToken, &dest.DownloadRedeemedAt, &dest.DownloadCount, &dest.LastDownloaded,
		&dest.PaymentMethod, &dest.BillingEmail, &dest.CreatedAt, &dest.UpdatedAt,
	)
}

// CreateOrder сохраняет завершённый заказ и обновляет агрегаты покупателя и товара
// в одной транзакции. Нарушение частичного уникального индекса по паре
// (покупатель, товар) означает повторную покупку.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error) {
	created := &model.Order{}

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		row := tx.QueryRow(ctx,
			`INSERT INTO orders AS o (user_id, product_id, payment_id, amount, currency, status,
			                          download_token, payment_method, billing_email)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING `+orderColumns,
			o.UserID, o.ProductID, o.PaymentID, o.AmountCents, o.Currency, o.Status,
			o.DownloadToken, o.PaymentMethod, o.BillingEmail,
		)
		if err := scanOrder(row, created); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert order: %w", ErrAlreadyPurchased)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products SET download_count = download_count + 1, updated_at = now() WHERE id = $1`,
			o.ProductID,
		); err != nil {
			return fmt.Errorf("increment product downloads: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users
			 SET total_purchases = total_purchases + 1,
			     total_spent = total_spent + $2,
			     updated_at = now()
			 WHERE id = $1`,
			o.UserID, o.AmountCents,
		); err != nil {
			return fmt.Errorf("increment user totals: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// HasCompletedOrder сообщает, есть ли у покупателя завершённый заказ на товар.
func (r *PostgresRepository) HasCompletedOrder(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM orders WHERE user_id = $1 AND product_id = $2 AND status = $3
		 )`,
		userID, productID, string(model.OrderStatusCompleted),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed order: %w", err)
	}
	return exists, nil
}

// HasAnyCompletedOrder сообщает, куплен ли хотя бы один товар из списка.
func (r *PostgresRepository) HasAnyCompletedOrder(ctx context.Context, userID int64, productIDs []int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM orders WHERE user_id = $1 AND product_id = ANY($2) AND status = $3
		 )`,
		userID, productIDs, string(model.OrderStatusCompleted),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completed orders: %w", err)
	}
	return exists, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми, с данными о товарах.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+`,
		        p.id, p.product_code, p.name, p.description, p.price, p.offer_price, p.category,
		        p.file_url, p.file_size, p.image_url, p.is_active, p.download_count, p.created_by,
		        p.created_at, p.updated_at
		 FROM orders o
		 JOIN products p ON p.id = o.product_id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var p model.Product
		err := rows.Scan(
			&o.ID, &o.UserID, &o.ProductID, &o.PaymentID, &o.AmountCents, &o.Currency, &o.Status,
			&o.DownloadToken, &o.DownloadRedeemedAt, &o.DownloadCount, &o.LastDownloaded,
			&o.PaymentMethod, &o.BillingEmail, &o.CreatedAt, &o.UpdatedAt,
			&p.ID, &p.ProductCode, &p.Name, &p.Description, &p.PriceCents, &p.OfferPriceCents, &p.Category,
			&p.FileURL, &p.FileSize, &p.ImageURL, &p.IsActive, &p.DownloadCount, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Product = &p
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetOrderByID возвращает заказ с данными о товаре и покупателе.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	var p model.Product
	var u model.User

	err := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+`,
		        p.id, p.product_code, p.name, p.description, p.price, p.offer_price, p.category,
		        p.file_url, p.file_size, p.image_url, p.is_active, p.download_count, p.created_by,
		        p.created_at, p.updated_at,
		        u.id, u.name, u.email, u.role
		 FROM orders o
		 JOIN products p ON p.id = o.product_id
		 JOIN users u ON u.id = o.user_id
		 WHERE o.id = $1`,
		id,
	).Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.PaymentID, &o.AmountCents, &o.Currency, &o.Status,
		&o.DownloadToken, &o.DownloadRedeemedAt, &o.DownloadCount, &o.LastDownloaded,
		&o.PaymentMethod, &o.BillingEmail, &o.CreatedAt, &o.UpdatedAt,
		&p.ID, &p.ProductCode, &p.Name, &p.Description, &p.PriceCents, &p.OfferPriceCents, &p.Category,
		&p.FileURL, &p.FileSize, &p.ImageURL, &p.IsActive, &p.DownloadCount, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt,
		&u.ID, &u.Name, &u.Email, &u.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	o.Product = &p
	o.Buyer = &u
	return &o, nil
}

// RedeemDownloadToken погашает токен скачивания одним условным обновлением:
// заказ должен быть завершён, а токен ещё не использован. Адрес файла берётся
// из текущей записи товара в том же запросе. Возвращает URL файла для редиректа.
func (r *PostgresRepository) RedeemDownloadToken(ctx context.Context, token string) (string, error) {
	var fileURL string

	err := r.withRetry(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx,
			`UPDATE orders o
			 SET download_count = o.download_count + 1,
			     last_downloaded = now(),
			     download_redeemed_at = now(),
			     updated_at = now()
			 FROM products p
			 WHERE o.download_token = $1
			   AND o.status = $2
			   AND o.download_redeemed_at IS NULL
			   AND p.id = o.product_id
			 RETURNING p.file_url`,
			token, string(model.OrderStatusCompleted),
		).Scan(&fileURL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("redeem token: %w", err)
		}

		// Обновление не сработало: выясняем причину отказа.
		var status string
		var redeemed bool
		err = r.pool.QueryRow(ctx,
			`SELECT status, download_redeemed_at IS NOT NULL FROM orders WHERE download_token = $1`,
			token,
		).Scan(&status, &redeemed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTokenNotFound
			}
			return fmt.Errorf("classify token: %w", err)
		}

		if model.OrderStatus(status) != model.OrderStatusCompleted {
			return ErrOrderNotCompleted
		}
		return ErrTokenAlreadyUsed
	})
	if err != nil {
		return "", err
	}

	return fileURL, nil
}

// ListOrders возвращает страницу заказов для административного списка и общее число заказов.
func (r *PostgresRepository) ListOrders(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.Order, int64, error) {
	countQuery := `SELECT COUNT(*) FROM orders`
	listQuery := `SELECT ` + orderColumns + `,
	        p.id, p.product_code, p.name, p.description, p.price, p.offer_price, p.category,
	        p.file_url, p.file_size, p.image_url, p.is_active, p.download_count, p.created_by,
	        p.created_at, p.updated_at,
	        u.id, u.name, u.email, u.role
	 FROM orders o
	 JOIN products p ON p.id = o.product_id
	 JOIN users u ON u.id = o.user_id`

	countArgs := []any{}
	listArgs := []any{}

	if status != nil {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE o.status = $1`
		countArgs = append(countArgs, string(*status))
		listArgs = append(listArgs, string(*status))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	listArgs = append(listArgs, limit)
	listQuery += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d`, len(listArgs))
	listArgs = append(listArgs, offset)
	listQuery += fmt.Sprintf(` OFFSET $%d`, len(listArgs))

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		var p model.Product
		var u model.User
		err := rows.Scan(
			&o.ID, &o.UserID, &o.ProductID, &o.PaymentID, &o.AmountCents, &o.Currency, &o.Status,
			&o.DownloadToken, &o.DownloadRedeemedAt, &o.DownloadCount, &o.LastDownloaded,
			&o.PaymentMethod, &o.BillingEmail, &o.CreatedAt, &o.UpdatedAt,
			&p.ID, &p.ProductCode, &p.Name, &p.Description, &p.PriceCents, &p.OfferPriceCents, &p.Category,
			&p.FileURL, &p.FileSize, &p.ImageURL, &p.IsActive, &p.DownloadCount, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt,
			&u.ID, &u.Name, &u.Email, &u.Role,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		o.Product = &p
		o.Buyer = &u
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return orders, total, nil
}

// UpdateOrderStatus перезаписывает статус заказа без проверки допустимости перехода.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		orderID, string(status),
	)
	if err != nil {
		// Перевод второго заказа той же пары в completed упирается в частичный
		// уникальный индекс.
		if isUniqueViolation(err) {
			return fmt.Errorf("update order status: %w", ErrAlreadyPurchased)
		}
		return fmt.Errorf("update order status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}
