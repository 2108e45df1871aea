package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/payment"
	"github.com/mmeshcher/digitalstore/internal/repository"
)

// IntentResult описывает результат создания платёжного намерения.
type IntentResult struct {
	ClientSecret string
	AmountCents  int64
	Products     []model.Product
}

// CreateOrderInput описывает параметры создания заказа.
type CreateOrderInput struct {
	UserID        int64
	ProductID     int64
	PaymentID     string
	AmountCents   int64
	BillingEmail  string
	PaymentMethod string
}

// Pagination описывает страницу административного списка заказов.
type Pagination struct {
	Current int
	Total   int
	HasNext bool
	HasPrev bool
}

// CreatePaymentIntent создаёт платёжное намерение на сумму указанных товаров.
// Повторная покупка уже приобретённого товара отклоняется до обращения к шлюзу.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID int64, productIDs []int64) (*IntentResult, error) {
	if s.gateway == nil {
		return nil, ErrGatewayUnavailable
	}

	products, err := s.repo.GetActiveProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(products) != len(lo.Uniq(productIDs)) {
		return nil, repository.ErrProductNotFound
	}

	purchased, err := s.repo.HasAnyCompletedOrder(ctx, userID, productIDs)
	if err != nil {
		return nil, err
	}
	if purchased {
		return nil, repository.ErrAlreadyPurchased
	}

	total := lo.SumBy(products, func(p model.Product) int64 { return p.EffectivePriceCents() })

	metadata := map[string]string{
		"userId": strconv.FormatInt(userID, 10),
		"productIds": strings.Join(lo.Map(products, func(p model.Product, _ int) string {
			return strconv.FormatInt(p.ID, 10)
		}), ","),
		"productNames": strings.Join(lo.Map(products, func(p model.Product, _ int) string {
			return p.Name
		}), ", "),
	}

	intent, err := s.gateway.CreateIntent(ctx, total, "usd", metadata)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PaymentIntents.Inc()
	}

	return &IntentResult{
		ClientSecret: intent.ClientSecret,
		AmountCents:  total,
		Products:     products,
	}, nil
}

// CreateOrder создаёт завершённый заказ на цифровой товар и выдаёт токен загрузки.
// Если платёжный шлюз сконфигурирован, платёж перед записью сверяется со шлюзом.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	product, err := s.repo.GetProductByID(ctx, in.ProductID, true)
	if err != nil {
		return nil, err
	}

	if s.gateway != nil {
		intent, err := s.gateway.GetIntent(ctx, in.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("verify payment: %w", err)
		}
		if intent.Status != payment.StatusSucceeded || intent.Amount != in.AmountCents {
			return nil, ErrPaymentNotConfirmed
		}
	}

	token, err := generateDownloadToken()
	if err != nil {
		return nil, fmt.Errorf("generate download token: %w", err)
	}

	order := &model.Order{
		UserID:        in.UserID,
		ProductID:     product.ID,
		PaymentID:     in.PaymentID,
		AmountCents:   in.AmountCents,
		Currency:      "usd",
		Status:        model.OrderStatusCompleted,
		DownloadToken: &token,
		BillingEmail:  in.BillingEmail,
		PaymentMethod: in.PaymentMethod,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}

	return created, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

// RedeemDownload гасит токен загрузки и возвращает URL файла товара.
// Токен одноразовый: повторное гашение возвращает repository.ErrTokenAlreadyUsed.
func (s *Service) RedeemDownload(ctx context.Context, token string) (string, error) {
	fileURL, err := s.repo.RedeemDownloadToken(ctx, token)
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.DownloadsRedeemed.Inc()
	}

	return fileURL, nil
}

// ListOrdersAdmin возвращает страницу заказов всех пользователей.
func (s *Service) ListOrdersAdmin(ctx context.Context, status *model.OrderStatus, page, limit int) ([]model.Order, Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	orders, total, err := s.repo.ListOrders(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, Pagination{}, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	p := Pagination{
		Current: page,
		Total:   totalPages,
		HasNext: page < totalPages,
		HasPrev: page > 1,
	}

	return orders, p, nil
}

// SetOrderStatus устанавливает статус заказа. Статус перезаписывается
// без проверки допустимости перехода, любые правила переходов
// должны добавляться здесь.
func (s *Service) SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return s.repo.UpdateOrderStatus(ctx, orderID, status)
}

// generateDownloadToken возвращает криптографически случайный токен загрузки.
func generateDownloadToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
