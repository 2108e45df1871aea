// Package handler содержит HTTP-обработчики API магазина.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/middleware"
	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/service"
)

// Service описывает бизнес-логику, необходимую HTTP-слою.
type Service interface {
	Health(ctx context.Context) error

	RegisterUser(ctx context.Context, name, email, password string) (*model.User, bool, error)
	VerifyEmail(ctx context.Context, token string) (*model.User, bool, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)

	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)

	CreatePaymentIntent(ctx context.Context, userID int64, productIDs []int64) (*service.IntentResult, error)

	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	RedeemDownload(ctx context.Context, token string) (string, error)
	ListOrdersAdmin(ctx context.Context, status *model.OrderStatus, page, limit int) ([]model.Order, service.Pagination, error)
	SetOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	ListProductImages(ctx context.Context, productCode string) ([]model.Image, error)
	AddImage(ctx context.Context, img *model.Image) (*model.Image, error)
	RemoveImage(ctx context.Context, id int64) error
	UploadAsset(ctx context.Context, filename string, r io.Reader) (string, int64, error)
}

// Handler обрабатывает HTTP-запросы API магазина.
type Handler struct {
	service Service
	logger  *zap.Logger
	auth    *middleware.AuthMiddleware
}

// NewHandler создаёт новый обработчик HTTP-запросов.
func NewHandler(service Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		auth:    auth,
	}
}

// writeJSON сериализует ответ в JSON с указанным статусом.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response failed", zap.Error(err))
	}
}

// writeError отправляет JSON-ответ с сообщением об ошибке.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"message": message})
}

// decodeJSON разбирает тело запроса в указанную структуру.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// centsToDollars переводит сумму из минорных единиц в доллары для JSON-ответов.
func centsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

// Health проверяет готовность сервиса обрабатывать запросы.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "error",
			"timestamp": time.Now().UTC(),
			"database":  "disconnected",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"database":  "connected",
	})
}
