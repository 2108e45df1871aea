package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/middleware"
	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/service"
)

type createOrderRequest struct {
	ProductID     int64   `json:"productId"`
	PaymentID     string  `json:"paymentId"`
	Amount        float64 `json:"amount"`
	BillingEmail  string  `json:"billingEmail"`
	PaymentMethod string  `json:"paymentMethod"`
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

type orderProductResponse struct {
	ProductCode string `json:"productCode"`
	Name        string `json:"name"`
	ImageURL    string `json:"imageUrl"`
}

type orderBuyerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type orderResponse struct {
	ID            int64                 `json:"id"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	DownloadToken *string               `json:"downloadToken"`
	DownloadCount int64                 `json:"downloadCount"`
	CreatedAt     time.Time             `json:"createdAt"`
	Product       *orderProductResponse `json:"product,omitempty"`
	User          *orderBuyerResponse   `json:"user,omitempty"`
}

func newOrderResponse(o model.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		Amount:        centsToDollars(o.AmountCents),
		Currency:      o.Currency,
		Status:        string(o.Status),
		DownloadToken: o.DownloadToken,
		DownloadCount: o.DownloadCount,
		CreatedAt:     o.CreatedAt,
	}
	if o.Product != nil {
		resp.Product = &orderProductResponse{
			ProductCode: o.Product.ProductCode,
			Name:        o.Product.Name,
			ImageURL:    o.Product.ImageURL,
		}
	}
	if o.Buyer != nil {
		resp.User = &orderBuyerResponse{
			Name:  o.Buyer.Name,
			Email: o.Buyer.Email,
		}
	}
	return resp
}

// CreateOrder фиксирует покупку цифрового товара.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == 0 || req.PaymentID == "" || req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "productId, paymentId and amount are required")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), service.CreateOrderInput{
		UserID:        userID,
		ProductID:     req.ProductID,
		PaymentID:     req.PaymentID,
		AmountCents:   int64(req.Amount * 100),
		BillingEmail:  req.BillingEmail,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, repository.ErrAlreadyPurchased):
			h.writeError(w, http.StatusConflict, "product already purchased")
		case errors.Is(err, service.ErrPaymentNotConfirmed):
			h.writeError(w, http.StatusPaymentRequired, "payment is not confirmed")
		default:
			h.logger.Error("create order failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"order": newOrderResponse(*order)})
}

// MyOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.service.GetOrdersByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user orders failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders": lo.Map(orders, func(o model.Order, _ int) orderResponse {
			return newOrderResponse(o)
		}),
	})
}

// GetOrder возвращает заказ по идентификатору. Доступен владельцу и администраторам.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			h.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order.UserID != userID && !middleware.IsAdminFromContext(r.Context()) {
		h.writeError(w, http.StatusForbidden, "access denied")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"order": newOrderResponse(*order)})
}

// Download гасит токен загрузки и перенаправляет на файл товара.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "download token is required")
		return
	}

	fileURL, err := h.service.RedeemDownload(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			h.writeError(w, http.StatusNotFound, "download token not found")
		case errors.Is(err, repository.ErrTokenAlreadyUsed):
			h.writeError(w, http.StatusForbidden, "download link has already been used")
		case errors.Is(err, repository.ErrOrderNotCompleted):
			h.writeError(w, http.StatusForbidden, "order is not completed")
		default:
			h.logger.Error("redeem download failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	http.Redirect(w, r, fileURL, http.StatusFound)
}

// AdminOrders возвращает страницу заказов всех пользователей.
func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	var status *model.OrderStatus
	if raw := q.Get("status"); raw != "" {
		s := model.OrderStatus(raw)
		if !s.Valid() {
			h.writeError(w, http.StatusBadRequest, "invalid order status")
			return
		}
		status = &s
	}

	orders, pagination, err := h.service.ListOrdersAdmin(r.Context(), status, page, limit)
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"orders": lo.Map(orders, func(o model.Order, _ int) orderResponse {
			return newOrderResponse(o)
		}),
		"pagination": map[string]any{
			"current": pagination.Current,
			"total":   pagination.Total,
			"hasNext": pagination.HasNext,
			"hasPrev": pagination.HasPrev,
		},
	})
}

// AdminOrderStatus устанавливает статус заказа.
func (h *Handler) AdminOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req orderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := model.OrderStatus(req.Status)
	if !status.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	if err := h.service.SetOrderStatus(r.Context(), id, status); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, repository.ErrAlreadyPurchased):
			h.writeError(w, http.StatusConflict, "user already has a completed order for this product")
		default:
			h.logger.Error("update order status failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "order status updated"})
}
