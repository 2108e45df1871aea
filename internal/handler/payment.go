package handler

import (
	"errors"
	"net/http"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/middleware"
	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/service"
)

type paymentIntentRequest struct {
	ProductID  int64   `json:"productId"`
	ProductIDs []int64 `json:"productIds"`
}

// CreatePaymentIntent создаёт платёжное намерение на один товар или корзину.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req paymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := req.ProductIDs
	if len(ids) == 0 && req.ProductID != 0 {
		ids = []int64{req.ProductID}
	}
	if len(ids) == 0 {
		h.writeError(w, http.StatusBadRequest, "productId or productIds is required")
		return
	}

	res, err := h.service.CreatePaymentIntent(r.Context(), userID, ids)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.writeError(w, http.StatusNotFound, "product not found")
		case errors.Is(err, repository.ErrAlreadyPurchased):
			h.writeError(w, http.StatusBadRequest, "product already purchased")
		case errors.Is(err, service.ErrGatewayUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, "payments are temporarily unavailable")
		default:
			h.logger.Error("create payment intent failed", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"clientSecret": res.ClientSecret,
		"amount":       centsToDollars(res.AmountCents),
		"products": lo.Map(res.Products, func(p model.Product, _ int) productResponse {
			return newProductResponse(p)
		}),
	})
}
