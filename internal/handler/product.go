package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
	"github.com/mmeshcher/digitalstore/internal/validation"
)

type productRequest struct {
	ProductCode string   `json:"productCode"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	OfferPrice  *float64 `json:"offerPrice"`
	Category    string   `json:"category"`
	FileURL     string   `json:"fileUrl"`
	FileSize    int64    `json:"fileSize"`
	ImageURL    string   `json:"imageUrl"`
	IsActive    *bool    `json:"isActive"`
}

type productResponse struct {
	ID            int64     `json:"id"`
	ProductCode   string    `json:"productCode"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OfferPrice    *float64  `json:"offerPrice,omitempty"`
	Category      string    `json:"category"`
	ImageURL      string    `json:"imageUrl"`
	FileSize      int64     `json:"fileSize"`
	DownloadCount int64     `json:"downloadCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// URL файла товара в публичные ответы не попадает, он выдаётся
// только при гашении токена загрузки.
func newProductResponse(p model.Product) productResponse {
	resp := productResponse{
		ID:            p.ID,
		ProductCode:   p.ProductCode,
		Name:          p.Name,
		Description:   p.Description,
		Price:         centsToDollars(p.PriceCents),
		Category:      p.Category,
		ImageURL:      p.ImageURL,
		FileSize:      p.FileSize,
		DownloadCount: p.DownloadCount,
		CreatedAt:     p.CreatedAt,
	}
	if p.OfferPriceCents != nil {
		offer := centsToDollars(*p.OfferPriceCents)
		resp.OfferPrice = &offer
	}
	return resp
}

// ListProducts возвращает активные товары каталога с учётом фильтров запроса.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category == "all" {
		category = ""
	}

	f := repository.ProductFilter{
		Category:   category,
		Search:     q.Get("search"),
		SortColumn: validation.ProductSortColumn(q.Get("sort")),
		Desc:       q.Get("order") != "asc",
	}

	products, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"products": lo.Map(products, func(p model.Product, _ int) productResponse {
			return newProductResponse(p)
		}),
	})
}

// GetProduct возвращает один активный товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("get product failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"product": newProductResponse(*product)})
}

func (h *Handler) productFromRequest(req productRequest) *model.Product {
	p := &model.Product{
		ProductCode: req.ProductCode,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  int64(req.Price * 100),
		Category:    req.Category,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if req.OfferPrice != nil {
		offer := int64(*req.OfferPrice * 100)
		p.OfferPriceCents = &offer
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

// CreateProduct создаёт новый товар каталога. Доступно администраторам.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductCode == "" || req.Name == "" || req.Price <= 0 || req.FileURL == "" {
		h.writeError(w, http.StatusBadRequest, "productCode, name, price and fileUrl are required")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), h.productFromRequest(req))
	if err != nil {
		if errors.Is(err, repository.ErrProductExists) {
			h.writeError(w, http.StatusConflict, "product with this code already exists")
			return
		}
		h.logger.Error("create product failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"product": newProductResponse(*product)})
}

// UpdateProduct обновляет существующий товар каталога. Доступно администраторам.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Price <= 0 {
		h.writeError(w, http.StatusBadRequest, "name and price are required")
		return
	}

	p := h.productFromRequest(req)
	p.ID = id

	product, err := h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("update product failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"product": newProductResponse(*product)})
}
