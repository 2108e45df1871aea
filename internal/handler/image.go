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
	"github.com/mmeshcher/digitalstore/internal/service"
)

// maxUploadSize ограничивает размер загружаемого файла изображения.
const maxUploadSize = 10 << 20

type imageRequest struct {
	ProductCode string `json:"productCode"`
	ImageURL    string `json:"imageUrl"`
	ImageType   string `json:"imageType"`
	AltText     string `json:"altText"`
	SortOrder   int64  `json:"sortOrder"`
}

type imageResponse struct {
	ID          int64     `json:"id"`
	ProductCode string    `json:"productCode"`
	ImageURL    string    `json:"imageUrl"`
	ImageType   string    `json:"imageType"`
	AltText     string    `json:"altText"`
	SortOrder   int64     `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newImageResponse(img model.Image) imageResponse {
	return imageResponse{
		ID:          img.ID,
		ProductCode: img.ProductCode,
		ImageURL:    img.ImageURL,
		ImageType:   string(img.ImageType),
		AltText:     img.AltText,
		SortOrder:   img.SortOrder,
		CreatedAt:   img.CreatedAt,
	}
}

// ListProductImages возвращает активные изображения товара.
func (h *Handler) ListProductImages(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")
	if productCode == "" {
		h.writeError(w, http.StatusBadRequest, "product code is required")
		return
	}

	images, err := h.service.ListProductImages(r.Context(), productCode)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("list product images failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"images": lo.Map(images, func(img model.Image, _ int) imageResponse {
			return newImageResponse(img)
		}),
	})
}

// CreateImage прикрепляет изображение к товару. Доступно администраторам.
func (h *Handler) CreateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductCode == "" || req.ImageURL == "" {
		h.writeError(w, http.StatusBadRequest, "productCode and imageUrl are required")
		return
	}

	imageType := model.ImageType(req.ImageType)
	if req.ImageType == "" {
		imageType = model.ImageTypeGallery
	}
	if !imageType.Valid() {
		h.writeError(w, http.StatusBadRequest, "invalid image type")
		return
	}

	image, err := h.service.AddImage(r.Context(), &model.Image{
		ProductCode: req.ProductCode,
		ImageURL:    req.ImageURL,
		ImageType:   imageType,
		AltText:     req.AltText,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("create image failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{"image": newImageResponse(*image)})
}

// UploadImage загружает файл изображения в объектное хранилище.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	url, size, err := h.service.UploadAsset(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, service.ErrStorageUnavailable) {
			h.writeError(w, http.StatusServiceUnavailable, "uploads are temporarily unavailable")
			return
		}
		h.logger.Error("upload image failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"url":  url,
		"size": size,
	})
}

// DeleteImage помечает изображение удалённым. Доступно администраторам.
func (h *Handler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.service.RemoveImage(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrImageNotFound) {
			h.writeError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("delete image failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "image deleted"})
}
