package service

import (
	"context"
	"io"

	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
)

// ListProducts возвращает активные товары каталога с учётом фильтра.
func (s *Service) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, f)
}

// GetProduct возвращает активный товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProductByID(ctx, id, true)
}

// CreateProduct создаёт новый товар каталога.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct обновляет существующий товар каталога.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	return s.repo.UpdateProduct(ctx, p)
}

// ListProductImages возвращает активные изображения товара по его коду.
func (s *Service) ListProductImages(ctx context.Context, productCode string) ([]model.Image, error) {
	if _, err := s.repo.GetProductByCode(ctx, productCode, true); err != nil {
		return nil, err
	}
	return s.repo.ListImagesByProduct(ctx, productCode)
}

// AddImage добавляет изображение к товару.
func (s *Service) AddImage(ctx context.Context, img *model.Image) (*model.Image, error) {
	if _, err := s.repo.GetProductByCode(ctx, img.ProductCode, false); err != nil {
		return nil, err
	}
	return s.repo.CreateImage(ctx, img)
}

// RemoveImage помечает изображение удалённым.
func (s *Service) RemoveImage(ctx context.Context, id int64) error {
	return s.repo.SoftDeleteImage(ctx, id)
}

// UploadAsset загружает файл в объектное хранилище и возвращает его URL и размер.
func (s *Service) UploadAsset(ctx context.Context, filename string, r io.Reader) (string, int64, error) {
	if s.storage == nil {
		return "", 0, ErrStorageUnavailable
	}
	return s.storage.Upload(ctx, filename, r)
}
