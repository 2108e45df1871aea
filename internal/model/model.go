// Package model содержит доменные сущности магазина цифровых товаров.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет зарегистрированного покупателя или администратора.
type User struct {
	ID                       int64
	Name                     string
	Email                    string
	PasswordHash             []byte
	Role                     Role
	IsActive                 bool
	IsEmailVerified          bool
	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time
	LastLogin                *time.Time
	TotalPurchases           int64
	TotalSpentCents          int64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Product описывает цифровой товар каталога. Цены хранятся в минорных единицах.
type Product struct {
	ID              int64
	ProductCode     string
	Name            string
	Description     string
	PriceCents      int64
	OfferPriceCents *int64
	Category        string
	FileURL         string
	FileSize        int64
	ImageURL        string
	IsActive        bool
	DownloadCount   int64
	CreatedBy       *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectivePriceCents возвращает цену со скидкой, если она задана, иначе обычную цену.
func (p Product) EffectivePriceCents() int64 {
	if p.OfferPriceCents != nil {
		return *p.OfferPriceCents
	}
	return p.PriceCents
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Valid сообщает, входит ли значение в перечень допустимых статусов заказа.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusFailed, OrderStatusRefunded:
		return true
	}
	return false
}

// Order описывает одну попытку покупки и её результат. Заказы никогда не удаляются.
type Order struct {
	ID                 int64
	UserID             int64
	ProductID          int64
	PaymentID          string
	AmountCents        int64
	Currency           string
	Status             OrderStatus
	DownloadToken      *string
	DownloadRedeemedAt *time.Time
	DownloadCount      int64
	LastDownloaded     *time.Time
	PaymentMethod      string
	BillingEmail       string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Заполняются выборками с join, не хранятся в таблице заказов.
	Product *Product
	Buyer   *User
}

// ImageType описывает назначение изображения товара.
type ImageType string

const (
	ImageTypeThumbnail ImageType = "thumbnail"
	ImageTypeGallery   ImageType = "gallery"
	ImageTypeBanner    ImageType = "banner"
	ImageTypeOther     ImageType = "other"
)

// Valid сообщает, входит ли значение в перечень допустимых типов изображений.
func (t ImageType) Valid() bool {
	switch t {
	case ImageTypeThumbnail, ImageTypeGallery, ImageTypeBanner, ImageTypeOther:
		return true
	}
	return false
}

// Image описывает изображение, прикреплённое к товару каталога.
type Image struct {
	ID          int64
	ProductCode string
	ImageURL    string
	ImageType   ImageType
	AltText     string
	IsActive    bool
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
