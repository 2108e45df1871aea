// Package service реализует бизнес-логику магазина цифровых товаров.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/digitalstore/internal/metrics"
	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/payment"
	"github.com/mmeshcher/digitalstore/internal/repository"
)

// ErrGatewayUnavailable возвращается, если платёжный шлюз не сконфигурирован.
var (
	ErrGatewayUnavailable = errors.New("payment gateway is not configured")
	// ErrStorageUnavailable возвращается, если объектное хранилище не сконфигурировано.
	ErrStorageUnavailable = errors.New("object storage is not configured")
	// ErrPaymentNotConfirmed возвращается, если платёж не подтверждён шлюзом.
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed by gateway")
	// ErrInvalidCredentials возвращается при неверном пароле или заблокированной учётной записи.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, name, email string, passwordHash []byte, verificationToken string, verificationExpires time.Time) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	VerifyEmailToken(ctx context.Context, token string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProductByID(ctx context.Context, id int64, onlyActive bool) (*model.Product, error)
	GetProductByCode(ctx context.Context, code string, onlyActive bool) (*model.Product, error)
	GetActiveProductsByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)

	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	HasCompletedOrder(ctx context.Context, userID, productID int64) (bool, error)
	HasAnyCompletedOrder(ctx context.Context, userID int64, productIDs []int64) (bool, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	RedeemDownloadToken(ctx context.Context, token string) (string, error)
	ListOrders(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus) error

	ListImagesByProduct(ctx context.Context, productCode string) ([]model.Image, error)
	CreateImage(ctx context.Context, img *model.Image) (*model.Image, error)
	SoftDeleteImage(ctx context.Context, id int64) error
}

// PaymentGateway описывает контракт внешнего платёжного шлюза.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error)
	GetIntent(ctx context.Context, intentID string) (*payment.Intent, error)
}

// Mailer описывает контракт отправки транзакционных писем.
type Mailer interface {
	Send(ctx context.Context, to, template string, data map[string]string) error
}

// Storage описывает контракт загрузки файлов в объектное хранилище.
type Storage interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, int64, error)
}

// Options содержит необязательные зависимости сервиса.
// Nil-значение означает, что соответствующая возможность не сконфигурирована.
type Options struct {
	Gateway     PaymentGateway
	Mailer      Mailer
	Storage     Storage
	Metrics     *metrics.Metrics
	FrontendURL string
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo        Repository
	logger      *zap.Logger
	gateway     PaymentGateway
	mailer      Mailer
	storage     Storage
	metrics     *metrics.Metrics
	frontendURL string
}

// NewService создаёт новый сервис с указанным репозиторием и внешними зависимостями.
func NewService(repo Repository, logger *zap.Logger, opts Options) *Service {
	return &Service{
		repo:        repo,
		logger:      logger,
		gateway:     opts.Gateway,
		mailer:      opts.Mailer,
		storage:     opts.Storage,
		metrics:     opts.Metrics,
		frontendURL: opts.FrontendURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Health проверяет доступность хранилища данных.
func (s *Service) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// sendEmail отправляет письмо и возвращает признак успеха. Ошибка отправки
// логируется и не прерывает вызвавшую операцию.
func (s *Service) sendEmail(ctx context.Context, to, template string, data map[string]string) bool {
	if s.mailer == nil {
		return false
	}

	if err := s.mailer.Send(ctx, to, template, data); err != nil {
		s.logger.Error("send email failed",
			zap.String("template", template),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.Emails.WithLabelValues(template, "failed").Inc()
		}
		return false
	}

	if s.metrics != nil {
		s.metrics.Emails.WithLabelValues(template, "sent").Inc()
	}
	return true
}
