package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmeshcher/digitalstore/internal/model"
	"github.com/mmeshcher/digitalstore/internal/repository"
)

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("digitalstore"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("run container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("connection string: %w", err)
	}

	return container, connStr, nil
}

type repositorySuite struct {
	suite.Suite

	repo      *repository.PostgresRepository
	container testcontainers.Container
}

// entry point to run the tests in the suite
func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(repositorySuite))
}

// before all tests in the suite
func (suite *repositorySuite) SetupSuite() {
	ctx := suite.T().Context()

	var (
		connStr string
		err     error
	)

	suite.container, connStr, err = startPostgres(ctx)
	suite.NoError(err)

	suite.repo, err = repository.NewPostgresRepository(connStr)
	suite.NoError(err)
}

// after all tests in the suite
func (suite *repositorySuite) TearDownSuite() {
	ctx := suite.T().Context()

	if suite.repo != nil {
		suite.NoError(suite.repo.Close())
	}
	if suite.container != nil {
		suite.NoError(suite.container.Terminate(ctx))
	}
}

func (suite *repositorySuite) createUser() *model.User {
	t := suite.T()
	t.Helper()

	user, err := suite.repo.CreateUser(t.Context(),
		gofakeit.Name(),
		fmt.Sprintf("%s@example.com", uuid.NewString()),
		[]byte("$2a$12$fakehashfakehashfakehash"),
		uuid.NewString(),
		time.Now().Add(24*time.Hour),
	)
	require.NoError(t, err)

	return user
}

func (suite *repositorySuite) createProduct(priceCents int64) *model.Product {
	t := suite.T()
	t.Helper()

	product, err := suite.repo.CreateProduct(t.Context(), &model.Product{
		ProductCode: uuid.NewString(),
		Name:        gofakeit.ProductName(),
		Description: gofakeit.Sentence(8),
		PriceCents:  priceCents,
		Category:    "ebook",
		FileURL:     gofakeit.URL(),
		FileSize:    1 << 20,
		IsActive:    true,
	})
	require.NoError(t, err)

	return product
}

func (suite *repositorySuite) createOrder(user *model.User, product *model.Product, status model.OrderStatus) *model.Order {
	t := suite.T()
	t.Helper()

	token := uuid.NewString()
	order, err := suite.repo.CreateOrder(t.Context(), &model.Order{
		UserID:        user.ID,
		ProductID:     product.ID,
		PaymentID:     "pi_" + uuid.NewString(),
		AmountCents:   product.PriceCents,
		Currency:      "usd",
		Status:        status,
		DownloadToken: &token,
	})
	require.NoError(t, err)

	return order
}

func assertProduct(t *testing.T, expected, actual model.Product) {
	t.Helper()

	opts := cmp.Options{
		cmpopts.EquateApproxTime(time.Second),
	}
	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("product mismatch (-want +got):\n%s", diff)
	}
}

func (suite *repositorySuite) TestGetProduct() {
	t := suite.T()
	ctx := t.Context()

	product := suite.createProduct(2500)

	actual, err := suite.repo.GetProductByID(ctx, product.ID, true)
	require.NoError(t, err)
	assertProduct(t, *product, *actual)

	byCode, err := suite.repo.GetProductByCode(ctx, product.ProductCode, true)
	require.NoError(t, err)
	assertProduct(t, *product, *byCode)
}

func (suite *repositorySuite) TestCreateUserDuplicateEmail() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()

	_, err := suite.repo.CreateUser(ctx, "Another", user.Email, []byte("hash"), uuid.NewString(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, repository.ErrUserExists)
}

func (suite *repositorySuite) TestVerifyEmailToken() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	require.NotNil(t, user.EmailVerificationToken)
	require.False(t, user.IsEmailVerified)

	verified, err := suite.repo.VerifyEmailToken(ctx, *user.EmailVerificationToken)
	require.NoError(t, err)
	require.True(t, verified.IsEmailVerified)
	require.Nil(t, verified.EmailVerificationToken)

	// Токен одноразовый.
	_, err = suite.repo.VerifyEmailToken(ctx, *user.EmailVerificationToken)
	require.ErrorIs(t, err, repository.ErrVerificationNotFound)

	_, err = suite.repo.VerifyEmailToken(ctx, uuid.NewString())
	require.ErrorIs(t, err, repository.ErrVerificationNotFound)
}

func (suite *repositorySuite) TestVerifyEmailTokenExpired() {
	t := suite.T()
	ctx := t.Context()

	token := uuid.NewString()
	_, err := suite.repo.CreateUser(ctx,
		gofakeit.Name(),
		fmt.Sprintf("%s@example.com", uuid.NewString()),
		[]byte("hash"),
		token,
		time.Now().Add(-time.Hour),
	)
	require.NoError(t, err)

	_, err = suite.repo.VerifyEmailToken(ctx, token)
	require.ErrorIs(t, err, repository.ErrVerificationNotFound)
}

func (suite *repositorySuite) TestProductDuplicateCode() {
	t := suite.T()
	ctx := t.Context()

	product := suite.createProduct(1000)

	_, err := suite.repo.CreateProduct(ctx, &model.Product{
		ProductCode: product.ProductCode,
		Name:        "Copy",
		PriceCents:  500,
		Category:    "ebook",
		IsActive:    true,
	})
	require.ErrorIs(t, err, repository.ErrProductExists)
}

func (suite *repositorySuite) TestInactiveProductHidden() {
	t := suite.T()
	ctx := t.Context()

	product := suite.createProduct(1000)

	product.IsActive = false
	_, err := suite.repo.UpdateProduct(ctx, product)
	require.NoError(t, err)

	_, err = suite.repo.GetProductByID(ctx, product.ID, true)
	require.ErrorIs(t, err, repository.ErrProductNotFound)

	// Для административного доступа товар остаётся видимым.
	hidden, err := suite.repo.GetProductByID(ctx, product.ID, false)
	require.NoError(t, err)
	require.False(t, hidden.IsActive)

	products, err := suite.repo.ListProducts(ctx, repository.ProductFilter{SortColumn: "created_at"})
	require.NoError(t, err)
	for _, p := range products {
		require.NotEqual(t, product.ID, p.ID)
	}
}

func (suite *repositorySuite) TestListProductsSortedByPrice() {
	t := suite.T()
	ctx := t.Context()

	suite.createProduct(300)
	suite.createProduct(100)
	suite.createProduct(200)

	products, err := suite.repo.ListProducts(ctx, repository.ProductFilter{SortColumn: "price"})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(products), 3)

	for i := 1; i < len(products); i++ {
		require.LessOrEqual(t, products[i-1].PriceCents, products[i].PriceCents)
	}
}

func (suite *repositorySuite) TestCreateOrderUpdatesAggregates() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)

	suite.createOrder(user, product, model.OrderStatusCompleted)

	updatedUser, err := suite.repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), updatedUser.TotalPurchases)
	require.Equal(t, int64(1999), updatedUser.TotalSpentCents)

	updatedProduct, err := suite.repo.GetProductByID(ctx, product.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(1), updatedProduct.DownloadCount)
}

func (suite *repositorySuite) TestDuplicateCompletedOrderRejected() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)

	suite.createOrder(user, product, model.OrderStatusCompleted)

	token := uuid.NewString()
	_, err := suite.repo.CreateOrder(ctx, &model.Order{
		UserID:        user.ID,
		ProductID:     product.ID,
		PaymentID:     "pi_" + uuid.NewString(),
		AmountCents:   product.PriceCents,
		Currency:      "usd",
		Status:        model.OrderStatusCompleted,
		DownloadToken: &token,
	})
	require.ErrorIs(t, err, repository.ErrAlreadyPurchased)

	has, err := suite.repo.HasCompletedOrder(ctx, user.ID, product.ID)
	require.NoError(t, err)
	require.True(t, has)
}

func (suite *repositorySuite) TestRedeemDownloadToken() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)
	order := suite.createOrder(user, product, model.OrderStatusCompleted)
	require.NotNil(t, order.DownloadToken)

	fileURL, err := suite.repo.RedeemDownloadToken(ctx, *order.DownloadToken)
	require.NoError(t, err)
	require.Equal(t, product.FileURL, fileURL)

	// Повторное гашение отклоняется.
	_, err = suite.repo.RedeemDownloadToken(ctx, *order.DownloadToken)
	require.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)

	// Погашенный токен не возвращается в выборках.
	orders, err := suite.repo.GetOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Nil(t, orders[0].DownloadToken)
	require.NotNil(t, orders[0].DownloadRedeemedAt)
}

func (suite *repositorySuite) TestRedeemDownloadTokenErrors() {
	t := suite.T()
	ctx := t.Context()

	_, err := suite.repo.RedeemDownloadToken(ctx, uuid.NewString())
	require.ErrorIs(t, err, repository.ErrTokenNotFound)

	user := suite.createUser()
	product := suite.createProduct(1999)
	order := suite.createOrder(user, product, model.OrderStatusPending)

	_, err = suite.repo.RedeemDownloadToken(ctx, *order.DownloadToken)
	require.ErrorIs(t, err, repository.ErrOrderNotCompleted)
}

func (suite *repositorySuite) TestConcurrentRedeemSingleWinner() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)
	order := suite.createOrder(user, product, model.OrderStatusCompleted)

	const attempts = 4

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.repo.RedeemDownloadToken(ctx, *order.DownloadToken)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, repository.ErrTokenAlreadyUsed)
		}
	}
	require.Equal(t, 1, succeeded)
}

func (suite *repositorySuite) TestListOrdersPagination() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	for range 3 {
		product := suite.createProduct(500)
		suite.createOrder(user, product, model.OrderStatusCompleted)
	}

	orders, total, err := suite.repo.ListOrders(ctx, nil, 2, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, int64(3))
	require.Len(t, orders, 2)
	require.NotNil(t, orders[0].Product)
	require.NotNil(t, orders[0].Buyer)

	completed := model.OrderStatusCompleted
	_, completedTotal, err := suite.repo.ListOrders(ctx, &completed, 100, 0)
	require.NoError(t, err)

	refunded := model.OrderStatusRefunded
	_, refundedTotal, err := suite.repo.ListOrders(ctx, &refunded, 100, 0)
	require.NoError(t, err)

	require.GreaterOrEqual(t, completedTotal, int64(3))
	require.Less(t, refundedTotal, completedTotal)
}

func (suite *repositorySuite) TestUpdateOrderStatus() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)
	order := suite.createOrder(user, product, model.OrderStatusCompleted)

	require.NoError(t, suite.repo.UpdateOrderStatus(ctx, order.ID, model.OrderStatusRefunded))

	updated, err := suite.repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusRefunded, updated.Status)

	err = suite.repo.UpdateOrderStatus(ctx, order.ID+100000, model.OrderStatusFailed)
	require.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func (suite *repositorySuite) TestUpdateOrderStatusCompletedConflict() {
	t := suite.T()
	ctx := t.Context()

	user := suite.createUser()
	product := suite.createProduct(1999)

	suite.createOrder(user, product, model.OrderStatusCompleted)
	pending := suite.createOrder(user, product, model.OrderStatusPending)

	err := suite.repo.UpdateOrderStatus(ctx, pending.ID, model.OrderStatusCompleted)
	require.ErrorIs(t, err, repository.ErrAlreadyPurchased)
}

func (suite *repositorySuite) TestImages() {
	t := suite.T()
	ctx := t.Context()

	product := suite.createProduct(1000)

	second, err := suite.repo.CreateImage(ctx, &model.Image{
		ProductCode: product.ProductCode,
		ImageURL:    gofakeit.URL(),
		ImageType:   model.ImageTypeGallery,
		SortOrder:   2,
		IsActive:    true,
	})
	require.NoError(t, err)

	first, err := suite.repo.CreateImage(ctx, &model.Image{
		ProductCode: product.ProductCode,
		ImageURL:    gofakeit.URL(),
		ImageType:   model.ImageTypeThumbnail,
		SortOrder:   1,
		IsActive:    true,
	})
	require.NoError(t, err)

	images, err := suite.repo.ListImagesByProduct(ctx, product.ProductCode)
	require.NoError(t, err)
	require.Len(t, images, 2)
	require.Equal(t, first.ID, images[0].ID)
	require.Equal(t, second.ID, images[1].ID)

	require.NoError(t, suite.repo.SoftDeleteImage(ctx, first.ID))

	images, err = suite.repo.ListImagesByProduct(ctx, product.ProductCode)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.Equal(t, second.ID, images[0].ID)

	require.ErrorIs(t, suite.repo.SoftDeleteImage(ctx, first.ID+100000), repository.ErrImageNotFound)
}
