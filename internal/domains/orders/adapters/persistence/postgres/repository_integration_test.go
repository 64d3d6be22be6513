//go:build integration
// +build integration

// To enable gopls support for this file, add the following to your VSCode settings.json:
// "gopls": {
//   "buildFlags": ["-tags=integration"]
// }

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	orderspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productspostgres "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/persistence/postgres"
	productsapp "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application"
	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/platform/migrations"
)

func setupPostgresContainer(t *testing.T) (*gorm.DB, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = migrations.Run(db)
	require.NoError(t, err)

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		pgContainer.Terminate(ctx)
	}

	return db, cleanup
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, qty int32) int64 {
	t.Helper()
	p, err := productdomain.NewProduct(0, sku, "Product "+sku, 1500, qty)
	require.NoError(t, err)
	created, err := productspostgres.NewRepository(db).Create(context.Background(), p)
	require.NoError(t, err)
	return created.Entity.ID
}

func newService(db *gorm.DB) *ordersapp.Service {
	return ordersapp.NewService(
		orderspostgres.NewRepository(db),
		productspostgres.NewRepository(db),
		orderspostgres.NewUnitOfWork(db),
		ordersapp.WithIdempotencyStore(orderspostgres.NewIdempotencyStore(db)),
	)
}

func ptr[T any](v T) *T { return &v }

func TestPostgresRepository_CreateUpdateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	order, err := domain.NewOrder("REF-1", 42)
	require.NoError(t, err)
	order.Metadata = map[string]string{"channel": "web"}

	created, err := repo.Create(ctx, order)
	require.NoError(t, err)
	require.NotZero(t, created.Entity.ID)
	assert.False(t, created.Metadata.CreatedAt.IsZero())

	created.Entity.Status = domain.StatusPaid
	created.Entity.Tax = 0
	require.NoError(t, repo.Update(ctx, created.Entity))

	loaded, err := repo.GetByID(ctx, created.Entity.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, loaded.Entity.Status)
	assert.Equal(t, "web", loaded.Entity.Metadata["channel"])

	_, err = repo.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	assert.ErrorIs(t, repo.Update(ctx, &domain.Order{ID: 9999, Reference: "X", CustomerID: 1, Status: domain.StatusPending}), ports.ErrNotFound)
}

func TestPostgresRepository_DuplicateReferenceIsConstraintViolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	order, err := domain.NewOrder("DUP", 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, order)
	require.NoError(t, err)
	_, err = repo.Create(ctx, order)
	assert.ErrorIs(t, err, ports.ErrConstraintViolation)
}

func TestPostgresRepository_ListSorts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	repo := orderspostgres.NewRepository(db)
	ctx := context.Background()

	for i, total := range []int64{300, 100, 200} {
		order, err := domain.NewOrder("", int64(i+1))
		require.NoError(t, err)
		order.Total = total
		_, err = repo.Create(ctx, order)
		require.NoError(t, err)
	}

	byID, err := repo.List(ctx, domain.DefaultSort)
	require.NoError(t, err)
	require.Len(t, byID, 3)
	assert.Greater(t, byID[0].Entity.ID, byID[1].Entity.ID)

	byTotal, err := repo.List(ctx, domain.Sort{Field: domain.SortByTotal, Direction: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, []int64{byTotal[0].Entity.Total, byTotal[1].Entity.Total, byTotal[2].Entity.Total})
}

func TestUnitOfWork_RollsBackAssociationWhenStockFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	svc := newService(db)
	ctx := context.Background()
	productID := seedProduct(t, db, "A", 1)
	order, err := svc.CreateOrder(ctx, ordertypes.CreateOrderInput{OrderParams: ordertypes.OrderParams{CustomerID: ptr(int64(1))}})
	require.NoError(t, err)

	_, err = svc.AssociateProduct(ctx, ordertypes.AssociateProductInput{OrderID: order.Entity.ID, ProductID: productID, Quantity: 2})
	require.ErrorIs(t, err, ordersapp.ErrStockUpdateFailed)

	lines, err := svc.FindProducts(ctx, ordertypes.OrderIdentifier{ID: order.Entity.ID})
	require.NoError(t, err)
	assert.Empty(t, lines)

	boom := errors.New("boom")
	err = orderspostgres.NewUnitOfWork(db).Do(ctx, func(ctx context.Context, tx ports.TxScope) error {
		require.NoError(t, tx.Orders.SaveLineItem(ctx, domain.LineItem{OrderID: order.Entity.ID, ProductID: productID, Quantity: 1}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	lines, err = svc.FindProducts(ctx, ordertypes.OrderIdentifier{ID: order.Entity.ID})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestAssociateProduct_ConcurrentDecrementsAreSerialized(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	svc := newService(db)
	ctx := context.Background()
	productID := seedProduct(t, db, "HOT", 50)

	var orderIDs []int64
	for i := 0; i < 5; i++ {
		order, err := svc.CreateOrder(ctx, ordertypes.CreateOrderInput{OrderParams: ordertypes.OrderParams{CustomerID: ptr(int64(i + 1))}})
		require.NoError(t, err)
		orderIDs = append(orderIDs, order.Entity.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(orderID int64) {
			defer wg.Done()
			_, err := svc.AssociateProduct(ctx, ordertypes.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 2})
			errs <- err
		}(orderIDs[i%len(orderIDs)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	product, err := productspostgres.NewRepository(db).GetByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int32(10), product.Entity.Quantity)

	lines, err := svc.FindProducts(ctx, ordertypes.OrderIdentifier{ID: orderIDs[0]})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int32(8), lines[0].Quantity)
}

func TestPlaceOrder_IdempotencyKeyReplaysAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	svc := newService(db)
	ctx := context.Background()
	productID := seedProduct(t, db, "A", 10)
	input := ordertypes.PlaceOrderInput{
		OrderParams:    ordertypes.OrderParams{CustomerID: ptr(int64(7))},
		Lines:          []ordertypes.CheckoutLine{{ProductID: productID, Quantity: 3}},
		IdempotencyKey: "retry-me",
	}

	first, err := svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, first.Order.Entity.ID, second.Order.Entity.ID)

	product, err := productspostgres.NewRepository(db).GetByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int32(7), product.Entity.Quantity)
}

func TestIdempotencyStore_DeleteExpiredHonoursCutoffAndLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	store := orderspostgres.NewIdempotencyStore(db)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, key := range []string{"old-1", "old-2", "old-3", "fresh"} {
		createdAt := now.Add(-48 * time.Hour)
		if key == "fresh" {
			createdAt = now
		}
		_, err := store.Save(ctx, ports.IdempotencyRecord{
			Key:         key,
			RequestHash: "hash",
			OrderID:     int64(i + 1),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
		require.NoError(t, err)
	}

	cutoff := now.Add(-24 * time.Hour)
	deleted, err := store.DeleteExpired(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	deleted, err = store.DeleteExpired(ctx, cutoff, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	record, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestUpdateProduct_RenamesDoNotRestoreStockAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupPostgresContainer(t)
	defer cleanup()

	svc := newService(db)
	catalog := productsapp.NewService(productspostgres.NewRepository(db))
	ctx := context.Background()
	productID := seedProduct(t, db, "A", 30)
	order, err := svc.CreateOrder(ctx, ordertypes.CreateOrderInput{OrderParams: ordertypes.OrderParams{CustomerID: ptr(int64(3))}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.AssociateProduct(ctx, ordertypes.AssociateProductInput{OrderID: order.Entity.ID, ProductID: productID})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := catalog.UpdateProduct(ctx, producttypes.UpdateProductInput{
				ID:                   productID,
				ProductMutationInput: producttypes.ProductMutationInput{Name: ptr("Renamed")},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	product, err := productspostgres.NewRepository(db).GetByID(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, int32(20), product.Entity.Quantity)
	assert.Equal(t, "Renamed", product.Entity.Name)
}
