package application

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	ordersmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/memory"
	types "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productsmemory "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/memory"
	productsapp "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application"
	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	productports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

type fixture struct {
	svc      *Service
	orders   *ordersmemory.Repository
	products *productsmemory.Repository
}

func newFixture(opts ...Option) fixture {
	orders := ordersmemory.NewRepository()
	products := productsmemory.NewRepository()
	uow := ordersmemory.NewUnitOfWork(orders, products)
	return fixture{svc: NewService(orders, products, uow, opts...), orders: orders, products: products}
}

func ptr[T any](v T) *T { return &v }

func (f fixture) seedProduct(t *testing.T, sku string, qty int32) int64 {
	t.Helper()
	p, err := productdomain.NewProduct(0, sku, "Product "+sku, 2500, qty)
	require.NoError(t, err)
	created, err := f.products.Create(context.Background(), p)
	require.NoError(t, err)
	return created.Entity.ID
}

func (f fixture) seedOrder(t *testing.T) int64 {
	t.Helper()
	created, err := f.svc.CreateOrder(context.Background(), types.CreateOrderInput{OrderParams: types.OrderParams{CustomerID: ptr(int64(1))}})
	require.NoError(t, err)
	return created.Entity.ID
}

func (f fixture) stock(t *testing.T, productID int64) int32 {
	t.Helper()
	p, err := f.products.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Entity.Quantity
}

func TestCreateOrder_AssignsIDAndDefaults(t *testing.T) {
	f := newFixture()

	created, err := f.svc.CreateOrder(context.Background(), types.CreateOrderInput{OrderParams: types.OrderParams{
		CustomerID: ptr(int64(3)),
		Total:      ptr(int64(4200)),
		Metadata:   map[string]string{"channel": "web"},
	}})
	require.NoError(t, err)
	require.NotZero(t, created.Entity.ID)
	require.Equal(t, domain.StatusPending, created.Entity.Status)
	require.NotEmpty(t, created.Entity.Reference)

	found, err := f.svc.FindOrderByID(context.Background(), types.OrderIdentifier{ID: created.Entity.ID})
	require.NoError(t, err)
	require.Equal(t, created.Entity, found.Entity)
}

func TestCreateOrder_RejectedWritesAreInvalidArgument(t *testing.T) {
	f := newFixture()

	_, err := f.svc.CreateOrder(context.Background(), types.CreateOrderInput{})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, domain.ErrInvalidCustomerID)

	params := types.OrderParams{Reference: ptr("DUP-1"), CustomerID: ptr(int64(1))}
	_, err = f.svc.CreateOrder(context.Background(), types.CreateOrderInput{OrderParams: params})
	require.NoError(t, err)
	_, err = f.svc.CreateOrder(context.Background(), types.CreateOrderInput{OrderParams: params})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, ports.ErrConstraintViolation)
}

func TestUpdateOrder_AppliesProvidedAttributesAndRereads(t *testing.T) {
	f := newFixture()
	id := f.seedOrder(t)

	updated, err := f.svc.UpdateOrder(context.Background(), types.UpdateOrderInput{
		ID:          id,
		OrderParams: types.OrderParams{Status: ptr("paid"), TotalPaid: ptr(int64(1000))},
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPaid, updated.Entity.Status)
	require.Equal(t, int64(1000), updated.Entity.TotalPaid)
	require.Equal(t, int64(1), updated.Entity.CustomerID)
}

func TestUpdateOrder_Errors(t *testing.T) {
	f := newFixture()
	id := f.seedOrder(t)

	_, err := f.svc.UpdateOrder(context.Background(), types.UpdateOrderInput{ID: 404})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.UpdateOrder(context.Background(), types.UpdateOrderInput{ID: id, OrderParams: types.OrderParams{Status: ptr("lost")}})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFindOrderByID_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.FindOrderByID(context.Background(), types.OrderIdentifier{ID: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListOrders_DefaultsToIDDescending(t *testing.T) {
	f := newFixture()
	first := f.seedOrder(t)
	second := f.seedOrder(t)
	third := f.seedOrder(t)

	list, err := f.svc.ListOrders(context.Background(), types.ListOrdersInput{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []int64{third, second, first}, []int64{list[0].Entity.ID, list[1].Entity.ID, list[2].Entity.ID})

	asc, err := f.svc.ListOrders(context.Background(), types.ListOrdersInput{SortField: "id", SortDirection: "asc"})
	require.NoError(t, err)
	require.Equal(t, first, asc[0].Entity.ID)
}

func TestListOrders_InvalidSort(t *testing.T) {
	f := newFixture()
	_, err := f.svc.ListOrders(context.Background(), types.ListOrdersInput{SortField: "password"})
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.ListOrders(context.Background(), types.ListOrdersInput{SortDirection: "up"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAssociateProduct_DecrementsStockAndDefaultsQuantity(t *testing.T) {
	f := newFixture()
	orderID := f.seedOrder(t)
	productID := f.seedProduct(t, "A", 10)

	view, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID})
	require.NoError(t, err)
	require.Equal(t, int32(1), view.Quantity)
	require.Equal(t, int32(9), view.Product.Quantity)

	view, err = f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, int32(4), view.Quantity)
	require.Equal(t, int32(6), f.stock(t, productID))

	lines, err := f.svc.FindProducts(context.Background(), types.OrderIdentifier{ID: orderID})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, productID, lines[0].Product.ID)
	require.Equal(t, int32(4), lines[0].Quantity)
}

func TestAssociateProduct_MissingEntities(t *testing.T) {
	f := newFixture()
	orderID := f.seedOrder(t)
	productID := f.seedProduct(t, "A", 1)

	_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: 999, ProductID: productID})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: 999})
	require.ErrorIs(t, err, ErrProductNotFound)

	_, err = f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: -2})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, int32(1), f.stock(t, productID))
}

func TestAssociateProduct_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture()
	orderID := f.seedOrder(t)
	productID := f.seedProduct(t, "A", 2)

	_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 3})
	require.ErrorIs(t, err, ErrStockUpdateFailed)
	require.ErrorIs(t, err, productdomain.ErrInsufficientStock)

	require.Equal(t, int32(2), f.stock(t, productID))
	lines, err := f.svc.FindProducts(context.Background(), types.OrderIdentifier{ID: orderID})
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAssociateProduct_BackorderAllowsNegativeStock(t *testing.T) {
	f := newFixture(WithStockPolicy(productdomain.StockPolicyBackorder))
	orderID := f.seedOrder(t)
	productID := f.seedProduct(t, "A", 1)

	view, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, int32(-3), view.Product.Quantity)
}

// failingStockRepo lets every read through but refuses stock writes.
type failingStockRepo struct {
	productports.Repository
	err error
}

func (f failingStockRepo) Update(context.Context, *productdomain.Product) (*producttypes.ProductProjection, error) {
	return nil, f.err
}

type failingStockUnitOfWork struct {
	inner ports.UnitOfWork
	err   error
}

func (u failingStockUnitOfWork) Do(ctx context.Context, fn func(context.Context, ports.TxScope) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, tx ports.TxScope) error {
		tx.Products = failingStockRepo{Repository: tx.Products, err: u.err}
		return fn(ctx, tx)
	})
}

func TestAssociateProduct_StockWriteFailureRollsBackAssociation(t *testing.T) {
	orders := ordersmemory.NewRepository()
	products := productsmemory.NewRepository()
	boom := errors.New("disk full")
	uow := failingStockUnitOfWork{inner: ordersmemory.NewUnitOfWork(orders, products), err: boom}
	svc := NewService(orders, products, uow)

	order, err := svc.CreateOrder(context.Background(), types.CreateOrderInput{OrderParams: types.OrderParams{CustomerID: ptr(int64(1))}})
	require.NoError(t, err)
	p, err := productdomain.NewProduct(0, "A", "A", 100, 5)
	require.NoError(t, err)
	product, err := products.Create(context.Background(), p)
	require.NoError(t, err)

	_, err = svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: order.Entity.ID, ProductID: product.Entity.ID, Quantity: 2})
	require.ErrorIs(t, err, ErrStockUpdateFailed)
	require.ErrorIs(t, err, boom)

	lines, err := orders.LineItems(context.Background(), order.Entity.ID)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAssociateProduct_ConcurrentCallsSerializeStock(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture()
	productID := f.seedProduct(t, "A", 100)
	orderIDs := []int64{f.seedOrder(t), f.seedOrder(t), f.seedOrder(t), f.seedOrder(t)}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(orderID int64) {
			defer wg.Done()
			_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 2})
			errs <- err
		}(orderIDs[i%len(orderIDs)])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(20), f.stock(t, productID))
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	f := newFixture()
	a := f.seedProduct(t, "A", 5)
	b := f.seedProduct(t, "B", 1)

	_, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{
		OrderParams: types.OrderParams{CustomerID: ptr(int64(9))},
		Lines:       []types.CheckoutLine{{ProductID: a, Quantity: 2}, {ProductID: b, Quantity: 2}},
	})
	require.ErrorIs(t, err, ErrStockUpdateFailed)
	require.Equal(t, int32(5), f.stock(t, a))

	list, err := f.svc.ListOrders(context.Background(), types.ListOrdersInput{})
	require.NoError(t, err)
	require.Empty(t, list)

	placed, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{
		OrderParams: types.OrderParams{CustomerID: ptr(int64(9))},
		Lines:       []types.CheckoutLine{{ProductID: a, Quantity: 2}, {ProductID: b}},
	})
	require.NoError(t, err)
	require.Len(t, placed.Lines, 2)
	require.Equal(t, int32(3), f.stock(t, a))
	require.Equal(t, int32(0), f.stock(t, b))
}

func TestPlaceOrder_RequiresLines(t *testing.T) {
	f := newFixture()
	_, err := f.svc.PlaceOrder(context.Background(), types.PlaceOrderInput{OrderParams: types.OrderParams{CustomerID: ptr(int64(1))}})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, ErrEmptyCheckout)
}

func TestPlaceOrder_IdempotencyKeyReplays(t *testing.T) {
	f := newFixture(WithIdempotencyStore(ordersmemory.NewIdempotencyStore()))
	a := f.seedProduct(t, "A", 5)
	input := types.PlaceOrderInput{
		OrderParams:    types.OrderParams{CustomerID: ptr(int64(9))},
		Lines:          []types.CheckoutLine{{ProductID: a, Quantity: 2}},
		IdempotencyKey: "checkout-1",
	}

	first, err := f.svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, first.Order.Entity.ID, second.Order.Entity.ID)
	require.Equal(t, int32(3), f.stock(t, a))

	input.Lines[0].Quantity = 1
	_, err = f.svc.PlaceOrder(context.Background(), input)
	require.ErrorIs(t, err, ErrIdempotencyConflict)
}

func TestAssociateProduct_ConcurrentRenamesDoNotRestoreStock(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture()
	catalog := productsapp.NewService(f.products)
	productID := f.seedProduct(t, "A", 50)
	orderID := f.seedOrder(t)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := catalog.UpdateProduct(context.Background(), producttypes.UpdateProductInput{
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
	require.Equal(t, int32(30), f.stock(t, productID))

	lines, err := f.svc.FindProducts(context.Background(), types.OrderIdentifier{ID: orderID})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, int32(20), lines[0].Quantity)
}

func TestUpdateOrder_ConcurrentUpdatesKeepEveryField(t *testing.T) {
	f := newFixture()
	orderID := f.seedOrder(t)

	updates := []types.OrderParams{{Total: ptr(int64(900))}, {CustomerID: ptr(int64(77))}}
	var wg sync.WaitGroup
	errs := make(chan error, len(updates))
	for _, params := range updates {
		wg.Add(1)
		go func(params types.OrderParams) {
			defer wg.Done()
			_, err := f.svc.UpdateOrder(context.Background(), types.UpdateOrderInput{ID: orderID, OrderParams: params})
			errs <- err
		}(params)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	order, err := f.svc.FindOrderByID(context.Background(), types.OrderIdentifier{ID: orderID})
	require.NoError(t, err)
	require.Equal(t, int64(900), order.Entity.Total)
	require.Equal(t, int64(77), order.Entity.CustomerID)
}

func TestAssociateProduct_BackorderCannotWrapStock(t *testing.T) {
	f := newFixture(WithStockPolicy(productdomain.StockPolicyBackorder))
	productID := f.seedProduct(t, "A", 0)
	first, second := f.seedOrder(t), f.seedOrder(t)

	_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: first, ProductID: productID, Quantity: math.MaxInt32})
	require.NoError(t, err)
	require.Equal(t, int32(-math.MaxInt32), f.stock(t, productID))

	_, err = f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: second, ProductID: productID, Quantity: math.MaxInt32})
	require.ErrorIs(t, err, ErrStockUpdateFailed)
	require.ErrorIs(t, err, productdomain.ErrInsufficientStock)
	require.Equal(t, int32(-math.MaxInt32), f.stock(t, productID))

	lines, err := f.svc.FindProducts(context.Background(), types.OrderIdentifier{ID: second})
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestAssociateProduct_LineQuantityOverflowIsInvalidArgument(t *testing.T) {
	f := newFixture(WithStockPolicy(productdomain.StockPolicyBackorder))
	productID := f.seedProduct(t, "A", 0)
	orderID := f.seedOrder(t)

	_, err := f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: math.MaxInt32})
	require.NoError(t, err)
	_, err = f.svc.AssociateProduct(context.Background(), types.AssociateProductInput{OrderID: orderID, ProductID: productID, Quantity: 1})
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.ErrorIs(t, err, domain.ErrQuantityTooLarge)
}
