package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/memory"
	types "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

func ptr[T any](v T) *T { return &v }

func seedProduct(t *testing.T, svc *Service, sku string, qty int32) *types.ProductProjection {
	t.Helper()
	created, err := svc.CreateProduct(context.Background(), types.CreateProductInput{ProductMutationInput: types.ProductMutationInput{
		SKU:        ptr(sku),
		Name:       ptr("Product " + sku),
		PriceMinor: ptr(int64(1999)),
		Quantity:   ptr(qty),
	}})
	require.NoError(t, err)
	return created
}

func TestCreateProduct_RequiresSKUAndName(t *testing.T) {
	svc := NewService(memory.NewRepository())

	_, err := svc.CreateProduct(context.Background(), types.CreateProductInput{ProductMutationInput: types.ProductMutationInput{Name: ptr("Lamp")}})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.ErrorIs(t, err, domain.ErrEmptySKU)

	_, err = svc.CreateProduct(context.Background(), types.CreateProductInput{ProductMutationInput: types.ProductMutationInput{SKU: ptr("L-1")}})
	require.ErrorIs(t, err, domain.ErrEmptyName)
}

func TestCreateProduct_DuplicateSKUIsInvalidInput(t *testing.T) {
	svc := NewService(memory.NewRepository())
	seedProduct(t, svc, "L-1", 1)

	_, err := svc.CreateProduct(context.Background(), types.CreateProductInput{ProductMutationInput: types.ProductMutationInput{
		SKU: ptr("L-1"), Name: ptr("Other"),
	}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateProduct_AppliesOnlyProvidedFields(t *testing.T) {
	svc := NewService(memory.NewRepository())
	created := seedProduct(t, svc, "L-1", 4)

	updated, err := svc.UpdateProduct(context.Background(), types.UpdateProductInput{
		ID:                   created.Entity.ID,
		ProductMutationInput: types.ProductMutationInput{Description: ptr("brass"), Quantity: ptr(int32(9))},
	})
	require.NoError(t, err)
	require.Equal(t, "Product L-1", updated.Entity.Name)
	require.Equal(t, "brass", updated.Entity.Description)
	require.Equal(t, int32(9), updated.Entity.Quantity)
	require.Equal(t, int64(1999), updated.Entity.PriceMinor)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	svc := NewService(memory.NewRepository())
	_, err := svc.UpdateProduct(context.Background(), types.UpdateProductInput{ID: 99})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecreaseStock_RespectsPolicy(t *testing.T) {
	repo := memory.NewRepository()
	reject := NewService(repo)
	created := seedProduct(t, reject, "L-1", 2)

	_, err := reject.DecreaseStock(context.Background(), types.DecreaseStockInput{ID: created.Entity.ID, Quantity: 3})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	backorder := NewService(repo, WithStockPolicy(domain.StockPolicyBackorder))
	result, err := backorder.DecreaseStock(context.Background(), types.DecreaseStockInput{ID: created.Entity.ID, Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, int32(-1), result.Entity.Quantity)
}

func TestListProducts_OrderedByID(t *testing.T) {
	svc := NewService(memory.NewRepository())
	seedProduct(t, svc, "B", 1)
	seedProduct(t, svc, "A", 1)

	list, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "B", list[0].Entity.SKU)
	require.Equal(t, "A", list[1].Entity.SKU)
}

// interleavingTransactor calls afterRead once the transaction has loaded the
// product, letting a test start a competing write at the worst moment.
type interleavingTransactor struct {
	*memory.Repository
	afterRead func()
}

func (i interleavingTransactor) WithinTx(ctx context.Context, fn func(context.Context, ports.Repository) error) error {
	return i.Repository.WithinTx(ctx, func(ctx context.Context, repo ports.Repository) error {
		return fn(ctx, readHook{Repository: repo, afterRead: i.afterRead})
	})
}

type readHook struct {
	ports.Repository
	afterRead func()
}

func (r readHook) GetByIDForUpdate(ctx context.Context, id int64) (*types.ProductProjection, error) {
	current, err := r.Repository.GetByIDForUpdate(ctx, id)
	r.afterRead()
	return current, err
}

func TestUpdateProduct_RenameKeepsConcurrentStockDecrease(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	seller := NewService(repo)
	created := seedProduct(t, seller, "L-1", 10)

	sold := make(chan error, 1)
	editor := NewService(repo, WithTransactor(interleavingTransactor{
		Repository: repo,
		afterRead: func() {
			go func() {
				_, err := seller.DecreaseStock(ctx, types.DecreaseStockInput{ID: created.Entity.ID, Quantity: 3})
				sold <- err
			}()
		},
	}))

	renamed, err := editor.UpdateProduct(ctx, types.UpdateProductInput{
		ID:                   created.Entity.ID,
		ProductMutationInput: types.ProductMutationInput{Name: ptr("Renamed")},
	})
	require.NoError(t, err)
	require.Equal(t, int32(10), renamed.Entity.Quantity)
	require.NoError(t, <-sold)

	current, err := seller.GetProduct(ctx, types.ProductIdentifier{ID: created.Entity.ID})
	require.NoError(t, err)
	require.Equal(t, "Renamed", current.Entity.Name)
	require.Equal(t, int32(7), current.Entity.Quantity)
}

func TestUpdateProduct_FailedChangeLeavesProductUntouched(t *testing.T) {
	svc := NewService(memory.NewRepository())
	created := seedProduct(t, svc, "L-1", 4)

	_, err := svc.UpdateProduct(context.Background(), types.UpdateProductInput{
		ID:                   created.Entity.ID,
		ProductMutationInput: types.ProductMutationInput{Name: ptr("Lamp"), PriceMinor: ptr(int64(-1))},
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	current, err := svc.GetProduct(context.Background(), types.ProductIdentifier{ID: created.Entity.ID})
	require.NoError(t, err)
	require.Equal(t, "Product L-1", current.Entity.Name)
}
