package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

var (
	_ ports.Repository = (*Repository)(nil)
	_ ports.Transactor = (*Repository)(nil)
)

// Repository is an in-memory product store used for demos and tests.
type Repository struct {
	mu       sync.RWMutex
	products map[int64]*storedProduct
	nextID   int64
	now      func() time.Time
}

type storedProduct struct {
	product  *domain.Product
	metadata projection.Metadata
}

// NewRepository constructs an empty in-memory store.
func NewRepository() *Repository {
	return &Repository{
		products: map[int64]*storedProduct{},
		now:      time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (r *Repository) WithClock(now func() time.Time) {
	if now == nil {
		return
	}
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Create assigns an identifier and stores the product.
func (r *Repository) Create(_ context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(product)
}

// Update replaces an existing product.
func (r *Repository) Update(_ context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(product)
}

// GetByID fetches a product if present.
func (r *Repository) GetByID(_ context.Context, id int64) (*producttypes.ProductProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

// GetByIDForUpdate behaves like GetByID; isolation comes from Atomically.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*producttypes.ProductProjection, error) {
	return r.GetByID(ctx, id)
}

// List returns every product ordered by id.
func (r *Repository) List(_ context.Context) ([]*producttypes.ProductProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(), nil
}

// Atomically runs fn against a view of the store while holding the write lock.
// When fn fails every product is restored to its state before the call.
func (r *Repository) Atomically(fn func(ports.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[int64]*storedProduct, len(r.products))
	for id, entry := range r.products {
		snapshot[id] = &storedProduct{product: entry.product.Clone(), metadata: entry.metadata}
	}
	nextID := r.nextID

	if err := fn(lockedView{r: r}); err != nil {
		r.products = snapshot
		r.nextID = nextID
		return err
	}
	return nil
}

// WithinTx runs fn under Atomically.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, repo ports.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Atomically(func(repo ports.Repository) error {
		return fn(ctx, repo)
	})
}

func (r *Repository) create(product *domain.Product) (*producttypes.ProductProjection, error) {
	if product == nil {
		return nil, errors.New("cannot create nil product")
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkUniqueSKU(product.SKU, 0); err != nil {
		return nil, err
	}
	r.nextID++
	clone := product.Clone()
	clone.ID = r.nextID
	timestamp := r.now()
	stored := &storedProduct{
		product:  clone,
		metadata: projection.Metadata{CreatedAt: timestamp, UpdatedAt: timestamp},
	}
	r.products[clone.ID] = stored
	return projectionCopy(stored), nil
}

func (r *Repository) update(product *domain.Product) (*producttypes.ProductProjection, error) {
	if product == nil {
		return nil, errors.New("cannot update nil product")
	}
	entry, ok := r.products[product.ID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkUniqueSKU(product.SKU, product.ID); err != nil {
		return nil, err
	}
	stored := &storedProduct{
		product:  product.Clone(),
		metadata: projection.Metadata{CreatedAt: entry.metadata.CreatedAt, UpdatedAt: r.now()},
	}
	r.products[product.ID] = stored
	return projectionCopy(stored), nil
}

func (r *Repository) get(id int64) (*producttypes.ProductProjection, error) {
	entry, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return projectionCopy(entry), nil
}

func (r *Repository) list() []*producttypes.ProductProjection {
	list := make([]*producttypes.ProductProjection, 0, len(r.products))
	for _, entry := range r.products {
		list = append(list, projectionCopy(entry))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Entity.ID < list[j].Entity.ID })
	return list
}

func (r *Repository) checkUniqueSKU(sku string, selfID int64) error {
	for id, entry := range r.products {
		if id != selfID && entry.product.SKU == sku {
			return fmt.Errorf("%w: sku %q already exists", ports.ErrConstraintViolation, sku)
		}
	}
	return nil
}

// lockedView exposes the repository to code already holding the write lock.
type lockedView struct {
	r *Repository
}

func (v lockedView) Create(_ context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	return v.r.create(product)
}

func (v lockedView) Update(_ context.Context, product *domain.Product) (*producttypes.ProductProjection, error) {
	return v.r.update(product)
}

func (v lockedView) GetByID(_ context.Context, id int64) (*producttypes.ProductProjection, error) {
	return v.r.get(id)
}

func (v lockedView) GetByIDForUpdate(_ context.Context, id int64) (*producttypes.ProductProjection, error) {
	return v.r.get(id)
}

func (v lockedView) List(_ context.Context) ([]*producttypes.ProductProjection, error) {
	return v.r.list(), nil
}

func projectionCopy(entry *storedProduct) *producttypes.ProductProjection {
	return projection.New(entry.product.Clone(), entry.metadata.CreatedAt, entry.metadata.UpdatedAt)
}
