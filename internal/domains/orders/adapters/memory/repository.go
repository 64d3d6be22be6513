package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-storefront-api/internal/shared/projection"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory order persistence adapter.
type Repository struct {
	mu     sync.RWMutex
	orders map[int64]*storedOrder
	lines  map[int64]map[int64]int32
	nextID int64
	now    func() time.Time
}

type storedOrder struct {
	order    *domain.Order
	metadata projection.Metadata
}

func NewRepository() *Repository {
	return &Repository{
		orders: map[int64]*storedOrder{},
		lines:  map[int64]map[int64]int32{},
		now:    time.Now,
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

func (r *Repository) Create(_ context.Context, order *domain.Order) (*ordertypes.OrderProjection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.create(order)
}

func (r *Repository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.update(order)
}

func (r *Repository) GetByID(_ context.Context, id int64) (*ordertypes.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

// GetByIDForUpdate behaves like GetByID; isolation comes from Atomically.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*ordertypes.OrderProjection, error) {
	return r.GetByID(ctx, id)
}

func (r *Repository) List(_ context.Context, sort domain.Sort) ([]*ordertypes.OrderProjection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(sort), nil
}

func (r *Repository) LineItems(_ context.Context, orderID int64) ([]domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lineItems(orderID), nil
}

func (r *Repository) FindLineItem(_ context.Context, orderID, productID int64) (domain.LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLineItem(orderID, productID)
}

func (r *Repository) SaveLineItem(_ context.Context, line domain.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLineItem(line)
}

// Atomically runs fn against a view of the store while holding the write lock.
// When fn fails orders and line items are restored to their state before the call.
func (r *Repository) Atomically(fn func(ports.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make(map[int64]*storedOrder, len(r.orders))
	for id, entry := range r.orders {
		orders[id] = &storedOrder{order: entry.order.Clone(), metadata: entry.metadata}
	}
	lines := make(map[int64]map[int64]int32, len(r.lines))
	for orderID, byProduct := range r.lines {
		copied := make(map[int64]int32, len(byProduct))
		for productID, qty := range byProduct {
			copied[productID] = qty
		}
		lines[orderID] = copied
	}
	nextID := r.nextID

	if err := fn(lockedView{r: r}); err != nil {
		r.orders = orders
		r.lines = lines
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *Repository) create(order *domain.Order) (*ordertypes.OrderProjection, error) {
	if order == nil {
		return nil, errors.New("order is nil")
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkUniqueReference(order.Reference, 0); err != nil {
		return nil, err
	}
	r.nextID++
	clone := order.Clone()
	clone.ID = r.nextID
	timestamp := r.now()
	stored := &storedOrder{order: clone, metadata: projection.Metadata{CreatedAt: timestamp, UpdatedAt: timestamp}}
	r.orders[clone.ID] = stored
	return projectionCopy(stored), nil
}

func (r *Repository) update(order *domain.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}
	entry, ok := r.orders[order.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if err := order.Validate(); err != nil {
		return err
	}
	if err := r.checkUniqueReference(order.Reference, order.ID); err != nil {
		return err
	}
	r.orders[order.ID] = &storedOrder{
		order:    order.Clone(),
		metadata: projection.Metadata{CreatedAt: entry.metadata.CreatedAt, UpdatedAt: r.now()},
	}
	return nil
}

func (r *Repository) get(id int64) (*ordertypes.OrderProjection, error) {
	entry, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return projectionCopy(entry), nil
}

func (r *Repository) list(sort domain.Sort) []*ordertypes.OrderProjection {
	list := make([]*ordertypes.OrderProjection, 0, len(r.orders))
	for _, entry := range r.orders {
		list = append(list, projectionCopy(entry))
	}
	slices.SortFunc(list, func(a, b *ordertypes.OrderProjection) int {
		c := compareBy(sort.Field, a, b)
		if c == 0 {
			c = cmp.Compare(a.Entity.ID, b.Entity.ID)
		}
		if sort.Direction == domain.SortDesc {
			return -c
		}
		return c
	})
	return list
}

func (r *Repository) lineItems(orderID int64) []domain.LineItem {
	byProduct := r.lines[orderID]
	items := make([]domain.LineItem, 0, len(byProduct))
	for productID, qty := range byProduct {
		items = append(items, domain.LineItem{OrderID: orderID, ProductID: productID, Quantity: qty})
	}
	slices.SortFunc(items, func(a, b domain.LineItem) int { return cmp.Compare(a.ProductID, b.ProductID) })
	return items
}

func (r *Repository) findLineItem(orderID, productID int64) (domain.LineItem, error) {
	qty, ok := r.lines[orderID][productID]
	if !ok {
		return domain.LineItem{}, ports.ErrNotFound
	}
	return domain.LineItem{OrderID: orderID, ProductID: productID, Quantity: qty}, nil
}

func (r *Repository) saveLineItem(line domain.LineItem) error {
	if _, ok := r.orders[line.OrderID]; !ok {
		return fmt.Errorf("%w: order %d does not exist", ports.ErrConstraintViolation, line.OrderID)
	}
	if line.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %d", ports.ErrConstraintViolation, line.Quantity)
	}
	byProduct, ok := r.lines[line.OrderID]
	if !ok {
		byProduct = map[int64]int32{}
		r.lines[line.OrderID] = byProduct
	}
	byProduct[line.ProductID] = line.Quantity
	return nil
}

func (r *Repository) checkUniqueReference(reference string, selfID int64) error {
	for id, entry := range r.orders {
		if id != selfID && entry.order.Reference == reference {
			return fmt.Errorf("%w: reference %q already exists", ports.ErrConstraintViolation, reference)
		}
	}
	return nil
}

func compareBy(field domain.SortField, a, b *ordertypes.OrderProjection) int {
	switch field {
	case domain.SortByReference:
		return cmp.Compare(a.Entity.Reference, b.Entity.Reference)
	case domain.SortByCustomerID:
		return cmp.Compare(a.Entity.CustomerID, b.Entity.CustomerID)
	case domain.SortByStatus:
		return cmp.Compare(a.Entity.Status, b.Entity.Status)
	case domain.SortByTotal:
		return cmp.Compare(a.Entity.Total, b.Entity.Total)
	case domain.SortByCreatedAt:
		return a.Metadata.CreatedAt.Compare(b.Metadata.CreatedAt)
	case domain.SortByUpdatedAt:
		return a.Metadata.UpdatedAt.Compare(b.Metadata.UpdatedAt)
	default:
		return cmp.Compare(a.Entity.ID, b.Entity.ID)
	}
}

// lockedView exposes the repository to code already holding the write lock.
type lockedView struct {
	r *Repository
}

func (v lockedView) Create(_ context.Context, order *domain.Order) (*ordertypes.OrderProjection, error) {
	return v.r.create(order)
}

func (v lockedView) Update(_ context.Context, order *domain.Order) error {
	return v.r.update(order)
}

func (v lockedView) GetByID(_ context.Context, id int64) (*ordertypes.OrderProjection, error) {
	return v.r.get(id)
}

func (v lockedView) GetByIDForUpdate(_ context.Context, id int64) (*ordertypes.OrderProjection, error) {
	return v.r.get(id)
}

func (v lockedView) List(_ context.Context, sort domain.Sort) ([]*ordertypes.OrderProjection, error) {
	return v.r.list(sort), nil
}

func (v lockedView) LineItems(_ context.Context, orderID int64) ([]domain.LineItem, error) {
	return v.r.lineItems(orderID), nil
}

func (v lockedView) FindLineItem(_ context.Context, orderID, productID int64) (domain.LineItem, error) {
	return v.r.findLineItem(orderID, productID)
}

func (v lockedView) SaveLineItem(_ context.Context, line domain.LineItem) error {
	return v.r.saveLineItem(line)
}

func projectionCopy(entry *storedOrder) *ordertypes.OrderProjection {
	return projection.New(entry.order.Clone(), entry.metadata.CreatedAt, entry.metadata.UpdatedAt)
}
