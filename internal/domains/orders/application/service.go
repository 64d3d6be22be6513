package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	types "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productsapp "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application"
	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	productdomain "github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	productports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

// Service orchestrates the order use cases.
type Service struct {
	repo        ports.Repository
	products    productports.Repository
	uow         ports.UnitOfWork
	policy      productdomain.StockPolicy
	idempotency ports.IdempotencyStore
}

type Option func(*Service)

// WithStockPolicy selects how associations treat requests exceeding stock.
func WithStockPolicy(policy productdomain.StockPolicy) Option {
	return func(s *Service) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithIdempotencyStore enables replay of checkouts carrying an idempotency key.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(s *Service) {
		s.idempotency = store
	}
}

// NewService wires the order service. Reads go through repo and products; writes
// that touch both contexts run inside uow.
func NewService(repo ports.Repository, products productports.Repository, uow ports.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		products: products,
		uow:      uow,
		policy:   productdomain.StockPolicyReject,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateOrder persists a new order built from the supplied attributes.
func (s *Service) CreateOrder(ctx context.Context, input types.CreateOrderInput) (*types.OrderProjection, error) {
	order, err := buildOrderFromParams(input.OrderParams)
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// UpdateOrder applies the provided attributes under the order's row lock and
// returns the order as re-read from the store.
func (s *Service) UpdateOrder(ctx context.Context, input types.UpdateOrderInput) (*types.OrderProjection, error) {
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.TxScope) error {
		current, err := tx.Orders.GetByIDForUpdate(ctx, input.ID)
		if err != nil {
			return err
		}
		order := current.Entity
		if err := applyParams(order, input.OrderParams); err != nil {
			return err
		}
		if err := order.Validate(); err != nil {
			return err
		}
		return tx.Orders.Update(ctx, order)
	})
	if err != nil {
		return nil, mapError(err)
	}
	if evicter, ok := s.repo.(ports.CacheEvicter); ok {
		// a failed eviction leaves the cache bypassed for this order
		_ = evicter.Evict(ctx, input.ID)
	}
	refreshed, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return refreshed, nil
}

// FindOrderByID loads a single order.
func (s *Service) FindOrderByID(ctx context.Context, input types.OrderIdentifier) (*types.OrderProjection, error) {
	result, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// ListOrders returns every order in the requested order, id descending by default.
func (s *Service) ListOrders(ctx context.Context, input types.ListOrdersInput) ([]*types.OrderProjection, error) {
	sort, err := domain.ParseSort(input.SortField, input.SortDirection)
	if err != nil {
		return nil, mapError(err)
	}
	result, err := s.repo.List(ctx, sort)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// FindProducts returns the products associated with an order and their quantities.
func (s *Service) FindProducts(ctx context.Context, input types.OrderIdentifier) ([]types.LineItemView, error) {
	if _, err := s.repo.GetByID(ctx, input.ID); err != nil {
		return nil, mapError(err)
	}
	lines, err := s.repo.LineItems(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	views := make([]types.LineItemView, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, mapError(err)
		}
		views = append(views, types.LineItemView{Product: product.Entity, Quantity: line.Quantity})
	}
	return views, nil
}

// AssociateProduct attaches a product to an order and decrements its stock by
// the same quantity. Both writes commit together or not at all.
func (s *Service) AssociateProduct(ctx context.Context, input types.AssociateProductInput) (*types.LineItemView, error) {
	var view *types.LineItemView
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.TxScope) error {
		if _, err := tx.Orders.GetByID(ctx, input.OrderID); err != nil {
			return err
		}
		result, err := s.associate(ctx, tx, input.OrderID, input.ProductID, input.Quantity)
		if err != nil {
			return err
		}
		view = result
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return view, nil
}

// PlaceOrder creates an order and associates every line in a single transaction.
func (s *Service) PlaceOrder(ctx context.Context, input types.PlaceOrderInput) (*types.PlacedOrder, error) {
	if len(input.Lines) == 0 {
		return nil, mapError(ErrEmptyCheckout)
	}
	order, err := buildOrderFromParams(input.OrderParams)
	if err != nil {
		return nil, mapError(err)
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	var requestHash string
	if key != "" && s.idempotency != nil {
		requestHash, err = FingerprintPlaceOrder(input)
		if err != nil {
			return nil, err
		}
		if placed, ok, err := s.replay(ctx, key, requestHash); ok || err != nil {
			return placed, err
		}
	}

	var placed types.PlacedOrder
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.TxScope) error {
		created, err := tx.Orders.Create(ctx, order)
		if err != nil {
			return err
		}
		placed.Order = created
		for _, line := range input.Lines {
			view, err := s.associate(ctx, tx, created.Entity.ID, line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			placed.Lines = append(placed.Lines, *view)
		}
		if requestHash == "" {
			return nil
		}
		store := tx.Idempotency
		if store == nil {
			store = s.idempotency
		}
		_, err = store.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: requestHash, OrderID: created.Entity.ID})
		return err
	})
	if err != nil {
		if requestHash != "" && errors.Is(err, ports.ErrIdempotencyConflict) {
			if replayed, ok, replayErr := s.replay(ctx, key, requestHash); ok || replayErr != nil {
				return replayed, replayErr
			}
		}
		return nil, mapError(err)
	}
	return &placed, nil
}

// associate must run inside a unit of work: it locks the product row before
// touching the association so concurrent decrements serialize.
func (s *Service) associate(ctx context.Context, tx ports.TxScope, orderID, productID int64, quantity int32) (*types.LineItemView, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := tx.Products.GetByIDForUpdate(ctx, productID); err != nil {
		return nil, err
	}

	line, err := tx.Orders.FindLineItem(ctx, orderID, productID)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		line, err = domain.NewLineItem(orderID, productID, quantity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := line.Add(quantity); err != nil {
			return nil, err
		}
	}
	if err := tx.Orders.SaveLineItem(ctx, line); err != nil {
		return nil, err
	}

	stock := productsapp.NewService(tx.Products, productsapp.WithStockPolicy(s.policy))
	updated, err := stock.DecreaseStock(ctx, producttypes.DecreaseStockInput{ID: productID, Quantity: quantity})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStockUpdateFailed, err)
	}
	return &types.LineItemView{Product: updated.Entity, Quantity: line.Quantity}, nil
}

// replay returns the checkout previously stored under key. ok is false when
// the key is unknown.
func (s *Service) replay(ctx context.Context, key, requestHash string) (*types.PlacedOrder, bool, error) {
	record, err := s.idempotency.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, nil
	}
	if record.RequestHash != requestHash {
		return nil, true, ErrIdempotencyConflict
	}
	order, err := s.FindOrderByID(ctx, types.OrderIdentifier{ID: record.OrderID})
	if err != nil {
		return nil, true, err
	}
	lines, err := s.FindProducts(ctx, types.OrderIdentifier{ID: record.OrderID})
	if err != nil {
		return nil, true, err
	}
	return &types.PlacedOrder{Order: order, Lines: lines}, true, nil
}

func buildOrderFromParams(params types.OrderParams) (*domain.Order, error) {
	var reference string
	if params.Reference != nil {
		reference = *params.Reference
	}
	var customerID int64
	if params.CustomerID != nil {
		customerID = *params.CustomerID
	}
	order, err := domain.NewOrder(reference, customerID)
	if err != nil {
		return nil, err
	}
	partial := params
	partial.Reference = nil
	partial.CustomerID = nil
	if err := applyParams(order, partial); err != nil {
		return nil, err
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func applyParams(target *domain.Order, params types.OrderParams) error {
	if params.Reference != nil {
		target.Reference = *params.Reference
	}
	if params.CustomerID != nil {
		target.CustomerID = *params.CustomerID
	}
	if params.AddressID != nil {
		target.AddressID = *params.AddressID
	}
	if params.CourierID != nil {
		target.CourierID = *params.CourierID
	}
	if params.Status != nil {
		if err := target.UpdateStatus(domain.Status(*params.Status)); err != nil {
			return err
		}
	}
	if params.Payment != nil {
		target.Payment = *params.Payment
	}
	if params.Discounts != nil {
		target.Discounts = *params.Discounts
	}
	if params.TotalProducts != nil {
		target.TotalProducts = *params.TotalProducts
	}
	if params.Tax != nil {
		target.Tax = *params.Tax
	}
	if params.Total != nil {
		target.Total = *params.Total
	}
	if params.TotalPaid != nil {
		target.TotalPaid = *params.TotalPaid
	}
	if params.Invoice != nil {
		target.Invoice = *params.Invoice
	}
	if params.Metadata != nil {
		target.Metadata = make(map[string]string, len(params.Metadata))
		for k, v := range params.Metadata {
			target.Metadata[k] = v
		}
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
