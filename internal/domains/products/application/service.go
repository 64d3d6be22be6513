package application

import (
	"context"

	types "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

// Service orchestrates the product catalog use cases.
type Service struct {
	repo   ports.Repository
	tx     ports.Transactor
	policy domain.StockPolicy
}

type Option func(*Service)

// WithStockPolicy selects how DecreaseStock treats requests exceeding stock.
func WithStockPolicy(policy domain.StockPolicy) Option {
	return func(s *Service) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithTransactor overrides the transactor used for read-modify-write calls.
func WithTransactor(tx ports.Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

// NewService wires the products service. A repository that also implements
// ports.Transactor is used as the transactor unless WithTransactor says otherwise.
func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{repo: repo, policy: domain.StockPolicyReject}
	if tx, ok := repo.(ports.Transactor); ok {
		s.tx = tx
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateProduct persists a new product.
func (s *Service) CreateProduct(ctx context.Context, input types.CreateProductInput) (*types.ProductProjection, error) {
	product, err := buildProductFromMutation(input.ProductMutationInput)
	if err != nil {
		return nil, mapError(err)
	}
	saved, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// GetProduct loads a single product.
func (s *Service) GetProduct(ctx context.Context, input types.ProductIdentifier) (*types.ProductProjection, error) {
	result, err := s.repo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// ListProducts returns the whole catalog ordered by id.
func (s *Service) ListProducts(ctx context.Context) ([]*types.ProductProjection, error) {
	result, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// UpdateProduct applies the provided fields to an existing product while
// holding its row lock, so a concurrent stock decrement is never overwritten.
func (s *Service) UpdateProduct(ctx context.Context, input types.UpdateProductInput) (*types.ProductProjection, error) {
	saved, err := s.modify(ctx, input.ID, func(product *domain.Product) error {
		return applyPartialMutation(product, input.ProductMutationInput)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// DecreaseStock removes units from stock under the configured policy. Callers
// that need atomicity with other writes bind the service to a transactional repository.
func (s *Service) DecreaseStock(ctx context.Context, input types.DecreaseStockInput) (*types.ProductProjection, error) {
	saved, err := s.modify(ctx, input.ID, func(product *domain.Product) error {
		return product.DecreaseStock(input.Quantity, s.policy)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return saved, nil
}

// modify locks the product, applies change and writes it back in one transaction.
func (s *Service) modify(ctx context.Context, id int64, change func(*domain.Product) error) (*types.ProductProjection, error) {
	var saved *types.ProductProjection
	run := func(ctx context.Context, repo ports.Repository) error {
		current, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := change(current.Entity); err != nil {
			return err
		}
		saved, err = repo.Update(ctx, current.Entity)
		return err
	}
	var err error
	if s.tx == nil {
		err = run(ctx, s.repo)
	} else {
		err = s.tx.WithinTx(ctx, run)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func buildProductFromMutation(input types.ProductMutationInput) (*domain.Product, error) {
	if input.SKU == nil {
		return nil, domain.ErrEmptySKU
	}
	if input.Name == nil {
		return nil, domain.ErrEmptyName
	}
	var price int64
	if input.PriceMinor != nil {
		price = *input.PriceMinor
	}
	var quantity int32
	if input.Quantity != nil {
		quantity = *input.Quantity
	}
	product, err := domain.NewProduct(0, *input.SKU, *input.Name, price, quantity)
	if err != nil {
		return nil, err
	}
	partial := input
	partial.SKU = nil
	partial.Name = nil
	partial.PriceMinor = nil
	partial.Quantity = nil
	if err := applyPartialMutation(product, partial); err != nil {
		return nil, err
	}
	return product, nil
}

func applyPartialMutation(target *domain.Product, input types.ProductMutationInput) error {
	if input.SKU != nil {
		if err := target.ChangeSKU(*input.SKU); err != nil {
			return err
		}
	}
	if input.Name != nil {
		if err := target.Rename(*input.Name); err != nil {
			return err
		}
	}
	if input.Description != nil {
		target.Description = *input.Description
	}
	if input.PriceMinor != nil {
		if err := target.Reprice(*input.PriceMinor); err != nil {
			return err
		}
	}
	if input.Quantity != nil {
		if err := target.Restock(*input.Quantity); err != nil {
			return err
		}
	}
	if input.ImageURLs != nil {
		target.ReplaceImages(*input.ImageURLs)
	}
	if input.Status != nil {
		if err := target.UpdateStatus(domain.Status(*input.Status)); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.Service = (*Service)(nil)
