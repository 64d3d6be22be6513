package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
	productports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

var (
	// ErrInvalidArgument signals the store or a domain invariant rejected the request.
	ErrInvalidArgument = errors.New("invalid order argument")
	// ErrStockUpdateFailed wraps any failure of the stock decrement performed while associating a product.
	ErrStockUpdateFailed = errors.New("product stock update failed")
	// ErrEmptyCheckout is returned when a checkout carries no lines.
	ErrEmptyCheckout = errors.New("checkout requires at least one line")

	ErrNotFound            = ports.ErrNotFound
	ErrProductNotFound     = productports.ErrNotFound
	ErrIdempotencyConflict = ports.ErrIdempotencyConflict
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStockUpdateFailed) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	if errors.Is(err, domain.ErrInvalidCustomerID) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrNegativeAmount) ||
		errors.Is(err, domain.ErrEmptyReference) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrQuantityTooLarge) ||
		errors.Is(err, domain.ErrInvalidSortField) ||
		errors.Is(err, domain.ErrInvalidSortDirection) ||
		errors.Is(err, ErrEmptyCheckout) ||
		errors.Is(err, ports.ErrConstraintViolation) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
