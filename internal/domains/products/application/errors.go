package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/domain"
	"github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant or a storage constraint.
	ErrInvalidInput = errors.New("invalid product input")
	// ErrNotFound is re-exported so adapters only depend on the application package.
	ErrNotFound = ports.ErrNotFound
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyName) ||
		errors.Is(err, domain.ErrEmptySKU) ||
		errors.Is(err, domain.ErrInvalidPrice) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrInvalidStock) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, ports.ErrConstraintViolation) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
