package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	ErrInvalidCustomerID = errors.New("customer id must be greater than zero")
	ErrInvalidStatus     = errors.New("order status is invalid")
	ErrNegativeAmount    = errors.New("order amounts must be greater or equal to zero")
	ErrEmptyReference    = errors.New("order reference is required")
)

// Order models a customer purchase. Monetary amounts are in minor currency units.
type Order struct {
	ID            int64
	Reference     string
	CustomerID    int64
	AddressID     int64
	CourierID     int64
	Status        Status
	Payment       string
	Discounts     int64
	TotalProducts int64
	Tax           int64
	Total         int64
	TotalPaid     int64
	Invoice       string
	Metadata      map[string]string
}

// NewOrder validates and constructs a new Order aggregate. An empty reference
// is replaced by a generated one.
func NewOrder(reference string, customerID int64) (*Order, error) {
	if strings.TrimSpace(reference) == "" {
		reference = NewReference()
	}
	order := &Order{Reference: reference, CustomerID: customerID, Status: StatusPending}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// NewReference returns a random order reference.
func NewReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.Reference) == "" {
		return ErrEmptyReference
	}
	if o.CustomerID <= 0 {
		return ErrInvalidCustomerID
	}
	if !isValidStatus(o.Status) {
		return ErrInvalidStatus
	}
	for _, amount := range []int64{o.Discounts, o.TotalProducts, o.Tax, o.Total, o.TotalPaid} {
		if amount < 0 {
			return ErrNegativeAmount
		}
	}
	return nil
}

// UpdateStatus ensures only known states are accepted and defaults to pending.
func (o *Order) UpdateStatus(status Status) error {
	if status == "" {
		status = StatusPending
	}
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}
	o.Status = status
	return nil
}

// Clone returns a deep copy of the aggregate.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Metadata != nil {
		clone.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}
