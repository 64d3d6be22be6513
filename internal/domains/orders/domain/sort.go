package domain

import (
	"errors"
	"fmt"
	"strings"
)

// SortField names an order attribute the listing can be sorted by.
type SortField string

const (
	SortByID         SortField = "id"
	SortByReference  SortField = "reference"
	SortByCustomerID SortField = "customer_id"
	SortByStatus     SortField = "status"
	SortByTotal      SortField = "total"
	SortByCreatedAt  SortField = "created_at"
	SortByUpdatedAt  SortField = "updated_at"
)

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

var (
	ErrInvalidSortField     = errors.New("unknown order sort field")
	ErrInvalidSortDirection = errors.New("sort direction must be asc or desc")
)

// Sort describes the ordering of an order listing.
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSort lists the newest orders first.
var DefaultSort = Sort{Field: SortByID, Direction: SortDesc}

// ParseSort validates user supplied sort parameters. Empty values fall back to DefaultSort.
func ParseSort(field, direction string) (Sort, error) {
	sort := DefaultSort
	if f := strings.ToLower(strings.TrimSpace(field)); f != "" {
		switch SortField(f) {
		case SortByID, SortByReference, SortByCustomerID, SortByStatus, SortByTotal, SortByCreatedAt, SortByUpdatedAt:
			sort.Field = SortField(f)
		default:
			return Sort{}, fmt.Errorf("%w: %q", ErrInvalidSortField, field)
		}
	}
	if d := strings.ToLower(strings.TrimSpace(direction)); d != "" {
		switch SortDirection(d) {
		case SortAsc, SortDesc:
			sort.Direction = SortDirection(d)
		default:
			return Sort{}, fmt.Errorf("%w: %q", ErrInvalidSortDirection, direction)
		}
	}
	return sort, nil
}
