package domain

import (
	"errors"
	"math"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrQuantityTooLarge = errors.New("line quantity exceeds the supported maximum")
)

// LineItem is the association between an order and a product.
type LineItem struct {
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

// NewLineItem builds an association, rejecting non-positive quantities.
func NewLineItem(orderID, productID int64, quantity int32) (LineItem, error) {
	if quantity <= 0 {
		return LineItem{}, ErrInvalidQuantity
	}
	return LineItem{OrderID: orderID, ProductID: productID, Quantity: quantity}, nil
}

// Add accumulates quantity onto an existing association.
func (l *LineItem) Add(quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if int64(l.Quantity)+int64(quantity) > math.MaxInt32 {
		return ErrQuantityTooLarge
	}
	l.Quantity += quantity
	return nil
}
