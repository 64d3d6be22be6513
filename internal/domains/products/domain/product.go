package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Status represents whether a product can still be sold.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// StockPolicy decides what happens when a sale would take stock below zero.
type StockPolicy string

const (
	// StockPolicyReject refuses decrements that would leave negative stock.
	StockPolicyReject StockPolicy = "reject"
	// StockPolicyBackorder accepts negative stock as outstanding backorders.
	StockPolicyBackorder StockPolicy = "backorder"
)

var (
	ErrEmptyName         = errors.New("product name is required")
	ErrEmptySKU          = errors.New("product sku is required")
	ErrInvalidPrice      = errors.New("product price must be greater or equal to zero")
	ErrInvalidStatus     = errors.New("product status is invalid")
	ErrInvalidStock      = errors.New("product stock must be greater or equal to zero")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownPolicy     = errors.New("unknown stock policy")
)

// Product is the catalog aggregate whose Quantity tracks the units in stock.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
	PriceMinor  int64
	Quantity    int32
	ImageURLs   []string
	Status      Status
}

// NewProduct validates the invariants and builds a new Product aggregate.
func NewProduct(id int64, sku, name string, priceMinor int64, quantity int32) (*Product, error) {
	p := &Product{ID: id, Status: StatusActive}
	if err := p.ChangeSKU(sku); err != nil {
		return nil, err
	}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	if err := p.Reprice(priceMinor); err != nil {
		return nil, err
	}
	if err := p.Restock(quantity); err != nil {
		return nil, err
	}
	return p, nil
}

// Rename mutates the product name ensuring the invariant.
func (p *Product) Rename(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	p.Name = name
	return nil
}

// ChangeSKU replaces the stock keeping unit.
func (p *Product) ChangeSKU(sku string) error {
	if strings.TrimSpace(sku) == "" {
		return ErrEmptySKU
	}
	p.SKU = sku
	return nil
}

// Reprice sets the unit price expressed in minor currency units.
func (p *Product) Reprice(priceMinor int64) error {
	if priceMinor < 0 {
		return ErrInvalidPrice
	}
	p.PriceMinor = priceMinor
	return nil
}

// Restock overwrites the stock level, as done by catalog administration.
func (p *Product) Restock(quantity int32) error {
	if quantity < 0 {
		return ErrInvalidStock
	}
	p.Quantity = quantity
	return nil
}

// UpdateStatus accepts only known states and defaults to active.
func (p *Product) UpdateStatus(status Status) error {
	if status == "" {
		status = StatusActive
	}
	if !isValidStatus(status) {
		return ErrInvalidStatus
	}
	p.Status = status
	return nil
}

// ReplaceImages overwrites the image URLs.
func (p *Product) ReplaceImages(urls []string) {
	p.ImageURLs = append([]string(nil), urls...)
}

// DecreaseStock removes qty units from stock according to policy.
func (p *Product) DecreaseStock(qty int32, policy StockPolicy) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if policy == "" {
		policy = StockPolicyReject
	}
	switch policy {
	case StockPolicyReject:
		if p.Quantity < qty {
			return fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, p.ID, p.Quantity, qty)
		}
	case StockPolicyBackorder:
		if int64(p.Quantity)-int64(qty) < math.MinInt32 {
			return fmt.Errorf("%w: product %d cannot be backordered by another %d", ErrInsufficientStock, p.ID, qty)
		}
	default:
		return ErrUnknownPolicy
	}
	p.Quantity -= qty
	return nil
}

// Validate enforces invariants on the aggregate. Stock is not checked here
// because backordered products legitimately carry negative stock.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" {
		return ErrEmptySKU
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.PriceMinor < 0 {
		return ErrInvalidPrice
	}
	if !isValidStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Clone returns a deep copy of the aggregate.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.ImageURLs = append([]string(nil), p.ImageURLs...)
	return &clone
}

// ParseStockPolicy converts configuration text to a StockPolicy.
func ParseStockPolicy(raw string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StockPolicyReject:
		return StockPolicyReject, nil
	case StockPolicyBackorder:
		return StockPolicyBackorder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, raw)
	}
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusActive, StatusArchived:
		return true
	default:
		return false
	}
}
