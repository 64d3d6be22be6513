package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	types "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
)

type normalizedPlaceOrderInput struct {
	Reference     *string          `json:"reference"`
	CustomerID    *int64           `json:"customerId"`
	AddressID     *int64           `json:"addressId"`
	CourierID     *int64           `json:"courierId"`
	Status        *string          `json:"status"`
	Payment       *string          `json:"payment"`
	Discounts     *int64           `json:"discounts"`
	TotalProducts *int64           `json:"totalProducts"`
	Tax           *int64           `json:"tax"`
	Total         *int64           `json:"total"`
	TotalPaid     *int64           `json:"totalPaid"`
	Invoice       *string          `json:"invoice"`
	Metadata      []normalizedKV   `json:"metadata,omitempty"`
	Lines         []normalizedLine `json:"lines"`
}

type normalizedKV struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type normalizedLine struct {
	ProductID int64 `json:"productId"`
	Quantity  int32 `json:"quantity"`
}

// FingerprintPlaceOrder builds a deterministic hash of the checkout payload (excluding the idempotency key).
func FingerprintPlaceOrder(input types.PlaceOrderInput) (string, error) {
	payload, err := json.Marshal(normalizePlaceOrderInput(input))
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func normalizePlaceOrderInput(input types.PlaceOrderInput) normalizedPlaceOrderInput {
	p := input.OrderParams
	normalized := normalizedPlaceOrderInput{
		Reference:     p.Reference,
		CustomerID:    p.CustomerID,
		AddressID:     p.AddressID,
		CourierID:     p.CourierID,
		Status:        p.Status,
		Payment:       p.Payment,
		Discounts:     p.Discounts,
		TotalProducts: p.TotalProducts,
		Tax:           p.Tax,
		Total:         p.Total,
		TotalPaid:     p.TotalPaid,
		Invoice:       p.Invoice,
	}
	for k, v := range p.Metadata {
		normalized.Metadata = append(normalized.Metadata, normalizedKV{Key: k, Value: v})
	}
	sort.Slice(normalized.Metadata, func(i, j int) bool { return normalized.Metadata[i].Key < normalized.Metadata[j].Key })

	// Line order matters for the response, so it is part of the fingerprint.
	normalized.Lines = make([]normalizedLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		qty := line.Quantity
		if qty == 0 {
			qty = 1
		}
		normalized.Lines = append(normalized.Lines, normalizedLine{ProductID: line.ProductID, Quantity: qty})
	}
	return normalized
}
