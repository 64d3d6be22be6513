//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "storefront-api"
	ConsumerName = "storefront-web"

	StateOrdersBaseline  = "orders baseline"
	StateOrderExists     = "order with id 1 exists"
	StateOrderMissing    = "no order with id 999"
	StateOrderAndProduct = "order 1 and product 1 with stock 5 exist"
	StateProductLowStock = "order 1 and product 1 with stock 1 exist"
)

// Fresh in-memory stores assign ids from 1.
const (
	ExistingOrderID   int64 = 1
	MissingOrderID    int64 = 999
	ExistingProductID int64 = 1

	ExampleCustomerID int64 = 42
	ExampleReference        = "PACT-ORDER-1"
	ExampleProductSKU       = "PACT-MUG"
)

// PactDir is where consumer runs write pacts and the provider verifies them.
func PactDir(t testing.TB) string {
	return ensureDir(t, "pacts")
}

func PactFile(t testing.TB) string {
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir collects pact-go mock server logs.
func LogDir(t testing.TB) string {
	return ensureDir(t, "bin", "pact-logs")
}

// ExampleOrderPayload provides stable test data for order interactions.
func ExampleOrderPayload() map[string]any {
	return map[string]any{
		"reference":  ExampleReference,
		"customerId": ExampleCustomerID,
		"total":      2500,
	}
}

// ensureDir creates a directory relative to the repository root.
func ensureDir(t testing.TB, parts ...string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate pact helpers on disk")
	}
	root := filepath.Join(filepath.Dir(file), "..", "..")
	dir := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	return dir
}
