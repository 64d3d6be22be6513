package storefrontserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Apurer/go-gin-storefront-api/internal/platform/metrics"
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the API implementations served by the router.
type ApiHandleFunctions struct {
	OrderAPI    OrderAPI
	ProductAPI  ProductAPI
	CheckoutAPI CheckoutAPI
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the API routes to an existing engine. Middleware
// must be registered on router before calling it.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		router.Handle(route.Method, route.Pattern, route.HandlerFunc)
	}
	return router
}

// DefaultHandleFunc answers routes whose handler is not wired.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

// Healthz reports liveness.
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{"Healthz", http.MethodGet, "/healthz", Healthz},
		{"Metrics", http.MethodGet, "/metrics", gin.WrapH(metrics.Handler())},
		{
			"CreateOrder",
			http.MethodPost,
			"/v1/orders",
			handleFunctions.OrderAPI.CreateOrder,
		},
		{
			"ListOrders",
			http.MethodGet,
			"/v1/orders",
			handleFunctions.OrderAPI.ListOrders,
		},
		{
			"GetOrderById",
			http.MethodGet,
			"/v1/orders/:orderId",
			handleFunctions.OrderAPI.GetOrderById,
		},
		{
			"UpdateOrder",
			http.MethodPut,
			"/v1/orders/:orderId",
			handleFunctions.OrderAPI.UpdateOrder,
		},
		{
			"FindOrderProducts",
			http.MethodGet,
			"/v1/orders/:orderId/products",
			handleFunctions.OrderAPI.FindOrderProducts,
		},
		{
			"AssociateProduct",
			http.MethodPost,
			"/v1/orders/:orderId/products",
			handleFunctions.OrderAPI.AssociateProduct,
		},
		{
			"PlaceOrder",
			http.MethodPost,
			"/v1/checkout",
			handleFunctions.CheckoutAPI.PlaceOrder,
		},
		{
			"CreateProduct",
			http.MethodPost,
			"/v1/products",
			handleFunctions.ProductAPI.CreateProduct,
		},
		{
			"ListProducts",
			http.MethodGet,
			"/v1/products",
			handleFunctions.ProductAPI.ListProducts,
		},
		{
			"GetProductById",
			http.MethodGet,
			"/v1/products/:productId",
			handleFunctions.ProductAPI.GetProductById,
		},
		{
			"UpdateProduct",
			http.MethodPut,
			"/v1/products/:productId",
			handleFunctions.ProductAPI.UpdateProduct,
		},
	}
}
