package storefrontserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	orderhttpmapper "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application/types"
	ordersports "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/ports"
)

// OrderAPI wires HTTP transport with the orders bounded context service.
type OrderAPI struct {
	service ordersports.Service
}

// NewOrderAPI creates an OrderAPI backed by the provided service.
func NewOrderAPI(service ordersports.Service) OrderAPI {
	return OrderAPI{service: service}
}

// Post /v1/orders
// Create an order
func (api *OrderAPI) CreateOrder(c *gin.Context) {
	var payload orderhttpmapper.OrderParams
	if !bindJSON(c, &payload) {
		return
	}
	created, err := api.service.CreateOrder(c.Request.Context(), ordertypes.CreateOrderInput{OrderParams: orderhttpmapper.ToOrderParams(payload)})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderhttpmapper.FromProjection(created))
}

// Get /v1/orders
// List orders sorted by ?sort= and ?direction= (default id, desc)
func (api *OrderAPI) ListOrders(c *gin.Context) {
	input := ordertypes.ListOrdersInput{
		SortField:     c.Query("sort"),
		SortDirection: c.Query("direction"),
	}
	orders, err := api.service.ListOrders(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromProjectionList(orders))
}

// Get /v1/orders/:orderId
// Find order by ID
func (api *OrderAPI) GetOrderById(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	order, err := api.service.FindOrderByID(c.Request.Context(), ordertypes.OrderIdentifier{ID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromProjection(order))
}

// Put /v1/orders/:orderId
// Update the provided attributes of an order
func (api *OrderAPI) UpdateOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.OrderParams
	if !bindJSON(c, &payload) {
		return
	}
	updated, err := api.service.UpdateOrder(c.Request.Context(), ordertypes.UpdateOrderInput{ID: id, OrderParams: orderhttpmapper.ToOrderParams(payload)})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromProjection(updated))
}

// Get /v1/orders/:orderId/products
// List the products of an order with their quantities
func (api *OrderAPI) FindOrderProducts(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	lines, err := api.service.FindProducts(c.Request.Context(), ordertypes.OrderIdentifier{ID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromLineItems(lines))
}

// Post /v1/orders/:orderId/products
// Add a product to an order and decrement its stock
func (api *OrderAPI) AssociateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}
	var payload orderhttpmapper.AssociateProduct
	if !bindJSON(c, &payload) {
		return
	}
	line, err := api.service.AssociateProduct(c.Request.Context(), ordertypes.AssociateProductInput{
		OrderID:   id,
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderhttpmapper.FromLineItem(*line))
}
