package storefrontserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	producthttpmapper "github.com/Apurer/go-gin-storefront-api/internal/domains/products/adapters/http/mapper"
	producttypes "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application/types"
	productsports "github.com/Apurer/go-gin-storefront-api/internal/domains/products/ports"
)

// ProductAPI exposes the product catalog.
type ProductAPI struct {
	service productsports.Service
}

func NewProductAPI(service productsports.Service) ProductAPI {
	return ProductAPI{service: service}
}

// Post /v1/products
func (api *ProductAPI) CreateProduct(c *gin.Context) {
	var payload producthttpmapper.ProductMutation
	if !bindJSON(c, &payload) {
		return
	}
	created, err := api.service.CreateProduct(c.Request.Context(), producttypes.CreateProductInput{ProductMutationInput: producthttpmapper.ToMutationInput(payload)})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, producthttpmapper.FromProjection(created))
}

// Get /v1/products
func (api *ProductAPI) ListProducts(c *gin.Context) {
	products, err := api.service.ListProducts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, producthttpmapper.FromProjectionList(products))
}

// Get /v1/products/:productId
func (api *ProductAPI) GetProductById(c *gin.Context) {
	id, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	product, err := api.service.GetProduct(c.Request.Context(), producttypes.ProductIdentifier{ID: id})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, producthttpmapper.FromProjection(product))
}

// Put /v1/products/:productId
// Partial update, including stock quantity
func (api *ProductAPI) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "productId")
	if !ok {
		return
	}
	var payload producthttpmapper.ProductMutation
	if !bindJSON(c, &payload) {
		return
	}
	updated, err := api.service.UpdateProduct(c.Request.Context(), producttypes.UpdateProductInput{ID: id, ProductMutationInput: producthttpmapper.ToMutationInput(payload)})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, producthttpmapper.FromProjection(updated))
}
