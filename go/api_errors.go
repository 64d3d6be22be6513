package storefrontserver

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	ordersapp "github.com/Apurer/go-gin-storefront-api/internal/domains/orders/application"
	productsapp "github.com/Apurer/go-gin-storefront-api/internal/domains/products/application"
	apierrors "github.com/Apurer/go-gin-storefront-api/internal/shared/errors"
)

var responder = newResponder()

func newResponder() *apierrors.Responder {
	r := apierrors.NewResponder("", mapOrderError, mapProductError)
	r.RequestIDKey = HeaderRequestID
	return r
}

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	responder.Respond(c, problem)
}

// respondServiceError translates application errors into RFC 7807 responses.
func respondServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func mapOrderError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrStockUpdateFailed):
		return apierrors.ErrOutOfStock.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrIdempotencyConflict):
		return apierrors.ErrIdempotencyConflict.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrInvalidArgument):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, ordersapp.ErrNotFound):
		return apierrors.NewNotFoundProblem("order", err), true
	case errors.Is(err, ordersapp.ErrProductNotFound):
		return apierrors.NewNotFoundProblem("product", err), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapProductError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, productsapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, productsapp.ErrNotFound):
		return apierrors.NewNotFoundProblem("product", err), true
	}
	return apierrors.ProblemDetail{}, false
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return false
	}
	return true
}

