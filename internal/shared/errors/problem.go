// Package errors renders storefront failures as RFC 7807 Problem Details.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail is an RFC 7807 Problem Details body.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Extensions carries resourceType, requestId and similar members.
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension member.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

// Problem type URIs used by the storefront API.
const (
	TypeBadRequest          = "/problems/bad-request"
	TypeValidation          = "/problems/validation-error"
	TypeNotFound            = "/problems/not-found"
	TypeOutOfStock          = "/problems/out-of-stock"
	TypeIdempotencyConflict = "/problems/idempotency-conflict"
	TypeInternal            = "/problems/internal-error"
)

var (
	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	ErrValidation = ProblemDetail{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
	}

	ErrNotFound = ProblemDetail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	// ErrOutOfStock is returned when a stock decrement could not be applied.
	ErrOutOfStock = ProblemDetail{
		Type:   TypeOutOfStock,
		Title:  "Stock Update Failed",
		Status: http.StatusConflict,
	}

	// ErrIdempotencyConflict is returned when an Idempotency-Key is reused with another payload.
	ErrIdempotencyConflict = ProblemDetail{
		Type:   TypeIdempotencyConflict,
		Title:  "Idempotency Key Reused",
		Status: http.StatusConflict,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}
)

// NewNotFoundProblem reports a missing order or product.
func NewNotFoundProblem(resourceType string, err error) ProblemDetail {
	problem := ErrNotFound.WithExtension("resourceType", resourceType)
	if err != nil {
		problem = problem.WithDetail(err.Error())
	}
	return problem
}
