package errors

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates an application error into a problem. ok is false
// when the mapper does not recognise err.
type ErrorMapper func(err error) (problem ProblemDetail, ok bool)

// Responder writes Problem Details responses, trying each mapper in order
// before falling back to 500.
type Responder struct {
	// BaseURI is prepended to relative problem type URIs.
	BaseURI string
	// RequestIDKey names the gin context value copied into the requestId extension.
	RequestIDKey string

	mappers []ErrorMapper
}

func NewResponder(baseURI string, mappers ...ErrorMapper) *Responder {
	return &Responder{BaseURI: baseURI, mappers: mappers}
}

// Respond sends problem with the problem+json content type.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if r.RequestIDKey != "" {
		if id := c.GetString(r.RequestIDKey); id != "" {
			problem = problem.WithExtension("requestId", id)
		}
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError maps err through the configured mappers. A ProblemDetail
// error is sent as is; anything else becomes a 500.
func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	r.Respond(c, ErrInternal.WithDetail(err.Error()))
}
