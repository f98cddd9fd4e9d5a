// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "github.com/bruno-egami/Gestao-Amicando-sub000/internal/apperror"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail   string `json:"detail"`
	Codigo   string `json:"codigo,omitempty"`
	Detalhes any    `json:"detalhes,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// FromError maps a service error to its HTTP status and envelope.
// Untyped errors become a generic 500 without internals.
func FromError(err error) (int, *APIError) {
	typed := apperror.As(err)
	if typed == nil {
		meta := apperror.MetadataFor(apperror.CodeInterno)
		return meta.HTTPStatus, &APIError{Detail: meta.PublicMessage, Codigo: string(apperror.CodeInterno)}
	}
	meta := apperror.MetadataFor(typed.Code())
	resp := &APIError{Detail: typed.Message(), Codigo: string(typed.Code())}
	if meta.HTTPStatus >= 500 {
		resp.Detail = meta.PublicMessage
	}
	if meta.DetailsAllowed {
		resp.Detalhes = typed.Details()
	}
	return meta.HTTPStatus, resp
}
