package httpdto

import (
	relay_errors "upload-relay/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse is the body of every failed upload request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// FromError maps err to a status code and body. Only unexpected errors
// expose their cause, in the details field.
func FromError(err error) (int, ErrorResponse) {
	e := relay_errors.As(err)
	body := ErrorResponse{Error: e.Message}
	if e.Kind == relay_errors.KindUnexpected && e.Err != nil {
		body.Details = e.Err.Error()
	}
	return e.HTTPStatus(), body
}
