// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON and file responses so every
// handler answers with the same shape and headers.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	value      any
	raw        []byte
	hasValue   bool
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets v as the body, encoded when the response is written.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.value = v
	b.hasValue = true
	b.raw = nil
	return b
}

// Raw sets a pre-rendered body of the given content type.
func (b *ResponseBuilder) Raw(contentType string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.raw = body
	b.hasValue = false
	return b
}

// Attachment asks the client to save the body as filename.
func (b *ResponseBuilder) Attachment(filename string) *ResponseBuilder {
	return b.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// Write sends the built response. A body that cannot be encoded turns into
// a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	body := b.raw
	status := b.statusCode
	if b.hasValue {
		encoded, err := json.Marshal(b.value)
		if err != nil {
			encoded = []byte(`{"error":"Error interno"}`)
			status = http.StatusInternalServerError
		}
		body = append(encoded, '\n')
		b.headers["Content-Type"] = contentTypeJSON
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes, intenta de nuevo en un momento")
}
