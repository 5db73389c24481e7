package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorObject is a JSON:API error object.
type ErrorObject struct {
	ID     string       `json:"id,omitempty"`
	Status string       `json:"status,omitempty"`
	Code   string       `json:"code,omitempty"`
	Title  string       `json:"title,omitempty"`
	Detail string       `json:"detail,omitempty"`
	Source *ErrorSource `json:"source,omitempty"`
	Meta   Meta         `json:"meta,omitempty"`
}

// ErrorSource points at the offending part of the request.
type ErrorSource struct {
	// Pointer is a JSON pointer into the request document.
	Pointer string `json:"pointer,omitempty"`
	// Parameter names the offending query parameter.
	Parameter string `json:"parameter,omitempty"`
}

// Error implements the error interface so error objects can travel as
// ordinary Go errors through the controller layer.
func (e *ErrorObject) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// StatusCode returns the numeric HTTP status, defaulting to 500.
func (e *ErrorObject) StatusCode() int {
	if n, err := strconv.Atoi(e.Status); err == nil {
		return n
	}
	return http.StatusInternalServerError
}

// NewError builds an error object from an HTTP status and detail text.
func NewError(status int, code, detail string) *ErrorObject {
	return &ErrorObject{
		Status: strconv.Itoa(status),
		Code:   code,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// InvalidParameter marks a query parameter as invalid.
func InvalidParameter(param, detail string) *ErrorObject {
	err := NewError(http.StatusBadRequest, "invalid_query", detail)
	err.Source = &ErrorSource{Parameter: param}
	return err
}

// InvalidPointer marks a request document member as invalid.
func InvalidPointer(pointer, detail string) *ErrorObject {
	err := NewError(http.StatusUnprocessableEntity, "invalid_body", detail)
	err.Source = &ErrorSource{Pointer: pointer}
	return err
}
