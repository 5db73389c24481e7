package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
)

// Sentinel errors runners return to drive HTTP status mapping.
var (
	// ErrNotFound maps to 404.
	ErrNotFound = errors.New("record not found")
	// ErrConflict maps to 409.
	ErrConflict = errors.New("conflicting record state")
	// ErrForbidden maps to 403.
	ErrForbidden = errors.New("action not permitted")
)

// errorObjects turns a runner error into JSON:API error objects. Runners
// may return *jsonapi.ErrorObject directly to control the full shape.
func errorObjects(err error) []*jsonapi.ErrorObject {
	var obj *jsonapi.ErrorObject
	if errors.As(err, &obj) {
		return []*jsonapi.ErrorObject{obj}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return []*jsonapi.ErrorObject{jsonapi.NewError(http.StatusNotFound, "not_found", err.Error())}
	case errors.Is(err, ErrConflict):
		return []*jsonapi.ErrorObject{jsonapi.NewError(http.StatusConflict, "conflict", err.Error())}
	case errors.Is(err, ErrForbidden):
		return []*jsonapi.ErrorObject{jsonapi.NewError(http.StatusForbidden, "forbidden", err.Error())}
	}
	return []*jsonapi.ErrorObject{jsonapi.NewError(http.StatusInternalServerError, "internal", "internal server error")}
}

// writeDocument renders a document with the JSON:API media type.
func writeDocument(w http.ResponseWriter, status int, doc *jsonapi.Document) {
	w.Header().Set("Content-Type", jsonapi.MediaType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}

// writeErrors renders an error document. The response status is the
// highest status among the error objects.
func writeErrors(w http.ResponseWriter, errs ...*jsonapi.ErrorObject) {
	status := 0
	for _, e := range errs {
		if c := e.StatusCode(); c > status {
			status = c
		}
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeDocument(w, status, jsonapi.ErrorDocument(errs...))
}
