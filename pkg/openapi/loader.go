// Package openapi loads and validates OpenAPI documents from files or
// HTTP(S) URLs. Generation lives in pkg/spec; this package handles the
// round trip back in, for validating documents that already exist.
package openapi

import (
	"net/url"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadDocument loads an OpenAPI document from a local file path or an
// HTTP(S) URL.
func LoadDocument(input string) (*openapi3.T, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	return loadWith(loader, input)
}

// ValidateDocument loads a document and runs full validation on it.
func ValidateDocument(input string) error {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := loadWith(loader, input)
	if err != nil {
		return err
	}
	return doc.Validate(loader.Context)
}

func loadWith(loader *openapi3.Loader, input string) (*openapi3.T, error) {
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return loader.LoadFromURI(u)
	}
	return loader.LoadFromFile(input)
}
