// Package restweave derives OpenAPI 3 documents and JSON:API HTTP
// controllers from declarative resource metadata.
//
// This package offers a small convenience API over the pkg/ packages for
// the common cases.
//
// Quick Start:
//
//	import "github.com/restweave-dev/restweave"
//
//	// Generate an OpenAPI document from a metadata file
//	doc, err := restweave.GenerateSpec("./resources.yaml", restweave.SpecOptions{
//		Title:   "Blog API",
//		Version: "1.0.0",
//	})
//
// For request handling, load the registry once and mount a controller:
//
//	reg, _ := restweave.LoadRegistry("./resources.yaml")
//	handler, _ := restweave.NewController(reg, cfg, myRunner, logger)
//	http.ListenAndServe(":8080", handler)
package restweave

import (
	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/restweave-dev/restweave/pkg/config"
	"github.com/restweave-dev/restweave/pkg/controller"
	"github.com/restweave-dev/restweave/pkg/openapi"
	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/spec"
)

// SpecOptions configure document generation for GenerateSpec.
type SpecOptions struct {
	Title       string
	Version     string
	Description string
	// Servers become the document's servers block, one URL each.
	Servers []string
	// IncludeResources and ExcludeResources are regex patterns over
	// resource type names.
	IncludeResources []string
	ExcludeResources []string
}

// GenerateSpec builds an OpenAPI document from a resource metadata file.
func GenerateSpec(metadataPath string, opts SpecOptions) (*openapi3.T, error) {
	reg, err := resource.LoadRegistry(metadataPath)
	if err != nil {
		return nil, err
	}
	cfg := &config.Config{
		Metadata:         metadataPath,
		Info:             config.Info{Title: opts.Title, Version: opts.Version, Description: opts.Description},
		IncludeResources: opts.IncludeResources,
		ExcludeResources: opts.ExcludeResources,
	}
	for _, url := range opts.Servers {
		cfg.Servers = append(cfg.Servers, config.Server{URL: url})
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return GenerateFromConfig(reg, cfg)
}

// GenerateFromConfig builds an OpenAPI document for an already loaded
// registry and config.
func GenerateFromConfig(reg *resource.Registry, cfg *config.Config) (*openapi3.T, error) {
	b, err := spec.NewBuilder(reg, cfg)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// ValidateSpec validates an already generated OpenAPI document from a
// file path or HTTP(S) URL.
func ValidateSpec(input string) error {
	return openapi.ValidateDocument(input)
}

// LoadRegistry loads and validates a resource metadata file.
func LoadRegistry(path string) (*resource.Registry, error) {
	return resource.LoadRegistry(path)
}

// NewController mounts the JSON:API HTTP surface of a registry over the
// given runner.
func NewController(reg *resource.Registry, cfg *config.Config, runner controller.Runner, logger *zap.Logger) (*controller.Controller, error) {
	return controller.New(reg, cfg, runner, logger)
}
