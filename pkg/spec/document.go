// Package spec derives an OpenAPI 3 document from resource metadata: one
// component schema set and one path item set per included resource, with
// the JSON:API document shapes threaded through every operation.
package spec

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/restweave-dev/restweave/pkg/config"
	"github.com/restweave-dev/restweave/pkg/resource"
)

// Builder assembles an OpenAPI document from a validated resource registry
// and generation config.
type Builder struct {
	reg    *resource.Registry
	cfg    *config.Config
	filter *config.ResourceFilter
}

// NewBuilder validates the registry and compiles the config's resource
// filter.
func NewBuilder(reg *resource.Registry, cfg *config.Config) (*Builder, error) {
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resource metadata: %w", err)
	}
	filter, err := cfg.CompileResourceFilter()
	if err != nil {
		return nil, err
	}
	return &Builder{reg: reg, cfg: cfg, filter: filter}, nil
}

// Build assembles the complete OpenAPI document.
func (b *Builder) Build() (*openapi3.T, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       b.cfg.Info.Title,
			Version:     b.cfg.Info.Version,
			Description: b.cfg.Info.Description,
		},
		Components: &openapi3.Components{
			Schemas: sharedSchemas(),
		},
	}
	for _, srv := range b.cfg.Servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{
			URL:         srv.URL,
			Description: srv.Description,
		})
	}

	for _, typeName := range b.reg.Types() {
		if !b.filter.Allow(typeName) {
			continue
		}
		r, _ := b.reg.Resource(typeName)
		b.resourceComponents(doc.Components.Schemas, r)
		doc.Tags = append(doc.Tags, &openapi3.Tag{
			Name:        r.Type,
			Description: r.Description,
		})
	}

	paths, err := b.pathsFor()
	if err != nil {
		return nil, err
	}
	doc.Paths = paths
	return doc, nil
}

// resourceComponents registers every component schema one resource needs:
// its resource object, write documents for create/update routes, and its
// filter schemas.
func (b *Builder) resourceComponents(schemas openapi3.Schemas, r *resource.Resource) {
	schemas[r.Type] = b.resourceObjectSchema(r).NewRef()

	for _, rt := range r.Routes {
		switch rt.Kind {
		case resource.RoutePost:
			if action, ok := r.ActionNamed(rt.Action); ok {
				name := WriteSchemaName(r.Type, false)
				schemas[name] = b.writeDocumentSchema(r, action, false).NewRef()
			}
		case resource.RoutePatch:
			if action, ok := r.ActionNamed(rt.Action); ok {
				name := WriteSchemaName(r.Type, true)
				schemas[name] = b.writeDocumentSchema(r, action, true).NewRef()
			}
		}
	}

	schemas[filterSchemaName(r.Type)] = b.filterSchema(r).NewRef()
	for _, f := range b.reg.FilterFields(r) {
		schemas[filterFieldSchemaName(r.Type, f.Name)] = filterFieldSchema(f).NewRef()
	}
}

// Validate runs kin-openapi's document validation over a built document.
func Validate(ctx context.Context, doc *openapi3.T) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	if err := loader.ResolveRefsIn(doc, nil); err != nil {
		return fmt.Errorf("resolving references: %w", err)
	}
	return doc.Validate(ctx)
}

// Encode renders a document as "json" or "yaml" bytes. YAML output round
// trips through JSON so struct-level marshalling rules apply to both.
func Encode(doc *openapi3.T, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	switch format {
	case "", "json":
		return append(data, '\n'), nil
	case "yaml":
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, err
		}
		return yaml.Marshal(tree)
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}
