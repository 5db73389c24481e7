package spec

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/utils"
)

const componentPrefix = "#/components/schemas/"

// ref returns a SchemaRef pointing at a named component schema.
func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(componentPrefix+name, nil)
}

// SchemaForType converts a metadata type into a JSON Schema fragment.
// Arrays, unions, and embedded objects recurse; nullability is carried at
// every level it is declared.
func SchemaForType(t resource.TypeRef) *openapi3.Schema {
	s := &openapi3.Schema{Nullable: t.Nullable}
	switch t.Kind {
	case resource.KindString:
		s.Type = &openapi3.Types{openapi3.TypeString}
	case resource.KindInteger:
		s.Type = &openapi3.Types{openapi3.TypeInteger}
	case resource.KindFloat:
		s.Type = &openapi3.Types{openapi3.TypeNumber}
	case resource.KindDecimal:
		// Decimals travel as strings to avoid float precision loss.
		s.Type = &openapi3.Types{openapi3.TypeString}
		s.Format = "decimal"
	case resource.KindBoolean:
		s.Type = &openapi3.Types{openapi3.TypeBoolean}
	case resource.KindDate:
		s.Type = &openapi3.Types{openapi3.TypeString}
		s.Format = "date"
	case resource.KindDateTime:
		s.Type = &openapi3.Types{openapi3.TypeString}
		s.Format = "date-time"
	case resource.KindUUID:
		s.Type = &openapi3.Types{openapi3.TypeString}
		s.Format = "uuid"
	case resource.KindEnum:
		s.Type = &openapi3.Types{openapi3.TypeString}
		for _, v := range t.EnumValues {
			s.Enum = append(s.Enum, v)
		}
	case resource.KindMap:
		s.Type = &openapi3.Types{openapi3.TypeObject}
		s.AdditionalProperties = openapi3.AdditionalProperties{Has: boolPtr(true)}
	case resource.KindArray:
		s.Type = &openapi3.Types{openapi3.TypeArray}
		item := SchemaForType(*t.Items)
		s.Items = item.NewRef()
	case resource.KindUnion:
		for _, m := range t.Members {
			member := SchemaForType(m.Type)
			if m.Tag != "" {
				// Tagged members travel wrapped as {<tag>: <value>}.
				wrapper := &openapi3.Schema{
					Type:       &openapi3.Types{openapi3.TypeObject},
					Properties: openapi3.Schemas{m.Tag: member.NewRef()},
					Required:   []string{m.Tag},
				}
				s.AnyOf = append(s.AnyOf, wrapper.NewRef())
				continue
			}
			s.AnyOf = append(s.AnyOf, member.NewRef())
		}
	case resource.KindEmbedded:
		s.Type = &openapi3.Types{openapi3.TypeObject}
		s.Properties = openapi3.Schemas{}
		for _, f := range t.Fields {
			s.Properties[utils.MemberName(f.Name)] = SchemaForType(f.Type).NewRef()
			if !f.Type.Nullable {
				s.Required = append(s.Required, utils.MemberName(f.Name))
			}
		}
		sort.Strings(s.Required)
	}
	return s
}

// resourceObjectSchema builds the components schema for a resource object:
// id, type, attributes (public attributes, argument-free calculations,
// aggregates), and relationships with their linkage shapes.
func (b *Builder) resourceObjectSchema(r *resource.Resource) *openapi3.Schema {
	attrs := &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{},
	}
	for _, a := range r.Attributes {
		if !a.IsPublic() {
			continue
		}
		s := SchemaForType(a.Type)
		s.Description = a.Description
		if a.Default != nil {
			s.Default = a.Default
		}
		attrs.Properties[utils.MemberName(a.Name)] = s.NewRef()
	}
	for _, c := range r.Calculations {
		if !c.IsPublic() || c.RequiresArguments() {
			continue
		}
		s := SchemaForType(c.Type)
		s.Description = c.Description
		s.ReadOnly = true
		attrs.Properties[utils.MemberName(c.Name)] = s.NewRef()
	}
	for _, g := range r.Aggregates {
		if !g.IsPublic() {
			continue
		}
		s := SchemaForType(b.reg.AggregateType(r, g))
		s.Description = g.Description
		s.ReadOnly = true
		attrs.Properties[utils.MemberName(g.Name)] = s.NewRef()
	}

	rels := &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{},
	}
	for _, rel := range r.Relationships {
		if !rel.IsPublic() {
			continue
		}
		rels.Properties[utils.MemberName(rel.Name)] = relationshipObjectSchema(rel).NewRef()
	}

	obj := &openapi3.Schema{
		Type:        &openapi3.Types{openapi3.TypeObject},
		Description: r.Description,
		Properties: openapi3.Schemas{
			"id":         openapi3.NewStringSchema().NewRef(),
			"type":       typeNameSchema(r.Type).NewRef(),
			"attributes": attrs.NewRef(),
		},
		Required: []string{"id", "type"},
	}
	if len(rels.Properties) > 0 {
		obj.Properties["relationships"] = rels.NewRef()
	}
	return obj
}

// relationshipObjectSchema builds the schema of one relationship member:
// linkage data plus self/related links.
func relationshipObjectSchema(rel resource.Relationship) *openapi3.Schema {
	var data *openapi3.Schema
	if rel.Many() {
		data = &openapi3.Schema{
			Type:  &openapi3.Types{openapi3.TypeArray},
			Items: ref(schemaResourceIdentifier),
		}
	} else {
		// to-one linkage may be null
		data = &openapi3.Schema{
			Nullable: true,
			AllOf:    openapi3.SchemaRefs{ref(schemaResourceIdentifier)},
		}
	}
	links := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"self":    openapi3.NewStringSchema().NewRef(),
			"related": openapi3.NewStringSchema().NewRef(),
		},
	}
	return &openapi3.Schema{
		Type:        &openapi3.Types{openapi3.TypeObject},
		Description: rel.Description,
		Properties: openapi3.Schemas{
			"data":  data.NewRef(),
			"links": links.NewRef(),
		},
	}
}

// writeDocumentSchema builds the request document schema for a create or
// update action: accepted writable attributes and writable relationship
// linkage. Update documents additionally require data.id.
func (b *Builder) writeDocumentSchema(r *resource.Resource, action *resource.Action, update bool) *openapi3.Schema {
	attrs := &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{},
	}
	for _, a := range r.AcceptedAttributes(action) {
		s := SchemaForType(a.Type)
		s.Description = a.Description
		attrs.Properties[utils.MemberName(a.Name)] = s.NewRef()
		if !update && a.Required && a.Default == nil {
			attrs.Required = append(attrs.Required, utils.MemberName(a.Name))
		}
	}
	sort.Strings(attrs.Required)

	rels := &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{},
	}
	for _, rel := range r.Relationships {
		if !rel.IsPublic() || !rel.IsWritable() {
			continue
		}
		var data *openapi3.Schema
		if rel.Many() {
			data = &openapi3.Schema{
				Type:  &openapi3.Types{openapi3.TypeArray},
				Items: ref(schemaResourceIdentifier),
			}
		} else {
			data = &openapi3.Schema{
				Nullable: true,
				AllOf:    openapi3.SchemaRefs{ref(schemaResourceIdentifier)},
			}
		}
		rels.Properties[utils.MemberName(rel.Name)] = (&openapi3.Schema{
			Type:       &openapi3.Types{openapi3.TypeObject},
			Properties: openapi3.Schemas{"data": data.NewRef()},
			Required:   []string{"data"},
		}).NewRef()
	}

	data := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"type":       typeNameSchema(r.Type).NewRef(),
			"attributes": attrs.NewRef(),
		},
		Required: []string{"type"},
	}
	if update {
		data.Properties["id"] = openapi3.NewStringSchema().NewRef()
		data.Required = append(data.Required, "id")
	} else if len(attrs.Required) > 0 {
		data.Required = append(data.Required, "attributes")
	}
	sort.Strings(data.Required)
	if len(rels.Properties) > 0 {
		data.Properties["relationships"] = rels.NewRef()
	}

	return &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{"data": data.NewRef()},
		Required:   []string{"data"},
	}
}

// typeNameSchema pins the "type" member to a single resource type name.
func typeNameSchema(name string) *openapi3.Schema {
	return &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeString},
		Enum: []any{name},
	}
}

// shared component schema names
const (
	schemaResourceIdentifier = "resource-identifier"
	schemaErrors             = "errors"
	schemaMeta               = "meta"
)

// sharedSchemas returns the components every generated document carries.
func sharedSchemas() openapi3.Schemas {
	identifier := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"type": openapi3.NewStringSchema().NewRef(),
			"id":   openapi3.NewStringSchema().NewRef(),
		},
		Required: []string{"id", "type"},
	}
	source := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"pointer":   openapi3.NewStringSchema().NewRef(),
			"parameter": openapi3.NewStringSchema().NewRef(),
		},
	}
	errObject := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"id":     openapi3.NewStringSchema().NewRef(),
			"status": openapi3.NewStringSchema().NewRef(),
			"code":   openapi3.NewStringSchema().NewRef(),
			"title":  openapi3.NewStringSchema().NewRef(),
			"detail": openapi3.NewStringSchema().NewRef(),
			"source": source.NewRef(),
			"meta":   ref(schemaMeta),
		},
	}
	errors := &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"errors": (&openapi3.Schema{
				Type:  &openapi3.Types{openapi3.TypeArray},
				Items: errObject.NewRef(),
			}).NewRef(),
		},
		Required: []string{"errors"},
	}
	meta := &openapi3.Schema{
		Type:                 &openapi3.Types{openapi3.TypeObject},
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(true)},
	}
	return openapi3.Schemas{
		schemaResourceIdentifier: identifier.NewRef(),
		schemaErrors:             errors.NewRef(),
		schemaMeta:               meta.NewRef(),
	}
}

// documentSchema wraps a primary data schema in a JSON:API document shape.
func (b *Builder) documentSchema(r *resource.Resource, many bool) *openapi3.Schema {
	var data *openapi3.Schema
	if many {
		data = &openapi3.Schema{
			Type:  &openapi3.Types{openapi3.TypeArray},
			Items: ref(r.Type),
		}
	} else {
		data = &openapi3.Schema{AllOf: openapi3.SchemaRefs{ref(r.Type)}}
	}
	included := &openapi3.Schema{
		Type:  &openapi3.Types{openapi3.TypeArray},
		Items: b.includedItemSchema(r),
	}
	links := &openapi3.Schema{
		Type:                 &openapi3.Types{openapi3.TypeObject},
		AdditionalProperties: openapi3.AdditionalProperties{Schema: (&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeString}, Nullable: true}).NewRef()},
	}
	return &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"data":     data.NewRef(),
			"included": included.NewRef(),
			"links":    links.NewRef(),
			"meta":     ref(schemaMeta),
		},
		Required: []string{"data"},
	}
}

// linkageDocumentSchema is the document shape of relationship endpoints.
func linkageDocumentSchema(many bool) *openapi3.Schema {
	var data *openapi3.Schema
	if many {
		data = &openapi3.Schema{
			Type:  &openapi3.Types{openapi3.TypeArray},
			Items: ref(schemaResourceIdentifier),
		}
	} else {
		data = &openapi3.Schema{
			Nullable: true,
			AllOf:    openapi3.SchemaRefs{ref(schemaResourceIdentifier)},
		}
	}
	return &openapi3.Schema{
		Type:       &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{"data": data.NewRef()},
		Required:   []string{"data"},
	}
}

// includedItemSchema enumerates the resource types reachable from r via
// public relationships; compound document members are any of those.
func (b *Builder) includedItemSchema(r *resource.Resource) *openapi3.SchemaRef {
	reachable := map[string]bool{}
	b.collectReachable(r, reachable, 0)
	delete(reachable, r.Type)
	if len(reachable) == 0 {
		return ref(schemaResourceIdentifier)
	}
	names := make([]string, 0, len(reachable))
	for name := range reachable {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return ref(names[0])
	}
	s := &openapi3.Schema{}
	for _, name := range names {
		s.AnyOf = append(s.AnyOf, ref(name))
	}
	return s.NewRef()
}

const includeDepth = 3

func (b *Builder) collectReachable(r *resource.Resource, seen map[string]bool, depth int) {
	if depth > includeDepth {
		return
	}
	for _, rel := range r.Relationships {
		if !rel.IsPublic() || !b.filter.Allow(rel.Destination) || seen[rel.Destination] {
			continue
		}
		dest, ok := b.reg.Resource(rel.Destination)
		if !ok {
			continue
		}
		seen[rel.Destination] = true
		b.collectReachable(dest, seen, depth+1)
	}
}

// WriteSchemaName returns the component name of a write document schema.
func WriteSchemaName(typeName string, update bool) string {
	if update {
		return fmt.Sprintf("%s-update", typeName)
	}
	return fmt.Sprintf("%s-create", typeName)
}

func boolPtr(b bool) *bool { return &b }
