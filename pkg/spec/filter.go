package spec

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/utils"
)

// filterSchemaName returns the component name of a resource's filter schema.
func filterSchemaName(typeName string) string {
	return fmt.Sprintf("%s-filter", typeName)
}

// filterFieldSchemaName returns the component name of one filter field.
func filterFieldSchemaName(typeName, field string) string {
	return fmt.Sprintf("%s-filter-%s", typeName, utils.MemberName(field))
}

// filterSchema builds the top-level filter object of a resource: boolean
// combinators, one entry per filterable field, and recursion into the filter
// schema of every public relationship's destination.
func (b *Builder) filterSchema(r *resource.Resource) *openapi3.Schema {
	self := ref(filterSchemaName(r.Type))
	s := &openapi3.Schema{
		Type:        &openapi3.Types{openapi3.TypeObject},
		Description: fmt.Sprintf("Filter expression for %s", r.Type),
		Properties: openapi3.Schemas{
			"and": (&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeArray}, Items: self}).NewRef(),
			"or":  (&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeArray}, Items: self}).NewRef(),
			"not": self,
		},
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	}
	for _, f := range b.reg.FilterFields(r) {
		s.Properties[utils.MemberName(f.Name)] = ref(filterFieldSchemaName(r.Type, f.Name))
	}
	for _, rel := range r.Relationships {
		if !rel.IsPublic() || !b.filter.Allow(rel.Destination) {
			continue
		}
		s.Properties[utils.MemberName(rel.Name)] = ref(filterSchemaName(rel.Destination))
	}
	return s
}

// filterFieldSchema builds the per-field filter schema: either a bare
// operand (shorthand equality) or an object keyed by the operators the
// field's type can express. Calculations with arguments additionally take
// an args object.
func filterFieldSchema(f resource.FilterField) *openapi3.Schema {
	ops := &openapi3.Schema{
		Type:                 &openapi3.Types{openapi3.TypeObject},
		Properties:           openapi3.Schemas{},
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	}
	for _, op := range resource.OperatorsFor(f.Type) {
		ops.Properties[string(op)] = operandSchema(op, f.Type).NewRef()
	}
	if len(f.Arguments) > 0 {
		args := &openapi3.Schema{
			Type:       &openapi3.Types{openapi3.TypeObject},
			Properties: openapi3.Schemas{},
		}
		for _, arg := range f.Arguments {
			args.Properties[utils.MemberName(arg.Name)] = SchemaForType(arg.Type).NewRef()
			if arg.Required {
				args.Required = append(args.Required, utils.MemberName(arg.Name))
			}
		}
		ops.Properties["args"] = args.NewRef()
		if len(args.Required) > 0 {
			ops.Required = []string{"args"}
		}
		// argument-taking calculations have no bare shorthand form
		return ops
	}

	shorthand := SchemaForType(f.Type)
	return &openapi3.Schema{
		AnyOf: openapi3.SchemaRefs{shorthand.NewRef(), ops.NewRef()},
	}
}

// operandSchema derives the operand schema of an operator applied to a
// field of the given type.
func operandSchema(op resource.Operator, t resource.TypeRef) *openapi3.Schema {
	switch op.Operand() {
	case resource.OperandList:
		base := t
		base.Nullable = false
		return &openapi3.Schema{
			Type:  &openapi3.Types{openapi3.TypeArray},
			Items: SchemaForType(base).NewRef(),
		}
	case resource.OperandBool:
		return openapi3.NewBoolSchema()
	case resource.OperandItem:
		if t.Items != nil {
			return SchemaForType(*t.Items)
		}
		return &openapi3.Schema{}
	case resource.OperandString:
		return openapi3.NewStringSchema()
	}
	base := t
	base.Nullable = false
	return SchemaForType(base)
}
