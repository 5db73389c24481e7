package resource

import "sort"

// Operator is a filter comparison operator.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNotEq      Operator = "notEq"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIsNil      Operator = "isNil"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpHas        Operator = "has"
)

// OperandKind describes what value shape an operator takes relative to the
// filtered field's type.
type OperandKind int

const (
	// OperandSame means the operand has the field's own type.
	OperandSame OperandKind = iota
	// OperandList means the operand is an array of the field's type.
	OperandList
	// OperandBool means the operand is a boolean regardless of field type.
	OperandBool
	// OperandItem means the operand has the field's array item type.
	OperandItem
	// OperandString means the operand is a plain string.
	OperandString
)

// Operand returns the operand shape for the operator.
func (o Operator) Operand() OperandKind {
	switch o {
	case OpIn, OpNotIn:
		return OperandList
	case OpIsNil:
		return OperandBool
	case OpHas:
		return OperandItem
	case OpContains, OpStartsWith, OpEndsWith:
		return OperandString
	}
	return OperandSame
}

// OperatorsFor returns the operators expressible against a field of the
// given type, in a stable order. Equality and membership apply to every
// scalar; ordering operators require an ordered kind; text operators apply
// to strings; arrays support item membership. Structured kinds (map, union,
// embedded) only support the nil check.
func OperatorsFor(t TypeRef) []Operator {
	ops := []Operator{}
	switch {
	case t.Kind == KindArray:
		ops = append(ops, OpEq, OpNotEq, OpIsNil, OpHas)
		return ops
	case !t.Scalar():
		return []Operator{OpIsNil}
	}
	ops = append(ops, OpEq, OpNotEq, OpIn, OpNotIn)
	if t.Orderable() {
		ops = append(ops, OpGt, OpGte, OpLt, OpLte)
	}
	if t.Kind == KindString {
		ops = append(ops, OpContains, OpStartsWith, OpEndsWith)
	}
	ops = append(ops, OpIsNil)
	return ops
}

// FilterField is one filterable entry of a resource: an attribute,
// argument-free calculation, calculation with arguments, or aggregate.
type FilterField struct {
	Name string
	Type TypeRef
	// Arguments is non-empty for calculations that take arguments.
	Arguments []Argument
}

// FilterFields returns the filterable fields of the resource in sorted
// order by name. Aggregate types are derived through the registry.
func (reg *Registry) FilterFields(r *Resource) []FilterField {
	var out []FilterField
	for _, a := range r.Attributes {
		if a.IsPublic() && a.IsFilterable() {
			out = append(out, FilterField{Name: a.Name, Type: a.Type})
		}
	}
	for _, c := range r.Calculations {
		if c.IsPublic() && c.IsFilterable() {
			out = append(out, FilterField{Name: c.Name, Type: c.Type, Arguments: c.Arguments})
		}
	}
	for _, g := range r.Aggregates {
		if g.IsPublic() && g.IsFilterable() {
			out = append(out, FilterField{Name: g.Name, Type: reg.AggregateType(r, g)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
