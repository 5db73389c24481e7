// Package resource models the declarative metadata a host object-modeling
// framework exposes for its resources: attributes, relationships,
// calculations, aggregates, actions, and declared routes. The rest of the
// library is a structural transform over this model; it never executes
// actions itself.
package resource

import (
	"fmt"
	"sort"
)

// Registry is the set of resources an API exposes, keyed by JSON:API type
// name.
type Registry struct {
	Resources []Resource `yaml:"resources"`

	byType map[string]*Resource
}

// Resource is a single declarative resource definition.
type Resource struct {
	// Type is the JSON:API type name (e.g. "posts").
	Type          string         `yaml:"type"`
	Description   string         `yaml:"description"`
	Attributes    []Attribute    `yaml:"attributes"`
	Relationships []Relationship `yaml:"relationships"`
	Calculations  []Calculation  `yaml:"calculations"`
	Aggregates    []Aggregate    `yaml:"aggregates"`
	Actions       []Action       `yaml:"actions"`
	Routes        []Route        `yaml:"routes"`
}

// Attribute is a declared attribute on a resource.
type Attribute struct {
	Name        string  `yaml:"name"`
	Type        TypeRef `yaml:"type"`
	Description string  `yaml:"description"`
	Public      *bool   `yaml:"public"`
	Writable    *bool   `yaml:"writable"`
	Sortable    *bool   `yaml:"sortable"`
	Filterable  *bool   `yaml:"filterable"`
	// Required marks the attribute as mandatory on create.
	Required bool `yaml:"required"`
	Default  any  `yaml:"default"`
}

// RelationshipKind is the cardinality of a relationship.
type RelationshipKind string

const (
	BelongsTo  RelationshipKind = "belongsTo"
	HasOne     RelationshipKind = "hasOne"
	HasMany    RelationshipKind = "hasMany"
	ManyToMany RelationshipKind = "manyToMany"
)

// Relationship is a declared relationship to another resource in the
// registry.
type Relationship struct {
	Name        string           `yaml:"name"`
	Kind        RelationshipKind `yaml:"kind"`
	Destination string           `yaml:"destination"`
	Description string           `yaml:"description"`
	Public      *bool            `yaml:"public"`
	Writable    *bool            `yaml:"writable"`
}

// Many reports whether the relationship carries a collection.
func (r Relationship) Many() bool {
	return r.Kind == HasMany || r.Kind == ManyToMany
}

// Argument is a named input to a calculation or action.
type Argument struct {
	Name     string  `yaml:"name"`
	Type     TypeRef `yaml:"type"`
	Required bool    `yaml:"required"`
}

// Calculation is a derived field computed by the host framework.
type Calculation struct {
	Name        string     `yaml:"name"`
	Type        TypeRef    `yaml:"type"`
	Arguments   []Argument `yaml:"arguments"`
	Description string     `yaml:"description"`
	Public      *bool      `yaml:"public"`
	Sortable    *bool      `yaml:"sortable"`
	Filterable  *bool      `yaml:"filterable"`
}

// RequiresArguments reports whether the calculation cannot be evaluated
// without caller-supplied arguments. Such calculations are excluded from
// resource-object attribute schemas and field sets.
func (c Calculation) RequiresArguments() bool {
	for _, a := range c.Arguments {
		if a.Required {
			return true
		}
	}
	return false
}

// AggregateKind is the kind of an aggregate.
type AggregateKind string

const (
	AggCount  AggregateKind = "count"
	AggExists AggregateKind = "exists"
	AggSum    AggregateKind = "sum"
	AggMax    AggregateKind = "max"
	AggMin    AggregateKind = "min"
	AggAvg    AggregateKind = "avg"
	AggFirst  AggregateKind = "first"
	AggList   AggregateKind = "list"
)

// Aggregate is a value aggregated over a relationship by the host framework.
type Aggregate struct {
	Name         string        `yaml:"name"`
	Kind         AggregateKind `yaml:"kind"`
	Relationship string        `yaml:"relationship"`
	// Field is the destination attribute being aggregated; empty for
	// count/exists.
	Field       string `yaml:"field"`
	Description string `yaml:"description"`
	Public      *bool  `yaml:"public"`
	Sortable    *bool  `yaml:"sortable"`
	Filterable  *bool  `yaml:"filterable"`
}

// ActionKind classifies an action.
type ActionKind string

const (
	ActionRead    ActionKind = "read"
	ActionCreate  ActionKind = "create"
	ActionUpdate  ActionKind = "update"
	ActionDestroy ActionKind = "destroy"
)

// Action is a named operation on a resource. The host framework executes
// it; this library only describes its HTTP surface.
type Action struct {
	Name        string     `yaml:"name"`
	Kind        ActionKind `yaml:"kind"`
	Description string     `yaml:"description"`
	// Accepts limits the writable attributes for create/update actions.
	// Empty means all writable attributes.
	Accepts   []string   `yaml:"accepts"`
	Arguments []Argument `yaml:"arguments"`
}

// RouteKind classifies a declared route.
type RouteKind string

const (
	RouteIndex                  RouteKind = "index"
	RouteGet                    RouteKind = "get"
	RoutePost                   RouteKind = "post"
	RoutePatch                  RouteKind = "patch"
	RouteDelete                 RouteKind = "delete"
	RouteRelated                RouteKind = "related"
	RouteRelationship           RouteKind = "relationship"
	RoutePostToRelationship     RouteKind = "postToRelationship"
	RoutePatchRelationship      RouteKind = "patchRelationship"
	RouteDeleteFromRelationship RouteKind = "deleteFromRelationship"
)

// Route maps an HTTP method and path template onto a resource action.
type Route struct {
	Kind   RouteKind `yaml:"kind"`
	Method string    `yaml:"method"`
	// Path is an OpenAPI-style template, e.g. "/posts/{id}/comments".
	Path   string `yaml:"path"`
	Action string `yaml:"action"`
	// Relationship names the relationship for related/relationship route
	// kinds.
	Relationship string `yaml:"relationship"`
	// Name overrides the derived operation id.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Collection reports whether the route's primary data is a collection.
func (rt Route) Collection(res *Resource) bool {
	switch rt.Kind {
	case RouteIndex:
		return true
	case RouteRelated, RouteRelationship, RoutePostToRelationship,
		RoutePatchRelationship, RouteDeleteFromRelationship:
		if rel, ok := res.RelationshipNamed(rt.Relationship); ok {
			return rel.Many()
		}
	}
	return false
}

// boolean flag helpers; unset means the declared default

func flag(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// IsPublic reports whether the attribute appears in API schemas.
func (a Attribute) IsPublic() bool { return flag(a.Public, true) }

// IsWritable reports whether the attribute may appear in write documents.
func (a Attribute) IsWritable() bool { return flag(a.Writable, true) }

// IsSortable reports whether the attribute may appear in sort expressions.
func (a Attribute) IsSortable() bool { return flag(a.Sortable, a.Type.Scalar()) }

// IsFilterable reports whether the attribute may appear in filters.
func (a Attribute) IsFilterable() bool { return flag(a.Filterable, true) }

// IsPublic reports whether the relationship appears in API schemas.
func (r Relationship) IsPublic() bool { return flag(r.Public, true) }

// IsWritable reports whether the relationship accepts linkage writes.
func (r Relationship) IsWritable() bool { return flag(r.Writable, false) }

// IsPublic reports whether the calculation appears in API schemas.
func (c Calculation) IsPublic() bool { return flag(c.Public, true) }

// IsSortable reports whether the calculation may appear in sort expressions.
func (c Calculation) IsSortable() bool {
	return flag(c.Sortable, c.Type.Scalar() && !c.RequiresArguments())
}

// IsFilterable reports whether the calculation may appear in filters.
func (c Calculation) IsFilterable() bool { return flag(c.Filterable, true) }

// IsPublic reports whether the aggregate appears in API schemas.
func (g Aggregate) IsPublic() bool { return flag(g.Public, true) }

// IsSortable reports whether the aggregate may appear in sort expressions.
func (g Aggregate) IsSortable() bool { return flag(g.Sortable, true) }

// IsFilterable reports whether the aggregate may appear in filters.
func (g Aggregate) IsFilterable() bool { return flag(g.Filterable, true) }

// lookup helpers

// Resource returns the resource with the given JSON:API type name.
func (reg *Registry) Resource(typeName string) (*Resource, bool) {
	if reg.byType == nil {
		reg.index()
	}
	r, ok := reg.byType[typeName]
	return r, ok
}

// Types returns all resource type names in sorted order.
func (reg *Registry) Types() []string {
	out := make([]string, 0, len(reg.Resources))
	for i := range reg.Resources {
		out = append(out, reg.Resources[i].Type)
	}
	sort.Strings(out)
	return out
}

func (reg *Registry) index() {
	reg.byType = make(map[string]*Resource, len(reg.Resources))
	for i := range reg.Resources {
		reg.byType[reg.Resources[i].Type] = &reg.Resources[i]
	}
}

// AttributeNamed returns the attribute with the given name.
func (r *Resource) AttributeNamed(name string) (*Attribute, bool) {
	for i := range r.Attributes {
		if r.Attributes[i].Name == name {
			return &r.Attributes[i], true
		}
	}
	return nil, false
}

// RelationshipNamed returns the relationship with the given name.
func (r *Resource) RelationshipNamed(name string) (*Relationship, bool) {
	for i := range r.Relationships {
		if r.Relationships[i].Name == name {
			return &r.Relationships[i], true
		}
	}
	return nil, false
}

// CalculationNamed returns the calculation with the given name.
func (r *Resource) CalculationNamed(name string) (*Calculation, bool) {
	for i := range r.Calculations {
		if r.Calculations[i].Name == name {
			return &r.Calculations[i], true
		}
	}
	return nil, false
}

// AggregateNamed returns the aggregate with the given name.
func (r *Resource) AggregateNamed(name string) (*Aggregate, bool) {
	for i := range r.Aggregates {
		if r.Aggregates[i].Name == name {
			return &r.Aggregates[i], true
		}
	}
	return nil, false
}

// ActionNamed returns the action with the given name.
func (r *Resource) ActionNamed(name string) (*Action, bool) {
	for i := range r.Actions {
		if r.Actions[i].Name == name {
			return &r.Actions[i], true
		}
	}
	return nil, false
}

// FieldNames returns the names of all public fields (attributes,
// argument-free calculations, aggregates, relationships) in sorted order.
// This is the value set for sparse fieldset parameters.
func (r *Resource) FieldNames() []string {
	var out []string
	for _, a := range r.Attributes {
		if a.IsPublic() {
			out = append(out, a.Name)
		}
	}
	for _, c := range r.Calculations {
		if c.IsPublic() && !c.RequiresArguments() {
			out = append(out, c.Name)
		}
	}
	for _, g := range r.Aggregates {
		if g.IsPublic() {
			out = append(out, g.Name)
		}
	}
	for _, rel := range r.Relationships {
		if rel.IsPublic() {
			out = append(out, rel.Name)
		}
	}
	sort.Strings(out)
	return out
}

// SortableFieldNames returns the names of all fields usable in sort
// expressions, sorted.
func (r *Resource) SortableFieldNames() []string {
	var out []string
	for _, a := range r.Attributes {
		if a.IsPublic() && a.IsSortable() {
			out = append(out, a.Name)
		}
	}
	for _, c := range r.Calculations {
		if c.IsPublic() && c.IsSortable() {
			out = append(out, c.Name)
		}
	}
	for _, g := range r.Aggregates {
		if g.IsPublic() && g.IsSortable() {
			out = append(out, g.Name)
		}
	}
	sort.Strings(out)
	return out
}

// AcceptedAttributes returns the writable attributes an action accepts.
func (r *Resource) AcceptedAttributes(action *Action) []Attribute {
	var out []Attribute
	for _, a := range r.Attributes {
		if !a.IsPublic() || !a.IsWritable() {
			continue
		}
		if len(action.Accepts) > 0 && !contains(action.Accepts, a.Name) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// AggregateType derives the wire type of an aggregate from its kind and,
// where relevant, the aggregated destination attribute.
func (reg *Registry) AggregateType(r *Resource, g Aggregate) TypeRef {
	switch g.Kind {
	case AggCount:
		return TypeRef{Kind: KindInteger}
	case AggExists:
		return TypeRef{Kind: KindBoolean}
	case AggAvg:
		return TypeRef{Kind: KindFloat, Nullable: true}
	}
	// sum/max/min/first/list mirror the destination field's type
	field := TypeRef{Kind: KindString}
	if rel, ok := r.RelationshipNamed(g.Relationship); ok {
		if dest, ok := reg.Resource(rel.Destination); ok {
			if attr, ok := dest.AttributeNamed(g.Field); ok {
				field = attr.Type
			}
		}
	}
	if g.Kind == AggList {
		items := field
		return TypeRef{Kind: KindArray, Items: &items}
	}
	field.Nullable = true
	return field
}

// Validate checks referential integrity across the registry: relationship
// destinations, aggregate relationships and fields, route actions and
// relationships, and type declarations.
func (reg *Registry) Validate() error {
	if len(reg.Resources) == 0 {
		return fmt.Errorf("registry declares no resources")
	}
	reg.index()
	seen := map[string]bool{}
	for i := range reg.Resources {
		r := &reg.Resources[i]
		if r.Type == "" {
			return fmt.Errorf("resources[%d] missing type name", i)
		}
		if seen[r.Type] {
			return fmt.Errorf("duplicate resource type %q", r.Type)
		}
		seen[r.Type] = true
		if err := reg.validateResource(r); err != nil {
			return fmt.Errorf("resource %q: %w", r.Type, err)
		}
	}
	return nil
}

func (reg *Registry) validateResource(r *Resource) error {
	for _, a := range r.Attributes {
		if err := validateType(a.Type); err != nil {
			return fmt.Errorf("attribute %q: %w", a.Name, err)
		}
	}
	for _, rel := range r.Relationships {
		switch rel.Kind {
		case BelongsTo, HasOne, HasMany, ManyToMany:
		default:
			return fmt.Errorf("relationship %q: unknown kind %q", rel.Name, rel.Kind)
		}
		if _, ok := reg.Resource(rel.Destination); !ok {
			return fmt.Errorf("relationship %q: unknown destination %q", rel.Name, rel.Destination)
		}
	}
	for _, c := range r.Calculations {
		if err := validateType(c.Type); err != nil {
			return fmt.Errorf("calculation %q: %w", c.Name, err)
		}
		for _, arg := range c.Arguments {
			if err := validateType(arg.Type); err != nil {
				return fmt.Errorf("calculation %q argument %q: %w", c.Name, arg.Name, err)
			}
		}
	}
	for _, g := range r.Aggregates {
		switch g.Kind {
		case AggCount, AggExists, AggSum, AggMax, AggMin, AggAvg, AggFirst, AggList:
		default:
			return fmt.Errorf("aggregate %q: unknown kind %q", g.Name, g.Kind)
		}
		rel, ok := r.RelationshipNamed(g.Relationship)
		if !ok {
			return fmt.Errorf("aggregate %q: unknown relationship %q", g.Name, g.Relationship)
		}
		if g.Kind != AggCount && g.Kind != AggExists {
			dest, _ := reg.Resource(rel.Destination)
			if _, ok := dest.AttributeNamed(g.Field); !ok {
				return fmt.Errorf("aggregate %q: destination %q has no attribute %q", g.Name, rel.Destination, g.Field)
			}
		}
	}
	for _, act := range r.Actions {
		switch act.Kind {
		case ActionRead, ActionCreate, ActionUpdate, ActionDestroy:
		default:
			return fmt.Errorf("action %q: unknown kind %q", act.Name, act.Kind)
		}
		for _, accepted := range act.Accepts {
			if _, ok := r.AttributeNamed(accepted); !ok {
				return fmt.Errorf("action %q: accepts unknown attribute %q", act.Name, accepted)
			}
		}
	}
	for _, rt := range r.Routes {
		if _, ok := r.ActionNamed(rt.Action); !ok {
			return fmt.Errorf("route %s %s: unknown action %q", rt.Method, rt.Path, rt.Action)
		}
		switch rt.Kind {
		case RouteIndex, RouteGet, RoutePost, RoutePatch, RouteDelete:
		case RouteRelated, RouteRelationship, RoutePostToRelationship,
			RoutePatchRelationship, RouteDeleteFromRelationship:
			if rt.Relationship == "" {
				return fmt.Errorf("route %s %s: missing relationship", rt.Method, rt.Path)
			}
		default:
			return fmt.Errorf("route %s %s: unknown kind %q", rt.Method, rt.Path, rt.Kind)
		}
		if rt.Relationship != "" {
			if _, ok := r.RelationshipNamed(rt.Relationship); !ok {
				return fmt.Errorf("route %s %s: unknown relationship %q", rt.Method, rt.Path, rt.Relationship)
			}
		}
	}
	return nil
}

func validateType(t TypeRef) error {
	if !validKind(t.Kind) {
		return fmt.Errorf("unknown type kind %q", t.Kind)
	}
	switch t.Kind {
	case KindArray:
		if t.Items == nil {
			return fmt.Errorf("array type missing items")
		}
		return validateType(*t.Items)
	case KindEnum:
		if len(t.EnumValues) == 0 {
			return fmt.Errorf("enum type declares no values")
		}
	case KindUnion:
		if len(t.Members) == 0 {
			return fmt.Errorf("union type declares no members")
		}
		for _, m := range t.Members {
			if err := validateType(m.Type); err != nil {
				return err
			}
		}
	case KindEmbedded:
		if len(t.Fields) == 0 {
			return fmt.Errorf("embedded type declares no fields")
		}
		for _, f := range t.Fields {
			if err := validateType(f.Type); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	}
	return nil
}
