package resource

// Kind represents the kind of an attribute type
type Kind string

const (
	KindString   Kind = "string"
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindDecimal  Kind = "decimal"
	KindBoolean  Kind = "boolean"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindUUID     Kind = "uuid"
	KindEnum     Kind = "enum"
	KindMap      Kind = "map"
	KindArray    Kind = "array"
	KindUnion    Kind = "union"
	KindEmbedded Kind = "embedded"
)

// TypeRef models an attribute, calculation, or argument type in a
// language-agnostic way. Arrays, unions, and embedded objects nest
// recursively.
type TypeRef struct {
	Kind     Kind `yaml:"kind"`
	Nullable bool `yaml:"nullable"`

	// Array
	Items *TypeRef `yaml:"items"`

	// Enum
	EnumValues []string `yaml:"values"`

	// Union
	Members []UnionMember `yaml:"members"`

	// Embedded
	Fields []EmbeddedField `yaml:"fields"`
}

// UnionMember is one alternative of a union type. When Tag is set the
// member is tagged: its wire form is a single-key object keyed by Tag.
type UnionMember struct {
	Tag  string  `yaml:"tag"`
	Type TypeRef `yaml:"type"`
}

// EmbeddedField is a named field of an embedded object type.
type EmbeddedField struct {
	Name string  `yaml:"name"`
	Type TypeRef `yaml:"type"`
}

// Orderable reports whether values of this type have a total order that
// comparison operators (gt, gte, lt, lte) can rely on.
func (t TypeRef) Orderable() bool {
	switch t.Kind {
	case KindString, KindInteger, KindFloat, KindDecimal, KindDate, KindDateTime:
		return true
	}
	return false
}

// Scalar reports whether this type is a single JSON value as opposed to a
// structured one (array, map, union, embedded).
func (t TypeRef) Scalar() bool {
	switch t.Kind {
	case KindString, KindInteger, KindFloat, KindDecimal, KindBoolean,
		KindDate, KindDateTime, KindUUID, KindEnum:
		return true
	}
	return false
}

// validKind reports whether k is one of the declared kinds.
func validKind(k Kind) bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindDecimal, KindBoolean,
		KindDate, KindDateTime, KindUUID, KindEnum, KindMap, KindArray,
		KindUnion, KindEmbedded:
		return true
	}
	return false
}
