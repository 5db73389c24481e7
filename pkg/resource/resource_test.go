package resource

import (
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := &Registry{Resources: []Resource{
		{
			Type: "posts",
			Attributes: []Attribute{
				{Name: "title", Type: TypeRef{Kind: KindString}, Required: true},
				{Name: "body", Type: TypeRef{Kind: KindString, Nullable: true}},
				{Name: "views", Type: TypeRef{Kind: KindInteger}, Writable: boolPtr(false)},
				{Name: "secret", Type: TypeRef{Kind: KindString}, Public: boolPtr(false)},
			},
			Relationships: []Relationship{
				{Name: "author", Kind: BelongsTo, Destination: "authors"},
				{Name: "comments", Kind: HasMany, Destination: "comments", Writable: boolPtr(true)},
			},
			Calculations: []Calculation{
				{Name: "excerpt", Type: TypeRef{Kind: KindString}},
				{Name: "score", Type: TypeRef{Kind: KindFloat}, Arguments: []Argument{
					{Name: "weight", Type: TypeRef{Kind: KindFloat}, Required: true},
				}},
			},
			Aggregates: []Aggregate{
				{Name: "commentCount", Kind: AggCount, Relationship: "comments"},
				{Name: "latestComment", Kind: AggFirst, Relationship: "comments", Field: "text"},
			},
			Actions: []Action{
				{Name: "read", Kind: ActionRead},
				{Name: "create", Kind: ActionCreate, Accepts: []string{"title", "body"}},
				{Name: "update", Kind: ActionUpdate, Accepts: []string{"title", "body"}},
				{Name: "destroy", Kind: ActionDestroy},
			},
		},
		{
			Type: "authors",
			Attributes: []Attribute{
				{Name: "name", Type: TypeRef{Kind: KindString}, Required: true},
			},
			Actions: []Action{{Name: "read", Kind: ActionRead}},
		},
		{
			Type: "comments",
			Attributes: []Attribute{
				{Name: "text", Type: TypeRef{Kind: KindString}},
			},
			Actions: []Action{{Name: "read", Kind: ActionRead}},
		},
	}}
	for i := range reg.Resources {
		r := &reg.Resources[i]
		r.Routes = DefaultRoutes(r)
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("fixture registry invalid: %v", err)
	}
	return reg
}

func boolPtr(b bool) *bool { return &b }

func TestOperatorsFor(t *testing.T) {
	tests := []struct {
		name     string
		typ      TypeRef
		expected []Operator
	}{
		{"string", TypeRef{Kind: KindString},
			[]Operator{OpEq, OpNotEq, OpIn, OpNotIn, OpGt, OpGte, OpLt, OpLte, OpContains, OpStartsWith, OpEndsWith, OpIsNil}},
		{"integer", TypeRef{Kind: KindInteger},
			[]Operator{OpEq, OpNotEq, OpIn, OpNotIn, OpGt, OpGte, OpLt, OpLte, OpIsNil}},
		{"boolean", TypeRef{Kind: KindBoolean},
			[]Operator{OpEq, OpNotEq, OpIn, OpNotIn, OpIsNil}},
		{"datetime", TypeRef{Kind: KindDateTime},
			[]Operator{OpEq, OpNotEq, OpIn, OpNotIn, OpGt, OpGte, OpLt, OpLte, OpIsNil}},
		{"array", TypeRef{Kind: KindArray, Items: &TypeRef{Kind: KindString}},
			[]Operator{OpEq, OpNotEq, OpIsNil, OpHas}},
		{"map", TypeRef{Kind: KindMap}, []Operator{OpIsNil}},
		{"union", TypeRef{Kind: KindUnion, Members: []UnionMember{{Type: TypeRef{Kind: KindString}}}},
			[]Operator{OpIsNil}},
	}

	for _, test := range tests {
		got := OperatorsFor(test.typ)
		if len(got) != len(test.expected) {
			t.Errorf("OperatorsFor(%s) = %v, expected %v", test.name, got, test.expected)
			continue
		}
		for i := range got {
			if got[i] != test.expected[i] {
				t.Errorf("OperatorsFor(%s) = %v, expected %v", test.name, got, test.expected)
				break
			}
		}
	}
}

func TestAggregateType(t *testing.T) {
	reg := testRegistry(t)
	posts, _ := reg.Resource("posts")

	count, _ := posts.AggregateNamed("commentCount")
	if typ := reg.AggregateType(posts, *count); typ.Kind != KindInteger {
		t.Errorf("count aggregate type = %q, expected integer", typ.Kind)
	}

	first, _ := posts.AggregateNamed("latestComment")
	typ := reg.AggregateType(posts, *first)
	if typ.Kind != KindString || !typ.Nullable {
		t.Errorf("first aggregate type = %+v, expected nullable string", typ)
	}
}

func TestDefaultRoutes(t *testing.T) {
	reg := testRegistry(t)
	posts, _ := reg.Resource("posts")

	want := map[string]RouteKind{}
	for _, e := range []struct {
		key  string
		kind RouteKind
	}{
		{"GET /posts", RouteIndex},
		{"GET /posts/{id}", RouteGet},
		{"POST /posts", RoutePost},
		{"PATCH /posts/{id}", RoutePatch},
		{"DELETE /posts/{id}", RouteDelete},
		{"GET /posts/{id}/author", RouteRelated},
		{"GET /posts/{id}/relationships/author", RouteRelationship},
		{"GET /posts/{id}/comments", RouteRelated},
		{"GET /posts/{id}/relationships/comments", RouteRelationship},
		{"PATCH /posts/{id}/relationships/comments", RoutePatchRelationship},
		{"POST /posts/{id}/relationships/comments", RoutePostToRelationship},
		{"DELETE /posts/{id}/relationships/comments", RouteDeleteFromRelationship},
	} {
		want[e.key] = e.kind
	}
	if len(posts.Routes) != len(want) {
		t.Fatalf("got %d routes, expected %d: %+v", len(posts.Routes), len(want), posts.Routes)
	}
	for _, rt := range posts.Routes {
		key := rt.Method + " " + rt.Path
		kind, ok := want[key]
		if !ok {
			t.Errorf("unexpected route %s", key)
			continue
		}
		if rt.Kind != kind {
			t.Errorf("route %s kind = %q, expected %q", key, rt.Kind, kind)
		}
	}
}

func TestFieldNames(t *testing.T) {
	reg := testRegistry(t)
	posts, _ := reg.Resource("posts")

	fields := posts.FieldNames()
	expected := []string{"author", "body", "commentCount", "comments", "excerpt", "latestComment", "title", "views"}
	if len(fields) != len(expected) {
		t.Fatalf("FieldNames() = %v, expected %v", fields, expected)
	}
	for i := range fields {
		if fields[i] != expected[i] {
			t.Fatalf("FieldNames() = %v, expected %v", fields, expected)
		}
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		reg  Registry
	}{
		{"empty registry", Registry{}},
		{"duplicate type", Registry{Resources: []Resource{{Type: "posts"}, {Type: "posts"}}}},
		{"bad relationship destination", Registry{Resources: []Resource{{
			Type:          "posts",
			Relationships: []Relationship{{Name: "author", Kind: BelongsTo, Destination: "nope"}},
		}}}},
		{"bad aggregate field", Registry{Resources: []Resource{
			{
				Type:          "posts",
				Relationships: []Relationship{{Name: "comments", Kind: HasMany, Destination: "comments"}},
				Aggregates:    []Aggregate{{Name: "s", Kind: AggSum, Relationship: "comments", Field: "nope"}},
			},
			{Type: "comments"},
		}}},
		{"route with unknown action", Registry{Resources: []Resource{{
			Type:   "posts",
			Routes: []Route{{Kind: RouteIndex, Method: "GET", Path: "/posts", Action: "nope"}},
		}}}},
		{"relationship route without relationship", Registry{Resources: []Resource{{
			Type:    "posts",
			Actions: []Action{{Name: "read", Kind: ActionRead}},
			Routes:  []Route{{Kind: RouteRelated, Method: "GET", Path: "/posts/{id}/author", Action: "read"}},
		}}}},
		{"index route naming unknown relationship", Registry{Resources: []Resource{{
			Type:    "posts",
			Actions: []Action{{Name: "read", Kind: ActionRead}},
			Routes:  []Route{{Kind: RouteIndex, Method: "GET", Path: "/posts", Action: "read", Relationship: "bogus"}},
		}}}},
		{"enum without values", Registry{Resources: []Resource{{
			Type:       "posts",
			Attributes: []Attribute{{Name: "state", Type: TypeRef{Kind: KindEnum}}},
		}}}},
		{"array without items", Registry{Resources: []Resource{{
			Type:       "posts",
			Attributes: []Attribute{{Name: "tags", Type: TypeRef{Kind: KindArray}}},
		}}}},
	}

	for _, test := range tests {
		if err := test.reg.Validate(); err == nil {
			t.Errorf("Validate(%s) succeeded, expected error", test.name)
		}
	}
}

func TestParseRegistry(t *testing.T) {
	doc := []byte(`
resources:
  - type: posts
    attributes:
      - name: title
        type: {kind: string}
        required: true
      - name: tags
        type:
          kind: array
          items: {kind: string}
    relationships:
      - name: author
        kind: belongsTo
        destination: authors
    actions:
      - name: read
        kind: read
      - name: create
        kind: create
  - type: authors
    attributes:
      - name: name
        type: {kind: string}
    actions:
      - name: read
        kind: read
`)
	reg, err := ParseRegistry(doc)
	if err != nil {
		t.Fatalf("ParseRegistry failed: %v", err)
	}
	posts, ok := reg.Resource("posts")
	if !ok {
		t.Fatal("posts resource missing")
	}
	if len(posts.Routes) == 0 {
		t.Fatal("default routes were not derived")
	}
	tags, ok := posts.AttributeNamed("tags")
	if !ok || tags.Type.Kind != KindArray || tags.Type.Items.Kind != KindString {
		t.Errorf("tags attribute parsed incorrectly: %+v", tags)
	}
}
