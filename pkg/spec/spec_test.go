package spec

import (
	"context"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/restweave-dev/restweave/pkg/config"
	"github.com/restweave-dev/restweave/pkg/resource"
)

func testRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	hidden := false
	writable := true
	reg := &resource.Registry{Resources: []resource.Resource{
		{
			Type:        "posts",
			Description: "Blog posts",
			Attributes: []resource.Attribute{
				{Name: "title", Type: resource.TypeRef{Kind: resource.KindString}, Required: true},
				{Name: "body", Type: resource.TypeRef{Kind: resource.KindString, Nullable: true}},
				{Name: "status", Type: resource.TypeRef{Kind: resource.KindEnum, EnumValues: []string{"draft", "published"}}},
				{Name: "rating", Type: resource.TypeRef{Kind: resource.KindDecimal, Nullable: true}},
				{Name: "viewCount", Type: resource.TypeRef{Kind: resource.KindInteger}},
				{Name: "secret", Type: resource.TypeRef{Kind: resource.KindString}, Public: &hidden},
			},
			Relationships: []resource.Relationship{
				{Name: "author", Kind: resource.BelongsTo, Destination: "authors"},
				{Name: "comments", Kind: resource.HasMany, Destination: "comments", Writable: &writable},
			},
			Calculations: []resource.Calculation{
				{Name: "excerpt", Type: resource.TypeRef{Kind: resource.KindString}},
				{Name: "score", Type: resource.TypeRef{Kind: resource.KindFloat}, Arguments: []resource.Argument{
					{Name: "factor", Type: resource.TypeRef{Kind: resource.KindFloat}, Required: true},
				}},
			},
			Aggregates: []resource.Aggregate{
				{Name: "commentCount", Kind: resource.AggCount, Relationship: "comments"},
			},
			Actions: []resource.Action{
				{Name: "read", Kind: resource.ActionRead},
				{Name: "create", Kind: resource.ActionCreate},
				{Name: "update", Kind: resource.ActionUpdate},
				{Name: "destroy", Kind: resource.ActionDestroy},
			},
		},
		{
			Type: "authors",
			Attributes: []resource.Attribute{
				{Name: "name", Type: resource.TypeRef{Kind: resource.KindString}},
			},
			Actions: []resource.Action{{Name: "read", Kind: resource.ActionRead}},
		},
		{
			Type: "comments",
			Attributes: []resource.Attribute{
				{Name: "text", Type: resource.TypeRef{Kind: resource.KindString}},
			},
			Relationships: []resource.Relationship{
				{Name: "author", Kind: resource.BelongsTo, Destination: "authors"},
			},
			Actions: []resource.Action{{Name: "read", Kind: resource.ActionRead}},
		},
	}}
	for i := range reg.Resources {
		reg.Resources[i].Routes = resource.DefaultRoutes(&reg.Resources[i])
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("fixture registry invalid: %v", err)
	}
	return reg
}

func testConfig() *config.Config {
	return &config.Config{
		Info: config.Info{Title: "Blog API", Version: "1.2.3"},
		Servers: []config.Server{
			{URL: "https://api.example.com", Description: "production"},
		},
	}
}

func buildDoc(t *testing.T, cfg *config.Config) *openapi3.T {
	t.Helper()
	b, err := NewBuilder(testRegistry(t), cfg)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return doc
}

func TestSchemaForType(t *testing.T) {
	tests := []struct {
		name     string
		in       resource.TypeRef
		wantType string
		format   string
		nullable bool
	}{
		{"string", resource.TypeRef{Kind: resource.KindString}, "string", "", false},
		{"integer", resource.TypeRef{Kind: resource.KindInteger}, "integer", "", false},
		{"float", resource.TypeRef{Kind: resource.KindFloat}, "number", "", false},
		{"decimal", resource.TypeRef{Kind: resource.KindDecimal}, "string", "decimal", false},
		{"boolean", resource.TypeRef{Kind: resource.KindBoolean}, "boolean", "", false},
		{"date", resource.TypeRef{Kind: resource.KindDate}, "string", "date", false},
		{"datetime", resource.TypeRef{Kind: resource.KindDateTime}, "string", "date-time", false},
		{"uuid", resource.TypeRef{Kind: resource.KindUUID, Nullable: true}, "string", "uuid", true},
		{"map", resource.TypeRef{Kind: resource.KindMap}, "object", "", false},
	}
	for _, test := range tests {
		s := SchemaForType(test.in)
		if s.Type == nil || !s.Type.Is(test.wantType) {
			t.Errorf("%s: type = %v, expected %q", test.name, s.Type, test.wantType)
		}
		if s.Format != test.format {
			t.Errorf("%s: format = %q, expected %q", test.name, s.Format, test.format)
		}
		if s.Nullable != test.nullable {
			t.Errorf("%s: nullable = %v, expected %v", test.name, s.Nullable, test.nullable)
		}
	}
}

func TestSchemaForTypeArray(t *testing.T) {
	s := SchemaForType(resource.TypeRef{
		Kind:  resource.KindArray,
		Items: &resource.TypeRef{Kind: resource.KindUUID},
	})
	if s.Type == nil || !s.Type.Is("array") {
		t.Fatalf("expected array type, got %v", s.Type)
	}
	if s.Items == nil || s.Items.Value.Format != "uuid" {
		t.Errorf("expected uuid items, got %+v", s.Items)
	}
}

func TestSchemaForTypeUnion(t *testing.T) {
	s := SchemaForType(resource.TypeRef{
		Kind: resource.KindUnion,
		Members: []resource.UnionMember{
			{Tag: "text", Type: resource.TypeRef{Kind: resource.KindString}},
			{Type: resource.TypeRef{Kind: resource.KindInteger}},
		},
	})
	if len(s.AnyOf) != 2 {
		t.Fatalf("expected 2 anyOf members, got %d", len(s.AnyOf))
	}
	tagged := s.AnyOf[0].Value
	if len(tagged.Required) != 1 || tagged.Required[0] != "text" {
		t.Errorf("tagged member should require its tag key, got %v", tagged.Required)
	}
	if _, ok := tagged.Properties["text"]; !ok {
		t.Errorf("tagged member should wrap the value under the tag key")
	}
	plain := s.AnyOf[1].Value
	if plain.Type == nil || !plain.Type.Is("integer") {
		t.Errorf("untagged member should stay bare, got %v", plain.Type)
	}
}

func TestSchemaForTypeEmbedded(t *testing.T) {
	s := SchemaForType(resource.TypeRef{
		Kind: resource.KindEmbedded,
		Fields: []resource.EmbeddedField{
			{Name: "street", Type: resource.TypeRef{Kind: resource.KindString}},
			{Name: "unit", Type: resource.TypeRef{Kind: resource.KindString, Nullable: true}},
		},
	})
	if len(s.Required) != 1 || s.Required[0] != "street" {
		t.Errorf("only non-nullable fields should be required, got %v", s.Required)
	}
}

func TestBuildComponents(t *testing.T) {
	doc := buildDoc(t, testConfig())

	for _, name := range []string{
		"posts", "authors", "comments",
		"posts-create", "posts-update",
		"posts-filter", "posts-filter-title", "posts-filter-comment_count",
		"resource-identifier", "errors", "meta",
	} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("missing component schema %q", name)
		}
	}
	if _, ok := doc.Components.Schemas["authors-create"]; ok {
		t.Errorf("authors has no create action, should not carry a create schema")
	}

	posts := doc.Components.Schemas["posts"].Value
	attrs := posts.Properties["attributes"].Value
	if _, ok := attrs.Properties["view_count"]; !ok {
		t.Errorf("attribute members should use snake_case")
	}
	if _, ok := attrs.Properties["secret"]; ok {
		t.Errorf("private attributes must not appear")
	}
	if _, ok := attrs.Properties["excerpt"]; !ok {
		t.Errorf("argument-free calculations belong in attributes")
	}
	if _, ok := attrs.Properties["score"]; ok {
		t.Errorf("calculations requiring arguments must not appear in attributes")
	}
	if _, ok := attrs.Properties["comment_count"]; !ok {
		t.Errorf("aggregates belong in attributes")
	}
}

func TestBuildInfoAndServers(t *testing.T) {
	doc := buildDoc(t, testConfig())
	if doc.Info.Title != "Blog API" || doc.Info.Version != "1.2.3" {
		t.Errorf("info = %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://api.example.com" {
		t.Errorf("servers = %+v", doc.Servers)
	}
	if len(doc.Tags) != 3 {
		t.Errorf("expected one tag per resource, got %d", len(doc.Tags))
	}
}

func TestNewBuilderRejectsStrayRouteRelationship(t *testing.T) {
	reg := &resource.Registry{Resources: []resource.Resource{{
		Type: "posts",
		Attributes: []resource.Attribute{
			{Name: "title", Type: resource.TypeRef{Kind: resource.KindString}},
		},
		Actions: []resource.Action{{Name: "read", Kind: resource.ActionRead}},
		Routes: []resource.Route{
			{Kind: resource.RouteIndex, Method: "GET", Path: "/posts", Action: "read", Relationship: "bogus"},
		},
	}}}
	if _, err := NewBuilder(reg, testConfig()); err == nil {
		t.Fatal("expected error for route naming an undeclared relationship")
	}
}

func TestBuildPaths(t *testing.T) {
	doc := buildDoc(t, testConfig())

	tests := []struct {
		path   string
		method string
		opID   string
	}{
		{"/posts", "GET", "listPosts"},
		{"/posts", "POST", "createPosts"},
		{"/posts/{id}", "GET", "getPosts"},
		{"/posts/{id}", "PATCH", "updatePosts"},
		{"/posts/{id}", "DELETE", "deletePosts"},
		{"/posts/{id}/author", "GET", "getPostsAuthor"},
		{"/posts/{id}/relationships/author", "GET", "getPostsRelationshipsAuthor"},
		{"/posts/{id}/relationships/comments", "PATCH", "replacePostsRelationshipsComments"},
		{"/posts/{id}/relationships/comments", "POST", "addPostsRelationshipsComments"},
		{"/posts/{id}/relationships/comments", "DELETE", "removePostsRelationshipsComments"},
		{"/comments/{id}/author", "GET", "getCommentsAuthor"},
	}
	for _, test := range tests {
		item := doc.Paths.Value(test.path)
		if item == nil {
			t.Errorf("missing path %s", test.path)
			continue
		}
		op := item.GetOperation(test.method)
		if op == nil {
			t.Errorf("missing operation %s %s", test.method, test.path)
			continue
		}
		if op.OperationID != test.opID {
			t.Errorf("%s %s: operationId = %q, expected %q", test.method, test.path, op.OperationID, test.opID)
		}
	}
}

func TestIndexParameters(t *testing.T) {
	doc := buildDoc(t, testConfig())
	op := doc.Paths.Value("/posts").Get

	names := map[string]bool{}
	for _, p := range op.Parameters {
		names[p.Value.Name] = true
	}
	for _, want := range []string{"filter", "sort", "page", "include", "fields"} {
		if !names[want] {
			t.Errorf("index operation missing %q parameter", want)
		}
	}
}

func TestDeleteResponses(t *testing.T) {
	doc := buildDoc(t, testConfig())
	op := doc.Paths.Value("/posts/{id}").Delete
	if op.Responses.Value("204") == nil {
		t.Errorf("delete should respond 204")
	}
	if op.Responses.Value("404") == nil {
		t.Errorf("delete should declare 404")
	}
	if op.RequestBody != nil {
		t.Errorf("delete takes no request body")
	}
}

func TestResourceFilterExclusion(t *testing.T) {
	cfg := testConfig()
	cfg.ExcludeResources = []string{"^comments$"}
	doc := buildDoc(t, cfg)

	if doc.Paths.Value("/comments") != nil {
		t.Errorf("excluded resource should emit no paths")
	}
	if doc.Paths.Value("/posts/{id}/comments") != nil {
		t.Errorf("relationship routes to excluded destinations should drop")
	}
	if doc.Paths.Value("/posts/{id}/author") == nil {
		t.Errorf("relationship routes to included destinations should stay")
	}
	if _, ok := doc.Components.Schemas["comments"]; ok {
		t.Errorf("excluded resource should emit no component schema")
	}
}

func TestFilterFieldSchemaShorthand(t *testing.T) {
	f := resource.FilterField{Name: "title", Type: resource.TypeRef{Kind: resource.KindString}}
	s := filterFieldSchema(f)
	if len(s.AnyOf) != 2 {
		t.Fatalf("plain fields take a bare operand or an operator object, got %d members", len(s.AnyOf))
	}
	ops := s.AnyOf[1].Value
	for _, op := range []string{"eq", "in", "contains", "startsWith"} {
		if _, ok := ops.Properties[op]; !ok {
			t.Errorf("string field missing operator %q", op)
		}
	}
	if _, ok := ops.Properties["gt"]; !ok {
		t.Errorf("strings order lexicographically and take gt")
	}
}

func TestFilterFieldSchemaWithArguments(t *testing.T) {
	f := resource.FilterField{
		Name: "score",
		Type: resource.TypeRef{Kind: resource.KindFloat},
		Arguments: []resource.Argument{
			{Name: "factor", Type: resource.TypeRef{Kind: resource.KindFloat}, Required: true},
		},
	}
	s := filterFieldSchema(f)
	if len(s.AnyOf) != 0 {
		t.Fatalf("argument-taking calculations have no shorthand form")
	}
	if _, ok := s.Properties["args"]; !ok {
		t.Fatalf("missing args member")
	}
	if len(s.Required) != 1 || s.Required[0] != "args" {
		t.Errorf("required arguments should force the args member, got %v", s.Required)
	}
}

func TestValidateBuiltDocument(t *testing.T) {
	doc := buildDoc(t, testConfig())
	if err := Validate(context.Background(), doc); err != nil {
		t.Fatalf("generated document should validate: %v", err)
	}
}

func TestEncode(t *testing.T) {
	doc := buildDoc(t, testConfig())

	data, err := Encode(doc, "json")
	if err != nil {
		t.Fatalf("Encode json: %v", err)
	}
	if !strings.Contains(string(data), `"openapi": "3.0.3"`) {
		t.Errorf("json output missing openapi version")
	}

	data, err = Encode(doc, "yaml")
	if err != nil {
		t.Fatalf("Encode yaml: %v", err)
	}
	if !strings.Contains(string(data), "openapi: 3.0.3") {
		t.Errorf("yaml output missing openapi version")
	}

	if _, err := Encode(doc, "toml"); err == nil {
		t.Errorf("unknown formats should error")
	}
}
