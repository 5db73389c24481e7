package jsonapi

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restweave-dev/restweave/pkg/resource"
)

func testRegistry(t *testing.T) *resource.Registry {
	t.Helper()
	truthy := true
	reg := &resource.Registry{Resources: []resource.Resource{
		{
			Type: "posts",
			Attributes: []resource.Attribute{
				{Name: "title", Type: resource.TypeRef{Kind: resource.KindString}, Required: true},
				{Name: "body", Type: resource.TypeRef{Kind: resource.KindString, Nullable: true}},
				{Name: "viewCount", Type: resource.TypeRef{Kind: resource.KindInteger}},
			},
			Relationships: []resource.Relationship{
				{Name: "author", Kind: resource.BelongsTo, Destination: "authors"},
				{Name: "comments", Kind: resource.HasMany, Destination: "comments", Writable: &truthy},
			},
			Actions: []resource.Action{{Name: "read", Kind: resource.ActionRead}},
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
	require.NoError(t, reg.Validate())
	return reg
}

func TestPrimaryDataMarshal(t *testing.T) {
	single := SingleData(&ResourceObject{Type: "posts", ID: "1"})
	data, err := json.Marshal(single)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"posts","id":"1"}`, string(data))

	null := SingleData(nil)
	data, err = json.Marshal(null)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	many := CollectionData(nil)
	data, err = json.Marshal(many)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestPrimaryDataUnmarshal(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{"data":[{"type":"posts","id":"1"}]}`), &doc))
	require.NotNil(t, doc.Data)
	assert.True(t, doc.Data.Many)
	require.Len(t, doc.Data.Items, 1)
	assert.Equal(t, "posts", doc.Data.Items[0].Type)

	require.NoError(t, json.Unmarshal([]byte(`{"data":null}`), &doc))
	assert.False(t, doc.Data.Many)
	assert.Nil(t, doc.Data.One)
}

func TestParseQuery(t *testing.T) {
	reg := testRegistry(t)
	posts, _ := reg.Resource("posts")

	values, err := url.ParseQuery("include=author,comments.author&sort=-view_count,title&fields[posts]=title,author&page[limit]=10&page[offset]=20&filter[title][eq]=hello&filter[author][name][contains]=an")
	require.NoError(t, err)

	q, errs := ParseQuery(values, posts, reg)
	require.Empty(t, errs)

	assert.Equal(t, [][]string{{"author"}, {"comments", "author"}}, q.Includes)
	require.Len(t, q.Sort, 2)
	assert.Equal(t, SortField{Field: "viewCount", Descending: true}, q.Sort[0])
	assert.Equal(t, SortField{Field: "title"}, q.Sort[1])
	assert.Equal(t, []string{"title", "author"}, q.Fields["posts"])
	assert.Equal(t, 10, q.Page.Limit)
	assert.Equal(t, 20, q.Page.Offset)
	require.NotNil(t, q.Filter)
	assert.Equal(t, map[string]any{"eq": "hello"}, q.Filter["title"])
}

func TestParseQueryErrors(t *testing.T) {
	reg := testRegistry(t)
	posts, _ := reg.Resource("posts")

	tests := []struct {
		name  string
		query string
		param string
	}{
		{"unknown include", "include=editor", "include"},
		{"private include hop", "include=comments.editor", "include"},
		{"unsortable field", "sort=body_length", "sort"},
		{"unknown fields type", "fields[widgets]=name", "fields"},
		{"unknown field member", "fields[posts]=nope", "fields"},
		{"negative page limit", "page[limit]=-1", "page"},
		{"unknown page key", "page[size]=10", "page"},
		{"unfilterable field", "filter[nope][eq]=1", "filter[nope]"},
		{"bad operator", "filter[title][near]=x", "filter[title]"},
		{"unknown parameter", "frobnicate=1", "frobnicate"},
	}

	for _, test := range tests {
		values, err := url.ParseQuery(test.query)
		require.NoError(t, err, test.name)
		_, errs := ParseQuery(values, posts, reg)
		require.NotEmpty(t, errs, test.name)
		assert.Equal(t, test.param, errs[0].Source.Parameter, test.name)
		assert.Equal(t, "400", errs[0].Status, test.name)
	}
}

func TestSerializerSingle(t *testing.T) {
	reg := testRegistry(t)
	s := NewSerializer(reg, "https://api.example.com")

	author := &Record{Type: "authors", ID: "a1", Attributes: map[string]any{"name": "Ada"}}
	rec := &Record{
		Type: "posts",
		ID:   "p1",
		Attributes: map[string]any{
			"title":     "Hello",
			"viewCount": 3,
		},
		Relationships: map[string][]ResourceIdentifier{
			"author": {{Type: "authors", ID: "a1"}},
		},
		Related: map[string][]*Record{"author": {author}},
	}

	q := &Query{Includes: [][]string{{"author"}}}
	doc := s.Single(rec, q)

	require.NotNil(t, doc.Data.One)
	obj := doc.Data.One
	assert.Equal(t, "Hello", obj.Attributes["title"])
	assert.Equal(t, 3, obj.Attributes["view_count"])
	assert.Equal(t, "https://api.example.com/posts/p1", obj.Links["self"])

	relObj := obj.Relationships["author"]
	require.NotNil(t, relObj)
	require.NotNil(t, relObj.Data)
	assert.Equal(t, "a1", relObj.Data.One.ID)
	assert.Equal(t, "https://api.example.com/posts/p1/relationships/author", relObj.Links["self"])

	require.Len(t, doc.Included, 1)
	assert.Equal(t, "authors", doc.Included[0].Type)
}

func TestSerializerSparseFieldsets(t *testing.T) {
	reg := testRegistry(t)
	s := NewSerializer(reg, "https://api.example.com")

	rec := &Record{
		Type:       "posts",
		ID:         "p1",
		Attributes: map[string]any{"title": "Hello", "body": "world", "viewCount": 3},
	}
	q := &Query{Fields: map[string][]string{"posts": {"title"}}}
	doc := s.Single(rec, q)

	obj := doc.Data.One
	assert.Equal(t, map[string]any{"title": "Hello"}, obj.Attributes)
	assert.Nil(t, obj.Relationships["author"])
}

func TestSerializerIncludedDedupe(t *testing.T) {
	reg := testRegistry(t)
	s := NewSerializer(reg, "https://api.example.com")

	author := &Record{Type: "authors", ID: "a1", Attributes: map[string]any{"name": "Ada"}}
	recs := []*Record{
		{Type: "posts", ID: "p1", Related: map[string][]*Record{"author": {author}}},
		{Type: "posts", ID: "p2", Related: map[string][]*Record{"author": {author}}},
	}
	q := &Query{Includes: [][]string{{"author"}}, Page: Page{Limit: 2, Offset: 2}}
	doc := s.Collection(recs, q, "https://api.example.com/posts")

	require.Len(t, doc.Data.Items, 2)
	require.Len(t, doc.Included, 1)
	assert.Equal(t, "https://api.example.com/posts?page[offset]=4&page[limit]=2", doc.Links["next"])
	assert.Equal(t, "https://api.example.com/posts?page[offset]=0&page[limit]=2", doc.Links["prev"])
}

func TestLinkageDocument(t *testing.T) {
	s := NewSerializer(testRegistry(t), "")

	doc := s.LinkageDocument(true, []ResourceIdentifier{{Type: "comments", ID: "c1"}})
	data, err := json.Marshal(doc.Data)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"comments","id":"c1"}]`, string(data))

	doc = s.LinkageDocument(false, nil)
	data, err = json.Marshal(doc.Data)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestErrorObject(t *testing.T) {
	err := InvalidParameter("sort", "bad field")
	assert.Equal(t, 400, err.StatusCode())
	assert.Equal(t, "sort", err.Source.Parameter)

	ptr := InvalidPointer("/data/attributes/title", "required")
	assert.Equal(t, 422, ptr.StatusCode())
	assert.Equal(t, "/data/attributes/title", ptr.Source.Pointer)
}
