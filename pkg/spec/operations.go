package spec

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/utils"
)

var pathParamPattern = regexp.MustCompile(`\{([^}]+)\}`)

// pathsFor walks every declared route of every included resource and emits
// the OpenAPI paths object. Paths and methods are emitted in deterministic
// order because Paths is keyed by template.
func (b *Builder) pathsFor() (*openapi3.Paths, error) {
	paths := openapi3.NewPaths()
	for _, typeName := range b.reg.Types() {
		if !b.filter.Allow(typeName) {
			continue
		}
		r, _ := b.reg.Resource(typeName)
		for _, rt := range r.Routes {
			if skip, err := b.skipRoute(r, rt); err != nil {
				return nil, err
			} else if skip {
				continue
			}
			op, err := b.operationFor(r, rt)
			if err != nil {
				return nil, fmt.Errorf("resource %q route %s %s: %w", r.Type, rt.Method, rt.Path, err)
			}
			item := paths.Value(rt.Path)
			if item == nil {
				item = &openapi3.PathItem{}
				paths.Set(rt.Path, item)
			}
			if existing := item.GetOperation(rt.Method); existing != nil {
				return nil, fmt.Errorf("duplicate route %s %s", rt.Method, rt.Path)
			}
			item.SetOperation(rt.Method, op)
		}
	}
	return paths, nil
}

// skipRoute drops relationship routes whose destination resource is
// excluded by the resource filter; their responses would dangle otherwise.
func (b *Builder) skipRoute(r *resource.Resource, rt resource.Route) (bool, error) {
	switch rt.Kind {
	case resource.RouteRelated, resource.RouteRelationship,
		resource.RoutePostToRelationship, resource.RoutePatchRelationship,
		resource.RouteDeleteFromRelationship:
		rel, ok := r.RelationshipNamed(rt.Relationship)
		if !ok {
			return false, fmt.Errorf("route %s %s names unknown relationship %q", rt.Method, rt.Path, rt.Relationship)
		}
		return !b.filter.Allow(rel.Destination), nil
	}
	return false, nil
}

// operationFor emits the OpenAPI operation of one declared route.
func (b *Builder) operationFor(r *resource.Resource, rt resource.Route) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: operationID(r, rt),
		Tags:        []string{r.Type},
		Summary:     routeSummary(r, rt),
		Description: rt.Description,
		Parameters:  pathParameters(rt.Path),
	}

	var rel *resource.Relationship
	var dest *resource.Resource
	if rt.Relationship != "" {
		found, _ := r.RelationshipNamed(rt.Relationship)
		rel = found
		dest, _ = b.reg.Resource(rel.Destination)
	}

	switch rt.Kind {
	case resource.RouteIndex:
		op.Parameters = append(op.Parameters, b.collectionParameters(r)...)
		op.Parameters = append(op.Parameters, b.readParameters(r)...)
		op.Responses = b.respondWith(200, "Collection of "+r.Type, b.documentSchema(r, true).NewRef())

	case resource.RouteGet:
		op.Parameters = append(op.Parameters, b.readParameters(r)...)
		op.Responses = b.respondWith(200, "Single "+r.Type, b.documentSchema(r, false).NewRef(),
			404)

	case resource.RoutePost:
		op.RequestBody = requestBody(ref(WriteSchemaName(r.Type, false)), true)
		op.Parameters = append(op.Parameters, b.readParameters(r)...)
		op.Responses = b.respondWith(201, "Created "+r.Type, b.documentSchema(r, false).NewRef(),
			400, 409, 422)

	case resource.RoutePatch:
		op.RequestBody = requestBody(ref(WriteSchemaName(r.Type, true)), true)
		op.Parameters = append(op.Parameters, b.readParameters(r)...)
		op.Responses = b.respondWith(200, "Updated "+r.Type, b.documentSchema(r, false).NewRef(),
			400, 404, 409, 422)

	case resource.RouteDelete:
		op.Responses = b.emptyResponse(204, "Deleted "+r.Type, 404)

	case resource.RouteRelated:
		if rel.Many() {
			op.Parameters = append(op.Parameters, b.collectionParameters(dest)...)
		}
		op.Parameters = append(op.Parameters, b.readParameters(dest)...)
		desc := fmt.Sprintf("Related %s of %s", rel.Name, r.Type)
		op.Responses = b.respondWith(200, desc, b.documentSchema(dest, rel.Many()).NewRef(),
			404)

	case resource.RouteRelationship:
		desc := fmt.Sprintf("Linkage of %s for %s", rel.Name, r.Type)
		op.Responses = b.respondWith(200, desc, linkageDocumentSchema(rel.Many()).NewRef(),
			404)

	case resource.RoutePostToRelationship, resource.RoutePatchRelationship,
		resource.RouteDeleteFromRelationship:
		many := rel.Many() || rt.Kind != resource.RoutePatchRelationship
		op.RequestBody = requestBody(linkageDocumentSchema(many).NewRef(), true)
		desc := fmt.Sprintf("Updated linkage of %s for %s", rel.Name, r.Type)
		op.Responses = b.respondWith(200, desc, linkageDocumentSchema(rel.Many()).NewRef(),
			400, 404)

	default:
		return nil, fmt.Errorf("unknown route kind %q", rt.Kind)
	}
	return op, nil
}

// respondWith builds the responses object: one success response plus error
// responses and the default error fallback.
func (b *Builder) respondWith(status int, description string, schema *openapi3.SchemaRef, errs ...int) *openapi3.Responses {
	opts := []openapi3.NewResponsesOption{
		openapi3.WithStatus(status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(description).
				WithContent(openapi3.NewContentWithSchemaRef(schema, []string{jsonapi.MediaType})),
		}),
	}
	opts = append(opts, errorResponses(errs)...)
	return openapi3.NewResponses(opts...)
}

// emptyResponse builds a bodyless success response (delete routes).
func (b *Builder) emptyResponse(status int, description string, errs ...int) *openapi3.Responses {
	opts := []openapi3.NewResponsesOption{
		openapi3.WithStatus(status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription(description),
		}),
	}
	opts = append(opts, errorResponses(errs)...)
	return openapi3.NewResponses(opts...)
}

var errorDescriptions = map[int]string{
	400: "Malformed request",
	404: "Resource not found",
	406: "Unacceptable media type parameters",
	409: "Resource type or identifier conflict",
	415: "Unsupported media type",
	422: "Invalid attributes or relationships",
}

func errorResponses(statuses []int) []openapi3.NewResponsesOption {
	errContent := openapi3.NewContentWithSchemaRef(ref(schemaErrors), []string{jsonapi.MediaType})
	opts := make([]openapi3.NewResponsesOption, 0, len(statuses)+1)
	for _, status := range statuses {
		opts = append(opts, openapi3.WithStatus(status, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription(errorDescriptions[status]).
				WithContent(errContent),
		}))
	}
	opts = append(opts, openapi3.WithName("default", openapi3.NewResponse().
		WithDescription("Unexpected error").
		WithContent(errContent)))
	return opts
}

func requestBody(schema *openapi3.SchemaRef, required bool) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(required).
			WithContent(openapi3.NewContentWithSchemaRef(schema, []string{jsonapi.MediaType})),
	}
}

// pathParameters declares a string path parameter for every template
// segment of the route path.
func pathParameters(path string) openapi3.Parameters {
	var out openapi3.Parameters
	for _, m := range pathParamPattern.FindAllStringSubmatch(path, -1) {
		out = append(out, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:     m[1],
			In:       openapi3.ParameterInPath,
			Required: true,
			Schema:   openapi3.NewStringSchema().NewRef(),
		}})
	}
	return out
}

// collectionParameters are the query parameters of collection reads:
// filter, sort, and page.
func (b *Builder) collectionParameters(r *resource.Resource) openapi3.Parameters {
	out := openapi3.Parameters{
		&openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        "filter",
			In:          openapi3.ParameterInQuery,
			Description: "Filter expression over filterable fields",
			Style:       openapi3.SerializationDeepObject,
			Explode:     boolPtr(true),
			Schema:      ref(filterSchemaName(r.Type)),
		}},
	}
	if sortable := r.SortableFieldNames(); len(sortable) > 0 {
		out = append(out, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        "sort",
			In:          openapi3.ParameterInQuery,
			Description: "Comma separated sort fields; prefix with - for descending",
			Schema:      sortSchema(sortable).NewRef(),
		}})
	}
	out = append(out, &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:        "page",
		In:          openapi3.ParameterInQuery,
		Description: "Pagination window",
		Style:       openapi3.SerializationDeepObject,
		Explode:     boolPtr(true),
		Schema:      pageSchema().NewRef(),
	}})
	return out
}

// readParameters are the query parameters shared by every read that renders
// resource objects: include and sparse fieldsets.
func (b *Builder) readParameters(r *resource.Resource) openapi3.Parameters {
	var out openapi3.Parameters
	if paths := b.includePaths(r); len(paths) > 0 {
		out = append(out, &openapi3.ParameterRef{Value: &openapi3.Parameter{
			Name:        "include",
			In:          openapi3.ParameterInQuery,
			Description: "Comma separated relationship paths: " + strings.Join(paths, ", "),
			Schema:      openapi3.NewStringSchema().NewRef(),
		}})
	}
	out = append(out, &openapi3.ParameterRef{Value: &openapi3.Parameter{
		Name:        "fields",
		In:          openapi3.ParameterInQuery,
		Description: "Sparse fieldsets keyed by resource type",
		Style:       openapi3.SerializationDeepObject,
		Explode:     boolPtr(true),
		Schema:      b.fieldsSchema(r).NewRef(),
	}})
	return out
}

// sortSchema restricts the sort parameter to comma separated, optionally
// descending sortable field names.
func sortSchema(sortable []string) *openapi3.Schema {
	members := make([]string, len(sortable))
	for i, name := range sortable {
		members[i] = regexp.QuoteMeta(utils.MemberName(name))
	}
	alt := strings.Join(members, "|")
	return &openapi3.Schema{
		Type:    &openapi3.Types{openapi3.TypeString},
		Pattern: fmt.Sprintf(`^-?(%s)(,-?(%s))*$`, alt, alt),
	}
}

func pageSchema() *openapi3.Schema {
	one := float64(1)
	zero := float64(0)
	return &openapi3.Schema{
		Type: &openapi3.Types{openapi3.TypeObject},
		Properties: openapi3.Schemas{
			"limit":  (&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeInteger}, Min: &one}).NewRef(),
			"offset": (&openapi3.Schema{Type: &openapi3.Types{openapi3.TypeInteger}, Min: &zero}).NewRef(),
			"after":  openapi3.NewStringSchema().NewRef(),
			"before": openapi3.NewStringSchema().NewRef(),
			"count":  openapi3.NewBoolSchema().NewRef(),
		},
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	}
}

// fieldsSchema enumerates the sparse fieldset members per reachable type.
func (b *Builder) fieldsSchema(r *resource.Resource) *openapi3.Schema {
	reachable := map[string]bool{r.Type: true}
	b.collectReachable(r, reachable, 0)
	names := make([]string, 0, len(reachable))
	for name := range reachable {
		names = append(names, name)
	}
	sort.Strings(names)

	s := &openapi3.Schema{
		Type:                 &openapi3.Types{openapi3.TypeObject},
		Properties:           openapi3.Schemas{},
		AdditionalProperties: openapi3.AdditionalProperties{Has: boolPtr(false)},
	}
	for _, name := range names {
		res, ok := b.reg.Resource(name)
		if !ok {
			continue
		}
		members := make([]string, 0)
		for _, f := range res.FieldNames() {
			members = append(members, utils.MemberName(f))
		}
		s.Properties[name] = (&openapi3.Schema{
			Type:        &openapi3.Types{openapi3.TypeString},
			Description: "Comma separated members: " + strings.Join(members, ", "),
		}).NewRef()
	}
	return s
}

// includePaths enumerates the allowed include paths from r, bounded by
// includeDepth, in sorted order.
func (b *Builder) includePaths(r *resource.Resource) []string {
	var out []string
	var walk func(res *resource.Resource, prefix string, depth int)
	walk = func(res *resource.Resource, prefix string, depth int) {
		if depth >= includeDepth {
			return
		}
		for _, rel := range res.Relationships {
			if !rel.IsPublic() || !b.filter.Allow(rel.Destination) {
				continue
			}
			path := utils.MemberName(rel.Name)
			if prefix != "" {
				path = prefix + "." + path
			}
			out = append(out, path)
			if dest, ok := b.reg.Resource(rel.Destination); ok {
				walk(dest, path, depth+1)
			}
		}
	}
	walk(r, "", 0)
	sort.Strings(out)
	return out
}

// operationID derives a deterministic operation id; route names override.
func operationID(r *resource.Resource, rt resource.Route) string {
	if rt.Name != "" {
		return utils.ToCamelCase(rt.Name)
	}
	switch rt.Kind {
	case resource.RouteIndex:
		return utils.ToCamelCase("list " + r.Type)
	case resource.RouteGet:
		return utils.ToCamelCase("get " + r.Type)
	case resource.RoutePost:
		return utils.ToCamelCase("create " + r.Type)
	case resource.RoutePatch:
		return utils.ToCamelCase("update " + r.Type)
	case resource.RouteDelete:
		return utils.ToCamelCase("delete " + r.Type)
	case resource.RouteRelated:
		return utils.ToCamelCase("get " + r.Type + " " + rt.Relationship)
	case resource.RouteRelationship:
		return utils.ToCamelCase("get " + r.Type + " relationships " + rt.Relationship)
	case resource.RoutePostToRelationship:
		return utils.ToCamelCase("add " + r.Type + " relationships " + rt.Relationship)
	case resource.RoutePatchRelationship:
		return utils.ToCamelCase("replace " + r.Type + " relationships " + rt.Relationship)
	case resource.RouteDeleteFromRelationship:
		return utils.ToCamelCase("remove " + r.Type + " relationships " + rt.Relationship)
	}
	return utils.ToCamelCase(rt.Action + " " + r.Type)
}

func routeSummary(r *resource.Resource, rt resource.Route) string {
	switch rt.Kind {
	case resource.RouteIndex:
		return "List " + r.Type
	case resource.RouteGet:
		return "Fetch a single " + r.Type + " record"
	case resource.RoutePost:
		return "Create a " + r.Type + " record"
	case resource.RoutePatch:
		return "Update a " + r.Type + " record"
	case resource.RouteDelete:
		return "Delete a " + r.Type + " record"
	case resource.RouteRelated:
		return fmt.Sprintf("Fetch related %s of %s", rt.Relationship, r.Type)
	case resource.RouteRelationship:
		return fmt.Sprintf("Fetch %s linkage of %s", rt.Relationship, r.Type)
	case resource.RoutePostToRelationship:
		return fmt.Sprintf("Add to %s linkage of %s", rt.Relationship, r.Type)
	case resource.RoutePatchRelationship:
		return fmt.Sprintf("Replace %s linkage of %s", rt.Relationship, r.Type)
	case resource.RouteDeleteFromRelationship:
		return fmt.Sprintf("Remove from %s linkage of %s", rt.Relationship, r.Type)
	}
	return ""
}
