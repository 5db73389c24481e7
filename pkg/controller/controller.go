// Package controller mounts JSON:API HTTP endpoints for every declared
// route of a resource registry. Request parsing, content negotiation,
// body validation, and document rendering live here; the host framework
// supplies a Runner that executes the actions.
package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/restweave-dev/restweave/pkg/config"
	"github.com/restweave-dev/restweave/pkg/jsonapi"
	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/spec"
)

const maxBodyBytes = 4 << 20

// Controller is the mounted HTTP surface of a resource registry.
type Controller struct {
	reg        *resource.Registry
	cfg        *config.Config
	runner     Runner
	serializer *jsonapi.Serializer
	validator  *validator
	filter     *config.ResourceFilter
	logger     *zap.Logger
	docJSON    []byte
	mux        *http.ServeMux
	handler    http.Handler
}

// New builds the OpenAPI document for the registry, compiles the write
// document validators out of it, and mounts every declared route plus the
// document and docs UI endpoints.
func New(reg *resource.Registry, cfg *config.Config, runner Runner, logger *zap.Logger) (*Controller, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	builder, err := spec.NewBuilder(reg, cfg)
	if err != nil {
		return nil, err
	}
	doc, err := builder.Build()
	if err != nil {
		return nil, err
	}
	docJSON, err := spec.Encode(doc, "json")
	if err != nil {
		return nil, err
	}
	filter, err := cfg.CompileResourceFilter()
	if err != nil {
		return nil, err
	}

	var schemaNames []string
	for name := range doc.Components.Schemas {
		if strings.HasSuffix(name, "-create") || strings.HasSuffix(name, "-update") {
			schemaNames = append(schemaNames, name)
		}
	}
	v, err := newValidator(docJSON, schemaNames)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		reg:        reg,
		cfg:        cfg,
		runner:     runner,
		serializer: jsonapi.NewSerializer(reg, cfg.BaseURL),
		validator:  v,
		filter:     filter,
		logger:     logger,
		docJSON:    docJSON,
		mux:        http.NewServeMux(),
	}
	if err := c.mount(); err != nil {
		return nil, err
	}
	c.handler = withObservability(logger, c.mux)
	return c, nil
}

// ServeHTTP implements http.Handler.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.handler.ServeHTTP(w, r)
}

func (c *Controller) mount() error {
	for _, typeName := range c.reg.Types() {
		if !c.filter.Allow(typeName) {
			continue
		}
		r, _ := c.reg.Resource(typeName)
		for _, rt := range r.Routes {
			if rt.Relationship != "" {
				rel, ok := r.RelationshipNamed(rt.Relationship)
				if !ok {
					return fmt.Errorf("resource %q route %s %s names unknown relationship %q",
						r.Type, rt.Method, rt.Path, rt.Relationship)
				}
				if !c.filter.Allow(rel.Destination) {
					continue
				}
			}
			h, err := c.handlerFor(r, rt)
			if err != nil {
				return err
			}
			c.mux.HandleFunc(rt.Method+" "+rt.Path, h)
		}
	}
	c.mux.HandleFunc("GET /openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(c.docJSON)
	})
	c.mux.Handle("GET /docs/", httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
		httpSwagger.DeepLinking(true),
	))
	c.mux.HandleFunc("GET /docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusFound)
	})
	return nil
}

func (c *Controller) handlerFor(r *resource.Resource, rt resource.Route) (http.HandlerFunc, error) {
	switch rt.Kind {
	case resource.RouteIndex:
		return c.index(r, rt), nil
	case resource.RouteGet:
		return c.get(r, rt), nil
	case resource.RoutePost:
		return c.create(r, rt), nil
	case resource.RoutePatch:
		return c.update(r, rt), nil
	case resource.RouteDelete:
		return c.delete(r, rt), nil
	case resource.RouteRelated:
		return c.related(r, rt), nil
	case resource.RouteRelationship:
		return c.relationship(r, rt), nil
	case resource.RoutePostToRelationship:
		return c.linkageWrite(r, rt, LinkageAdd), nil
	case resource.RoutePatchRelationship:
		return c.linkageWrite(r, rt, LinkageReplace), nil
	case resource.RouteDeleteFromRelationship:
		return c.linkageWrite(r, rt, LinkageRemove), nil
	}
	return nil, fmt.Errorf("resource %q route %s %s has unknown kind %q", r.Type, rt.Method, rt.Path, rt.Kind)
}

func (c *Controller) index(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		q, errs := jsonapi.ParseQuery(req.URL.Query(), res, c.reg)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		result, err := c.runner.List(req.Context(), &ListRequest{Resource: res, Action: rt.Action, Query: q})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		doc := c.serializer.Collection(result.Records, q, c.selfURL(req))
		if q.Page.Count && result.Total >= 0 {
			doc.Meta = jsonapi.Meta{"total": result.Total}
		}
		writeDocument(w, http.StatusOK, doc)
	}
}

func (c *Controller) get(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		q, errs := jsonapi.ParseQuery(req.URL.Query(), res, c.reg)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		rec, err := c.runner.Get(req.Context(), &GetRequest{
			Resource: res, Action: rt.Action, ID: req.PathValue("id"), Query: q,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		writeDocument(w, http.StatusOK, c.serializer.Single(rec, q))
	}
}

func (c *Controller) create(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	schema := spec.WriteSchemaName(res.Type, false)
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		raw, doc, errObj := decodeBody(w, req)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}
		if conflict := typeConflict(doc, res.Type, ""); conflict != nil {
			writeErrors(w, conflict)
			return
		}
		if errs := c.validator.validate(schema, raw); len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		q, errs := jsonapi.ParseQuery(req.URL.Query(), res, c.reg)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		rec, err := c.runner.Create(req.Context(), &WriteRequest{
			Resource: res, Action: rt.Action, Document: doc, Query: q,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		if rec != nil {
			w.Header().Set("Location", c.cfg.BaseURL+"/"+rec.Type+"/"+rec.ID)
		}
		writeDocument(w, http.StatusCreated, c.serializer.Single(rec, q))
	}
}

func (c *Controller) update(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	schema := spec.WriteSchemaName(res.Type, true)
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		id := req.PathValue("id")
		raw, doc, errObj := decodeBody(w, req)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}
		if conflict := typeConflict(doc, res.Type, id); conflict != nil {
			writeErrors(w, conflict)
			return
		}
		if errs := c.validator.validate(schema, raw); len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		q, errs := jsonapi.ParseQuery(req.URL.Query(), res, c.reg)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		rec, err := c.runner.Update(req.Context(), &WriteRequest{
			Resource: res, Action: rt.Action, ID: id, Document: doc, Query: q,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		writeDocument(w, http.StatusOK, c.serializer.Single(rec, q))
	}
}

func (c *Controller) delete(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		err := c.runner.Delete(req.Context(), &DeleteRequest{
			Resource: res, Action: rt.Action, ID: req.PathValue("id"),
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *Controller) related(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		rel, _ := res.RelationshipNamed(rt.Relationship)
		dest, _ := c.reg.Resource(rel.Destination)
		q, errs := jsonapi.ParseQuery(req.URL.Query(), dest, c.reg)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		result, err := c.runner.Related(req.Context(), &RelationshipRequest{
			Resource: res, Action: rt.Action, ID: req.PathValue("id"),
			Relationship: rel, Query: q,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		if rel.Many() {
			writeDocument(w, http.StatusOK, c.serializer.Collection(result.Records, q, c.selfURL(req)))
			return
		}
		var rec *jsonapi.Record
		if len(result.Records) > 0 {
			rec = result.Records[0]
		}
		writeDocument(w, http.StatusOK, c.serializer.Single(rec, q))
	}
}

func (c *Controller) relationship(res *resource.Resource, rt resource.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		rel, _ := res.RelationshipNamed(rt.Relationship)
		ids, err := c.runner.Linkage(req.Context(), &RelationshipRequest{
			Resource: res, Action: rt.Action, ID: req.PathValue("id"), Relationship: rel,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		writeDocument(w, http.StatusOK, c.serializer.LinkageDocument(rel.Many(), ids))
	}
}

func (c *Controller) linkageWrite(res *resource.Resource, rt resource.Route, op LinkageOp) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !negotiate(w, req) {
			return
		}
		rel, _ := res.RelationshipNamed(rt.Relationship)
		_, doc, errObj := decodeBody(w, req)
		if errObj != nil {
			writeErrors(w, errObj)
			return
		}
		ids, errs := linkageIdentifiers(doc, rel, op)
		if len(errs) > 0 {
			writeErrors(w, errs...)
			return
		}
		result, err := c.runner.UpdateLinkage(req.Context(), &LinkageRequest{
			Resource: res, Action: rt.Action, ID: req.PathValue("id"),
			Relationship: rel, Op: op, Identifiers: ids,
		})
		if err != nil {
			writeErrors(w, errorObjects(err)...)
			return
		}
		writeDocument(w, http.StatusOK, c.serializer.LinkageDocument(rel.Many(), result))
	}
}

// decodeBody reads the request body once and decodes it both as a raw
// tree for schema validation and as a typed document.
func decodeBody(w http.ResponseWriter, req *http.Request) (any, *jsonapi.Document, *jsonapi.ErrorObject) {
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, jsonapi.NewError(http.StatusBadRequest, "invalid_body", "failed to read request body")
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, jsonapi.NewError(http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
	}
	var doc jsonapi.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, jsonapi.NewError(http.StatusBadRequest, "invalid_body", "request body is not a JSON:API document")
	}
	return raw, &doc, nil
}

// typeConflict returns a 409 when the document's primary data names a
// different resource type, or a different id than the path for updates.
func typeConflict(doc *jsonapi.Document, typeName, id string) *jsonapi.ErrorObject {
	if doc.Data == nil || doc.Data.One == nil {
		return nil
	}
	if doc.Data.One.Type != "" && doc.Data.One.Type != typeName {
		return jsonapi.NewError(http.StatusConflict, "type_mismatch",
			fmt.Sprintf("document type %q does not match endpoint type %q", doc.Data.One.Type, typeName))
	}
	if id != "" && doc.Data.One.ID != "" && doc.Data.One.ID != id {
		return jsonapi.NewError(http.StatusConflict, "id_mismatch",
			fmt.Sprintf("document id %q does not match path id %q", doc.Data.One.ID, id))
	}
	return nil
}

// linkageIdentifiers validates a linkage write body against the
// relationship's cardinality and destination type.
func linkageIdentifiers(doc *jsonapi.Document, rel *resource.Relationship, op LinkageOp) ([]jsonapi.ResourceIdentifier, []*jsonapi.ErrorObject) {
	if doc.Data == nil {
		return nil, []*jsonapi.ErrorObject{jsonapi.InvalidPointer("/data", "linkage documents require a data member")}
	}
	many := rel.Many() || op != LinkageReplace
	var objs []*jsonapi.ResourceObject
	if doc.Data.Many {
		if !many {
			return nil, []*jsonapi.ErrorObject{jsonapi.InvalidPointer("/data", "to-one linkage takes a single identifier or null")}
		}
		objs = doc.Data.Items
	} else {
		if many {
			return nil, []*jsonapi.ErrorObject{jsonapi.InvalidPointer("/data", "to-many linkage takes an array of identifiers")}
		}
		if doc.Data.One != nil {
			objs = []*jsonapi.ResourceObject{doc.Data.One}
		}
	}

	var errs []*jsonapi.ErrorObject
	ids := make([]jsonapi.ResourceIdentifier, 0, len(objs))
	for i, obj := range objs {
		if obj.Type != rel.Destination {
			errs = append(errs, jsonapi.NewError(http.StatusConflict, "type_mismatch",
				fmt.Sprintf("identifier %d has type %q, relationship targets %q", i, obj.Type, rel.Destination)))
			continue
		}
		if obj.ID == "" {
			errs = append(errs, jsonapi.InvalidPointer(fmt.Sprintf("/data/%d/id", i), "identifiers require an id"))
			continue
		}
		ids = append(ids, jsonapi.ResourceIdentifier{Type: obj.Type, ID: obj.ID})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return ids, nil
}

func (c *Controller) selfURL(req *http.Request) string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + req.URL.RequestURI()
}
