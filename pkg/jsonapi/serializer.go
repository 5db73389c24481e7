package jsonapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/utils"
)

// Record is the already-resolved result shape the host framework hands
// back for one resource instance. Related carries loaded relationship
// records for compound documents, keyed by declared relationship name.
type Record struct {
	Type       string
	ID         string
	Attributes map[string]any
	// Relationships holds linkage identifiers keyed by declared
	// relationship name; a nil slice means the linkage was not loaded and
	// only links are rendered.
	Relationships map[string][]ResourceIdentifier
	Related       map[string][]*Record
	Meta          Meta
}

// Serializer renders host framework records as JSON:API documents.
type Serializer struct {
	reg     *resource.Registry
	baseURL string
}

// NewSerializer returns a serializer rendering links under baseURL.
func NewSerializer(reg *resource.Registry, baseURL string) *Serializer {
	return &Serializer{reg: reg, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Single renders a to-one primary datum with its compound document.
func (s *Serializer) Single(rec *Record, q *Query) *Document {
	doc := NewDocument()
	if rec == nil {
		doc.Data = SingleData(nil)
		return doc
	}
	doc.Data = SingleData(s.resourceObject(rec, q))
	doc.Included = s.included([]*Record{rec}, q)
	doc.Links = Links{"self": s.recordURL(rec)}
	return doc
}

// Collection renders a to-many primary datum with its compound document
// and pagination links.
func (s *Serializer) Collection(recs []*Record, q *Query, selfURL string) *Document {
	doc := NewDocument()
	items := make([]*ResourceObject, 0, len(recs))
	for _, rec := range recs {
		items = append(items, s.resourceObject(rec, q))
	}
	doc.Data = CollectionData(items)
	doc.Included = s.included(recs, q)
	if selfURL != "" {
		doc.Links = s.paginationLinks(selfURL, q)
	}
	return doc
}

// LinkageDocument renders a relationship endpoint document. Linkage-only
// resource objects carry nothing but type and id.
func (s *Serializer) LinkageDocument(many bool, ids []ResourceIdentifier) *Document {
	doc := NewDocument()
	if many {
		items := make([]*ResourceObject, 0, len(ids))
		for _, id := range ids {
			items = append(items, &ResourceObject{Type: id.Type, ID: id.ID})
		}
		doc.Data = CollectionData(items)
		return doc
	}
	doc.Data = SingleData(nil)
	if len(ids) > 0 {
		doc.Data.One = &ResourceObject{Type: ids[0].Type, ID: ids[0].ID}
	}
	return doc
}

// resourceObject renders one record, applying sparse fieldsets for its
// type. Fieldsets constrain attributes and relationships alike.
func (s *Serializer) resourceObject(rec *Record, q *Query) *ResourceObject {
	res, _ := s.reg.Resource(rec.Type)
	keep := s.fieldsFor(rec.Type, q)

	obj := &ResourceObject{
		Type:  rec.Type,
		ID:    rec.ID,
		Links: Links{"self": s.recordURL(rec)},
		Meta:  rec.Meta,
	}

	if len(rec.Attributes) > 0 {
		obj.Attributes = map[string]any{}
		for name, val := range rec.Attributes {
			if keep != nil && !keep[name] {
				continue
			}
			obj.Attributes[utils.MemberName(name)] = val
		}
		if len(obj.Attributes) == 0 {
			obj.Attributes = nil
		}
	}

	if res == nil {
		return obj
	}
	for _, rel := range res.Relationships {
		if !rel.IsPublic() {
			continue
		}
		if keep != nil && !keep[rel.Name] {
			continue
		}
		relObj := &RelationshipObject{
			Links: Links{
				"self":    s.recordURL(rec) + "/relationships/" + utils.MemberName(rel.Name),
				"related": s.recordURL(rec) + "/" + utils.MemberName(rel.Name),
			},
		}
		if ids, loaded := rec.Relationships[rel.Name]; loaded {
			relObj.Data = &Linkage{Many: rel.Many()}
			if rel.Many() {
				relObj.Data.Items = make([]*ResourceIdentifier, 0, len(ids))
				for i := range ids {
					relObj.Data.Items = append(relObj.Data.Items, &ids[i])
				}
			} else if len(ids) > 0 {
				relObj.Data.One = &ids[0]
			}
		}
		if obj.Relationships == nil {
			obj.Relationships = map[string]*RelationshipObject{}
		}
		obj.Relationships[utils.MemberName(rel.Name)] = relObj
	}
	return obj
}

// fieldsFor returns the declared field names kept for a type, or nil when
// the fieldset is unconstrained.
func (s *Serializer) fieldsFor(typeName string, q *Query) map[string]bool {
	if q == nil {
		return nil
	}
	names, ok := q.Fields[typeName]
	if !ok {
		return nil
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	return keep
}

// included walks the requested include paths over the records' loaded
// related data and renders a deduplicated compound document.
func (s *Serializer) included(recs []*Record, q *Query) []*ResourceObject {
	if q == nil || len(q.Includes) == 0 {
		return nil
	}
	seen := map[string]bool{}
	for _, rec := range recs {
		seen[rec.Type+"\x00"+rec.ID] = true
	}
	var out []*ResourceObject
	var add func(rec *Record, path []string)
	add = func(rec *Record, path []string) {
		if len(path) == 0 {
			return
		}
		for _, related := range rec.Related[path[0]] {
			key := related.Type + "\x00" + related.ID
			if !seen[key] {
				seen[key] = true
				out = append(out, s.resourceObject(related, q))
			}
			add(related, path[1:])
		}
	}
	for _, rec := range recs {
		for _, path := range q.Includes {
			add(rec, path)
		}
	}
	return out
}

func (s *Serializer) recordURL(rec *Record) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, rec.Type, rec.ID)
}

// paginationLinks derives self/next/prev links from the pagination window.
func (s *Serializer) paginationLinks(selfURL string, q *Query) Links {
	links := Links{"self": selfURL}
	if q == nil || q.Page.Limit == 0 {
		return links
	}
	links["next"] = pageLink(selfURL, q.Page.Offset+q.Page.Limit, q.Page.Limit)
	if q.Page.Offset > 0 {
		prev := q.Page.Offset - q.Page.Limit
		if prev < 0 {
			prev = 0
		}
		links["prev"] = pageLink(selfURL, prev, q.Page.Limit)
	}
	return links
}

func pageLink(selfURL string, offset, limit int) string {
	sep := "?"
	if strings.Contains(selfURL, "?") {
		sep = "&"
	}
	return selfURL + sep + "page[offset]=" + strconv.Itoa(offset) + "&page[limit]=" + strconv.Itoa(limit)
}
