// Package jsonapi carries the JSON:API document model this layer renders:
// resource objects, relationship linkage, error objects, and the query
// grammar (include, sparse fieldsets, sort, page, filter) of inbound
// requests.
package jsonapi

import (
	"encoding/json"
	"fmt"
)

// MediaType is the JSON:API media type.
const MediaType = "application/vnd.api+json"

// Version is the highest JSON:API version this layer implements.
const Version = "1.1"

// Document is a top-level JSON:API document. Data holds the primary data
// and marshals as a single object or an array depending on how the
// document was built.
type Document struct {
	Data     *PrimaryData      `json:"data,omitempty"`
	Errors   []*ErrorObject    `json:"errors,omitempty"`
	Included []*ResourceObject `json:"included,omitempty"`
	Links    Links             `json:"links,omitempty"`
	Meta     Meta              `json:"meta,omitempty"`
	JSONAPI  *Implementation   `json:"jsonapi,omitempty"`
}

// Implementation is the top-level jsonapi member.
type Implementation struct {
	Version string `json:"version"`
}

// PrimaryData is the one-or-many primary data of a document.
type PrimaryData struct {
	// Many marks the document as a collection even when it holds zero or
	// one resource objects.
	Many  bool
	One   *ResourceObject
	Items []*ResourceObject
}

// SingleData wraps one resource object (possibly nil) as primary data.
func SingleData(one *ResourceObject) *PrimaryData {
	return &PrimaryData{One: one}
}

// CollectionData wraps a list of resource objects as primary data.
func CollectionData(items []*ResourceObject) *PrimaryData {
	return &PrimaryData{Many: true, Items: items}
}

// MarshalJSON renders a single object, null, or an array.
func (d *PrimaryData) MarshalJSON() ([]byte, error) {
	if d.Many {
		if d.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(d.Items)
	}
	if d.One == nil {
		return []byte("null"), nil
	}
	return json.Marshal(d.One)
}

// UnmarshalJSON accepts an object, null, or an array.
func (d *PrimaryData) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		d.Many = true
		return json.Unmarshal(data, &d.Items)
	}
	if string(data) == "null" {
		d.One = nil
		return nil
	}
	return json.Unmarshal(data, &d.One)
}

// ResourceObject is a JSON:API resource object.
type ResourceObject struct {
	Type          string                         `json:"type"`
	ID            string                         `json:"id,omitempty"`
	Attributes    map[string]any                 `json:"attributes,omitempty"`
	Relationships map[string]*RelationshipObject `json:"relationships,omitempty"`
	Links         Links                          `json:"links,omitempty"`
	Meta          Meta                           `json:"meta,omitempty"`
}

// ResourceIdentifier identifies a resource without carrying it.
type ResourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Meta Meta   `json:"meta,omitempty"`
}

// Linkage is the one-or-many data member of a relationship object.
type Linkage struct {
	Many  bool
	One   *ResourceIdentifier
	Items []*ResourceIdentifier
}

// MarshalJSON renders a single identifier, null, or an array.
func (l *Linkage) MarshalJSON() ([]byte, error) {
	if l.Many {
		if l.Items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(l.Items)
	}
	if l.One == nil {
		return []byte("null"), nil
	}
	return json.Marshal(l.One)
}

// UnmarshalJSON accepts an identifier, null, or an array.
func (l *Linkage) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		l.Many = true
		return json.Unmarshal(data, &l.Items)
	}
	if string(data) == "null" {
		l.One = nil
		return nil
	}
	return json.Unmarshal(data, &l.One)
}

// RelationshipObject is one relationship member of a resource object.
type RelationshipObject struct {
	Data  *Linkage `json:"data,omitempty"`
	Links Links    `json:"links,omitempty"`
	Meta  Meta     `json:"meta,omitempty"`
}

// Links is a JSON:API links object. Values are plain URL strings.
type Links map[string]string

// Meta is a free-form meta object.
type Meta map[string]any

// NewDocument returns a document stamped with the implementation version.
func NewDocument() *Document {
	return &Document{JSONAPI: &Implementation{Version: Version}}
}

// ErrorDocument wraps error objects in a top-level document.
func ErrorDocument(errs ...*ErrorObject) *Document {
	doc := NewDocument()
	doc.Errors = errs
	return doc
}

// Validate rejects documents that are structurally impossible: both data
// and errors present, or neither.
func (d *Document) Validate() error {
	if d.Data != nil && len(d.Errors) > 0 {
		return fmt.Errorf("document carries both data and errors")
	}
	if d.Data == nil && len(d.Errors) == 0 && d.Meta == nil {
		return fmt.Errorf("document carries no data, errors, or meta")
	}
	return nil
}
