package controller

import (
	"context"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
	"github.com/restweave-dev/restweave/pkg/resource"
)

// Runner is the host framework's execution surface. The controller
// translates HTTP requests into runner calls and renders the results as
// JSON:API documents; the runner owns querying, persistence, and
// authorization.
type Runner interface {
	List(ctx context.Context, req *ListRequest) (*ListResult, error)
	Get(ctx context.Context, req *GetRequest) (*jsonapi.Record, error)
	Create(ctx context.Context, req *WriteRequest) (*jsonapi.Record, error)
	Update(ctx context.Context, req *WriteRequest) (*jsonapi.Record, error)
	Delete(ctx context.Context, req *DeleteRequest) error

	// Related resolves the records behind a relationship of one parent
	// record. To-one relationships yield zero or one records.
	Related(ctx context.Context, req *RelationshipRequest) (*ListResult, error)
	// Linkage resolves the resource identifiers of a relationship.
	Linkage(ctx context.Context, req *RelationshipRequest) ([]jsonapi.ResourceIdentifier, error)
	// UpdateLinkage mutates a relationship's linkage and returns the
	// resulting identifiers.
	UpdateLinkage(ctx context.Context, req *LinkageRequest) ([]jsonapi.ResourceIdentifier, error)
}

// ListRequest is a collection read.
type ListRequest struct {
	Resource *resource.Resource
	// Action is the declared action name the route binds.
	Action string
	Query  *jsonapi.Query
}

// ListResult carries the records of a collection read. Total is the
// unpaginated count; -1 means the runner did not count.
type ListResult struct {
	Records []*jsonapi.Record
	Total   int
}

// GetRequest is a single-record read.
type GetRequest struct {
	Resource *resource.Resource
	Action   string
	ID       string
	Query    *jsonapi.Query
}

// WriteRequest is a create or update. Document is the decoded, validated
// request body.
type WriteRequest struct {
	Resource *resource.Resource
	Action   string
	// ID is set for updates and taken from the path.
	ID       string
	Document *jsonapi.Document
	Query    *jsonapi.Query
}

// DeleteRequest is a destroy.
type DeleteRequest struct {
	Resource *resource.Resource
	Action   string
	ID       string
}

// RelationshipRequest reads a relationship of one parent record.
type RelationshipRequest struct {
	Resource     *resource.Resource
	Action       string
	ID           string
	Relationship *resource.Relationship
	Query        *jsonapi.Query
}

// LinkageOp is the kind of linkage mutation.
type LinkageOp string

const (
	// LinkageReplace replaces the linkage wholesale.
	LinkageReplace LinkageOp = "replace"
	// LinkageAdd appends members to a to-many linkage.
	LinkageAdd LinkageOp = "add"
	// LinkageRemove removes members from a to-many linkage.
	LinkageRemove LinkageOp = "remove"
)

// LinkageRequest mutates a relationship's linkage.
type LinkageRequest struct {
	Resource     *resource.Resource
	Action       string
	ID           string
	Relationship *resource.Relationship
	Op           LinkageOp
	Identifiers  []jsonapi.ResourceIdentifier
}
