package controller

import (
	"context"
	"net/http"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
)

// Unimplemented is a Runner that answers every call with 501. It lets the
// serve command expose a contract-only API surface before the host
// framework wires a real runner.
type Unimplemented struct{}

var errNotImplemented = jsonapi.NewError(http.StatusNotImplemented, "not_implemented",
	"no runner is wired for this action")

func (Unimplemented) List(context.Context, *ListRequest) (*ListResult, error) {
	return nil, errNotImplemented
}

func (Unimplemented) Get(context.Context, *GetRequest) (*jsonapi.Record, error) {
	return nil, errNotImplemented
}

func (Unimplemented) Create(context.Context, *WriteRequest) (*jsonapi.Record, error) {
	return nil, errNotImplemented
}

func (Unimplemented) Update(context.Context, *WriteRequest) (*jsonapi.Record, error) {
	return nil, errNotImplemented
}

func (Unimplemented) Delete(context.Context, *DeleteRequest) error {
	return errNotImplemented
}

func (Unimplemented) Related(context.Context, *RelationshipRequest) (*ListResult, error) {
	return nil, errNotImplemented
}

func (Unimplemented) Linkage(context.Context, *RelationshipRequest) ([]jsonapi.ResourceIdentifier, error) {
	return nil, errNotImplemented
}

func (Unimplemented) UpdateLinkage(context.Context, *LinkageRequest) ([]jsonapi.ResourceIdentifier, error) {
	return nil, errNotImplemented
}
