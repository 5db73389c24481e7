package resource

import (
	"net/http"

	"github.com/restweave-dev/restweave/pkg/utils"
)

// DefaultRoutes derives the conventional route set for a resource from its
// actions: collection index, member get/patch/delete, create, and
// related/relationship routes for every public relationship. Resources that
// declare routes explicitly keep them as-is; this fills in resources that
// declare none.
func DefaultRoutes(r *Resource) []Route {
	base := "/" + r.Type
	member := base + "/{id}"
	var out []Route
	for _, act := range r.Actions {
		switch act.Kind {
		case ActionRead:
			out = append(out,
				Route{Kind: RouteIndex, Method: http.MethodGet, Path: base, Action: act.Name},
				Route{Kind: RouteGet, Method: http.MethodGet, Path: member, Action: act.Name},
			)
		case ActionCreate:
			out = append(out, Route{Kind: RoutePost, Method: http.MethodPost, Path: base, Action: act.Name})
		case ActionUpdate:
			out = append(out, Route{Kind: RoutePatch, Method: http.MethodPatch, Path: member, Action: act.Name})
		case ActionDestroy:
			out = append(out, Route{Kind: RouteDelete, Method: http.MethodDelete, Path: member, Action: act.Name})
		}
	}
	read := primaryAction(r, ActionRead)
	update := primaryAction(r, ActionUpdate)
	for _, rel := range r.Relationships {
		if !rel.IsPublic() {
			continue
		}
		segment := utils.MemberName(rel.Name)
		if read != "" {
			out = append(out,
				Route{Kind: RouteRelated, Method: http.MethodGet, Path: member + "/" + segment, Action: read, Relationship: rel.Name},
				Route{Kind: RouteRelationship, Method: http.MethodGet, Path: member + "/relationships/" + segment, Action: read, Relationship: rel.Name},
			)
		}
		if update == "" || !rel.IsWritable() {
			continue
		}
		relPath := member + "/relationships/" + segment
		out = append(out, Route{Kind: RoutePatchRelationship, Method: http.MethodPatch, Path: relPath, Action: update, Relationship: rel.Name})
		if rel.Many() {
			out = append(out,
				Route{Kind: RoutePostToRelationship, Method: http.MethodPost, Path: relPath, Action: update, Relationship: rel.Name},
				Route{Kind: RouteDeleteFromRelationship, Method: http.MethodDelete, Path: relPath, Action: update, Relationship: rel.Name},
			)
		}
	}
	return out
}

func primaryAction(r *Resource, kind ActionKind) string {
	for _, act := range r.Actions {
		if act.Kind == kind {
			return act.Name
		}
	}
	return ""
}
