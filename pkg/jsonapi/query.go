package jsonapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/restweave-dev/restweave/pkg/resource"
	"github.com/restweave-dev/restweave/pkg/utils"
)

// Query is the parsed, validated read surface of a request: include paths,
// sparse fieldsets, sort, pagination, and the raw filter expression. Field
// and relationship names are resolved back to their declared metadata names.
type Query struct {
	// Includes holds relationship paths, each path a chain of declared
	// relationship names.
	Includes [][]string
	// Fields maps resource type names to the declared field names kept by
	// sparse fieldsets. A type missing from the map means all fields.
	Fields map[string][]string
	Sort   []SortField
	Page   Page
	// Filter is the nested filter expression exactly as the client sent
	// it; operator keys and field members are validated, operand
	// interpretation is the host framework's concern.
	Filter map[string]any
}

// SortField is one sort criterion.
type SortField struct {
	Field      string
	Descending bool
}

// Page is the pagination window of a collection read.
type Page struct {
	Limit  int
	Offset int
	After  string
	Before string
	Count  bool
}

// ParseQuery parses and validates the query string of a read against the
// resource's metadata. All violations are collected rather than failing on
// the first.
func ParseQuery(values url.Values, res *resource.Resource, reg *resource.Registry) (*Query, []*ErrorObject) {
	q := &Query{Fields: map[string][]string{}}
	var errs []*ErrorObject

	for key, vals := range values {
		name, args := splitBracketed(key)
		val := vals[len(vals)-1]
		switch name {
		case "include":
			errs = append(errs, q.parseInclude(val, res, reg)...)
		case "sort":
			errs = append(errs, q.parseSort(val, res)...)
		case "fields":
			if len(args) != 1 {
				errs = append(errs, InvalidParameter(key, "fields takes exactly one resource type key"))
				continue
			}
			errs = append(errs, q.parseFields(args[0], val, reg)...)
		case "page":
			if len(args) != 1 {
				errs = append(errs, InvalidParameter(key, "page takes exactly one window key"))
				continue
			}
			errs = append(errs, q.parsePage(args[0], val)...)
		case "filter":
			if len(args) == 0 {
				errs = append(errs, InvalidParameter(key, "filter requires a field key"))
				continue
			}
			if q.Filter == nil {
				q.Filter = map[string]any{}
			}
			setNested(q.Filter, args, val)
		default:
			errs = append(errs, InvalidParameter(key, fmt.Sprintf("unknown query parameter %q", key)))
		}
	}

	if q.Filter != nil {
		errs = append(errs, validateFilter(q.Filter, res, reg, "filter")...)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return q, nil
}

// splitBracketed splits "fields[posts]" into "fields" and ["posts"].
func splitBracketed(key string) (string, []string) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, nil
	}
	name := key[:open]
	var args []string
	rest := key[open:]
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return key, nil
		}
		args = append(args, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" {
		return key, nil
	}
	return name, args
}

// setNested writes a leaf value into a nested map following the key path.
func setNested(m map[string]any, path []string, val string) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = val
}

func (q *Query) parseInclude(val string, res *resource.Resource, reg *resource.Registry) []*ErrorObject {
	var errs []*ErrorObject
	for _, raw := range strings.Split(val, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		hops := strings.Split(raw, ".")
		resolved := make([]string, 0, len(hops))
		current := res
		ok := true
		for _, hop := range hops {
			rel, found := relationshipByMember(current, hop)
			if !found {
				errs = append(errs, InvalidParameter("include",
					fmt.Sprintf("%q is not a public relationship of %s", hop, current.Type)))
				ok = false
				break
			}
			resolved = append(resolved, rel.Name)
			dest, found := reg.Resource(rel.Destination)
			if !found {
				ok = false
				break
			}
			current = dest
		}
		if ok {
			q.Includes = append(q.Includes, resolved)
		}
	}
	return errs
}

func (q *Query) parseSort(val string, res *resource.Resource) []*ErrorObject {
	var errs []*ErrorObject
	sortable := map[string]string{}
	for _, name := range res.SortableFieldNames() {
		sortable[utils.MemberName(name)] = name
	}
	for _, raw := range strings.Split(val, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		desc := strings.HasPrefix(raw, "-")
		member := strings.TrimPrefix(raw, "-")
		declared, ok := sortable[member]
		if !ok {
			errs = append(errs, InvalidParameter("sort",
				fmt.Sprintf("%q is not a sortable field of %s", member, res.Type)))
			continue
		}
		q.Sort = append(q.Sort, SortField{Field: declared, Descending: desc})
	}
	return errs
}

func (q *Query) parseFields(typeName, val string, reg *resource.Registry) []*ErrorObject {
	res, ok := reg.Resource(typeName)
	if !ok {
		return []*ErrorObject{InvalidParameter("fields",
			fmt.Sprintf("unknown resource type %q", typeName))}
	}
	known := map[string]string{}
	for _, name := range res.FieldNames() {
		known[utils.MemberName(name)] = name
	}
	fields := []string{}
	var errs []*ErrorObject
	for _, raw := range strings.Split(val, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		declared, ok := known[raw]
		if !ok {
			errs = append(errs, InvalidParameter("fields",
				fmt.Sprintf("%q is not a field of %s", raw, typeName)))
			continue
		}
		fields = append(fields, declared)
	}
	q.Fields[typeName] = fields
	return errs
}

func (q *Query) parsePage(key, val string) []*ErrorObject {
	switch key {
	case "limit", "offset":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return []*ErrorObject{InvalidParameter("page",
				fmt.Sprintf("page[%s] must be a non-negative integer", key))}
		}
		if key == "limit" {
			q.Page.Limit = n
		} else {
			q.Page.Offset = n
		}
	case "after":
		q.Page.After = val
	case "before":
		q.Page.Before = val
	case "count":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return []*ErrorObject{InvalidParameter("page", "page[count] must be a boolean")}
		}
		q.Page.Count = b
	default:
		return []*ErrorObject{InvalidParameter("page",
			fmt.Sprintf("unknown page key %q", key))}
	}
	return nil
}

// validateFilter checks that every key of a filter expression names a
// filterable field, a public relationship, or a boolean combinator, and
// that operator keys are expressible for the field's type. Operand values
// are left to the host framework.
func validateFilter(filter map[string]any, res *resource.Resource, reg *resource.Registry, path string) []*ErrorObject {
	var errs []*ErrorObject
	fields := map[string]resource.FilterField{}
	for _, f := range reg.FilterFields(res) {
		fields[utils.MemberName(f.Name)] = f
	}
	for key, val := range filter {
		keyPath := path + "[" + key + "]"
		switch key {
		case "and", "or":
			// query-string lists arrive keyed by index
			if branches, ok := val.(map[string]any); ok {
				for idx, branch := range branches {
					if sub, ok := branch.(map[string]any); ok {
						errs = append(errs, validateFilter(sub, res, reg, keyPath+"["+idx+"]")...)
					}
				}
			}
			continue
		case "not":
			if sub, ok := val.(map[string]any); ok {
				errs = append(errs, validateFilter(sub, res, reg, keyPath)...)
			}
			continue
		}
		if f, ok := fields[key]; ok {
			if ops, isMap := val.(map[string]any); isMap {
				errs = append(errs, validateOperators(ops, f, keyPath)...)
			}
			continue
		}
		if rel, ok := relationshipByMember(res, key); ok {
			dest, found := reg.Resource(rel.Destination)
			if !found {
				continue
			}
			if sub, isMap := val.(map[string]any); isMap {
				errs = append(errs, validateFilter(sub, dest, reg, keyPath)...)
			}
			continue
		}
		errs = append(errs, InvalidParameter(keyPath,
			fmt.Sprintf("%q is not filterable on %s", key, res.Type)))
	}
	return errs
}

func validateOperators(ops map[string]any, f resource.FilterField, path string) []*ErrorObject {
	valid := map[string]bool{}
	for _, op := range resource.OperatorsFor(f.Type) {
		valid[string(op)] = true
	}
	var errs []*ErrorObject
	for op := range ops {
		if op == "args" && len(f.Arguments) > 0 {
			continue
		}
		if !valid[op] {
			errs = append(errs, InvalidParameter(path,
				fmt.Sprintf("operator %q is not expressible for field %q", op, f.Name)))
		}
	}
	return errs
}

func relationshipByMember(res *resource.Resource, member string) (*resource.Relationship, bool) {
	for i := range res.Relationships {
		rel := &res.Relationships[i]
		if rel.IsPublic() && utils.MemberName(rel.Name) == member {
			return rel, true
		}
	}
	return nil, false
}
