package controller

import (
	"mime"
	"net/http"
	"strings"

	"github.com/restweave-dev/restweave/pkg/jsonapi"
)

// negotiate enforces JSON:API content negotiation: request bodies must be
// sent as the JSON:API media type without parameters (415 otherwise), and
// clients that accept the media type only with parameters get 406.
func negotiate(w http.ResponseWriter, r *http.Request) bool {
	if r.Body != nil && r.ContentLength != 0 {
		ct := r.Header.Get("Content-Type")
		mediaType, params, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != jsonapi.MediaType || len(params) > 0 {
			writeErrors(w, jsonapi.NewError(http.StatusUnsupportedMediaType, "unsupported_media_type",
				"request bodies must be sent as "+jsonapi.MediaType+" without media type parameters"))
			return false
		}
	}
	if !acceptable(r.Header.Values("Accept")) {
		writeErrors(w, jsonapi.NewError(http.StatusNotAcceptable, "not_acceptable",
			"the "+jsonapi.MediaType+" media type must be acceptable without parameters"))
		return false
	}
	return true
}

// acceptable reports whether any Accept entry admits the JSON:API media
// type without parameters. An absent Accept header admits everything.
func acceptable(accepts []string) bool {
	sawJSONAPI := false
	for _, header := range accepts {
		for _, entry := range strings.Split(header, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			mediaType, params, err := mime.ParseMediaType(entry)
			if err != nil {
				continue
			}
			delete(params, "q")
			switch mediaType {
			case "*/*", "application/*":
				return true
			case jsonapi.MediaType:
				sawJSONAPI = true
				if len(params) == 0 {
					return true
				}
			}
		}
	}
	// no mention of the media type at all is fine; only parameterized
	// variants with no bare alternative are rejected
	return !sawJSONAPI
}
