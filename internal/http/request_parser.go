// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"net/http"
	"net/url"

	"tradedash/internal/filter"
)

// filterParams are the query keys that carry the selection.
var filterParams = []string{filter.ParamCategory, filter.ParamShippingMethod}

// ParseSelection reads the filter selection from the query string.
// Values are sanitized before matching; unknown values simply match nothing.
func ParseSelection(r *http.Request, opts filter.Options) filter.Selection {
	return filter.ParseSelection(sanitizeQuery(r.URL.Query()), opts)
}

// SelectionQuery re-encodes only the filter keys of q, so that chart URLs
// on a page carry the same selection as the page itself. It returns ""
// when q has no filter keys.
func SelectionQuery(q url.Values) string {
	out := url.Values{}
	for _, key := range filterParams {
		if vals, ok := q[key]; ok {
			out[key] = vals
		}
	}
	return sanitizeQuery(out).Encode()
}

func sanitizeQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for key, vals := range q {
		clean := make([]string, len(vals))
		for i, v := range vals {
			clean[i] = sanitizeInput(v)
		}
		out[key] = clean
	}
	return out
}
