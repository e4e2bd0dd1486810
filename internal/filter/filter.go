// Package filter turns user selections into row predicates and filtered views.
//
// An empty selection for either control matches no rows. Leaving a control
// untouched (absent from the request) means "every value", which is the
// default the dashboard opens with.
package filter

import (
	"net/url"
	"sort"
	"strings"

	"tradedash/internal/core"
)

// Query-string keys for the two filter controls.
const (
	ParamCategory       = "category"
	ParamShippingMethod = "shipping"
)

// Options are the distinct values offered by each control.
type Options struct {
	Categories      []string `json:"categories"`
	ShippingMethods []string `json:"shipping_methods"`
}

// OptionsFrom collects distinct values in first-seen order.
func OptionsFrom(t *core.Table) Options {
	return Options{
		Categories:      t.Distinct(core.ColCategory),
		ShippingMethods: t.Distinct(core.ColShippingMethod),
	}
}

// Selection is the set of values chosen for each control.
type Selection struct {
	Categories      []string `json:"categories"`
	ShippingMethods []string `json:"shipping_methods"`
}

// All selects every option, the dashboard default.
func All(opts Options) Selection {
	return Selection{
		Categories:      append([]string(nil), opts.Categories...),
		ShippingMethods: append([]string(nil), opts.ShippingMethods...),
	}
}

// Predicate decides whether a row belongs to the filtered view.
type Predicate func(core.Transaction) bool

// Predicate builds the row test: category in Categories AND shipping
// method in ShippingMethods.
func (s Selection) Predicate() Predicate {
	cats := toSet(s.Categories)
	ships := toSet(s.ShippingMethods)
	return func(tx core.Transaction) bool {
		if _, ok := cats[tx.Category]; !ok {
			return false
		}
		_, ok := ships[tx.ShippingMethod]
		return ok
	}
}

// IsEmpty reports whether the selection can match no row at all.
func (s Selection) IsEmpty() bool {
	return len(s.Categories) == 0 || len(s.ShippingMethods) == 0
}

// Key returns a canonical representation usable as a cache key.
func (s Selection) Key() string {
	return "c=" + canonical(s.Categories) + "|s=" + canonical(s.ShippingMethods)
}

// Contains reports whether v is selected for the given control.
func (s Selection) Contains(param, v string) bool {
	var values []string
	switch param {
	case ParamCategory:
		values = s.Categories
	case ParamShippingMethod:
		values = s.ShippingMethods
	}
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ParseSelection reads a selection from query parameters. A missing key
// selects every option; a present key keeps only its non-empty values, so
// "category=" is an explicit empty selection.
func ParseSelection(q url.Values, opts Options) Selection {
	sel := All(opts)
	if raw, ok := q[ParamCategory]; ok {
		sel.Categories = nonEmpty(raw)
	}
	if raw, ok := q[ParamShippingMethod]; ok {
		sel.ShippingMethods = nonEmpty(raw)
	}
	return sel
}

// Apply returns the rows of t matching p, in their original order.
func Apply(t *core.Table, p Predicate) *core.Table {
	return t.Select(p)
}

// View is shorthand for Apply(t, s.Predicate()).
func View(t *core.Table, s Selection) *core.Table {
	return Apply(t, s.Predicate())
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func canonical(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return url.QueryEscape(strings.Join(sorted, "\x1f"))
}
