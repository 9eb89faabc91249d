package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/canopy-network/explorerx/pkg/query"
)

// parseListQuery reads cursor, take, sort, desc, search and the spec's filter
// parameters. desc defaults to true (newest first); empty filters are ignored.
func parseListQuery(r *http.Request, spec *query.Spec) (query.ListQuery, error) {
	qs := r.URL.Query()
	q := query.ListQuery{
		Cursor: strings.TrimSpace(qs.Get("cursor")),
		Take:   query.DefaultTake,
		Sort:   strings.TrimSpace(qs.Get("sort")),
		Desc:   true,
		Search: strings.TrimSpace(qs.Get("search")),
		Filter: map[string]string{},
	}

	if v := qs.Get("take"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return query.ListQuery{}, query.Invalid("take must be an integer")
		}
		q.Take = n
	}

	if v := qs.Get("desc"); v != "" {
		desc, err := strconv.ParseBool(v)
		if err != nil {
			return query.ListQuery{}, query.Invalid("desc must be true or false")
		}
		q.Desc = desc
	}

	for _, name := range spec.FilterNames() {
		if v := strings.TrimSpace(qs.Get(name)); v != "" {
			q.Filter[name] = v
		}
	}
	return q, nil
}

// intParam reads an optional integer query parameter, 0 when absent.
func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, query.Invalid("%s must be an integer", name)
	}
	return n, nil
}

// int64Var parses a numeric path variable.
func int64Var(raw, name string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, query.Invalid("invalid %s", name)
	}
	return n, nil
}
