package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"timesheet/apperror"
)

const (
	ParamOffset = "offset"
	ParamLimit  = "limit"
	ParamSort   = "sort"

	opSeparator = "__"
)

var reserved = map[string]bool{ParamOffset: true, ParamLimit: true, ParamSort: true}

// ParseFilters reads criteria from query parameters of the form
// field__op=value. A key without an operator suffix means equality. Paging
// and sort parameters are skipped.
func ParseFilters(params url.Values) []Criterion {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !reserved[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var criteria []Criterion
	for _, k := range keys {
		fieldName, op := k, OpEq
		if i := strings.LastIndex(k, opSeparator); i > 0 {
			fieldName, op = k[:i], ParseOperator(k[i+len(opSeparator):])
		}
		for _, v := range params[k] {
			criteria = append(criteria, Criterion{Field: fieldName, Operator: op, Value: v})
		}
	}
	return criteria
}

// ParseSort reads a comma separated list of fields. A leading '-' sorts
// that field descending.
func ParseSort(raw string) []Sort {
	var sorts []Sort
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := Asc
		switch {
		case strings.HasPrefix(part, "-"):
			dir, part = Desc, part[1:]
		case strings.HasPrefix(part, "+"):
			part = part[1:]
		}
		if part != "" {
			sorts = append(sorts, Sort{Field: part, Direction: dir})
		}
	}
	return sorts
}

func ParsePageRequest(params url.Values) (PageRequest, error) {
	var req PageRequest
	var err error
	if req.Offset, err = intParam(params, ParamOffset); err != nil {
		return PageRequest{}, err
	}
	if req.Limit, err = intParam(params, ParamLimit); err != nil {
		return PageRequest{}, err
	}
	return req.Normalize(), nil
}

func intParam(params url.Values, name string) (int, error) {
	raw := strings.TrimSpace(params.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("Invalid %s: %s", name, raw)
	}
	return n, nil
}

// Query bundles everything a list endpoint reads from its parameters.
type Query struct {
	Criteria []Criterion
	Sorts    []Sort
	Page     PageRequest
}

func ParseQuery(params url.Values) (Query, error) {
	page, err := ParsePageRequest(params)
	if err != nil {
		return Query{}, err
	}
	return Query{
		Criteria: ParseFilters(params),
		Sorts:    ParseSort(params.Get(ParamSort)),
		Page:     page,
	}, nil
}
