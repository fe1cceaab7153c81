// Package filter turns request-supplied filter, sort and paging parameters
// into gorm scopes and in-memory predicates over a whitelisted set of
// fields.
package filter

import "strings"

type Operator string

const (
	OpEq   Operator = "eq"
	OpLike Operator = "like"
	OpGt   Operator = "gt"
	OpLt   Operator = "lt"
	OpGte  Operator = "gte"
	OpLte  Operator = "lte"
)

// ParseOperator maps a raw operator name to an Operator. Anything unknown
// falls back to equality.
func ParseOperator(s string) Operator {
	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OpEq, OpLike, OpGt, OpLt, OpGte, OpLte:
		return op
	default:
		return OpEq
	}
}

type Criterion struct {
	Field    string
	Operator Operator
	Value    string
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     string
	Direction Direction
}
