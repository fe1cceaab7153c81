package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"timesheet/apperror"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Kind int

const (
	KindString Kind = iota
	KindDate
	KindInt
	KindDecimal
	KindBool
)

const dateLayout = "2006-01-02"

// value holds whichever representation the field's kind uses.
type value struct {
	s string
	t time.Time
	i int64
	d decimal.Decimal
	b bool
}

type field[T any] struct {
	column string
	kind   Kind
	get    func(*T) value
}

// Schema is the registry of filterable and sortable fields of T. Build it
// once and share it; it is read-only after construction.
type Schema[T any] struct {
	fields map[string]*field[T]
}

func NewSchema[T any]() *Schema[T] {
	return &Schema[T]{fields: make(map[string]*field[T])}
}

func (s *Schema[T]) add(name, column string, kind Kind, get func(*T) value) *Schema[T] {
	s.fields[name] = &field[T]{column: column, kind: kind, get: get}
	return s
}

func (s *Schema[T]) String(name, column string, get func(*T) string) *Schema[T] {
	return s.add(name, column, KindString, func(t *T) value { return value{s: get(t)} })
}

func (s *Schema[T]) Date(name, column string, get func(*T) time.Time) *Schema[T] {
	return s.add(name, column, KindDate, func(t *T) value { return value{t: get(t)} })
}

func (s *Schema[T]) Int(name, column string, get func(*T) int) *Schema[T] {
	return s.add(name, column, KindInt, func(t *T) value { return value{i: int64(get(t))} })
}

func (s *Schema[T]) Decimal(name, column string, get func(*T) decimal.Decimal) *Schema[T] {
	return s.add(name, column, KindDecimal, func(t *T) value { return value{d: get(t)} })
}

func (s *Schema[T]) Bool(name, column string, get func(*T) bool) *Schema[T] {
	return s.add(name, column, KindBool, func(t *T) value { return value{b: get(t)} })
}

// Alias registers alias as another name for an existing field.
func (s *Schema[T]) Alias(alias, name string) *Schema[T] {
	f, ok := s.fields[name]
	if !ok {
		panic(fmt.Sprintf("filter: alias %q refers to unknown field %q", alias, name))
	}
	s.fields[alias] = f
	return s
}

// Embed mounts every field of sub under prefix, so "id.employeeCode"
// resolves through get to sub's "employeeCode".
func Embed[T, K any](s *Schema[T], prefix string, sub *Schema[K], get func(*T) *K) *Schema[T] {
	for name, f := range sub.fields {
		inner := f.get
		s.fields[prefix+"."+name] = &field[T]{
			column: f.column,
			kind:   f.kind,
			get:    func(t *T) value { return inner(get(t)) },
		}
	}
	return s
}

func (s *Schema[T]) lookup(name string) (*field[T], error) {
	f, ok := s.fields[name]
	if !ok {
		return nil, apperror.Validation("Invalid filter field: %s", name)
	}
	return f, nil
}

type condition[T any] struct {
	sql   string
	args  []any
	match func(*T) bool
}

// Predicate is the AND of compiled criteria. The zero value matches
// everything.
type Predicate[T any] struct {
	conds []condition[T]
}

// Apply adds the predicate's WHERE clauses to db.
func (p Predicate[T]) Apply(db *gorm.DB) *gorm.DB {
	for _, c := range p.conds {
		db = db.Where(c.sql, c.args...)
	}
	return db
}

func (p Predicate[T]) Match(t *T) bool {
	for _, c := range p.conds {
		if !c.match(t) {
			return false
		}
	}
	return true
}

func (p Predicate[T]) Filter(items []T) []T {
	out := make([]T, 0, len(items))
	for i := range items {
		if p.Match(&items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}

// Compile validates criteria against the schema and builds their
// conjunction.
func (s *Schema[T]) Compile(criteria []Criterion) (Predicate[T], error) {
	var p Predicate[T]
	for _, c := range criteria {
		f, err := s.lookup(c.Field)
		if err != nil {
			return Predicate[T]{}, err
		}
		cond, err := f.compile(ParseOperator(string(c.Operator)), c.Value)
		if err != nil {
			return Predicate[T]{}, err
		}
		p.conds = append(p.conds, cond)
	}
	return p, nil
}

func (f *field[T]) compile(op Operator, raw string) (condition[T], error) {
	switch f.kind {
	case KindString:
		return f.compileString(op, raw), nil
	case KindDate:
		return f.compileDate(op, raw)
	case KindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return condition[T]{}, apperror.Validation("Invalid number value: %s", raw)
		}
		return f.compileOrdered(op, raw, n, func(t *T) int { return cmp.Compare(f.get(t).i, n) },
			func(t *T) string { return strconv.FormatInt(f.get(t).i, 10) }), nil
	case KindDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return condition[T]{}, apperror.Validation("Invalid number value: %s", raw)
		}
		return f.compileOrdered(op, raw, d, func(t *T) int { return f.get(t).d.Cmp(d) },
			func(t *T) string { return f.get(t).d.String() }), nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return condition[T]{}, apperror.Validation("Invalid boolean value: %s", raw)
		}
		if op != OpEq && op != OpLike {
			return condition[T]{}, apperror.Validation("Operator %s is not supported for boolean values", op)
		}
		return condition[T]{
			sql:   f.column + " = ?",
			args:  []any{b},
			match: func(t *T) bool { return f.get(t).b == b },
		}, nil
	}
	return condition[T]{}, apperror.Validation("Unsupported filter kind")
}

func (f *field[T]) compileString(op Operator, raw string) condition[T] {
	lower := strings.ToLower(raw)
	get := func(t *T) string { return f.get(t).s }
	switch op {
	case OpLike:
		return condition[T]{
			sql:   "LOWER(" + f.column + ") LIKE ?",
			args:  []any{"%" + lower + "%"},
			match: func(t *T) bool { return strings.Contains(strings.ToLower(get(t)), lower) },
		}
	case OpGt, OpLt, OpGte, OpLte:
		return condition[T]{
			sql:   f.column + " " + comparison(op) + " ?",
			args:  []any{raw},
			match: func(t *T) bool { return satisfies(op, strings.Compare(get(t), raw)) },
		}
	default:
		return condition[T]{
			sql:   "LOWER(" + f.column + ") = ?",
			args:  []any{lower},
			match: func(t *T) bool { return strings.EqualFold(get(t), raw) },
		}
	}
}

// compileDate treats the value as a whole calendar day: eq selects
// [day, day+1), gt selects from day+1 onward, lte up to day+1 exclusive.
func (f *field[T]) compileDate(op Operator, raw string) (condition[T], error) {
	if op == OpLike {
		return condition[T]{
			sql:   "CAST(" + f.column + " AS TEXT) LIKE ?",
			args:  []any{"%" + raw + "%"},
			match: func(t *T) bool { return strings.Contains(f.get(t).t.Format(dateLayout), raw) },
		}, nil
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return condition[T]{}, apperror.Validation("Invalid date format: %s", raw)
	}
	next := day.AddDate(0, 0, 1)
	get := func(t *T) time.Time { return f.get(t).t }

	switch op {
	case OpGt:
		return condition[T]{
			sql:   f.column + " >= ?",
			args:  []any{next},
			match: func(t *T) bool { return !get(t).Before(next) },
		}, nil
	case OpGte:
		return condition[T]{
			sql:   f.column + " >= ?",
			args:  []any{day},
			match: func(t *T) bool { return !get(t).Before(day) },
		}, nil
	case OpLt:
		return condition[T]{
			sql:   f.column + " < ?",
			args:  []any{day},
			match: func(t *T) bool { return get(t).Before(day) },
		}, nil
	case OpLte:
		return condition[T]{
			sql:   f.column + " < ?",
			args:  []any{next},
			match: func(t *T) bool { return get(t).Before(next) },
		}, nil
	default:
		return condition[T]{
			sql:  f.column + " >= ? AND " + f.column + " < ?",
			args: []any{day, next},
			match: func(t *T) bool {
				v := get(t)
				return !v.Before(day) && v.Before(next)
			},
		}, nil
	}
}

func (f *field[T]) compileOrdered(op Operator, raw string, arg any, compare func(*T) int, format func(*T) string) condition[T] {
	if op == OpLike {
		return condition[T]{
			sql:   "CAST(" + f.column + " AS TEXT) LIKE ?",
			args:  []any{"%" + raw + "%"},
			match: func(t *T) bool { return strings.Contains(format(t), raw) },
		}
	}
	return condition[T]{
		sql:   f.column + " " + comparison(op) + " ?",
		args:  []any{arg},
		match: func(t *T) bool { return satisfies(op, compare(t)) },
	}
}

func comparison(op Operator) string {
	switch op {
	case OpGt:
		return ">"
	case OpLt:
		return "<"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	default:
		return "="
	}
}

func satisfies(op Operator, c int) bool {
	switch op {
	case OpGt:
		return c > 0
	case OpLt:
		return c < 0
	case OpGte:
		return c >= 0
	case OpLte:
		return c <= 0
	default:
		return c == 0
	}
}

// Order renders sorts as a gorm scope. Only registered fields may be
// sorted on.
func (s *Schema[T]) Order(sorts []Sort) (func(*gorm.DB) *gorm.DB, error) {
	clauses := make([]string, 0, len(sorts))
	for _, srt := range sorts {
		f, ok := s.fields[srt.Field]
		if !ok {
			return nil, apperror.Validation("Invalid sort field: %s", srt.Field)
		}
		dir := "ASC"
		if srt.Direction == Desc {
			dir = "DESC"
		}
		clauses = append(clauses, f.column+" "+dir)
	}
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range clauses {
			db = db.Order(c)
		}
		return db
	}, nil
}

// SortSlice orders items in place by sorts, stable across equal keys.
func (s *Schema[T]) SortSlice(items []T, sorts []Sort) error {
	type key struct {
		f    *field[T]
		desc bool
	}
	keys := make([]key, 0, len(sorts))
	for _, srt := range sorts {
		f, ok := s.fields[srt.Field]
		if !ok {
			return apperror.Validation("Invalid sort field: %s", srt.Field)
		}
		keys = append(keys, key{f: f, desc: srt.Direction == Desc})
	}
	slices.SortStableFunc(items, func(a, b T) int {
		for _, k := range keys {
			c := compareValues(k.f.kind, k.f.get(&a), k.f.get(&b))
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return nil
}

func compareValues(kind Kind, a, b value) int {
	switch kind {
	case KindDate:
		return a.t.Compare(b.t)
	case KindInt:
		return cmp.Compare(a.i, b.i)
	case KindDecimal:
		return a.d.Cmp(b.d)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case a.b:
			return 1
		default:
			return -1
		}
	default:
		return strings.Compare(a.s, b.s)
	}
}
