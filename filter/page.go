package filter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const DefaultLimit = 10

type PageRequest struct {
	Offset int
	Limit  int
}

// Normalize clamps a negative offset to 0 and replaces a non-positive
// limit with DefaultLimit.
func (r PageRequest) Normalize() PageRequest {
	if r.Offset < 0 {
		r.Offset = 0
	}
	if r.Limit <= 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Number is the zero-based page the offset falls in.
func (r PageRequest) Number() int {
	r = r.Normalize()
	return r.Offset / r.Limit
}

// Skip is the row offset of the first element of the page.
func (r PageRequest) Skip() int {
	r = r.Normalize()
	return r.Number() * r.Limit
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	req = req.Normalize()
	if content == nil {
		content = []T{}
	}
	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	page := req.Number()
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          req.Limit,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          page == totalPages-1,
	}
}

// Find runs a paged query: base is scoped by the predicate, counted, then
// ordered and windowed.
func Find[T any](ctx context.Context, base *gorm.DB, schema *Schema[T], q Query) (Page[T], error) {
	pred, err := schema.Compile(q.Criteria)
	if err != nil {
		return Page[T]{}, err
	}
	order, err := schema.Order(q.Sorts)
	if err != nil {
		return Page[T]{}, err
	}
	req := q.Page.Normalize()

	var model T
	scoped := pred.Apply(base.WithContext(ctx).Model(&model))

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, fmt.Errorf("count: %w", err)
	}

	var content []T
	if total > 0 {
		err := scoped.Session(&gorm.Session{}).
			Scopes(order).
			Offset(req.Skip()).
			Limit(req.Limit).
			Find(&content).Error
		if err != nil {
			return Page[T]{}, fmt.Errorf("find page: %w", err)
		}
	}
	return NewPage(content, req, total), nil
}
