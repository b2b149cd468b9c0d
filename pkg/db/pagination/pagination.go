package pagination

import (
	"salesdesk/pkg/db/option"
)

const (
	DefaultLimit = 50
	MaxLimit     = 250
)

type Pagination struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

// Normalize clamps page to >= 1 and limit to [1, MaxLimit], zero limit means DefaultLimit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// Options returns the limit/offset query options for the current page.
func (p Pagination) Options() []option.QueryOption {
	n := p.Normalize()
	return []option.QueryOption{option.WithLimit(n.Limit), option.WithOffset(n.Offset())}
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	n := p.Normalize()
	pages := total / int64(n.Limit)
	if total%int64(n.Limit) != 0 {
		pages++
	}
	return PageInfo{
		Page:       n.Page,
		Limit:      n.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
