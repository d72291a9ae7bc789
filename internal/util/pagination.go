package util

import "strconv"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > MaxPageSize {
		size = DefaultPageSize
	}
	return (page - 1) * size, size
}

// Meta is the pagination block returned next to list data.
type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// NewMeta clamps page into [1, total_pages]; an empty result still has one page.
func NewMeta(page, size int, total int64) Meta {
	_, size = Calculate(page, size)
	pages := (total + int64(size) - 1) / int64(size)
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if int64(page) > pages {
		page = int(pages)
	}
	return Meta{
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
		HasPrev:    page > 1,
		HasNext:    int64(page) < pages,
	}
}

func (m Meta) Offset() int { return (m.Page - 1) * m.Size }

type Page[T any] struct {
	Data []T  `json:"data"`
	Meta Meta `json:"meta"`
}
