package util

import "strconv"

const (
	DefaultPageSize = 12
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

// Normalize clamps page to >= 1 and size to [1, MaxPageSize], using
// DefaultPageSize when size is not positive.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func Calculate(page, size int) (offset, limit int) {
	page, size = Normalize(page, size)
	return (page - 1) * size, size
}

type Meta struct {
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int64
	From        *int
	To          *int
}

// NewMeta describes a page holding count items out of total. LastPage is
// never below 1 and From/To are nil for an empty page.
func NewMeta(page, size int, total int64, count int) Meta {
	page, size = Normalize(page, size)
	last := int((total + int64(size) - 1) / int64(size))
	if last < 1 {
		last = 1
	}
	m := Meta{CurrentPage: page, LastPage: last, PerPage: size, Total: total}
	if count > 0 {
		from := (page-1)*size + 1
		to := from + count - 1
		m.From, m.To = &from, &to
	}
	return m
}
