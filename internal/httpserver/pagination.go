package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is the default number of items per page.
	DefaultPageSize = 10
	// MaxPageSize is the maximum allowed page size.
	MaxPageSize = 100
)

// PageParams holds the parsed query parameters for offset-based pagination.
// The query parameter names (page, limit) match the public API contract.
type PageParams struct {
	Page   int
	Limit  int
	Offset int // computed from Page and Limit
}

// ParsePageParams extracts pagination parameters from the request.
func ParsePageParams(r *http.Request) (PageParams, error) {
	p := PageParams{Page: 1, Limit: DefaultPageSize}

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("page must be a positive integer")
		}
		p.Page = n
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("limit must be a positive integer")
		}
		if n > MaxPageSize {
			n = MaxPageSize
		}
		p.Limit = n
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p, nil
}

// Page is the response envelope for paginated results.
type Page[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewPage builds a Page from a result set and total count.
func NewPage[T any](items []T, params PageParams, total int) Page[T] {
	if items == nil {
		items = []T{}
	}

	totalPages := 0
	if params.Limit > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}

	return Page[T]{
		Data:       items,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: totalPages,
	}
}
