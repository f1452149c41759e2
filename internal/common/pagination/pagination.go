// Package pagination implements offset pagination for the signals list
// endpoint: query-parameter parsing, offset math, and the response
// envelope.
package pagination

import (
	"fmt"
	"net/http"
	"strconv"
)

// Params are the parsed pagination query parameters of one request.
type Params struct {
	Page  int // 1-based
	Limit int
}

// ParseQueryParams reads page and limit from the request query string,
// falling back to the config defaults when absent. A present-but-invalid
// value is an error, not a fallback: the caller maps it to 400.
func ParseQueryParams(r *http.Request, config Config) (Params, error) {
	params := Params{
		Page:  config.DefaultPage,
		Limit: config.DefaultLimit,
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return params, fmt.Errorf("invalid query parameter: page must be a positive integer")
		}
		params.Page = page
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > config.MaxLimit {
			return params, fmt.Errorf("invalid query parameter: limit must be between 1 and %d", config.MaxLimit)
		}
		params.Limit = limit
	}

	return params, nil
}

// CalculateOffset converts a 1-based page into a row offset.
func CalculateOffset(page, limit int) int {
	return (page - 1) * limit
}

// CalculateTotalPages returns ceil(total/limit), with a minimum of one
// page so an empty result set still renders page 1 of 1.
func CalculateTotalPages(total int64, limit int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Metadata is the pagination block of a list response.
type Metadata struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Response wraps one page of items with its Metadata.
type Response[T any] struct {
	Data       []T      `json:"data"`
	Pagination Metadata `json:"pagination"`
}

// NewResponse builds a Response from a page of items and its metadata.
func NewResponse[T any](data []T, metadata Metadata) Response[T] {
	return Response[T]{Data: data, Pagination: metadata}
}
