package controller

import (
	"net/http"
	"strconv"
)

const (
	defaultSize = 10
	maxSize     = 1000
)

// SortOrder represents the sort direction for queries
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

type pageSpec struct {
	Size int
	Page int
	From int64
	To   int64
	Sort SortOrder
}

func parsePageSpec(r *http.Request) (pageSpec, error) {
	qs := r.URL.Query()

	size := defaultSize
	if v := qs.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < defaultSize || n > maxSize {
			return pageSpec{}, errInvalidSize
		}
		size = n
	}

	page := 1
	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pageSpec{}, errInvalidPage
		}
		page = n
	}

	var from, to int64
	if v := qs.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return pageSpec{}, errInvalidRange
		}
		from = n
	}
	if v := qs.Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return pageSpec{}, errInvalidRange
		}
		to = n
	}
	if from > 0 && to > 0 && from > to {
		return pageSpec{}, errInvalidRange
	}

	// Parse sort parameter, default to "desc" (newest first)
	sort := SortOrderDesc
	if v := qs.Get("sort"); v != "" {
		switch v {
		case "asc":
			sort = SortOrderAsc
		case "desc":
			sort = SortOrderDesc
		default:
			return pageSpec{}, errInvalidSort
		}
	}

	return pageSpec{Size: size, Page: page, From: from, To: to, Sort: sort}, nil
}

var (
	errInvalidSize  = &parseError{msg: "invalid size, must be 10..1000"}
	errInvalidPage  = &parseError{msg: "invalid page"}
	errInvalidRange = &parseError{msg: "invalid from/to range"}
	errInvalidSort  = &parseError{msg: "invalid sort, must be 'asc' or 'desc'"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
