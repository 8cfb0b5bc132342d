package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type paginationParams struct {
	Limit  int
	Offset int
}

func parsePagination(r *http.Request) paginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return paginationParams{Limit: limit, Offset: offset}
}
