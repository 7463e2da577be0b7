// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	OrderAsc        = "asc"
	OrderDesc       = "desc"
)

var ErrInvalidPagination = errors.New("invalid pagination parameters")

type PageParams struct {
	Count int
	Page  int
	Order string
}

// ParsePageParams reads count, page and order from the query string,
// clamping count and page into range
func ParsePageParams(r *http.Request) (PageParams, error) {
	params := PageParams{
		Count: DefaultPageSize,
		Page:  1,
		Order: OrderAsc,
	}
	query := r.URL.Query()
	if v := query.Get("count"); v != "" {
		count, err := strconv.Atoi(v)
		if err != nil {
			return PageParams{}, ErrInvalidPagination
		}
		params.Count = min(max(count, 1), MaxPageSize)
	}
	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return PageParams{}, ErrInvalidPagination
		}
		params.Page = max(page, 1)
	}
	if v := query.Get("order"); v != "" {
		switch order := strings.ToLower(v); order {
		case OrderAsc, OrderDesc:
			params.Order = order
		default:
			return PageParams{}, ErrInvalidPagination
		}
	}
	return params, nil
}

// Paginate returns the requested page of items and sets the total headers
func Paginate[T any](w http.ResponseWriter, items []T, params PageParams) []T {
	total := len(items)
	pages := 0
	if total > 0 && params.Count > 0 {
		pages = (total + params.Count - 1) / params.Count
	}
	w.Header().Set("X-Pagination-Count-Total", strconv.Itoa(total))
	w.Header().Set("X-Pagination-Page-Total", strconv.Itoa(pages))
	if params.Order == OrderDesc {
		items = slices.Clone(items)
		slices.Reverse(items)
	}
	start := (params.Page - 1) * params.Count
	if start >= total {
		return []T{}
	}
	return items[start:min(start+params.Count, total)]
}
