// Package listutil reads list-view query strings (search, sort, page) and pages
// result sets that the remote API returns whole.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
)

// Directions a sortable column accepts.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultPerPage is the page size used when per_page is absent or not offered.
const DefaultPerPage = 20

// PerPageOptions are the page sizes a link may request.
var PerPageOptions = []int{10, 20, 50, 100}

// PageParams is the requested page.
type PageParams struct {
	Page    int // 1-indexed
	PerPage int
}

// SortParams is the requested ordering.
type SortParams struct {
	Sort string // "" keeps the API's order
	Dir  string
}

// ListParams is everything a list page reads from its query string.
type ListParams struct {
	PageParams
	SortParams
	Search string
}

// ParseListParams reads q, sort, dir, page and per_page.
// POST: Page >= 1; PerPage is one of PerPageOptions; Sort is "" or in sortable; Dir is Asc or Desc
func ParseListParams(q url.Values, sortable []string) ListParams {
	p := ListParams{
		PageParams: PageParams{Page: 1, PerPage: DefaultPerPage},
		SortParams: SortParams{Dir: Asc},
		Search:     q.Get("q"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 1 {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil && slices.Contains(PerPageOptions, n) {
		p.PerPage = n
	}
	if col := q.Get("sort"); slices.Contains(sortable, col) {
		p.Sort = col
	}
	if q.Get("dir") == Desc {
		p.Dir = Desc
	}
	return p
}

// Query encodes p as a query string pointing at page.
// POST: defaults are left out; returns "" when nothing differs from them
func (p ListParams) Query(page int) string {
	v := url.Values{}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
		v.Set("dir", p.Dir)
	}
	if p.PerPage != 0 && p.PerPage != DefaultPerPage {
		v.Set("per_page", strconv.Itoa(p.PerPage))
	}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// SortLink is the query for a column header: it sorts by col ascending, or flips
// the direction when col is already the sort column. The link returns to page 1.
func (p ListParams) SortLink(col string) string {
	next := p
	next.Sort, next.Dir = col, Asc
	if p.Sort == col && p.Dir == Asc {
		next.Dir = Desc
	}
	return next.Query(1)
}

// PageInfo describes one page of a result set for rendering.
type PageInfo struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPageInfo places page within a result set of total rows.
// PRE: total >= 0
// POST: 1 <= Page <= TotalPages
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max(1, (total+perPage-1)/perPage)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the index of the page's first row.
func (p PageInfo) Offset() int { return (p.Page - 1) * p.PerPage }

// StartRow is the 1-indexed number of the page's first row, or 0 for an empty set.
func (p PageInfo) StartRow() int {
	if p.Total == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndRow is the 1-indexed number of the page's last row.
func (p PageInfo) EndRow() int { return min(p.Offset()+p.PerPage, p.Total) }

// ShowPagination reports whether the set spans more than one page.
func (p PageInfo) ShowPagination() bool { return p.TotalPages > 1 }

// pageButtons is how many page numbers the pager shows at once.
const pageButtons = 5

// PageNumbers lists the page numbers around the current page.
// POST: at most pageButtons ascending numbers, all within [1, TotalPages]
func (p PageInfo) PageNumbers() []int {
	first := max(1, min(p.Page-pageButtons/2, p.TotalPages-pageButtons+1))
	last := min(p.TotalPages, first+pageButtons-1)
	out := make([]int, 0, last-first+1)
	for n := first; n <= last; n++ {
		out = append(out, n)
	}
	return out
}

// Window returns the rows of items on the page described by info.
// PRE: info was computed from len(items)
func Window[T any](items []T, info PageInfo) []T {
	start := info.Offset()
	if start >= len(items) {
		return nil
	}
	return items[start:min(info.EndRow(), len(items))]
}
