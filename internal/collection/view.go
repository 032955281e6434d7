package collection

import (
	"slices"
	"strings"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) flip() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// ParseDirection accepts "asc" and "desc" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(s) {
	case "asc":
		return Asc, true
	case "desc":
		return Desc, true
	}
	return "", false
}

// missingKey sorts after every real key.
const missingKey = "\U0010FFFF"

// Row is one entity of a derived view together with its position in the
// authoritative list.
type Row[T any] struct {
	Position int `json:"position"`
	Item     T   `json:"item"`
}

// Query is the view state of a collection.
type Query struct {
	Search    string    `json:"search"`
	Sort      string    `json:"sort,omitempty"`
	Direction Direction `json:"direction"`
	Page      int       `json:"page"`
	Size      int       `json:"size"`
}

type Page[T any] struct {
	Rows       []Row[T] `json:"rows"`
	Total      int      `json:"total"`
	TotalPages int      `json:"totalPages"`
	Query
}

func rowsOf[T any](items []T) []Row[T] {
	rows := make([]Row[T], len(items))
	for i, it := range items {
		rows[i] = Row[T]{Position: i, Item: it}
	}
	return rows
}

// Filter keeps rows where any search field contains term, ignoring case.
// An empty term keeps everything in order.
func Filter[T any](rows []Row[T], term string, fields func(T) []string) []Row[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || fields == nil {
		return rows
	}
	out := make([]Row[T], 0, len(rows))
	for _, r := range rows {
		for _, f := range fields(r.Item) {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Sort orders rows by key in place. The sort is stable, so ties keep their
// relative order in either direction.
func Sort[T any](rows []Row[T], key SortKey[T], dir Direction) {
	if key == nil {
		return
	}
	keyOf := func(item T) string {
		k, ok := key(item)
		if !ok {
			return missingKey
		}
		return strings.ToLower(k)
	}
	slices.SortStableFunc(rows, func(a, b Row[T]) int {
		c := strings.Compare(keyOf(a.Item), keyOf(b.Item))
		if dir == Desc {
			return -c
		}
		return c
	})
}

// TotalPages is ceil(count/size), never less than one.
func TotalPages(count, size int) int {
	if size < 1 {
		size = 1
	}
	pages := (count + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

func clampPage(page, totalPages int) int {
	return max(1, min(page, totalPages))
}

// Paginate returns the rows of page (1-based) after clamping it to the valid
// range.
func Paginate[T any](rows []Row[T], page, size int) []Row[T] {
	if size < 1 {
		size = 1
	}
	page = clampPage(page, TotalPages(len(rows), size))
	start := (page - 1) * size
	end := min(start+size, len(rows))
	if start >= end {
		return []Row[T]{}
	}
	return rows[start:end]
}

// Derive computes the filtered, sorted and paginated view of items. items is
// never modified.
func Derive[T any](items []T, schema Schema[T], q Query) Page[T] {
	rows := Filter(rowsOf(items), q.Search, schema.SearchFields)
	if q.Sort != "" {
		Sort(rows, schema.SortFields[q.Sort], q.Direction)
	}
	if q.Size < 1 {
		q.Size = DefaultPageSize
	}
	total := TotalPages(len(rows), q.Size)
	q.Page = clampPage(q.Page, total)
	return Page[T]{
		Rows:       Paginate(rows, q.Page, q.Size),
		Total:      len(rows),
		TotalPages: total,
		Query:      q,
	}
}
