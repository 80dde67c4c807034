package listing

import (
	"sort"
	"strings"
)

// SortField names a sortable column. Exactly one field is active at a time.
type SortField int

const (
	ByNameIndex SortField = iota
	ByDate
)

// SortRows reorders rows in place, ascending or descending on one numeric
// field. The sort is stable: ties keep their prior relative order. Comparison
// is always numeric, never lexicographic.
func SortRows(rows []Row, field SortField, desc bool) {
	measure := func(r *Row) int64 {
		if field == ByDate {
			return r.Date
		}
		return int64(r.NameIndex)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := measure(&rows[i]), measure(&rows[j])
		if desc {
			return a > b
		}
		return a < b
	})
}

// ApplyFilter toggles the Filtered flag on every row: an empty query shows
// all rows, otherwise a row stays visible only when its author, title, or
// phonetic annotation contains the query. Matching is a plain substring
// test, case-sensitive and locale-naive on purpose.
func ApplyFilter(rows []Row, query string) {
	if query == "" {
		for i := range rows {
			rows[i].Filtered = false
		}
		return
	}
	for i := range rows {
		r := &rows[i]
		r.Filtered = !(strings.Contains(r.Author, query) ||
			strings.Contains(r.Title, query) ||
			(r.Ruby != "" && strings.Contains(r.Ruby, query)))
	}
}

// Files returns the file-kind rows, the substrate bundling operates on.
func Files(rows []Row) []*Row {
	var out []*Row
	for i := range rows {
		if rows[i].IsFile() {
			out = append(out, &rows[i])
		}
	}
	return out
}

// SelectedFiles returns the explicitly checked file rows, or every file row
// when nothing is checked. Triggering a bundle with an empty selection means
// "all of it".
func SelectedFiles(rows []Row) []*Row {
	files := Files(rows)
	var checked []*Row
	for _, f := range files {
		if f.Selected {
			checked = append(checked, f)
		}
	}
	if len(checked) == 0 {
		return files
	}
	return checked
}

// SetAllSelected drives the header "select all" checkbox: it sets or clears
// the selection flag on every file row in one action.
func SetAllSelected(rows []Row, selected bool) {
	for i := range rows {
		if rows[i].IsFile() {
			rows[i].Selected = selected
		}
	}
}
