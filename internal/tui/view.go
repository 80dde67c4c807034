package tui

import (
	"fmt"
	"strings"

	"shelfnav/internal/index"
	"shelfnav/internal/listing"
	"shelfnav/internal/nav"
)

// visibleRows returns pointers to the rows the listing table shows, in the
// current sort order, with filtered-out rows skipped.
func (m *Model) visibleRows() []*listing.Row {
	if m.view == nil {
		return nil
	}
	var out []*listing.Row
	for i := range m.view.Rows {
		if !m.view.Rows[i].Filtered {
			out = append(out, &m.view.Rows[i])
		}
	}
	return out
}

func (m *Model) visibleCount() int {
	if m.mode == modeFullSearch {
		if m.view == nil {
			return 0
		}
		return len(m.view.Entries)
	}
	return len(m.visibleRows())
}

func (m *Model) selectedEntry() *index.Entry {
	if m.view == nil || m.cursor < 0 || m.cursor >= len(m.view.Entries) {
		return nil
	}
	return &m.view.Entries[m.cursor]
}

func (m *Model) pageSize() int {
	n := m.h - 7
	if n < 5 {
		n = 5
	}
	return n
}

func (m *Model) View() string {
	switch m.mode {
	case modeLogin:
		return m.loginView()
	case modeBundling:
		return m.bundlingView()
	case modeFullSearch:
		return m.fullSearchView()
	default:
		return m.listingView()
	}
}

func (m *Model) header() string {
	title := nav.DefaultTitle
	if m.view != nil {
		title = m.view.Title
	}
	return m.th.title.Render(title)
}

func (m *Model) footer(keys string) string {
	var b strings.Builder
	if m.err != nil {
		b.WriteString(m.th.failed.Render("error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(m.th.footer.Render(keys))
	return b.String()
}

func sortMarker(active bool, desc bool) string {
	if !active {
		return ""
	}
	if desc {
		return " ▼"
	}
	return " ▲"
}

func (m *Model) listingView() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n")
	if m.filter.Focused() || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n")
	}
	if m.searching {
		b.WriteString(m.searchInput.View() + "\n")
	}

	head := fmt.Sprintf("    %-50s %s", "author / title"+sortMarker(m.sortField == listing.ByNameIndex, m.sortDesc),
		"date"+sortMarker(m.sortField == listing.ByDate, m.sortDesc))
	b.WriteString(m.th.head.Render(head) + "\n")

	rows := m.visibleRows()
	start, end := window(m.cursor, len(rows), m.pageSize())
	for i := start; i < end; i++ {
		row := rows[i]
		check := " "
		if row.Selected {
			check = "x"
		}
		mark := "  "
		if row.IsDirectory() {
			mark = "d "
			check = " "
		}
		line := fmt.Sprintf("[%s] %s%-48s %s", check, mark, clip(row.Name, 48), listing.FormatDate(row.Date))
		style := m.th.row
		switch {
		case i == m.cursor:
			style = m.th.rowSelected
		case row.Downloaded:
			style = m.th.downloaded
		case row.IsDirectory():
			style = m.th.rowDir
		}
		b.WriteString(style.Render(line) + "\n")
	}
	if len(rows) == 0 {
		b.WriteString(m.th.footer.Render("(empty)") + "\n")
	}

	return b.String() + m.footer("enter open · space select · a all · b bundle · / filter · ? search · n/d sort · u up · g root · q quit")
}

func (m *Model) fullSearchView() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n")
	if m.searching {
		b.WriteString(m.searchInput.View() + "\n")
	}
	b.WriteString(m.th.head.Render(fmt.Sprintf("  %-50s %s", "author / title", "date ▼")) + "\n")

	entries := m.view.Entries
	start, end := window(m.cursor, len(entries), m.pageSize())
	for i := start; i < end; i++ {
		e := entries[i]
		line := fmt.Sprintf("  %-50s %s", clip(e.DisplayName(), 50), listing.FormatDate(e.Mtime))
		style := m.th.row
		if i == m.cursor {
			style = m.th.rowSelected
		}
		b.WriteString(style.Render(line) + "\n")
	}
	if len(entries) == 0 {
		b.WriteString(m.th.footer.Render("(no matches)") + "\n")
	}
	return b.String() + m.footer("enter download · ? new search · g root · u back · q quit")
}

func (m *Model) loginView() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n\n")
	b.WriteString(m.th.warn.Render("not authenticated — log in to continue") + "\n\n")
	b.WriteString(m.loginUser.View() + "\n")
	b.WriteString(m.loginPass.View() + "\n\n")
	if m.status != "" {
		b.WriteString(m.th.failed.Render(m.status) + "\n")
	}
	b.WriteString(m.th.footer.Render("tab switch field · enter submit · ctrl+c quit"))
	return b.String()
}

func (m *Model) bundlingView() string {
	var b strings.Builder
	b.WriteString(m.header() + "\n")
	b.WriteString(m.th.warn.Render("bundling...") + "\n\n")
	lines := m.bundleLines
	if max := m.pageSize(); len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	if m.bundlePct > 0 {
		b.WriteString("\n" + m.bundleBar.ViewAs(m.bundlePct/100) + "\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n")
	}
	b.WriteString(m.th.footer.Render("waiting for downloads to settle · q quit"))
	return b.String()
}

// window returns the [start, end) slice bounds that keep cursor visible in a
// page of the given size.
func window(cursor, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
