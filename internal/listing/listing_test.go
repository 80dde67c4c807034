package listing

import (
	"testing"

	"shelfnav/internal/vpath"
)

const samplePage = `<html>
<head><title>novels</title></head>
<body>
<ul>
<li><a href="fantasy/">fantasy</a></li>
<li><a href="%E6%99%82%E4%BB%A3/index.html">時代</a></li>
<li><a href="%5BJane%20Doe%5D%20My%20Book.epub" ruby="じぇーん" bookdate="1700000000">[Jane Doe] My Book (2)</a></li>
<li><a href="plain.mobi" bookdate="1600000000">Untitled Thing</a></li>
<li><a href="archive.zip" bookdate="oops">Some Zip</a></li>
<ul><li><a href="nested/">nested</a></li></ul>
</ul>
</body>
</html>`

func parseSample(t *testing.T) []Row {
	t.Helper()
	base := vpath.Path{"novels"}
	rows, err := Parse(samplePage, base, "http://host/rpc/cat/scan/epub/novels/index.html")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return rows
}

func TestParse_RowModel(t *testing.T) {
	rows := parseSample(t)
	if len(rows) != 6 {
		t.Fatalf("rows = %d, want 6", len(rows))
	}
	for i, r := range rows {
		if r.NameIndex != i+1 {
			t.Errorf("row %d NameIndex = %d", i, r.NameIndex)
		}
	}

	dir := rows[0]
	if dir.Kind != KindDirectory {
		t.Errorf("fantasy kind = %v", dir.Kind)
	}
	if got := dir.Path.Join(); got != "novels/fantasy" {
		t.Errorf("fantasy path = %q", got)
	}
	if dir.Fragment != "#novels/fantasy" {
		t.Errorf("fantasy fragment = %q", dir.Fragment)
	}

	if got := rows[1].Path.Join(); got != "novels/時代" {
		t.Errorf("encoded dir path = %q", got)
	}

	book := rows[2]
	if book.Kind != KindEpub {
		t.Errorf("book kind = %v", book.Kind)
	}
	if book.Author != "Jane Doe" || book.Title != "My Book" {
		t.Errorf("author/title = %q/%q", book.Author, book.Title)
	}
	if book.Ruby != "じぇーん" {
		t.Errorf("ruby = %q", book.Ruby)
	}
	if book.Date != 1700000000 {
		t.Errorf("date = %d", book.Date)
	}
	if book.URL != "http://host/rpc/cat/scan/epub/novels/%5BJane%20Doe%5D%20My%20Book.epub" {
		t.Errorf("url = %q", book.URL)
	}

	plain := rows[3]
	if plain.Kind != KindMobi {
		t.Errorf("plain kind = %v", plain.Kind)
	}
	if plain.Author != "" || plain.Title != "Untitled Thing" {
		t.Errorf("unmatched split = %q/%q", plain.Author, plain.Title)
	}

	other := rows[4]
	if other.Kind != KindOther {
		t.Errorf("zip kind = %v", other.Kind)
	}
	if other.Date != 0 {
		t.Errorf("bad bookdate should be 0, got %d", other.Date)
	}

	if rows[5].Kind != KindDirectory || rows[5].Path.Join() != "novels/nested" {
		t.Errorf("nested dir row = %+v", rows[5])
	}
}

func TestParse_AnchorsOutsideListIgnored(t *testing.T) {
	page := `<body><a href="skip/">skip</a><ul><li><a href="keep/">keep</a></li></ul></body>`
	rows, err := Parse(page, nil, "http://host/lib/index.html")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "keep" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSortRows_DateToggle(t *testing.T) {
	rows := []Row{
		{NameIndex: 1, Date: 30},
		{NameIndex: 2, Date: 10},
		{NameIndex: 3, Date: 20},
	}
	SortRows(rows, ByDate, false)
	if rows[0].Date != 10 || rows[1].Date != 20 || rows[2].Date != 30 {
		t.Fatalf("asc order wrong: %+v", rows)
	}
	SortRows(rows, ByDate, true)
	if rows[0].Date != 30 || rows[1].Date != 20 || rows[2].Date != 10 {
		t.Fatalf("desc order wrong: %+v", rows)
	}
}

func TestSortRows_StableOnTies(t *testing.T) {
	rows := []Row{
		{NameIndex: 1, Date: 5},
		{NameIndex: 2, Date: 5},
		{NameIndex: 3, Date: 5},
	}
	SortRows(rows, ByDate, true)
	if rows[0].NameIndex != 1 || rows[1].NameIndex != 2 || rows[2].NameIndex != 3 {
		t.Fatalf("tie order not preserved: %+v", rows)
	}
}

func TestApplyFilter(t *testing.T) {
	rows := []Row{
		{Author: "Jane Doe", Title: "My Book"},
		{Title: "Other", Ruby: "じぇーん"},
		{Title: "Third"},
	}
	ApplyFilter(rows, "Jane")
	if rows[0].Filtered || !rows[1].Filtered || !rows[2].Filtered {
		t.Fatalf("author filter: %v %v %v", rows[0].Filtered, rows[1].Filtered, rows[2].Filtered)
	}
	ApplyFilter(rows, "じぇーん")
	if rows[0].Filtered != true || rows[1].Filtered != false {
		t.Fatalf("ruby filter: %v %v", rows[0].Filtered, rows[1].Filtered)
	}
	ApplyFilter(rows, "")
	for i, r := range rows {
		if r.Filtered {
			t.Errorf("row %d still filtered after clear", i)
		}
	}
}

func TestSelectedFiles_DefaultsToAll(t *testing.T) {
	rows := []Row{
		{Kind: KindDirectory},
		{Kind: KindEpub},
		{Kind: KindMobi},
	}
	if got := SelectedFiles(rows); len(got) != 2 {
		t.Fatalf("default selection = %d files, want 2", len(got))
	}
	rows[1].Selected = true
	got := SelectedFiles(rows)
	if len(got) != 1 || got[0].Kind != KindEpub {
		t.Fatalf("explicit selection = %+v", got)
	}
}

func TestSetAllSelected(t *testing.T) {
	rows := []Row{{Kind: KindDirectory}, {Kind: KindEpub}, {Kind: KindOther}}
	SetAllSelected(rows, true)
	if rows[0].Selected {
		t.Error("directory row selected")
	}
	if !rows[1].Selected || !rows[2].Selected {
		t.Error("file rows not selected")
	}
	SetAllSelected(rows, false)
	if rows[1].Selected || rows[2].Selected {
		t.Error("file rows not cleared")
	}
}
