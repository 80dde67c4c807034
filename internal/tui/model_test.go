package tui

import (
	"os"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"shelfnav/internal/client"
	"shelfnav/internal/device"
	"shelfnav/internal/listing"
	"shelfnav/internal/nav"
	"shelfnav/internal/testutil"
)

const fixturePage = `<body><ul>
<li><a href="shelf/">shelf</a></li>
<li><a href="[A] One.epub" bookdate="200">[A] One</a></li>
<li><a href="[B] Two.epub" bookdate="100">[B] Two</a></li>
</ul></body>`

func newTestModel(t *testing.T, profile string) *Model {
	t.Helper()
	ls := testutil.NewLibraryServer(t)
	ls.Listings["/rpc/cat/scan/epub/index.html"] = fixturePage
	cfg := ls.Config(t)
	log := testutil.Logger(t)
	cl, err := client.New(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	session := nav.NewSession(cfg, log, device.Detect(profile, ""), cl)
	return New(cfg, log, session, cl)
}

func navigated(t *testing.T, m *Model) *Model {
	t.Helper()
	cmd := m.Init()
	msg := cmd()
	nd, ok := msg.(navDoneMsg)
	if !ok {
		t.Fatalf("init msg = %T", msg)
	}
	if nd.err != nil {
		t.Fatalf("init navigation: %v", nd.err)
	}
	mm, _ := m.Update(nd)
	return mm.(*Model)
}

func TestInitNavigatesToRoot(t *testing.T) {
	m := navigated(t, newTestModel(t, "pc"))
	if m.mode != modeListing {
		t.Fatalf("mode = %v", m.mode)
	}
	if len(m.view.Rows) != 3 {
		t.Fatalf("rows = %d", len(m.view.Rows))
	}
	if got := m.visibleCount(); got != 3 {
		t.Fatalf("visible = %d", got)
	}
}

func TestUnauthenticatedShowsLogin(t *testing.T) {
	ls := testutil.NewLibraryServer(t)
	ls.Listings["/rpc/cat/scan/epub/index.html"] = fixturePage
	ls.RequireAuth = true
	cfg := ls.Config(t)
	log := testutil.Logger(t)
	cl, err := client.New(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	session := nav.NewSession(cfg, log, device.Detect("pc", ""), cl)
	m := New(cfg, log, session, cl)

	msg := m.Init()()
	mm, _ := m.Update(msg)
	m = mm.(*Model)
	if m.mode != modeLogin {
		t.Fatalf("mode = %v, want login", m.mode)
	}

	// Successful login replays the gated navigation.
	m.loginUser.SetValue("jane")
	m.loginPass.SetValue("secret")
	loginMsg := m.loginCmd("jane", "secret")()
	mm, cmd := m.Update(loginMsg)
	m = mm.(*Model)
	if cmd == nil {
		t.Fatal("no replay navigation after login")
	}
	mm, _ = m.Update(cmd())
	m = mm.(*Model)
	if m.mode != modeListing || len(m.view.Rows) != 3 {
		t.Fatalf("after login: mode=%v rows=%v", m.mode, m.view)
	}
}

func TestSortToggle(t *testing.T) {
	m := navigated(t, newTestModel(t, "pc"))

	// A fresh sort field starts descending, like clicking an unsorted
	// column header in the web viewer.
	mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m = mm.(*Model)
	if m.sortField != listing.ByDate || !m.sortDesc {
		t.Fatalf("first toggle: field=%v desc=%v", m.sortField, m.sortDesc)
	}
	if m.view.Rows[0].Date != 200 || m.view.Rows[2].Date != 0 {
		t.Fatalf("desc by date: %v", rowDates(m))
	}

	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	m = mm.(*Model)
	if m.sortDesc {
		t.Fatal("second toggle should flip to ascending")
	}
	if m.view.Rows[0].Date != 0 || m.view.Rows[2].Date != 200 {
		t.Fatalf("asc by date: %v", rowDates(m))
	}
}

func rowDates(m *Model) []int64 {
	var out []int64
	for _, r := range m.view.Rows {
		out = append(out, r.Date)
	}
	return out
}

func TestFilterDebounceGeneration(t *testing.T) {
	m := navigated(t, newTestModel(t, "pc"))
	m.filter.SetValue("A")
	m.filterGen = 5

	// A stale tick from an older keystroke must not apply the filter.
	mm, _ := m.Update(filterTickMsg{gen: 4})
	m = mm.(*Model)
	if m.query != "" {
		t.Fatalf("stale tick applied filter: %q", m.query)
	}

	mm, _ = m.Update(filterTickMsg{gen: 5})
	m = mm.(*Model)
	if m.query != "A" {
		t.Fatalf("current tick not applied: %q", m.query)
	}
	if got := m.visibleCount(); got != 1 {
		t.Fatalf("visible after filter = %d, want 1", got)
	}
}

func TestSelectAllToggle(t *testing.T) {
	m := navigated(t, newTestModel(t, "pc"))

	mm, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = mm.(*Model)
	files := listing.Files(m.view.Rows)
	for _, f := range files {
		if !f.Selected {
			t.Fatal("select-all did not select every file row")
		}
	}
	mm, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	m = mm.(*Model)
	for _, f := range listing.Files(m.view.Rows) {
		if f.Selected {
			t.Fatal("second select-all did not clear selection")
		}
	}
}

func TestDownloadSavesUnderDisplayName(t *testing.T) {
	ls := testutil.NewLibraryServer(t)
	ls.Listings["/rpc/cat/scan/epub/index.html"] = fixturePage
	ls.Files["/rpc/cat/scan/epub/[A] One.epub"] = []byte("book bytes")
	cfg := ls.Config(t)
	log := testutil.Logger(t)
	cl, err := client.New(cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	session := nav.NewSession(cfg, log, device.Detect("pc", ""), cl)
	m := navigated(t, New(cfg, log, session, cl))

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	}()

	row := &m.view.Rows[1]
	msg := m.downloadCmd(row.Name, row.URL)()
	dd, ok := msg.(downloadDoneMsg)
	if !ok || dd.err != nil {
		t.Fatalf("download: %T %v", msg, dd.err)
	}
	if dd.path != "[A] One.epub" {
		t.Fatalf("saved as %q", dd.path)
	}
	if b, err := os.ReadFile(dd.path); err != nil || string(b) != "book bytes" {
		t.Fatalf("saved content: %q %v", b, err)
	}
}

func TestBundleUnavailableOnEInk(t *testing.T) {
	m := navigated(t, newTestModel(t, "kobo"))
	mm, cmd := m.startBundle()
	m = mm.(*Model)
	if cmd != nil || m.mode == modeBundling {
		t.Fatal("bundle must be unavailable on kobo")
	}
	if m.status == "" {
		t.Fatal("no feedback for unsupported bundling")
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		cursor, n, size, start, end int
	}{
		{0, 3, 10, 0, 3},
		{0, 100, 10, 0, 10},
		{50, 100, 10, 45, 55},
		{99, 100, 10, 90, 100},
	}
	for _, c := range cases {
		s, e := window(c.cursor, c.n, c.size)
		if s != c.start || e != c.end {
			t.Errorf("window(%d,%d,%d) = %d,%d want %d,%d", c.cursor, c.n, c.size, s, e, c.start, c.end)
		}
	}
}

func TestClip(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip = %q", got)
	}
	if got := clip("abcdefghij", 5); got != "abcd…" {
		t.Errorf("clip = %q", got)
	}
}
