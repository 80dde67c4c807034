package tui

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"shelfnav/internal/bundle"
	"shelfnav/internal/client"
	"shelfnav/internal/config"
	"shelfnav/internal/listing"
	"shelfnav/internal/logging"
	"shelfnav/internal/nav"
)

// filterDebounce tolerates input-method composition artifacts on soft
// keyboards: the live filter runs only after the input has been quiet this
// long.
const filterDebounce = 100 * time.Millisecond

type Theme struct {
	title       lipgloss.Style
	head        lipgloss.Style
	row         lipgloss.Style
	rowSelected lipgloss.Style
	rowDir      lipgloss.Style
	downloaded  lipgloss.Style
	failed      lipgloss.Style
	footer      lipgloss.Style
	warn        lipgloss.Style
}

func defaultTheme() Theme {
	return Theme{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		head:        lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		row:         lipgloss.NewStyle(),
		rowSelected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219")),
		rowDir:      lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		downloaded:  lipgloss.NewStyle().Faint(true),
		failed:      lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		footer:      lipgloss.NewStyle().Faint(true),
		warn:        lipgloss.NewStyle().Foreground(lipgloss.Color("215")).Bold(true),
	}
}

// mode is the model's top-level state.
type mode int

const (
	modeListing mode = iota
	modeFullSearch
	modeLogin
	modeBundling
)

type navDoneMsg struct {
	view *nav.View
	err  error
}

type loginDoneMsg struct{ err error }

type filterTickMsg struct{ gen int }

type bundleEventMsg struct{ p bundle.Progress }

type bundleDoneMsg struct {
	res     *bundle.Result
	archive string
	err     error
}

type downloadDoneMsg struct {
	path string
	err  error
}

// Model is the bubbletea model for the navigator. All remote work happens in
// commands; the model itself only reacts to their completion messages.
type Model struct {
	cfg     *config.Config
	log     *logging.Logger
	session *nav.Session
	cl      *client.Client
	bundler *bundle.Bundler
	th      Theme

	w, h int
	mode mode

	view      *nav.View
	sortField listing.SortField
	sortDesc  bool
	cursor    int
	offset    int
	status    string
	err       error

	filter    textinput.Model
	filterGen int
	query     string // applied live-filter query

	searchInput textinput.Model
	searching   bool // full-search input focused

	loginUser textinput.Model
	loginPass textinput.Model
	loginSel  int // 0 user, 1 password

	bundleEvents chan bundle.Progress
	bundleLines  []string
	bundleBar    progress.Model
	bundlePct    float64
}

func New(cfg *config.Config, log *logging.Logger, session *nav.Session, cl *client.Client) *Model {
	filter := textinput.New()
	filter.Placeholder = "filter"
	filter.Prompt = "/"
	filter.CharLimit = 128

	search := textinput.New()
	search.Placeholder = "search whole library"
	search.Prompt = "? "
	search.CharLimit = 128

	user := textinput.New()
	user.Placeholder = "user"
	user.Prompt = "user: "
	pass := textinput.New()
	pass.Placeholder = "password"
	pass.Prompt = "password: "
	pass.EchoMode = textinput.EchoPassword

	return &Model{
		cfg:         cfg,
		log:         log,
		session:     session,
		cl:          cl,
		bundler:     bundle.New(cl, log, cfg.Concurrency.BundleFetches),
		th:          defaultTheme(),
		filter:      filter,
		searchInput: search,
		loginUser:   user,
		loginPass:   pass,
		bundleBar:   progress.New(progress.WithDefaultGradient()),
	}
}

func (m *Model) Init() tea.Cmd {
	frag := os.Getenv("SHELFNAV_FRAGMENT")
	return m.navigateCmd(&frag, false)
}

func (m *Model) navigateCmd(fragment *string, forceTopScroll bool) tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.Navigate(context.Background(), fragment, forceTopScroll)
		return navDoneMsg{view: v, err: err}
	}
}

func (m *Model) upCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.Up(context.Background())
		return navDoneMsg{view: v, err: err}
	}
}

func (m *Model) rootCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.Root(context.Background())
		return navDoneMsg{view: v, err: err}
	}
}

func (m *Model) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.Search(context.Background(), query)
		return navDoneMsg{view: v, err: err}
	}
}

func (m *Model) loginCmd(user, pass string) tea.Cmd {
	return func() tea.Msg {
		err := m.cl.Login(context.Background(), user, pass)
		return loginDoneMsg{err: err}
	}
}

func (m *Model) filterTickCmd() tea.Cmd {
	gen := m.filterGen
	return tea.Tick(filterDebounce, func(time.Time) tea.Msg {
		return filterTickMsg{gen: gen}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		return m, nil
	case navDoneMsg:
		return m.onNavDone(msg)
	case loginDoneMsg:
		return m.onLoginDone(msg)
	case filterTickMsg:
		if msg.gen == m.filterGen && m.view != nil {
			m.query = m.filter.Value()
			listing.ApplyFilter(m.view.Rows, m.query)
			m.clampCursor()
		}
		return m, nil
	case bundleEventMsg:
		m.onBundleEvent(msg.p)
		return m, m.waitBundleEventCmd()
	case bundleDoneMsg:
		return m.onBundleDone(msg)
	case downloadDoneMsg:
		if msg.err != nil {
			m.status = "download failed: " + msg.err.Error()
		} else {
			m.status = "saved " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *Model) onNavDone(msg navDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if errors.Is(msg.err, nav.ErrStale) {
			// A newer navigation already rendered; nothing to do.
			return m, nil
		}
		if errors.Is(msg.err, client.ErrUnauthenticated) {
			m.mode = modeLogin
			m.loginSel = 0
			m.loginUser.Focus()
			m.loginPass.Blur()
			return m, textinput.Blink
		}
		m.err = msg.err
		return m, nil
	}
	m.err = nil
	m.view = msg.view
	m.query = ""
	m.filter.SetValue("")
	m.filter.Blur()
	m.filterGen++
	m.sortField = listing.ByNameIndex
	m.sortDesc = false
	if msg.view.Kind == nav.ViewFullSearch {
		m.mode = modeFullSearch
		m.sortField = listing.ByDate
		m.sortDesc = true
	} else {
		m.mode = modeListing
	}
	m.cursor = 0
	if msg.view.ScrollTop || msg.view.Reload {
		m.offset = 0
	}
	if msg.view.Reload {
		// The platform workaround for devices without programmatic scroll:
		// redraw the whole screen instead.
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m *Model) onLoginDone(msg loginDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "login failed: " + msg.err.Error()
		return m, nil
	}
	m.status = ""
	m.mode = modeListing
	// Replay the navigation that hit the auth gate.
	return m, m.navigateCmd(nil, false)
}

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeLogin {
		return m.onLoginKey(msg)
	}
	if m.filter.Focused() {
		return m.onFilterKey(msg)
	}
	if m.searching {
		return m.onSearchKey(msg)
	}
	if m.mode == modeBundling {
		// Only quit is honored while a bundle is in flight; there is no
		// cancellation.
		if s := msg.String(); s == "q" || s == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "enter", "l":
		return m.activate()
	case "u", "h", "backspace":
		return m, m.upCmd()
	case "g":
		return m, m.rootCmd()
	case "/":
		if m.mode == modeListing {
			m.filter.Focus()
			return m, textinput.Blink
		}
	case "?":
		m.searching = true
		m.searchInput.SetValue(m.currentQuery())
		m.searchInput.Focus()
		return m, textinput.Blink
	case "n":
		m.toggleSort(listing.ByNameIndex)
	case "d":
		m.toggleSort(listing.ByDate)
	case " ":
		m.toggleSelected()
	case "a":
		m.toggleSelectAll()
	case "b":
		return m.startBundle()
	case "r":
		frag := m.currentFragment()
		return m, m.navigateCmd(&frag, true)
	}
	return m, nil
}

func (m *Model) onFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter.Blur()
		m.filter.SetValue("")
		m.filterGen++
		if m.view != nil {
			listing.ApplyFilter(m.view.Rows, "")
		}
		m.query = ""
		return m, nil
	case "enter":
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	before := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.filterGen++
		return m, tea.Batch(cmd, m.filterTickCmd())
	}
	return m, cmd
}

func (m *Model) onSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, m.searchCmd(m.searchInput.Value())
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) onLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab":
		m.loginSel = 1 - m.loginSel
		if m.loginSel == 0 {
			m.loginUser.Focus()
			m.loginPass.Blur()
		} else {
			m.loginPass.Focus()
			m.loginUser.Blur()
		}
		return m, textinput.Blink
	case "enter":
		if m.loginSel == 0 {
			m.loginSel = 1
			m.loginPass.Focus()
			m.loginUser.Blur()
			return m, textinput.Blink
		}
		return m, m.loginCmd(m.loginUser.Value(), m.loginPass.Value())
	}
	var cmd tea.Cmd
	if m.loginSel == 0 {
		m.loginUser, cmd = m.loginUser.Update(msg)
	} else {
		m.loginPass, cmd = m.loginPass.Update(msg)
	}
	return m, cmd
}

func (m *Model) activate() (tea.Model, tea.Cmd) {
	if m.mode == modeFullSearch {
		if e := m.selectedEntry(); e != nil {
			url := e.FileURL(m.cfg.Server.LibraryPrefix)
			return m, m.downloadCmd(e.DisplayName(), url)
		}
		return m, nil
	}
	rows := m.visibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return m, nil
	}
	row := rows[m.cursor]
	if row.IsDirectory() {
		frag := row.Fragment
		return m, m.navigateCmd(&frag, true)
	}
	row.Downloaded = true
	return m, m.downloadCmd(row.Name, row.URL)
}

// downloadCmd saves one file into the working directory under its display
// name.
func (m *Model) downloadCmd(name, url string) tea.Cmd {
	return func() tea.Msg {
		data, err := m.cl.FetchFile(context.Background(), url)
		if err != nil {
			return downloadDoneMsg{err: err}
		}
		out := name + path.Ext(url)
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return downloadDoneMsg{err: err}
		}
		return downloadDoneMsg{path: out}
	}
}

func (m *Model) moveCursor(delta int) {
	n := m.visibleCount()
	m.cursor += delta
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) clampCursor() {
	if n := m.visibleCount(); m.cursor >= n {
		m.cursor = 0
	}
}

func (m *Model) toggleSort(field listing.SortField) {
	if m.view == nil || m.mode != modeListing {
		return
	}
	if m.sortField == field {
		m.sortDesc = !m.sortDesc
	} else {
		// A freshly activated sort field starts descending; toggling the
		// same field flips the direction.
		m.sortField = field
		m.sortDesc = true
	}
	listing.SortRows(m.view.Rows, m.sortField, m.sortDesc)
}

func (m *Model) toggleSelected() {
	rows := m.visibleRows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return
	}
	if rows[m.cursor].IsFile() {
		rows[m.cursor].Selected = !rows[m.cursor].Selected
	}
}

func (m *Model) toggleSelectAll() {
	if m.view == nil {
		return
	}
	all := true
	for i := range m.view.Rows {
		if m.view.Rows[i].IsFile() && !m.view.Rows[i].Selected {
			all = false
			break
		}
	}
	listing.SetAllSelected(m.view.Rows, !all)
}

func (m *Model) currentFragment() string {
	if m.view == nil {
		return ""
	}
	return m.view.Fragment
}

func (m *Model) currentQuery() string {
	if m.view != nil && m.view.Kind == nav.ViewFullSearch {
		return m.view.Query
	}
	return ""
}
