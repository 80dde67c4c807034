package nav

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"shelfnav/internal/config"
	"shelfnav/internal/device"
	"shelfnav/internal/index"
	"shelfnav/internal/listing"
	"shelfnav/internal/logging"
	"shelfnav/internal/vpath"
)

// FullSearchToken is the reserved first path segment that switches the
// navigator into full-index search mode.
const FullSearchToken = "fullsearch"

// DefaultTitle is used at the library root when the config does not set one.
const DefaultTitle = "Book Library Viewer"

// ErrStale marks a navigation whose fetch resolved after a newer navigation
// had already been issued. Stale results are discarded instead of
// overwriting the newer view.
var ErrStale = errors.New("navigation superseded")

// ViewKind discriminates what a completed navigation produced.
type ViewKind int

const (
	ViewListing ViewKind = iota
	ViewFullSearch
)

// View is the outcome of one navigation.
type View struct {
	Kind     ViewKind
	Path     vpath.Path
	Fragment string // canonical fragment for this view
	Title    string

	// Listing mode.
	Rows       []listing.Row
	ListingURL string

	// Full-search mode.
	Query   string
	Entries []index.Entry
	Recent  bool // Entries is the recent-files default view

	// ScrollTop asks the renderer to reset the reading position. Reload
	// additionally asks for a full redraw, the workaround for devices that
	// cannot scroll programmatically.
	ScrollTop bool
	Reload    bool
}

// Fetcher is the slice of the library client the session needs.
type Fetcher interface {
	FetchListing(ctx context.Context, listingPath string) (string, error)
	FetchIndex(ctx context.Context) ([]byte, error)
}

// Session owns the navigator's state for one process run: the current
// virtual path, the lazily cached full index, and the device capabilities.
// It replaces the page-global state of the original viewer with one explicit
// object threaded through every operation.
type Session struct {
	cfg   *config.Config
	log   *logging.Logger
	caps  device.Caps
	fetch Fetcher
	now   func() time.Time

	mu       sync.Mutex
	path     vpath.Path
	fragment string
	idx      []index.Entry
	idxReady bool
	issued   uint64
}

func NewSession(cfg *config.Config, log *logging.Logger, caps device.Caps, fetch Fetcher) *Session {
	return &Session{cfg: cfg, log: log, caps: caps, fetch: fetch, now: time.Now}
}

// Caps returns the capability descriptor computed at startup.
func (s *Session) Caps() device.Caps { return s.caps }

// Path returns the current virtual path.
func (s *Session) Path() vpath.Path {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Navigate is the single entry point for every navigation trigger: link
// activation, fragment-change notification, and programmatic moves all
// converge here so they behave identically.
//
// A non-nil fragment re-resolves the current path from it (no base). The
// canonical fragment of the resolved path is recorded; an already canonical
// fragment does not produce a redundant update. forceTopScroll requests a
// reading-position reset, degraded to a full reload on devices that cannot
// scroll programmatically.
//
// Rapid successive navigations are not serialized; each call is tagged with
// a sequence number and a result older than the latest issued navigation is
// dropped with ErrStale rather than overwriting the newer view.
func (s *Session) Navigate(ctx context.Context, fragment *string, forceTopScroll bool) (*View, error) {
	s.mu.Lock()
	if fragment != nil {
		raw := strings.TrimPrefix(*fragment, "#")
		s.path = vpath.Resolve(raw, nil)
	}
	path := s.path
	s.issued++
	seq := s.issued
	s.mu.Unlock()

	view := &View{
		Path:      path,
		Fragment:  vpath.Fragment(path, false),
		ScrollTop: forceTopScroll,
		Reload:    forceTopScroll && !s.caps.CanScrollTop,
	}

	if len(path) > 0 && path[0] == FullSearchToken {
		if err := s.fullSearch(ctx, path, view); err != nil {
			return nil, err
		}
	} else if err := s.listing(ctx, path, view); err != nil {
		return nil, err
	}

	if !s.commit(seq, view) {
		s.log.Debugf("dropping stale navigation to %q", view.Fragment)
		return nil, ErrStale
	}
	return view, nil
}

// Up navigates one directory up, clamped at root.
func (s *Session) Up(ctx context.Context) (*View, error) {
	s.mu.Lock()
	s.path = vpath.Resolve("..", s.path)
	s.mu.Unlock()
	return s.Navigate(ctx, nil, true)
}

// Root navigates to the library root.
func (s *Session) Root(ctx context.Context) (*View, error) {
	frag := ""
	return s.Navigate(ctx, &frag, true)
}

// Search navigates into full-index search for the given query.
func (s *Session) Search(ctx context.Context, query string) (*View, error) {
	frag := "#" + FullSearchToken + "/" + query
	return s.Navigate(ctx, &frag, false)
}

func (s *Session) listing(ctx context.Context, path vpath.Path, view *View) error {
	listingPath := vpath.ListingURL(path, s.cfg.Server.LibraryPrefix)
	html, err := s.fetch.FetchListing(ctx, listingPath)
	if err != nil {
		return err
	}
	rows, err := listing.Parse(html, path, listingPath)
	if err != nil {
		return err
	}
	view.Kind = ViewListing
	view.Rows = rows
	view.ListingURL = listingPath
	view.Title = s.title(path)
	return nil
}

func (s *Session) fullSearch(ctx context.Context, path vpath.Path, view *View) error {
	entries, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	query := index.Normalize(path[1:].Join())
	view.Kind = ViewFullSearch
	view.Query = query
	if query == "" {
		view.Recent = true
		view.Entries = index.Recent(entries, s.now())
		view.Title = "Recent Books - " + s.defaultTitle()
		return nil
	}
	view.Entries = index.Search(entries, query)
	view.Title = "Search: " + query + " - " + s.defaultTitle()
	return nil
}

// loadIndex fetches the whole-library index at most once per session. The
// cache is never invalidated or refreshed within a session; a failed fetch
// is not cached so a later search can retry.
func (s *Session) loadIndex(ctx context.Context) ([]index.Entry, error) {
	s.mu.Lock()
	if s.idxReady {
		entries := s.idx
		s.mu.Unlock()
		return entries, nil
	}
	s.mu.Unlock()

	raw, err := s.fetch.FetchIndex(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := index.Decode(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.idxReady {
		s.idx = entries
		s.idxReady = true
	}
	return s.idx, nil
}

// commit applies a finished navigation unless a newer one has been issued
// since. It also records the canonical fragment, skipping the update when it
// is already current.
func (s *Session) commit(seq uint64, view *View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.issued {
		return false
	}
	s.path = view.Path
	if view.Fragment != s.fragment {
		s.fragment = view.Fragment
	}
	return true
}

func (s *Session) defaultTitle() string {
	if t := s.cfg.UI.DefaultTitle; t != "" {
		return t
	}
	return DefaultTitle
}

func (s *Session) title(path vpath.Path) string {
	if path.IsRoot() {
		return s.defaultTitle()
	}
	return path.Join() + " - " + s.defaultTitle()
}
