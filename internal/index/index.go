package index

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// RecentWindow is how far back the default "recent files" view reaches,
// measured from the newest entry's timestamp.
const RecentWindow = 30 * 24 * time.Hour

// Entry is one file of the whole-library index. The index resource is an
// array ordered by mtime descending; it is decoded once per session and
// never mutated afterwards.
type Entry struct {
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Mtime    int64    `json:"mtime"`
	Filename string   `json:"filename"`
	Terms    []string `json:"index"`
}

// Decode parses the raw JSON index resource.
func Decode(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DisplayName renders an entry the way listing rows are named.
func (e Entry) DisplayName() string {
	if e.Author != "" {
		return "[" + e.Author + "] " + e.Title
	}
	return e.Title
}

// FileURL builds the server path of the entry's download under the library
// prefix. The index stores source archives; the reader-facing format is
// mobi, so a trailing .zip is rewritten.
func (e Entry) FileURL(prefix string) string {
	parts := strings.Split(e.Filename, "/")
	enc := make([]string, len(parts))
	for i, p := range parts {
		enc[i] = url.PathEscape(p)
	}
	u := strings.TrimSuffix(prefix, "/") + "/" + strings.Join(enc, "/")
	if strings.HasSuffix(u, ".zip") {
		u = strings.TrimSuffix(u, ".zip") + ".mobi"
	}
	return u
}

// matches reports whether the entry's title, author, or any indexed term
// contains the query as a substring. Case-sensitive and diacritic-naive,
// matching the index's contract.
func (e Entry) matches(query string) bool {
	if strings.Contains(e.Title, query) {
		return true
	}
	if e.Author != "" && strings.Contains(e.Author, query) {
		return true
	}
	for _, term := range e.Terms {
		if strings.Contains(term, query) {
			return true
		}
	}
	return false
}

// Normalize treats a whitespace-only query as empty.
func Normalize(query string) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	return query
}

// Search returns the entries matching a non-empty query in the index's
// native (mtime-descending) order. No additional sort is applied.
func Search(entries []Entry, query string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.matches(query) {
			out = append(out, e)
		}
	}
	return out
}

// Recent returns the default view for an empty query: entries within the
// recency window measured backward from the newest entry. An empty index
// measures the window from now instead and trivially yields nothing.
// Entries are mtime-descending, so the scan stops at the first stale one.
func Recent(entries []Entry, now time.Time) []Entry {
	var cutoff int64
	if len(entries) > 0 {
		cutoff = entries[0].Mtime - int64(RecentWindow/time.Second)
	} else {
		cutoff = now.Add(-RecentWindow).Unix()
	}
	var out []Entry
	for _, e := range entries {
		if e.Mtime < cutoff {
			break
		}
		out = append(out, e)
	}
	return out
}
