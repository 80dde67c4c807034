package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"golang.org/x/sync/errgroup"

	"shelfnav/internal/listing"
	"shelfnav/internal/logging"
)

// ErrBusy is returned when a bundling operation is triggered while another
// one is still running. The trigger re-arms only once the current operation
// has settled; concurrent bundles are disallowed by design.
var ErrBusy = errors.New("bundling already in progress")

// ErrNoFiles is returned when there is nothing downloadable to bundle.
var ErrNoFiles = errors.New("no files to bundle")

// Stage tags a progress notification.
type Stage int

const (
	StageFetching Stage = iota
	StageArchiving
	StageDone
)

// Progress is one incremental feedback event: a settled per-file fetch
// during StageFetching, or coarse archive build progress (percent, current
// file) during StageArchiving.
type Progress struct {
	Stage   Stage
	File    string
	Err     error // settled fetch failure, nil on success
	Done    int
	Total   int
	Percent float64
}

// FileResult records the outcome of one per-file fetch.
type FileResult struct {
	Name  string
	URL   string
	Bytes int64
	Err   error
}

// Result summarizes one bundling operation. The archive contains only the
// successfully fetched files; failures are listed, not fatal.
type Result struct {
	Files    []FileResult
	Archived int
	Failed   int
}

// Fetcher is the slice of the library client bundling needs.
type Fetcher interface {
	FetchFile(ctx context.Context, fileURL string) ([]byte, error)
}

// Bundler fetches a selection of file rows concurrently and packages the
// successes into a single zip archive.
type Bundler struct {
	fetch Fetcher
	log   *logging.Logger
	limit int

	mu   sync.Mutex
	busy bool
}

// New builds a Bundler keeping at most limit fetches in flight; limit <= 0
// picks a conservative default.
func New(fetch Fetcher, log *logging.Logger, limit int) *Bundler {
	if limit <= 0 {
		limit = 4
	}
	return &Bundler{fetch: fetch, log: log, limit: limit}
}

// Busy reports whether a bundling operation is in flight.
func (b *Bundler) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy
}

// Bundle fetches every row concurrently, waits for all fetches to settle,
// then writes a zip archive of the successes to w, with entries under a
// folder named after title. notify, when non-nil, receives incremental
// progress; it is called from the goroutine running Bundle, after the
// fetch fan-out has joined or between archive entries.
//
// One failed fetch never aborts the batch; it is reported and excluded from
// the archive. An archive write error is terminal for the operation but the
// per-file results remain in the returned Result.
func (b *Bundler) Bundle(ctx context.Context, title string, rows []*listing.Row, w io.Writer, notify func(Progress)) (*Result, error) {
	b.mu.Lock()
	if b.busy {
		b.mu.Unlock()
		return nil, ErrBusy
	}
	b.busy = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.busy = false
		b.mu.Unlock()
	}()

	if len(rows) == 0 {
		return nil, ErrNoFiles
	}
	if notify == nil {
		notify = func(Progress) {}
	}

	// Fan out the fetches. Failures are carried as values so one bad file
	// cannot cancel its siblings; the only join point is Wait.
	results := make([]FileResult, len(rows))
	payloads := make([][]byte, len(rows))
	var settled sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			data, err := b.fetch.FetchFile(gctx, row.URL)
			results[i] = FileResult{Name: row.Name, URL: row.URL, Bytes: int64(len(data)), Err: err}
			payloads[i] = data
			if err != nil {
				b.log.Warnf("bundle fetch failed: %s: %v", row.Name, err)
			}
			settled.Lock()
			done++
			notify(Progress{Stage: StageFetching, File: row.Name, Err: err, Done: done, Total: len(rows)})
			settled.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res := &Result{Files: results}
	for _, r := range results {
		if r.Err != nil {
			res.Failed++
		}
	}

	// Build the archive from the successes only.
	zw := zip.NewWriter(w)
	total := len(rows) - res.Failed
	for i, row := range rows {
		if results[i].Err != nil {
			continue
		}
		entry := title + "/" + entryName(row)
		notify(Progress{
			Stage:   StageArchiving,
			File:    row.Name,
			Done:    res.Archived,
			Total:   total,
			Percent: percent(res.Archived, total),
		})
		f, err := zw.Create(entry)
		if err != nil {
			return res, fmt.Errorf("create archive entry %s: %w", entry, err)
		}
		if _, err := f.Write(payloads[i]); err != nil {
			return res, fmt.Errorf("write archive entry %s: %w", entry, err)
		}
		res.Archived++
	}
	if err := zw.Close(); err != nil {
		return res, fmt.Errorf("finalize archive: %w", err)
	}
	notify(Progress{Stage: StageDone, Done: res.Archived, Total: total, Percent: 100})
	return res, nil
}

// entryName keeps the row's display name, carrying over the extension of the
// served file so the entry stays openable.
func entryName(row *listing.Row) string {
	ext := path.Ext(row.Link)
	if ext == "" || len(ext) > 10 {
		return row.Name
	}
	return row.Name + ext
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}
