package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"shelfnav/internal/bundle"
	"shelfnav/internal/listing"
)

// bundleTitle names the archive after the current listing, like the page
// title the batch download is labeled with.
func (m *Model) bundleTitle() string {
	p := m.session.Path()
	if p.IsRoot() {
		return "library"
	}
	return p[len(p)-1]
}

func (m *Model) startBundle() (tea.Model, tea.Cmd) {
	if m.view == nil || m.mode != modeListing {
		return m, nil
	}
	if !m.session.Caps().CanBundle {
		m.status = "bundling is not supported on this device"
		return m, nil
	}
	if m.bundler.Busy() {
		m.status = "a bundle is already in progress"
		return m, nil
	}
	rows := listing.SelectedFiles(m.view.Rows)
	if len(rows) == 0 {
		m.status = "nothing to bundle here"
		return m, nil
	}

	title := m.bundleTitle()
	archive := sanitizeFilename(title) + ".zip"
	ch := make(chan bundle.Progress, 16)
	m.mode = modeBundling
	m.bundleEvents = ch
	m.bundleLines = nil
	m.bundlePct = 0
	m.status = ""

	run := func() tea.Msg {
		f, err := os.Create(archive)
		if err != nil {
			close(ch)
			return bundleDoneMsg{err: err}
		}
		res, err := m.bundler.Bundle(context.Background(), title, rows, f, func(p bundle.Progress) {
			ch <- p
		})
		cerr := f.Close()
		close(ch)
		if err == nil {
			err = cerr
		}
		return bundleDoneMsg{res: res, archive: archive, err: err}
	}
	return m, tea.Batch(run, m.waitBundleEventCmd())
}

func (m *Model) waitBundleEventCmd() tea.Cmd {
	ch := m.bundleEvents
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return nil
		}
		return bundleEventMsg{p: p}
	}
}

func (m *Model) onBundleEvent(p bundle.Progress) {
	switch p.Stage {
	case bundle.StageFetching:
		if p.Err != nil {
			m.bundleLines = append(m.bundleLines,
				m.th.failed.Render(fmt.Sprintf("FAILED %s: %v", p.File, p.Err)))
		} else {
			m.bundleLines = append(m.bundleLines,
				fmt.Sprintf("fetched %s (%d/%d)", p.File, p.Done, p.Total))
		}
	case bundle.StageArchiving:
		m.bundlePct = p.Percent
		m.status = fmt.Sprintf("creating archive... %.1f%% (%s)", p.Percent, p.File)
	case bundle.StageDone:
		m.bundlePct = 100
	}
}

func (m *Model) onBundleDone(msg bundleDoneMsg) (tea.Model, tea.Cmd) {
	m.mode = modeListing
	m.bundleEvents = nil
	if msg.err != nil {
		m.status = "bundle failed: " + msg.err.Error()
		return m, nil
	}
	var size string
	if fi, err := os.Stat(msg.archive); err == nil {
		size = ", " + humanize.Bytes(uint64(fi.Size()))
	}
	if msg.res != nil && msg.res.Failed > 0 {
		m.status = fmt.Sprintf("saved %s (%d files, %d failed%s)", msg.archive, msg.res.Archived, msg.res.Failed, size)
	} else if msg.res != nil {
		m.status = fmt.Sprintf("saved %s (%d files%s)", msg.archive, msg.res.Archived, size)
	} else {
		m.status = "saved " + msg.archive
	}
	return m, nil
}

// sanitizeFilename keeps archive names filesystem-safe without renaming the
// archive's inner folder.
func sanitizeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return r.Replace(name)
}
