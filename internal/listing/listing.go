package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"shelfnav/internal/vpath"
)

// Kind classifies a row by its link shape.
type Kind int

const (
	KindDirectory Kind = iota
	KindEpub
	KindMobi
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "dir"
	case KindEpub:
		return "epub"
	case KindMobi:
		return "mobi"
	default:
		return "file"
	}
}

// Row is one entry of a rendered directory listing. Rows are created fresh on
// every parse and not mutated afterwards, except for the transient view flags
// at the bottom, which are display state only.
type Row struct {
	NameIndex int    // 1-based document order, default sort key
	Name      string // display text of the anchor
	Title     string
	Author    string
	Ruby      string // optional phonetic annotation, used by the live filter
	Link      string // raw href as served
	Date      int64  // unix seconds; 0 when absent or unparseable
	Kind      Kind

	// Navigation targets. Directory rows carry the resolved path and its
	// forced fragment; file rows carry the absolute download URL.
	Path     vpath.Path
	Fragment string
	URL      string

	// Transient view flags.
	Filtered   bool
	Selected   bool
	Downloaded bool
}

// IsDirectory reports whether the row navigates deeper instead of
// downloading.
func (r *Row) IsDirectory() bool { return r.Kind == KindDirectory }

// IsFile reports whether the row is downloadable.
func (r *Row) IsFile() bool { return r.Kind != KindDirectory }

// authorTitleRe splits "[Author] Title (suffix)" display names. Names that do
// not match keep the full text as title with an empty author.
var authorTitleRe = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*?)\s*(?:\(\d+\))?$`)

var (
	lineBreaks  = strings.NewReplacer("\r", "", "\n", "")
	bodyOpenRe  = regexp.MustCompile(`^.*<body>`)
	bodyCloseRe = regexp.MustCompile(`</body>.*$`)
)

// Parse turns the raw HTML of a directory page into rows, in document order.
// base is the virtual path the page was fetched for; listingURL the URL it
// was fetched from, used to absolutize file links. Some readers' engines
// choke on full documents, so the text is stripped to the body region before
// parsing. Malformed entries never fail the whole listing: bad dates become
// zero, unmatched names become plain titles.
func Parse(htmlText string, base vpath.Path, listingURL string) ([]Row, error) {
	text := lineBreaks.Replace(htmlText)
	text = bodyOpenRe.ReplaceAllString(text, "")
	text = bodyCloseRe.ReplaceAllString(text, "")

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return nil, err
	}

	var rows []Row
	nameIndex := 1
	var walk func(n *html.Node, inList bool)
	walk = func(n *html.Node, inList bool) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "li":
				inList = true
			case "a":
				if inList {
					rows = append(rows, buildRow(n, nameIndex, base, listingURL))
					nameIndex++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inList)
		}
	}
	walk(doc, false)
	return rows, nil
}

func buildRow(a *html.Node, nameIndex int, base vpath.Path, listingURL string) Row {
	row := Row{
		NameIndex: nameIndex,
		Name:      nodeText(a),
		Link:      attr(a, "href"),
		Ruby:      attr(a, "ruby"),
	}
	row.Title = row.Name
	if m := authorTitleRe.FindStringSubmatch(row.Name); m != nil {
		row.Author = m[1]
		row.Title = m[2]
	}
	if d, err := strconv.ParseInt(attr(a, "bookdate"), 10, 64); err == nil {
		row.Date = d
	}
	if strings.HasSuffix(row.Link, "/") || strings.HasSuffix(row.Link, "/index.html") {
		row.Kind = KindDirectory
		row.Path = vpath.Resolve(row.Link, base)
		row.Fragment = vpath.Fragment(row.Path, true)
		return row
	}
	switch {
	case strings.HasSuffix(row.Link, ".epub"):
		row.Kind = KindEpub
	case strings.HasSuffix(row.Link, ".mobi"):
		row.Kind = KindMobi
	default:
		row.Kind = KindOther
	}
	row.URL = vpath.ResolveAbsolute(listingURL, row.Link)
	return row
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// FormatDate renders a unix timestamp the way the listing pages do.
func FormatDate(unix int64) string {
	if unix == 0 {
		return ""
	}
	return time.Unix(unix, 0).Format("2006-01-02 03:04:05")
}
