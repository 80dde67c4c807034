package vpath

import (
	"net/url"
	"strings"
)

// Path is an ordered list of decoded directory-name segments identifying a
// location in the library hierarchy. The root is the empty path. A Path never
// contains "." or empty segments; ".." is resolved at construction time.
type Path []string

// wellKnownSuffixes are stripped from a raw link before tokenizing. Directory
// links from the server end in either form.
var wellKnownSuffixes = []string{"/index.html", "/"}

// Resolve converts a URI-escaped relative or absolute string into a Path,
// optionally seeded with base segments. ".." pops the previous segment and is
// a no-op at root. Percent-decoding failures are non-fatal: the raw token is
// kept as-is so a malformed link degrades to an odd name, not a broken
// navigator.
func Resolve(raw string, base Path) Path {
	path := make(Path, 0, len(base)+4)
	path = append(path, base...)
	for _, suffix := range wellKnownSuffixes {
		if strings.HasSuffix(raw, suffix) {
			raw = raw[:len(raw)-len(suffix)]
		}
	}
	if raw == "" {
		return path
	}
	for _, part := range strings.Split(raw, "/") {
		p := decodeToken(part)
		switch p {
		case "", ".":
			continue
		case "..":
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		default:
			path = append(path, p)
		}
	}
	return path
}

func decodeToken(tok string) string {
	dec, err := url.PathUnescape(tok)
	if err != nil {
		return tok
	}
	return dec
}

// Join renders the path with "/" separators, undecoded.
func (p Path) Join() string { return strings.Join(p, "/") }

// IsRoot reports whether p is the library root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Fragment renders p as a URL fragment. The root path renders as "" unless
// force is set, in which case it renders as "#" so activating a root link
// always changes the visible location.
func Fragment(p Path, force bool) string {
	if len(p) == 0 {
		if force {
			return "#"
		}
		return ""
	}
	enc := make([]string, len(p))
	for i, seg := range p {
		enc[i] = encodeSegment(seg)
	}
	return "#" + strings.Join(enc, "/")
}

// ListingURL builds the server path of the directory page for p under the
// given library prefix.
func ListingURL(p Path, prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if len(p) == 0 {
		return prefix + "/index.html"
	}
	enc := make([]string, len(p))
	for i, seg := range p {
		enc[i] = encodeSegment(seg)
	}
	return prefix + "/" + strings.Join(enc, "/") + "/index.html"
}

// encodeSegment percent-encodes one path segment, including "/" which
// url.PathEscape leaves alone.
func encodeSegment(seg string) string {
	return strings.ReplaceAll(url.PathEscape(seg), "/", "%2F")
}

// ResolveAbsolute resolves rel against base as a pure string transform.
// Absolute URLs pass through unchanged; root-relative URLs replace the path
// component of base; anything else is resolved against the directory of base.
func ResolveAbsolute(base, rel string) string {
	if strings.Contains(rel, "://") {
		return rel
	}
	if strings.HasPrefix(rel, "/") {
		proto := strings.Index(base, "://")
		if proto < 0 {
			return rel
		}
		pathPos := strings.Index(base[proto+3:], "/")
		if pathPos < 0 {
			return base + rel
		}
		return base[:proto+3+pathPos] + rel
	}
	proto := strings.Index(base, "://")
	last := strings.LastIndex(base, "/")
	if last < proto+3 {
		last = -1
	}
	if last == -1 {
		return base + "/" + rel
	}
	return base[:last] + "/" + rel
}
