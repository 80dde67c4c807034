package vpath

import (
	"reflect"
	"strings"
	"testing"
)

func TestResolve_Basic(t *testing.T) {
	cases := []struct {
		raw  string
		base Path
		want Path
	}{
		{"", nil, Path{}},
		{"a/b", nil, Path{"a", "b"}},
		{"a/./b/../c", nil, Path{"a", "c"}},
		{"..", Path{"a", "b"}, Path{"a"}},
		{"..", Path{}, Path{}},
		{"../..", Path{"a"}, Path{}},
		{"sub/", Path{"a"}, Path{"a", "sub"}},
		{"sub/index.html", Path{"a"}, Path{"a", "sub"}},
		{"/index.html", nil, Path{}},
		{"%E6%9B%B8%E5%BA%AB/x", nil, Path{"書庫", "x"}},
	}
	for _, c := range cases {
		got := Resolve(c.raw, c.base)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("Resolve(%q, %v) = %v, want %v", c.raw, c.base, got, c.want)
		}
	}
}

func TestResolve_BaseNotMutated(t *testing.T) {
	base := Path{"a", "b"}
	_ = Resolve("../c", base)
	if !reflect.DeepEqual(base, Path{"a", "b"}) {
		t.Fatalf("base mutated: %v", base)
	}
}

func TestResolve_MalformedEscapeKeptRaw(t *testing.T) {
	got := Resolve("a/%zz", nil)
	want := Path{"a", "%zz"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFragment(t *testing.T) {
	if got := Fragment(Path{}, false); got != "" {
		t.Errorf("root fragment = %q, want empty", got)
	}
	if got := Fragment(Path{}, true); got != "#" {
		t.Errorf("forced root fragment = %q, want #", got)
	}
	if got := Fragment(Path{"a b", "c"}, false); got != "#a%20b/c" {
		t.Errorf("fragment = %q", got)
	}
}

func TestFragment_RoundTrip(t *testing.T) {
	paths := []Path{
		{},
		{"a"},
		{"a", "b c"},
		{"日本語", "テスト(1)"},
		{"with/slash"},
		{"100% done"},
	}
	for _, p := range paths {
		frag := Fragment(p, false)
		frag = strings.TrimPrefix(frag, "#")
		got := Resolve(frag, nil)
		if !reflect.DeepEqual(got, p) {
			t.Errorf("round trip of %v via %q = %v", p, frag, got)
		}
	}
}

func TestListingURL(t *testing.T) {
	const prefix = "/rpc/cat/scan/epub"
	if got := ListingURL(Path{}, prefix); got != "/rpc/cat/scan/epub/index.html" {
		t.Errorf("root listing url = %q", got)
	}
	got := ListingURL(Path{"a b", "c"}, prefix)
	if got != "/rpc/cat/scan/epub/a%20b/c/index.html" {
		t.Errorf("listing url = %q", got)
	}
}

func TestResolveAbsolute(t *testing.T) {
	cases := []struct {
		base, rel, want string
	}{
		{"http://host/lib/index.html", "book.epub", "http://host/lib/book.epub"},
		{"http://host/lib/index.html", "/other/x", "http://host/other/x"},
		{"http://host/lib/index.html", "http://else/y", "http://else/y"},
		{"http://host", "/abs", "http://host/abs"},
		{"noproto", "/abs", "/abs"},
	}
	for _, c := range cases {
		if got := ResolveAbsolute(c.base, c.rel); got != c.want {
			t.Errorf("ResolveAbsolute(%q, %q) = %q, want %q", c.base, c.rel, got, c.want)
		}
	}
}
