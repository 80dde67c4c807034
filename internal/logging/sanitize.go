package logging

import (
	"net/url"
	"strings"
)

// SanitizeURL removes userinfo, query, and fragment for logging to avoid
// leaking secrets. Scheme, host, and path are preserved.
func SanitizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// SanitizeForm redacts credential values in a form body before it is logged.
// The login endpoint takes user/password pairs; the password must never reach
// a log line.
func SanitizeForm(body string) string {
	vals, err := url.ParseQuery(body)
	if err != nil {
		return "[unparseable form]"
	}
	for key := range vals {
		switch strings.ToLower(key) {
		case "password", "passwd", "pass":
			vals.Set(key, "[redacted]")
		}
	}
	return vals.Encode()
}
