package device

import "strings"

// Profiles. E-ink readers cannot materialize client-side archives and cannot
// reset scroll position programmatically; those limits are carried as
// capability flags so no component branches on device strings directly.
const (
	ProfileKobo   = "kobo"
	ProfileKindle = "kindle"
	ProfilePC     = "pc"
)

// Caps is the capability descriptor computed once at startup and passed as
// configuration to every component that needs it.
type Caps struct {
	Profile string
	// CanBundle reports whether the device can save a locally built archive.
	CanBundle bool
	// CanScrollTop reports whether the view can be scrolled to the top
	// programmatically. When false, a full reload is the only way to reset
	// the reading position.
	CanScrollTop bool
}

// Detect resolves a configured profile name plus an environment description
// into capabilities. profile "auto" classifies from the description; an
// unknown description falls back to the pc profile.
func Detect(profile, description string) Caps {
	p := strings.ToLower(strings.TrimSpace(profile))
	if p == "" || p == "auto" {
		p = classify(description)
	}
	switch p {
	case ProfileKobo:
		return Caps{Profile: ProfileKobo, CanBundle: false, CanScrollTop: true}
	case ProfileKindle:
		return Caps{Profile: ProfileKindle, CanBundle: false, CanScrollTop: false}
	default:
		return Caps{Profile: ProfilePC, CanBundle: true, CanScrollTop: true}
	}
}

// classify applies the same heuristics the library pages use: Kobo announces
// itself, Kindle does not and is identified by platform plus engine.
func classify(description string) string {
	if strings.Contains(description, "Kobo eReader") {
		return ProfileKobo
	}
	if strings.Contains(description, "Linux armv7l") && strings.Contains(description, "Safari") {
		return ProfileKindle
	}
	return ProfilePC
}
