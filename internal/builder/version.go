package builder

import (
	"strings"
	"time"
)

// Kind classifies a requested version string. Stable releases are
// tagged with a leading "v" (v10.9.0), release candidates carry "rc",
// anything else (dated strings, "master") is unstable.
type Kind int

const (
	Unstable Kind = iota
	Stable
	Preview
)

func (k Kind) String() string {
	switch k {
	case Stable:
		return "stable"
	case Preview:
		return "preview"
	default:
		return "unstable"
	}
}

// Classify determines the release kind and returns the version with
// any leading "v" stripped.
func Classify(version string) (Kind, string) {
	kind := Unstable
	switch {
	case strings.Contains(version, "rc"):
		kind = Preview
	case strings.Contains(version, "v"):
		kind = Stable
	}
	return kind, strings.ReplaceAll(version, "v", "")
}

// Normalize autocorrects "auto" and "master" to a date-to-the-hour
// version string.
func Normalize(version string, now time.Time) string {
	if version == "auto" || version == "master" {
		return now.Format("2006010215")
	}
	return version
}
