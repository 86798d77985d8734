package domain

import (
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

// MinCancellationVersion is the first toolchain version supporting cooperative cancellation.
const MinCancellationVersion = "2.3.0-Beta2"

// Generation identifies a family of toolchain versions sharing one capability set.
type Generation string

const (
	// GenerationLegacy covers toolchains without cooperative cancellation.
	GenerationLegacy Generation = "legacy"
	// GenerationCurrent covers toolchains supporting cooperative cancellation.
	GenerationCurrent Generation = "current"
)

// Capabilities describes what a loaded toolchain supports.
type Capabilities struct {
	Generation   Generation
	Cancellation bool
}

// ToolchainVersion is a toolchain version as declared by its artifact manifest.
type ToolchainVersion struct {
	raw       string
	canonical string
}

// ParseToolchainVersion parses a version such as "2.3.0", "v2.2.21" or "2.3.0-Beta2".
func ParseToolchainVersion(raw string) (ToolchainVersion, error) {
	v := toSemver(raw)
	if !semver.IsValid(v) {
		return ToolchainVersion{}, zerr.With(ErrInvalidToolchainVersion, "version", raw)
	}
	return ToolchainVersion{raw: raw, canonical: semver.Canonical(v)}, nil
}

// String returns the version as declared.
func (v ToolchainVersion) String() string {
	return v.raw
}

// Compare returns -1, 0 or +1 depending on whether v is lower, equal or higher than other.
func (v ToolchainVersion) Compare(other ToolchainVersion) int {
	return semver.Compare(v.canonical, other.canonical)
}

// AtLeast reports whether v is greater than or equal to the given version.
// An unparsable threshold is never met.
func (v ToolchainVersion) AtLeast(threshold string) bool {
	t := toSemver(threshold)
	if !semver.IsValid(t) {
		return false
	}
	return semver.Compare(v.canonical, semver.Canonical(t)) >= 0
}

// Capabilities derives the capability set of the version.
func (v ToolchainVersion) Capabilities() Capabilities {
	if v.AtLeast(MinCancellationVersion) {
		return Capabilities{Generation: GenerationCurrent, Cancellation: true}
	}
	return Capabilities{Generation: GenerationLegacy}
}

// toSemver normalizes a toolchain version to the "vMAJOR.MINOR.PATCH[-pre]" form
// understood by semver. Pre-release identifiers are lower-cased so that
// "Beta2" orders after "Beta1" and before the release.
func toSemver(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		v = v[:i] + strings.ToLower(v[i:])
	}
	return v
}
