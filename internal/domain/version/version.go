// Package version provides domain types for Gitflow artifact versions.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SnapshotSuffix marks an in-progress, unreleased build. It is removed
// when a release or hotfix branch is finished.
const SnapshotSuffix = "-SNAPSHOT"

// Version is a value object representing an artifact version of the form
// major.minor.patch[.hotfix][-SNAPSHOT].
// Immutable; all operations return new instances.
type Version struct {
	major    uint64
	minor    uint64
	patch    uint64
	hotfix   uint64 // 0 means no hotfix component; >= 1 when present
	snapshot bool
}

var (
	// releaseRegex validates three-component release versions.
	releaseRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-SNAPSHOT)?$`)

	// hotfixRegex validates three- or four-component hotfix versions.
	hotfixRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:\.(\d+))?(-SNAPSHOT)?$`)

	// Zero is the zero version (0.0.0).
	Zero = Version{}
)

// New creates a new release-lineage Version.
func New(major, minor, patch uint64) Version {
	return Version{
		major: major,
		minor: minor,
		patch: patch,
	}
}

// ParseRelease parses a release version string. Release lineages use the
// strict three-component form; a string carrying a hotfix component is
// rejected here even though it is valid for hotfix lineages.
func ParseRelease(s string) (Version, error) {
	matches := releaseRegex.FindStringSubmatch(s)
	if matches == nil {
		return Zero, fmt.Errorf("invalid release version: %q", s)
	}

	v, err := parseComponents(matches[1], matches[2], matches[3], "")
	if err != nil {
		return Zero, err
	}
	v.snapshot = matches[4] != ""
	return v, nil
}

// ParseHotfix parses a hotfix version string. Hotfix lineages admit both
// the three-component form (a freshly branched hotfix) and the
// four-component form with a hotfix counter >= 1.
func ParseHotfix(s string) (Version, error) {
	matches := hotfixRegex.FindStringSubmatch(s)
	if matches == nil {
		return Zero, fmt.Errorf("invalid hotfix version: %q", s)
	}

	v, err := parseComponents(matches[1], matches[2], matches[3], matches[4])
	if err != nil {
		return Zero, err
	}
	v.snapshot = matches[5] != ""
	return v, nil
}

// MustParseRelease parses a release version string and panics if invalid.
// Use only for known-good version strings.
func MustParseRelease(s string) Version {
	v, err := ParseRelease(s)
	if err != nil {
		panic(err)
	}
	return v
}

// MustParseHotfix parses a hotfix version string and panics if invalid.
func MustParseHotfix(s string) Version {
	v, err := ParseHotfix(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponents(major, minor, patch, hotfix string) (Version, error) {
	ma, err := strconv.ParseUint(major, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("invalid major version: %w", err)
	}

	mi, err := strconv.ParseUint(minor, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("invalid minor version: %w", err)
	}

	pa, err := strconv.ParseUint(patch, 10, 64)
	if err != nil {
		return Zero, fmt.Errorf("invalid patch version: %w", err)
	}

	var hf uint64
	if hotfix != "" {
		hf, err = strconv.ParseUint(hotfix, 10, 64)
		if err != nil {
			return Zero, fmt.Errorf("invalid hotfix component: %w", err)
		}
		if hf == 0 {
			return Zero, fmt.Errorf("hotfix component must be >= 1, got 0")
		}
	}

	return Version{major: ma, minor: mi, patch: pa, hotfix: hf}, nil
}

// Major returns the major version component.
func (v Version) Major() uint64 {
	return v.major
}

// Minor returns the minor version component.
func (v Version) Minor() uint64 {
	return v.minor
}

// Patch returns the patch version component.
func (v Version) Patch() uint64 {
	return v.patch
}

// Hotfix returns the hotfix counter, or 0 if absent.
func (v Version) Hotfix() uint64 {
	return v.hotfix
}

// HasHotfix returns true if the version carries a hotfix component.
func (v Version) HasHotfix() bool {
	return v.hotfix > 0
}

// IsSnapshot returns true if this is an in-progress snapshot version.
func (v Version) IsSnapshot() bool {
	return v.snapshot
}

// IsZero returns true if this is the zero version.
func (v Version) IsZero() bool {
	return v == Zero
}

// String returns the canonical string form
// major.minor.patch[.hotfix][-SNAPSHOT].
func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)

	if v.hotfix > 0 {
		fmt.Fprintf(&sb, ".%d", v.hotfix)
	}

	if v.snapshot {
		sb.WriteString(SnapshotSuffix)
	}

	return sb.String()
}

// WithSnapshot returns a new version carrying the snapshot suffix.
func (v Version) WithSnapshot() Version {
	v.snapshot = true
	return v
}

// WithoutSnapshot returns a new version without the snapshot suffix.
func (v Version) WithoutSnapshot() Version {
	v.snapshot = false
	return v
}

// NextHotfix returns a new version with the hotfix counter incremented,
// starting at 1 when the component is absent. The snapshot flag is
// cleared; callers seeding a working branch re-add it.
func (v Version) NextHotfix() Version {
	v.hotfix++
	v.snapshot = false
	return v
}

// PreviousHotfix returns the version this hotfix was cut from: the hotfix
// counter is decremented, dropping the component entirely at 1. Calling it
// on a version without a hotfix component returns the version unchanged.
func (v Version) PreviousHotfix() Version {
	if v.hotfix > 0 {
		v.hotfix--
	}
	v.snapshot = false
	return v
}

// Compare compares two versions. Returns -1 if v < other, 0 if equal,
// 1 if v > other. An absent hotfix component sorts before hotfix 1, and a
// snapshot sorts before its released counterpart.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.major, other.major); c != 0 {
		return c
	}
	if c := compareUint(v.minor, other.minor); c != 0 {
		return c
	}
	if c := compareUint(v.patch, other.patch); c != 0 {
		return c
	}
	if c := compareUint(v.hotfix, other.hotfix); c != 0 {
		return c
	}
	if v.snapshot == other.snapshot {
		return 0
	}
	if v.snapshot {
		return -1
	}
	return 1
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// Equal returns true if two versions are equal.
func (v Version) Equal(other Version) bool {
	return v == other
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
