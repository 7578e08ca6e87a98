// Package version provides domain types for Gitflow artifact versions.
package version

import (
	"fmt"
)

// Field identifies the version component to increment.
type Field string

const (
	// FieldMajor indicates a major increment (breaking changes).
	FieldMajor Field = "major"
	// FieldMinor indicates a minor increment (new features).
	FieldMinor Field = "minor"
	// FieldPatch indicates a patch increment (bug fixes).
	FieldPatch Field = "patch"
)

// IsValid returns true if the field is valid.
func (f Field) IsValid() bool {
	switch f {
	case FieldMajor, FieldMinor, FieldPatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the field.
func (f Field) String() string {
	return string(f)
}

// ParseField parses a string into a Field.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid version field: %q (must be major, minor, or patch)", s)
	}
	return f, nil
}

// Increment returns a new version with the given field incremented and
// every less-significant field reset to zero. Incrementing major resets
// minor, patch and hotfix; minor resets patch and hotfix; patch resets
// hotfix only. The snapshot flag is cleared; callers computing the next
// development version re-add it.
func (v Version) Increment(f Field) (Version, error) {
	switch f {
	case FieldMajor:
		return Version{major: v.major + 1}, nil
	case FieldMinor:
		return Version{major: v.major, minor: v.minor + 1}, nil
	case FieldPatch:
		return Version{major: v.major, minor: v.minor, patch: v.patch + 1}, nil
	default:
		return Zero, fmt.Errorf("invalid version field: %q", f)
	}
}

// MustIncrement increments the given field and panics on an invalid field.
// Use only with the Field constants.
func (v Version) MustIncrement(f Field) Version {
	next, err := v.Increment(f)
	if err != nil {
		panic(err)
	}
	return next
}
