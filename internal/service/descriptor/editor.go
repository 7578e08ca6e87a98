// Package descriptor reads and rewrites project version descriptors.
package descriptor

import (
	"context"
	"os"
	"path/filepath"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

// Editor mutates the version recorded in a project's build descriptors.
// Implementations must be all-or-nothing: SetVersion validates every
// descriptor before rewriting the first one, so a mismatch anywhere
// leaves the tree untouched.
type Editor interface {
	// Kind names the descriptor format ("maven", "gradle").
	Kind() string

	// ReadVersion returns the version recorded in the root descriptor.
	ReadVersion(ctx context.Context, dir string) (version.Version, error)

	// SetVersion rewrites every descriptor from the old version to the
	// new one. The current version must equal from in every module.
	SetVersion(ctx context.Context, dir string, from, to version.Version) error
}

// Detect returns the editor matching the descriptors present in dir.
func Detect(dir string) (Editor, error) {
	const op = "descriptor.Detect"

	if _, err := os.Stat(filepath.Join(dir, mavenDescriptor)); err == nil {
		return NewMavenEditor(), nil
	}
	if _, err := os.Stat(filepath.Join(dir, gradleDescriptor)); err == nil {
		return NewGradleEditor(), nil
	}
	return nil, errors.NotFound(op, "no supported version descriptor found (pom.xml, gradle.properties)")
}

// ForKind returns the editor with the given kind name, or Detect's result
// when kind is empty.
func ForKind(dir, kind string) (Editor, error) {
	const op = "descriptor.ForKind"

	switch kind {
	case "":
		return Detect(dir)
	case "maven":
		return NewMavenEditor(), nil
	case "gradle":
		return NewGradleEditor(), nil
	default:
		return nil, errors.Validation(op, "unsupported descriptor kind: "+kind)
	}
}
