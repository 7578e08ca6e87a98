package descriptor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

const gradleDescriptor = "gradle.properties"

// The trailing match is restricted to spaces and tabs so the line's
// newline survives the rewrite.
var gradleVersionLine = regexp.MustCompile(`(?m)^(version[ \t]*=[ \t]*)(\S+)[ \t]*$`)

// GradleEditor edits the version property in gradle.properties. Gradle
// multi-project builds share one root properties file, so only the root
// descriptor is touched.
type GradleEditor struct{}

// NewGradleEditor creates a Gradle descriptor editor.
func NewGradleEditor() *GradleEditor {
	return &GradleEditor{}
}

// Kind returns "gradle".
func (e *GradleEditor) Kind() string { return "gradle" }

// ReadVersion returns the version property from gradle.properties.
func (e *GradleEditor) ReadVersion(_ context.Context, dir string) (version.Version, error) {
	const op = "descriptor.GradleEditor.ReadVersion"

	path := filepath.Join(dir, gradleDescriptor)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return version.Version{}, errors.NotFound(op, fmt.Sprintf("descriptor %s not found", path))
		}
		return version.Version{}, errors.DescriptorWrap(err, op, fmt.Sprintf("failed to read %s", path))
	}

	match := gradleVersionLine.FindSubmatch(data)
	if match == nil {
		return version.Version{}, errors.Descriptor(op, "gradle.properties declares no version property")
	}

	v, err := version.ParseHotfix(string(match[2]))
	if err != nil {
		return version.Version{}, errors.DescriptorWrap(err, op,
			fmt.Sprintf("gradle.properties version %q is not a supported version", match[2]))
	}
	return v, nil
}

// SetVersion rewrites the version property from the old version to the
// new one.
func (e *GradleEditor) SetVersion(ctx context.Context, dir string, from, to version.Version) error {
	const op = "descriptor.GradleEditor.SetVersion"

	current, err := e.ReadVersion(ctx, dir)
	if err != nil {
		return err
	}
	if !current.Equal(from) {
		return errors.Descriptor(op,
			fmt.Sprintf("gradle.properties holds version %s, expected %s", current, from))
	}

	path := filepath.Join(dir, gradleDescriptor)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to read %s", path))
	}

	updated := gradleVersionLine.ReplaceAll(data, []byte("${1}"+to.String()))

	info, err := os.Stat(path)
	if err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to stat %s", path))
	}
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to write %s", path))
	}
	return nil
}
