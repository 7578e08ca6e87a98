package descriptor

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

const mavenDescriptor = "pom.xml"

// pomFile is the subset of a POM needed for version handling.
type pomFile struct {
	XMLName xml.Name `xml:"project"`
	Version string   `xml:"version"`
	Parent  struct {
		Version string `xml:"version"`
	} `xml:"parent"`
	Modules struct {
		Module []string `xml:"module"`
	} `xml:"modules"`
}

// MavenEditor edits pom.xml descriptors, following <modules> declarations
// into a multi-module tree.
type MavenEditor struct{}

// NewMavenEditor creates a Maven descriptor editor.
func NewMavenEditor() *MavenEditor {
	return &MavenEditor{}
}

// Kind returns "maven".
func (e *MavenEditor) Kind() string { return "maven" }

// ReadVersion returns the version of the root pom. A pom without its own
// version element inherits the parent version.
func (e *MavenEditor) ReadVersion(_ context.Context, dir string) (version.Version, error) {
	const op = "descriptor.MavenEditor.ReadVersion"

	pom, err := readPom(filepath.Join(dir, mavenDescriptor))
	if err != nil {
		return version.Version{}, err
	}

	raw := pom.Version
	if raw == "" {
		raw = pom.Parent.Version
	}
	if raw == "" {
		return version.Version{}, errors.Descriptor(op, "pom.xml declares no version")
	}

	v, err := version.ParseHotfix(raw)
	if err != nil {
		return version.Version{}, errors.DescriptorWrap(err, op,
			fmt.Sprintf("pom.xml version %q is not a supported version", raw))
	}
	return v, nil
}

// SetVersion rewrites the version in the root pom and every module pom.
// All poms are validated before any file is written, so a mismatch in any
// module leaves the whole tree untouched.
func (e *MavenEditor) SetVersion(ctx context.Context, dir string, from, to version.Version) error {
	const op = "descriptor.MavenEditor.SetVersion"

	paths, err := collectPoms(dir)
	if err != nil {
		return err
	}

	// Validate every pom concurrently before touching any of them.
	var mu sync.Mutex
	var mismatched []string

	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			ok, err := pomMentionsVersion(path, from)
			if err != nil {
				return err
			}
			if !ok {
				mu.Lock()
				mismatched = append(mismatched, path)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(mismatched) > 0 {
		return errors.Descriptor(op,
			fmt.Sprintf("expected version %s not found in all modules", from)).
			WithDetail("paths", mismatched)
	}

	for _, path := range paths {
		if err := rewritePomVersion(path, from, to); err != nil {
			return err
		}
	}
	return nil
}

// collectPoms returns the root pom and every pom reachable through
// <modules> declarations.
func collectPoms(dir string) ([]string, error) {
	root := filepath.Join(dir, mavenDescriptor)
	pom, err := readPom(root)
	if err != nil {
		return nil, err
	}

	paths := []string{root}
	for _, module := range pom.Modules.Module {
		sub, err := collectPoms(filepath.Join(dir, module))
		if err != nil {
			return nil, err
		}
		paths = append(paths, sub...)
	}
	return paths, nil
}

func readPom(path string) (*pomFile, error) {
	const op = "descriptor.readPom"

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(op, fmt.Sprintf("descriptor %s not found", path))
		}
		return nil, errors.DescriptorWrap(err, op, fmt.Sprintf("failed to read %s", path))
	}

	var pom pomFile
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, errors.DescriptorWrap(err, op, fmt.Sprintf("failed to parse %s", path))
	}
	return &pom, nil
}

// pomMentionsVersion reports whether the pom's own or parent version
// equals v.
func pomMentionsVersion(path string, v version.Version) (bool, error) {
	pom, err := readPom(path)
	if err != nil {
		return false, err
	}
	return pom.Version == v.String() || pom.Parent.Version == v.String(), nil
}

// rewritePomVersion replaces version elements holding from with to,
// preserving the rest of the file byte for byte. Internal module
// references pinned to the project version are rewritten along with the
// project and parent elements.
func rewritePomVersion(path string, from, to version.Version) error {
	const op = "descriptor.rewritePomVersion"

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to read %s", path))
	}

	pattern := regexp.MustCompile(`(<version>\s*)` + regexp.QuoteMeta(from.String()) + `(\s*</version>)`)
	updated := pattern.ReplaceAll(data, []byte("${1}"+to.String()+"${2}"))

	info, err := os.Stat(path)
	if err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to stat %s", path))
	}
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return errors.DescriptorWrap(err, op, fmt.Sprintf("failed to write %s", path))
	}
	return nil
}
