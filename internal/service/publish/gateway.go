// Package publish delivers finalized releases through publisher plugins.
package publish

import (
	"context"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
)

// Gateway is the single point through which a release leaves the
// repository. Publishing is not idempotent: callers must never invoke
// Publish twice for the same version, and a timeout means the outcome is
// unknown, not failed.
type Gateway interface {
	// Name identifies the gateway for logs and reports.
	Name() string

	// Publish delivers the artifacts for the finalized version.
	Publish(ctx context.Context, req Request) (*Receipt, error)

	// Close releases the gateway's resources.
	Close() error
}

// Request describes one release to publish.
type Request struct {
	// Version is the finalized release version.
	Version version.Version
	// TagName is the tag marking the release commit.
	TagName string
	// Branch is the branch being released from.
	Branch string
	// CommitSHA is the tagged commit.
	CommitSHA string
	// Artifact describes the published artifact set.
	Artifact gitflow.ArtifactDescriptor
	// WorkDir is the repository root.
	WorkDir string
	// DryRun suppresses the actual delivery.
	DryRun bool
}

// Receipt is the proof of a successful publish.
type Receipt struct {
	// ReleaseID identifies the release in the target channel.
	ReleaseID string
	// Message is an optional publisher message.
	Message string
	// Artifacts lists the delivered artifact locations.
	Artifacts []string
}
