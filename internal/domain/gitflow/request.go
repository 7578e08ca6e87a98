package gitflow

import (
	"strings"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

// RunKind distinguishes release runs from hotfix runs.
type RunKind string

const (
	// RunKindRelease identifies a release lineage run.
	RunKindRelease RunKind = "release"
	// RunKindHotfix identifies a hotfix lineage run.
	RunKindHotfix RunKind = "hotfix"
)

// BranchRef identifies the working branch of a run together with the
// version it was branched from. It is created by a start phase and retired
// when the matching finish phase deletes the branch.
type BranchRef struct {
	// Kind is the lineage of the branch.
	Kind RunKind
	// Name is the full branch name (e.g. "release/2.0.16").
	Name string
	// BaseVersion is the version the branch was cut from.
	BaseVersion version.Version
}

// NextVersionPolicy decides the development version left on the base
// branch after a release finishes. Exactly one of Explicit or Increment
// is set.
type NextVersionPolicy struct {
	// Explicit is the verbatim next version. It must carry the snapshot
	// suffix; this is enforced before any mutation happens.
	Explicit *version.Version
	// Increment is the field to increment on the current base version.
	Increment version.Field
}

// IsExplicit returns true if the policy names an exact version.
func (p NextVersionPolicy) IsExplicit() bool {
	return p.Explicit != nil
}

// Validate checks the policy before a run starts mutating anything.
func (p NextVersionPolicy) Validate() error {
	const op = "gitflow.NextVersionPolicy"
	if p.Explicit != nil {
		if !p.Explicit.IsSnapshot() {
			return errors.Precondition(op, "explicit next version must carry the -SNAPSHOT suffix")
		}
		return nil
	}
	if !p.Increment.IsValid() {
		return errors.Validation(op, "next version increment must be major, minor, or patch")
	}
	return nil
}

// ReleaseRequest is the immutable invocation surface of a release run.
type ReleaseRequest struct {
	// BranchName is the release branch to finish (e.g. "release/2.0.16").
	BranchName string
	// BaseBranch is the branch the release merges back into.
	BaseBranch string
	// TagPrefix is prepended to the finalized version to form the tag name.
	TagPrefix string
	// NextVersion decides the development version left on BaseBranch.
	NextVersion NextVersionPolicy
	// Artifact is informational metadata for reports; it carries no
	// control-flow weight.
	Artifact ArtifactDescriptor
	// Runner and Toolchain are passed through untouched to environment
	// setup collaborators.
	Runner    string
	Toolchain string
}

// Validate checks the request shape before any repository access.
func (r ReleaseRequest) Validate() error {
	const op = "gitflow.ReleaseRequest"
	if strings.TrimSpace(r.BranchName) == "" {
		return errors.Validation(op, "branch name is required")
	}
	if strings.TrimSpace(r.BaseBranch) == "" {
		return errors.Validation(op, "base branch is required")
	}
	if r.BranchName == r.BaseBranch {
		return errors.Validation(op, "branch and base branch must differ")
	}
	return r.NextVersion.Validate()
}

// HotfixRequest is the immutable invocation surface of a hotfix run.
type HotfixRequest struct {
	// BranchName is the hotfix branch to finish (e.g. "hotfix/2.0.15.1").
	BranchName string
	// BaseBranch is the branch the hotfix commits are cherry-picked onto.
	BaseBranch string
	// TagPrefix is prepended to the finalized version to form the tag name.
	TagPrefix string
	// BaseTag is the production tag the hotfix branch was cut from. It
	// anchors the cherry-pick commit range.
	BaseTag string
	// MergeToBase enables the cherry-pick merge-back. When false the merge
	// step is recorded as skipped, not merged.
	MergeToBase bool
	// Artifact is informational metadata for reports.
	Artifact ArtifactDescriptor
	// Runner and Toolchain are passed through untouched.
	Runner    string
	Toolchain string
}

// Validate checks the request shape before any repository access.
func (r HotfixRequest) Validate() error {
	const op = "gitflow.HotfixRequest"
	if strings.TrimSpace(r.BranchName) == "" {
		return errors.Validation(op, "branch name is required")
	}
	if r.MergeToBase {
		if strings.TrimSpace(r.BaseBranch) == "" {
			return errors.Validation(op, "base branch is required when merge-back is enabled")
		}
		if strings.TrimSpace(r.BaseTag) == "" {
			return errors.Validation(op, "base tag is required when merge-back is enabled")
		}
	}
	return nil
}

// ArtifactDescriptor is informational metadata about the published
// artifact set, used for cross-references in reports.
type ArtifactDescriptor struct {
	// GroupID is the artifact group (e.g. "com.example.platform").
	GroupID string
	// ArtifactIDs lists the module artifact identifiers.
	ArtifactIDs []string
}
