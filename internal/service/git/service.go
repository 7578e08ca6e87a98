// Package git provides repository operations for Flowline runs.
package git

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Service defines the interface for git operations.
type Service interface {
	// Repository information

	// GetRepositoryRoot returns the absolute path to the repository root.
	GetRepositoryRoot(ctx context.Context) (string, error)

	// IsClean returns true if the working tree has no uncommitted changes.
	IsClean(ctx context.Context) (bool, error)

	// GetCurrentBranch returns the current branch name.
	GetCurrentBranch(ctx context.Context) (string, error)

	// HeadHash returns the commit hash HEAD points to.
	HeadHash(ctx context.Context) (string, error)

	// Branch operations

	// BranchExists reports whether a local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)

	// CreateBranch creates a new branch at the given start point and
	// checks it out.
	CreateBranch(ctx context.Context, name, startPoint string) error

	// Checkout switches the worktree to the given branch.
	Checkout(ctx context.Context, branch string) error

	// CheckoutCommit detaches the worktree at the commit a ref
	// resolves to.
	CheckoutCommit(ctx context.Context, ref string) error

	// DeleteBranch deletes a local branch. With opts.Remote set the
	// matching remote branch is deleted too.
	DeleteBranch(ctx context.Context, name string, opts DeleteBranchOptions) error

	// Commit operations

	// CommitAll stages every change and commits it. Returns
	// ErrNothingToCommit when the worktree holds no changes.
	CommitAll(ctx context.Context, message string) (string, error)

	// ListCommitsSince returns the commit hashes on the current branch
	// that are not reachable from ref, oldest first.
	ListCommitsSince(ctx context.Context, ref string) ([]Commit, error)

	// Tag operations

	// TagExists reports whether a tag exists locally.
	TagExists(ctx context.Context, name string) (bool, error)

	// CreateTag creates an annotated tag at HEAD. Returns an
	// already-exists error when the tag is present.
	CreateTag(ctx context.Context, name, message string) error

	// HasTagOnBranch reports whether the commit a tag points to is
	// reachable from the given branch.
	HasTagOnBranch(ctx context.Context, tag, branch string) (bool, error)

	// LatestVersionTag returns the highest semver tag with the prefix,
	// or empty when no version tag exists.
	LatestVersionTag(ctx context.Context, prefix string) (string, error)

	// Remote operations

	// Push pushes the given refspecs to the remote.
	Push(ctx context.Context, opts PushOptions) error

	// PushTag pushes a single tag to the remote.
	PushTag(ctx context.Context, name string, opts PushOptions) error

	// Fetch fetches branches and tags from the remote.
	Fetch(ctx context.Context, opts FetchOptions) error

	// History rewriting

	// Merge merges the given branch into the current branch with a
	// merge commit. A conflict is reported with the conflicting paths.
	Merge(ctx context.Context, branch, message string) error

	// CherryPick applies the given commit range onto the current branch.
	// A conflict aborts the pick and is reported with the conflicting
	// paths, leaving the worktree clean.
	CherryPick(ctx context.Context, commits []string) error
}

// Commit is a minimal view of a repository commit.
type Commit struct {
	Hash    string
	Subject string
	Author  string
	Date    time.Time
}

// PushOptions configures push operations.
type PushOptions struct {
	// Remote is the remote name (default: "origin").
	Remote string
	// Branch is the branch refspec to push.
	Branch string
	// Delete pushes a deletion refspec for Branch.
	Delete bool
	// DryRun simulates the push.
	DryRun bool
}

// DefaultPushOptions returns the default push options.
func DefaultPushOptions() PushOptions {
	return PushOptions{
		Remote: "origin",
	}
}

// FetchOptions configures fetch operations.
type FetchOptions struct {
	// Remote is the remote name (default: "origin").
	Remote string
	// Tags fetches all tags.
	Tags bool
	// Prune removes remote-tracking references that no longer exist.
	Prune bool
}

// DefaultFetchOptions returns the default fetch options.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Remote: "origin",
		Tags:   true,
	}
}

// DeleteBranchOptions configures branch deletion.
type DeleteBranchOptions struct {
	// Remote also deletes the branch on this remote when non-empty.
	Remote string
	// DryRun simulates the deletion.
	DryRun bool
}

// ServiceConfig configures the git service.
type ServiceConfig struct {
	// RepoPath is the path to the repository.
	RepoPath string
	// DefaultRemote is the default remote name.
	DefaultRemote string
	// CommitterName is used for commits and annotated tags.
	CommitterName string
	// CommitterEmail is used for commits and annotated tags.
	CommitterEmail string
	// Auth authenticates pushes and fetches. Nil falls back to go-git's
	// ambient auth.
	Auth transport.AuthMethod
}

// DefaultServiceConfig returns the default service configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RepoPath:       ".",
		DefaultRemote:  "origin",
		CommitterName:  "Flowline",
		CommitterEmail: "flowline@localhost",
	}
}

// ServiceOption configures the git service.
type ServiceOption func(*ServiceConfig)

// WithRepoPath sets the repository path.
func WithRepoPath(path string) ServiceOption {
	return func(cfg *ServiceConfig) {
		cfg.RepoPath = path
	}
}

// WithDefaultRemote sets the default remote.
func WithDefaultRemote(remote string) ServiceOption {
	return func(cfg *ServiceConfig) {
		cfg.DefaultRemote = remote
	}
}

// WithCommitter sets the committer identity.
func WithCommitter(name, email string) ServiceOption {
	return func(cfg *ServiceConfig) {
		cfg.CommitterName = name
		cfg.CommitterEmail = email
	}
}

// WithAuth sets the transport auth for remote operations.
func WithAuth(auth transport.AuthMethod) ServiceOption {
	return func(cfg *ServiceConfig) {
		cfg.Auth = auth
	}
}
