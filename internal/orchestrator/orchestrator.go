package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/felixgeelhaar/statekit"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/service/descriptor"
	"github.com/relicta-tech/flowline/internal/service/git"
	"github.com/relicta-tech/flowline/internal/service/publish"
)

// Commit message prefixes for version mutations. Merge-back reconciliation
// recognizes these to keep version commits out of cherry-picks.
const (
	releaseVersionPrefix = "release: set version"
	hotfixVersionPrefix  = "hotfix: set version"
)

// Deps carries the collaborators an orchestrator needs.
type Deps struct {
	Git      git.Service
	Editor   descriptor.Editor
	Gateway  publish.Gateway
	Locks    *FileLockManager
	Reports  *ReportWriter
	Logger   *log.Logger
	RepoRoot string
	// Remote is the remote pushed to (default "origin").
	Remote string
	// DryRun simulates every side effect.
	DryRun bool
	// SkipCleanCheck tolerates uncommitted changes in the worktree.
	SkipCleanCheck bool
}

// Orchestrator runs the release and hotfix workflows.
type Orchestrator struct {
	git      git.Service
	editor   descriptor.Editor
	gateway  publish.Gateway
	locks    *FileLockManager
	reports  *ReportWriter
	logger   *log.Logger
	repoRoot string
	remote   string
	dryRun   bool

	skipCleanCheck bool
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	remote := deps.Remote
	if remote == "" {
		remote = "origin"
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		git:      deps.Git,
		editor:   deps.Editor,
		gateway:  deps.Gateway,
		locks:    deps.Locks,
		reports:  deps.Reports,
		logger:   logger,
		repoRoot: deps.RepoRoot,
		remote:   remote,
		dryRun:   deps.DryRun,

		skipCleanCheck: deps.SkipCleanCheck,
	}
}

// advance moves both the state machine and the run aggregate one step.
// The two must stay in lockstep; a divergence is a coding error.
func advance(run *gitflow.Run, machine *gitflow.Machine, event statekit.EventType, target gitflow.RunState) error {
	if err := machine.Send(event); err != nil {
		return err
	}
	if got := machine.CurrentState(); got != target {
		return flerrors.Internal("orchestrator.advance",
			fmt.Sprintf("machine reached %s, expected %s after %s", got, target, event))
	}
	return run.Advance(target)
}

// finish records a failure on the run, persists the report, and returns
// the result together with the original error.
func (o *Orchestrator) finish(run *gitflow.Run, err error) (gitflow.Result, error) {
	if err != nil && !run.State().IsTerminal() {
		run.Fail(flerrors.GetKind(err), flerrors.RedactSensitive(err.Error()))
		if paths := conflictPathsOf(err); len(paths) > 0 {
			run.RecordConflicts(paths)
		}
	}

	result := run.Result()
	if o.reports != nil {
		if writeErr := o.reports.Write(result); writeErr != nil {
			o.logger.Warn("failed to write run report", "run", run.ID(), "error", writeErr)
		}
	}
	if err != nil {
		o.logger.Error("run halted",
			"run", run.ID(),
			"state", run.State(),
			"last_completed", run.LastCompleted(),
			"error", flerrors.RedactSensitive(err.Error()))
	}
	return result, err
}

// conflictPathsOf extracts conflicting paths from a conflict error.
func conflictPathsOf(err error) []string {
	var flErr *flerrors.Error
	if errors.As(err, &flErr) {
		return flErr.ConflictingPaths()
	}
	return nil
}

// pushOpts builds push options for the configured remote.
func (o *Orchestrator) pushOpts(branch string) git.PushOptions {
	return git.PushOptions{
		Remote: o.remote,
		Branch: branch,
		DryRun: o.dryRun,
	}
}

// requireCleanWorktree fails fast when local changes would be swept into
// a version commit. The workflow configuration can disable the check.
func (o *Orchestrator) requireCleanWorktree(ctx context.Context, op string) error {
	if o.skipCleanCheck {
		return nil
	}
	clean, err := o.git.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return flerrors.Precondition(op, "working tree has uncommitted changes")
	}
	return nil
}

// readSnapshotVersion reads the descriptor version and requires the
// snapshot suffix. Release runs additionally reject versions carrying a
// hotfix component; those belong to the hotfix lineage.
func (o *Orchestrator) readSnapshotVersion(ctx context.Context, op string, kind gitflow.RunKind) (version.Version, error) {
	current, err := o.editor.ReadVersion(ctx, o.repoRoot)
	if err != nil {
		return version.Version{}, err
	}
	if !current.IsSnapshot() {
		return version.Version{}, flerrors.Precondition(op,
			fmt.Sprintf("descriptor version %s does not carry the -SNAPSHOT suffix; was this branch already finalized?", current))
	}
	if kind == gitflow.RunKindRelease && current.HasHotfix() {
		return version.Version{}, flerrors.Precondition(op,
			fmt.Sprintf("descriptor version %s carries a hotfix component; use the hotfix workflow", current))
	}
	return current, nil
}

// commitVersionChange rewrites the descriptor and commits the change. A
// commit with no delta is tolerated so a re-run over an already-finalized
// descriptor can proceed.
func (o *Orchestrator) commitVersionChange(ctx context.Context, prefix string, from, to version.Version) error {
	if o.dryRun {
		o.logger.Info("dry run: would set version", "from", from.String(), "to", to.String())
		return nil
	}
	if err := o.editor.SetVersion(ctx, o.repoRoot, from, to); err != nil {
		return err
	}
	message := fmt.Sprintf("%s %s", prefix, to)
	if _, err := o.git.CommitAll(ctx, message); err != nil {
		if errors.Is(err, git.ErrNothingToCommit) {
			o.logger.Info("nothing to commit, descriptor already up to date", "version", to.String())
			return nil
		}
		return err
	}
	return nil
}

// isVersionCommit reports whether a commit subject is one of our own
// version mutations.
func isVersionCommit(subject string) bool {
	return strings.HasPrefix(subject, releaseVersionPrefix) ||
		strings.HasPrefix(subject, hotfixVersionPrefix)
}
