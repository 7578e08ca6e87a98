package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/service/git"
	"github.com/relicta-tech/flowline/internal/service/publish"
)

// ReleaseBranchPrefix is prepended to the version to name release branches.
const ReleaseBranchPrefix = "release/"

// StartReleaseOptions configures a release start run.
type StartReleaseOptions struct {
	// BaseBranch is the branch the release is cut from.
	BaseBranch string
	// Version overrides the version read from the base branch descriptor.
	Version *version.Version
}

// StartRelease cuts a release branch from the base branch head. The base
// branch descriptor must hold a snapshot version; the branch is named after
// that version with the suffix stripped and keeps the snapshot descriptor
// until the finish phase finalizes it.
func (o *Orchestrator) StartRelease(ctx context.Context, opts StartReleaseOptions) (gitflow.BranchRef, error) {
	const op = "orchestrator.StartRelease"

	if strings.TrimSpace(opts.BaseBranch) == "" {
		return gitflow.BranchRef{}, flerrors.Validation(op, "base branch is required")
	}

	if err := o.git.Checkout(ctx, opts.BaseBranch); err != nil {
		return gitflow.BranchRef{}, err
	}
	if err := o.requireCleanWorktree(ctx, op); err != nil {
		return gitflow.BranchRef{}, err
	}

	current, err := o.readSnapshotVersion(ctx, op, gitflow.RunKindRelease)
	if err != nil {
		return gitflow.BranchRef{}, err
	}

	branchVersion := current.WithoutSnapshot()
	if opts.Version != nil {
		branchVersion = opts.Version.WithoutSnapshot()
	}

	branch := ReleaseBranchPrefix + branchVersion.String()
	exists, err := o.git.BranchExists(ctx, branch)
	if err != nil {
		return gitflow.BranchRef{}, err
	}
	if exists {
		return gitflow.BranchRef{}, flerrors.AlreadyExists(op,
			fmt.Sprintf("branch %s already exists", branch))
	}

	ref := gitflow.BranchRef{
		Kind:        gitflow.RunKindRelease,
		Name:        branch,
		BaseVersion: current,
	}

	if o.dryRun {
		o.logger.Info("dry run: would create release branch",
			"branch", branch, "base", opts.BaseBranch)
		return ref, nil
	}

	if err := o.git.CreateBranch(ctx, branch, opts.BaseBranch); err != nil {
		return gitflow.BranchRef{}, err
	}
	if err := o.git.Push(ctx, o.pushOpts(branch)); err != nil {
		return gitflow.BranchRef{}, err
	}

	o.logger.Info("release branch created", "branch", branch, "version", current.String())
	return ref, nil
}

// FinishRelease drives the release finish state machine: finalize the
// snapshot version, tag, publish, merge back, set the next development
// version, and retire the branch. Every failure halts at the last completed
// step and is recorded in the run report.
func (o *Orchestrator) FinishRelease(ctx context.Context, req gitflow.ReleaseRequest) (gitflow.Result, error) {
	const op = "orchestrator.FinishRelease"

	run := gitflow.NewRun(gitflow.RunKindRelease, req.BranchName, req.BaseBranch, req.TagPrefix)
	run.SetDryRun(o.dryRun)

	if err := req.Validate(); err != nil {
		return o.finish(run, err)
	}

	if o.locks != nil {
		release, err := o.locks.Acquire(req.BranchName, run.ID())
		if err != nil {
			return o.finish(run, err)
		}
		defer release()
	}

	machine, err := gitflow.NewReleaseMachine(run)
	if err != nil {
		return o.finish(run, err)
	}
	machine.Start()

	// Validating: branch exists, checked out, clean, snapshot version.
	final, err := o.validateFinishBranch(ctx, op, req.BranchName, gitflow.RunKindRelease)
	if err != nil {
		return o.finish(run, err)
	}
	run.SetFinalVersion(final)

	// VersionFinalized: strip the suffix, commit, push.
	if err := o.finalizeVersion(ctx, final, releaseVersionPrefix, req.BranchName); err != nil {
		return o.finish(run, err)
	}
	if err := advance(run, machine, gitflow.EventFinalizeVersion, gitflow.StateVersionFinalized); err != nil {
		return o.finish(run, err)
	}

	// Tagged: create and push the tag.
	tagName := req.TagPrefix + final.String()
	if err := o.createTag(ctx, tagName, final); err != nil {
		return o.finish(run, err)
	}
	run.SetTag(tagName)
	if err := advance(run, machine, gitflow.EventTag, gitflow.StateTagged); err != nil {
		return o.finish(run, err)
	}

	// Published: single attempt, never retried.
	receipt, err := o.publishArtifacts(ctx, final, tagName, req.BranchName, req.Artifact)
	if err != nil {
		return o.finish(run, err)
	}
	run.SetReleaseID(receipt.ReleaseID)
	if err := advance(run, machine, gitflow.EventPublish, gitflow.StatePublished); err != nil {
		return o.finish(run, err)
	}

	// Merged: merge the release branch into the base branch. The branch
	// and tag are preserved on conflict for manual resolution.
	if err := o.mergeIntoBase(ctx, req.BranchName, req.BaseBranch, tagName); err != nil {
		return o.finish(run, err)
	}
	if err := advance(run, machine, gitflow.EventMerge, gitflow.StateMerged); err != nil {
		return o.finish(run, err)
	}

	// NextVersionSet: leave the base branch on the next development version.
	next, err := o.setNextVersion(ctx, final, req.NextVersion, req.BaseBranch)
	if err != nil {
		return o.finish(run, err)
	}
	run.SetNextVersion(next)
	if err := advance(run, machine, gitflow.EventSetNextVersion, gitflow.StateNextVersionSet); err != nil {
		return o.finish(run, err)
	}

	// BranchDeleted: retire the release branch locally and remotely.
	if err := o.deleteBranch(ctx, req.BranchName); err != nil {
		return o.finish(run, err)
	}
	if err := advance(run, machine, gitflow.EventDeleteBranch, gitflow.StateBranchDeleted); err != nil {
		return o.finish(run, err)
	}

	if err := advance(run, machine, gitflow.EventComplete, gitflow.StateDone); err != nil {
		return o.finish(run, err)
	}

	o.logger.Info("release finished",
		"version", final.String(), "tag", tagName, "next", next.String())
	return o.finish(run, nil)
}

// validateFinishBranch checks the finish-phase preconditions and returns
// the finalized (suffix-stripped) version.
func (o *Orchestrator) validateFinishBranch(ctx context.Context, op, branch string, kind gitflow.RunKind) (version.Version, error) {
	exists, err := o.git.BranchExists(ctx, branch)
	if err != nil {
		return version.Version{}, err
	}
	if !exists {
		return version.Version{}, flerrors.Precondition(op,
			fmt.Sprintf("branch %s does not exist", branch))
	}
	if err := o.git.Checkout(ctx, branch); err != nil {
		return version.Version{}, err
	}
	if err := o.requireCleanWorktree(ctx, op); err != nil {
		return version.Version{}, err
	}
	current, err := o.readSnapshotVersion(ctx, op, kind)
	if err != nil {
		return version.Version{}, err
	}
	return current.WithoutSnapshot(), nil
}

// finalizeVersion strips the snapshot suffix on the working branch and
// pushes the commit.
func (o *Orchestrator) finalizeVersion(ctx context.Context, final version.Version, prefix, branch string) error {
	if err := o.commitVersionChange(ctx, prefix, final.WithSnapshot(), final); err != nil {
		return err
	}
	return o.git.Push(ctx, o.pushOpts(branch))
}

// createTag creates and pushes the annotated release tag.
func (o *Orchestrator) createTag(ctx context.Context, tagName string, v version.Version) error {
	if o.dryRun {
		o.logger.Info("dry run: would create tag", "tag", tagName)
		return nil
	}
	message := fmt.Sprintf("Release %s", v)
	if err := o.git.CreateTag(ctx, tagName, message); err != nil {
		return err
	}
	return o.git.PushTag(ctx, tagName, o.pushOpts(""))
}

// publishArtifacts invokes the publish gateway once.
func (o *Orchestrator) publishArtifacts(ctx context.Context, v version.Version, tagName, branch string, artifact gitflow.ArtifactDescriptor) (*publish.Receipt, error) {
	sha, err := o.git.HeadHash(ctx)
	if err != nil {
		return nil, err
	}
	return o.gateway.Publish(ctx, publish.Request{
		Version:   v,
		TagName:   tagName,
		Branch:    branch,
		CommitSHA: sha,
		Artifact:  artifact,
		WorkDir:   o.repoRoot,
		DryRun:    o.dryRun,
	})
}

// mergeIntoBase merges the working branch into the base branch and pushes.
// A tag already reachable from the base branch means a prior run merged;
// the merge is then skipped instead of applied twice.
func (o *Orchestrator) mergeIntoBase(ctx context.Context, branch, base, tagName string) error {
	if err := o.git.Checkout(ctx, base); err != nil {
		return err
	}

	merged, err := o.git.HasTagOnBranch(ctx, tagName, base)
	if err != nil {
		return err
	}
	if merged {
		o.logger.Info("tag already reachable from base branch, skipping merge",
			"tag", tagName, "base", base)
		return nil
	}

	if o.dryRun {
		o.logger.Info("dry run: would merge", "branch", branch, "into", base)
		return nil
	}

	message := fmt.Sprintf("Merge branch '%s' into %s", branch, base)
	if err := o.git.Merge(ctx, branch, message); err != nil {
		return err
	}
	return o.git.Push(ctx, o.pushOpts(base))
}

// setNextVersion computes and commits the next development version on the
// base branch.
func (o *Orchestrator) setNextVersion(ctx context.Context, final version.Version, policy gitflow.NextVersionPolicy, base string) (version.Version, error) {
	var next version.Version
	if policy.IsExplicit() {
		next = *policy.Explicit
	} else {
		incremented, err := final.Increment(policy.Increment)
		if err != nil {
			return version.Version{}, err
		}
		next = incremented.WithSnapshot()
	}

	current, err := o.editor.ReadVersion(ctx, o.repoRoot)
	if err != nil {
		return version.Version{}, err
	}
	if err := o.commitVersionChange(ctx, releaseVersionPrefix, current, next); err != nil {
		return version.Version{}, err
	}
	if err := o.git.Push(ctx, o.pushOpts(base)); err != nil {
		return version.Version{}, err
	}
	return next, nil
}

// deleteBranch retires the working branch locally and on the remote.
func (o *Orchestrator) deleteBranch(ctx context.Context, branch string) error {
	if o.dryRun {
		o.logger.Info("dry run: would delete branch", "branch", branch)
		return nil
	}
	return o.git.DeleteBranch(ctx, branch, git.DeleteBranchOptions{Remote: o.remote})
}
