package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// HotfixBranchPrefix is prepended to the version to name hotfix branches.
const HotfixBranchPrefix = "hotfix/"

// StartHotfixOptions configures a hotfix start run.
type StartHotfixOptions struct {
	// BaseTag is the production tag the hotfix is cut from.
	BaseTag string
	// TagPrefix is stripped from BaseTag to recover the version.
	TagPrefix string
}

// StartHotfix cuts a hotfix branch from a production tag and seeds the
// next hotfix snapshot version in the descriptors.
func (o *Orchestrator) StartHotfix(ctx context.Context, opts StartHotfixOptions) (gitflow.BranchRef, error) {
	const op = "orchestrator.StartHotfix"

	if strings.TrimSpace(opts.BaseTag) == "" {
		return gitflow.BranchRef{}, flerrors.Validation(op, "base tag is required")
	}

	exists, err := o.git.TagExists(ctx, opts.BaseTag)
	if err != nil {
		return gitflow.BranchRef{}, err
	}
	if !exists {
		return gitflow.BranchRef{}, flerrors.Precondition(op,
			fmt.Sprintf("tag %s does not exist", opts.BaseTag))
	}

	baseVersion, err := version.ParseHotfix(strings.TrimPrefix(opts.BaseTag, opts.TagPrefix))
	if err != nil {
		return gitflow.BranchRef{}, err
	}

	next := baseVersion.NextHotfix().WithSnapshot()
	branch := HotfixBranchPrefix + next.WithoutSnapshot().String()

	branchExists, err := o.git.BranchExists(ctx, branch)
	if err != nil {
		return gitflow.BranchRef{}, err
	}
	if branchExists {
		return gitflow.BranchRef{}, flerrors.AlreadyExists(op,
			fmt.Sprintf("branch %s already exists", branch))
	}

	ref := gitflow.BranchRef{
		Kind:        gitflow.RunKindHotfix,
		Name:        branch,
		BaseVersion: baseVersion,
	}

	if o.dryRun {
		o.logger.Info("dry run: would create hotfix branch",
			"branch", branch, "tag", opts.BaseTag, "version", next.String())
		return ref, nil
	}

	if err := o.git.CreateBranch(ctx, branch, opts.BaseTag); err != nil {
		return gitflow.BranchRef{}, err
	}
	if err := o.commitVersionChange(ctx, hotfixVersionPrefix, baseVersion, next); err != nil {
		return gitflow.BranchRef{}, err
	}
	if err := o.git.Push(ctx, o.pushOpts(branch)); err != nil {
		return gitflow.BranchRef{}, err
	}

	o.logger.Info("hotfix branch created",
		"branch", branch, "from", opts.BaseTag, "version", next.String())
	return ref, nil
}

// FinishHotfix drives the hotfix finish state machine. The merge-back is a
// cherry-pick of the hotfix commits onto the base branch; a conflict there
// ends the run as partially merged with the branch retained, since the tag
// and publish already happened.
func (o *Orchestrator) FinishHotfix(ctx context.Context, req gitflow.HotfixRequest) (gitflow.Result, error) {
	const op = "orchestrator.FinishHotfix"

	run := gitflow.NewRun(gitflow.RunKindHotfix, req.BranchName, req.BaseBranch, req.TagPrefix)
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

	machine, err := gitflow.NewHotfixMachine(run)
	if err != nil {
		return o.finish(run, err)
	}
	machine.Start()

	final, err := o.validateFinishBranch(ctx, op, req.BranchName, gitflow.RunKindHotfix)
	if err != nil {
		return o.finish(run, err)
	}
	run.SetFinalVersion(final)

	if err := o.finalizeVersion(ctx, final, hotfixVersionPrefix, req.BranchName); err != nil {
		return o.finish(run, err)
	}
	if err := advance(run, machine, gitflow.EventFinalizeVersion, gitflow.StateVersionFinalized); err != nil {
		return o.finish(run, err)
	}

	tagName := req.TagPrefix + final.String()
	if err := o.createTag(ctx, tagName, final); err != nil {
		return o.finish(run, err)
	}
	run.SetTag(tagName)
	if err := advance(run, machine, gitflow.EventTag, gitflow.StateTagged); err != nil {
		return o.finish(run, err)
	}

	receipt, err := o.publishArtifacts(ctx, final, tagName, req.BranchName, req.Artifact)
	if err != nil {
		return o.finish(run, err)
	}
	run.SetReleaseID(receipt.ReleaseID)
	if err := advance(run, machine, gitflow.EventPublish, gitflow.StatePublished); err != nil {
		return o.finish(run, err)
	}

	if !req.MergeToBase {
		if err := advance(run, machine, gitflow.EventSkipMerge, gitflow.StateMergeSkipped); err != nil {
			return o.finish(run, err)
		}
		o.logger.Info("merge-back disabled, recording skip", "branch", req.BranchName)
	} else {
		err := o.cherryPickOntoBase(ctx, req)
		if flerrors.IsKind(err, flerrors.KindConflict) {
			// Tag and publish already succeeded. Report partial success
			// and retain the branch for manual completion.
			_ = machine.Send(gitflow.EventConflict)
			run.MarkPartiallyMerged(conflictPathsOf(err),
				flerrors.RedactSensitive(err.Error()))
			return o.finish(run, err)
		}
		if err != nil {
			return o.finish(run, err)
		}
		if err := advance(run, machine, gitflow.EventMerge, gitflow.StateMerged); err != nil {
			return o.finish(run, err)
		}
	}

	if err := o.moveOffBranch(ctx, req.BranchName, req.BaseBranch, tagName); err != nil {
		return o.finish(run, err)
	}
	if err := o.deleteBranch(ctx, req.BranchName); err != nil {
		return o.finish(run, err)
	}
	if err := advance(run, machine, gitflow.EventDeleteBranch, gitflow.StateBranchDeleted); err != nil {
		return o.finish(run, err)
	}

	if err := advance(run, machine, gitflow.EventComplete, gitflow.StateDone); err != nil {
		return o.finish(run, err)
	}

	o.logger.Info("hotfix finished", "version", final.String(), "tag", tagName)
	return o.finish(run, nil)
}

// moveOffBranch leaves the branch about to be deleted: onto the base
// branch when one is configured, otherwise detached at the release tag.
func (o *Orchestrator) moveOffBranch(ctx context.Context, branch, base, tagName string) error {
	current, err := o.git.GetCurrentBranch(ctx)
	if err != nil || current != branch {
		return nil
	}
	if base != "" {
		return o.git.Checkout(ctx, base)
	}
	return o.git.CheckoutCommit(ctx, tagName)
}

// cherryPickOntoBase re-applies the hotfix commits onto the base branch,
// leaving out the run's own version mutations, and pushes the result.
func (o *Orchestrator) cherryPickOntoBase(ctx context.Context, req gitflow.HotfixRequest) error {
	commits, err := o.git.ListCommitsSince(ctx, req.BaseTag)
	if err != nil {
		return err
	}

	var picks []string
	for _, c := range commits {
		if isVersionCommit(c.Subject) {
			continue
		}
		picks = append(picks, c.Hash)
	}

	if err := o.git.Checkout(ctx, req.BaseBranch); err != nil {
		return err
	}

	if len(picks) == 0 {
		o.logger.Info("no commits to cherry-pick", "since", req.BaseTag)
		return nil
	}

	if o.dryRun {
		o.logger.Info("dry run: would cherry-pick",
			"commits", len(picks), "onto", req.BaseBranch)
		return nil
	}

	if err := o.git.CherryPick(ctx, picks); err != nil {
		return err
	}
	return o.git.Push(ctx, o.pushOpts(req.BaseBranch))
}
