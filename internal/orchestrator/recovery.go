package orchestrator

import (
	"context"
	"fmt"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// RecoveryRequest addresses a single finish-phase step on a branch whose
// run halted partway.
type RecoveryRequest struct {
	// Branch is the release or hotfix branch the halted run was driving.
	Branch string
	// BaseBranch is the merge-back target. Required for merge recovery.
	BaseBranch string
	// TagPrefix forms the tag name together with the descriptor version.
	TagPrefix string
	// Artifact describes the published artifact set.
	Artifact gitflow.ArtifactDescriptor
	// Force overrides the merged-check on branch deletion.
	Force bool
}

// RecoveryResult reports what a recovery operation did.
type RecoveryResult struct {
	Op        string `json:"op" yaml:"op"`
	Branch    string `json:"branch" yaml:"branch"`
	Tag       string `json:"tag,omitempty" yaml:"tag,omitempty"`
	ReleaseID string `json:"release_id,omitempty" yaml:"release_id,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// RetagOnly re-runs the tagging step. The descriptor must already hold a
// finalized version and the tag must not exist yet.
func (o *Orchestrator) RetagOnly(ctx context.Context, req RecoveryRequest) (RecoveryResult, error) {
	const op = "orchestrator.RetagOnly"
	result := RecoveryResult{Op: "retag", Branch: req.Branch, DryRun: o.dryRun}

	unlock, err := o.acquireLock(req.Branch, "recover-retag")
	if err != nil {
		return result, err
	}
	defer unlock()

	final, err := o.finalizedVersionOn(ctx, op, req.Branch)
	if err != nil {
		return result, err
	}

	tagName := req.TagPrefix + final.String()
	exists, err := o.git.TagExists(ctx, tagName)
	if err != nil {
		return result, err
	}
	if exists {
		return result, flerrors.AlreadyExists(op,
			fmt.Sprintf("tag %s already exists; nothing to recover", tagName))
	}

	if err := o.createTag(ctx, tagName, final); err != nil {
		return result, err
	}
	result.Tag = tagName
	result.Message = fmt.Sprintf("tag %s created and pushed", tagName)
	return result, nil
}

// RepublishOnly re-runs the publish step. The tag for the finalized
// version must already exist; publishing is never silently repeated, so
// callers gate this behind explicit operator intent.
func (o *Orchestrator) RepublishOnly(ctx context.Context, req RecoveryRequest) (RecoveryResult, error) {
	const op = "orchestrator.RepublishOnly"
	result := RecoveryResult{Op: "republish", Branch: req.Branch, DryRun: o.dryRun}

	unlock, err := o.acquireLock(req.Branch, "recover-republish")
	if err != nil {
		return result, err
	}
	defer unlock()

	final, err := o.finalizedVersionOn(ctx, op, req.Branch)
	if err != nil {
		return result, err
	}

	tagName := req.TagPrefix + final.String()
	exists, err := o.git.TagExists(ctx, tagName)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, flerrors.Precondition(op,
			fmt.Sprintf("tag %s does not exist; run retag first", tagName))
	}

	receipt, err := o.publishArtifacts(ctx, final, tagName, req.Branch, req.Artifact)
	if err != nil {
		return result, err
	}
	result.Tag = tagName
	result.ReleaseID = receipt.ReleaseID
	result.Message = fmt.Sprintf("version %s republished", final)
	return result, nil
}

// MergeOnly re-runs the merge-back of the branch into the base branch. The
// release tag must exist and must not already be reachable from the base
// branch.
func (o *Orchestrator) MergeOnly(ctx context.Context, req RecoveryRequest) (RecoveryResult, error) {
	const op = "orchestrator.MergeOnly"
	result := RecoveryResult{Op: "merge", Branch: req.Branch, DryRun: o.dryRun}

	if req.BaseBranch == "" {
		return result, flerrors.Validation(op, "base branch is required")
	}

	unlock, err := o.acquireLock(req.Branch, "recover-merge")
	if err != nil {
		return result, err
	}
	defer unlock()

	final, err := o.finalizedVersionOn(ctx, op, req.Branch)
	if err != nil {
		return result, err
	}

	tagName := req.TagPrefix + final.String()
	exists, err := o.git.TagExists(ctx, tagName)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, flerrors.Precondition(op,
			fmt.Sprintf("tag %s does not exist; the run did not reach the merge step", tagName))
	}

	merged, err := o.git.HasTagOnBranch(ctx, tagName, req.BaseBranch)
	if err != nil {
		return result, err
	}
	if merged {
		return result, flerrors.Precondition(op,
			fmt.Sprintf("tag %s is already reachable from %s; nothing to merge", tagName, req.BaseBranch))
	}

	if err := o.mergeIntoBase(ctx, req.Branch, req.BaseBranch, tagName); err != nil {
		return result, err
	}
	result.Tag = tagName
	result.Message = fmt.Sprintf("%s merged into %s", req.Branch, req.BaseBranch)
	return result, nil
}

// DeleteBranchOnly retires a branch whose run finished everything except
// the deletion. Absence is tolerated here: recovery must be re-runnable.
// Unless forced, the branch's release tag must be reachable from the base
// branch so unmerged work is never dropped.
func (o *Orchestrator) DeleteBranchOnly(ctx context.Context, req RecoveryRequest) (RecoveryResult, error) {
	const op = "orchestrator.DeleteBranchOnly"
	result := RecoveryResult{Op: "delete-branch", Branch: req.Branch, DryRun: o.dryRun}

	unlock, err := o.acquireLock(req.Branch, "recover-delete-branch")
	if err != nil {
		return result, err
	}
	defer unlock()

	exists, err := o.git.BranchExists(ctx, req.Branch)
	if err != nil {
		return result, err
	}
	if !exists {
		result.Message = fmt.Sprintf("branch %s is already absent", req.Branch)
		return result, nil
	}

	if err := o.git.Checkout(ctx, req.Branch); err != nil {
		return result, err
	}
	final, err := o.editor.ReadVersion(ctx, o.repoRoot)
	if err != nil {
		return result, err
	}
	tagName := req.TagPrefix + final.WithoutSnapshot().String()

	if !req.Force {
		if req.BaseBranch == "" {
			return result, flerrors.Validation(op, "base branch is required unless --force is given")
		}
		merged, err := o.git.HasTagOnBranch(ctx, tagName, req.BaseBranch)
		if err != nil {
			return result, err
		}
		if !merged {
			return result, flerrors.Precondition(op,
				fmt.Sprintf("tag %s is not reachable from %s; merge first or force", tagName, req.BaseBranch))
		}
	}

	if err := o.moveOffBranch(ctx, req.Branch, req.BaseBranch, tagName); err != nil {
		return result, err
	}
	if err := o.deleteBranch(ctx, req.Branch); err != nil {
		return result, err
	}
	result.Tag = tagName
	result.Message = fmt.Sprintf("branch %s deleted", req.Branch)
	return result, nil
}

// finalizedVersionOn checks out the branch and requires a finalized
// descriptor version.
func (o *Orchestrator) finalizedVersionOn(ctx context.Context, op, branch string) (version.Version, error) {
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
	current, err := o.editor.ReadVersion(ctx, o.repoRoot)
	if err != nil {
		return version.Version{}, err
	}
	if current.IsSnapshot() {
		return version.Version{}, flerrors.Precondition(op,
			fmt.Sprintf("descriptor version %s still carries the -SNAPSHOT suffix; the run never finalized", current))
	}
	return current, nil
}

// acquireLock takes the branch lock when a lock manager is configured.
func (o *Orchestrator) acquireLock(branch, runID string) (func(), error) {
	if o.locks == nil {
		return func() {}, nil
	}
	return o.locks.Acquire(branch, gitflow.RunID(runID))
}
