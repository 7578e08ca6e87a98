// Package gitflow provides the core domain model for release and hotfix
// orchestration runs.
package gitflow

// RunState identifies the last completed step of a finish-phase run.
// A run halting in a non-terminal state records exactly which side effects
// have already been applied, so a recovery entry can resume at that point.
type RunState string

const (
	// StateValidating is the initial state: preconditions are being checked.
	StateValidating RunState = "validating"
	// StateVersionFinalized means the snapshot suffix has been stripped and
	// committed on the working branch.
	StateVersionFinalized RunState = "version_finalized"
	// StateTagged means the release tag exists and branch and tag are pushed.
	StateTagged RunState = "tagged"
	// StatePublished means the publish gateway reported success.
	StatePublished RunState = "published"
	// StateMerged means the working branch was reconciled into the base
	// branch (merge for releases, cherry-pick for hotfixes).
	StateMerged RunState = "merged"
	// StateMergeSkipped means the hotfix run was configured not to merge
	// back. Recorded distinctly from StateMerged.
	StateMergeSkipped RunState = "merge_skipped"
	// StateNextVersionSet means the next development version is committed
	// and pushed on the base branch.
	StateNextVersionSet RunState = "next_version_set"
	// StateBranchDeleted means the working branch is gone locally and remotely.
	StateBranchDeleted RunState = "branch_deleted"
	// StateDone is the terminal success state.
	StateDone RunState = "done"
	// StatePartiallyMerged is a terminal state for hotfix runs: tag and
	// publish succeeded but the cherry-pick hit a conflict. The working
	// branch is retained for manual completion.
	StatePartiallyMerged RunState = "partially_merged"
	// StateFailed is the terminal failure state. The run result records
	// the last completed state alongside the error kind.
	StateFailed RunState = "failed"
)

// String returns the string representation of the state.
func (s RunState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible.
func (s RunState) IsTerminal() bool {
	switch s {
	case StateDone, StatePartiallyMerged, StateFailed:
		return true
	default:
		return false
	}
}

// releaseOrder is the strict step order for release finish runs.
var releaseOrder = []RunState{
	StateValidating,
	StateVersionFinalized,
	StateTagged,
	StatePublished,
	StateMerged,
	StateNextVersionSet,
	StateBranchDeleted,
	StateDone,
}

// hotfixOrder is the strict step order for hotfix finish runs. The merge
// step may resolve to StateMerged or StateMergeSkipped.
var hotfixOrder = []RunState{
	StateValidating,
	StateVersionFinalized,
	StateTagged,
	StatePublished,
	StateMerged,
	StateBranchDeleted,
	StateDone,
}

// CanTransitionTo reports whether target is a valid successor of s within
// the given run kind. Failure states are reachable from any non-terminal
// state and are not covered here.
func (s RunState) CanTransitionTo(kind RunKind, target RunState) bool {
	if s.IsTerminal() {
		return false
	}

	if kind == RunKindHotfix {
		switch {
		case s == StatePublished && target == StateMergeSkipped:
			return true
		case s == StatePublished && target == StatePartiallyMerged:
			return true
		case s == StateMergeSkipped && target == StateBranchDeleted:
			return true
		}
		return nextInOrder(hotfixOrder, s) == target
	}

	return nextInOrder(releaseOrder, s) == target
}

func nextInOrder(order []RunState, s RunState) RunState {
	for i, st := range order {
		if st == s && i+1 < len(order) {
			return order[i+1]
		}
	}
	return ""
}
