package gitflow

import "testing"

func TestRunStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    RunState
		terminal bool
	}{
		{StateValidating, false},
		{StateVersionFinalized, false},
		{StateTagged, false},
		{StatePublished, false},
		{StateMerged, false},
		{StateMergeSkipped, false},
		{StateNextVersionSet, false},
		{StateBranchDeleted, false},
		{StateDone, true},
		{StatePartiallyMerged, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestCanTransitionToRelease(t *testing.T) {
	tests := []struct {
		name string
		from RunState
		to   RunState
		ok   bool
	}{
		{"validating to version_finalized", StateValidating, StateVersionFinalized, true},
		{"version_finalized to tagged", StateVersionFinalized, StateTagged, true},
		{"tagged to published", StateTagged, StatePublished, true},
		{"published to merged", StatePublished, StateMerged, true},
		{"merged to next_version_set", StateMerged, StateNextVersionSet, true},
		{"next_version_set to branch_deleted", StateNextVersionSet, StateBranchDeleted, true},
		{"branch_deleted to done", StateBranchDeleted, StateDone, true},
		{"skipping a step", StateValidating, StateTagged, false},
		{"backwards", StateTagged, StateVersionFinalized, false},
		{"release has no merge_skipped", StatePublished, StateMergeSkipped, false},
		{"release has no partially_merged", StatePublished, StatePartiallyMerged, false},
		{"out of terminal", StateDone, StateValidating, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(RunKindRelease, tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(release, %s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}

func TestCanTransitionToHotfix(t *testing.T) {
	tests := []struct {
		name string
		from RunState
		to   RunState
		ok   bool
	}{
		{"published to merged", StatePublished, StateMerged, true},
		{"published to merge_skipped", StatePublished, StateMergeSkipped, true},
		{"published to partially_merged", StatePublished, StatePartiallyMerged, true},
		{"merged to branch_deleted", StateMerged, StateBranchDeleted, true},
		{"merge_skipped to branch_deleted", StateMergeSkipped, StateBranchDeleted, true},
		{"hotfix skips next_version_set", StateMerged, StateNextVersionSet, false},
		{"out of partially_merged", StatePartiallyMerged, StateBranchDeleted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(RunKindHotfix, tt.to); got != tt.ok {
				t.Errorf("CanTransitionTo(hotfix, %s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
			}
		})
	}
}
