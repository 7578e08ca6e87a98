package gitflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/errors"
)

// RunID uniquely identifies one orchestration run.
type RunID string

// NewRunID generates a new run identifier.
func NewRunID() RunID {
	return RunID(fmt.Sprintf("run_%s", uuid.New().String()[:12]))
}

// TransitionRecord captures one state transition of a run.
type TransitionRecord struct {
	From RunState  `json:"from" yaml:"from"`
	To   RunState  `json:"to" yaml:"to"`
	At   time.Time `json:"at" yaml:"at"`
	Note string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// Run is the aggregate for one finish-phase orchestration run. It tracks
// the state machine position, which side effects have been applied, and
// the data needed to build the final result. The repository itself is the
// durable store; a Run lives only for the duration of one invocation.
type Run struct {
	id            RunID
	kind          RunKind
	branch        string
	baseBranch    string
	tagPrefix     string
	state         RunState
	lastCompleted RunState
	finalVersion  version.Version
	nextVersion   version.Version
	tagName       string
	tagCreated    bool
	releaseID     string
	errKind       errors.Kind
	errMessage    string
	conflicts     []string
	dryRun        bool
	history       []TransitionRecord
	startedAt     time.Time
	updatedAt     time.Time
}

// NewRun creates a run aggregate in the validating state.
func NewRun(kind RunKind, branch, baseBranch, tagPrefix string) *Run {
	now := time.Now().UTC()
	return &Run{
		id:         NewRunID(),
		kind:       kind,
		branch:     branch,
		baseBranch: baseBranch,
		tagPrefix:  tagPrefix,
		state:      StateValidating,
		startedAt:  now,
		updatedAt:  now,
	}
}

// ID returns the run identifier.
func (r *Run) ID() RunID { return r.id }

// Kind returns the run kind.
func (r *Run) Kind() RunKind { return r.kind }

// Branch returns the working branch name.
func (r *Run) Branch() string { return r.branch }

// BaseBranch returns the base branch name.
func (r *Run) BaseBranch() string { return r.baseBranch }

// State returns the current state.
func (r *Run) State() RunState { return r.state }

// LastCompleted returns the last successfully completed state. For a run
// that failed it names the point a recovery entry can resume from.
func (r *Run) LastCompleted() RunState { return r.lastCompleted }

// FinalVersion returns the finalized (snapshot-stripped) version, or the
// zero version before finalization.
func (r *Run) FinalVersion() version.Version { return r.finalVersion }

// NextVersion returns the next development version, or the zero version
// before it is computed.
func (r *Run) NextVersion() version.Version { return r.nextVersion }

// TagName returns the tag name, or empty before tagging.
func (r *Run) TagName() string { return r.tagName }

// TagCreated reports whether the tag side effect has been applied.
func (r *Run) TagCreated() bool { return r.tagCreated }

// ReleaseID returns the identifier reported by the publish gateway.
func (r *Run) ReleaseID() string { return r.releaseID }

// History returns the recorded transitions.
func (r *Run) History() []TransitionRecord { return r.history }

// DryRun reports whether side effects are being simulated.
func (r *Run) DryRun() bool { return r.dryRun }

// SetDryRun marks the run as a simulation.
func (r *Run) SetDryRun(dry bool) { r.dryRun = dry }

// SetFinalVersion records the finalized version.
func (r *Run) SetFinalVersion(v version.Version) {
	r.finalVersion = v
	r.touch()
}

// SetNextVersion records the next development version.
func (r *Run) SetNextVersion(v version.Version) {
	r.nextVersion = v
	r.touch()
}

// SetTag records the created tag.
func (r *Run) SetTag(name string) {
	r.tagName = name
	r.tagCreated = true
	r.touch()
}

// SetReleaseID records the publish gateway's release identifier.
func (r *Run) SetReleaseID(id string) {
	r.releaseID = id
	r.touch()
}

// Advance moves the run to the target state, recording the transition.
// Invalid transitions are rejected so a coding error in an orchestrator
// cannot silently skip a step.
func (r *Run) Advance(target RunState) error {
	const op = "gitflow.Run.Advance"
	if !r.state.CanTransitionTo(r.kind, target) {
		return errors.Internal(op,
			fmt.Sprintf("invalid transition %s -> %s for %s run", r.state, target, r.kind))
	}
	r.record(target, "")
	return nil
}

// Fail moves the run to the terminal failed state, preserving the last
// completed state and the error classification for the result.
func (r *Run) Fail(kind errors.Kind, message string) {
	r.errKind = kind
	r.errMessage = message
	r.record(StateFailed, message)
}

// MarkPartiallyMerged moves a hotfix run to the partially-merged terminal
// state: publish succeeded, the cherry-pick conflicted, and the working
// branch is retained.
func (r *Run) MarkPartiallyMerged(paths []string, message string) {
	r.errKind = errors.KindConflict
	r.errMessage = message
	r.conflicts = paths
	r.record(StatePartiallyMerged, message)
}

// RecordConflicts attaches conflicting paths to a failed run.
func (r *Run) RecordConflicts(paths []string) {
	r.conflicts = paths
	r.touch()
}

func (r *Run) record(target RunState, note string) {
	if !r.state.IsTerminal() && r.state != StateFailed {
		r.lastCompleted = r.state
	}
	r.history = append(r.history, TransitionRecord{
		From: r.state,
		To:   target,
		At:   time.Now().UTC(),
		Note: note,
	})
	r.state = target
	r.touch()
}

func (r *Run) touch() {
	r.updatedAt = time.Now().UTC()
}

// Result builds the immutable report of the run.
func (r *Run) Result() Result {
	res := Result{
		RunID:         r.id,
		Kind:          r.kind,
		Branch:        r.branch,
		BaseBranch:    r.baseBranch,
		FinalState:    r.state,
		LastCompleted: r.lastCompleted,
		TagCreated:    r.tagCreated,
		Tag:           r.tagName,
		ReleaseID:     r.releaseID,
		DryRun:        r.dryRun,
		Transitions:   r.history,
		StartedAt:     r.startedAt,
		FinishedAt:    r.updatedAt,
	}
	if !r.finalVersion.IsZero() {
		res.Version = r.finalVersion.String()
	}
	if !r.nextVersion.IsZero() {
		res.NextVersion = r.nextVersion.String()
	}
	if r.errKind != errors.KindUnknown {
		res.ErrorKind = r.errKind.String()
		res.ErrorMessage = r.errMessage
	}
	if len(r.conflicts) > 0 {
		res.ConflictingPaths = r.conflicts
	}
	return res
}
