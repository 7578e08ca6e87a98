package gitflow

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// MachineContext is the context passed to the state machine.
type MachineContext struct {
	Run *Run
}

// Event names for the finish-phase state machines.
const (
	EventFinalizeVersion statekit.EventType = "FINALIZE_VERSION"
	EventTag             statekit.EventType = "TAG"
	EventPublish         statekit.EventType = "PUBLISH"
	EventMerge           statekit.EventType = "MERGE"
	EventSkipMerge       statekit.EventType = "SKIP_MERGE"
	EventConflict        statekit.EventType = "CONFLICT"
	EventSetNextVersion  statekit.EventType = "SET_NEXT_VERSION"
	EventDeleteBranch    statekit.EventType = "DELETE_BRANCH"
	EventComplete        statekit.EventType = "COMPLETE"
	EventFail            statekit.EventType = "FAIL"
)

// Guard names for the finish-phase state machines.
const (
	GuardVersionFinalized statekit.GuardType = "versionFinalized"
)

// State IDs for the state machines.
var (
	StateIDValidating       = statekit.StateID(StateValidating)
	StateIDVersionFinalized = statekit.StateID(StateVersionFinalized)
	StateIDTagged           = statekit.StateID(StateTagged)
	StateIDPublished        = statekit.StateID(StatePublished)
	StateIDMerged           = statekit.StateID(StateMerged)
	StateIDMergeSkipped     = statekit.StateID(StateMergeSkipped)
	StateIDNextVersionSet   = statekit.StateID(StateNextVersionSet)
	StateIDBranchDeleted    = statekit.StateID(StateBranchDeleted)
	StateIDDone             = statekit.StateID(StateDone)
	StateIDPartiallyMerged  = statekit.StateID(StatePartiallyMerged)
	StateIDFailed           = statekit.StateID(StateFailed)
)

// Machine wraps the Statekit state machine for a finish-phase run.
type Machine struct {
	kind        RunKind
	interpreter *statekit.Interpreter[MachineContext]
}

// NewReleaseMachine creates the state machine for release finish runs:
// validating -> version_finalized -> tagged -> published -> merged ->
// next_version_set -> branch_deleted -> done, with failed reachable from
// every non-terminal state. The run is bound into the machine context so
// guards see its recorded progress; a nil run disables the guards.
func NewReleaseMachine(run *Run) (*Machine, error) {
	machine, err := statekit.NewMachine[MachineContext]("release-finish").
		WithInitial(StateIDValidating).
		WithContext(MachineContext{Run: run}).
		WithGuard(GuardVersionFinalized, guardVersionFinalized).
		State(StateIDValidating).
		On(EventFinalizeVersion).Target(StateIDVersionFinalized).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDVersionFinalized).
		On(EventTag).Target(StateIDTagged).Guard(GuardVersionFinalized).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDTagged).
		On(EventPublish).Target(StateIDPublished).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDPublished).
		On(EventMerge).Target(StateIDMerged).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDMerged).
		On(EventSetNextVersion).Target(StateIDNextVersionSet).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDNextVersionSet).
		On(EventDeleteBranch).Target(StateIDBranchDeleted).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDBranchDeleted).
		On(EventComplete).Target(StateIDDone).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDDone).
		Final().
		Done().
		State(StateIDFailed).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build release machine: %w", err)
	}

	return &Machine{
		kind:        RunKindRelease,
		interpreter: statekit.NewInterpreter(machine),
	}, nil
}

// NewHotfixMachine creates the state machine for hotfix finish runs. The
// merge step is conditional: it resolves to merged, merge_skipped, or the
// terminal partially_merged when the cherry-pick conflicts after a
// successful publish.
func NewHotfixMachine(run *Run) (*Machine, error) {
	machine, err := statekit.NewMachine[MachineContext]("hotfix-finish").
		WithInitial(StateIDValidating).
		WithContext(MachineContext{Run: run}).
		WithGuard(GuardVersionFinalized, guardVersionFinalized).
		State(StateIDValidating).
		On(EventFinalizeVersion).Target(StateIDVersionFinalized).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDVersionFinalized).
		On(EventTag).Target(StateIDTagged).Guard(GuardVersionFinalized).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDTagged).
		On(EventPublish).Target(StateIDPublished).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDPublished).
		On(EventMerge).Target(StateIDMerged).
		On(EventSkipMerge).Target(StateIDMergeSkipped).
		On(EventConflict).Target(StateIDPartiallyMerged).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDMerged).
		On(EventDeleteBranch).Target(StateIDBranchDeleted).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDMergeSkipped).
		On(EventDeleteBranch).Target(StateIDBranchDeleted).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDBranchDeleted).
		On(EventComplete).Target(StateIDDone).
		On(EventFail).Target(StateIDFailed).
		Done().
		State(StateIDDone).
		Final().
		Done().
		State(StateIDPartiallyMerged).
		Final().
		Done().
		State(StateIDFailed).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build hotfix machine: %w", err)
	}

	return &Machine{
		kind:        RunKindHotfix,
		interpreter: statekit.NewInterpreter(machine),
	}, nil
}

// NewMachine creates the machine matching the run kind.
func NewMachine(kind RunKind, run *Run) (*Machine, error) {
	if kind == RunKindHotfix {
		return NewHotfixMachine(run)
	}
	return NewReleaseMachine(run)
}

// guardVersionFinalized blocks tagging until the bound run holds a
// finalized, non-snapshot version.
func guardVersionFinalized(ctx MachineContext, _ statekit.Event) bool {
	if ctx.Run == nil {
		return true
	}
	return !ctx.Run.FinalVersion().IsZero() && !ctx.Run.FinalVersion().IsSnapshot()
}

// Kind returns the run kind this machine drives.
func (m *Machine) Kind() RunKind {
	return m.kind
}

// Start starts the state machine interpreter.
func (m *Machine) Start() {
	m.interpreter.Start()
}

// Send sends an event to the interpreter.
func (m *Machine) Send(event statekit.EventType) error {
	if m.interpreter == nil {
		return fmt.Errorf("interpreter not started")
	}
	m.interpreter.Send(statekit.Event{Type: event})
	return nil
}

// CurrentState returns the current state.
func (m *Machine) CurrentState() RunState {
	if m.interpreter == nil {
		return ""
	}
	return RunState(m.interpreter.State().Value)
}

// IsDone returns true if the machine is in a final state.
func (m *Machine) IsDone() bool {
	if m.interpreter == nil {
		return false
	}
	return m.interpreter.Done()
}
