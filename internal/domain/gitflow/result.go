package gitflow

import "time"

// Result is the immutable report of a finished run. It serializes to the
// run report written under .flowline/runs/ and to the --json CLI output.
type Result struct {
	RunID            RunID              `json:"run_id" yaml:"run_id"`
	Kind             RunKind            `json:"kind" yaml:"kind"`
	Branch           string             `json:"branch" yaml:"branch"`
	BaseBranch       string             `json:"base_branch" yaml:"base_branch"`
	FinalState       RunState           `json:"final_state" yaml:"final_state"`
	LastCompleted    RunState           `json:"last_completed,omitempty" yaml:"last_completed,omitempty"`
	Version          string             `json:"version,omitempty" yaml:"version,omitempty"`
	NextVersion      string             `json:"next_version,omitempty" yaml:"next_version,omitempty"`
	TagCreated       bool               `json:"tag_created" yaml:"tag_created"`
	Tag              string             `json:"tag,omitempty" yaml:"tag,omitempty"`
	ReleaseID        string             `json:"release_id,omitempty" yaml:"release_id,omitempty"`
	ErrorKind        string             `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	ConflictingPaths []string           `json:"conflicting_paths,omitempty" yaml:"conflicting_paths,omitempty"`
	DryRun           bool               `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Transitions      []TransitionRecord `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	StartedAt        time.Time          `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time          `json:"finished_at" yaml:"finished_at"`
}

// Succeeded reports whether the run reached a fully successful terminal
// state. A partially merged hotfix is not a success even though its tag
// and publish stand.
func (r Result) Succeeded() bool {
	return r.FinalState == StateDone
}

// RequiresManualAction reports whether an operator must intervene.
func (r Result) RequiresManualAction() bool {
	return r.FinalState == StateFailed || r.FinalState == StatePartiallyMerged
}
