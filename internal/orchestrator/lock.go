// Package orchestrator drives release and hotfix runs through their side
// effects in order, recording progress so interrupted runs can be
// completed manually.
package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/errors"
)

const (
	stateDir          = ".flowline"
	lockStaleDuration = 30 * time.Minute
)

// FileLockManager serializes runs per working branch with lock files
// under .flowline/locks/. Two runs on different branches may proceed
// concurrently; two runs on the same branch may not.
type FileLockManager struct {
	repoRoot string
}

// NewFileLockManager creates a lock manager rooted at the repository.
func NewFileLockManager(repoRoot string) *FileLockManager {
	return &FileLockManager{repoRoot: repoRoot}
}

// lockFileContents records who holds a lock.
type lockFileContents struct {
	RunID      string    `json:"run_id"`
	Branch     string    `json:"branch"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// lockPath returns the lock file path for a branch. Branch separators are
// flattened so the lock directory stays one level deep.
func (m *FileLockManager) lockPath(branch string) string {
	name := strings.ReplaceAll(branch, "/", "__") + ".lock"
	return filepath.Join(m.repoRoot, stateDir, "locks", name)
}

// Acquire takes the lock for a branch. A lock older than the stale
// threshold is presumed abandoned and taken over.
func (m *FileLockManager) Acquire(branch string, runID gitflow.RunID) (func(), error) {
	const op = "orchestrator.FileLockManager.Acquire"

	path := m.lockPath(branch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(err, errors.KindLock, op, "failed to create lock directory")
	}

	if existing, err := m.readLock(path); err == nil {
		if time.Since(existing.AcquiredAt) <= lockStaleDuration {
			return nil, errors.Lock(op, fmt.Sprintf(
				"branch %s is locked by run %s (pid %d on %s since %s)",
				branch, existing.RunID, existing.PID, existing.Hostname,
				existing.AcquiredAt.Format(time.RFC3339)))
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.KindLock, op, "failed to remove stale lock")
		}
	}

	hostname, _ := os.Hostname()
	contents := lockFileContents{
		RunID:      string(runID),
		Branch:     branch,
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindLock, op, "failed to marshal lock")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Lock(op, fmt.Sprintf("branch %s was locked by another process", branch))
		}
		return nil, errors.Wrap(err, errors.KindLock, op, "failed to create lock file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, errors.Wrap(err, errors.KindLock, op, "failed to write lock file")
	}
	f.Close()

	return func() { os.Remove(path) }, nil
}

// IsLocked reports whether a non-stale lock is held for the branch.
func (m *FileLockManager) IsLocked(branch string) bool {
	existing, err := m.readLock(m.lockPath(branch))
	if err != nil {
		return false
	}
	return time.Since(existing.AcquiredAt) <= lockStaleDuration
}

func (m *FileLockManager) readLock(path string) (*lockFileContents, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var contents lockFileContents
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, err
	}
	return &contents, nil
}
