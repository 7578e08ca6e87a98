package orchestrator

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

func TestFileLockAcquireRelease(t *testing.T) {
	m := NewFileLockManager(t.TempDir())

	release, err := m.Acquire("release/1.2.3", "run_aaa")
	require.NoError(t, err)
	assert.True(t, m.IsLocked("release/1.2.3"))

	release()
	assert.False(t, m.IsLocked("release/1.2.3"))

	release2, err := m.Acquire("release/1.2.3", "run_bbb")
	require.NoError(t, err)
	release2()
}

func TestFileLockRejectsSecondHolder(t *testing.T) {
	m := NewFileLockManager(t.TempDir())

	release, err := m.Acquire("release/1.2.3", "run_aaa")
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire("release/1.2.3", "run_bbb")
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindLock))
	assert.Contains(t, err.Error(), "run_aaa")
}

func TestFileLockDifferentBranchesAreIndependent(t *testing.T) {
	m := NewFileLockManager(t.TempDir())

	r1, err := m.Acquire("release/1.2.3", "run_aaa")
	require.NoError(t, err)
	defer r1()

	r2, err := m.Acquire("hotfix/1.2.3.1", "run_bbb")
	require.NoError(t, err)
	defer r2()
}

func TestFileLockStaleTakeover(t *testing.T) {
	root := t.TempDir()
	m := NewFileLockManager(root)

	release, err := m.Acquire("release/1.2.3", "run_aaa")
	require.NoError(t, err)
	defer release()

	// Age the lock past the stale threshold.
	path := m.lockPath("release/1.2.3")
	contents := lockFileContents{
		RunID:      "run_aaa",
		Branch:     "release/1.2.3",
		PID:        1,
		Hostname:   "gone",
		AcquiredAt: time.Now().UTC().Add(-lockStaleDuration - time.Minute),
	}
	data, err := json.Marshal(contents)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	assert.False(t, m.IsLocked("release/1.2.3"))

	release2, err := m.Acquire("release/1.2.3", "run_bbb")
	require.NoError(t, err)
	release2()
}
