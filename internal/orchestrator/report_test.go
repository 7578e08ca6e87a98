package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
)

func TestReportWriteRead(t *testing.T) {
	w := NewReportWriter(t.TempDir())

	result := gitflow.Result{
		RunID:      "run_abc123def456",
		Kind:       gitflow.RunKindRelease,
		Branch:     "release/2.0.16",
		BaseBranch: "develop",
		FinalState: gitflow.StateDone,
		Version:    "2.0.16",
		Tag:        "v2.0.16",
		TagCreated: true,
		ReleaseID:  "rel-42",
		StartedAt:  time.Now().UTC().Truncate(time.Second),
		FinishedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, w.Write(result))

	loaded, err := w.Read("run_abc123def456")
	require.NoError(t, err)
	assert.Equal(t, result.FinalState, loaded.FinalState)
	assert.Equal(t, result.Tag, loaded.Tag)
	assert.Equal(t, result.ReleaseID, loaded.ReleaseID)
	assert.True(t, loaded.Succeeded())
}

func TestReportReadMissing(t *testing.T) {
	w := NewReportWriter(t.TempDir())

	_, err := w.Read("run_nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report")
}

func TestReportListNewestFirst(t *testing.T) {
	w := NewReportWriter(t.TempDir())

	older := gitflow.Result{
		RunID:      "run_older",
		Kind:       gitflow.RunKindRelease,
		FinalState: gitflow.StateFailed,
		StartedAt:  time.Now().UTC().Add(-time.Hour),
	}
	newer := gitflow.Result{
		RunID:      "run_newer",
		Kind:       gitflow.RunKindHotfix,
		FinalState: gitflow.StateDone,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, w.Write(older))
	require.NoError(t, w.Write(newer))

	results, err := w.List()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, gitflow.RunID("run_newer"), results[0].RunID)
	assert.Equal(t, gitflow.RunID("run_older"), results[1].RunID)
}

func TestReportListEmpty(t *testing.T) {
	w := NewReportWriter(t.TempDir())

	results, err := w.List()
	require.NoError(t, err)
	assert.Empty(t, results)
}
