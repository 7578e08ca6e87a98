package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

func recoveryFixture(t *testing.T) (*fakeGit, *fakeEditor, *fakeGateway, *Orchestrator) {
	t.Helper()
	g := newFakeGit()
	g.branches["develop"] = true
	g.branches["release/2.0.16"] = true
	g.current = "develop"
	e := &fakeEditor{current: version.MustParseRelease("2.0.16")}
	gw := &fakeGateway{}
	return g, e, gw, newTestOrchestrator(t, g, e, gw, false)
}

func recoveryRequest() RecoveryRequest {
	return RecoveryRequest{
		Branch:     "release/2.0.16",
		BaseBranch: "develop",
		TagPrefix:  "v",
	}
}

func TestRetagOnly(t *testing.T) {
	g, _, _, o := recoveryFixture(t)

	result, err := o.RetagOnly(context.Background(), recoveryRequest())
	require.NoError(t, err)

	assert.Equal(t, "retag", result.Op)
	assert.Equal(t, "v2.0.16", result.Tag)
	assert.True(t, g.tags["v2.0.16"])
	assert.Contains(t, g.pushedTags, "v2.0.16")
}

func TestRetagOnlyTagAlreadyExists(t *testing.T) {
	g, _, _, o := recoveryFixture(t)
	g.tags["v2.0.16"] = true

	_, err := o.RetagOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindAlreadyExists))
}

func TestRetagOnlyRejectsSnapshotDescriptor(t *testing.T) {
	_, e, _, o := recoveryFixture(t)
	e.current = version.MustParseRelease("2.0.16").WithSnapshot()

	_, err := o.RetagOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindPrecondition))
}

func TestRepublishOnly(t *testing.T) {
	g, _, gw, o := recoveryFixture(t)
	g.tags["v2.0.16"] = true

	result, err := o.RepublishOnly(context.Background(), recoveryRequest())
	require.NoError(t, err)

	assert.Equal(t, "republish", result.Op)
	assert.Equal(t, "rel-1", result.ReleaseID)
	require.Len(t, gw.requests, 1)
	assert.Equal(t, "2.0.16", gw.requests[0].Version.String())
}

func TestRepublishOnlyRequiresTag(t *testing.T) {
	_, _, gw, o := recoveryFixture(t)

	_, err := o.RepublishOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindPrecondition))
	assert.Empty(t, gw.requests)
}

func TestMergeOnly(t *testing.T) {
	g, _, _, o := recoveryFixture(t)
	g.tags["v2.0.16"] = true

	result, err := o.MergeOnly(context.Background(), recoveryRequest())
	require.NoError(t, err)

	assert.Equal(t, "merge", result.Op)
	assert.Equal(t, []string{"release/2.0.16"}, g.mergedBranches)
}

func TestMergeOnlyAlreadyMerged(t *testing.T) {
	g, _, _, o := recoveryFixture(t)
	g.tags["v2.0.16"] = true
	g.tagOnBranch[tagBranchKey("v2.0.16", "develop")] = true

	_, err := o.MergeOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindPrecondition))
	assert.Empty(t, g.mergedBranches)
}

func TestMergeOnlyRequiresTag(t *testing.T) {
	_, _, _, o := recoveryFixture(t)

	_, err := o.MergeOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindPrecondition))
}

func TestDeleteBranchOnlyMerged(t *testing.T) {
	g, _, _, o := recoveryFixture(t)
	g.tagOnBranch[tagBranchKey("v2.0.16", "develop")] = true

	result, err := o.DeleteBranchOnly(context.Background(), recoveryRequest())
	require.NoError(t, err)

	assert.Equal(t, "delete-branch", result.Op)
	assert.False(t, g.branches["release/2.0.16"])
}

func TestDeleteBranchOnlyUnmergedWithoutForce(t *testing.T) {
	g, _, _, o := recoveryFixture(t)

	_, err := o.DeleteBranchOnly(context.Background(), recoveryRequest())
	require.Error(t, err)
	assert.True(t, flerrors.IsKind(err, flerrors.KindPrecondition))
	assert.True(t, g.branches["release/2.0.16"])
}

func TestDeleteBranchOnlyForced(t *testing.T) {
	g, _, _, o := recoveryFixture(t)

	req := recoveryRequest()
	req.Force = true
	_, err := o.DeleteBranchOnly(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, g.branches["release/2.0.16"])
}

func TestDeleteBranchOnlyAbsentBranchIsIdempotent(t *testing.T) {
	g, _, _, o := recoveryFixture(t)
	delete(g.branches, "release/2.0.16")

	result, err := o.DeleteBranchOnly(context.Background(), recoveryRequest())
	require.NoError(t, err)
	assert.Contains(t, result.Message, "already absent")
}
