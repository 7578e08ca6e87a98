package integration

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/orchestrator"
	"github.com/relicta-tech/flowline/internal/service/descriptor"
	"github.com/relicta-tech/flowline/internal/service/git"
	"github.com/relicta-tech/flowline/internal/service/publish"
)

// recordingGateway is an in-process publisher that records every request.
type recordingGateway struct {
	mu       sync.Mutex
	err      error
	requests []publish.Request
}

func (g *recordingGateway) Name() string { return "integration-test" }

func (g *recordingGateway) Publish(_ context.Context, req publish.Request) (*publish.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &publish.Receipt{ReleaseID: "rel-123"}, nil
}

func (g *recordingGateway) Close() error { return nil }

func (g *recordingGateway) setError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *recordingGateway) published() []publish.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]publish.Request(nil), g.requests...)
}

func newOrchestrator(t *testing.T, repo *TestRepo, gw publish.Gateway) *orchestrator.Orchestrator {
	t.Helper()

	svc, err := git.NewService(git.WithRepoPath(repo.Dir))
	require.NoError(t, err)

	editor, err := descriptor.ForKind(repo.Dir, "maven")
	require.NoError(t, err)

	return orchestrator.New(orchestrator.Deps{
		Git:      svc,
		Editor:   editor,
		Gateway:  gw,
		Locks:    orchestrator.NewFileLockManager(repo.Dir),
		Reports:  orchestrator.NewReportWriter(repo.Dir),
		Logger:   log.New(io.Discard),
		RepoRoot: repo.Dir,
		Remote:   "origin",
	})
}

func TestReleaseFlowEndToEnd(t *testing.T) {
	repo := NewTestRepo(t, "develop")
	repo.WritePom("2.1.0-SNAPSHOT")
	repo.Commit("initial")
	repo.Push("develop")

	gw := &recordingGateway{}
	o := newOrchestrator(t, repo, gw)
	ctx := context.Background()

	ref, err := o.StartRelease(ctx, orchestrator.StartReleaseOptions{BaseBranch: "develop"})
	require.NoError(t, err)
	assert.Equal(t, "release/2.1.0", ref.Name)
	assert.True(t, repo.RemoteHasBranch("release/2.1.0"))

	result, err := o.FinishRelease(ctx, gitflow.ReleaseRequest{
		BranchName:  "release/2.1.0",
		BaseBranch:  "develop",
		TagPrefix:   "v",
		NextVersion: gitflow.NextVersionPolicy{Increment: version.FieldMinor},
		Artifact:    gitflow.ArtifactDescriptor{GroupID: "com.example.payments", ArtifactIDs: []string{"payments-core"}},
	})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, gitflow.StateDone, result.FinalState)
	assert.Equal(t, "2.1.0", result.Version)
	assert.Equal(t, "v2.1.0", result.Tag)
	assert.True(t, result.TagCreated)
	assert.Equal(t, "rel-123", result.ReleaseID)
	assert.Equal(t, "2.2.0-SNAPSHOT", result.NextVersion)

	// The base branch carries the next development version.
	assert.Contains(t, repo.FileContent("pom.xml"), "2.2.0-SNAPSHOT")

	// Tag exists, branch is gone locally and on the remote.
	assert.Contains(t, repo.Git("tag", "--list", "v2.1.0"), "v2.1.0")
	assert.Empty(t, strings.TrimSpace(repo.Git("branch", "--list", "release/2.1.0")))
	assert.False(t, repo.RemoteHasBranch("release/2.1.0"))

	// Exactly one publish with the finalized version.
	requests := gw.published()
	require.Len(t, requests, 1)
	assert.Equal(t, "2.1.0", requests[0].Version.String())
	assert.Equal(t, "release/2.1.0", requests[0].Branch)
	assert.NotEmpty(t, requests[0].CommitSHA)

	// The run report is persisted and readable.
	report, err := orchestrator.NewReportWriter(repo.Dir).Read(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, gitflow.StateDone, report.FinalState)
}

func TestReleasePublishFailureAndRecovery(t *testing.T) {
	repo := NewTestRepo(t, "develop")
	repo.WritePom("2.1.0-SNAPSHOT")
	repo.Commit("initial")
	repo.Push("develop")

	gw := &recordingGateway{}
	gw.setError(flerrors.Publish("integration.gateway", "registry unavailable"))
	o := newOrchestrator(t, repo, gw)
	ctx := context.Background()

	_, err := o.StartRelease(ctx, orchestrator.StartReleaseOptions{BaseBranch: "develop"})
	require.NoError(t, err)

	result, err := o.FinishRelease(ctx, gitflow.ReleaseRequest{
		BranchName:  "release/2.1.0",
		BaseBranch:  "develop",
		TagPrefix:   "v",
		NextVersion: gitflow.NextVersionPolicy{Increment: version.FieldMinor},
	})
	require.Error(t, err)

	// The run halts after tagging. Tag and branch both survive so the
	// operator can resume.
	assert.Equal(t, gitflow.StateFailed, result.FinalState)
	assert.Equal(t, gitflow.StateTagged, result.LastCompleted)
	assert.True(t, result.RequiresManualAction())
	assert.Contains(t, repo.Git("tag", "--list", "v2.1.0"), "v2.1.0")
	assert.NotEmpty(t, strings.TrimSpace(repo.Git("branch", "--list", "release/2.1.0")))

	// Recover step by step once the registry is back.
	gw.setError(nil)
	req := orchestrator.RecoveryRequest{Branch: "release/2.1.0", BaseBranch: "develop", TagPrefix: "v"}

	republished, err := o.RepublishOnly(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "rel-123", republished.ReleaseID)

	_, err = o.MergeOnly(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, repo.FileContent("pom.xml"), "<version>2.1.0</version>")

	deleted, err := o.DeleteBranchOnly(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "delete-branch", deleted.Op)
	assert.Empty(t, strings.TrimSpace(repo.Git("branch", "--list", "release/2.1.0")))
	assert.False(t, repo.RemoteHasBranch("release/2.1.0"))
}

func TestHotfixFlowEndToEnd(t *testing.T) {
	repo := NewTestRepo(t, "main")
	repo.WritePom("2.0.15")
	repo.Commit("release 2.0.15")
	repo.Tag("v2.0.15")
	repo.Push("main")
	repo.Git("push", "origin", "v2.0.15")

	repo.Git("checkout", "-b", "develop")
	repo.WritePom("2.1.0-SNAPSHOT")
	repo.Commit("develop snapshot")
	repo.Push("develop")

	gw := &recordingGateway{}
	o := newOrchestrator(t, repo, gw)
	ctx := context.Background()

	ref, err := o.StartHotfix(ctx, orchestrator.StartHotfixOptions{BaseTag: "v2.0.15", TagPrefix: "v"})
	require.NoError(t, err)
	assert.Equal(t, "hotfix/2.0.15.1", ref.Name)
	assert.Contains(t, repo.FileContent("pom.xml"), "2.0.15.1-SNAPSHOT")

	repo.WriteFile("src/fix.txt", "rounding fixed\n")
	repo.Commit("Fix rounding in invoice totals")

	result, err := o.FinishHotfix(ctx, gitflow.HotfixRequest{
		BranchName:  "hotfix/2.0.15.1",
		BaseBranch:  "develop",
		TagPrefix:   "v",
		BaseTag:     "v2.0.15",
		MergeToBase: true,
	})
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, "v2.0.15.1", result.Tag)
	assert.Equal(t, "2.0.15.1", result.Version)

	// The fix landed on develop, the version commits did not.
	assert.Equal(t, "develop", strings.TrimSpace(repo.Git("branch", "--show-current")))
	assert.Contains(t, repo.FileContent("src/fix.txt"), "rounding fixed")
	assert.Contains(t, repo.FileContent("pom.xml"), "2.1.0-SNAPSHOT")

	assert.Contains(t, repo.Git("tag", "--list", "v2.0.15.1"), "v2.0.15.1")
	assert.Empty(t, strings.TrimSpace(repo.Git("branch", "--list", "hotfix/2.0.15.1")))

	requests := gw.published()
	require.Len(t, requests, 1)
	assert.Equal(t, "2.0.15.1", requests[0].Version.String())
}
