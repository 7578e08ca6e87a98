package orchestrator

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/service/git"
	"github.com/relicta-tech/flowline/internal/service/publish"
)

// fakeGit is an in-memory git.Service for orchestrator tests.
type fakeGit struct {
	branches    map[string]bool
	tags        map[string]bool
	current     string
	clean       bool
	head        string
	commits     []git.Commit
	tagOnBranch map[string]bool

	mergeErr        error
	cherryErr       error
	pushErr         error
	nothingToCommit bool

	commitMessages []string
	pushedBranches []string
	pushedTags     []string
	mergedBranches []string
	pickedCommits  [][]string
	deletedRemote  []string
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		branches:    map[string]bool{},
		tags:        map[string]bool{},
		clean:       true,
		head:        "0123456789abcdef",
		tagOnBranch: map[string]bool{},
	}
}

func tagBranchKey(tag, branch string) string {
	return tag + "@" + branch
}

func (f *fakeGit) GetRepositoryRoot(context.Context) (string, error) { return "/repo", nil }
func (f *fakeGit) IsClean(context.Context) (bool, error)             { return f.clean, nil }
func (f *fakeGit) GetCurrentBranch(context.Context) (string, error)  { return f.current, nil }
func (f *fakeGit) HeadHash(context.Context) (string, error)          { return f.head, nil }

func (f *fakeGit) BranchExists(_ context.Context, name string) (bool, error) {
	return f.branches[name], nil
}

func (f *fakeGit) CreateBranch(_ context.Context, name, _ string) error {
	if f.branches[name] {
		return flerrors.AlreadyExists("fakeGit.CreateBranch", fmt.Sprintf("branch %s exists", name))
	}
	f.branches[name] = true
	f.current = name
	return nil
}

func (f *fakeGit) Checkout(_ context.Context, branch string) error {
	if !f.branches[branch] {
		return flerrors.Git("fakeGit.Checkout", fmt.Sprintf("no branch %s", branch))
	}
	f.current = branch
	return nil
}

func (f *fakeGit) CheckoutCommit(_ context.Context, _ string) error {
	f.current = ""
	return nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, name string, opts git.DeleteBranchOptions) error {
	if opts.DryRun {
		return nil
	}
	if f.current == name {
		return flerrors.Git("fakeGit.DeleteBranch", fmt.Sprintf("cannot delete checked-out branch %s", name))
	}
	if !f.branches[name] {
		return flerrors.Git("fakeGit.DeleteBranch", fmt.Sprintf("no branch %s", name))
	}
	delete(f.branches, name)
	if opts.Remote != "" {
		f.deletedRemote = append(f.deletedRemote, name)
	}
	return nil
}

func (f *fakeGit) CommitAll(_ context.Context, message string) (string, error) {
	if f.nothingToCommit {
		return "", git.ErrNothingToCommit
	}
	f.commitMessages = append(f.commitMessages, message)
	return "deadbeef", nil
}

func (f *fakeGit) ListCommitsSince(context.Context, string) ([]git.Commit, error) {
	return f.commits, nil
}

func (f *fakeGit) TagExists(_ context.Context, name string) (bool, error) {
	return f.tags[name], nil
}

func (f *fakeGit) CreateTag(_ context.Context, name, _ string) error {
	if f.tags[name] {
		return flerrors.AlreadyExists("fakeGit.CreateTag", fmt.Sprintf("tag %s exists", name))
	}
	f.tags[name] = true
	return nil
}

func (f *fakeGit) HasTagOnBranch(_ context.Context, tag, branch string) (bool, error) {
	return f.tagOnBranch[tagBranchKey(tag, branch)], nil
}

func (f *fakeGit) LatestVersionTag(context.Context, string) (string, error) { return "", nil }

func (f *fakeGit) Push(_ context.Context, opts git.PushOptions) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushedBranches = append(f.pushedBranches, opts.Branch)
	return nil
}

func (f *fakeGit) PushTag(_ context.Context, name string, _ git.PushOptions) error {
	f.pushedTags = append(f.pushedTags, name)
	return nil
}

func (f *fakeGit) Fetch(context.Context, git.FetchOptions) error { return nil }

func (f *fakeGit) Merge(_ context.Context, branch, _ string) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.mergedBranches = append(f.mergedBranches, branch)
	return nil
}

func (f *fakeGit) CherryPick(_ context.Context, commits []string) error {
	if f.cherryErr != nil {
		return f.cherryErr
	}
	f.pickedCommits = append(f.pickedCommits, commits)
	return nil
}

// fakeEditor is an in-memory descriptor.Editor holding one version.
type fakeEditor struct {
	current version.Version
	readErr error
	changes []string
}

func (e *fakeEditor) Kind() string { return "maven" }

func (e *fakeEditor) ReadVersion(context.Context, string) (version.Version, error) {
	if e.readErr != nil {
		return version.Version{}, e.readErr
	}
	return e.current, nil
}

func (e *fakeEditor) SetVersion(_ context.Context, _ string, from, to version.Version) error {
	if !e.current.Equal(from) {
		return flerrors.Descriptor("fakeEditor.SetVersion",
			fmt.Sprintf("expected version %s, found %s", from, e.current))
	}
	e.current = to
	e.changes = append(e.changes, fmt.Sprintf("%s->%s", from, to))
	return nil
}

// fakeGateway records publish invocations.
type fakeGateway struct {
	receipt  *publish.Receipt
	err      error
	requests []publish.Request
}

func (g *fakeGateway) Name() string { return "fake" }
func (g *fakeGateway) Close() error { return nil }

func (g *fakeGateway) Publish(_ context.Context, req publish.Request) (*publish.Receipt, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if g.receipt != nil {
		return g.receipt, nil
	}
	return &publish.Receipt{ReleaseID: "rel-1"}, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestOrchestrator(t *testing.T, g *fakeGit, e *fakeEditor, gw *fakeGateway, dryRun bool) *Orchestrator {
	t.Helper()
	return New(Deps{
		Git:      g,
		Editor:   e,
		Gateway:  gw,
		Logger:   testLogger(),
		RepoRoot: t.TempDir(),
		DryRun:   dryRun,
	})
}
