package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/input-output-hk/catalyst-forge-libs/executor"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// ErrNothingToCommit is returned by CommitAll when the worktree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// errStopIteration signals early termination of commit iteration.
var errStopIteration = errors.New("stop iteration")

// Ensure ServiceImpl implements Service.
var _ Service = (*ServiceImpl)(nil)

// ServiceImpl is the git service implementation. Read and write operations
// go through go-git; merge and cherry-pick shell out to the git CLI, which
// go-git does not implement.
type ServiceImpl struct {
	cfg      ServiceConfig
	repo     *gogit.Repository
	worktree *gogit.Worktree
	auth     transport.AuthMethod
	cli      *executor.WrappedExecutor
	root     string
}

// NewService creates a new git service.
func NewService(opts ...ServiceOption) (*ServiceImpl, error) {
	cfg := DefaultServiceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	absPath, err := filepath.Abs(cfg.RepoPath)
	if err != nil {
		return nil, flerrors.GitWrap(err, "git.NewService", "failed to get absolute path")
	}

	repo, err := gogit.PlainOpen(absPath)
	if err != nil {
		return nil, flerrors.GitWrap(err, "git.NewService", "failed to open repository")
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, flerrors.GitWrap(err, "git.NewService", "failed to get worktree")
	}

	return &ServiceImpl{
		cfg:      cfg,
		repo:     repo,
		worktree: worktree,
		auth:     cfg.Auth,
		cli:      executor.NewWrappedExecutor("git"),
		root:     worktree.Filesystem.Root(),
	}, nil
}

// GetRepositoryRoot returns the absolute path to the repository root.
func (s *ServiceImpl) GetRepositoryRoot(_ context.Context) (string, error) {
	return s.root, nil
}

// IsClean returns true if the working tree has no uncommitted changes.
// Files under the state directory (lock files, run reports) do not count.
func (s *ServiceImpl) IsClean(_ context.Context) (bool, error) {
	const op = "git.IsClean"

	status, err := s.worktree.Status()
	if err != nil {
		return false, flerrors.GitWrap(err, op, "failed to get worktree status")
	}

	return len(pendingPaths(status)) == 0, nil
}

// stateDirPrefix is the run-state directory holding lock files and
// reports. It never belongs in a commit.
const stateDirPrefix = ".flowline/"

// pendingPaths returns the changed worktree paths outside the state
// directory, sorted.
func pendingPaths(status gogit.Status) []string {
	var paths []string
	for path, st := range status {
		if strings.HasPrefix(path, stateDirPrefix) {
			continue
		}
		if st.Worktree == gogit.Unmodified && st.Staging == gogit.Unmodified {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GetCurrentBranch returns the current branch name.
func (s *ServiceImpl) GetCurrentBranch(_ context.Context) (string, error) {
	const op = "git.GetCurrentBranch"

	head, err := s.repo.Head()
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to get HEAD")
	}

	if !head.Name().IsBranch() {
		return "", flerrors.Git(op, "HEAD is not on a branch (detached HEAD)")
	}

	return head.Name().Short(), nil
}

// HeadHash returns the commit hash HEAD points to.
func (s *ServiceImpl) HeadHash(_ context.Context) (string, error) {
	const op = "git.HeadHash"

	head, err := s.repo.Head()
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to get HEAD")
	}

	return head.Hash().String(), nil
}

// BranchExists reports whether a local branch exists.
func (s *ServiceImpl) BranchExists(_ context.Context, name string) (bool, error) {
	_, err := s.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, flerrors.GitWrap(err, "git.BranchExists", "failed to look up branch")
	}
	return true, nil
}

// CreateBranch creates a new branch at the given start point and checks
// it out.
func (s *ServiceImpl) CreateBranch(ctx context.Context, name, startPoint string) error {
	const op = "git.CreateBranch"

	exists, err := s.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return flerrors.AlreadyExists(op, fmt.Sprintf("branch %s already exists", name))
	}

	if startPoint != "" {
		hash, err := s.resolveRef(startPoint)
		if err != nil {
			return flerrors.GitWrap(err, op, fmt.Sprintf("failed to resolve start point %s", startPoint))
		}
		if err := s.worktree.Checkout(&gogit.CheckoutOptions{Hash: hash}); err != nil {
			return flerrors.GitWrap(err, op, fmt.Sprintf("failed to check out start point %s", startPoint))
		}
	}

	err = s.worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to create branch %s", name))
	}
	return nil
}

// Checkout switches the worktree to the given branch.
func (s *ServiceImpl) Checkout(_ context.Context, branch string) error {
	const op = "git.Checkout"

	err := s.worktree.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to check out %s", branch))
	}
	return nil
}

// CheckoutCommit detaches the worktree at the commit a ref resolves to.
func (s *ServiceImpl) CheckoutCommit(_ context.Context, ref string) error {
	const op = "git.CheckoutCommit"

	hash, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to resolve %s", ref))
	}
	if err := s.worktree.Checkout(&gogit.CheckoutOptions{Hash: *hash}); err != nil {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to check out %s", ref))
	}
	return nil
}

// DeleteBranch deletes a local branch, and the matching remote branch
// when opts.Remote is set.
func (s *ServiceImpl) DeleteBranch(ctx context.Context, name string, opts DeleteBranchOptions) error {
	const op = "git.DeleteBranch"

	if opts.DryRun {
		return nil
	}

	current, err := s.GetCurrentBranch(ctx)
	if err == nil && current == name {
		return flerrors.Git(op, fmt.Sprintf("cannot delete checked-out branch %s", name))
	}

	refName := plumbing.NewBranchReferenceName(name)
	if err := s.repo.Storer.RemoveReference(refName); err != nil {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to delete branch %s", name))
	}

	if opts.Remote == "" {
		return nil
	}

	refSpec := config.RefSpec(fmt.Sprintf(":refs/heads/%s", name))
	err = s.repo.Push(&gogit.PushOptions{
		RemoteName: opts.Remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       s.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to delete remote branch %s", name))
	}
	return nil
}

// CommitAll stages every change and commits it. Returns ErrNothingToCommit
// when the worktree holds no changes.
func (s *ServiceImpl) CommitAll(_ context.Context, message string) (string, error) {
	const op = "git.CommitAll"

	status, err := s.worktree.Status()
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to get worktree status")
	}
	paths := pendingPaths(status)
	if len(paths) == 0 {
		return "", ErrNothingToCommit
	}

	for _, path := range paths {
		if _, err := s.worktree.Add(path); err != nil {
			return "", flerrors.GitWrap(err, op, fmt.Sprintf("failed to stage %s", path))
		}
	}

	hash, err := s.worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  s.cfg.CommitterName,
			Email: s.cfg.CommitterEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to commit")
	}

	return hash.String(), nil
}

// ListCommitsSince returns the commits on the current branch that are not
// reachable from ref, oldest first.
func (s *ServiceImpl) ListCommitsSince(ctx context.Context, ref string) ([]Commit, error) {
	const op = "git.ListCommitsSince"

	refHash, err := s.resolveRef(ref)
	if err != nil {
		return nil, flerrors.GitWrap(err, op, fmt.Sprintf("failed to resolve reference %s", ref))
	}

	head, err := s.repo.Head()
	if err != nil {
		return nil, flerrors.GitWrap(err, op, "failed to get HEAD")
	}

	iter, err := s.repo.Log(&gogit.LogOptions{
		From:  head.Hash(),
		Order: gogit.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, flerrors.GitWrap(err, op, "failed to get log iterator")
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.Hash == refHash {
			return errStopIteration
		}
		subject := c.Message
		if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
			subject = subject[:idx]
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Subject: strings.TrimSpace(subject),
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		if ctx.Err() != nil {
			return nil, flerrors.GitWrap(ctx.Err(), op, "operation canceled")
		}
		return nil, flerrors.GitWrap(err, op, "failed to iterate commits")
	}

	// Log order is newest first; callers apply in history order.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}

	return commits, nil
}

// TagExists reports whether a tag exists locally.
func (s *ServiceImpl) TagExists(_ context.Context, name string) (bool, error) {
	_, err := s.repo.Tag(name)
	if err != nil {
		if errors.Is(err, gogit.ErrTagNotFound) {
			return false, nil
		}
		return false, flerrors.GitWrap(err, "git.TagExists", "failed to look up tag")
	}
	return true, nil
}

// CreateTag creates an annotated tag at HEAD.
func (s *ServiceImpl) CreateTag(_ context.Context, name, message string) error {
	const op = "git.CreateTag"

	head, err := s.repo.Head()
	if err != nil {
		return flerrors.GitWrap(err, op, "failed to get HEAD")
	}

	_, err = s.repo.CreateTag(name, head.Hash(), &gogit.CreateTagOptions{
		Message: message,
		Tagger: &object.Signature{
			Name:  s.cfg.CommitterName,
			Email: s.cfg.CommitterEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, gogit.ErrTagExists) {
			return flerrors.AlreadyExists(op, fmt.Sprintf("tag %s already exists", name))
		}
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to create tag %s", name))
	}
	return nil
}

// HasTagOnBranch reports whether the commit a tag points to is reachable
// from the given branch.
func (s *ServiceImpl) HasTagOnBranch(_ context.Context, tag, branch string) (bool, error) {
	const op = "git.HasTagOnBranch"

	tagHash, err := s.resolveTagCommit(tag)
	if err != nil {
		return false, flerrors.GitWrap(err, op, fmt.Sprintf("failed to resolve tag %s", tag))
	}

	branchHash, err := s.resolveRef(branch)
	if err != nil {
		return false, flerrors.GitWrap(err, op, fmt.Sprintf("failed to resolve branch %s", branch))
	}

	tagCommit, err := s.repo.CommitObject(tagHash)
	if err != nil {
		return false, flerrors.GitWrap(err, op, "failed to get tag commit")
	}
	branchCommit, err := s.repo.CommitObject(branchHash)
	if err != nil {
		return false, flerrors.GitWrap(err, op, "failed to get branch commit")
	}

	reachable, err := tagCommit.IsAncestor(branchCommit)
	if err != nil {
		return false, flerrors.GitWrap(err, op, "failed to walk ancestry")
	}
	return reachable, nil
}

// versionTag pairs a tag name with its parsed version for sorting.
type versionTag struct {
	name    string
	version *semver.Version
}

// LatestVersionTag returns the highest semver tag with the prefix.
func (s *ServiceImpl) LatestVersionTag(_ context.Context, prefix string) (string, error) {
	const op = "git.LatestVersionTag"

	iter, err := s.repo.Tags()
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to get tags iterator")
	}
	defer iter.Close()

	var tags []versionTag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			return nil
		}
		if v, parseErr := semver.NewVersion(strings.TrimPrefix(name, prefix)); parseErr == nil {
			tags = append(tags, versionTag{name: name, version: v})
		}
		return nil
	})
	if err != nil {
		return "", flerrors.GitWrap(err, op, "failed to iterate tags")
	}

	if len(tags) == 0 {
		return "", nil
	}

	sort.Slice(tags, func(i, j int) bool {
		return tags[i].version.GreaterThan(tags[j].version)
	})
	return tags[0].name, nil
}

// Push pushes the given refspecs to the remote.
func (s *ServiceImpl) Push(_ context.Context, opts PushOptions) error {
	const op = "git.Push"

	if opts.DryRun {
		return nil
	}

	remote := opts.Remote
	if remote == "" {
		remote = s.cfg.DefaultRemote
	}

	pushOpts := &gogit.PushOptions{
		RemoteName: remote,
		Auth:       s.auth,
	}

	if opts.Branch != "" {
		spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", opts.Branch, opts.Branch)
		if opts.Delete {
			spec = fmt.Sprintf(":refs/heads/%s", opts.Branch)
		}
		pushOpts.RefSpecs = []config.RefSpec{config.RefSpec(spec)}
	}

	err := s.repo.Push(pushOpts)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return flerrors.GitWrap(err, op, "failed to push")
	}
	return nil
}

// PushTag pushes a single tag to the remote.
func (s *ServiceImpl) PushTag(_ context.Context, name string, opts PushOptions) error {
	const op = "git.PushTag"

	if opts.DryRun {
		return nil
	}

	remote := opts.Remote
	if remote == "" {
		remote = s.cfg.DefaultRemote
	}

	refSpec := config.RefSpec(fmt.Sprintf("refs/tags/%s:refs/tags/%s", name, name))
	err := s.repo.Push(&gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       s.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return flerrors.GitWrap(err, op, fmt.Sprintf("failed to push tag %s", name))
	}
	return nil
}

// Fetch fetches from the remote.
func (s *ServiceImpl) Fetch(_ context.Context, opts FetchOptions) error {
	const op = "git.Fetch"

	remote := opts.Remote
	if remote == "" {
		remote = s.cfg.DefaultRemote
	}

	fetchOpts := &gogit.FetchOptions{
		RemoteName: remote,
		Auth:       s.auth,
		Prune:      opts.Prune,
	}
	if opts.Tags {
		fetchOpts.Tags = gogit.AllTags
	}

	err := s.repo.Fetch(fetchOpts)
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return flerrors.GitWrap(err, op, "failed to fetch")
	}
	return nil
}

// Merge merges the given branch into the current branch with a merge
// commit. go-git has no merge support, so this shells out.
func (s *ServiceImpl) Merge(ctx context.Context, branch, message string) error {
	const op = "git.Merge"

	result, err := s.cli.Execute(ctx, []string{"merge", "--no-ff", "-m", message, branch},
		executor.WithWorkingDir(s.root))
	if err == nil {
		return nil
	}

	paths, pathsErr := s.conflictingPaths(ctx)
	if pathsErr != nil || len(paths) == 0 {
		return flerrors.GitWrap(err, op, strings.TrimSpace(stderrOf(result)))
	}

	// Leave the worktree clean for the caller.
	if _, abortErr := s.cli.Execute(ctx, []string{"merge", "--abort"},
		executor.WithWorkingDir(s.root)); abortErr != nil {
		return flerrors.GitWrap(abortErr, op, "merge conflicted and abort failed; repository needs manual cleanup")
	}

	return flerrors.Conflict(op, fmt.Sprintf("merge of %s conflicted", branch), paths)
}

// CherryPick applies the given commits onto the current branch. A conflict
// aborts the pick and reports the conflicting paths.
func (s *ServiceImpl) CherryPick(ctx context.Context, commits []string) error {
	const op = "git.CherryPick"

	if len(commits) == 0 {
		return nil
	}

	args := append([]string{"cherry-pick", "-x"}, commits...)
	result, err := s.cli.Execute(ctx, args, executor.WithWorkingDir(s.root))
	if err == nil {
		return nil
	}

	paths, pathsErr := s.conflictingPaths(ctx)
	if pathsErr != nil || len(paths) == 0 {
		return flerrors.GitWrap(err, op, strings.TrimSpace(stderrOf(result)))
	}

	if _, abortErr := s.cli.Execute(ctx, []string{"cherry-pick", "--abort"},
		executor.WithWorkingDir(s.root)); abortErr != nil {
		return flerrors.GitWrap(abortErr, op, "cherry-pick conflicted and abort failed; repository needs manual cleanup")
	}

	return flerrors.Conflict(op, "cherry-pick conflicted", paths)
}

// conflictingPaths lists unmerged paths in the worktree.
func (s *ServiceImpl) conflictingPaths(ctx context.Context) ([]string, error) {
	result, err := s.cli.Execute(ctx, []string{"diff", "--name-only", "--diff-filter=U"},
		executor.WithWorkingDir(s.root))
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func stderrOf(result *executor.Result) string {
	if result == nil {
		return ""
	}
	return result.Stderr
}

// resolveRef resolves a tag, branch, or commit hash to a hash.
func (s *ServiceImpl) resolveRef(ref string) (plumbing.Hash, error) {
	if plumbing.IsHash(ref) {
		return plumbing.NewHash(ref), nil
	}

	resolved, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve reference %s: %w", ref, err)
	}
	return *resolved, nil
}

// resolveTagCommit resolves a tag name to the commit it points at,
// peeling annotated tag objects.
func (s *ServiceImpl) resolveTagCommit(name string) (plumbing.Hash, error) {
	ref, err := s.repo.Tag(name)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if tagObj, err := s.repo.TagObject(ref.Hash()); err == nil {
		commit, err := tagObj.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return commit.Hash, nil
	}

	return ref.Hash(), nil
}
