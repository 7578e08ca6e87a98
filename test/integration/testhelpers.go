// Package integration provides end-to-end tests against real repositories.
package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestRepo is a temporary git repository with a bare origin remote, laid
// out the way the orchestrator expects to find a Maven project.
type TestRepo struct {
	t         testing.TB
	Dir       string
	RemoteDir string
}

// NewTestRepo creates a work repository on the given initial branch and a
// bare remote named origin. Both are removed when the test completes.
func NewTestRepo(t testing.TB, initialBranch string) *TestRepo {
	t.Helper()
	RequireGit(t)

	repo := &TestRepo{
		t:         t,
		Dir:       t.TempDir(),
		RemoteDir: t.TempDir(),
	}

	runGit(t, repo.RemoteDir, "init", "--bare", "--initial-branch="+initialBranch)

	repo.Git("init", "--initial-branch="+initialBranch)
	repo.Git("config", "user.email", "test@example.com")
	repo.Git("config", "user.name", "Test User")
	repo.Git("config", "commit.gpgsign", "false")
	repo.Git("remote", "add", "origin", repo.RemoteDir)
	return repo
}

// RequireGit skips the test when the git CLI is not installed.
func RequireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// Git runs a git command in the work repository and fails the test on
// error.
func (r *TestRepo) Git(args ...string) string {
	r.t.Helper()
	return runGit(r.t, r.Dir, args...)
}

func runGit(t testing.TB, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\noutput: %s", args, err, output)
	}
	return string(output)
}

// WriteFile writes a file relative to the repository root.
func (r *TestRepo) WriteFile(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		r.t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		r.t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WritePom writes a minimal Maven descriptor carrying the given version.
func (r *TestRepo) WritePom(version string) {
	r.t.Helper()
	r.WriteFile("pom.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <modelVersion>4.0.0</modelVersion>
  <groupId>com.example.payments</groupId>
  <artifactId>payments-core</artifactId>
  <version>%s</version>
</project>
`, version))
}

// Commit stages everything and commits, returning the commit hash.
func (r *TestRepo) Commit(message string) string {
	r.t.Helper()
	r.Git("add", "-A")
	r.Git("commit", "-m", message, "--allow-empty")
	return r.Git("rev-parse", "HEAD")
}

// Tag creates an annotated tag at HEAD.
func (r *TestRepo) Tag(name string) {
	r.t.Helper()
	r.Git("tag", "-a", name, "-m", name)
}

// Push pushes a branch to the bare remote.
func (r *TestRepo) Push(branch string) {
	r.t.Helper()
	r.Git("push", "-u", "origin", branch)
}

// RemoteHasBranch reports whether the bare remote holds the branch.
func (r *TestRepo) RemoteHasBranch(branch string) bool {
	r.t.Helper()
	out := runGit(r.t, r.RemoteDir, "branch", "--list", branch)
	return out != ""
}

// FileContent reads a file from the work repository.
func (r *TestRepo) FileContent(path string) string {
	r.t.Helper()
	data, err := os.ReadFile(filepath.Join(r.Dir, path))
	if err != nil {
		r.t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
