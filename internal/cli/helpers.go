package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/orchestrator"
	"github.com/relicta-tech/flowline/internal/service/descriptor"
	"github.com/relicta-tech/flowline/internal/service/git"
	"github.com/relicta-tech/flowline/internal/service/publish"
	"github.com/relicta-tech/flowline/internal/ui"
)

// buildOrchestrator wires the orchestrator from the loaded configuration.
// The returned cleanup closes the publisher plugin.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, func(), error) {
	auth, err := git.NewAuthMethod(git.AuthOptions{
		Token:      cfg.Git.Auth.Token,
		Username:   cfg.Git.Auth.Username,
		Password:   cfg.Git.Auth.Password,
		SSHKeyPath: cfg.Git.Auth.SSHKeyPath,
	})
	if err != nil {
		return nil, nil, err
	}

	svc, err := git.NewService(
		git.WithRepoPath("."),
		git.WithDefaultRemote(cfg.Git.DefaultRemote),
		git.WithCommitter(cfg.Git.CommitterName, cfg.Git.CommitterEmail),
		git.WithAuth(auth),
	)
	if err != nil {
		return nil, nil, err
	}

	repoRoot, err := svc.GetRepositoryRoot(ctx)
	if err != nil {
		return nil, nil, err
	}

	kind := cfg.Descriptor.Kind
	if kind == "auto" {
		kind = ""
	}
	editor, err := descriptor.ForKind(repoRoot, kind)
	if err != nil {
		return nil, nil, err
	}

	var gateway publish.Gateway = publish.NewPluginGateway(publish.PluginConfig{
		Name:    cfg.Publisher.Name,
		Path:    cfg.Publisher.Path,
		Config:  cfg.Publisher.Config,
		Timeout: cfg.Publisher.Timeout,
	})
	if cfg.Workflow.ConfirmPublish && !ciMode && !outputJSON {
		gateway = &confirmingGateway{inner: gateway}
	}

	o := orchestrator.New(orchestrator.Deps{
		Git:      git.NewResilientService(svc, git.DefaultRetryConfig()),
		Editor:   editor,
		Gateway:  gateway,
		Locks:    orchestrator.NewFileLockManager(repoRoot),
		Reports:  orchestrator.NewReportWriter(repoRoot),
		Logger:   logger,
		RepoRoot: repoRoot,
		Remote:   cfg.Git.DefaultRemote,
		DryRun:   dryRun || cfg.Workflow.DryRunByDefault,

		SkipCleanCheck: !cfg.Workflow.RequireCleanWorkingTree,
	})

	cleanup := func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("failed to close publisher", "error", err)
		}
	}
	return o, cleanup, nil
}

// currentBranch reads the checked-out branch for flag defaulting.
func currentBranch(ctx context.Context) (string, error) {
	svc, err := git.NewService(git.WithRepoPath("."))
	if err != nil {
		return "", err
	}
	return svc.GetCurrentBranch(ctx)
}

// fetchBeforeRun refreshes remote state when the workflow asks for it.
func fetchBeforeRun(ctx context.Context) {
	if !cfg.Workflow.FetchBeforeRun {
		return
	}
	svc, err := git.NewService(git.WithRepoPath("."), git.WithDefaultRemote(cfg.Git.DefaultRemote))
	if err != nil {
		return
	}
	opts := git.DefaultFetchOptions()
	opts.Remote = cfg.Git.DefaultRemote
	if err := git.NewResilientService(svc, git.DefaultRetryConfig()).Fetch(ctx, opts); err != nil {
		logger.Warn("fetch failed, continuing with local state", "error", err)
	}
}

// confirmingGateway asks the operator before delegating the publish.
type confirmingGateway struct {
	inner publish.Gateway
}

func (g *confirmingGateway) Name() string { return g.inner.Name() }
func (g *confirmingGateway) Close() error { return g.inner.Close() }

func (g *confirmingGateway) Publish(ctx context.Context, req publish.Request) (*publish.Receipt, error) {
	approved, err := ui.ConfirmPublish(ui.PublishSummary{
		Version:   req.Version.String(),
		Tag:       req.TagName,
		Branch:    req.Branch,
		Publisher: g.inner.Name(),
		GroupID:   req.Artifact.GroupID,
		Artifacts: req.Artifact.ArtifactIDs,
		DryRun:    req.DryRun,
	})
	if err != nil {
		return nil, flerrors.Wrap(err, flerrors.KindInternal, "cli.confirmPublish", "confirmation prompt failed")
	}
	if !approved {
		return nil, flerrors.Precondition("cli.confirmPublish", "publish declined by operator")
	}
	return g.inner.Publish(ctx, req)
}

// artifactFromConfig builds the artifact descriptor for reports.
func artifactFromConfig() gitflow.ArtifactDescriptor {
	return gitflow.ArtifactDescriptor{
		GroupID:     cfg.Artifact.GroupID,
		ArtifactIDs: cfg.Artifact.ArtifactIDs,
	}
}

// renderRunResult prints a run result as JSON or styled text.
func renderRunResult(result gitflow.Result) error {
	if outputJSON {
		return printJSON(result)
	}

	fmt.Println()
	switch {
	case result.Succeeded():
		printSuccess(fmt.Sprintf("%s run %s completed", result.Kind, result.RunID))
	case result.FinalState == gitflow.StatePartiallyMerged:
		printWarning(fmt.Sprintf("%s run %s partially merged", result.Kind, result.RunID))
	default:
		printError(fmt.Sprintf("%s run %s failed after %s", result.Kind, result.RunID, result.LastCompleted))
	}

	printField("Branch", result.Branch)
	printField("Version", result.Version)
	printField("Tag", tagLine(result))
	printField("Next version", result.NextVersion)
	printField("Release ID", result.ReleaseID)
	if result.ErrorKind != "" {
		printField("Error", fmt.Sprintf("%s: %s", result.ErrorKind, result.ErrorMessage))
	}
	if len(result.ConflictingPaths) > 0 {
		printField("Conflicts", strings.Join(result.ConflictingPaths, ", "))
	}
	if result.DryRun {
		printInfo(styles.Subtle.Render("dry run: no side effects were performed"))
	}

	switch result.FinalState {
	case gitflow.StatePartiallyMerged:
		printWarning("Tag and publish succeeded. Complete the cherry-pick by hand, then run 'flowline recover delete-branch'.")
	case gitflow.StateFailed:
		printInfo(styles.Subtle.Render(fmt.Sprintf(
			"Nothing beyond %q happened. See 'flowline recover --help' to resume.", result.LastCompleted)))
	}
	return nil
}

func tagLine(result gitflow.Result) string {
	if result.Tag == "" {
		return ""
	}
	if result.TagCreated {
		return result.Tag
	}
	return result.Tag + " (not created)"
}

// renderRecoveryResult prints a recovery result as JSON or styled text.
func renderRecoveryResult(result orchestrator.RecoveryResult) error {
	if outputJSON {
		return printJSON(result)
	}

	fmt.Println()
	printSuccess(fmt.Sprintf("recover %s completed", result.Op))
	printField("Branch", result.Branch)
	printField("Tag", result.Tag)
	printField("Release ID", result.ReleaseID)
	printField("Detail", result.Message)
	if result.DryRun {
		printInfo(styles.Subtle.Render("dry run: no side effects were performed"))
	}
	return nil
}

func printField(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("  %s %s\n", styles.Subtle.Render(fmt.Sprintf("%-13s", label+":")), value)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
