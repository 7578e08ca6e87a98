package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	"github.com/relicta-tech/flowline/internal/orchestrator"
)

var (
	releaseStartBase    string
	releaseStartVersion string

	releaseFinishBranch    string
	releaseFinishBase      string
	releaseNextIncrement   string
	releaseNextVersionFlag string
)

func init() {
	releaseStartCmd.Flags().StringVar(&releaseStartBase, "base", "", "base branch to cut from (default: gitflow.base_branch)")
	releaseStartCmd.Flags().StringVar(&releaseStartVersion, "version", "", "release version override (default: base descriptor version)")

	releaseFinishCmd.Flags().StringVar(&releaseFinishBranch, "branch", "", "release branch to finish (default: current branch)")
	releaseFinishCmd.Flags().StringVar(&releaseFinishBase, "base", "", "branch to merge back into (default: gitflow.base_branch)")
	releaseFinishCmd.Flags().StringVar(&releaseNextIncrement, "next-increment", "", "next version increment: major, minor or patch (default: gitflow.next_increment)")
	releaseFinishCmd.Flags().StringVar(&releaseNextVersionFlag, "next-version", "", "explicit next development version (must carry -SNAPSHOT)")

	releaseCmd.AddCommand(releaseStartCmd)
	releaseCmd.AddCommand(releaseFinishCmd)
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Start and finish release branches",
}

var releaseStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Cut a release branch from the base branch",
	RunE:  runReleaseStart,
}

var releaseFinishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finalize, tag, publish and merge back a release branch",
	RunE:  runReleaseFinish,
}

func runReleaseStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts := orchestrator.StartReleaseOptions{BaseBranch: releaseStartBase}
	if opts.BaseBranch == "" {
		opts.BaseBranch = cfg.Gitflow.BaseBranch
	}
	if releaseStartVersion != "" {
		v, err := version.ParseRelease(releaseStartVersion)
		if err != nil {
			return err
		}
		opts.Version = &v
	}

	o, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	fetchBeforeRun(ctx)

	ref, err := o.StartRelease(ctx, opts)
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(map[string]string{
			"branch":       ref.Name,
			"base_version": ref.BaseVersion.String(),
		})
	}
	printSuccess(fmt.Sprintf("Created %s (from %s)", ref.Name, ref.BaseVersion))
	printInfo(fmt.Sprintf("When the release is ready: flowline release finish --branch %s", ref.Name))
	return nil
}

func runReleaseFinish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := buildReleaseRequest(ctx)
	if err != nil {
		return err
	}

	o, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	fetchBeforeRun(ctx)

	result, runErr := o.FinishRelease(ctx, req)
	if err := renderRunResult(result); err != nil {
		return err
	}
	return runErr
}

// buildReleaseRequest resolves flags and configuration into a finish request.
func buildReleaseRequest(ctx context.Context) (gitflow.ReleaseRequest, error) {
	branch := releaseFinishBranch
	if branch == "" {
		current, err := currentBranch(ctx)
		if err != nil {
			return gitflow.ReleaseRequest{}, err
		}
		branch = current
	}

	base := releaseFinishBase
	if base == "" {
		base = cfg.Gitflow.BaseBranch
	}

	policy, err := nextVersionPolicy(releaseNextVersionFlag, releaseNextIncrement)
	if err != nil {
		return gitflow.ReleaseRequest{}, err
	}

	return gitflow.ReleaseRequest{
		BranchName:  branch,
		BaseBranch:  base,
		TagPrefix:   cfg.Gitflow.TagPrefix,
		NextVersion: policy,
		Artifact:    artifactFromConfig(),
	}, nil
}

// nextVersionPolicy builds the policy from an explicit version flag or an
// increment name, falling back to the configured increment.
func nextVersionPolicy(explicit, increment string) (gitflow.NextVersionPolicy, error) {
	if explicit != "" {
		v, err := version.ParseRelease(explicit)
		if err != nil {
			return gitflow.NextVersionPolicy{}, err
		}
		return gitflow.NextVersionPolicy{Explicit: &v}, nil
	}
	if increment == "" {
		increment = cfg.Gitflow.NextIncrement
	}
	field, err := version.ParseField(increment)
	if err != nil {
		return gitflow.NextVersionPolicy{}, err
	}
	return gitflow.NextVersionPolicy{Increment: field}, nil
}
