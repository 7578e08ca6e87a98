package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/flowline/internal/domain/gitflow"
	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/orchestrator"
)

var (
	hotfixStartTag string

	hotfixFinishBranch string
	hotfixFinishBase   string
	hotfixFinishTag    string
	hotfixMergeToBase  bool
)

func init() {
	hotfixStartCmd.Flags().StringVar(&hotfixStartTag, "tag", "", "production tag to cut the hotfix from (required)")

	hotfixFinishCmd.Flags().StringVar(&hotfixFinishBranch, "branch", "", "hotfix branch to finish (default: current branch)")
	hotfixFinishCmd.Flags().StringVar(&hotfixFinishBase, "base", "", "branch to cherry-pick fixes onto (default: gitflow.production_branch)")
	hotfixFinishCmd.Flags().StringVar(&hotfixFinishTag, "base-tag", "", "tag the hotfix was cut from (default: derived from the branch name)")
	hotfixFinishCmd.Flags().BoolVar(&hotfixMergeToBase, "merge-to-base", true, "cherry-pick hotfix commits onto the base branch")

	hotfixCmd.AddCommand(hotfixStartCmd)
	hotfixCmd.AddCommand(hotfixFinishCmd)
}

var hotfixCmd = &cobra.Command{
	Use:   "hotfix",
	Short: "Start and finish hotfix branches cut from production tags",
}

var hotfixStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Cut a hotfix branch from a production tag",
	RunE:  runHotfixStart,
}

var hotfixFinishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finalize, tag, publish and reconcile a hotfix branch",
	RunE:  runHotfixFinish,
}

func runHotfixStart(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if hotfixStartTag == "" {
		return flerrors.Validation("cli.hotfixStart", "--tag is required")
	}

	o, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	fetchBeforeRun(ctx)

	ref, err := o.StartHotfix(ctx, orchestrator.StartHotfixOptions{
		BaseTag:   hotfixStartTag,
		TagPrefix: cfg.Gitflow.TagPrefix,
	})
	if err != nil {
		return err
	}

	if outputJSON {
		return printJSON(map[string]string{
			"branch":       ref.Name,
			"base_version": ref.BaseVersion.String(),
		})
	}
	printSuccess(fmt.Sprintf("Created %s (from %s)", ref.Name, hotfixStartTag))
	printInfo(fmt.Sprintf("When the fix is committed: flowline hotfix finish --branch %s", ref.Name))
	return nil
}

func runHotfixFinish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if !cmd.Flags().Changed("merge-to-base") {
		hotfixMergeToBase = cfg.Gitflow.MergeHotfixToBase
	}

	req, err := buildHotfixRequest(ctx)
	if err != nil {
		return err
	}

	o, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	fetchBeforeRun(ctx)

	result, runErr := o.FinishHotfix(ctx, req)
	if err := renderRunResult(result); err != nil {
		return err
	}
	return runErr
}

// buildHotfixRequest resolves flags and configuration into a finish request.
func buildHotfixRequest(ctx context.Context) (gitflow.HotfixRequest, error) {
	branch := hotfixFinishBranch
	if branch == "" {
		current, err := currentBranch(ctx)
		if err != nil {
			return gitflow.HotfixRequest{}, err
		}
		branch = current
	}

	baseTag := hotfixFinishTag
	if baseTag == "" {
		derived, err := baseTagFromBranch(branch, cfg.Gitflow.TagPrefix)
		if err != nil {
			return gitflow.HotfixRequest{}, err
		}
		baseTag = derived
	}

	// Hotfixes reconcile against the production branch; releases merge
	// into the development base branch.
	base := hotfixFinishBase
	if base == "" {
		base = cfg.Gitflow.ProductionBranch
	}

	return gitflow.HotfixRequest{
		BranchName:  branch,
		BaseBranch:  base,
		TagPrefix:   cfg.Gitflow.TagPrefix,
		BaseTag:     baseTag,
		MergeToBase: hotfixMergeToBase,
		Artifact:    artifactFromConfig(),
	}, nil
}

// baseTagFromBranch recovers the originating tag from a hotfix branch name.
// "hotfix/2.0.15.1" was cut from the tag for 2.0.15, and "hotfix/2.0.15.2"
// from the one for 2.0.15.1.
func baseTagFromBranch(branch, tagPrefix string) (string, error) {
	const op = "cli.hotfixFinish"

	name, ok := strings.CutPrefix(branch, orchestrator.HotfixBranchPrefix)
	if !ok {
		return "", flerrors.Validation(op, fmt.Sprintf("cannot derive base tag from %q; pass --base-tag", branch))
	}
	v, err := version.ParseHotfix(name)
	if err != nil {
		return "", flerrors.Validation(op, fmt.Sprintf("cannot derive base tag from %q; pass --base-tag", branch))
	}
	return tagPrefix + v.PreviousHotfix().String(), nil
}
