package cli

import (
	"context"

	"github.com/spf13/cobra"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/internal/orchestrator"
)

var (
	recoverBranch string
	recoverBase   string
	recoverForce  bool
)

func init() {
	recoverCmd.PersistentFlags().StringVar(&recoverBranch, "branch", "", "branch the halted run was driving (default: current branch)")
	recoverCmd.PersistentFlags().StringVar(&recoverBase, "base", "", "merge-back target branch (default: gitflow.base_branch)")
	recoverDeleteBranchCmd.Flags().BoolVar(&recoverForce, "force", false, "delete the branch even when its tag is not reachable from the base branch")

	recoverCmd.AddCommand(recoverRetagCmd)
	recoverCmd.AddCommand(recoverRepublishCmd)
	recoverCmd.AddCommand(recoverMergeCmd)
	recoverCmd.AddCommand(recoverDeleteBranchCmd)
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-run individual steps of a halted release or hotfix",
	Long: `Recover re-runs one step of a release or hotfix that failed partway.
Each subcommand checks that the steps before it already happened and
refuses to run out of order.`,
}

var recoverRetagCmd = &cobra.Command{
	Use:   "retag",
	Short: "Re-create the version tag from the finalized descriptor",
	RunE:  runRecovery((*orchestrator.Orchestrator).RetagOnly),
}

var recoverRepublishCmd = &cobra.Command{
	Use:   "republish",
	Short: "Re-run the publish step for an already tagged branch",
	RunE:  runRecovery((*orchestrator.Orchestrator).RepublishOnly),
}

var recoverMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge an already published branch back into the base branch",
	RunE:  runRecovery((*orchestrator.Orchestrator).MergeOnly),
}

var recoverDeleteBranchCmd = &cobra.Command{
	Use:   "delete-branch",
	Short: "Delete a finished branch locally and on the remote",
	RunE:  runRecovery((*orchestrator.Orchestrator).DeleteBranchOnly),
}

type recoveryOp func(*orchestrator.Orchestrator, context.Context, orchestrator.RecoveryRequest) (orchestrator.RecoveryResult, error)

// runRecovery shares the wiring across the four recovery subcommands.
func runRecovery(op recoveryOp) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		req, err := buildRecoveryRequest(ctx)
		if err != nil {
			return err
		}

		o, cleanup, err := buildOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		fetchBeforeRun(ctx)

		result, opErr := op(o, ctx, req)
		if opErr != nil {
			return opErr
		}
		return renderRecoveryResult(result)
	}
}

func buildRecoveryRequest(ctx context.Context) (orchestrator.RecoveryRequest, error) {
	branch := recoverBranch
	if branch == "" {
		current, err := currentBranch(ctx)
		if err != nil {
			return orchestrator.RecoveryRequest{}, err
		}
		branch = current
	}
	if branch == "" {
		return orchestrator.RecoveryRequest{}, flerrors.Validation("cli.recover", "--branch is required")
	}

	base := recoverBase
	if base == "" {
		base = cfg.Gitflow.BaseBranch
	}

	return orchestrator.RecoveryRequest{
		Branch:     branch,
		BaseBranch: base,
		TagPrefix:  cfg.Gitflow.TagPrefix,
		Artifact:   artifactFromConfig(),
		Force:      recoverForce,
	}, nil
}
