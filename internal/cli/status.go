package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/flowline/internal/orchestrator"
	"github.com/relicta-tech/flowline/internal/service/descriptor"
	"github.com/relicta-tech/flowline/internal/service/git"
)

var statusRuns int

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 3, "number of recent runs to show")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show branch, version and tag state relevant to a pending run",
	RunE:  runStatus,
}

type statusReport struct {
	Branch         string   `json:"branch"`
	Clean          bool     `json:"clean"`
	Version        string   `json:"version,omitempty"`
	Snapshot       bool     `json:"snapshot"`
	LatestTag      string   `json:"latest_tag,omitempty"`
	DescriptorKind string   `json:"descriptor_kind,omitempty"`
	Locked         bool     `json:"locked"`
	RecentRuns     []string `json:"recent_runs,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := git.NewService(git.WithRepoPath("."), git.WithDefaultRemote(cfg.Git.DefaultRemote))
	if err != nil {
		return err
	}
	repoRoot, err := svc.GetRepositoryRoot(ctx)
	if err != nil {
		return err
	}

	report := statusReport{}
	report.Branch, _ = svc.GetCurrentBranch(ctx)
	report.Clean, _ = svc.IsClean(ctx)
	report.LatestTag, _ = svc.LatestVersionTag(ctx, cfg.Gitflow.TagPrefix)

	if editor, err := descriptor.Detect(repoRoot); err == nil {
		report.DescriptorKind = editor.Kind()
		if v, err := editor.ReadVersion(ctx, repoRoot); err == nil {
			report.Version = v.String()
			report.Snapshot = v.IsSnapshot()
		}
	}

	if report.Branch != "" {
		report.Locked = orchestrator.NewFileLockManager(repoRoot).IsLocked(report.Branch)
	}

	if results, err := orchestrator.NewReportWriter(repoRoot).List(); err == nil {
		for i, r := range results {
			if i >= statusRuns {
				break
			}
			report.RecentRuns = append(report.RecentRuns, fmt.Sprintf(
				"%s %s %s -> %s", r.RunID, r.Kind, r.Branch, r.FinalState))
		}
	}

	if outputJSON {
		return printJSON(report)
	}

	printTitle("Flowline status")
	printField("Branch", report.Branch)
	printField("Descriptor", report.DescriptorKind)
	printField("Version", report.Version)
	printField("Latest tag", report.LatestTag)
	if !report.Clean {
		printWarning("working tree has uncommitted changes")
	}
	if report.Locked {
		printWarning("a run currently holds the lock for this branch")
	}

	switch {
	case strings.HasPrefix(report.Branch, orchestrator.ReleaseBranchPrefix) && report.Snapshot:
		printInfo("Release branch with a snapshot version: ready for 'flowline release finish'.")
	case strings.HasPrefix(report.Branch, orchestrator.HotfixBranchPrefix) && report.Snapshot:
		printInfo("Hotfix branch with a snapshot version: ready for 'flowline hotfix finish'.")
	case report.Snapshot:
		printInfo("Development branch: 'flowline release start' cuts the next release branch.")
	case report.Version != "":
		printWarning("Descriptor version is already finalized; a finish run may have halted partway.")
	}

	if len(report.RecentRuns) > 0 {
		fmt.Println()
		printInfo("Recent runs:")
		for _, line := range report.RecentRuns {
			fmt.Printf("  %s\n", styles.Subtle.Render(line))
		}
	}
	return nil
}
