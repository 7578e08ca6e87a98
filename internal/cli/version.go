package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if outputJSON {
			_ = printJSON(map[string]string{
				"version": versionInfo.Version,
				"commit":  versionInfo.Commit,
				"date":    versionInfo.Date,
				"go":      runtime.Version(),
			})
			return
		}

		printTitle("Flowline")
		fmt.Printf("  Version: %s\n", orUnknown(versionInfo.Version))
		fmt.Printf("  Commit:  %s\n", orUnknown(versionInfo.Commit))
		fmt.Printf("  Built:   %s\n", orUnknown(versionInfo.Date))
		fmt.Printf("  Go:      %s\n", runtime.Version())
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
