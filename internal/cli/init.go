package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/relicta-tech/flowline/internal/config"
	"github.com/relicta-tech/flowline/internal/service/descriptor"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default flowline.yaml config",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	existing, _ := config.FindConfigFile(".")
	if existing != "" && !initForce {
		printWarning(fmt.Sprintf("Config file already exists: %s", existing))
		printInfo("Use --force to overwrite")
		return nil
	}

	defaults := config.DefaultConfig()

	// Record the detected descriptor kind so later runs skip probing.
	if editor, err := descriptor.Detect("."); err == nil {
		defaults.Descriptor.Kind = editor.Kind()
	}

	const configFile = "flowline.yaml"
	if err := config.WriteConfig(defaults, configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	printSuccess(fmt.Sprintf("Created %s", configFile))
	printInfo("Review gitflow.base_branch, publisher.path and publisher.config before the first run.")
	return nil
}
