// Package cli provides the command-line interface for Flowline.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/relicta-tech/flowline/internal/config"
)

var (
	// Version information set by main.
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}

	// Global flags
	cfgFile    string
	verbose    bool
	dryRun     bool
	outputJSON bool
	noColor    bool
	logLevel   string
	ciMode     bool

	// Global config
	cfg *config.Config

	// Logger
	logger *log.Logger

	// Styles
	styles = struct {
		Title   lipgloss.Style
		Success lipgloss.Style
		Error   lipgloss.Style
		Warning lipgloss.Style
		Info    lipgloss.Style
		Subtle  lipgloss.Style
		Bold    lipgloss.Style
	}{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Subtle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Bold:    lipgloss.NewStyle().Bold(true),
	}
)

// SetVersionInfo sets the version information from main.
func SetVersionInfo(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "flowline",
	Short: "Gitflow release and hotfix orchestration for versioned artifacts",
	Long: `Flowline drives the Gitflow release and hotfix lifecycle: it cuts
release and hotfix branches, finalizes snapshot versions, tags, publishes
through a plugin, and reconciles branches afterwards.

Every finish run is a strict sequence of side effects; a failure halts at
the last completed step and the 'recover' commands resume from there.

Get started with 'flowline init' to write a default config.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return initConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context for graceful shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		ReportCaller:    false,
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: flowline.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "simulate actions without making changes")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&ciMode, "ci", false, "CI mode: JSON output, non-interactive")

	viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output.log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(hotfixCmd)
	rootCmd.AddCommand(recoverCmd)
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.WithConfigPath(cfgFile)
	}

	var err error
	cfg, err = loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyGlobalFlags applies global CLI flags to the configuration.
func applyGlobalFlags() {
	if verbose {
		cfg.Output.Verbose = true
	}
	if dryRun {
		cfg.Workflow.DryRunByDefault = true
	}
	if noColor {
		cfg.Output.Color = false
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if ciMode {
		outputJSON = true
		cfg.Workflow.ConfirmPublish = false
		noColor = true
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if logLevel != "" {
		cfg.Output.LogLevel = logLevel
	}
}

// configureLogger applies output settings to the logger.
func configureLogger() {
	if outputJSON || cfg.Output.Format == "json" {
		logger.SetFormatter(log.JSONFormatter)
	} else if !cfg.Output.Color {
		logger.SetFormatter(log.TextFormatter)
	}

	switch cfg.Output.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	if cfg.Output.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
}

// initConfig loads config and applies flags.
func initConfig() error {
	if err := loadAndValidateConfig(); err != nil {
		return err
	}
	applyGlobalFlags()
	configureLogger()
	return nil
}

// Print helpers, sent to stdout so logs on stderr stay separable.

func printTitle(text string) {
	fmt.Println(styles.Title.Render(text))
}

func printSuccess(text string) {
	fmt.Println(styles.Success.Render("✓ " + text))
}

func printError(text string) {
	fmt.Println(styles.Error.Render("✗ " + text))
}

func printWarning(text string) {
	fmt.Println(styles.Warning.Render("! " + text))
}

func printInfo(text string) {
	fmt.Println(styles.Info.Render(text))
}
