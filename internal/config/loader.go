package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// Patterns for environment variable expansion in credential fields,
// compiled once at package initialization.
var (
	// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
	envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)
	// simpleEnvVarPattern matches $VAR syntax.
	simpleEnvVarPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// Loader handles configuration loading and merging.
type Loader struct {
	v           *viper.Viper
	configPath  string
	searchPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix("FLOWLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return &Loader{
		v:           v,
		searchPaths: []string{"."},
	}
}

// WithConfigPath sets an explicit config file path.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithSearchPaths adds directories to search for config files.
func (l *Loader) WithSearchPaths(paths ...string) *Loader {
	l.searchPaths = append(l.searchPaths, paths...)
	return l
}

// Load loads the configuration.
func (l *Loader) Load() (*Config, error) {
	const op = "config.Load"

	l.setDefaults()

	if err := l.loadConfigFile(); err != nil {
		return nil, flerrors.ConfigWrap(err, op, "failed to load config file")
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, flerrors.ConfigWrap(err, op, "failed to unmarshal config")
	}

	l.expandEnvVars(cfg)

	return cfg, nil
}

// setDefaults sets default values using Viper.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("gitflow.base_branch", defaults.Gitflow.BaseBranch)
	l.v.SetDefault("gitflow.production_branch", defaults.Gitflow.ProductionBranch)
	l.v.SetDefault("gitflow.tag_prefix", defaults.Gitflow.TagPrefix)
	l.v.SetDefault("gitflow.next_increment", defaults.Gitflow.NextIncrement)
	l.v.SetDefault("gitflow.merge_hotfix_to_base", defaults.Gitflow.MergeHotfixToBase)

	l.v.SetDefault("git.default_remote", defaults.Git.DefaultRemote)
	l.v.SetDefault("git.committer_name", defaults.Git.CommitterName)
	l.v.SetDefault("git.committer_email", defaults.Git.CommitterEmail)

	l.v.SetDefault("descriptor.kind", defaults.Descriptor.Kind)

	l.v.SetDefault("publisher.name", defaults.Publisher.Name)
	l.v.SetDefault("publisher.path", defaults.Publisher.Path)
	l.v.SetDefault("publisher.timeout", defaults.Publisher.Timeout)

	l.v.SetDefault("workflow.require_clean_working_tree", defaults.Workflow.RequireCleanWorkingTree)
	l.v.SetDefault("workflow.confirm_publish", defaults.Workflow.ConfirmPublish)
	l.v.SetDefault("workflow.dry_run_by_default", defaults.Workflow.DryRunByDefault)
	l.v.SetDefault("workflow.fetch_before_run", defaults.Workflow.FetchBeforeRun)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.color", defaults.Output.Color)
	l.v.SetDefault("output.verbose", defaults.Output.Verbose)
	l.v.SetDefault("output.log_level", defaults.Output.LogLevel)
}

// loadConfigFile loads the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", l.configPath, err)
		}
		return nil
	}

	for _, searchPath := range l.searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					l.v.SetConfigFile(configFile)
					if err := l.v.ReadInConfig(); err != nil {
						return fmt.Errorf("reading config file %s: %w", configFile, err)
					}
					return nil
				}
			}
		}
	}

	// No config file found, defaults apply.
	return nil
}

// expandEnvVars expands environment variables in credential fields.
func (l *Loader) expandEnvVars(cfg *Config) {
	cfg.Git.Auth.Token = expandEnvVar(cfg.Git.Auth.Token)
	cfg.Git.Auth.Password = expandEnvVar(cfg.Git.Auth.Password)
	cfg.Git.Auth.SSHKeyPath = expandEnvVar(cfg.Git.Auth.SSHKeyPath)
	expandMapValues(cfg.Publisher.Config)
}

// expandEnvVar expands environment variables in a string. Supports both
// ${VAR} (with optional :-default) and $VAR syntax.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		varName := submatch[1]
		defaultValue := ""
		if len(submatch) > 2 {
			defaultValue = submatch[2]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})

	result = simpleEnvVarPattern.ReplaceAllStringFunc(result, func(match string) string {
		varName := match[1:]
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})

	return result
}

// expandMapValues expands environment variables in nested string values.
func expandMapValues(config map[string]any) {
	if config == nil {
		return
	}

	for key, value := range config {
		switch v := value.(type) {
		case string:
			config[key] = expandEnvVar(v)
		case map[string]any:
			expandMapValues(v)
		}
	}
}

// GetConfigPath returns the path to the loaded config file, if any.
func (l *Loader) GetConfigPath() string {
	return l.v.ConfigFileUsed()
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}

// LoadFromDirectory loads configuration from a directory.
func LoadFromDirectory(dir string) (*Config, error) {
	return NewLoader().WithSearchPaths(dir).Load()
}

// WriteConfig writes a configuration to a file.
func WriteConfig(cfg *Config, path string) error {
	const op = "config.WriteConfig"

	v := viper.New()
	v.Set("gitflow", cfg.Gitflow)
	v.Set("git", cfg.Git)
	v.Set("descriptor", cfg.Descriptor)
	v.Set("publisher", cfg.Publisher)
	v.Set("artifact", cfg.Artifact)
	v.Set("workflow", cfg.Workflow)
	v.Set("output", cfg.Output)

	if err := v.WriteConfigAs(path); err != nil {
		return flerrors.ConfigWrap(err, op, "failed to write config file")
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to a file.
func WriteDefaultConfig(path string) error {
	return WriteConfig(DefaultConfig(), path)
}

// FindConfigFile searches for a config file and returns its path.
func FindConfigFile(searchPaths ...string) (string, error) {
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}

	for _, searchPath := range searchPaths {
		for _, name := range ConfigFileNames {
			for _, ext := range ConfigFileExtensions {
				configFile := filepath.Join(searchPath, name+"."+ext)
				if _, err := os.Stat(configFile); err == nil {
					return configFile, nil
				}
			}
		}
	}

	return "", flerrors.NotFound("config.FindConfigFile", "no config file found")
}

// ConfigExists returns true if a config file exists in the given directory.
func ConfigExists(dir string) bool {
	_, err := FindConfigFile(dir)
	return err == nil
}
