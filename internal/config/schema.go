// Package config provides configuration management for Flowline.
package config

import (
	"time"
)

// Config is the root configuration for Flowline.
type Config struct {
	// Gitflow configures the branch and version conventions.
	Gitflow GitflowConfig `mapstructure:"gitflow" json:"gitflow"`
	// Git configures git operations and authentication.
	Git GitConfig `mapstructure:"git" json:"git"`
	// Descriptor configures the build descriptor editor.
	Descriptor DescriptorConfig `mapstructure:"descriptor" json:"descriptor"`
	// Publisher configures the publisher plugin.
	Publisher PublisherConfig `mapstructure:"publisher" json:"publisher"`
	// Artifact describes the published artifact set for reports.
	Artifact ArtifactConfig `mapstructure:"artifact" json:"artifact,omitempty"`
	// Workflow configures run behavior.
	Workflow WorkflowConfig `mapstructure:"workflow" json:"workflow"`
	// Output configures output settings.
	Output OutputConfig `mapstructure:"output" json:"output"`
}

// GitflowConfig configures the branch and version conventions.
type GitflowConfig struct {
	// BaseBranch is the development branch releases merge back into.
	BaseBranch string `mapstructure:"base_branch" json:"base_branch"`
	// ProductionBranch is the branch hotfix cherry-picks land on.
	ProductionBranch string `mapstructure:"production_branch" json:"production_branch"`
	// TagPrefix is prepended to versions to form tag names (default: "v").
	TagPrefix string `mapstructure:"tag_prefix" json:"tag_prefix"`
	// NextIncrement is the default next-version policy for release finish
	// (major, minor, patch).
	NextIncrement string `mapstructure:"next_increment" json:"next_increment"`
	// MergeHotfixToBase enables the hotfix cherry-pick merge-back.
	MergeHotfixToBase bool `mapstructure:"merge_hotfix_to_base" json:"merge_hotfix_to_base"`
}

// GitConfig configures git operations and authentication.
type GitConfig struct {
	// DefaultRemote is the default remote name (default: "origin").
	DefaultRemote string `mapstructure:"default_remote" json:"default_remote"`
	// CommitterName is the identity used for version commits and tags.
	CommitterName string `mapstructure:"committer_name" json:"committer_name"`
	// CommitterEmail is the identity used for version commits and tags.
	CommitterEmail string `mapstructure:"committer_email" json:"committer_email"`
	// Auth configures git authentication.
	Auth GitAuthConfig `mapstructure:"auth" json:"auth,omitempty"`
}

// GitAuthConfig configures git authentication.
type GitAuthConfig struct {
	// Token is a personal access token for HTTPS auth (supports env var
	// expansion).
	Token string `mapstructure:"token" json:"token,omitempty"`
	// Username is the username for basic auth.
	Username string `mapstructure:"username" json:"username,omitempty"`
	// Password is the password for basic auth (supports env var expansion).
	Password string `mapstructure:"password" json:"password,omitempty"`
	// SSHKeyPath is the path to the SSH private key file.
	SSHKeyPath string `mapstructure:"ssh_key_path" json:"ssh_key_path,omitempty"`
}

// DescriptorConfig configures the build descriptor editor.
type DescriptorConfig struct {
	// Kind selects the descriptor format: "auto" (default), "maven",
	// "gradle".
	Kind string `mapstructure:"kind" json:"kind"`
}

// PublisherConfig configures the publisher plugin.
type PublisherConfig struct {
	// Name identifies the publisher for logs and reports.
	Name string `mapstructure:"name" json:"name"`
	// Path is the publisher plugin binary.
	Path string `mapstructure:"path" json:"path"`
	// Timeout bounds one publish attempt. A timeout leaves the outcome
	// unknown; the run is never retried automatically.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// Config is passed verbatim to the plugin (supports env var expansion
	// in string values).
	Config map[string]any `mapstructure:"config" json:"config,omitempty"`
}

// ArtifactConfig describes the published artifact set.
type ArtifactConfig struct {
	// GroupID is the artifact group (e.g. "com.example.platform").
	GroupID string `mapstructure:"group_id" json:"group_id,omitempty"`
	// ArtifactIDs lists the module artifact identifiers.
	ArtifactIDs []string `mapstructure:"artifact_ids" json:"artifact_ids,omitempty"`
}

// WorkflowConfig configures run behavior.
type WorkflowConfig struct {
	// RequireCleanWorkingTree refuses to run with uncommitted changes.
	RequireCleanWorkingTree bool `mapstructure:"require_clean_working_tree" json:"require_clean_working_tree"`
	// ConfirmPublish prompts before the publish step outside CI mode.
	ConfirmPublish bool `mapstructure:"confirm_publish" json:"confirm_publish"`
	// DryRunByDefault makes every run a dry run unless overridden.
	DryRunByDefault bool `mapstructure:"dry_run_by_default" json:"dry_run_by_default"`
	// FetchBeforeRun fetches the remote before validating preconditions.
	FetchBeforeRun bool `mapstructure:"fetch_before_run" json:"fetch_before_run"`
}

// OutputConfig configures output settings.
type OutputConfig struct {
	// Format is the output format (text, json).
	Format string `mapstructure:"format" json:"format"`
	// Color enables colored output.
	Color bool `mapstructure:"color" json:"color"`
	// Verbose enables verbose output.
	Verbose bool `mapstructure:"verbose" json:"verbose"`
	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level" json:"log_level"`
}

// ConfigFileNames are the config file base names searched for.
var ConfigFileNames = []string{"flowline", ".flowline"}

// ConfigFileExtensions are the config file extensions searched for.
var ConfigFileExtensions = []string{"yaml", "yml"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Gitflow: GitflowConfig{
			BaseBranch:        "develop",
			ProductionBranch:  "main",
			TagPrefix:         "v",
			NextIncrement:     "patch",
			MergeHotfixToBase: true,
		},
		Git: GitConfig{
			DefaultRemote:  "origin",
			CommitterName:  "Flowline",
			CommitterEmail: "flowline@localhost",
		},
		Descriptor: DescriptorConfig{
			Kind: "auto",
		},
		Publisher: PublisherConfig{
			Name:    "maven",
			Path:    "flowline-publisher-maven",
			Timeout: 5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			RequireCleanWorkingTree: true,
			ConfirmPublish:          true,
			FetchBeforeRun:          true,
		},
		Output: OutputConfig{
			Format:   "text",
			Color:    true,
			LogLevel: "info",
		},
	}
}
