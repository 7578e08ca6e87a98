package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

// ValidationError contains all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var parts []string

	if len(e.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Errors:\n  - %s", strings.Join(e.Errors, "\n  - ")))
	}
	if len(e.Warnings) > 0 {
		parts = append(parts, fmt.Sprintf("Warnings:\n  - %s", strings.Join(e.Warnings, "\n  - ")))
	}

	return fmt.Sprintf("configuration validation failed:\n%s", strings.Join(parts, "\n"))
}

// HasErrors returns true if there are validation errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (e *ValidationError) HasWarnings() bool {
	return len(e.Warnings) > 0
}

// Addf adds a formatted error.
func (e *ValidationError) Addf(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

// Warnf adds a formatted warning.
func (e *ValidationError) Warnf(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Validator validates configuration.
type Validator struct {
	errors *ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: &ValidationError{}}
}

// Validate validates the configuration. Warnings go to stderr so they are
// visible regardless of log level.
func (v *Validator) Validate(cfg *Config) error {
	v.validateGitflow(cfg.Gitflow)
	v.validateGit(cfg.Git)
	v.validateDescriptor(cfg.Descriptor)
	v.validatePublisher(cfg.Publisher)
	v.validateOutput(cfg.Output)

	if v.errors.HasWarnings() {
		fmt.Fprintf(os.Stderr, "\nConfiguration warnings:\n")
		for _, warning := range v.errors.Warnings {
			fmt.Fprintf(os.Stderr, "  - %s\n", warning)
		}
		fmt.Fprintf(os.Stderr, "\n")
	}

	if v.errors.HasErrors() {
		return flerrors.Validation("config.Validate", v.errors.Error())
	}
	return nil
}

func (v *Validator) validateGitflow(cfg GitflowConfig) {
	if strings.TrimSpace(cfg.BaseBranch) == "" {
		v.errors.Addf("gitflow.base_branch: must not be empty")
	}
	if strings.TrimSpace(cfg.ProductionBranch) == "" {
		v.errors.Addf("gitflow.production_branch: must not be empty")
	}
	if cfg.BaseBranch != "" && cfg.BaseBranch == cfg.ProductionBranch {
		v.errors.Addf("gitflow: base_branch and production_branch must differ, both are %q", cfg.BaseBranch)
	}

	validIncrements := []string{"major", "minor", "patch"}
	if !slices.Contains(validIncrements, cfg.NextIncrement) {
		v.errors.Addf("gitflow.next_increment: must be one of %v, got %q", validIncrements, cfg.NextIncrement)
	}

	if cfg.TagPrefix == "" {
		v.errors.Warnf("gitflow.tag_prefix is empty; tags will be bare version numbers")
	}
}

func (v *Validator) validateGit(cfg GitConfig) {
	if strings.TrimSpace(cfg.DefaultRemote) == "" {
		v.errors.Addf("git.default_remote: must not be empty")
	}
	if cfg.Auth.Token != "" && cfg.Auth.Password != "" {
		v.errors.Warnf("git.auth: both token and password are set; token wins")
	}
	if cfg.Auth.SSHKeyPath != "" {
		if _, err := os.Stat(cfg.Auth.SSHKeyPath); err != nil {
			v.errors.Warnf("git.auth.ssh_key_path: %s does not exist", cfg.Auth.SSHKeyPath)
		}
	}
}

func (v *Validator) validateDescriptor(cfg DescriptorConfig) {
	validKinds := []string{"", "auto", "maven", "gradle"}
	if !slices.Contains(validKinds, cfg.Kind) {
		v.errors.Addf("descriptor.kind: must be one of auto, maven, gradle, got %q", cfg.Kind)
	}
}

func (v *Validator) validatePublisher(cfg PublisherConfig) {
	if strings.TrimSpace(cfg.Path) == "" {
		v.errors.Addf("publisher.path: must not be empty")
	}
	if cfg.Timeout <= 0 {
		v.errors.Addf("publisher.timeout: must be positive, got %s", cfg.Timeout)
	}

	if repoURL, ok := cfg.Config["repository_url"].(string); ok && repoURL != "" {
		u, err := url.Parse(repoURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			v.errors.Addf("publisher.config.repository_url: %q is not a valid URL", repoURL)
		} else if u.Scheme == "http" {
			v.errors.Warnf("publisher.config.repository_url uses http; credentials travel unencrypted")
		}
	}
}

func (v *Validator) validateOutput(cfg OutputConfig) {
	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, cfg.Format) {
		v.errors.Addf("output.format: must be one of %v, got %q", validFormats, cfg.Format)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.LogLevel) {
		v.errors.Addf("output.log_level: must be one of %v, got %q", validLevels, cfg.LogLevel)
	}
}

// Validate validates a configuration with a fresh validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
