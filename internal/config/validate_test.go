package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
)

func TestValidateDefaults(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidateGitflow(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty base branch",
			mutate:  func(c *Config) { c.Gitflow.BaseBranch = "" },
			wantErr: "base_branch",
		},
		{
			name:    "empty production branch",
			mutate:  func(c *Config) { c.Gitflow.ProductionBranch = "" },
			wantErr: "production_branch",
		},
		{
			name: "same base and production branch",
			mutate: func(c *Config) {
				c.Gitflow.BaseBranch = "main"
				c.Gitflow.ProductionBranch = "main"
			},
			wantErr: "must differ",
		},
		{
			name:    "bad increment",
			mutate:  func(c *Config) { c.Gitflow.NextIncrement = "huge" },
			wantErr: "next_increment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, flerrors.IsKind(err, flerrors.KindValidation))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDescriptorKind(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Descriptor.Kind = "npm"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor.kind")
}

func TestValidatePublisher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Publisher.Path = ""
	cfg.Publisher.Timeout = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publisher.path")
	assert.Contains(t, err.Error(), "publisher.timeout")
}

func TestValidatePublisherRepositoryURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Publisher.Config = map[string]any{"repository_url": "not a url"}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repository_url")
}

func TestValidateOutput(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Format = "xml"
	cfg.Output.LogLevel = "trace"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.format")
	assert.Contains(t, err.Error(), "output.log_level")
}

func TestValidationErrorAccumulates(t *testing.T) {
	v := &ValidationError{}
	assert.False(t, v.HasErrors())
	assert.False(t, v.HasWarnings())

	v.Addf("first: %s", "error")
	v.Warnf("second: %s", "warning")

	assert.True(t, v.HasErrors())
	assert.True(t, v.HasWarnings())
	assert.Contains(t, v.Error(), "first: error")
	assert.Contains(t, v.Error(), "second: warning")
}
