// Package main implements the Maven publisher plugin for Flowline.
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/executor"

	"github.com/relicta-tech/flowline/pkg/plugin"
)

// MavenPublisher delivers releases with mvn deploy.
type MavenPublisher struct {
	mvn *executor.WrappedExecutor
}

// Config represents the Maven publisher configuration.
type Config struct {
	// RepositoryID is the server ID from settings.xml holding credentials.
	RepositoryID string
	// RepositoryURL is the deployment repository URL.
	RepositoryURL string
	// SettingsFile is an alternate settings.xml path.
	SettingsFile string
	// SkipTests skips test execution during deploy.
	SkipTests bool
	// Profiles are Maven profiles to activate.
	Profiles []string
	// MavenCommand is the Maven command to use (mvn or ./mvnw).
	MavenCommand string
}

// New creates the Maven publisher.
func New() *MavenPublisher {
	return &MavenPublisher{}
}

// GetInfo returns publisher metadata.
func (p *MavenPublisher) GetInfo() plugin.Info {
	return plugin.Info{
		Name:        "maven",
		Version:     "1.0.0",
		Description: "Publish artifacts to a Maven repository with mvn deploy",
		Author:      "Flowline Team",
		ConfigSchema: `{
			"type": "object",
			"properties": {
				"repository_id": {"type": "string", "description": "Server ID from settings.xml holding credentials"},
				"repository_url": {"type": "string", "description": "Deployment repository URL"},
				"settings_file": {"type": "string", "description": "Alternate settings.xml path"},
				"skip_tests": {"type": "boolean", "description": "Skip tests during deploy", "default": true},
				"profiles": {"type": "array", "items": {"type": "string"}, "description": "Maven profiles to activate"},
				"maven_command": {"type": "string", "description": "Maven command (mvn or ./mvnw)", "default": "mvn"}
			}
		}`,
	}
}

// Validate checks the publisher configuration.
func (p *MavenPublisher) Validate(_ context.Context, config map[string]any) (*plugin.ValidateResponse, error) {
	cfg := parseConfig(config)
	resp := &plugin.ValidateResponse{Valid: true}
	if cfg.RepositoryURL != "" && !strings.HasPrefix(cfg.RepositoryURL, "https://") {
		resp.Valid = false
		resp.Errors = append(resp.Errors, plugin.ValidationError{
			Field:   "repository_url",
			Message: "repository URL must use https",
		})
	}
	return resp, nil
}

// Publish runs mvn deploy for the finalized release.
func (p *MavenPublisher) Publish(ctx context.Context, req plugin.PublishRequest) (*plugin.PublishResponse, error) {
	cfg := parseConfig(req.Config)
	args := p.deployArgs(cfg)

	if req.DryRun {
		return &plugin.PublishResponse{
			Success:   true,
			ReleaseID: fmt.Sprintf("dry-run-%s", req.Version),
			Message:   fmt.Sprintf("dry run: would execute %s %s", cfg.MavenCommand, strings.Join(args, " ")),
		}, nil
	}

	mvn := p.mvn
	if mvn == nil {
		mvn = executor.NewWrappedExecutor(cfg.MavenCommand)
	}

	result, err := mvn.Execute(ctx, args, executor.WithWorkingDir(req.WorkDir))
	if err != nil {
		msg := "mvn deploy failed"
		if result != nil && result.Stderr != "" {
			msg = fmt.Sprintf("%s: %s", msg, lastLines(result.Stderr, 5))
		}
		return &plugin.PublishResponse{Success: false, Error: msg}, nil
	}

	return &plugin.PublishResponse{
		Success:   true,
		ReleaseID: fmt.Sprintf("%s:%s", req.GroupID, req.Version),
		Message:   fmt.Sprintf("deployed %s to %s", req.Version, cfg.RepositoryURL),
		Artifacts: deployedArtifacts(req),
	}, nil
}

// deployArgs builds the mvn command line.
func (p *MavenPublisher) deployArgs(cfg *Config) []string {
	args := []string{"deploy", "--batch-mode"}
	if cfg.SkipTests {
		args = append(args, "-DskipTests")
	}
	if cfg.SettingsFile != "" {
		args = append(args, "--settings", cfg.SettingsFile)
	}
	if cfg.RepositoryID != "" && cfg.RepositoryURL != "" {
		args = append(args,
			fmt.Sprintf("-DaltDeploymentRepository=%s::default::%s", cfg.RepositoryID, cfg.RepositoryURL))
	}
	if len(cfg.Profiles) > 0 {
		args = append(args, "-P", strings.Join(cfg.Profiles, ","))
	}
	return args
}

// parseConfig extracts the typed configuration.
func parseConfig(raw map[string]any) *Config {
	parser := plugin.NewConfigParser(raw)
	cfg := &Config{
		RepositoryID:  parser.GetString("repository_id"),
		RepositoryURL: parser.GetString("repository_url", "FLOWLINE_MAVEN_REPOSITORY_URL"),
		SettingsFile:  parser.GetString("settings_file"),
		SkipTests:     true,
		Profiles:      parser.GetStringSlice("profiles"),
		MavenCommand:  parser.GetString("maven_command"),
	}
	if parser.Has("skip_tests") {
		cfg.SkipTests = parser.GetBool("skip_tests")
	}
	if cfg.MavenCommand == "" {
		cfg.MavenCommand = "mvn"
	}
	return cfg
}

// deployedArtifacts lists the coordinates the deploy covered.
func deployedArtifacts(req plugin.PublishRequest) []plugin.Artifact {
	artifacts := make([]plugin.Artifact, 0, len(req.ArtifactIDs))
	for _, id := range req.ArtifactIDs {
		artifacts = append(artifacts, plugin.Artifact{
			Name: fmt.Sprintf("%s:%s:%s", req.GroupID, id, req.Version),
		})
	}
	return artifacts
}

// lastLines returns the trailing n non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
