// Package plugin provides the public interface for Flowline publisher
// plugins. Plugin authors implement Publisher to deliver release
// artifacts to their distribution channel.
package plugin

import "context"

// Publisher is the interface that all publisher plugins must implement.
type Publisher interface {
	// GetInfo returns metadata about the publisher.
	GetInfo() Info

	// Publish delivers the artifacts for a finalized release. It must
	// only be invoked once per release version; Flowline never retries
	// a publish whose outcome is unknown.
	Publish(ctx context.Context, req PublishRequest) (*PublishResponse, error)

	// Validate checks the publisher configuration before a run starts.
	Validate(ctx context.Context, config map[string]any) (*ValidateResponse, error)
}

// Info contains metadata about a publisher plugin.
type Info struct {
	// Name is the publisher name.
	Name string `json:"name"`
	// Version is the publisher version.
	Version string `json:"version"`
	// Description is a short description of the publisher.
	Description string `json:"description"`
	// Author is the publisher author.
	Author string `json:"author"`
	// ConfigSchema is a JSON schema for the publisher configuration.
	ConfigSchema string `json:"config_schema,omitempty"`
}

// PublishRequest describes one release to deliver.
type PublishRequest struct {
	// Version is the finalized release version (e.g. "2.0.16").
	Version string `json:"version"`
	// TagName is the full tag name (e.g. "v2.0.16").
	TagName string `json:"tag_name"`
	// Branch is the branch being released from.
	Branch string `json:"branch"`
	// CommitSHA is the tagged commit.
	CommitSHA string `json:"commit_sha"`
	// GroupID is the artifact group (e.g. "com.example.platform").
	GroupID string `json:"group_id,omitempty"`
	// ArtifactIDs lists the module artifact identifiers.
	ArtifactIDs []string `json:"artifact_ids,omitempty"`
	// WorkDir is the repository root the publisher runs in.
	WorkDir string `json:"work_dir"`
	// Config is the publisher-specific configuration.
	Config map[string]any `json:"config"`
	// DryRun indicates the publisher must not perform side effects.
	DryRun bool `json:"dry_run"`
}

// PublishResponse contains the result of a publish.
type PublishResponse struct {
	// Success indicates if the publish succeeded.
	Success bool `json:"success"`
	// ReleaseID identifies the published release in the target channel.
	ReleaseID string `json:"release_id,omitempty"`
	// Message is an optional message about the publish.
	Message string `json:"message,omitempty"`
	// Error is the error message if the publish failed.
	Error string `json:"error,omitempty"`
	// Artifacts lists the delivered artifacts.
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// Artifact describes one delivered artifact.
type Artifact struct {
	// Name is the artifact name.
	Name string `json:"name"`
	// Path is the local path of the artifact.
	Path string `json:"path,omitempty"`
	// URL is the published location.
	URL string `json:"url,omitempty"`
}

// ValidateResponse contains the result of configuration validation.
type ValidateResponse struct {
	// Valid indicates if the configuration is valid.
	Valid bool `json:"valid"`
	// Errors lists validation failures.
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError describes a single configuration problem.
type ValidationError struct {
	// Field is the configuration field with the problem.
	Field string `json:"field"`
	// Message describes the problem.
	Message string `json:"message"`
}
