package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/pkg/plugin"
)

// DefaultPublishTimeout bounds how long a publish may take before the
// outcome is declared unknown.
const DefaultPublishTimeout = 5 * time.Minute

// PluginConfig configures a publisher plugin.
type PluginConfig struct {
	// Name is the publisher name.
	Name string
	// Path is the plugin binary path.
	Path string
	// Config is the publisher-specific configuration.
	Config map[string]any
	// Timeout bounds a single publish call.
	Timeout time.Duration
}

// PluginGateway hosts one publisher plugin in a child process and speaks
// to it over go-plugin's RPC transport.
type PluginGateway struct {
	cfg    PluginConfig
	logger hclog.Logger

	connectOnce sync.Once
	connectErr  error
	client      *goplugin.Client
	publisher   plugin.Publisher
}

// Ensure PluginGateway implements Gateway.
var _ Gateway = (*PluginGateway)(nil)

// NewPluginGateway creates a gateway for the configured plugin. The
// plugin process is started lazily on the first call.
func NewPluginGateway(cfg PluginConfig) *PluginGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultPublishTimeout
	}
	return &PluginGateway{
		cfg: cfg,
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "publisher",
			Level:  hclog.Info,
			Output: os.Stderr,
		}),
	}
}

// Name identifies the gateway.
func (g *PluginGateway) Name() string {
	return g.cfg.Name
}

// connect starts the plugin process and dispenses the publisher.
func (g *PluginGateway) connect(ctx context.Context) error {
	g.connectOnce.Do(func() {
		g.connectErr = g.dial(ctx)
	})
	return g.connectErr
}

func (g *PluginGateway) dial(ctx context.Context) error {
	const op = "publish.PluginGateway.connect"

	info, err := os.Stat(g.cfg.Path)
	if err != nil {
		return flerrors.PublishWrap(err, op, fmt.Sprintf("publisher binary %s not accessible", g.cfg.Path))
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return flerrors.Publish(op, fmt.Sprintf("publisher binary %s is not executable", g.cfg.Path))
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig: plugin.Handshake,
		Plugins:         plugin.PluginMap,
		Cmd:             exec.Command(g.cfg.Path), // #nosec G204 -- path comes from validated config
		Logger:          g.logger.Named(g.cfg.Name),
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return flerrors.PublishWrap(err, op, "failed to connect to publisher plugin")
	}

	raw, err := rpcClient.Dispense(plugin.PluginName)
	if err != nil {
		client.Kill()
		return flerrors.PublishWrap(err, op, "failed to dispense publisher plugin")
	}

	publisher, ok := raw.(plugin.Publisher)
	if !ok {
		client.Kill()
		return flerrors.Publish(op, "plugin does not implement the Publisher interface")
	}

	if g.cfg.Config != nil {
		resp, err := publisher.Validate(ctx, g.cfg.Config)
		if err != nil {
			client.Kill()
			return flerrors.PublishWrap(err, op, "failed to validate publisher config")
		}
		if resp != nil && !resp.Valid {
			client.Kill()
			msg := "invalid publisher configuration"
			if len(resp.Errors) > 0 {
				msg = fmt.Sprintf("%s: %s: %s", msg, resp.Errors[0].Field, resp.Errors[0].Message)
			}
			return flerrors.Validation(op, msg)
		}
	}

	g.client = client
	g.publisher = publisher
	return nil
}

// Publish delivers the release through the plugin. A deadline expiry is
// reported as a timeout whose outcome is unknown; the caller must verify
// the target channel before publishing again.
func (g *PluginGateway) Publish(ctx context.Context, req Request) (*Receipt, error) {
	const op = "publish.PluginGateway.Publish"

	if err := g.connect(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	g.logger.Info("publishing release",
		"publisher", g.cfg.Name,
		"version", req.Version.String(),
		"tag", req.TagName,
		"dry_run", req.DryRun)

	resp, err := g.publisher.Publish(ctx, plugin.PublishRequest{
		Version:     req.Version.String(),
		TagName:     req.TagName,
		Branch:      req.Branch,
		CommitSHA:   req.CommitSHA,
		GroupID:     req.Artifact.GroupID,
		ArtifactIDs: req.Artifact.ArtifactIDs,
		WorkDir:     req.WorkDir,
		Config:      g.cfg.Config,
		DryRun:      req.DryRun,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, flerrors.Timeout(op,
				fmt.Sprintf("publish of %s timed out after %s; outcome unknown, verify the target repository before republishing", req.Version, g.cfg.Timeout))
		}
		return nil, flerrors.PublishWrap(flerrors.RedactError(err), op,
			fmt.Sprintf("publisher %s rejected version %s", g.cfg.Name, req.Version))
	}
	if resp == nil || !resp.Success {
		msg := "publisher returned no response"
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		return nil, flerrors.Publish(op, flerrors.RedactSensitive(msg))
	}

	receipt := &Receipt{
		ReleaseID: resp.ReleaseID,
		Message:   resp.Message,
	}
	for _, artifact := range resp.Artifacts {
		location := artifact.URL
		if location == "" {
			location = artifact.Name
		}
		receipt.Artifacts = append(receipt.Artifacts, location)
	}
	return receipt, nil
}

// Close kills the plugin process.
func (g *PluginGateway) Close() error {
	if g.client != nil {
		g.client.Kill()
	}
	return nil
}
