package publish

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/flowline/internal/domain/version"
	flerrors "github.com/relicta-tech/flowline/internal/errors"
	"github.com/relicta-tech/flowline/pkg/plugin"
)

// fakePublisher is an in-process Publisher used to exercise the gateway
// without spawning a plugin binary.
type fakePublisher struct {
	resp     *plugin.PublishResponse
	err      error
	delay    time.Duration
	requests []plugin.PublishRequest
}

func (f *fakePublisher) GetInfo() plugin.Info {
	return plugin.Info{Name: "fake", Version: "1.0.0"}
}

func (f *fakePublisher) Publish(ctx context.Context, req plugin.PublishRequest) (*plugin.PublishResponse, error) {
	f.requests = append(f.requests, req)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.resp, f.err
}

func (f *fakePublisher) Validate(_ context.Context, _ map[string]any) (*plugin.ValidateResponse, error) {
	return &plugin.ValidateResponse{Valid: true}, nil
}

// connectedGateway builds a gateway wired to an in-process publisher.
func connectedGateway(pub plugin.Publisher, timeout time.Duration) *PluginGateway {
	g := NewPluginGateway(PluginConfig{Name: "maven", Timeout: timeout})
	g.connectOnce.Do(func() {})
	g.publisher = pub
	return g
}

func publishRequest() Request {
	return Request{
		Version:   version.MustParseRelease("2.0.16"),
		TagName:   "v2.0.16",
		Branch:    "release/2.0.16",
		CommitSHA: "abc1234",
		WorkDir:   "/work",
	}
}

func TestPluginGatewayPublish(t *testing.T) {
	pub := &fakePublisher{resp: &plugin.PublishResponse{
		Success:   true,
		ReleaseID: "rel-42",
		Artifacts: []plugin.Artifact{{Name: "core.jar", URL: "https://repo.example.com/core.jar"}},
	}}
	g := connectedGateway(pub, time.Second)

	receipt, err := g.Publish(context.Background(), publishRequest())
	require.NoError(t, err)
	assert.Equal(t, "rel-42", receipt.ReleaseID)
	assert.Equal(t, []string{"https://repo.example.com/core.jar"}, receipt.Artifacts)

	require.Len(t, pub.requests, 1)
	assert.Equal(t, "2.0.16", pub.requests[0].Version)
	assert.Equal(t, "v2.0.16", pub.requests[0].TagName)
}

func TestPluginGatewayPublishFailure(t *testing.T) {
	pub := &fakePublisher{resp: &plugin.PublishResponse{
		Success: false,
		Error:   "artifact already exists in repository",
	}}
	g := connectedGateway(pub, time.Second)

	_, err := g.Publish(context.Background(), publishRequest())
	require.Error(t, err)
	assert.Equal(t, flerrors.KindPublish, flerrors.GetKind(err))
}

func TestPluginGatewayPublishTimeoutIsOutcomeUnknown(t *testing.T) {
	pub := &fakePublisher{delay: 200 * time.Millisecond}
	g := connectedGateway(pub, 20*time.Millisecond)

	_, err := g.Publish(context.Background(), publishRequest())
	require.Error(t, err)
	assert.Equal(t, flerrors.KindTimeout, flerrors.GetKind(err))
	assert.Contains(t, err.Error(), "outcome unknown")

	// The gateway never retried on its own.
	assert.Len(t, pub.requests, 1)
}

func TestPluginGatewayRedactsPublisherErrors(t *testing.T) {
	pub := &fakePublisher{resp: &plugin.PublishResponse{
		Success: false,
		Error:   "mvn deploy failed: -Drepo.password=hunter2 rejected",
	}}
	g := connectedGateway(pub, time.Second)

	_, err := g.Publish(context.Background(), publishRequest())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestPluginGatewayMissingBinary(t *testing.T) {
	g := NewPluginGateway(PluginConfig{Name: "maven", Path: "/nonexistent/publisher"})
	_, err := g.Publish(context.Background(), publishRequest())
	require.Error(t, err)
	assert.Equal(t, flerrors.KindPublish, flerrors.GetKind(err))
}
