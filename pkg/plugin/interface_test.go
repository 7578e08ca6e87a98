package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPublisher is a minimal in-process Publisher for SDK tests.
type stubPublisher struct {
	info       Info
	publishErr error
	resp       *PublishResponse
}

func (s *stubPublisher) GetInfo() Info { return s.info }

func (s *stubPublisher) Publish(_ context.Context, _ PublishRequest) (*PublishResponse, error) {
	return s.resp, s.publishErr
}

func (s *stubPublisher) Validate(_ context.Context, config map[string]any) (*ValidateResponse, error) {
	return RequireStrings(config, "repository_url"), nil
}

func TestRPCServerPublish(t *testing.T) {
	server := &rpcServer{impl: &stubPublisher{
		resp: &PublishResponse{Success: true, ReleaseID: "rel-42"},
	}}

	var reply PublishResponse
	require.NoError(t, server.Publish(PublishRequest{Version: "2.0.16"}, &reply))
	assert.True(t, reply.Success)
	assert.Equal(t, "rel-42", reply.ReleaseID)
}

func TestRPCServerPublishErrorIsCarriedInReply(t *testing.T) {
	server := &rpcServer{impl: &stubPublisher{
		publishErr: errors.New("repository rejected artifact"),
	}}

	var reply PublishResponse
	require.NoError(t, server.Publish(PublishRequest{}, &reply))
	assert.False(t, reply.Success)
	assert.Equal(t, "repository rejected artifact", reply.Error)
}

func TestRPCServerValidate(t *testing.T) {
	server := &rpcServer{impl: &stubPublisher{}}

	var reply ValidateResponse
	require.NoError(t, server.Validate(ValidateArgs{Config: map[string]any{}}, &reply))
	assert.False(t, reply.Valid)
	require.Len(t, reply.Errors, 1)
	assert.Equal(t, "repository_url", reply.Errors[0].Field)

	require.NoError(t, server.Validate(ValidateArgs{
		Config: map[string]any{"repository_url": "https://repo.example.com"},
	}, &reply))
	assert.True(t, reply.Valid)
}

func TestConfigParser(t *testing.T) {
	parser := NewConfigParser(map[string]any{
		"repository_url": "https://repo.example.com",
		"skip_tests":     true,
		"profiles":       []any{"release", "sign"},
	})

	assert.Equal(t, "https://repo.example.com", parser.GetString("repository_url"))
	assert.Equal(t, "", parser.GetString("missing"))
	assert.True(t, parser.GetBool("skip_tests"))
	assert.Equal(t, []string{"release", "sign"}, parser.GetStringSlice("profiles"))
	assert.True(t, parser.Has("profiles"))
	assert.False(t, parser.Has("missing"))
}

func TestConfigParserEnvFallback(t *testing.T) {
	t.Setenv("FLOWLINE_TEST_REPO_URL", "https://env.example.com")

	parser := NewConfigParser(nil)
	assert.Equal(t, "https://env.example.com",
		parser.GetString("repository_url", "FLOWLINE_TEST_REPO_URL"))
}

func TestHandshakeConstants(t *testing.T) {
	assert.Equal(t, MagicCookieKey, Handshake.MagicCookieKey)
	assert.Equal(t, MagicCookieValue, Handshake.MagicCookieValue)
	assert.Contains(t, PluginMap, PluginName)
}
