package plugin

import (
	"os"

	goplugin "github.com/hashicorp/go-plugin"
)

const (
	// PluginName is the name used for the plugin map.
	PluginName = "flowline-publisher"

	// MagicCookieKey is the key for the plugin handshake.
	MagicCookieKey = "FLOWLINE_PLUGIN"

	// MagicCookieValue is the value for the plugin handshake.
	MagicCookieValue = "flowline-publisher-v1"
)

// Handshake is the handshake config for publisher plugins.
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   MagicCookieKey,
	MagicCookieValue: MagicCookieValue,
}

// PluginMap is the map of plugin implementations.
var PluginMap = map[string]goplugin.Plugin{
	PluginName: &RPCPlugin{},
}

// Serve starts the plugin server with the given publisher implementation.
// This should be called from the plugin's main function.
func Serve(impl Publisher) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			PluginName: &RPCPlugin{Impl: impl},
		},
	})
}

// IsPlugin returns true if the current process is running as a plugin.
func IsPlugin() bool {
	return os.Getenv(MagicCookieKey) == MagicCookieValue
}
