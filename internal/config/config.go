// Package config builds the ICE server set consumed by the peer-connection
// controller from the client subcommand's flags.
package config

import "github.com/pion/webrtc/v4"

// DefaultSTUN is used when the user supplies no additional servers.
const DefaultSTUN = "stun:stun.l.google.com:19302"

// Config holds the resolved ICE server configuration for one client run.
type Config struct {
	STUNServers []string
	TURNServers []string
	TURNUser    string
	TURNPass    string
}

// Options mirrors the client subcommand's STUN/TURN-related flags.
type Options struct {
	AdditionalServers []string
	Username          string
	Credential        string
}

// Load resolves Options into a Config, falling back to a public STUN
// server when the user supplies none.
func Load(opts Options) *Config {
	servers := opts.AdditionalServers
	var stun, turn []string
	for _, s := range servers {
		if len(s) >= 5 && s[:5] == "turn:" || len(s) >= 6 && s[:6] == "turns:" {
			turn = append(turn, s)
		} else {
			stun = append(stun, s)
		}
	}
	if len(stun) == 0 && len(turn) == 0 {
		stun = []string{DefaultSTUN}
	}

	return &Config{
		STUNServers: stun,
		TURNServers: turn,
		TURNUser:    opts.Username,
		TURNPass:    opts.Credential,
	}
}

// ICEServers builds the webrtc.ICEServer list for peer-connection creation.
func (c *Config) ICEServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(c.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: c.STUNServers})
	}
	if len(c.TURNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       c.TURNServers,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}
