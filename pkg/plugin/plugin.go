// Package plugin implements the Plugin Contract (§4.2), its three concrete
// adapters (table, logger, config), and the two-level plugin registry
// (§4.6) that dispatches incoming calls to them.
package plugin

import (
	"context"

	"github.com/jingkaihe/hostext/pkg/response"
)

// RegistryKind is the closed set of plugin kinds the runtime supports.
type RegistryKind string

const (
	RegistryTable  RegistryKind = "table"
	RegistryConfig RegistryKind = "config"
	RegistryLogger RegistryKind = "logger"
)

// Kinds lists the closed set in canonical order, used to pre-seed the
// registry's outer map (§4.6).
func Kinds() []RegistryKind {
	return []RegistryKind{RegistryTable, RegistryConfig, RegistryLogger}
}

// ShutdownReason tags why a plugin's Shutdown method was invoked.
type ShutdownReason int

const (
	ShutdownHostRequested ShutdownReason = iota
	ShutdownSignal
	ShutdownPingFailure
	ShutdownStopHandle
)

func (r ShutdownReason) String() string {
	switch r {
	case ShutdownHostRequested:
		return "host_requested"
	case ShutdownSignal:
		return "signal"
	case ShutdownPingFailure:
		return "ping_failure"
	case ShutdownStopHandle:
		return "stop_handle"
	default:
		return "unknown"
	}
}

// Plugin is the uniform capability set every registered plugin exposes
// through its adapter (§4.2).
type Plugin interface {
	Name() string
	Registry() RegistryKind
	Routes() []map[string]string
	Ping(ctx context.Context) *response.Reply
	HandleCall(ctx context.Context, request map[string]string) *response.Reply
	Shutdown(ctx context.Context, reason ShutdownReason)
}
