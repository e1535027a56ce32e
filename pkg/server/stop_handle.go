package server

import (
	"sync/atomic"

	"github.com/jingkaihe/hostext/pkg/plugin"
)

// StopHandle is the shareable capability to request shutdown from any
// goroutine (§4.8). It is safe to copy and to hold across goroutines.
type StopHandle struct {
	flag      *atomic.Bool
	requestFn func(plugin.ShutdownReason)
}

// Stop requests shutdown, tagging it as stop-handle-initiated (§2, §4.8) so
// every plugin's Shutdown and the audit log's ShutdownData report the right
// source. Idempotent: multiple calls are equivalent to one.
func (h StopHandle) Stop() {
	h.requestFn(plugin.ShutdownStopHandle)
}

// IsRunning reports whether shutdown has NOT yet been requested.
func (h StopHandle) IsRunning() bool {
	return !h.flag.Load()
}
