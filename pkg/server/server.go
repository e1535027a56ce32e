// Package server implements the Server Lifecycle (§4.7) and the Stop
// Handle (§4.8): registration against the host, the per-socket Thrift
// listener, the foreground ping loop, and the coordinated shutdown
// sequence (join listener, deregister, notify plugins, remove socket).
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"go.uber.org/zap"

	"github.com/jingkaihe/hostext/gen/extension"
	"github.com/jingkaihe/hostext/pkg/client"
	"github.com/jingkaihe/hostext/pkg/config"
	"github.com/jingkaihe/hostext/pkg/logging"
	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/jingkaihe/hostext/pkg/response"
)

// listenerJoinBudget is the total time shutdownAndCleanup waits for the
// listener goroutine to exit before orphaning it (§9: resolved — poll
// every listenerPollInterval up to this budget, then proceed anyway).
const (
	listenerJoinBudget   = 100 * time.Millisecond
	listenerPollInterval = 10 * time.Millisecond
)

// ErrRegister reports that registration against the host failed.
var ErrRegister = errors.New("server: register with host")

// Server coordinates the registration handshake, the plugin-facing Thrift
// listener, and the ping-driven lifecycle of a single extension process.
type Server struct {
	cfg        *config.Config
	registry   *plugin.Registry
	hostClient *client.HostClient
	log        *zap.Logger
	audit      *logging.Emitter

	shutdownFlag atomic.Bool
	reasonOnce   sync.Once
	reason       plugin.ShutdownReason

	uuid       int64
	socketPath string

	thriftServer *thrift.TSimpleServer
	listenerDone chan struct{}
}

// New builds a Server. audit may be nil (disables JSONL audit emission).
func New(cfg *config.Config, registry *plugin.Registry, hostClient *client.HostClient, log *zap.Logger, audit *logging.Emitter) *Server {
	return &Server{
		cfg:        cfg,
		registry:   registry,
		hostClient: hostClient,
		log:        log,
		audit:      audit,
	}
}

// StopHandle returns the shareable capability to request shutdown.
func (s *Server) StopHandle() StopHandle {
	return StopHandle{flag: &s.shutdownFlag, requestFn: s.requestShutdown}
}

// IsRunning reports whether shutdown has not yet been requested.
func (s *Server) IsRunning() bool {
	return !s.shutdownFlag.Load()
}

func (s *Server) requestShutdown(reason plugin.ShutdownReason) {
	s.reasonOnce.Do(func() { s.reason = reason })
	s.shutdownFlag.Store(true)
}

// Start performs the registration handshake and binds the per-extension
// listener socket, then starts the listener goroutine (§4.7 steps 1-5).
// The socket file exists when Start returns. It does not run the ping loop.
func (s *Server) Start(ctx context.Context) error {
	info := &extension.InternalExtensionInfo{
		Name:          s.cfg.Name,
		Version:       s.cfg.Version,
		SDKVersion:    s.cfg.SDKVersion,
		MinSDKVersion: s.cfg.MinSDKVersion,
	}

	status, err := s.hostClient.RegisterExtension(ctx, info, s.registry.Routes())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRegister, err)
	}
	if status.Code != 0 {
		return fmt.Errorf("%w: host rejected registration: %s", ErrRegister, status.Message)
	}
	s.uuid = status.UUID
	s.socketPath = s.cfg.RegistrationSocketPath + "." + strconv.FormatInt(s.uuid, 10)

	transport, err := thrift.NewTServerUnixSocket(s.socketPath)
	if err != nil {
		return fmt.Errorf("%w: bind listener socket: %w", ErrRegister, err)
	}
	protoFactory := thrift.NewTBinaryProtocolFactoryConf(&thrift.TConfiguration{})
	transportFactory := thrift.NewTBufferedTransportFactory(8192)
	processor := extension.NewProcessor(s)
	srv := thrift.NewTSimpleServer4(processor, transport, transportFactory, protoFactory)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("%w: bind listener socket: %w", ErrRegister, err)
	}
	s.thriftServer = srv
	s.listenerDone = make(chan struct{})

	go func() {
		defer close(s.listenerDone)
		defer func() {
			if r := recover(); r != nil {
				s.log.Warn("listener goroutine panicked", zap.Any("panic", r))
			}
		}()
		if err := srv.Serve(); err != nil {
			s.log.Debug("listener exited", zap.Error(err))
		}
	}()

	s.emit(logging.EventRegistered, "extension registered with host", &logging.RegisteredData{
		UUID:       s.uuid,
		SocketPath: s.socketPath,
	})
	return nil
}

// Run starts the server, blocks in the ping loop, and runs the shutdown
// sequence before returning. Returns only once shutdown has completed.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	s.pingLoop(ctx)
	s.shutdownAndCleanup(context.Background())
	return nil
}

// RunWithSignalHandling wraps Run with SIGINT/SIGTERM handling: a signal
// sets the same shutdown flag the stop handle and a host-initiated
// shutdown set, tagged with reason ShutdownSignal.
func (s *Server) RunWithSignalHandling(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer stopNotify(sigCh)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			s.requestShutdown(plugin.ShutdownSignal)
		case <-done:
		}
	}()
	err := s.Run(ctx)
	close(done)
	return err
}

// pingLoop issues a Ping every cfg.PingInterval and exits the first time
// either the stop handle is set or the ping itself fails (§4.7 step 3,
// §7: ping failure is fail-closed, not retried).
func (s *Server) pingLoop(ctx context.Context) {
	for s.IsRunning() {
		status, err := s.hostClient.Ping(ctx)
		if err == nil && status.Code != 0 {
			err = fmt.Errorf("host ping returned status code %d: %s", status.Code, status.Message)
		}
		if err != nil {
			s.log.Warn("host ping failed; shutting down", zap.Error(err))
			s.emit(logging.EventPingFailed, "host ping failed", &logging.PingFailedData{Error: err.Error()})
			s.requestShutdown(plugin.ShutdownPingFailure)
			return
		}
		select {
		case <-time.After(s.cfg.PingInterval):
		case <-ctx.Done():
			s.requestShutdown(plugin.ShutdownSignal)
			return
		}
	}
}

// shutdownAndCleanup runs the coordinated shutdown sequence: join the
// listener (bounded), deregister (best-effort), notify every plugin, then
// remove the socket file (§4.7 step 4).
func (s *Server) shutdownAndCleanup(ctx context.Context) {
	joined := s.joinListener()
	if !joined {
		s.log.Warn("listener goroutine did not join within budget; orphaning", zap.String("socket", s.socketPath))
	}

	if _, err := s.hostClient.DeregisterExtension(ctx, s.uuid); err != nil {
		s.log.Warn("deregister failed", zap.Error(err))
	} else {
		s.emit(logging.EventDeregistered, "extension deregistered from host", nil)
	}

	s.registry.ShutdownAll(ctx, s.reason)

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("remove socket file failed", zap.Error(err))
	}

	s.emit(logging.EventShutdown, "shutdown-and-cleanup complete", &logging.ShutdownData{
		Reason:         s.reason.String(),
		ListenerJoined: joined,
	})
}

// joinListener stops the Thrift server and waits for its goroutine to
// exit. thrift.TSimpleServer.Stop interrupts the accept loop on most
// transports, but nothing guarantees it on every platform, so a
// self-connect wakes a listener still blocked in accept. Polls every
// listenerPollInterval up to listenerJoinBudget, then gives up and lets
// the goroutine finish orphaned in the background (§9: resolved).
func (s *Server) joinListener() bool {
	_ = s.thriftServer.Stop()
	if conn, err := net.DialTimeout("unix", s.socketPath, listenerPollInterval); err == nil {
		s.emit(logging.EventListenerWake, "woke blocked listener via self-connect", nil)
		conn.Close()
	}

	deadline := time.After(listenerJoinBudget)
	ticker := time.NewTicker(listenerPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.listenerDone:
			return true
		case <-deadline:
			return false
		case <-ticker.C:
		}
	}
}

func (s *Server) emit(eventType, summary string, data interface{}) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(eventType, summary, "", nil, data)
}

// Ping answers the host's liveness probe for this extension (implements
// extension.Handler). The extension is always reachable if this method
// runs at all.
func (s *Server) Ping(ctx context.Context) (*extension.ExtensionStatus, error) {
	return &extension.ExtensionStatus{Code: 0}, nil
}

// Call dispatches an inbound plugin invocation to the registry (implements
// extension.Handler).
func (s *Server) Call(ctx context.Context, registry, item string, request extension.ExtensionPluginRequest) (*extension.ExtensionResponse, error) {
	reply, err := s.registry.Dispatch(ctx, registry, item, request)
	if err != nil {
		return nil, err
	}
	s.emit(logging.EventDispatch, fmt.Sprintf("dispatch %s/%s", registry, item), dispatchData(registry, item, request, reply))
	return reply.ToExtensionResponse(), nil
}

// Shutdown handles a host-initiated shutdown request (implements
// extension.Handler): it requests shutdown and returns immediately. The
// actual teardown runs on the ping-loop goroutine once it observes the
// stop handle.
func (s *Server) Shutdown(ctx context.Context) error {
	s.requestShutdown(plugin.ShutdownHostRequested)
	return nil
}

func dispatchData(registry, item string, request map[string]string, reply *response.Reply) *logging.DispatchData {
	status := "success"
	var code int32
	switch reply.Kind() {
	case response.KindFailure:
		status, code = "failure", 1
	case response.KindConstraint:
		status, code = "constraint", 1
	case response.KindReadonly:
		status, code = "readonly", 1
	}
	return &logging.DispatchData{
		Registry: registry,
		Plugin:   item,
		Action:   request["action"],
		Code:     code,
		Status:   status,
	}
}
