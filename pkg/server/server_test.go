package server

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/hostext/gen/extension"
	"github.com/jingkaihe/hostext/pkg/client"
	"github.com/jingkaihe/hostext/pkg/config"
	"github.com/jingkaihe/hostext/pkg/obslog"
	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/jingkaihe/hostext/pkg/response"
)

// fakeHostProcessor stands in for the osquery-side extension manager: it
// answers register_extension/deregister_extension/ping the way the real
// host does, which gen/extension.Processor deliberately does not (that
// processor answers the extension side of the protocol, not the host side).
type fakeHostProcessor struct {
	nextUUID        int64
	registerCalls   atomic.Int32
	deregisterCalls atomic.Int32
	pingCalls       atomic.Int32
	pingErr         error
}

func (p *fakeHostProcessor) Process(ctx context.Context, in, out thrift.TProtocol) (bool, thrift.TException) {
	name, _, seqid, err := in.ReadMessageBegin(ctx)
	if err != nil {
		return false, thrift.NewTApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := in.Skip(ctx, thrift.STRUCT); err != nil {
		return false, thrift.NewTApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := in.ReadMessageEnd(ctx); err != nil {
		return false, thrift.NewTApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}

	var status extension.ExtensionStatus
	switch name {
	case "register_extension":
		p.registerCalls.Add(1)
		p.nextUUID++
		status = extension.ExtensionStatus{Code: 0, UUID: p.nextUUID}
	case "deregister_extension":
		p.deregisterCalls.Add(1)
		status = extension.ExtensionStatus{Code: 0}
	case "ping":
		p.pingCalls.Add(1)
		if p.pingErr != nil {
			status = extension.ExtensionStatus{Code: 1, Message: p.pingErr.Error()}
		} else {
			status = extension.ExtensionStatus{Code: 0}
		}
	default:
		exc := thrift.NewTApplicationException(thrift.UNKNOWN_METHOD, "unknown method "+name)
		return false, exc
	}

	if err := out.WriteMessageBegin(ctx, name, thrift.REPLY, seqid); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructBegin(ctx, name+"_result"); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldBegin(ctx, "success", thrift.STRUCT, 0); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := status.Write(ctx, out); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldEnd(ctx); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldStop(ctx); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructEnd(ctx); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMessageEnd(ctx); err != nil {
		return false, thrift.NewTApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return true, out.Flush(ctx)
}

func startFakeHost(t *testing.T, socketPath string, proc *fakeHostProcessor) func() {
	t.Helper()
	transport, err := thrift.NewTServerUnixSocket(socketPath)
	require.NoError(t, err)

	protoFactory := thrift.NewTBinaryProtocolFactoryConf(&thrift.TConfiguration{})
	transportFactory := thrift.NewTBufferedTransportFactory(8192)
	srv := thrift.NewTSimpleServer4(proc, transport, transportFactory, protoFactory)

	go func() { _ = srv.Serve() }()
	time.Sleep(20 * time.Millisecond)
	return func() { _ = srv.Stop() }
}

// fakeTable is a minimal readonly table plugin used to exercise Call.
type fakeTable struct{}

func (fakeTable) Name() string                  { return "fake" }
func (fakeTable) Registry() plugin.RegistryKind { return plugin.RegistryTable }
func (fakeTable) Routes() []map[string]string   { return nil }
func (fakeTable) Ping(ctx context.Context) *response.Reply { return response.Success() }
func (fakeTable) HandleCall(ctx context.Context, request map[string]string) *response.Reply {
	return response.Success().Rows([]map[string]string{{"col": "val"}})
}
func (fakeTable) Shutdown(ctx context.Context, reason plugin.ShutdownReason) {}

func newTestServer(t *testing.T, hostSocket string) (*Server, *client.HostClient) {
	t.Helper()
	hc, err := client.Dial(client.Config{RegistrationSocketPath: hostSocket, ConnectTimeout: time.Second})
	require.NoError(t, err)

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(fakeTable{}))

	cfg := &config.Config{
		Name:                   "example",
		Version:                "1.0.0",
		SDKVersion:             "1.0.0",
		MinSDKVersion:          "1.0.0",
		RegistrationSocketPath: hostSocket,
		PingInterval:           10 * time.Millisecond,
		ConnectTimeout:         time.Second,
	}
	return New(cfg, registry, hc, obslog.Noop(), nil), hc
}

func TestServer_Start_RegistersAndBindsListener(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()

	require.NoError(t, srv.Start(context.Background()))
	assert.Equal(t, int32(1), proc.registerCalls.Load())
	assert.NotZero(t, srv.uuid)
	assert.FileExists(t, srv.socketPath)

	srv.shutdownAndCleanup(context.Background())
}

func TestServer_PingLoop_ExitsOnStopHandle(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()
	require.NoError(t, srv.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		srv.pingLoop(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	srv.StopHandle().Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ping loop did not exit after stop handle was set")
	}
	assert.GreaterOrEqual(t, proc.pingCalls.Load(), int32(1))
	assert.Equal(t, plugin.ShutdownStopHandle, srv.reason)

	srv.shutdownAndCleanup(context.Background())
}

func TestServer_PingLoop_ExitsOnPingFailure(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{pingErr: errors.New("unhealthy")}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()
	require.NoError(t, srv.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		srv.pingLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ping loop did not exit after ping failure")
	}
	assert.False(t, srv.IsRunning())
	assert.Equal(t, plugin.ShutdownPingFailure, srv.reason)

	srv.shutdownAndCleanup(context.Background())
}

func TestServer_Call_DispatchesToRegistry(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()
	require.NoError(t, srv.Start(context.Background()))
	defer srv.shutdownAndCleanup(context.Background())

	resp, err := srv.Call(context.Background(), "table", "fake", extension.ExtensionPluginRequest{"action": "generate"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), resp.Status.Code)
	assert.Equal(t, "val", resp.Response[0]["col"])
}

func TestServer_Call_UnknownPluginIsProtocolError(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()
	require.NoError(t, srv.Start(context.Background()))
	defer srv.shutdownAndCleanup(context.Background())

	_, err := srv.Call(context.Background(), "table", "missing", nil)
	assert.Error(t, err)
}

func TestServer_Shutdown_RequestsStop(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()
	require.NoError(t, srv.Start(context.Background()))
	defer srv.shutdownAndCleanup(context.Background())

	assert.True(t, srv.IsRunning())
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.False(t, srv.IsRunning())
	assert.Equal(t, plugin.ShutdownHostRequested, srv.reason)
}

func TestServer_Run_FullLifecycleRemovesSocket(t *testing.T) {
	hostSocket := filepath.Join(t.TempDir(), "host.sock")
	proc := &fakeHostProcessor{}
	stopHost := startFakeHost(t, hostSocket, proc)
	defer stopHost()

	srv, hc := newTestServer(t, hostSocket)
	defer hc.Close()

	done := make(chan struct{})
	go func() {
		_ = srv.Run(context.Background())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	socketPath := srv.socketPath
	srv.StopHandle().Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop handle was set")
	}
	assert.NoFileExists(t, socketPath)
	assert.Equal(t, int32(1), proc.deregisterCalls.Load())
}
