// Package client implements the Host Client (§4.1): outbound RPCs the
// extension issues against the host's registration socket.
package client

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/jingkaihe/hostext/gen/extension"
	"github.com/jingkaihe/hostext/internal/errx"
)

// Sentinel errors for the transport error surface (§7).
var (
	ErrDial      = errors.New("client: dial host socket")
	ErrTransport = errors.New("client: transport failure")
)

// Config controls how the client reaches the host.
type Config struct {
	// RegistrationSocketPath is the well-known socket the host listens on.
	RegistrationSocketPath string
	// ConnectTimeout bounds the initial dial. Advisory only (§9): it
	// reaches net.DialTimeout, but nothing downstream re-applies it.
	ConnectTimeout time.Duration
}

// HostClient wraps the generated Thrift client with the Config-driven
// connection and the spec's failure policy (§4.1).
type HostClient struct {
	cfg       Config
	conn      net.Conn
	transport thrift.TTransport
	thriftCli *extension.Client
}

// Dial opens a connection to the host's registration socket.
func Dial(cfg Config) (*HostClient, error) {
	conn, err := net.DialTimeout("unix", cfg.RegistrationSocketPath, cfg.ConnectTimeout)
	if err != nil {
		return nil, errx.Wrap(ErrDial, err)
	}

	transport := thrift.NewTSocketFromConnConf(conn, &thrift.TConfiguration{})
	factory := thrift.NewTBufferedTransportFactory(8192)
	wrapped, err := factory.GetTransport(transport)
	if err != nil {
		conn.Close()
		return nil, errx.Wrap(ErrTransport, err)
	}

	protoFactory := thrift.NewTBinaryProtocolFactoryConf(&thrift.TConfiguration{})
	iprot := protoFactory.GetProtocol(wrapped)
	oprot := protoFactory.GetProtocol(wrapped)

	return &HostClient{
		cfg:       cfg,
		conn:      conn,
		transport: wrapped,
		thriftCli: extension.NewClient(wrapped, iprot, oprot),
	}, nil
}

// RegisterExtension registers info and registry with the host.
func (c *HostClient) RegisterExtension(ctx context.Context, info *extension.InternalExtensionInfo, registry extension.ExtensionRegistry) (*extension.ExtensionStatus, error) {
	status, err := c.thriftCli.RegisterExtension(ctx, info, registry)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return status, nil
}

// DeregisterExtension is best-effort; callers during shutdown should log
// and swallow its error (§4.1).
func (c *HostClient) DeregisterExtension(ctx context.Context, uuid int64) (*extension.ExtensionStatus, error) {
	status, err := c.thriftCli.DeregisterExtension(ctx, uuid)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return status, nil
}

// Ping checks host liveness. Any error here is a liveness failure per the
// ping-loop's failure policy.
func (c *HostClient) Ping(ctx context.Context) (*extension.ExtensionStatus, error) {
	status, err := c.thriftCli.Ping(ctx)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return status, nil
}

// Query passes sql through to the host's query engine.
func (c *HostClient) Query(ctx context.Context, sql string) (*extension.ExtensionResponse, error) {
	resp, err := c.thriftCli.Query(ctx, sql)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return resp, nil
}

// GetQueryColumns asks the host for the column schema sql would produce.
func (c *HostClient) GetQueryColumns(ctx context.Context, sql string) (*extension.ExtensionResponse, error) {
	resp, err := c.thriftCli.GetQueryColumns(ctx, sql)
	if err != nil {
		return nil, errx.Wrap(ErrTransport, err)
	}
	return resp, nil
}

// Close releases the client's transport and underlying connection.
func (c *HostClient) Close() error {
	_ = c.thriftCli.Close()
	return c.conn.Close()
}
