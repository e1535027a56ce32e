package extension

import (
	"context"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Client issues the outbound RPC surface (§6) against the host's
// registration endpoint: register, deregister, ping, and the two
// pass-through query calls.
type Client struct {
	transport thrift.TTransport
	iprot     thrift.TProtocol
	oprot     thrift.TProtocol
	seqID     int32
}

// NewClient wraps an already-open transport/protocol pair. Callers (see
// pkg/client) are responsible for dialing the transport and selecting the
// protocol factory.
func NewClient(transport thrift.TTransport, iprot, oprot thrift.TProtocol) *Client {
	return &Client{transport: transport, iprot: iprot, oprot: oprot}
}

func (c *Client) nextSeqID() int32 {
	c.seqID++
	return c.seqID
}

func (c *Client) call(ctx context.Context, method string, writeArgs func() error, readResult func() error) error {
	seqid := c.nextSeqID()
	if err := c.oprot.WriteMessageBegin(ctx, method, thrift.CALL, seqid); err != nil {
		return err
	}
	if err := writeArgs(); err != nil {
		return err
	}
	if err := c.oprot.WriteMessageEnd(ctx); err != nil {
		return err
	}
	if err := c.oprot.Flush(ctx); err != nil {
		return err
	}

	_, mtype, _, err := c.iprot.ReadMessageBegin(ctx)
	if err != nil {
		return err
	}
	if mtype == thrift.EXCEPTION {
		exc := thrift.NewTApplicationException(thrift.UNKNOWN_APPLICATION_EXCEPTION, "")
		if err := exc.Read(ctx, c.iprot); err != nil {
			return err
		}
		if err := c.iprot.ReadMessageEnd(ctx); err != nil {
			return err
		}
		return exc
	}
	if err := readResult(); err != nil {
		return err
	}
	return c.iprot.ReadMessageEnd(ctx)
}

// RegisterExtension registers info and its published routes with the host,
// returning the host-assigned status (whose UUID field is the extension's
// new identity on success).
func (c *Client) RegisterExtension(ctx context.Context, info *InternalExtensionInfo, registry ExtensionRegistry) (*ExtensionStatus, error) {
	var status ExtensionStatus
	err := c.call(ctx, "register_extension",
		func() error {
			if err := c.oprot.WriteStructBegin(ctx, "register_extension_args"); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldBegin(ctx, "info", thrift.STRUCT, 1); err != nil {
				return err
			}
			if err := info.Write(ctx, c.oprot); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldEnd(ctx); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldBegin(ctx, "registry", thrift.MAP, 2); err != nil {
				return err
			}
			if err := writeRegistry(ctx, c.oprot, registry); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldEnd(ctx); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldStop(ctx); err != nil {
				return err
			}
			return c.oprot.WriteStructEnd(ctx)
		},
		func() error { return readStatusResult(ctx, c.iprot, &status) },
	)
	return &status, err
}

// DeregisterExtension tells the host this extension is going away.
func (c *Client) DeregisterExtension(ctx context.Context, uuid int64) (*ExtensionStatus, error) {
	var status ExtensionStatus
	err := c.call(ctx, "deregister_extension",
		func() error {
			if err := c.oprot.WriteStructBegin(ctx, "deregister_extension_args"); err != nil {
				return err
			}
			if err := writeI64Field(ctx, c.oprot, "uuid", 1, uuid); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldStop(ctx); err != nil {
				return err
			}
			return c.oprot.WriteStructEnd(ctx)
		},
		func() error { return readStatusResult(ctx, c.iprot, &status) },
	)
	return &status, err
}

// Ping checks host liveness.
func (c *Client) Ping(ctx context.Context) (*ExtensionStatus, error) {
	var status ExtensionStatus
	err := c.call(ctx, "ping",
		func() error {
			if err := c.oprot.WriteStructBegin(ctx, "ping_args"); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldStop(ctx); err != nil {
				return err
			}
			return c.oprot.WriteStructEnd(ctx)
		},
		func() error { return readStatusResult(ctx, c.iprot, &status) },
	)
	return &status, err
}

// Query passes sql through to the host's query engine.
func (c *Client) Query(ctx context.Context, sql string) (*ExtensionResponse, error) {
	return c.sqlCall(ctx, "query", sql)
}

// GetQueryColumns asks the host for the column schema sql would produce.
func (c *Client) GetQueryColumns(ctx context.Context, sql string) (*ExtensionResponse, error) {
	return c.sqlCall(ctx, "get_query_columns", sql)
}

func (c *Client) sqlCall(ctx context.Context, method, sql string) (*ExtensionResponse, error) {
	var resp ExtensionResponse
	err := c.call(ctx, method,
		func() error {
			if err := c.oprot.WriteStructBegin(ctx, method+"_args"); err != nil {
				return err
			}
			if err := writeStringField(ctx, c.oprot, "sql", 1, sql); err != nil {
				return err
			}
			if err := c.oprot.WriteFieldStop(ctx); err != nil {
				return err
			}
			return c.oprot.WriteStructEnd(ctx)
		},
		func() error { return readResponseResult(ctx, c.iprot, &resp) },
	)
	return &resp, err
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	c.transport.Close()
	return nil
}

func readStatusResult(ctx context.Context, iprot thrift.TProtocol, out *ExtensionStatus) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	found := false
	for {
		_, ftype, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if ftype == thrift.STOP {
			break
		}
		if id == 0 && ftype == thrift.STRUCT {
			if err := out.Read(ctx, iprot); err != nil {
				return err
			}
			found = true
		} else if err := iprot.Skip(ctx, ftype); err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("extension: result missing success field")
	}
	return iprot.ReadStructEnd(ctx)
}

func readResponseResult(ctx context.Context, iprot thrift.TProtocol, out *ExtensionResponse) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	found := false
	for {
		_, ftype, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if ftype == thrift.STOP {
			break
		}
		if id == 0 && ftype == thrift.STRUCT {
			if err := out.Read(ctx, iprot); err != nil {
				return err
			}
			found = true
		} else if err := iprot.Skip(ctx, ftype); err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	if !found {
		return fmt.Errorf("extension: result missing success field")
	}
	return iprot.ReadStructEnd(ctx)
}
