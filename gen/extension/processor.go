package extension

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// Handler is implemented by the server-side runtime (pkg/server) to answer
// the inbound RPC surface (§6): ping, call, and shutdown. The remaining
// extension-manager-style methods are answered generically by Processor
// itself, per §6's "not supported" rule.
type Handler interface {
	Ping(ctx context.Context) (*ExtensionStatus, error)
	Call(ctx context.Context, registry, item string, request ExtensionPluginRequest) (*ExtensionResponse, error)
	Shutdown(ctx context.Context) error
}

// Processor implements thrift.TProcessor by dispatching on the inbound
// method name, closing over a Handler for the three real methods.
type Processor struct {
	handler Handler
}

// NewProcessor builds a Processor around handler.
func NewProcessor(handler Handler) *Processor {
	return &Processor{handler: handler}
}

// Process implements thrift.TProcessor.
func (p *Processor) Process(ctx context.Context, in, out thrift.TProtocol) (bool, thrift.TException) {
	name, _, seqid, err := in.ReadMessageBegin(ctx)
	if err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}

	switch name {
	case "ping":
		return p.processPing(ctx, seqid, in, out)
	case "call":
		return p.processCall(ctx, seqid, in, out)
	case "shutdown":
		return p.processShutdown(ctx, seqid, in, out)
	case "extensions":
		return p.processExtensions(ctx, seqid, in, out)
	case "options":
		return p.processOptions(ctx, seqid, in, out)
	case "register_extension", "deregister_extension":
		return p.processNotSupportedStatus(ctx, name, seqid, in, out)
	case "query", "get_query_columns":
		return p.processNotSupportedResponse(ctx, name, seqid, in, out)
	default:
		if err := in.Skip(ctx, thrift.STRUCT); err != nil {
			return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		}
		if err := in.ReadMessageEnd(ctx); err != nil {
			return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		}
		exc := NewApplicationException(thrift.UNKNOWN_METHOD, "unknown method "+name)
		if werr := writeException(ctx, out, name, seqid, exc); werr != nil {
			return false, NewApplicationException(thrift.INTERNAL_ERROR, werr.Error())
		}
		return true, nil
	}
}

func writeException(ctx context.Context, oprot thrift.TProtocol, name string, seqid int32, exc *thrift.TApplicationException) error {
	if err := oprot.WriteMessageBegin(ctx, name, thrift.EXCEPTION, seqid); err != nil {
		return err
	}
	if err := exc.Write(ctx, oprot); err != nil {
		return err
	}
	if err := oprot.WriteMessageEnd(ctx); err != nil {
		return err
	}
	return oprot.Flush(ctx)
}

func (p *Processor) processPing(ctx context.Context, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	status, err := p.handler.Ping(ctx)
	if err != nil {
		exc := NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
		return true, writeExceptionErr(ctx, out, "ping", seqid, exc)
	}
	return true, writeStatusResult(ctx, out, "ping", seqid, status)
}

func (p *Processor) processCall(ctx context.Context, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if _, err := in.ReadStructBegin(ctx); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	var registry, item string
	var request ExtensionPluginRequest
	for {
		_, ftype, id, err := in.ReadFieldBegin(ctx)
		if err != nil {
			return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		}
		if ftype == thrift.STOP {
			break
		}
		switch id {
		case 1:
			registry, err = in.ReadString(ctx)
		case 2:
			item, err = in.ReadString(ctx)
		case 3:
			request, err = readStringMapField(ctx, in)
		default:
			err = in.Skip(ctx, ftype)
		}
		if err != nil {
			return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		}
		if err := in.ReadFieldEnd(ctx); err != nil {
			return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
		}
	}
	if err := in.ReadStructEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := in.ReadMessageEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}

	resp, err := p.handler.Call(ctx, registry, item, request)
	if err != nil {
		exc := NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
		return true, writeExceptionErr(ctx, out, "call", seqid, exc)
	}
	return true, writeResponseResult(ctx, out, "call", seqid, resp)
}

func (p *Processor) processShutdown(ctx context.Context, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := p.handler.Shutdown(ctx); err != nil {
		exc := NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
		return true, writeExceptionErr(ctx, out, "shutdown", seqid, exc)
	}
	if err := out.WriteMessageBegin(ctx, "shutdown", thrift.REPLY, seqid); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructBegin(ctx, "shutdown_result"); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldStop(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMessageEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return true, out.Flush(ctx)
}

// processExtensions and processOptions always reply with an empty list/map,
// per §6: the core extension never itself hosts nested extensions or CLI
// options.
func (p *Processor) processExtensions(ctx context.Context, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := out.WriteMessageBegin(ctx, "extensions", thrift.REPLY, seqid); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructBegin(ctx, "extensions_result"); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldBegin(ctx, "success", thrift.MAP, 0); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMapBegin(ctx, thrift.I64, thrift.STRUCT, 0); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMapEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldStop(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMessageEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return true, out.Flush(ctx)
}

func (p *Processor) processOptions(ctx context.Context, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	if err := out.WriteMessageBegin(ctx, "options", thrift.REPLY, seqid); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructBegin(ctx, "options_result"); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldBegin(ctx, "success", thrift.MAP, 0); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMapBegin(ctx, thrift.STRING, thrift.STRUCT, 0); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMapEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteFieldStop(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteStructEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	if err := out.WriteMessageEnd(ctx); err != nil {
		return false, NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return true, out.Flush(ctx)
}

func (p *Processor) processNotSupportedStatus(ctx context.Context, name string, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	return true, writeStatusResult(ctx, out, name, seqid, NotSupportedStatus())
}

func (p *Processor) processNotSupportedResponse(ctx context.Context, name string, seqid int32, in, out thrift.TProtocol) (bool, thrift.TException) {
	if err := skipArgs(ctx, in); err != nil {
		return false, NewApplicationException(thrift.PROTOCOL_ERROR, err.Error())
	}
	resp := &ExtensionResponse{Status: NotSupportedStatus()}
	return true, writeResponseResult(ctx, out, name, seqid, resp)
}

func skipArgs(ctx context.Context, in thrift.TProtocol) error {
	if err := in.Skip(ctx, thrift.STRUCT); err != nil {
		return err
	}
	return in.ReadMessageEnd(ctx)
}

func writeExceptionErr(ctx context.Context, out thrift.TProtocol, name string, seqid int32, exc *thrift.TApplicationException) thrift.TException {
	if err := writeException(ctx, out, name, seqid, exc); err != nil {
		return NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return nil
}

func writeStatusResult(ctx context.Context, out thrift.TProtocol, name string, seqid int32, status *ExtensionStatus) thrift.TException {
	wrap := func() error {
		if err := out.WriteMessageBegin(ctx, name, thrift.REPLY, seqid); err != nil {
			return err
		}
		if err := out.WriteStructBegin(ctx, name+"_result"); err != nil {
			return err
		}
		if err := out.WriteFieldBegin(ctx, "success", thrift.STRUCT, 0); err != nil {
			return err
		}
		if err := status.Write(ctx, out); err != nil {
			return err
		}
		if err := out.WriteFieldEnd(ctx); err != nil {
			return err
		}
		if err := out.WriteFieldStop(ctx); err != nil {
			return err
		}
		if err := out.WriteStructEnd(ctx); err != nil {
			return err
		}
		if err := out.WriteMessageEnd(ctx); err != nil {
			return err
		}
		return out.Flush(ctx)
	}
	if err := wrap(); err != nil {
		return NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return nil
}

func writeResponseResult(ctx context.Context, out thrift.TProtocol, name string, seqid int32, resp *ExtensionResponse) thrift.TException {
	wrap := func() error {
		if err := out.WriteMessageBegin(ctx, name, thrift.REPLY, seqid); err != nil {
			return err
		}
		if err := out.WriteStructBegin(ctx, name+"_result"); err != nil {
			return err
		}
		if err := out.WriteFieldBegin(ctx, "success", thrift.STRUCT, 0); err != nil {
			return err
		}
		if err := resp.Write(ctx, out); err != nil {
			return err
		}
		if err := out.WriteFieldEnd(ctx); err != nil {
			return err
		}
		if err := out.WriteFieldStop(ctx); err != nil {
			return err
		}
		if err := out.WriteStructEnd(ctx); err != nil {
			return err
		}
		if err := out.WriteMessageEnd(ctx); err != nil {
			return err
		}
		return out.Flush(ctx)
	}
	if err := wrap(); err != nil {
		return NewApplicationException(thrift.INTERNAL_ERROR, err.Error())
	}
	return nil
}
