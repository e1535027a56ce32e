// Package extension contains the hand-maintained Thrift wire types for the
// extension <-> host RPC protocol. A real deployment generates this package
// from the host's extension.thrift IDL; this tree mirrors that generated
// shape by hand against github.com/apache/thrift's runtime so the rest of
// the module can treat the codec as an external, already-given dependency.
package extension

import (
	"context"

	"github.com/apache/thrift/lib/go/thrift"
)

// ExtensionStatus is the status record attached to every RPC reply.
// Code 0 means success; any other value is a failure (see Response Shaping).
type ExtensionStatus struct {
	Code    int32  `thrift:"code,1"`
	Message string `thrift:"message,2"`
	UUID    int64  `thrift:"uuid,3"`
}

func (s *ExtensionStatus) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "ExtensionStatus"); err != nil {
		return err
	}
	if err := writeI32Field(ctx, oprot, "code", 1, s.Code); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "message", 2, s.Message); err != nil {
		return err
	}
	if err := writeI64Field(ctx, oprot, "uuid", 3, s.UUID); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return err
	}
	return oprot.WriteStructEnd(ctx)
}

func (s *ExtensionStatus) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, ftype, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if ftype == thrift.STOP {
			break
		}
		switch id {
		case 1:
			s.Code, err = iprot.ReadI32(ctx)
		case 2:
			s.Message, err = iprot.ReadString(ctx)
		case 3:
			s.UUID, err = iprot.ReadI64(ctx)
		default:
			err = iprot.Skip(ctx, ftype)
		}
		if err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

// ExtensionPluginRequest is the method-specific payload of an inbound call;
// the "action" key selects the adapter method, other keys are its arguments.
type ExtensionPluginRequest map[string]string

// ExtensionPluginResponse is an ordered sequence of string/string rows.
type ExtensionPluginResponse []map[string]string

// ExtensionResponse pairs a status with a row sequence; this is the
// canonical reply shape for both plugin calls and host pass-through queries.
type ExtensionResponse struct {
	Status   *ExtensionStatus        `thrift:"status,1"`
	Response ExtensionPluginResponse `thrift:"response,2"`
}

func (r *ExtensionResponse) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "ExtensionResponse"); err != nil {
		return err
	}
	if r.Status != nil {
		if err := oprot.WriteFieldBegin(ctx, "status", thrift.STRUCT, 1); err != nil {
			return err
		}
		if err := r.Status.Write(ctx, oprot); err != nil {
			return err
		}
		if err := oprot.WriteFieldEnd(ctx); err != nil {
			return err
		}
	}
	if err := oprot.WriteFieldBegin(ctx, "response", thrift.LIST, 2); err != nil {
		return err
	}
	if err := writeRows(ctx, oprot, r.Response); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(ctx); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return err
	}
	return oprot.WriteStructEnd(ctx)
}

func (r *ExtensionResponse) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, ftype, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if ftype == thrift.STOP {
			break
		}
		switch id {
		case 1:
			r.Status = &ExtensionStatus{}
			err = r.Status.Read(ctx, iprot)
		case 2:
			r.Response, err = readRows(ctx, iprot)
		default:
			err = iprot.Skip(ctx, ftype)
		}
		if err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

// InternalExtensionInfo describes the extension to the host at registration.
type InternalExtensionInfo struct {
	Name          string `thrift:"name,1"`
	Version       string `thrift:"version,2"`
	SDKVersion    string `thrift:"sdk_version,3"`
	MinSDKVersion string `thrift:"min_sdk_version,4"`
}

func (i *InternalExtensionInfo) Write(ctx context.Context, oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin(ctx, "InternalExtensionInfo"); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "name", 1, i.Name); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "version", 2, i.Version); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "sdk_version", 3, i.SDKVersion); err != nil {
		return err
	}
	if err := writeStringField(ctx, oprot, "min_sdk_version", 4, i.MinSDKVersion); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(ctx); err != nil {
		return err
	}
	return oprot.WriteStructEnd(ctx)
}

func (i *InternalExtensionInfo) Read(ctx context.Context, iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(ctx); err != nil {
		return err
	}
	for {
		_, ftype, id, err := iprot.ReadFieldBegin(ctx)
		if err != nil {
			return err
		}
		if ftype == thrift.STOP {
			break
		}
		switch id {
		case 1:
			i.Name, err = iprot.ReadString(ctx)
		case 2:
			i.Version, err = iprot.ReadString(ctx)
		case 3:
			i.SDKVersion, err = iprot.ReadString(ctx)
		case 4:
			i.MinSDKVersion, err = iprot.ReadString(ctx)
		default:
			err = iprot.Skip(ctx, ftype)
		}
		if err != nil {
			return err
		}
		if err := iprot.ReadFieldEnd(ctx); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd(ctx)
}

// ExtensionRegistry is the registration-time route payload: registry kind ->
// plugin name -> published route rows.
type ExtensionRegistry map[string]map[string]ExtensionPluginResponse

// InternalExtensionList answers the manager-style "extensions" call; the
// core extension always replies with an empty list (see §6).
type InternalExtensionList map[int64]InternalExtensionInfo

// InternalOptionInfo is a single CLI-style flag/option descriptor, as
// returned by the manager-style "options" call (always empty here).
type InternalOptionInfo struct {
	Value       string `thrift:"value,1"`
	DefaultVal  string `thrift:"default_value,2"`
	Type        string `thrift:"type,3"`
}

// InternalOptionList answers the manager-style "options" call.
type InternalOptionList map[string]InternalOptionInfo

func writeI32Field(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v int32) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.I32, id); err != nil {
		return err
	}
	if err := oprot.WriteI32(ctx, v); err != nil {
		return err
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeI64Field(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v int64) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.I64, id); err != nil {
		return err
	}
	if err := oprot.WriteI64(ctx, v); err != nil {
		return err
	}
	return oprot.WriteFieldEnd(ctx)
}

func writeStringField(ctx context.Context, oprot thrift.TProtocol, name string, id int16, v string) error {
	if err := oprot.WriteFieldBegin(ctx, name, thrift.STRING, id); err != nil {
		return err
	}
	if err := oprot.WriteString(ctx, v); err != nil {
		return err
	}
	return oprot.WriteFieldEnd(ctx)
}

func readStringMapField(ctx context.Context, iprot thrift.TProtocol) (map[string]string, error) {
	_, _, size, err := iprot.ReadMapBegin(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, size)
	for i := 0; i < size; i++ {
		k, err := iprot.ReadString(ctx)
		if err != nil {
			return nil, err
		}
		v, err := iprot.ReadString(ctx)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, iprot.ReadMapEnd(ctx)
}

func writeRows(ctx context.Context, oprot thrift.TProtocol, rows ExtensionPluginResponse) error {
	if err := oprot.WriteListBegin(ctx, thrift.MAP, len(rows)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := oprot.WriteMapBegin(ctx, thrift.STRING, thrift.STRING, len(row)); err != nil {
			return err
		}
		for k, v := range row {
			if err := oprot.WriteString(ctx, k); err != nil {
				return err
			}
			if err := oprot.WriteString(ctx, v); err != nil {
				return err
			}
		}
		if err := oprot.WriteMapEnd(ctx); err != nil {
			return err
		}
	}
	return oprot.WriteListEnd(ctx)
}

func readRows(ctx context.Context, iprot thrift.TProtocol) (ExtensionPluginResponse, error) {
	_, size, err := iprot.ReadListBegin(ctx)
	if err != nil {
		return nil, err
	}
	rows := make(ExtensionPluginResponse, 0, size)
	for i := 0; i < size; i++ {
		row, err := readStringMapField(ctx, iprot)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, iprot.ReadListEnd(ctx)
}

func writeRegistry(ctx context.Context, oprot thrift.TProtocol, reg ExtensionRegistry) error {
	if err := oprot.WriteMapBegin(ctx, thrift.STRING, thrift.MAP, len(reg)); err != nil {
		return err
	}
	for kind, plugins := range reg {
		if err := oprot.WriteString(ctx, kind); err != nil {
			return err
		}
		if err := oprot.WriteMapBegin(ctx, thrift.STRING, thrift.LIST, len(plugins)); err != nil {
			return err
		}
		for name, rows := range plugins {
			if err := oprot.WriteString(ctx, name); err != nil {
				return err
			}
			if err := writeRows(ctx, oprot, rows); err != nil {
				return err
			}
		}
		if err := oprot.WriteMapEnd(ctx); err != nil {
			return err
		}
	}
	return oprot.WriteMapEnd(ctx)
}

// NewApplicationException wraps a transport/protocol-layer failure the way
// the host expects: a structured exception distinct from a plugin reply
// envelope (see §7, Dispatch errors).
func NewApplicationException(kind int32, message string) *thrift.TApplicationException {
	return thrift.NewTApplicationException(kind, message)
}

// NotSupportedStatus is the status returned (as an ExtensionStatus, not an
// exception) for the extension-manager-style calls the core never implements.
func NotSupportedStatus() *ExtensionStatus {
	return &ExtensionStatus{Code: 1, Message: "not supported"}
}
