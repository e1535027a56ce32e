package extension

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryProto() thrift.TProtocol {
	buf := thrift.NewTMemoryBuffer()
	factory := thrift.NewTBinaryProtocolFactoryConf(&thrift.TConfiguration{})
	return factory.GetProtocol(buf)
}

func TestExtensionStatus_RoundTrips(t *testing.T) {
	ctx := context.Background()
	proto := newMemoryProto()

	in := &ExtensionStatus{Code: 1, Message: "constraint violated", UUID: 42}
	require.NoError(t, in.Write(ctx, proto))

	var out ExtensionStatus
	require.NoError(t, out.Read(ctx, proto))
	assert.Equal(t, *in, out)
}

func TestExtensionResponse_RoundTrips(t *testing.T) {
	ctx := context.Background()
	proto := newMemoryProto()

	in := &ExtensionResponse{
		Status: &ExtensionStatus{Code: 0},
		Response: ExtensionPluginResponse{
			{"id": "1", "name": "alice"},
			{"id": "2", "name": "bob"},
		},
	}
	require.NoError(t, in.Write(ctx, proto))

	var out ExtensionResponse
	require.NoError(t, out.Read(ctx, proto))
	require.NotNil(t, out.Status)
	assert.Equal(t, in.Status.Code, out.Status.Code)
	assert.Equal(t, in.Response, out.Response)
}

func TestExtensionResponse_RoundTripsEmptyRows(t *testing.T) {
	ctx := context.Background()
	proto := newMemoryProto()

	in := &ExtensionResponse{Status: &ExtensionStatus{Code: 0}, Response: nil}
	require.NoError(t, in.Write(ctx, proto))

	var out ExtensionResponse
	require.NoError(t, out.Read(ctx, proto))
	assert.Empty(t, out.Response)
}

func TestInternalExtensionInfo_RoundTrips(t *testing.T) {
	ctx := context.Background()
	proto := newMemoryProto()

	in := &InternalExtensionInfo{Name: "example", Version: "1.0.0", SDKVersion: "1.0.0", MinSDKVersion: "1.0.0"}
	require.NoError(t, in.Write(ctx, proto))

	var out InternalExtensionInfo
	require.NoError(t, out.Read(ctx, proto))
	assert.Equal(t, *in, out)
}

func TestNotSupportedStatus_IsFailureCode(t *testing.T) {
	status := NotSupportedStatus()
	assert.Equal(t, int32(1), status.Code)
	assert.NotEmpty(t, status.Message)
}

func TestNewApplicationException_CarriesKindAndMessage(t *testing.T) {
	exc := NewApplicationException(thrift.UNKNOWN_METHOD, "no such method")
	assert.Equal(t, thrift.UNKNOWN_METHOD, exc.TypeId())
	assert.Equal(t, "no such method", exc.Error())
}
