package plugin

import (
	"context"
	"testing"

	"github.com/jingkaihe/hostext/pkg/columns"
	"github.com/jingkaihe/hostext/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_SeedsClosedKindSet(t *testing.T) {
	r := NewRegistry()
	for _, kind := range Kinds() {
		_, ok := r.plugins[kind]
		assert.True(t, ok, "kind %q should be pre-seeded", kind)
	}
}

func TestRegistry_Register_RejectsDuplicateNameWithinKind(t *testing.T) {
	r := NewRegistry()
	table := NewTableAdapter(&fakeReadonlyTable{name: "dup", cols: []columns.Column{{Name: "c", Type: columns.TypeText}}})
	require.NoError(t, r.Register(table))
	assert.Error(t, r.Register(table))
}

func TestRegistry_Register_SameNameDifferentKindAllowed(t *testing.T) {
	r := NewRegistry()
	table := NewTableAdapter(&fakeReadonlyTable{name: "shared", cols: []columns.Column{{Name: "c", Type: columns.TypeText}}})
	logger := NewLoggerAdapter(&fakeLogger{name: "shared"})
	assert.NoError(t, r.Register(table))
	assert.NoError(t, r.Register(logger))
}

func TestRegistry_Dispatch_UnknownKindIsProtocolError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), "bogus", "x", nil)
	assert.Error(t, err)
}

func TestRegistry_Dispatch_UnknownNameIsProtocolError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Dispatch(context.Background(), "table", "missing", nil)
	assert.Error(t, err)
}

func TestRegistry_Dispatch_RoutesToAdapter(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewTableAdapter(twoColumnTable())))
	reply, err := r.Dispatch(context.Background(), "table", "example", map[string]string{"action": "generate"})
	require.NoError(t, err)
	assert.Equal(t, 0, int(reply.ToExtensionResponse().Status.Code))
}

func TestRegistry_ShutdownAll_IsolatesPanics(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&panickingPlugin{name: "p1"}))
	require.NoError(t, r.Register(NewLoggerAdapter(&fakeLogger{name: "p2"})))
	assert.NotPanics(t, func() {
		r.ShutdownAll(context.Background(), ShutdownStopHandle)
	})
}

type panickingPlugin struct{ name string }

func (p *panickingPlugin) Name() string                    { return p.name }
func (p *panickingPlugin) Registry() RegistryKind          { return RegistryConfig }
func (p *panickingPlugin) Routes() []map[string]string     { return nil }
func (p *panickingPlugin) Ping(context.Context) *response.Reply { return response.Success() }
func (p *panickingPlugin) HandleCall(context.Context, map[string]string) *response.Reply {
	return response.Success()
}
func (p *panickingPlugin) Shutdown(context.Context, ShutdownReason) {
	panic("boom")
}
