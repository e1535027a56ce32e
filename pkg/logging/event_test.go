package logging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSONFieldNames(t *testing.T) {
	event := &Event{
		Timestamp:   time.Date(2026, 2, 23, 14, 30, 0, 123000000, time.UTC),
		RunID:       "7",
		AgentSystem: "example-table",
		EventType:   EventDispatch,
		Summary:     "table.generate",
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Contains(t, m, "ts")
	assert.Contains(t, m, "run_id")
	assert.Contains(t, m, "agent_system")
	assert.Contains(t, m, "event_type")
	assert.Contains(t, m, "summary")
	// Omitempty fields absent
	assert.NotContains(t, m, "plugin")
	assert.NotContains(t, m, "tags")
	assert.NotContains(t, m, "data")
}

func TestEvent_OmitemptyPresent(t *testing.T) {
	event := &Event{
		Timestamp:   time.Now().UTC(),
		RunID:       "test",
		AgentSystem: "test",
		EventType:   EventPingFailed,
		Summary:     "test",
		Plugin:      "example-table",
		Tags:        []string{"liveness"},
		Data:        json.RawMessage(`{"error":"dial failed"}`),
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Contains(t, m, "plugin")
	assert.Contains(t, m, "tags")
	assert.Contains(t, m, "data")
}

func TestEvent_TimestampFormat(t *testing.T) {
	ts := time.Date(2026, 2, 23, 14, 30, 0, 123456789, time.UTC)
	event := &Event{Timestamp: ts, RunID: "r", AgentSystem: "a", EventType: "t", Summary: "s"}

	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	tsStr := m["ts"].(string)
	parsed, err := time.Parse(time.RFC3339Nano, tsStr)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestDispatchData_StatusAlwaysPresent(t *testing.T) {
	data := &DispatchData{
		Registry: "table",
		Plugin:   "example-table",
		Action:   "generate",
		Code:     0,
		Status:   "success",
	}
	b, err := json.Marshal(data)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "status")
	assert.Equal(t, "success", m["status"])
}

func TestRegisteredData_RoundTrips(t *testing.T) {
	data := &RegisteredData{UUID: 42, SocketPath: "/tmp/osquery.em.sock.42"}
	b, err := json.Marshal(data)
	require.NoError(t, err)

	var got RegisteredData
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, *data, got)
}

func TestEventTypeConstants(t *testing.T) {
	assert.Equal(t, "registered", EventRegistered)
	assert.Equal(t, "deregistered", EventDeregistered)
	assert.Equal(t, "ping_failed", EventPingFailed)
	assert.Equal(t, "dispatch", EventDispatch)
	assert.Equal(t, "shutdown", EventShutdown)
	assert.Equal(t, "listener_wake", EventListenerWake)
}
