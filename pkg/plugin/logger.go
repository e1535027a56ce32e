package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jingkaihe/hostext/pkg/response"
)

// Severity is the closed logging-severity enum (§4.4).
type Severity int32

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// ParseSeverity is total: any value outside {0,1,2} clamps to Info.
func ParseSeverity(s int) Severity {
	switch s {
	case int(SeverityWarning):
		return SeverityWarning
	case int(SeverityError):
		return SeverityError
	default:
		return SeverityInfo
	}
}

// StatusEntry is one status-log record, with spec-mandated defaults for
// missing fields.
type StatusEntry struct {
	Severity Severity
	Filename string
	Line     int
	Message  string
}

// Logger feature bits, returned by the "features" action.
const (
	FeatureBlank     int32 = 0
	FeatureLogStatus int32 = 1
	FeatureLogEvent  int32 = 2
)

// Logger is the required logger-plugin surface; LogString is the only
// mandatory method, everything else has a spec-mandated default.
type Logger interface {
	Name() string
	LogString(ctx context.Context, msg string) error
}

// StatusLogger is implemented by loggers that want bespoke status-log
// handling instead of the LogString-based default.
type StatusLogger interface {
	LogStatus(ctx context.Context, status StatusEntry) error
}

// SnapshotLogger is implemented by loggers that want bespoke snapshot
// handling instead of the LogString-based default.
type SnapshotLogger interface {
	LogSnapshot(ctx context.Context, snapshot string) error
}

// InitLogger is implemented by loggers that care about initialization.
type InitLogger interface {
	Init(ctx context.Context, name string) error
}

// HealthLogger is implemented by loggers with a non-trivial health check.
type HealthLogger interface {
	Health(ctx context.Context) error
}

// FeatureLogger is implemented by loggers that advertise a non-default
// feature bitmask.
type FeatureLogger interface {
	Features() int32
}

// ShutdownLogger is implemented by loggers that need shutdown notification.
type ShutdownLogger interface {
	Shutdown(ctx context.Context, reason ShutdownReason)
}

// LoggerAdapter lowers a Logger onto the Plugin Contract (§4.4).
type LoggerAdapter struct {
	logger Logger
}

// NewLoggerAdapter builds an adapter around logger.
func NewLoggerAdapter(logger Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: logger}
}

func (a *LoggerAdapter) Name() string           { return a.logger.Name() }
func (a *LoggerAdapter) Registry() RegistryKind { return RegistryLogger }
func (a *LoggerAdapter) Routes() []map[string]string { return nil }

func (a *LoggerAdapter) Ping(ctx context.Context) *response.Reply {
	return response.Success()
}

func (a *LoggerAdapter) Shutdown(ctx context.Context, reason ShutdownReason) {
	if s, ok := a.logger.(ShutdownLogger); ok {
		s.Shutdown(ctx, reason)
	}
}

func (a *LoggerAdapter) features() int32 {
	if f, ok := a.logger.(FeatureLogger); ok {
		return f.Features()
	}
	return FeatureLogStatus
}

func (a *LoggerAdapter) HandleCall(ctx context.Context, request map[string]string) (reply *response.Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = response.Failure(fmt.Sprintf("plugin panic: %v", r))
		}
	}()

	logValue, hasLog := request["log"]

	switch {
	case hasLog && request["status"] == "true":
		return a.logStatusBatch(ctx, logValue)
	case hasLog && isJSON(logValue):
		return a.logQueryResult(ctx, logValue)
	case hasLog:
		return toReply(a.logger.LogString(ctx, logValue))
	case requestHasKey(request, "snapshot"):
		return a.logSnapshot(ctx, request["snapshot"])
	case requestHasKey(request, "init"):
		return a.init(ctx, request["init"])
	case requestHasKey(request, "health"):
		return a.health(ctx)
	case request["action"] == "features":
		return response.SuccessWithCode(a.features())
	case requestHasKey(request, "string"):
		return toReply(a.logger.LogString(ctx, request["string"]))
	default:
		return toReply(a.logger.LogString(ctx, ""))
	}
}

func requestHasKey(request map[string]string, key string) bool {
	_, ok := request[key]
	return ok
}

func isJSON(s string) bool {
	return json.Valid([]byte(s))
}

type rawStatusEntry struct {
	S int    `json:"s"`
	F string `json:"f"`
	I int    `json:"i"`
	M string `json:"m"`
}

func (a *LoggerAdapter) logStatusBatch(ctx context.Context, logValue string) *response.Reply {
	var raw []rawStatusEntry
	if err := json.Unmarshal([]byte(logValue), &raw); err != nil {
		return response.Failure("malformed status log: " + err.Error())
	}
	for _, r := range raw {
		entry := StatusEntry{
			Severity: ParseSeverity(r.S),
			Filename: r.F,
			Line:     r.I,
			Message:  r.M,
		}
		if entry.Filename == "" {
			entry.Filename = "unknown"
		}
		if err := a.logStatus(ctx, entry); err != nil {
			return response.Failure(err.Error())
		}
	}
	return response.Success()
}

func (a *LoggerAdapter) logStatus(ctx context.Context, entry StatusEntry) error {
	if s, ok := a.logger.(StatusLogger); ok {
		return s.LogStatus(ctx, entry)
	}
	return a.logger.LogString(ctx, formatStatus(entry))
}

func formatStatus(e StatusEntry) string {
	return fmt.Sprintf("[%d] %s:%d %s", e.Severity, e.Filename, e.Line, e.Message)
}

func (a *LoggerAdapter) logQueryResult(ctx context.Context, logValue string) *response.Reply {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(logValue), "", "  "); err != nil {
		return response.Failure("malformed query result: " + err.Error())
	}
	return toReply(a.logger.LogString(ctx, buf.String()))
}

func (a *LoggerAdapter) logSnapshot(ctx context.Context, snapshot string) *response.Reply {
	if s, ok := a.logger.(SnapshotLogger); ok {
		return toReply(s.LogSnapshot(ctx, snapshot))
	}
	return toReply(a.logger.LogString(ctx, snapshot))
}

func (a *LoggerAdapter) init(ctx context.Context, name string) *response.Reply {
	if i, ok := a.logger.(InitLogger); ok {
		return toReply(i.Init(ctx, name))
	}
	return response.Success()
}

func (a *LoggerAdapter) health(ctx context.Context) *response.Reply {
	if h, ok := a.logger.(HealthLogger); ok {
		return toReply(h.Health(ctx))
	}
	return response.Success()
}

func toReply(err error) *response.Reply {
	if err != nil {
		return response.Failure(err.Error())
	}
	return response.Success()
}
