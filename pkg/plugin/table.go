package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/jingkaihe/hostext/pkg/columns"
	"github.com/jingkaihe/hostext/pkg/response"
)

// ErrConstraint signals a plugin-level uniqueness or constraint rejection
// on insert/update. Row-not-found is never reported this way — see §9.
var ErrConstraint = errors.New("plugin: constraint violation")

// ReadonlyTable is the minimal table plugin flavor: it can enumerate its
// schema and generate rows, but rejects mutation.
type ReadonlyTable interface {
	Name() string
	Columns() []columns.Column
	Generate(ctx context.Context, request map[string]string) *response.Reply
	Shutdown(ctx context.Context, reason ShutdownReason)
}

// WriteableTable additionally accepts insert/update/delete, each run under
// the adapter's exclusive-mutation lock.
type WriteableTable interface {
	ReadonlyTable
	Insert(ctx context.Context, autoRowID bool, values []interface{}) (rowid int64, err error)
	Update(ctx context.Context, id int64, values []interface{}) error
	Delete(ctx context.Context, id int64) error
}

// TableAdapter lowers a ReadonlyTable or WriteableTable onto the Plugin
// Contract (§4.3).
type TableAdapter struct {
	table     ReadonlyTable
	writeable WriteableTable
	mu        sync.Mutex
}

// NewTableAdapter builds an adapter around table. If table also implements
// WriteableTable, insert/update/delete are enabled.
func NewTableAdapter(table ReadonlyTable) *TableAdapter {
	a := &TableAdapter{table: table}
	if w, ok := table.(WriteableTable); ok {
		a.writeable = w
	}
	return a
}

func (a *TableAdapter) Name() string            { return a.table.Name() }
func (a *TableAdapter) Registry() RegistryKind  { return RegistryTable }

func (a *TableAdapter) Routes() []map[string]string {
	cols := a.table.Columns()
	rows := make([]map[string]string, 0, len(cols))
	for _, c := range cols {
		rows = append(rows, c.Row())
	}
	return rows
}

func (a *TableAdapter) Ping(ctx context.Context) *response.Reply {
	return response.Success()
}

func (a *TableAdapter) Shutdown(ctx context.Context, reason ShutdownReason) {
	a.table.Shutdown(ctx, reason)
}

func (a *TableAdapter) HandleCall(ctx context.Context, request map[string]string) (reply *response.Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply = response.Failure(fmt.Sprintf("plugin panic: %v", r))
		}
	}()

	switch request["action"] {
	case "columns":
		return response.Success().Rows(a.Routes())
	case "generate":
		return a.table.Generate(ctx, request)
	case "insert":
		return a.insert(ctx, request)
	case "update":
		return a.update(ctx, request)
	case "delete":
		return a.delete(ctx, request)
	default:
		return response.Failure("Invalid table plugin action: " + request["action"])
	}
}

func (a *TableAdapter) insert(ctx context.Context, request map[string]string) *response.Reply {
	if a.writeable == nil {
		return response.Readonly()
	}
	values, err := parseJSONValueArray(request)
	if err != nil {
		return response.Failure(err.Error())
	}
	autoRowID := request["auto_rowid"] == "true"

	a.mu.Lock()
	defer a.mu.Unlock()
	rowid, err := a.writeable.Insert(ctx, autoRowID, values)
	if err != nil {
		if errors.Is(err, ErrConstraint) {
			return response.Constraint()
		}
		return response.Failure(err.Error())
	}
	return response.SuccessWithID(rowid)
}

func (a *TableAdapter) update(ctx context.Context, request map[string]string) *response.Reply {
	if a.writeable == nil {
		return response.Readonly()
	}
	id, err := parseID(request)
	if err != nil {
		return response.Failure(err.Error())
	}
	values, err := parseJSONValueArray(request)
	if err != nil {
		return response.Failure(err.Error())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeable.Update(ctx, id, values); err != nil {
		if errors.Is(err, ErrConstraint) {
			return response.Constraint()
		}
		return response.Failure(err.Error())
	}
	return response.Success()
}

func (a *TableAdapter) delete(ctx context.Context, request map[string]string) *response.Reply {
	if a.writeable == nil {
		return response.Readonly()
	}
	id, err := parseID(request)
	if err != nil {
		return response.Failure(err.Error())
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.writeable.Delete(ctx, id); err != nil {
		return response.Failure(err.Error())
	}
	return response.Success()
}

func parseID(request map[string]string) (int64, error) {
	raw, ok := request["id"]
	if !ok {
		return 0, fmt.Errorf("missing id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}
	return id, nil
}

func parseJSONValueArray(request map[string]string) ([]interface{}, error) {
	raw, ok := request["json_value_array"]
	if !ok {
		return nil, fmt.Errorf("missing json_value_array")
	}
	var values []interface{}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("malformed json_value_array: %w", err)
	}
	return values, nil
}
