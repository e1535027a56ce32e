package demoplugins

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/jingkaihe/hostext/pkg/columns"
	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/jingkaihe/hostext/pkg/response"
)

// KVTable is an in-memory key/value table plugin: rows are identified by
// a rowid, "key" is unique (a duplicate insert or rename is a constraint
// violation), mirroring original_source's writeable-table example.
type KVTable struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]kvRow
	byKey  map[string]int64
}

type kvRow struct {
	key, value string
}

// NewKVTable returns an empty writeable key/value table.
func NewKVTable() *KVTable {
	return &KVTable{rows: make(map[int64]kvRow), byKey: make(map[string]int64)}
}

func (t *KVTable) Name() string { return "kv" }

func (t *KVTable) Columns() []columns.Column {
	return []columns.Column{
		{Name: "key", Type: columns.TypeText, Options: columns.OptionIndex},
		{Name: "value", Type: columns.TypeText},
	}
}

func (t *KVTable) Generate(ctx context.Context, request map[string]string) *response.Reply {
	t.mu.Lock()
	defer t.mu.Unlock()

	rows := make([]map[string]string, 0, len(t.rows))
	for id, row := range t.rows {
		rows = append(rows, map[string]string{
			"rowid": strconv.FormatInt(id, 10),
			"key":   row.key,
			"value": row.value,
		})
	}
	return response.Success().Rows(rows)
}

func (t *KVTable) Insert(ctx context.Context, autoRowID bool, values []interface{}) (int64, error) {
	key, value, err := kvValues(values)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byKey[key]; exists {
		return 0, plugin.ErrConstraint
	}

	t.nextID++
	id := t.nextID
	t.rows[id] = kvRow{key: key, value: value}
	t.byKey[key] = id
	return id, nil
}

func (t *KVTable) Update(ctx context.Context, id int64, values []interface{}) error {
	key, value, err := kvValues(values)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return fmt.Errorf("row %d not found", id)
	}
	if existing, taken := t.byKey[key]; taken && existing != id {
		return plugin.ErrConstraint
	}

	delete(t.byKey, t.rows[id].key)
	t.rows[id] = kvRow{key: key, value: value}
	t.byKey[key] = id
	return nil
}

func (t *KVTable) Delete(ctx context.Context, id int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[id]
	if !ok {
		return fmt.Errorf("row %d not found", id)
	}
	delete(t.byKey, row.key)
	delete(t.rows, id)
	return nil
}

func (t *KVTable) Shutdown(ctx context.Context, reason plugin.ShutdownReason) {}

func kvValues(values []interface{}) (key, value string, err error) {
	if len(values) != 2 {
		return "", "", fmt.Errorf("expected 2 values (key, value), got %d", len(values))
	}
	key, ok := values[0].(string)
	if !ok {
		return "", "", fmt.Errorf("key must be a string")
	}
	value, ok = values[1].(string)
	if !ok {
		return "", "", fmt.Errorf("value must be a string")
	}
	return key, value, nil
}
