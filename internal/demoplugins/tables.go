// Package demoplugins holds the example plugin implementations that
// extctl run registers: a
// pair of readonly tables, a writeable key/value table, a file logger,
// and a static config plugin, mirroring original_source's worked
// examples (two-tables, writeable-table, logger-file, config-static).
package demoplugins

import (
	"context"

	"github.com/jingkaihe/hostext/pkg/columns"
	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/jingkaihe/hostext/pkg/response"
)

// T1Table publishes a fixed two-column row, exercising generate/columns.
type T1Table struct{}

func (T1Table) Name() string { return "t1" }

func (T1Table) Columns() []columns.Column {
	return []columns.Column{
		{Name: "left", Type: columns.TypeText},
		{Name: "right", Type: columns.TypeText},
	}
}

func (T1Table) Generate(ctx context.Context, request map[string]string) *response.Reply {
	return response.Success().Rows([]map[string]string{{"left": "left", "right": "right"}})
}

func (T1Table) Shutdown(ctx context.Context, reason plugin.ShutdownReason) {}

// T2Table is a second readonly table with a disjoint column set, proving
// the registry keeps both distinctly addressable.
type T2Table struct{}

func (T2Table) Name() string { return "t2" }

func (T2Table) Columns() []columns.Column {
	return []columns.Column{
		{Name: "top", Type: columns.TypeText},
		{Name: "bottom", Type: columns.TypeText},
	}
}

func (T2Table) Generate(ctx context.Context, request map[string]string) *response.Reply {
	return response.Success().Rows([]map[string]string{{"top": "top", "bottom": "bottom"}})
}

func (T2Table) Shutdown(ctx context.Context, reason plugin.ShutdownReason) {}
