package demoplugins

import (
	"context"
	"testing"

	"github.com/jingkaihe/hostext/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT1Table_GenerateReturnsFixedRow(t *testing.T) {
	reply := T1Table{}.Generate(context.Background(), nil)
	require.Equal(t, response.KindSuccess, reply.Kind())
	assert.Equal(t, []map[string]string{{"left": "left", "right": "right"}}, []map[string]string(reply.ToExtensionResponse().Response))
	assert.Equal(t, "t1", T1Table{}.Name())
	assert.Len(t, T1Table{}.Columns(), 2)
}

func TestT2Table_GenerateReturnsFixedRow(t *testing.T) {
	reply := T2Table{}.Generate(context.Background(), nil)
	require.Equal(t, response.KindSuccess, reply.Kind())
	assert.Equal(t, []map[string]string{{"top": "top", "bottom": "bottom"}}, []map[string]string(reply.ToExtensionResponse().Response))
	assert.Equal(t, "t2", T2Table{}.Name())
}

func TestT1Table_Shutdown_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		T1Table{}.Shutdown(context.Background(), 0)
	})
}
