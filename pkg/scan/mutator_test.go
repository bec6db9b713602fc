package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/vector"
)

func TestMutatorIsNewSchema(t *testing.T) {
	m := scan.NewMutator(nil)
	assert.True(t, m.IsNewSchema())
	assert.False(t, m.IsNewSchema())

	a, err := m.AddField(types.NewField("a", types.Required(types.MinorInt)))
	require.NoError(t, err)
	assert.True(t, m.IsNewSchema())

	// same name in another case with the same type reuses the column
	again, err := m.AddField(types.NewField("A", types.Required(types.MinorInt)))
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.False(t, m.IsNewSchema())

	// a mode change replaces the column in place
	_, err = m.AddField(types.NewField("b", types.Optional(types.MinorVarChar)))
	require.NoError(t, err)
	replaced, err := m.AddField(types.NewField("a", types.Optional(types.MinorInt)))
	require.NoError(t, err)
	assert.NotSame(t, a, replaced)
	assert.True(t, m.IsNewSchema())
	assert.Equal(t, []types.Field{
		types.NewField("a", types.Optional(types.MinorInt)),
		types.NewField("b", types.Optional(types.MinorVarChar)),
	}, m.Schema().Fields)

	m.Callback().DoWork()
	assert.True(t, m.IsNewSchema())
	assert.False(t, m.IsNewSchema())

	m.RemoveField("missing")
	assert.False(t, m.IsNewSchema())
	m.RemoveField("B")
	assert.True(t, m.IsNewSchema())
	assert.Equal(t, 1, m.Fields().Len())

	_, err = m.AddField(types.NewField("c", types.Required(types.MinorBit)))
	require.NoError(t, err)
	m.Clear()
	assert.False(t, m.IsNewSchema())
	assert.Zero(t, m.Fields().Len())
}

func TestAddTypedField(t *testing.T) {
	m := scan.NewMutator(nil)

	col, err := scan.AddTypedField[*vector.Fixed[int64]](m, types.NewField("n", types.Required(types.MinorBigInt)))
	require.NoError(t, err)
	col.Set(0, 7)

	_, err = scan.AddTypedField[*vector.VarWidth](m, types.NewField("n", types.Required(types.MinorBigInt)))
	var sce *scan.SchemaChangeError
	require.ErrorAs(t, err, &sce)
	assert.Equal(t, "n", sce.Field)

	// a mismatched new column must not replace the old one
	_, err = scan.AddTypedField[*vector.VarWidth](m, types.NewField("n", types.Required(types.MinorInt)))
	require.ErrorAs(t, err, &sce)
	got, ok := m.Column("n")
	require.True(t, ok)
	assert.Same(t, vector.Column(col), got)
}

func TestMutatorAllocate(t *testing.T) {
	alloc := vector.NewAllocator(0)
	m := scan.NewMutator(alloc)
	_, err := m.AddField(types.NewField("a", types.Required(types.MinorBigInt)))
	require.NoError(t, err)
	_, err = m.AddField(types.NewField("s", types.Optional(types.MinorVarChar)))
	require.NoError(t, err)

	require.NoError(t, m.Allocate(128))
	assert.GreaterOrEqual(t, alloc.Allocated(), int64(128*8))

	m.ManagedBuffer().WriteString("scratch")
	assert.Equal(t, "scratch", m.ManagedBuffer().String())

	m.Clear()
	assert.Zero(t, alloc.Allocated())
}
