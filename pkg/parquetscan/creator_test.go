package parquetscan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/pool"
	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/storage/backend"
	"github.com/grafana/colscan/pkg/types"
	"github.com/grafana/colscan/pkg/util/test"
)

func newSelector(t *testing.T) *pruning.Selector {
	t.Helper()

	p := pool.NewPool(&pool.Config{MaxWorkers: 2, QueueDepth: 100})
	t.Cleanup(p.Shutdown)

	s, err := pruning.NewSelector(pruning.Config{
		Enabled:        true,
		DateCorrection: pruning.DateCorrectionNone,
		CacheSize:      16,
		Pool:           pool.Config{MaxWorkers: 2, QueueDepth: 100},
	}, p, test.NewTestingLogger(t))
	require.NoError(t, err)
	return s
}

func idAbove(n int64) expr.Expression {
	return expr.NewBinaryOperation(expr.OpGreater, expr.NewField("id"), expr.NewStaticInt(n))
}

func TestCreator(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b, dir := newBackend(t)
	writeSales(t, dir, "sales/2024/q1/a.parquet", sales(1, 5, "east"), sales(6, 10, "east"))
	writeSales(t, dir, "sales/2024/b.parquet", sales(11, 15, "west"))
	writeSales(t, dir, "sales/c.parquet", sales(16, 20, "north"))
	files := []string{"sales/2024/q1/a.parquet", "sales/2024/b.parquet", "sales/c.parquet"}

	cfg := testConfig()
	cfg.Columns = []string{"id"}
	cfg.SelectionRoot = "sales"

	tcs := []struct {
		name      string
		limit     int64
		filter    expr.Expression
		selector  bool
		wantIDs   []int32
		wantPrune int
	}{
		{
			name:    "no selector keeps everything",
			wantIDs: seq(1, 20),
		},
		{
			name:      "row groups below the filter are dropped",
			selector:  true,
			filter:    idAbove(12),
			wantIDs:   seq(11, 20),
			wantPrune: 2,
		},
		{
			name:      "every row group dropped keeps the schema",
			selector:  true,
			filter:    idAbove(100),
			wantIDs:   nil,
			wantPrune: 4,
		},
		{
			name:    "limit stops inside a row group",
			limit:   7,
			wantIDs: seq(1, 7),
		},
		{
			name:      "limit applies after pruning",
			selector:  true,
			filter:    idAbove(7),
			limit:     6,
			wantIDs:   seq(6, 11),
			wantPrune: 1,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			cfg := cfg
			cfg.Limit = tc.limit

			var sel *pruning.Selector
			if tc.selector {
				sel = newSelector(t)
			}
			c, err := NewCreator(cfg, 3, b, sel, pruning.Options{}, test.NewTestingLogger(t))
			require.NoError(t, err)

			in, err := c.Open(context.Background(), files, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, 4, in.RowGroups)
			assert.Equal(t, tc.wantPrune, in.Pruned)
			require.Len(t, in.Files, 3)
			for i, f := range in.Files {
				assert.Equal(t, files[i], f.Name)
			}

			rows, _ := drain(t, in.Readers, in.Implicit)
			var ids []int32
			for _, r := range rows {
				ids = append(ids, r["id"].(int32))
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

// cancellingReader fails reads whose context is done, as the object store
// clients do.
type cancellingReader struct {
	backend.Reader
}

func (r cancellingReader) ReadRange(ctx context.Context, name string, off int64, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Reader.ReadRange(ctx, name, off, buf)
}

func TestCreatorReadsAfterOpen(t *testing.T) {
	b, dir := newBackend(t)
	writeSales(t, dir, "a.parquet", sales(1, 5, "east"), sales(6, 10, "west"))
	writeSales(t, dir, "b.parquet", sales(11, 15, "north"))

	cfg := testConfig()
	cfg.Columns = []string{"id"}
	// small buffers so row group reads go back to the backend
	cfg.ReadBufferSize = 64
	cfg.ReadBufferCount = 1
	c, err := NewCreator(cfg, 4, cancellingReader{b}, nil, pruning.Options{}, test.NewTestingLogger(t))
	require.NoError(t, err)

	in, err := c.Open(context.Background(), []string{"a.parquet", "b.parquet"}, nil)
	require.NoError(t, err)

	rows, _ := drain(t, in.Readers, in.Implicit)
	var ids []int32
	for _, r := range rows {
		ids = append(ids, r["id"].(int32))
	}
	assert.Equal(t, seq(1, 15), ids)
}

func TestCreatorImplicitColumns(t *testing.T) {
	b, dir := newBackend(t)
	writeSales(t, dir, "sales/2024/q1/a.parquet", sales(1, 1, "east"))
	writeSales(t, dir, "sales/c.parquet", sales(2, 2, "west"))

	cfg := testConfig()
	cfg.Columns = []string{"id"}
	cfg.SelectionRoot = "sales"
	c, err := NewCreator(cfg, 16, b, nil, pruning.Options{}, nil)
	require.NoError(t, err)

	in, err := c.Open(context.Background(), []string{"sales/2024/q1/a.parquet", "sales/c.parquet"}, nil)
	require.NoError(t, err)

	rows, outcomes := drain(t, in.Readers, in.Implicit)
	assert.Equal(t, []scan.IterOutcome{scan.OutcomeOKNewSchema, scan.OutcomeOK, scan.OutcomeNone}, outcomes)
	assert.Equal(t, []row{
		{
			"id": int32(1), "filename": "a.parquet", "suffix": "parquet", "fqn": "sales/2024/q1/a.parquet",
			"filepath": "sales/2024/q1", "dir0": "2024", "dir1": "q1",
		},
		{
			"id": int32(2), "filename": "c.parquet", "suffix": "parquet", "fqn": "sales/c.parquet",
			"filepath": "sales", "dir0": nil, "dir1": nil,
		},
	}, rows)
}

func TestCreatorSchemaSurvivesPruning(t *testing.T) {
	b, dir := newBackend(t)
	writeSales(t, dir, "a.parquet", sales(1, 3, "east"))

	cfg := testConfig()
	c, err := NewCreator(cfg, 16, b, newSelector(t), pruning.Options{}, nil)
	require.NoError(t, err)

	in, err := c.Open(context.Background(), []string{"a.parquet"}, idAbove(10))
	require.NoError(t, err)
	require.Len(t, in.Readers, 1)

	ctx := context.Background()
	s, err := scan.NewScanBatch(ctx, in.Readers, in.Implicit)
	require.NoError(t, err)
	defer s.Close()

	o, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, scan.OutcomeOKNewSchema, o)
	assert.Equal(t, 0, s.RecordCount())
	f, ok := s.Schema().Field("ID")
	require.True(t, ok)
	assert.Equal(t, types.Required(types.MinorInt), f.Type)
}

func TestCreatorErrors(t *testing.T) {
	b, dir := newBackend(t)
	writeSales(t, dir, "a.parquet", sales(1, 3, "east"))

	c, err := NewCreator(testConfig(), 16, b, nil, pruning.Options{}, nil)
	require.NoError(t, err)

	_, err = c.Open(context.Background(), nil, nil)
	assert.ErrorIs(t, err, errNoFiles)

	_, err = c.Open(context.Background(), []string{"a.parquet", "missing.parquet"}, nil)
	assert.Error(t, err)

	bad := testConfig()
	bad.OpenConcurrency = 0
	_, err = NewCreator(bad, 16, b, nil, pruning.Options{}, nil)
	assert.Error(t, err)
}

func seq(lo, hi int32) []int32 {
	var out []int32
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}
