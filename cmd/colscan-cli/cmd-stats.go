package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/grafana/colscan/pkg/pruning"
)

type statsCmd struct {
	backendOptions

	Columns []string `help:"only print these columns" sep:","`
	Paths   []string `arg:"" help:"parquet files, or prefixes to list them under"`
}

func (cmd *statsCmd) Run(ctx *globalOptions) error {
	r, cfg, err := loadBackend(&cmd.backendOptions, ctx)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	c := context.Background()
	names, err := resolveFiles(c, r, cmd.Paths)
	if err != nil {
		return err
	}
	files, err := openFiles(c, r, cfg, names)
	if err != nil {
		return err
	}

	want := map[string]bool{}
	for _, col := range cmd.Columns {
		want[strings.ToLower(col)] = true
	}

	for _, f := range files {
		fmt.Printf("\n%s  %s  %d row groups\n", f.Name, humanize.Bytes(uint64(f.Size)), len(f.Meta.RowGroups))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"row group", "column", "type", "min", "max", "nulls", "values"})

		for _, rg := range f.Meta.RowGroups {
			var paths []string
			rg.Statistics.Range(func(path string, _ pruning.Statistics) bool {
				if len(want) == 0 || want[strings.ToLower(path)] {
					paths = append(paths, path)
				}
				return true
			})
			sort.Strings(paths)

			for _, p := range paths {
				st, _ := rg.Statistics.Get(p)
				col, _ := f.Meta.Schema.Column(p)
				t.AppendRow(table.Row{rg.Index, p, col.Physical, bound(st, true), bound(st, false), nulls(st), humanize.Comma(st.NumValues)})
			}
			t.AppendSeparator()
		}
		t.Render()
	}
	return nil
}

func bound(st pruning.Statistics, lower bool) string {
	if !st.HasMinMax() {
		return "-"
	}
	if lower {
		return st.Min.String()
	}
	return st.Max.String()
}

func nulls(st pruning.Statistics) string {
	if !st.HasNullCount {
		return "-"
	}
	return humanize.Comma(st.NullCount)
}
