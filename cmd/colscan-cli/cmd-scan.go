package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/grafana/colscan/pkg/parquetscan"
	"github.com/grafana/colscan/pkg/pool"
	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/scan"
	util_log "github.com/grafana/colscan/pkg/util/log"
	"github.com/grafana/colscan/pkg/vector"
)

type scanCmd struct {
	backendOptions
	scanOptions

	Limit int64    `help:"stop after this many records, 0 reads everything"`
	Paths []string `arg:"" help:"parquet files, or prefixes to list them under"`
}

func (cmd *scanCmd) Run(ctx *globalOptions) error {
	r, cfg, err := loadBackend(&cmd.backendOptions, ctx)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	filter, err := parseFilter(cmd.Filter)
	if err != nil {
		return err
	}
	if len(cmd.Columns) > 0 {
		cfg.Files.Columns = cmd.Columns
	}
	if cmd.Root != "" {
		cfg.Files.SelectionRoot = cmd.Root
	}
	if cmd.Limit > 0 {
		cfg.Files.Limit = cmd.Limit
	}

	c := context.Background()
	files, err := resolveFiles(c, r, cmd.Paths)
	if err != nil {
		return err
	}

	var sel *pruning.Selector
	if !cmd.NoPruning {
		p := pool.NewPool(&cfg.Pruning.Pool)
		defer p.Shutdown()
		if sel, err = pruning.NewSelector(cfg.Pruning, p, util_log.Logger); err != nil {
			return err
		}
	}

	creator, err := parquetscan.NewCreator(cfg.Files, cfg.Scan.BatchSize, r, sel, cfg.Pruning.Options(), util_log.Logger)
	if err != nil {
		return err
	}
	in, err := creator.Open(c, files, filter)
	if err != nil {
		return err
	}
	fmt.Printf("files: %d  row groups: %d  pruned: %d\n", len(in.Files), in.RowGroups, in.Pruned)

	s, err := scan.NewScanBatch(c, in.Readers, in.Implicit,
		scan.WithLogger(util_log.Logger),
		scan.WithAllocator(vector.NewAllocator(cfg.Scan.MemoryLimit)),
	)
	if err != nil {
		_ = in.Close()
		return err
	}
	defer s.Close()

	for {
		outcome, err := s.Next(c)
		if err != nil {
			return err
		}
		if outcome == scan.OutcomeNone {
			break
		}
		if outcome == scan.OutcomeOKNewSchema {
			fmt.Println(s.Schema())
		}
		printBatch(s, cmd.PrintLimit)
	}

	st := s.Stats()
	fmt.Printf("scan %s: %s records in %d batches from %d readers, %d schema changes, %s\n",
		s.ID(), humanize.Comma(st.Records), st.Batches, st.Readers, st.SchemaChanges, st.ProcessingTime)
	return nil
}

func printBatch(s *scan.ScanBatch, limit int) {
	if limit <= 0 || s.RecordCount() == 0 {
		return
	}

	cols := s.Columns()
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, 0, len(cols))
	for _, col := range cols {
		header = append(header, col.Field().Name)
	}
	t.AppendHeader(header)

	n := min(limit, s.RecordCount())
	for i := 0; i < n; i++ {
		row := make(table.Row, 0, len(cols))
		for _, col := range cols {
			row = append(row, vector.Format(col, i))
		}
		t.AppendRow(row)
	}
	if n < s.RecordCount() {
		t.AppendFooter(table.Row{fmt.Sprintf("%d more", s.RecordCount()-n)})
	}
	t.Render()
}
