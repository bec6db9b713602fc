package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/grafana/colscan/pkg/pruning"
)

type pruneCmd struct {
	backendOptions

	Filter string   `required:"" help:"filter as a JSON expression tree, or @file to read it from a file"`
	Paths  []string `arg:"" help:"parquet files, or prefixes to list them under"`
}

func (cmd *pruneCmd) Run(ctx *globalOptions) error {
	r, cfg, err := loadBackend(&cmd.backendOptions, ctx)
	if err != nil {
		return err
	}
	defer r.Shutdown()

	filter, err := parseFilter(cmd.Filter)
	if err != nil {
		return err
	}
	fmt.Println("filter:", filter)

	c := context.Background()
	names, err := resolveFiles(c, r, cmd.Paths)
	if err != nil {
		return err
	}
	files, err := openFiles(c, r, cfg, names)
	if err != nil {
		return err
	}

	opts := cfg.Pruning.Options()
	var (
		out           [][]string
		dropped, rows int64
		total         int
	)
	for _, f := range files {
		fileOpts := opts.ForFile(f.Meta)
		for _, rg := range f.Meta.RowGroups {
			total++
			res, err := pruning.Evaluate(filter, f.Meta.Schema, rg.Statistics, fileOpts)
			decision := "keep"
			if err == nil && res == pruning.ResultFalse {
				decision = "drop"
				dropped++
				rows += rg.NumRows
			}
			reason := ""
			if err != nil {
				reason = err.Error()
			}
			out = append(out, []string{
				f.Name,
				strconv.Itoa(rg.Index),
				humanize.Comma(rg.NumRows),
				res.String(),
				decision,
				reason,
			})
		}
	}

	w := tablewriter.NewWriter(os.Stdout)
	w.Header("file", "row group", "rows", "filter", "decision", "reason")
	if err := w.Bulk(out); err != nil {
		return err
	}
	w.Footer("", "", "", "", fmt.Sprintf("%d/%d dropped", dropped, total), humanize.Comma(rows)+" rows skipped")
	return w.Render()
}
