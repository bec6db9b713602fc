package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/facette/natsort"

	"github.com/grafana/colscan/pkg/expr"
	"github.com/grafana/colscan/pkg/parquetscan"
	"github.com/grafana/colscan/pkg/storage/backend"
)

const parquetSuffix = ".parquet"

// resolveFiles expands every path that is not a parquet file into the parquet
// files listed under it, in natural order.
func resolveFiles(ctx context.Context, r backend.Reader, paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		if strings.HasSuffix(p, parquetSuffix) {
			files = append(files, p)
			continue
		}
		names, err := r.List(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", p, err)
		}
		var found []string
		for _, n := range names {
			if strings.HasSuffix(n, parquetSuffix) {
				found = append(found, n)
			}
		}
		// part-2 before part-10
		natsort.Sort(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no parquet files found under %s", strings.Join(paths, ", "))
	}
	return files, nil
}

// parseFilter decodes a JSON expression tree. A leading @ names a file holding
// the tree. An empty string is no filter.
func parseFilter(s string) (expr.Expression, error) {
	if s == "" {
		return nil, nil
	}
	b := []byte(s)
	if name, ok := strings.CutPrefix(s, "@"); ok {
		var err error
		if b, err = os.ReadFile(name); err != nil {
			return nil, fmt.Errorf("reading filter: %w", err)
		}
	}
	e, err := expr.Unmarshal(b)
	if err != nil {
		return nil, fmt.Errorf("parsing filter: %w", err)
	}
	return e, nil
}

func openFiles(ctx context.Context, r backend.Reader, cfg *Config, files []string) ([]*parquetscan.File, error) {
	out := make([]*parquetscan.File, 0, len(files))
	for _, name := range files {
		f, err := parquetscan.OpenFile(ctx, r, name, cfg.Files)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
