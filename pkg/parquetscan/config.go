package parquetscan

import (
	"flag"
	"fmt"

	"github.com/grafana/dskit/flagext"

	"github.com/grafana/colscan/pkg/util"
)

type Config struct {
	// Columns is the projection. Empty reads every leaf column.
	Columns flagext.StringSliceCSV `yaml:"columns"`
	// SelectionRoot is the directory partition columns are relative to.
	SelectionRoot string `yaml:"selection_root"`
	// Limit stops the scan after this many records. 0 reads everything.
	Limit int64 `yaml:"limit"`

	OpenConcurrency int `yaml:"open_concurrency"`
	ReadBufferSize  int `yaml:"read_buffer_size_bytes"`
	ReadBufferCount int `yaml:"read_buffer_count"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.Var(&c.Columns, util.PrefixConfig(prefix, "columns"), "Comma separated columns to read. Empty reads all columns.")
	f.StringVar(&c.SelectionRoot, util.PrefixConfig(prefix, "selection-root"), "", "Directory the dirN partition columns are taken relative to.")
	f.Int64Var(&c.Limit, util.PrefixConfig(prefix, "limit"), 0, "Stop after this many records, 0 for no limit.")
	f.IntVar(&c.OpenConcurrency, util.PrefixConfig(prefix, "open-concurrency"), 8, "Files whose footers are read at the same time.")
	f.IntVar(&c.ReadBufferSize, util.PrefixConfig(prefix, "read-buffer-size-bytes"), 4*1024*1024, "Size of each read-ahead buffer.")
	f.IntVar(&c.ReadBufferCount, util.PrefixConfig(prefix, "read-buffer-count"), 8, "Read-ahead buffers kept per file.")
}

func (c *Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.OpenConcurrency <= 0 {
		return fmt.Errorf("open concurrency must be positive, got %d", c.OpenConcurrency)
	}
	if c.ReadBufferSize < 0 || c.ReadBufferCount < 0 {
		return fmt.Errorf("read buffers must not be negative")
	}
	return nil
}
