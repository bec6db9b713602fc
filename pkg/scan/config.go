package scan

import (
	"flag"
	"fmt"

	"github.com/grafana/colscan/pkg/util"
)

type Config struct {
	// BatchSize is the number of records a reader puts in one batch.
	BatchSize int `yaml:"batch_size"`
	// MemoryLimit caps the bytes held by the columns of one scan. 0 is unlimited.
	MemoryLimit int64 `yaml:"memory_limit"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.BatchSize, util.PrefixConfig(prefix, "batch-size"), 4096, "Records per batch.")
	f.Int64Var(&c.MemoryLimit, util.PrefixConfig(prefix, "memory-limit"), 0, "Bytes the columns of one scan may hold, 0 for no limit.")
}

func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("scan batch size must be positive, got %d", c.BatchSize)
	}
	if c.MemoryLimit < 0 {
		return fmt.Errorf("scan memory limit must not be negative, got %d", c.MemoryLimit)
	}
	return nil
}
