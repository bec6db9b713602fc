package pruning

import (
	"flag"
	"fmt"

	"github.com/grafana/colscan/pkg/pool"
	"github.com/grafana/colscan/pkg/util"
)

type Config struct {
	Enabled          bool           `yaml:"enabled"`
	DateCorrection   DateCorrection `yaml:"date_correction"`
	Int96AsTimestamp bool           `yaml:"int96_as_timestamp"`
	// CacheSize is the number of row group decisions kept. 0 disables the cache.
	CacheSize int         `yaml:"cache_size"`
	Pool      pool.Config `yaml:"pool"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.BoolVar(&c.Enabled, util.PrefixConfig(prefix, "enabled"), true, "Skip row groups whose statistics prove no row matches the filter.")
	f.StringVar((*string)(&c.DateCorrection), util.PrefixConfig(prefix, "date-correction"), string(DateCorrectionAuto), "How to treat dates shifted by legacy writers: none, always or auto.")
	f.BoolVar(&c.Int96AsTimestamp, util.PrefixConfig(prefix, "int96-as-timestamp"), false, "Read INT96 columns as timestamps.")
	f.IntVar(&c.CacheSize, util.PrefixConfig(prefix, "cache-size"), 4096, "Number of row group decisions to cache.")
	c.Pool.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "pool"), f)
}

func (c *Config) Validate() error {
	switch c.DateCorrection {
	case DateCorrectionNone, DateCorrectionAlways, DateCorrectionAuto:
	default:
		return fmt.Errorf("unknown date correction %q", c.DateCorrection)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("pruning cache size must not be negative, got %d", c.CacheSize)
	}
	return c.Pool.Validate()
}

// Options are the evaluation options the config selects.
func (c *Config) Options() Options {
	return Options{
		DateCorrection:   c.DateCorrection,
		Int96AsTimestamp: c.Int96AsTimestamp,
	}
}
