package gcs

import (
	"flag"
	"time"

	"github.com/grafana/colscan/pkg/util"
)

type Config struct {
	BucketName        string        `yaml:"bucket_name"`
	Prefix            string        `yaml:"prefix"`
	Endpoint          string        `yaml:"endpoint"`
	Insecure          bool          `yaml:"insecure"`
	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.BucketName, util.PrefixConfig(prefix, "gcs.bucket"), "", "gcs bucket name.")
	f.StringVar(&cfg.Prefix, util.PrefixConfig(prefix, "gcs.prefix"), "", "gcs object prefix prepended to every name.")
	f.StringVar(&cfg.Endpoint, util.PrefixConfig(prefix, "gcs.endpoint"), "", "gcs endpoint, for emulators.")
	f.BoolVar(&cfg.Insecure, util.PrefixConfig(prefix, "gcs.insecure"), false, "Skip authentication and certificate checks.")
	f.DurationVar(&cfg.HedgeRequestsAt, util.PrefixConfig(prefix, "gcs.hedge-requests-at"), 0, "Send a second range read if the first has not returned after this long. 0 disables hedging.")
	f.IntVar(&cfg.HedgeRequestsUpTo, util.PrefixConfig(prefix, "gcs.hedge-requests-up-to"), 2, "Maximum number of requests per hedged read.")
}
