package s3

import (
	"flag"
	"time"

	"github.com/grafana/dskit/flagext"

	"github.com/grafana/colscan/pkg/util"
)

type Config struct {
	Bucket         string         `yaml:"bucket"`
	Prefix         string         `yaml:"prefix"`
	Endpoint       string         `yaml:"endpoint"`
	Region         string         `yaml:"region"`
	AccessKey      string         `yaml:"access_key"`
	SecretKey      flagext.Secret `yaml:"secret_key"`
	SessionToken   flagext.Secret `yaml:"session_token"`
	Insecure       bool           `yaml:"insecure"`
	ForcePathStyle bool           `yaml:"forcepathstyle"`

	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Bucket, util.PrefixConfig(prefix, "s3.bucket"), "", "s3 bucket name.")
	f.StringVar(&cfg.Prefix, util.PrefixConfig(prefix, "s3.prefix"), "", "s3 key prefix prepended to every name.")
	f.StringVar(&cfg.Endpoint, util.PrefixConfig(prefix, "s3.endpoint"), "", "s3 endpoint to connect to.")
	f.StringVar(&cfg.Region, util.PrefixConfig(prefix, "s3.region"), "", "s3 region.")
	f.StringVar(&cfg.AccessKey, util.PrefixConfig(prefix, "s3.access_key"), "", "s3 access key.")
	f.Var(&cfg.SecretKey, util.PrefixConfig(prefix, "s3.secret_key"), "s3 secret key.")
	f.Var(&cfg.SessionToken, util.PrefixConfig(prefix, "s3.session_token"), "s3 session token.")
	f.BoolVar(&cfg.Insecure, util.PrefixConfig(prefix, "s3.insecure"), false, "Connect to s3 over plain http.")
	f.BoolVar(&cfg.ForcePathStyle, util.PrefixConfig(prefix, "s3.forcepathstyle"), false, "Use path style bucket addressing.")
	f.DurationVar(&cfg.HedgeRequestsAt, util.PrefixConfig(prefix, "s3.hedge-requests-at"), 0, "Send a second range read if the first has not returned after this long. 0 disables hedging.")
	f.IntVar(&cfg.HedgeRequestsUpTo, util.PrefixConfig(prefix, "s3.hedge-requests-up-to"), 2, "Maximum number of requests per hedged read.")
}
