package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drone/envsubst"
	"gopkg.in/yaml.v3"

	"github.com/grafana/colscan/pkg/parquetscan"
	"github.com/grafana/colscan/pkg/pruning"
	"github.com/grafana/colscan/pkg/scan"
	"github.com/grafana/colscan/pkg/storage"
	"github.com/grafana/colscan/pkg/storage/backend"
	"github.com/grafana/colscan/pkg/util"
)

// Config is the configuration file of the cli.
type Config struct {
	Storage storage.Config     `yaml:"storage"`
	Files   parquetscan.Config `yaml:"files"`
	Pruning pruning.Config     `yaml:"pruning"`
	Scan    scan.Config        `yaml:"scan"`
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	c.Storage.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "storage"), f)
	c.Files.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "files"), f)
	c.Pruning.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "pruning"), f)
	c.Scan.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "scan"), f)
}

func (c *Config) Validate() error {
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Files.Validate(); err != nil {
		return err
	}
	if err := c.Pruning.Validate(); err != nil {
		return err
	}
	return c.Scan.Validate()
}

// loadConfig applies the defaults and overlays the configuration file, if
// any. Flags are not registered anywhere; kong owns the command line.
func loadConfig(g *globalOptions) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.RegisterFlagsAndApplyDefaults("", fs)

	if g.ConfigFile == "" {
		return cfg, nil
	}

	buff, err := os.ReadFile(g.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read configFile %s: %w", g.ConfigFile, err)
	}
	if g.ExpandEnv {
		s, err := envsubst.EvalEnv(string(buff))
		if err != nil {
			return nil, fmt.Errorf("failed to expand env vars from configFile %s: %w", g.ConfigFile, err)
		}
		buff = []byte(s)
	}

	dec := yaml.NewDecoder(bytes.NewReader(buff))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse configFile %s: %w", g.ConfigFile, err)
	}
	return cfg, nil
}

// apply overlays the command line backend options.
func (o *backendOptions) apply(cfg *storage.Config) {
	if o.Backend != "" {
		cfg.Backend = o.Backend
	}
	switch cfg.Backend {
	case storage.Local:
		if o.Bucket != "" {
			cfg.Local.Path = o.Bucket
		}
	case storage.S3:
		if o.Bucket != "" {
			cfg.S3.Bucket = o.Bucket
		}
		if o.Endpoint != "" {
			cfg.S3.Endpoint = o.Endpoint
		}
		if o.Prefix != "" {
			cfg.S3.Prefix = o.Prefix
		}
	case storage.GCS:
		if o.Bucket != "" {
			cfg.GCS.BucketName = o.Bucket
		}
		if o.Endpoint != "" {
			cfg.GCS.Endpoint = o.Endpoint
		}
		if o.Prefix != "" {
			cfg.GCS.Prefix = o.Prefix
		}
	}
}

func loadBackend(o *backendOptions, g *globalOptions) (backend.Reader, *Config, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}
	o.apply(&cfg.Storage)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	r, err := storage.NewReader(&cfg.Storage, true)
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}
