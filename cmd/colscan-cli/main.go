package main

import (
	"github.com/alecthomas/kong"
	"github.com/go-kit/log/level"
	dslog "github.com/grafana/dskit/log"

	util_log "github.com/grafana/colscan/pkg/util/log"
)

type globalOptions struct {
	ConfigFile string `name:"config.file" help:"Configuration file to load" type:"path"`
	ExpandEnv  bool   `name:"config.expand-env" help:"Expand environment variables in the configuration file"`
	LogLevel   string `name:"log.level" help:"Only log messages with the given severity or above" default:"warn" enum:"debug,info,warn,error"`
	LogFormat  string `name:"log.format" help:"Output log messages in the given format" default:"logfmt" enum:"logfmt,json"`
}

type backendOptions struct {
	Backend  string `help:"backend to read from (local/s3/gcs), overrides the configuration file"`
	Bucket   string `help:"bucket (or local path) to read from, overrides the configuration file"`
	Endpoint string `help:"s3 or gcs endpoint"`
	Prefix   string `help:"object prefix within the bucket"`
}

type scanOptions struct {
	Filter     string   `help:"filter as a JSON expression tree, or @file to read it from a file"`
	Columns    []string `help:"columns to read, all of them when empty" sep:","`
	Root       string   `name:"selection-root" help:"directory the dirN columns are relative to"`
	NoPruning  bool     `help:"read every row group regardless of the filter"`
	PrintLimit int      `help:"records to print per batch, 0 prints none" default:"20"`
}

var cli struct {
	globalOptions

	Scan  scanCmd  `cmd:"" help:"scan parquet files and print the batches produced"`
	Prune pruneCmd `cmd:"" help:"print the keep or drop decision for every row group"`
	Stats statsCmd `cmd:"" help:"print the column statistics of every row group"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("colscan-cli"),
		kong.Description("Inspect and scan parquet files the way the scan operator reads them"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	var lvl dslog.Level
	if err := lvl.Set(cli.LogLevel); err != nil {
		ctx.FatalIfErrorf(err)
	}
	logger := util_log.InitLogger(cli.LogFormat, lvl)

	err := ctx.Run(&cli.globalOptions)
	if err != nil {
		level.Error(logger).Log("msg", "command failed", "command", ctx.Command(), "err", err)
	}
	ctx.FatalIfErrorf(err)
}
