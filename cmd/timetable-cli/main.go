package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/noah-isme/erp-timetable-api/internal/csvio"
	"github.com/noah-isme/erp-timetable-api/internal/timetable"
	"github.com/noah-isme/erp-timetable-api/pkg/config"
	"github.com/noah-isme/erp-timetable-api/pkg/logger"
)

// options holds the resolved command line.
type options struct {
	Input  string
	Output string
	Seed   int64
	cfg    *config.Config
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logr, err := logger.New(opts.cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logr.Sync() //nolint:errcheck

	summary, err := run(opts, logr)
	if err != nil {
		logr.Error("timetable generation failed", zap.Error(err))
		os.Exit(1)
	}
	for _, w := range summary.Warnings {
		logr.Warn(w)
	}
	logr.Info("timetables written",
		zap.String("output", opts.Output),
		zap.Int64("seed", opts.Seed),
		zap.Int("entries", summary.Entries),
		zap.Int("configs_failed", summary.FailedConfigs),
	)
}

// parseOptions binds flags into viper so TIMETABLE_* environment values act
// as defaults.
func parseOptions(args []string) (options, error) {
	fs := pflag.NewFlagSet("timetable-cli", pflag.ContinueOnError)
	fs.StringP("input", "i", ".", "directory holding the input CSV files")
	fs.StringP("output", "o", "", "entries CSV to write (default <input>/entries.csv)")
	fs.Int64P("seed", "s", 0, "random seed; 0 uses TIMETABLE_RANDOM_SEED or the clock")
	fs.String("log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	v := viper.New()
	config.SetDefaults(v)
	v.SetDefault("LOG_FORMAT", "console")
	v.AutomaticEnv()
	if err := v.BindPFlag("TIMETABLE_RANDOM_SEED", fs.Lookup("seed")); err != nil {
		return options{}, err
	}
	if err := v.BindPFlag("LOG_LEVEL", fs.Lookup("log-level")); err != nil {
		return options{}, err
	}
	cfg := config.FromViper(v)

	input, _ := fs.GetString("input")
	output, _ := fs.GetString("output")
	if output == "" {
		output = filepath.Join(input, csvio.DefaultEntriesOutput)
	}
	seed := cfg.Timetable.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return options{Input: input, Output: output, Seed: seed, cfg: cfg}, nil
}

type summary struct {
	Entries       int
	FailedConfigs int
	Warnings      []string
}

func run(opts options, logr *zap.Logger) (summary, error) {
	ds, err := csvio.Load(opts.Input)
	if err != nil {
		return summary{}, err
	}
	inputs, err := ds.Build()
	if err != nil {
		return summary{}, err
	}

	plan := timetable.Plan(inputs, nil, timetable.PlanOptions{
		Rand:   rand.New(rand.NewSource(opts.Seed)),
		Logger: logr,
	})
	rows := csvio.EntryRows(plan)
	if err := csvio.WriteEntriesFile(opts.Output, rows); err != nil {
		return summary{}, err
	}

	out := summary{Entries: len(rows), Warnings: plan.Warnings}
	for _, c := range plan.Configs {
		if !c.Success {
			out.FailedConfigs++
		}
	}
	return out, nil
}
