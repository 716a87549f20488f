// Command crashsev trains and applies the collision severity classifier.
//
//	crashsev train [-config file] [-data path]... [-out dir] [-log-level level]
//	crashsev score -model model.json [-data path]... [-out dir] [-log-level level]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/YuminosukeSato/crashseverity/config"
	"github.com/YuminosukeSato/crashseverity/pipeline"
	"github.com/YuminosukeSato/crashseverity/pkg/errors"
	"github.com/YuminosukeSato/crashseverity/pkg/log"
)

const usage = `usage:
  crashsev train [-config file] [-data path]... [-out dir] [-log-level level]
  crashsev score -model model.json [-config file] [-data path]... [-out dir] [-log-level level]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// pathList collects a repeatable -data flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type options struct {
	configPath string
	data       pathList
	out        string
	logLevel   string
	model      string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd := args[0]
	if cmd != "train" && cmd != "score" {
		fmt.Fprintf(stderr, "unknown command %q\n%s", cmd, usage)
		return 2
	}

	var opts options
	fs := flag.NewFlagSet("crashsev "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.Var(&opts.data, "data", "CSV file, directory or glob (repeatable)")
	fs.StringVar(&opts.out, "out", "", "output directory for the local artifact backend")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	if cmd == "score" {
		fs.StringVar(&opts.model, "model", "", "model.json written by a training run")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "crashsev: %v\n", err)
		return 1
	}
	if err := log.SetupLogger(cfg.LogLevel, stderr); err != nil {
		fmt.Fprintf(stderr, "crashsev: %v\n", err)
		return 1
	}

	var result interface{}
	switch cmd {
	case "train":
		result, err = train(ctx, cfg)
	case "score":
		result, err = score(ctx, cfg, opts.model)
	}
	if err != nil {
		slog.Error("crashsev "+cmd+" failed", log.ErrAttr(err))
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		slog.Error("write result", log.ErrAttr(err))
		return 1
	}
	return 0
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if len(opts.data) > 0 {
		cfg.Data.Paths = append([]string(nil), opts.data...)
	}
	if opts.out != "" {
		cfg.Output.Dir = opts.out
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func train(ctx context.Context, cfg *config.Config) (*pipeline.Result, error) {
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

func score(ctx context.Context, cfg *config.Config, modelPath string) (*pipeline.ScoreResult, error) {
	if modelPath == "" {
		return nil, errors.NewValidationError("model", "-model is required", modelPath)
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Score(ctx, modelPath, cfg.Data.Paths)
}
