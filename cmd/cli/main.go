package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/c2h5oh/datasize"
	"github.com/thisisjab/docquery/config"
	"github.com/thisisjab/docquery/document"
	"github.com/thisisjab/docquery/engine"
	"github.com/thisisjab/docquery/search"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	argQuery = kingpin.Arg("query", `query expression, e.g. "A * (B + C)"`).Required().String()
	argPath  = kingpin.Arg("path", `document to evaluate, "-" reads standard input`).Required().String()

	flagIgnoreCase = kingpin.Flag("ignore-case", `match terms case-insensitively, also enabled by setting IGNORE_CASE`).Short('i').Bool()
	flagShowTree   = kingpin.Flag("show-tree", `print the parsed expression tree before evaluating, also enabled by setting DISPLAY_TREE`).Short('t').Bool()
	flagStrict     = kingpin.Flag("strict", `reject malformed queries instead of repairing them`).Bool()
	flagWatch      = kingpin.Flag("watch", `evaluate again every time the document changes`).Bool()
	flagMaxDocSize = kingpin.Flag("max-document-size", `the maximum document size, overrides the config file`).Bytes()
	flagConfigPath = kingpin.Flag("config", `path to an optional config file`).String()
	flagLogLevel   = kingpin.Flag("log-level", `overrides the configured log level`).Enum("debug", "info", "warn", "error")
)

type options struct {
	query      string
	path       string
	configPath string
	logLevel   string
	maxDocSize datasize.ByteSize
	ignoreCase bool
	showTree   bool
	strict     bool
	watch      bool
}

func main() {
	kingpin.Parse()

	opts := options{
		query:      *argQuery,
		path:       *argPath,
		configPath: *flagConfigPath,
		logLevel:   *flagLogLevel,
		maxDocSize: datasize.ByteSize(*flagMaxDocSize),
		ignoreCase: *flagIgnoreCase || envSet("IGNORE_CASE"),
		showTree:   *flagShowTree || envSet("DISPLAY_TREE"),
		strict:     *flagStrict,
		watch:      *flagWatch,
	}

	components, logger, err := loadComponents(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal. shutting down.", "signal", sig)
		cancel()
	}()

	if err := run(ctx, opts, components, logger, os.Stdout); err != nil {
		logger.Error("cannot evaluate query.", "error", err)
		os.Exit(1)
	}
}

// envSet reports whether the variable is present. Its value, empty
// included, does not matter.
func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// loadComponents merges flags into the configuration, flags winning.
func loadComponents(opts options) (*config.Components, *slog.Logger, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, nil, err
		}
	}

	if opts.logLevel != "" {
		cfg.Logger.Level = opts.logLevel
	}
	if opts.maxDocSize > 0 {
		cfg.Document.MaxSize = opts.maxDocSize
	}
	// Standard output carries the verdict only.
	cfg.Logger.Output = "stderr"

	cfg.Search.IgnoreCase = cfg.Search.IgnoreCase || opts.ignoreCase
	cfg.Search.ShowTree = cfg.Search.ShowTree || opts.showTree
	cfg.Search.Strict = cfg.Search.Strict || opts.strict

	return cfg.Parse()
}

func run(ctx context.Context, opts options, c *config.Components, logger *slog.Logger, stdout io.Writer) error {
	src, err := document.NewFileSource(logger, document.FileSourceConfig{
		Path:    opts.path,
		MaxSize: c.Document.MaxSize,
	})
	if err != nil {
		return err
	}

	searchOpts := c.Search
	searchOpts.TreeWriter = stdout

	searcher, err := search.New(logger, c.Matcher, searchOpts)
	if err != nil {
		return err
	}

	report := func(res engine.Result) error {
		logger.Debug("evaluated query.", "source", src.Name(), "lookups", res.Lookups)
		_, err := fmt.Fprintln(stdout, search.FormatVerdict(res.Verdict))
		return err
	}

	res, err := searcher.SearchSource(ctx, opts.query, src)
	if err != nil {
		return err
	}
	if err := report(res); err != nil {
		return err
	}

	if !opts.watch {
		return nil
	}

	logger.Info("watching document for changes.", "path", opts.path)
	onChange := func(content string) error {
		res, err := searcher.Search(ctx, opts.query, content)
		if err != nil {
			return err
		}
		return report(res)
	}

	if err := src.Watch(ctx, onChange); err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}
