package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/thisisjab/docquery/document"
	"github.com/thisisjab/docquery/engine"
	"github.com/thisisjab/docquery/matcher"
	"github.com/thisisjab/docquery/query/parser"
)

// Options replace the IGNORE_CASE and DISPLAY_TREE environment toggles of
// earlier versions.
type Options struct {
	// IgnoreCase makes term lookups case-insensitive.
	IgnoreCase bool `yaml:"ignore_case"`
	// ShowTree prints the parsed tree to TreeWriter before evaluation.
	ShowTree bool `yaml:"show_tree"`
	// Strict rejects malformed queries instead of repairing them.
	Strict bool `yaml:"strict"`
	// TreeWriter defaults to standard output.
	TreeWriter io.Writer `yaml:"-"`
}

// Searcher parses a query and evaluates it against a document.
type Searcher struct {
	opts   Options
	engine *engine.Engine
	logger *slog.Logger
}

func New(logger *slog.Logger, m matcher.Matcher, opts Options) (*Searcher, error) {
	e, err := engine.New(engine.Config{Matcher: m, IgnoreCase: opts.IgnoreCase}, logger)
	if err != nil {
		return nil, fmt.Errorf("cannot create engine: %w", err)
	}

	if opts.TreeWriter == nil {
		opts.TreeWriter = os.Stdout
	}

	return &Searcher{
		opts:   opts,
		engine: e,
		logger: logger,
	}, nil
}

func (s *Searcher) Search(ctx context.Context, query, document string) (engine.Result, error) {
	root, issues, err := parser.Parse(query, s.opts.Strict)
	if err != nil {
		return engine.Result{}, err
	}

	for _, issue := range issues {
		s.logger.Warn("repaired query syntax.", "query", query, "issue", issue)
	}

	if s.opts.ShowTree {
		if err := root.Print(s.opts.TreeWriter); err != nil {
			return engine.Result{}, fmt.Errorf("cannot print tree: %w", err)
		}
	}

	return s.engine.Evaluate(ctx, root, document)
}

// SearchSource reads src before the query is parsed, so an unreadable
// document is reported even for a malformed query.
func (s *Searcher) SearchSource(ctx context.Context, query string, src document.Source) (engine.Result, error) {
	content, err := src.Read(ctx)
	if err != nil {
		return engine.Result{}, fmt.Errorf("cannot read %s: %w", src.Name(), err)
	}

	return s.Search(ctx, query, content)
}

func FormatVerdict(verdict bool) string {
	return fmt.Sprintf("This document fulfills the query: %t", verdict)
}
