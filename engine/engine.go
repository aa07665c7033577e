package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/thisisjab/docquery/matcher"
	"github.com/thisisjab/docquery/metric"
	"github.com/thisisjab/docquery/query/ast"
)

// ErrEmptyTree is returned when Evaluate is called without a tree.
var ErrEmptyTree = errors.New("expression tree is empty")

type Config struct {
	Matcher    matcher.Matcher
	IgnoreCase bool
}

func (c Config) validate() error {
	if c.Matcher == nil {
		return errors.New("no matcher is configured")
	}

	return nil
}

// Step records one matcher call made during an evaluation.
type Step struct {
	Term  string `json:"term"`
	Found bool   `json:"found"`
	// TreeSize is the number of nodes left once the result was absorbed.
	TreeSize int `json:"tree_size"`
}

type Result struct {
	Verdict bool   `json:"verdict"`
	Lookups int    `json:"lookups"`
	Steps   []Step `json:"steps"`
}

// Engine evaluates expression trees against documents, looking up as few
// terms as the tree allows.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Evaluate decides whether document satisfies the expression in root.
//
// Every round takes the breadth-first next literal, asks the matcher about
// it and absorbs the answer into the tree, which shrinks with each round.
// Evaluation ends once the root is a single literal. root is rewritten in
// place and must not be used by the caller afterwards.
func (e *Engine) Evaluate(ctx context.Context, root *ast.Node, document string) (Result, error) {
	if root == nil {
		return Result{}, ErrEmptyTree
	}

	start := time.Now()
	metric.TreeSize.Observe(float64(root.Size()))

	res, err := e.evaluate(ctx, root, document)
	if err != nil {
		metric.EvaluationErrorsTotal.Inc()
		return res, err
	}

	metric.EvaluationsTotal.WithLabelValues(strconv.FormatBool(res.Verdict)).Inc()
	metric.TermLookups.Observe(float64(res.Lookups))
	metric.EvaluationDuration.Observe(time.Since(start).Seconds())

	return res, nil
}

func (e *Engine) evaluate(ctx context.Context, root *ast.Node, document string) (Result, error) {
	var res Result

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		term, ok := root.NextUnresolvedTerm()
		if !ok {
			return res, ErrEmptyTree
		}

		found, err := e.lookup(&res, term, document)
		if err != nil {
			return res, err
		}

		for root.Absorb(term, found) {
		}
		res.Steps[len(res.Steps)-1].TreeSize = root.Size()

		if e.logger.Enabled(ctx, slog.LevelDebug) {
			e.logger.Debug("absorbed term", "term", term, "found", found, "remaining", root.String())
		}

		if !root.IsLeaf() {
			continue
		}

		// The last literal is either the one just looked up, standing for
		// its own result, or the other operand that was never looked up.
		if root.Term != term {
			found, err = e.lookup(&res, root.Term, document)
			if err != nil {
				return res, err
			}
			res.Steps[len(res.Steps)-1].TreeSize = 1
		}

		res.Verdict = found
		return res, nil
	}
}

func (e *Engine) lookup(res *Result, term, document string) (bool, error) {
	found, err := e.cfg.Matcher.Match(term, document, e.cfg.IgnoreCase)
	if err != nil {
		return false, fmt.Errorf("cannot match term %q: %w", term, err)
	}

	res.Lookups++
	res.Steps = append(res.Steps, Step{Term: term, Found: found})

	return found, nil
}
