// Package cli implements the offline conditions-cli commands over JSON files.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/condition-suggestion-engine/internal/conditions"
	"github.com/condition-suggestion-engine/internal/domain"
	"github.com/condition-suggestion-engine/internal/feedback"
	"github.com/condition-suggestion-engine/internal/service"
)

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New("invalid usage")

const usage = `Condition suggestion engine CLI

Usage:
  conditions-cli [--config file] <command> [args]

Commands:
  detect <file|->            Run the combination detector over {"parameters": [...]}
  filter <file|->            Validate, score and split {"suggestions": [...], "context": {...}}
  analyze <file|->           Full analysis; uses "reportTypes" when present, else "parameters"
  combinations               List the built-in condition signatures
  feedback export <file|->   Write all stored feedback as JSON
  feedback import <file|->   Load feedback JSON, skipping entries that already exist
  help                       Show this help
`

// CLI dispatches commands. The feedback store is optional.
type CLI struct {
	svc    *service.SuggestionService
	store  feedback.Store
	stdin  io.Reader
	stdout io.Writer
}

// New creates a CLI writing results to stdout.
func New(svc *service.SuggestionService, store feedback.Store, stdin io.Reader, stdout io.Writer) *CLI {
	return &CLI{
		svc:    svc,
		store:  store,
		stdin:  stdin,
		stdout: stdout,
	}
}

// Run executes the command named by args[0].
func (c *CLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return c.showHelp()
	}

	switch args[0] {
	case "detect":
		return c.withInput(args[1:], c.detect)
	case "filter":
		return c.withInput(args[1:], c.filter)
	case "analyze":
		return c.withInput(args[1:], func(r io.Reader) error { return c.analyze(ctx, r) })
	case "combinations":
		return c.writeJSON(map[string]interface{}{"combinations": conditions.Combinations()})
	case "feedback":
		return c.feedbackCommand(ctx, args[1:])
	case "help", "--help", "-h":
		return c.showHelp()
	default:
		fmt.Fprintf(c.stdout, "Unknown command: %s\n\n", args[0])
		_ = c.showHelp()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func (c *CLI) showHelp() error {
	_, err := fmt.Fprint(c.stdout, usage)
	return err
}

// withInput opens the named file, or stdin for "-", and hands it to fn.
func (c *CLI) withInput(args []string, fn func(io.Reader) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one input file or -", ErrUsage)
	}
	if args[0] == "-" {
		return fn(c.stdin)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return fn(f)
}

func decode(r io.Reader, target interface{}) error {
	if err := json.NewDecoder(r).Decode(target); err != nil {
		return fmt.Errorf("decoding input: %w", err)
	}
	return nil
}

func (c *CLI) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *CLI) detect(r io.Reader) error {
	var req struct {
		Parameters []domain.Parameter `json:"parameters"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}
	return c.writeJSON(map[string]interface{}{"suggestions": c.svc.Detect(req.Parameters)})
}

func (c *CLI) filter(r io.Reader) error {
	var req struct {
		Suggestions []domain.ConditionSuggestion `json:"suggestions"`
		Context     domain.ValidationContext     `json:"context"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	filtered := c.svc.Filter(req.Suggestions, req.Context)
	separated := conditions.SeparateConditions(filtered)
	return c.writeJSON(map[string]interface{}{
		"conditions":   filtered,
		"autoAdd":      separated.AutoAdd,
		"manualReview": separated.ManualReview,
	})
}

func (c *CLI) analyze(ctx context.Context, r io.Reader) error {
	var req struct {
		service.AnalyzeParametersRequest
		ReportTypes []string `json:"reportTypes"`
	}
	if err := decode(r, &req); err != nil {
		return err
	}

	var (
		result *service.AnalysisResult
		err    error
	)
	if len(req.ReportTypes) > 0 {
		result, err = c.svc.AnalyzeReportTypes(ctx, service.AnalyzeReportTypesRequest{
			ReportTypes:        req.ReportTypes,
			Parameters:         req.Parameters,
			Member:             req.Member,
			ExistingConditions: req.ExistingConditions,
			AutoAddThreshold:   req.AutoAddThreshold,
			SkipOracle:         req.SkipOracle,
		})
	} else {
		result, err = c.svc.AnalyzeParameters(ctx, req.AnalyzeParametersRequest)
	}
	if err != nil {
		return err
	}
	return c.writeJSON(result)
}

func (c *CLI) feedbackCommand(ctx context.Context, args []string) error {
	if c.store == nil {
		return service.ErrFeedbackDisabled
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: feedback export|import <file|->", ErrUsage)
	}

	switch args[0] {
	case "export":
		if args[1] == "-" {
			return c.store.ExportJSON(ctx, c.stdout)
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		return c.store.ExportJSON(ctx, f)
	case "import":
		return c.withInput(args[1:], func(r io.Reader) error {
			imported, skipped, err := c.store.ImportJSON(ctx, r)
			if err != nil {
				return err
			}
			return c.writeJSON(map[string]int{"imported": imported, "skipped": skipped})
		})
	default:
		return fmt.Errorf("%w: unknown feedback command %q", ErrUsage, args[0])
	}
}
