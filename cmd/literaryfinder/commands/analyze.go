package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/literaryfinder/config"
	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/engine"
)

type analyzeFlags struct {
	mode      string
	selectors map[string]string
	format    string
	noEval    bool
	timeout   time.Duration
	quiet     bool
}

func newAnalyzeCommand(configPath *string) *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <author>",
		Short: "Research an author and print the report",
		Long: `Run the historian, cartographer and connector for one author and print the
merged report.

The request succeeds as long as one worker delivered; sections of failed
workers are marked as unavailable. The command exits non-zero only when no
report could be produced.

Examples:
  # Parallel run with markdown output
  literaryfinder analyze "Toni Morrison"

  # Sequential run, the connector sees the other workers' findings
  literaryfinder analyze "Gabriel García Márquez" --mode sequential

  # Full response as JSON, with a model override for this request
  literaryfinder analyze "Octavia Butler" --format json --selector model=gpt-4o`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, *configPath, strings.Join(args, " "), f)
		},
	}

	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "Execution mode: parallel or sequential (default from config)")
	cmd.Flags().StringToStringVarP(&f.selectors, "selector", "s", nil, "Worker selector key=value, repeatable")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatMarkdown, "Output format: markdown, json or yaml")
	cmd.Flags().BoolVar(&f.noEval, "no-eval", false, "Skip the performance evaluation")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Per-worker deadline (default from config)")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress lines")
	return cmd
}

func runAnalyze(cmd *cobra.Command, configPath, subject string, f analyzeFlags) error {
	stderr := newSyncWriter(cmd.ErrOrStderr())

	if err := checkFormat(f.format); err != nil {
		return printError(stderr, err.Error(), "")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return printError(stderr, err.Error(), "Check the config file and LITERARYFINDER_* environment variables.")
	}
	if err := cfg.Validate(); err != nil {
		return printError(stderr, err.Error(), "Export the provider API key or switch provider in the config file.")
	}

	mode := cfg.DefaultMode()
	if f.mode != "" {
		if mode, err = core.ParseMode(f.mode); err != nil {
			return printError(stderr, err.Error(), "Use --mode parallel or --mode sequential.")
		}
	}
	engineCfg := cfg.EngineConfig()
	if f.noEval {
		engineCfg.Evaluate = false
	}
	if f.timeout > 0 {
		engineCfg.WorkerTimeout = f.timeout
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := openArchive(ctx, cfg)
	if err != nil {
		printWarning(stderr, "archive disabled: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	logger := newLogger(cfg, stderr)
	callbacks := engine.NewCallbackManager()
	if !f.quiet {
		callbacks.RegisterCallback(engine.NewFunctionCallback(engine.CallbackAfterWorker, func(_ context.Context, cc *engine.CallbackContext) error {
			printWorker(stderr, cc)
			return nil
		}))
	}

	eng := engine.New(func(o *engine.Options) {
		o.Workers = buildWorkers(cfg, logger)
		o.Config = engineCfg
		o.Logger = logger
		o.Callbacks = callbacks
		if store != nil {
			o.Archive = store
		}
	})

	resp := eng.Analyze(ctx, core.Request{Subject: subject, Mode: mode, Selectors: f.selectors})

	if pr := resp.PerformanceReport; pr != nil {
		logger.WithRequest(resp.RequestID, resp.Subject).LogPerformance("analyze", pr.System.TotalTime(), map[string]interface{}{
			"success_rate":    pr.System.SuccessRate,
			"overall_quality": pr.System.OverallQualityScore,
		})
	}

	rendered := logger.StartTimer("render " + f.format)
	if err := writeResponse(cmd.OutOrStdout(), resp, f.format); err != nil {
		return printError(stderr, fmt.Sprintf("cannot write output: %v", err), "")
	}
	rendered()
	if !resp.Success {
		return printError(stderr, fmt.Sprintf("analysis of %q failed", resp.Subject), strings.Join(resp.Errors, "\n"))
	}
	if !f.quiet {
		printSuccess(stderr, "request %s completed in %.2fs", resp.RequestID, resp.ProcessingTimeSeconds)
	}
	return nil
}
