package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/internal/util"
	"github.com/hupe1980/literaryfinder/logging"
	"github.com/hupe1980/literaryfinder/model"
)

// Options configures a worker. All workers share the same option set.
type Options struct {
	// Logger receives retry notices and model call records.
	Logger logging.Logger
	// MaxCalls limits external calls (including retries) per run. 0 = unlimited.
	MaxCalls int
	// Retry is the policy for transient failures of external sources.
	Retry RetryPolicy
	// Instruction overrides the worker's built-in system instruction.
	Instruction Instruction
	// PromptTemplate overrides the worker's built-in prompt template.
	PromptTemplate string
}

// DefaultMaxCalls mirrors the iteration cap of the research agents.
const DefaultMaxCalls = 10

func defaultOptions() Options {
	return Options{
		Logger:   logging.NoOpLogger{},
		MaxCalls: DefaultMaxCalls,
		Retry:    DefaultRetryPolicy,
	}
}

// BaseWorker bundles the identity, model access and retry plumbing shared by
// the model backed workers. Embed it and implement Run.
type BaseWorker struct {
	role   core.Role
	model  model.Model
	opts   Options
	prompt string
}

func newBaseWorker(role core.Role, m model.Model, instruction, prompt string, optFns []func(o *Options)) BaseWorker {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(instruction)
	}
	if opts.PromptTemplate != "" {
		prompt = opts.PromptTemplate
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return BaseWorker{role: role, model: m, opts: opts, prompt: prompt}
}

// Role implements core.Worker.
func (b *BaseWorker) Role() core.Role { return b.role }

// Description returns the human readable specialisation of the worker.
func (b *BaseWorker) Description() string { return b.role.Description() }

// Validate implements core.Validator.
func (b *BaseWorker) Validate() error {
	if b.model == nil {
		return fmt.Errorf("%s: no model configured", b.role)
	}
	return nil
}

// generate renders the prompt template with data, asks the model and retries
// transient failures. Each attempt counts against MaxCalls.
func (b *BaseWorker) generate(ctx context.Context, task core.Task, data map[string]any) (string, error) {
	instructions, err := b.opts.Instruction.Resolve(task)
	if err != nil {
		return "", fmt.Errorf("resolve instruction: %w", err)
	}
	prompt, err := util.RenderTemplate(b.prompt, data)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	req := model.Request{
		Instructions: instructions,
		Prompt:       prompt,
		Model:        task.Selector("model", ""),
	}

	limiter := core.NewCallLimiter(b.opts.MaxCalls)
	var text string
	err = b.opts.Retry.Do(ctx, b.opts.Logger, string(b.role)+" model call", func() error {
		if err := ctx.Err(); err != nil {
			return permanent(err)
		}
		if err := limiter.Increment(); err != nil {
			return permanent(err)
		}
		start := time.Now()
		resp, err := model.Collect(ctx, b.model, req)
		b.logModelCall(resp, time.Since(start), err)
		if err != nil {
			if ctx.Err() != nil {
				return permanent(ctx.Err())
			}
			return err
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("model %s: %w", b.model.Info().Name, err)
	}
	return text, nil
}

func (b *BaseWorker) logModelCall(resp *model.Response, dur time.Duration, err error) {
	tokens := 0
	if resp != nil && resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if ll, ok := b.opts.Logger.(*logging.LiteraryLogger); ok {
		ll.WithComponent(string(b.role)).LogModelCall(b.model.Info().Name, tokens, dur, err == nil, err)
		return
	}
	b.opts.Logger.Debug("%s model call took %s (tokens=%d, err=%v)", b.role, dur, tokens, err)
}
