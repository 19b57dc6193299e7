package commands

import (
	"context"
	"io"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/literaryfinder/agent"
	"github.com/hupe1980/literaryfinder/archive"
	"github.com/hupe1980/literaryfinder/books"
	"github.com/hupe1980/literaryfinder/config"
	"github.com/hupe1980/literaryfinder/core"
	"github.com/hupe1980/literaryfinder/logging"
	"github.com/hupe1980/literaryfinder/model"
	"github.com/hupe1980/literaryfinder/model/anthropic"
	"github.com/hupe1980/literaryfinder/model/openai"
)

// buildWorkers creates the three workers. Tests replace it with fakes.
var buildWorkers = defaultWorkers

func newLogger(cfg *config.Config, w io.Writer) *logging.LiteraryLogger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		Format:      cfg.Logging.Format,
		Output:      w,
		Component:   "cli",
		CustomAttrs: map[string]interface{}{},
	})
}

func newModel(cfg *config.Config) model.Model {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
		})
	default:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	}
}

func defaultWorkers(cfg *config.Config, logger logging.Logger) []core.Worker {
	m := newModel(cfg)
	catalog := books.NewClient(func(o *books.Options) {
		o.BaseURL = cfg.Books.BaseURL
		o.APIKey = cfg.GoogleAPIKey
		o.MaxResults = cfg.Books.MaxResults
	})
	opts := func(o *agent.Options) {
		o.Logger = logger
		o.MaxCalls = cfg.MaxModelCalls
		o.Retry = cfg.RetryPolicy()
	}
	return []core.Worker{
		agent.NewHistorian(m, opts),
		agent.NewCartographer(catalog, opts),
		agent.NewConnector(m, opts),
	}
}

// openArchive returns the configured archive, or nil for backend "none".
// A Redis archive is pinged before use.
func openArchive(ctx context.Context, cfg *config.Config) (archive.Store, error) {
	switch cfg.Archive.Backend {
	case "memory":
		return archive.NewMemory(), nil
	case "redis":
		store := archive.NewRedis(&redis.Options{Addr: cfg.Archive.RedisAddr}, func(o *archive.RedisOptions) {
			o.Namespace = cfg.Archive.Namespace
			o.TTL = cfg.Archive.TTL
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, &core.ConfigurationError{Key: "archive.redis_addr", Message: "redis unreachable at " + cfg.Archive.RedisAddr, Err: err}
		}
		return store, nil
	default:
		return nil, nil
	}
}
