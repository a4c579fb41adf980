package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"syntego/internal/advice"
	"syntego/internal/amqp"
	"syntego/internal/backend"
	"syntego/internal/budget"
	"syntego/internal/cache"
	"syntego/internal/config"
	"syntego/internal/log"
	"syntego/internal/notify"
	"syntego/internal/services"
)

// App holds the wired services shared by every command.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Ledger   *services.LedgerService
	Insights *services.InsightService
	Caches   *cache.Manager

	closers []func() error
}

// NewApp opens the configured store and builds the notifier and advice
// generator. Close releases everything it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Caches: cache.NewManager(logger)}

	for _, name := range cfg.MissingCredentials() {
		logger.Warn("Credential not set, the related feature will degrade", "env", name)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	notifier, err := app.newNotifier()
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	gen, err := app.newGenerator(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	adv := advice.NewService(gen, advice.ServiceConfig{
		Timeout:        cfg.AdviceTimeout,
		CacheSize:      cfg.AdviceCacheSize,
		CacheTTL:       cfg.AdviceCacheTTL,
		MaxPromptChars: cfg.PromptMaxChars,
	}, logger)
	if c := adv.Cache(); c != nil {
		app.Caches.Register(c)
	}

	app.Ledger = services.NewLedgerService(res.Store, notifier, logger)
	app.Insights = services.NewInsightService(app.Ledger, adv, notifier, logger)
	return app, nil
}

// newNotifier returns nil when notifications are disabled. A broker that
// cannot be reached at startup downgrades to logging the messages.
func (a *App) newNotifier() (budget.Notifier, error) {
	cfg := a.Config
	var sender notify.Sender
	switch cfg.Notifier {
	case "none":
		return nil, nil
	case "log":
		sender = notify.LogSender{Logger: a.Logger}
	case "pushover":
		sender = &notify.PushoverSender{
			Token:  cfg.PushoverToken,
			User:   cfg.PushoverUser,
			URL:    cfg.PushoverURL,
			Client: &http.Client{Timeout: cfg.NotifyTimeout},
		}
	case "amqp":
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, a.Logger)
		if err != nil {
			a.Logger.Warn("AMQP broker unavailable, notifications will only be logged",
				log.FieldError, err)
			sender = notify.LogSender{Logger: a.Logger}
			break
		}
		a.closers = append(a.closers, client.Close)
		sender = notify.AMQPSender{Publisher: client}
	default:
		return nil, fmt.Errorf("unsupported notifier: %s", cfg.Notifier)
	}
	a.Logger.Info("Notifications enabled", log.FieldSender, sender.Name())
	return notify.New(sender, cfg.NotifyTimeout, a.Logger), nil
}

// newGenerator returns nil when advice is disabled; the advice service then
// answers with its fallback.
func (a *App) newGenerator(ctx context.Context) (advice.Generator, error) {
	cfg := a.Config
	switch cfg.AdviceProvider {
	case "none":
		return nil, nil
	case "cohere":
		a.Logger.Info("Advice provider configured", log.FieldProvider, "cohere", "model", cfg.CohereModel)
		return advice.NewCohereGenerator(advice.CohereConfig{
			APIKey:      cfg.CohereAPIKey,
			Model:       cfg.CohereModel,
			URL:         cfg.CohereURL,
			MaxTokens:   cfg.AdviceMaxTokens,
			Temperature: cfg.AdviceTemperature,
		}), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, nil
		}
		gen, err := advice.NewGeminiGenerator(ctx, advice.GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			MaxTokens:   int32(cfg.AdviceMaxTokens),
			Temperature: float32(cfg.AdviceTemperature),
		})
		if err != nil {
			return nil, fmt.Errorf("create Gemini client: %w", err)
		}
		a.closers = append(a.closers, gen.Close)
		a.Logger.Info("Advice provider configured", log.FieldProvider, "gemini", "model", cfg.GeminiModel)
		return gen, nil
	default:
		return nil, fmt.Errorf("unsupported advice provider: %s", cfg.AdviceProvider)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	a.Caches.Stop()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
