package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"syntego/internal/cache"
	"syntego/internal/core"
	"syntego/internal/log"
)

// FallbackResponse is shown when the advice backend fails.
const FallbackResponse = "Sorry, I couldn't fetch advice right now. Please try again later."

// ErrEmptyQuery is returned by Ask for a blank question.
var ErrEmptyQuery = errors.New("query cannot be empty")

type ServiceConfig struct {
	Timeout        time.Duration
	CacheSize      int
	CacheTTL       time.Duration
	MaxPromptChars int
}

// DefaultServiceConfig matches the defaults of the config package.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Timeout:   20 * time.Second,
		CacheSize: 64,
		CacheTTL:  10 * time.Minute,
	}
}

// Answer is what the user sees for a question.
type Answer struct {
	Text     string
	Fallback bool
	Cached   bool
}

// Service turns a ledger and a question into advice. Answers are cached by
// prompt, so any change to the ledger produces a fresh request.
type Service struct {
	gen     Generator
	builder Builder
	timeout time.Duration
	cache   *cache.LRUCache[string]
	group   singleflight.Group
	logger  *log.Logger
}

func NewService(gen Generator, cfg ServiceConfig, logger *log.Logger) *Service {
	if gen == nil {
		gen = Disabled{}
	}
	var c *cache.LRUCache[string]
	if cfg.CacheSize > 0 && cfg.CacheTTL > 0 {
		c = cache.NewLRUCache[string](cfg.CacheSize, cfg.CacheTTL)
	}
	return &Service{
		gen:     gen,
		builder: Builder{MaxChars: cfg.MaxPromptChars},
		timeout: cfg.Timeout,
		cache:   c,
		logger:  logger.WithComponent(log.ComponentAdvice),
	}
}

// Cache exposes the answer cache for periodic cleanup; nil when caching is off.
func (s *Service) Cache() cache.Cleaner {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// Ask never fails because of the backend: failures are logged and turned
// into FallbackResponse. The only error is ErrEmptyQuery.
func (s *Service) Ask(ctx context.Context, l core.Ledger, query string) (Answer, error) {
	if strings.TrimSpace(query) == "" {
		return Answer{}, ErrEmptyQuery
	}
	prompt, ok := s.builder.Build(l, query)
	if !ok {
		return Answer{Text: prompt}, nil
	}

	key := promptKey(prompt)
	if s.cache != nil {
		if text, hit := s.cache.Get(key); hit {
			return Answer{Text: text, Cached: true}, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		callCtx := ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		text, err := s.gen.GenerateAdvice(callCtx, prompt)
		if err == nil && s.cache != nil {
			s.cache.Set(key, text)
		}
		return text, err
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Advice request failed, using fallback",
			log.NewFields().WithOperation(log.OpAsk).WithError(err).ToSlice()...)
		return Answer{Text: FallbackResponse, Fallback: true}, nil
	}

	text := v.(string)
	s.logger.DebugContext(ctx, "Advice generated", "prompt_chars", len(prompt), "shared", shared)
	return Answer{Text: text}, nil
}

func promptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
