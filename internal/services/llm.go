package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"alfredoptarigan/resume-matcher/internal/logger"
)

// ErrLLMUnavailable means no credential was configured or none of the
// candidate models answered the probe prompt.
var ErrLLMUnavailable = errors.New("generative model unavailable")

// ErrNoCompatibleModel is the ErrLLMUnavailable case where a credential exists
// but every probed candidate failed.
var ErrNoCompatibleModel = fmt.Errorf("%w: no compatible model found", ErrLLMUnavailable)

const probePrompt = "Say 'OK'"

// TextGenerator produces free-form text from a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

type probeFunc func(ctx context.Context, model string) error

// modelSelector picks the first candidate model that answers a trivial
// prompt and remembers it. Probing is bounded by maxAttempts and each probe
// runs under timeout.
type modelSelector struct {
	candidates  []string
	probe       probeFunc
	timeout     time.Duration
	maxAttempts int
	log         *slog.Logger

	mu       sync.Mutex
	selected string
}

func newModelSelector(candidates []string, probe probeFunc, timeout time.Duration, maxAttempts int, log *slog.Logger) *modelSelector {
	if maxAttempts <= 0 || maxAttempts > len(candidates) {
		maxAttempts = len(candidates)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &modelSelector{
		candidates:  candidates,
		probe:       probe,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Select returns the cached model or probes the candidates in order.
func (s *modelSelector) Select(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != "" {
		return s.selected, nil
	}

	log := logger.FromContext(ctx, s.log)
	for i := 0; i < s.maxAttempts; i++ {
		model := s.candidates[i]

		probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.probe(probeCtx, model)
		cancel()

		if err == nil {
			log.Info("selected generative model", "model", model)
			s.selected = model
			return model, nil
		}

		log.Warn("generative model probe failed", "model", model, "error", err)
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, ctx.Err())
		}
	}

	return "", fmt.Errorf("%w among %v", ErrNoCompatibleModel, s.candidates[:s.maxAttempts])
}

type modelCall func(ctx context.Context, model string) (string, error)

// Generate runs call against the selected model under the per-call timeout.
// A failure not caused by the caller's context drops the cached model, so the
// next call probes the candidate list again.
func (s *modelSelector) Generate(ctx context.Context, call modelCall) (string, error) {
	model, err := s.Select(ctx)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := call(callCtx, model)
	if err != nil {
		logger.FromContext(ctx, s.log).Error("generation failed", "model", model, "error", err)
		if ctx.Err() == nil {
			s.Reset()
		}
		return "", err
	}

	return text, nil
}

// Reset forgets the selected model so the next call probes again.
func (s *modelSelector) Reset() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// unavailableGenerator is used when no credential is configured.
type unavailableGenerator struct{}

func (unavailableGenerator) Generate(context.Context, string, float32) (string, error) {
	return "", fmt.Errorf("%w: no API key configured", ErrLLMUnavailable)
}

// NewUnavailableGenerator returns a TextGenerator that always reports
// ErrLLMUnavailable.
func NewUnavailableGenerator() TextGenerator {
	return unavailableGenerator{}
}

// retryBackoff is the delay before the second attempt; it grows linearly.
var retryBackoff = 500 * time.Millisecond

// generateWithRetry retries upstream failures with linear backoff but gives
// up immediately when the model is unavailable or the context is done.
func generateWithRetry(ctx context.Context, gen TextGenerator, prompt string, temperature float32, maxRetries int) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		result, err := gen.Generate(ctx, prompt, temperature)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrLLMUnavailable) {
			return "", err
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}
