package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-matcher/internal/logger"
)

type probeRecorder struct {
	working map[string]bool
	probed  []string
}

func (p *probeRecorder) probe(_ context.Context, model string) error {
	p.probed = append(p.probed, model)
	if p.working[model] {
		return nil
	}
	return errors.New("model not found")
}

func TestModelSelector_PicksFirstWorkingAndCaches(t *testing.T) {
	rec := &probeRecorder{working: map[string]bool{"b": true, "c": true}}
	selector := newModelSelector([]string{"a", "b", "c"}, rec.probe, time.Second, 4, logger.Discard())

	model, err := selector.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", model)

	model, err = selector.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", model)
	assert.Equal(t, []string{"a", "b"}, rec.probed)
}

func TestModelSelector_BoundedAttempts(t *testing.T) {
	rec := &probeRecorder{working: map[string]bool{"c": true}}
	selector := newModelSelector([]string{"a", "b", "c"}, rec.probe, time.Second, 2, logger.Discard())

	_, err := selector.Select(context.Background())

	assert.ErrorIs(t, err, ErrNoCompatibleModel)
	assert.ErrorIs(t, err, ErrLLMUnavailable)
	assert.Equal(t, []string{"a", "b"}, rec.probed)
}

func TestModelSelector_ResetProbesAgain(t *testing.T) {
	rec := &probeRecorder{working: map[string]bool{"a": true}}
	selector := newModelSelector([]string{"a"}, rec.probe, time.Second, 0, logger.Discard())

	_, err := selector.Select(context.Background())
	require.NoError(t, err)

	selector.Reset()
	_, err = selector.Select(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a"}, rec.probed)
}

func TestModelSelector_GenerateFailureReprobes(t *testing.T) {
	rec := &probeRecorder{working: map[string]bool{"a": true, "b": true}}
	selector := newModelSelector([]string{"a", "b"}, rec.probe, time.Second, 0, logger.Discard())
	var called []string
	call := func(_ context.Context, model string) (string, error) {
		called = append(called, model)
		if model == "a" {
			return "", errors.New("model retired")
		}
		return "ok", nil
	}

	_, err := selector.Generate(context.Background(), call)
	require.Error(t, err)

	// the provider now rejects the retired model at probe time as well
	rec.working["a"] = false
	out, err := selector.Generate(context.Background(), call)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []string{"a", "b"}, called)
	assert.Equal(t, []string{"a", "a", "b"}, rec.probed)
}

func TestModelSelector_CallerCancellationKeepsModel(t *testing.T) {
	rec := &probeRecorder{working: map[string]bool{"a": true}}
	selector := newModelSelector([]string{"a"}, rec.probe, time.Second, 0, logger.Discard())
	_, err := selector.Select(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, err = selector.Generate(ctx, func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	})
	require.Error(t, err)

	_, err = selector.Select(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rec.probed)
}

func TestModelSelector_ProbeTimeout(t *testing.T) {
	slow := func(ctx context.Context, model string) error {
		<-ctx.Done()
		return ctx.Err()
	}
	selector := newModelSelector([]string{"slow"}, slow, 10*time.Millisecond, 1, logger.Discard())

	start := time.Now()
	_, err := selector.Select(context.Background())

	assert.ErrorIs(t, err, ErrNoCompatibleModel)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerateWithRetry(t *testing.T) {
	t.Run("succeeds after an upstream error", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{errors.New("503")}, responses: []string{"", "hello"}}

		out, err := generateWithRetry(context.Background(), gen, "p", 0.5, 3)

		require.NoError(t, err)
		assert.Equal(t, "hello", out)
		assert.Equal(t, 2, gen.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{errors.New("1"), errors.New("2")}}

		_, err := generateWithRetry(context.Background(), gen, "p", 0.5, 2)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLLMUnavailable)
		assert.Equal(t, 2, gen.calls)
	})

	t.Run("backs off between attempts", func(t *testing.T) {
		saved := retryBackoff
		retryBackoff = 20 * time.Millisecond
		t.Cleanup(func() { retryBackoff = saved })
		gen := &fakeGenerator{errs: []error{errors.New("1"), errors.New("2")}, responses: []string{"", "", "hello"}}

		start := time.Now()
		out, err := generateWithRetry(context.Background(), gen, "p", 0.5, 3)

		require.NoError(t, err)
		assert.Equal(t, "hello", out)
		assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	})

	t.Run("unavailable is not retried", func(t *testing.T) {
		_, err := generateWithRetry(context.Background(), NewUnavailableGenerator(), "p", 0.5, 5)

		assert.ErrorIs(t, err, ErrLLMUnavailable)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		gen := &fakeGenerator{errs: []error{errors.New("1"), errors.New("2"), errors.New("3")}}

		_, err := generateWithRetry(ctx, gen, "p", 0.5, 3)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, gen.calls)
	})
}

func TestLLMEntityRecognizer(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"```json\n{\"entities\": [{\"text\": \"Kubernetes\", \"label\": \"product\"}, {\"text\": \"Acme\", \"label\": \"ORG\"}]}\n```"}}
	recognizer := NewLLMEntityRecognizer(gen)

	entities, err := recognizer.Recognize(context.Background(), "Ran Kubernetes at Acme")

	require.NoError(t, err)
	assert.Equal(t, []Entity{
		{Text: "Kubernetes", Label: EntityProduct},
		{Text: "Acme", Label: EntityOrg},
	}, entities)
	assert.Contains(t, gen.prompts[0], "Ran Kubernetes at Acme")
}

func TestLLMEntityRecognizer_BadJSON(t *testing.T) {
	recognizer := NewLLMEntityRecognizer(&fakeGenerator{responses: []string{"no entities here"}})

	_, err := recognizer.Recognize(context.Background(), "text")

	assert.Error(t, err)
}

func TestDecodeModelJSON(t *testing.T) {
	var payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, decodeModelJSON("Sure! Here it is:\n```JSON\n{\"name\": \"go\"}\n```\nAnything else?", &payload))
	assert.Equal(t, "go", payload.Name)

	assert.ErrorIs(t, decodeModelJSON("[1, 2]", &payload), errNoJSONObject)
}
