package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackUsesFirstSuccess(t *testing.T) {
	first := &stubProvider{err: errors.New("429 Too Many Requests")}
	second := &stubProvider{out: "ok"}
	third := &stubProvider{out: "unused"}

	f := NewFallbackService(first, nil, second, third)
	out, err := f.Complete(context.Background(), "s", "u")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls)
}

func TestFallbackAllFail(t *testing.T) {
	f := NewFallbackService(&stubProvider{err: errors.New("dial tcp: connection refused")}, &stubProvider{err: ErrRefusal})

	_, err := f.Complete(context.Background(), "s", "u")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRefusal))
}

func TestFallbackEmpty(t *testing.T) {
	_, err := NewFallbackService().Complete(context.Background(), "s", "u")
	assert.True(t, errors.Is(err, ErrNoProvider))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("RESOURCE_EXHAUSTED: quota")))
	assert.False(t, isQuotaError(errors.New("bad request")))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:11434: connection refused")))
	assert.False(t, isConnectionError(nil))
}

type slowProvider struct{}

func (slowProvider) Name() string { return "slow" }

func (slowProvider) Complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Second):
		return "late", nil
	}
}

func TestWithTimeout(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)

	_, err := p.Complete(context.Background(), "s", "u")

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "slow", p.Name())
}
