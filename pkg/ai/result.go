package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is the outcome of one structured LLM call: either a validated value or an error.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

func Success[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

func Failure[T any](err error) Result[T] {
	return Result[T]{err: err}
}

func (r Result[T]) Ok() bool { return r.ok }

func (r Result[T]) Err() error { return r.err }

// Unwrap returns the value, or the zero value and the failure cause
func (r Result[T]) Unwrap() (T, error) {
	if !r.ok {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// Validator is implemented by schemas that can check their own required fields
type Validator interface {
	Validate() error
}

// Decode parses raw model output into T. Fenced or prose-wrapped JSON is accepted,
// anything that does not unmarshal or validate is a failure.
func Decode[T any](raw string) Result[T] {
	content := cleanJSONResponse(raw)
	if content == "" || !strings.HasPrefix(content, "{") {
		return Failure[T](fmt.Errorf("%w: no JSON object in response", ErrMalformedOutput))
	}

	var out T
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return Failure[T](fmt.Errorf("%w: %v", ErrMalformedOutput, err))
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return Failure[T](fmt.Errorf("%w: %v", ErrMalformedOutput, err))
		}
	}
	return Success(out)
}

// Call runs one completion and decodes it into T
func Call[T any](ctx context.Context, p Provider, systemPrompt, userContent string) Result[T] {
	if p == nil {
		return Failure[T](ErrNoProvider)
	}
	raw, err := p.Complete(ctx, systemPrompt, userContent)
	if err != nil {
		return Failure[T](fmt.Errorf("%s completion failed: %w", p.Name(), err))
	}
	return Decode[T](raw)
}
