// internal/common/fallback/chain.go

// Package fallback implements an ordered chain of degraded strategies.
//
// A stage is attempted only when the previous stage FAILED. A stage that
// succeeds with an empty result is final: legitimate zero-result answers
// must not be masked by silently advancing into degraded mode.
package fallback

import (
	"context"
	"errors"

	"careerhunt-pipeline/internal/common/logger"
)

// ErrExhausted is returned when every stage in the chain failed.
var ErrExhausted = errors.New("fallback chain exhausted")

// Stage is one strategy in the chain.
type Stage[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Outcome carries the winning stage's value plus enough metadata for callers
// and telemetry to detect degraded mode.
type Outcome[T any] struct {
	Value     T
	Stage     string
	StageIdx  int
	Degraded  bool // true when any stage after the first produced the value
	LastError error
}

// Run executes stages in order until one returns a nil error.
func Run[T any](ctx context.Context, log logger.Logger, stages []Stage[T]) (*Outcome[T], error) {
	var lastErr error

	for i, stage := range stages {
		value, err := stage.Run(ctx)
		if err == nil {
			return &Outcome[T]{
				Value:     value,
				Stage:     stage.Name,
				StageIdx:  i,
				Degraded:  i > 0,
				LastError: lastErr,
			}, nil
		}

		lastErr = err
		log.Warn("fallback stage failed", map[string]interface{}{
			"stage": stage.Name,
			"index": i,
			"error": err.Error(),
		})
	}

	if lastErr == nil {
		lastErr = ErrExhausted
	}
	return nil, lastErr
}
