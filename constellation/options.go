package constellation

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/astrolabs/astro/constellation/emit"
)

// Option configures a Runner at construction time.
type Option func(*Runner) error

// WithLogger attaches a structured logger. The default discards all output.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	runner, err := constellation.NewRunner(st, constellation.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// WithMetrics attaches a Prometheus metric set. Without it, no metrics are
// recorded.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(r *Runner) error {
		r.metrics = m
		return nil
	}
}

// WithStream attaches a default event stream used by every run that does not
// supply its own via WithRunStream.
func WithStream(stream emit.Stream) Option {
	return func(r *Runner) error {
		r.stream = stream
		return nil
	}
}

// WithSemanticMatches replaces the variable-name to node-id-substring table
// consulted during binding resolution. The mapping is domain-specific, so
// applications configure it here rather than editing the built-in defaults.
func WithSemanticMatches(matches map[string][]string) Option {
	return func(r *Runner) error {
		r.binder = NewBinder(matches)
		return nil
	}
}

// WithCheckpointInterval sets how many node completions elapse between run
// persists. Failures, pauses, and terminal transitions always persist
// regardless of the interval. Default: 3.
func WithCheckpointInterval(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			return fmt.Errorf("checkpoint interval must be at least 1, got %d", n)
		}
		r.checkpointInterval = n
		return nil
	}
}

// WithToolResultLimit sets the character limit applied to stored tool-call
// results. Default: DefaultToolResultLimit. The node's main output is never
// truncated.
func WithToolResultLimit(n int) Option {
	return func(r *Runner) error {
		if n < 1 {
			return fmt.Errorf("tool result limit must be at least 1, got %d", n)
		}
		r.toolResultLimit = n
		return nil
	}
}

// RunOption configures a single Run or Resume invocation.
type RunOption func(*runConfig)

type runConfig struct {
	runID  string
	stream emit.Stream
}

// WithRunID pins the run identifier instead of generating one. Used by
// callers that pre-allocate IDs, and by tests.
func WithRunID(id string) RunOption {
	return func(cfg *runConfig) {
		cfg.runID = id
	}
}

// WithRunStream attaches an event stream for this invocation only,
// overriding the Runner's default stream.
func WithRunStream(stream emit.Stream) RunOption {
	return func(cfg *runConfig) {
		cfg.stream = stream
	}
}
