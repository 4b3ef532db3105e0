package constellation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/astrolabs/astro/constellation/emit"
	"github.com/astrolabs/astro/constellation/store"
)

// defaultConfirmationPrompt is shown when a pausing node declares none.
const defaultConfirmationPrompt = "Review the output. Proceed?"

// errRunCancelled aborts a traversal whose run was cancelled out-of-band.
// It never escapes the Run/Resume entrypoints.
var errRunCancelled = errors.New("run cancelled")

// Runner executes constellations: it walks the graph in topological order,
// resolves variable bindings, invokes Stars, emits progress events, and
// checkpoints the Run to the store.
//
// A Runner is safe for concurrent use; registration and execution may
// interleave. Each Run gets its own Context, so concurrent runs of the same
// constellation do not share mutable state.
//
// Example:
//
//	st := store.NewMemStore[*constellation.Run]()
//	runner, err := constellation.NewRunner(st,
//	    constellation.WithLogger(logger),
//	    constellation.WithMetrics(metrics),
//	)
//	runner.RegisterStar("researcher", researchStar)
//	runner.RegisterDirective(directive)
//	runner.AddConstellation(c)
//	run, err := runner.Run(ctx, c.ID, vars, "Analyze Tesla")
type Runner struct {
	mu             sync.RWMutex
	constellations map[string]*Constellation
	stars          map[string]Star
	directives     map[string]*Directive

	store  store.Store[*Run]
	binder *Binder
	stream emit.Stream

	logger  zerolog.Logger
	metrics *PrometheusMetrics

	checkpointInterval int
	toolResultLimit    int
}

// NewRunner creates a Runner persisting runs to the given store.
func NewRunner(st store.Store[*Run], opts ...Option) (*Runner, error) {
	if st == nil {
		return nil, &ConfigError{Message: "runner requires a run store"}
	}
	r := &Runner{
		constellations:     make(map[string]*Constellation),
		stars:              make(map[string]Star),
		directives:         make(map[string]*Directive),
		store:              st,
		binder:             NewBinder(nil),
		logger:             zerolog.Nop(),
		checkpointInterval: 3,
		toolResultLimit:    DefaultToolResultLimit,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddConstellation validates and registers a constellation. Unset execution
// limits are filled with defaults first. Re-registering an ID replaces the
// previous graph.
func (r *Runner) AddConstellation(c *Constellation) error {
	if c == nil {
		return &ConfigError{Message: "constellation cannot be nil"}
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constellations[c.ID] = c
	return nil
}

// RegisterStar registers a star implementation under the given ID.
func (r *Runner) RegisterStar(id string, s Star) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stars[id] = s
}

// RegisterDirective registers a directive by its ID.
func (r *Runner) RegisterDirective(d *Directive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.directives[d.ID] = d
}

// GetRun loads a run record from the store.
func (r *Runner) GetRun(ctx context.Context, runID string) (*Run, error) {
	run, err := r.store.GetRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RunNotFoundError{RunID: runID}
	}
	return run, err
}

// Run executes a constellation serially: nodes run one at a time in
// topological order.
//
// The returned Run reflects the terminal (or paused) state; on failure it is
// returned alongside the error so callers can inspect node outputs. A run
// that pauses for confirmation returns with status awaiting_confirmation and
// a nil error.
func (r *Runner) Run(ctx context.Context, constellationID string, variables map[string]any, originalQuery string, opts ...RunOption) (*Run, error) {
	return r.execute(ctx, constellationID, variables, originalQuery, false, opts)
}

// RunParallel executes a constellation with parallel fan-out: sibling nodes
// whose upstreams are all satisfied run concurrently, and each wave
// completes before the next begins.
func (r *Runner) RunParallel(ctx context.Context, constellationID string, variables map[string]any, originalQuery string, opts ...RunOption) (*Run, error) {
	return r.execute(ctx, constellationID, variables, originalQuery, true, opts)
}

// execState carries the per-invocation traversal state shared between the
// serial and parallel paths. Its mutex serializes run-record mutations and
// store writes when parallel branches finish concurrently.
type execState struct {
	c   *Constellation
	run *Run
	cc  *Context

	orderIDs  []string
	starIndex map[string]int // node ID -> 1-based index over star nodes
	parallel  bool

	mu            sync.Mutex
	checkpoints   int
	firstErr      error
	firstFailedIn string
}

func (st *execState) recordErr(nodeID string, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.firstErr == nil {
		st.firstErr = err
		st.firstFailedIn = nodeID
	}
}

func (st *execState) indexOf(nodeID string) int {
	for i, id := range st.orderIDs {
		if id == nodeID {
			return i
		}
	}
	return -1
}

func (r *Runner) execute(ctx context.Context, constellationID string, variables map[string]any, originalQuery string, parallel bool, opts []RunOption) (*Run, error) {
	c := r.constellation(constellationID)
	if c == nil {
		return nil, &ConfigError{Message: "unknown constellation: " + constellationID, Code: "UNKNOWN_CONSTELLATION"}
	}

	cfg := runConfig{stream: r.stream}
	for _, opt := range opts {
		opt(&cfg)
	}
	runID := cfg.runID
	if runID == "" {
		var err error
		if runID, err = NewRunID(); err != nil {
			return nil, err
		}
	}

	run := NewRun(runID, c, variables, originalQuery)
	// The context gets its own copy of the variables: bindings merged in
	// during traversal must not leak into the persisted record.
	cc := NewContext(runID, c, copyVariables(run.Variables), originalQuery, cfg.stream)

	if err := r.store.UpsertRun(ctx, runID, run); err != nil {
		return nil, fmt.Errorf("persist new run: %w", err)
	}

	st, err := r.newExecState(c, run, cc, parallel)
	if err != nil {
		return nil, err
	}

	starNodes := c.StarNodes()
	names := make([]string, len(starNodes))
	for i, n := range starNodes {
		names[i] = n.Name()
	}
	cc.Stream.Emit(emit.NewRunStarted(runID, c.ID, c.Name, len(starNodes), names))
	r.logger.Info().
		Str("run_id", runID).
		Str("constellation_id", c.ID).
		Int("nodes", len(starNodes)).
		Bool("parallel", parallel).
		Msg("run started")

	return r.finalize(ctx, st, r.traverse(ctx, st, 0))
}

func (r *Runner) newExecState(c *Constellation, run *Run, cc *Context, parallel bool) (*execState, error) {
	orderIDs, err := c.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	starIndex := make(map[string]int, len(c.Nodes))
	idx := 0
	for _, id := range orderIDs {
		if n := c.node(id); n != nil && n.Kind == KindStar {
			idx++
			starIndex[id] = idx
		}
	}
	return &execState{
		c:         c,
		run:       run,
		cc:        cc,
		orderIDs:  orderIDs,
		starIndex: starIndex,
		parallel:  parallel,
	}, nil
}

// traverse walks the topological order from startIdx. Node failures do not
// stop the walk: downstream nodes fail through the upstream check, and the
// first failure becomes the run error. Only the pause sentinel and
// cancellation unwind early.
func (r *Runner) traverse(ctx context.Context, st *execState, startIdx int) error {
	if st.parallel {
		return r.traverseParallel(ctx, st, startIdx)
	}

	i := startIdx
	for i < len(st.orderIDs) {
		node := st.c.node(st.orderIDs[i])
		if node == nil || node.Kind != KindStar {
			i++
			continue
		}
		if r.cancelled(ctx, st.run.ID) {
			return errRunCancelled
		}

		out, err := r.runNodeWithRetry(ctx, st, node)
		if err != nil {
			st.recordErr(node.ID, err)
			i++
			continue
		}

		if jump, ok := r.applyLoopControl(st, node, out); ok {
			i = jump
			continue
		}
		if node.RequiresConfirmation {
			return r.pause(ctx, st, node)
		}
		i++
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.firstErr
}

// runNodeWithRetry executes one node under the retry envelope. Each attempt
// is a full node lifecycle: its own running record and NodeStarted/terminal
// event pair. Binding and configuration failures never retry; attempts are
// numbered 0..MaxRetryAttempts inclusive, with exponential backoff between
// them.
func (r *Runner) runNodeWithRetry(ctx context.Context, st *execState, node *Node) (StarOutput, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		out, err := r.executeNode(ctx, st, node)
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt >= st.c.MaxRetryAttempts {
			break
		}
		delay := st.c.RetryDelayBase * (1 << attempt)
		r.metrics.observeRetry(st.c.ID, node.ID)
		r.logger.Warn().
			Str("run_id", st.run.ID).
			Str("node_id", node.ID).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("node attempt failed, retrying")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// retryable reports whether a node failure enters the retry envelope.
// Binding errors, configuration errors, and execution errors (missing star,
// failed upstream) fail immediately; anything a Star itself returned is
// considered transient.
func retryable(err error) bool {
	var bindErr *BindingError
	var cfgErr *ConfigError
	var execErr *ExecutionError
	return !errors.As(err, &bindErr) && !errors.As(err, &cfgErr) && !errors.As(err, &execErr)
}

// executeNode performs a single attempt of one star node: upstream check,
// binding, star invocation, normalization, event emission, and checkpoint.
func (r *Runner) executeNode(ctx context.Context, st *execState, node *Node) (StarOutput, error) {
	st.cc.setCurrent(node.ID, node.Name())
	defer st.cc.clearCurrent()

	st.mu.Lock()
	rec := st.run.beginNode(node.ID, node.StarID)
	st.mu.Unlock()

	starType, _ := r.starTypeOf(node.StarID)
	st.cc.Stream.Emit(emit.NewNodeStarted(
		st.run.ID, node.ID, node.Name(), node.StarID, string(starType),
		st.starIndex[node.ID], len(st.c.Nodes)))
	r.metrics.nodeStarted()
	started := time.Now()

	out, toolCalls, normalized, err := r.attemptNode(ctx, st, node)
	durMS := time.Since(started).Milliseconds()

	if err != nil {
		st.mu.Lock()
		rec.fail(err)
		st.mu.Unlock()
		st.cc.Stream.Emit(emit.NewNodeFailed(st.run.ID, node.ID, node.Name(), err.Error(), durMS))
		r.metrics.nodeFinished(st.c.ID, string(starType), string(NodeStatusFailed), durMS)
		r.logger.Error().
			Str("run_id", st.run.ID).
			Str("node_id", node.ID).
			Err(err).
			Msg("node failed")
		r.checkpoint(ctx, st, true)
		return nil, err
	}

	st.mu.Lock()
	rec.complete(normalized, toolCalls)
	st.mu.Unlock()
	st.cc.SetNodeOutput(node.ID, out)
	st.cc.Stream.Emit(emit.NewNodeCompleted(st.run.ID, node.ID, node.Name(), OutputPreview(normalized), durMS))
	r.metrics.nodeFinished(st.c.ID, string(starType), string(NodeStatusCompleted), durMS)
	r.checkpoint(ctx, st, false)
	return out, nil
}

func (r *Runner) attemptNode(ctx context.Context, st *execState, node *Node) (StarOutput, []ToolCallRecord, string, error) {
	if err := r.checkUpstream(st, node); err != nil {
		return nil, nil, "", err
	}
	out, err := r.invokeStar(ctx, st.cc, node)
	if err != nil {
		return nil, nil, "", err
	}
	normalized, toolCalls := NormalizeOutput(out, r.toolResultLimit)
	return out, toolCalls, normalized, nil
}

// checkUpstream fails a node whose upstream already failed, citing the
// upstream id. This is how failures propagate without halting traversal.
func (r *Runner) checkUpstream(st *execState, node *Node) error {
	for _, upID := range st.c.UpstreamNodes(node.ID) {
		if up := st.c.node(upID); up != nil && up.Kind != KindStar {
			continue
		}
		st.mu.Lock()
		rec := st.run.NodeOutputs[upID]
		st.mu.Unlock()
		if rec != nil && rec.Status == NodeStatusFailed {
			return &ExecutionError{
				NodeID:  node.ID,
				Message: fmt.Sprintf("Upstream node '%s' failed: %s", upID, rec.Error),
			}
		}
	}
	return nil
}

// applyLoopControl inspects an eval star's decision. A "loop" decision
// within the iteration bound clears the loop target's downstream closure and
// returns the target's traversal index; over the bound, the decision is
// rewritten to a forced continue in place.
func (r *Runner) applyLoopControl(st *execState, node *Node, out StarOutput) (int, bool) {
	dec, ok := out.(*EvalDecision)
	if !ok {
		return 0, false
	}
	if t, known := r.starTypeOf(node.StarID); !known || t != StarTypeEval {
		return 0, false
	}
	if dec.Decision != DecisionLoop {
		return 0, false
	}

	count, allowed := st.cc.IncrementLoopCount(st.c.MaxLoopIterations)
	if !allowed {
		dec.Decision = DecisionContinue
		dec.Reasoning += fmt.Sprintf(" (forced continue: max %d loops reached)", st.c.MaxLoopIterations)
		normalized, _ := NormalizeOutput(dec, r.toolResultLimit)
		st.mu.Lock()
		if rec := st.run.NodeOutputs[node.ID]; rec != nil {
			rec.Output = normalized
		}
		st.mu.Unlock()
		r.logger.Info().
			Str("run_id", st.run.ID).
			Str("node_id", node.ID).
			Int("loop_count", count).
			Msg("loop bound reached, forcing continue")
		return 0, false
	}

	target := st.c.LoopTarget(node.ID, r.starTypeOf)
	if target == "" {
		r.logger.Warn().
			Str("run_id", st.run.ID).
			Str("node_id", node.ID).
			Msg("loop decision has no resolvable target, proceeding")
		return 0, false
	}
	idx := st.indexOf(target)
	if idx < 0 {
		r.logger.Warn().
			Str("run_id", st.run.ID).
			Str("target", target).
			Msg("loop target not in traversal order, proceeding")
		return 0, false
	}

	for _, id := range st.c.DownstreamClosure(target) {
		st.cc.DeleteNodeOutput(id)
	}
	r.metrics.observeLoop(st.c.ID)
	r.logger.Info().
		Str("run_id", st.run.ID).
		Str("node_id", node.ID).
		Str("target", target).
		Int("loop_count", count).
		Msg("looping back")
	return idx, true
}

// pause transitions the run to awaiting_confirmation and raises the internal
// sentinel that unwinds the traversal.
func (r *Runner) pause(ctx context.Context, st *execState, node *Node) error {
	prompt := node.ConfirmationPrompt
	if prompt == "" {
		prompt = defaultConfirmationPrompt
	}

	st.mu.Lock()
	st.run.Status = RunStatusAwaitingConfirmation
	st.run.AwaitingNodeID = node.ID
	st.run.AwaitingPrompt = prompt
	st.mu.Unlock()

	st.cc.Stream.Emit(emit.NewRunPaused(st.run.ID, node.ID, node.Name(), prompt))
	r.persist(ctx, st)
	r.logger.Info().
		Str("run_id", st.run.ID).
		Str("node_id", node.ID).
		Msg("run paused awaiting confirmation")
	return &ExecutionPaused{RunID: st.run.ID, NodeID: node.ID}
}

// checkpoint persists the run every checkpointInterval-th node completion,
// and always on failure.
func (r *Runner) checkpoint(ctx context.Context, st *execState, force bool) {
	st.mu.Lock()
	st.checkpoints++
	due := force || st.checkpoints%r.checkpointInterval == 0
	if due {
		if err := r.store.UpsertRun(ctx, st.run.ID, st.run); err != nil {
			r.logger.Error().Str("run_id", st.run.ID).Err(err).Msg("checkpoint persist failed")
		}
	}
	st.mu.Unlock()
	if due {
		r.metrics.observeCheckpoint()
	}
}

// persist writes the run unconditionally, serialized with checkpoints.
func (r *Runner) persist(ctx context.Context, st *execState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := r.store.UpsertRun(ctx, st.run.ID, st.run); err != nil {
		r.logger.Error().Str("run_id", st.run.ID).Err(err).Msg("run persist failed")
	}
}

// finalize translates the traversal outcome into the run's terminal state.
// The pause sentinel leaves the run awaiting confirmation; cancellation
// returns the stored record untouched.
func (r *Runner) finalize(ctx context.Context, st *execState, err error) (*Run, error) {
	var paused *ExecutionPaused
	if errors.As(err, &paused) {
		return st.run, nil
	}
	if errors.Is(err, errRunCancelled) {
		if stored, loadErr := r.store.GetRun(ctx, st.run.ID); loadErr == nil {
			return stored, nil
		}
		return st.run, nil
	}

	durMS := time.Since(st.run.StartedAt).Milliseconds()
	if err != nil {
		st.run.Error = err.Error()
		st.run.finish(RunStatusFailed)
		st.cc.Stream.Emit(emit.NewRunFailed(st.run.ID, err.Error(), st.firstFailedIn))
		r.persist(ctx, st)
		r.metrics.observeRunFinished(st.c.ID, RunStatusFailed)
		r.logger.Error().
			Str("run_id", st.run.ID).
			Err(err).
			Msg("run failed")
		return st.run, err
	}

	st.run.FinalOutput = r.finalOutput(st)
	st.run.finish(RunStatusCompleted)
	st.cc.Stream.Emit(emit.NewRunCompleted(st.run.ID, st.run.FinalOutput, durMS))
	r.persist(ctx, st)
	r.metrics.observeRunFinished(st.c.ID, RunStatusCompleted)
	r.logger.Info().
		Str("run_id", st.run.ID).
		Int64("duration_ms", durMS).
		Msg("run completed")
	return st.run, nil
}

// finalOutput is the normalized output of the most recently completed star
// node, or empty when none completed.
func (r *Runner) finalOutput(st *execState) string {
	ids := st.cc.NodeOutputIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		st.mu.Lock()
		rec := st.run.NodeOutputs[ids[i]]
		st.mu.Unlock()
		if rec != nil && rec.Status == NodeStatusCompleted {
			return rec.Output
		}
	}
	return ""
}

// cancelled re-reads the stored run at a node boundary to observe an
// out-of-band Cancel. Store errors are treated as not-cancelled; the next
// boundary retries.
func (r *Runner) cancelled(ctx context.Context, runID string) bool {
	stored, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return false
	}
	return stored.Status == RunStatusCancelled
}

func (r *Runner) constellation(id string) *Constellation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.constellations[id]
}

func (r *Runner) star(id string) (Star, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stars[id]
	return s, ok
}

func (r *Runner) directive(id string) (*Directive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.directives[id]
	return d, ok
}

// starTypeOf resolves a registered star's type; used for loop-target
// fallback and event enrichment.
func (r *Runner) starTypeOf(starID string) (StarType, bool) {
	s, ok := r.star(starID)
	if !ok {
		return "", false
	}
	return s.Type(), true
}

func copyVariables(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
