package constellation

import (
	"context"
	"errors"
	"fmt"

	"github.com/astrolabs/astro/constellation/emit"
	"github.com/astrolabs/astro/constellation/store"
)

// expertResponseHeader separates a paused node's output from the reviewer's
// additional context appended on resume.
const expertResponseHeader = "--- Expert Response ---"

// Resume continues a run paused for confirmation.
//
// The optional additionalContext is recorded on the run and appended to the
// paused node's output under an "Expert Response" header, so downstream
// bindings see the reviewer's input as part of that node's result. Traversal
// restarts at the topological successor of the paused node; completed nodes
// are never re-executed. A second confirmation pause downstream is allowed
// and pauses again.
func (r *Runner) Resume(ctx context.Context, runID, additionalContext string, opts ...RunOption) (*Run, error) {
	run, err := r.store.GetRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RunNotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status != RunStatusAwaitingConfirmation {
		return nil, &PreconditionError{
			RunID:   runID,
			Status:  run.Status,
			Message: "run is not awaiting confirmation",
		}
	}

	c := r.constellation(run.ConstellationID)
	if c == nil {
		return nil, &ConfigError{Message: "unknown constellation: " + run.ConstellationID, Code: "UNKNOWN_CONSTELLATION"}
	}

	pausedNodeID := run.AwaitingNodeID
	run.AwaitingNodeID = ""
	run.AwaitingPrompt = ""
	run.Status = RunStatusRunning

	if additionalContext != "" {
		run.AdditionalContext = additionalContext
		if rec := run.NodeOutputs[pausedNodeID]; rec != nil {
			if rec.Output != "" {
				rec.Output += "\n\n" + expertResponseHeader + "\n" + additionalContext
			} else {
				rec.Output = expertResponseHeader + "\n" + additionalContext
			}
		}
	}

	if err := r.store.UpsertRun(ctx, runID, run); err != nil {
		return nil, fmt.Errorf("persist resumed run: %w", err)
	}

	cfg := runConfig{stream: r.stream}
	for _, opt := range opts {
		opt(&cfg)
	}

	cc := NewContext(runID, c, copyVariables(run.Variables), run.OriginalQuery(), cfg.stream)
	st, err := r.newExecState(c, run, cc, false)
	if err != nil {
		return nil, err
	}

	// Prior outputs come back as opaque strings: binding extraction works on
	// the normalized text, so full StarOutput fidelity is not needed.
	// Insertion order follows traversal order, keeping "most recently
	// completed" deterministic across process restarts.
	for _, id := range st.orderIDs {
		if rec := run.NodeOutputs[id]; rec != nil && rec.Status == NodeStatusCompleted {
			cc.SetNodeOutput(id, RawOutput{Value: rec.Output})
		}
	}

	cc.Stream.Emit(emit.NewRunResumed(runID, pausedNodeID, additionalContext))
	r.logger.Info().
		Str("run_id", runID).
		Str("resumed_from", pausedNodeID).
		Msg("run resumed")

	startIdx := st.indexOf(pausedNodeID) + 1
	if startIdx == 0 {
		return nil, &ExecutionError{NodeID: pausedNodeID, Message: "paused node not found in constellation"}
	}
	return r.finalize(ctx, st, r.traverse(ctx, st, startIdx))
}

// Cancel terminally marks a run as cancelled. Cancelling a run that already
// reached a terminal status is a no-op returning the stored record. A run
// currently executing observes the new status at its next node boundary.
func (r *Runner) Cancel(ctx context.Context, runID string) (*Run, error) {
	run, err := r.store.GetRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RunNotFoundError{RunID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Status.Terminal() {
		return run, nil
	}

	run.AwaitingNodeID = ""
	run.AwaitingPrompt = ""
	run.finish(RunStatusCancelled)
	if err := r.store.UpsertRun(ctx, runID, run); err != nil {
		return nil, fmt.Errorf("persist cancelled run: %w", err)
	}
	r.metrics.observeRunFinished(run.ConstellationID, RunStatusCancelled)
	r.logger.Info().Str("run_id", runID).Msg("run cancelled")
	return run, nil
}
