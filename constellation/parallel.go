package constellation

import (
	"context"
	"sync"
)

// traverseParallel walks the graph in waves: every star node whose upstreams
// are all in earlier waves runs concurrently with its siblings, and a wave
// completes in full before the next is dispatched.
//
// The wave barrier is what guarantees the ordering contract: all sibling
// terminal events precede the next wave's NodeStarted events. Loop decisions
// and confirmation pauses are processed after the wave, in wave order, so a
// pausing node never stops a sibling that already started.
func (r *Runner) traverseParallel(ctx context.Context, st *execState, startIdx int) error {
	idx := startIdx
	for {
		waves := computeWaves(st, idx)
		jumped := false

	waveLoop:
		for _, wave := range waves {
			if r.cancelled(ctx, st.run.ID) {
				return errRunCancelled
			}

			outputs := r.runWave(ctx, st, wave)

			for _, node := range wave {
				out, ok := outputs[node.ID]
				if !ok {
					continue
				}
				if jump, looped := r.applyLoopControl(st, node, out); looped {
					idx = jump
					jumped = true
					break waveLoop
				}
				if node.RequiresConfirmation {
					return r.pause(ctx, st, node)
				}
			}
		}

		if !jumped {
			break
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.firstErr
}

// runWave executes one wave of sibling nodes, each under the retry envelope.
// All branches run to completion; any sibling failures are aggregated into a
// ParallelExecutionError, even when only one branch failed.
func (r *Runner) runWave(ctx context.Context, st *execState, wave []*Node) map[string]StarOutput {
	outputs := make(map[string]StarOutput, len(wave))

	if len(wave) == 1 {
		node := wave[0]
		out, err := r.runNodeWithRetry(ctx, st, node)
		if err != nil {
			st.recordErr(node.ID, err)
			return outputs
		}
		outputs[node.ID] = out
		return outputs
	}

	outs := make([]StarOutput, len(wave))
	errs := make([]error, len(wave))
	var wg sync.WaitGroup
	for i, node := range wave {
		wg.Add(1)
		go func(i int, node *Node) {
			defer wg.Done()
			outs[i], errs[i] = r.runNodeWithRetry(ctx, st, node)
		}(i, node)
	}
	wg.Wait()

	var branchErrs []error
	failedIn := ""
	for i, node := range wave {
		if errs[i] != nil {
			branchErrs = append(branchErrs, errs[i])
			if failedIn == "" {
				failedIn = node.ID
			}
			continue
		}
		outputs[node.ID] = outs[i]
	}
	if len(branchErrs) > 0 {
		st.recordErr(failedIn, &ParallelExecutionError{Errors: branchErrs})
	}
	return outputs
}

// computeWaves groups the star nodes at traversal positions >= startIdx by
// upstream depth. Upstreams before startIdx (already executed on resume or a
// loop re-entry) count as satisfied.
func computeWaves(st *execState, startIdx int) [][]*Node {
	depth := make(map[string]int)
	maxDepth := -1
	var pending []*Node

	for _, id := range st.orderIDs[startIdx:] {
		node := st.c.node(id)
		if node == nil || node.Kind != KindStar {
			continue
		}
		d := 0
		for _, up := range st.c.UpstreamNodes(id) {
			if upDepth, ok := depth[up]; ok && upDepth+1 > d {
				d = upDepth + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
		pending = append(pending, node)
	}

	waves := make([][]*Node, maxDepth+1)
	for _, node := range pending {
		d := depth[node.ID]
		waves[d] = append(waves[d], node)
	}
	return waves
}
