package constellation

import (
	"sync"

	"github.com/astrolabs/astro/constellation/emit"
)

// Context is the in-memory working set of a single Run or Resume invocation.
//
// It carries the inputs a Star needs (variables, prior outputs, the stream)
// and the mutable traversal state the Runner maintains (current node, loop
// counter). A Context never outlives the invocation that created it; the
// durable counterpart is the Run record.
//
// Node outputs are insertion-ordered: binding fallback and final-output
// extraction both depend on "most recently completed" semantics, so the
// map is paired with an order slice.
type Context struct {
	// RunID and ConstellationID identify the execution.
	RunID           string
	ConstellationID string

	// OriginalQuery is the user query that started the run.
	OriginalQuery string

	// Purpose is the constellation's description, visible to Stars.
	Purpose string

	// Stream receives progress events. Never nil.
	Stream emit.Stream

	// CurrentNodeID and CurrentNodeName are set for the duration of one
	// node's execution and cleared afterwards. During parallel fan-out they
	// reflect one of the in-flight siblings; use the values the Runner
	// passes explicitly where exactness matters.
	CurrentNodeID   string
	CurrentNodeName string

	mu        sync.Mutex
	vars      map[string]any
	outputs   map[string]StarOutput
	order     []string
	loopCount int
}

// NewContext creates a Context for one run. A nil stream is replaced with
// the no-op stream so emitters never branch on nullability.
func NewContext(runID string, c *Constellation, variables map[string]any, originalQuery string, stream emit.Stream) *Context {
	if stream == nil {
		stream = emit.NullStream{}
	}
	if variables == nil {
		variables = make(map[string]any)
	}
	return &Context{
		RunID:           runID,
		ConstellationID: c.ID,
		OriginalQuery:   originalQuery,
		Purpose:         c.Description,
		Stream:          stream,
		vars:            variables,
		outputs:         make(map[string]StarOutput),
	}
}

// Variable returns the named variable, resolved bindings included.
func (cc *Context) Variable(name string) (any, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	v, ok := cc.vars[name]
	return v, ok
}

// StringVariable returns the named variable coerced to a string. Missing
// variables yield the empty string.
func (cc *Context) StringVariable(name string) string {
	v, ok := cc.Variable(name)
	if !ok {
		return ""
	}
	return coerceString(v)
}

// SetVariable writes a variable. Stars may use it to pass values downstream
// outside the node-output mechanism.
func (cc *Context) SetVariable(name string, value any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.vars[name] = value
}

// Variables returns a snapshot copy of the current variable set.
func (cc *Context) Variables() map[string]any {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	snapshot := make(map[string]any, len(cc.vars))
	for k, v := range cc.vars {
		snapshot[k] = v
	}
	return snapshot
}

// mergeVariables folds resolved bindings into the variable set.
func (cc *Context) mergeVariables(bindings map[string]any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for k, v := range bindings {
		cc.vars[k] = v
	}
}

// NodeOutput returns the raw output of a prior node, if recorded.
func (cc *Context) NodeOutput(nodeID string) (StarOutput, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	out, ok := cc.outputs[nodeID]
	return out, ok
}

// SetNodeOutput records a node's raw output, preserving insertion order.
// Re-recording an existing node (a loop re-visit) moves it to the tail.
func (cc *Context) SetNodeOutput(nodeID string, out StarOutput) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, exists := cc.outputs[nodeID]; exists {
		cc.removeFromOrder(nodeID)
	}
	cc.outputs[nodeID] = out
	cc.order = append(cc.order, nodeID)
}

// DeleteNodeOutput removes a node's output, used when a loop decision clears
// the downstream closure of its target.
func (cc *Context) DeleteNodeOutput(nodeID string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, exists := cc.outputs[nodeID]; !exists {
		return
	}
	delete(cc.outputs, nodeID)
	cc.removeFromOrder(nodeID)
}

// NodeOutputIDs returns the recorded node IDs in insertion order.
func (cc *Context) NodeOutputIDs() []string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	ids := make([]string, len(cc.order))
	copy(ids, cc.order)
	return ids
}

// HasNodeOutput reports whether the node has a recorded output.
func (cc *Context) HasNodeOutput(nodeID string) bool {
	_, ok := cc.NodeOutput(nodeID)
	return ok
}

func (cc *Context) removeFromOrder(nodeID string) {
	for i, id := range cc.order {
		if id == nodeID {
			cc.order = append(cc.order[:i], cc.order[i+1:]...)
			return
		}
	}
}

// LoopCount returns the number of loop re-entries taken so far.
func (cc *Context) LoopCount() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.loopCount
}

// IncrementLoopCount atomically increments the loop counter and reports
// whether the incremented count stays under max. Compare-and-increment is a
// single critical section so parallel branches that decide to loop at the
// same time cannot both pass the bound.
func (cc *Context) IncrementLoopCount(max int) (count int, allowed bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.loopCount++
	return cc.loopCount, cc.loopCount < max
}

// setCurrent marks the node currently executing; clear with clearCurrent.
func (cc *Context) setCurrent(nodeID, nodeName string) {
	cc.CurrentNodeID = nodeID
	cc.CurrentNodeName = nodeName
}

func (cc *Context) clearCurrent() {
	cc.CurrentNodeID = ""
	cc.CurrentNodeName = ""
}
