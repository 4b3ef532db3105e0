package constellation

import "context"

// StarType classifies a Star's role in a constellation. The set is open:
// the Runner only gives special treatment to eval stars (loop decisions)
// and planning stars (default loop targets).
type StarType string

const (
	StarTypeWorker    StarType = "worker"
	StarTypePlanning  StarType = "planning"
	StarTypeEval      StarType = "eval"
	StarTypeSynthesis StarType = "synthesis"
	StarTypeDocEx     StarType = "docex"
)

// Star is a pluggable unit of work executed by a Star node.
//
// Implementations typically invoke an LLM or a probe. The Runner prepares a
// Context with all resolved variable bindings before calling Execute, and
// normalizes the returned StarOutput into the node's recorded output.
//
// Contract: Execute may read Context.Variables and prior node outputs via
// Context.NodeOutput, and may write Context.Variables, but must not mutate
// the node output map. Blocking work must honor ctx cancellation.
type Star interface {
	// Type reports the star's role classification.
	Type() StarType

	// DirectiveID names the directive this star executes. An empty ID or an
	// unregistered directive means the star runs with no declared variables.
	DirectiveID() string

	// Execute performs the star's work against the prepared context.
	Execute(ctx context.Context, cc *Context) (StarOutput, error)
}

// StarFunc adapts a plain function into a Star. Useful in tests and for
// small inline stars that need no directive.
type StarFunc struct {
	StarType  StarType
	Directive string
	Fn        func(ctx context.Context, cc *Context) (StarOutput, error)
}

// Type implements Star.
func (f StarFunc) Type() StarType {
	if f.StarType == "" {
		return StarTypeWorker
	}
	return f.StarType
}

// DirectiveID implements Star.
func (f StarFunc) DirectiveID() string { return f.Directive }

// Execute implements Star.
func (f StarFunc) Execute(ctx context.Context, cc *Context) (StarOutput, error) {
	return f.Fn(ctx, cc)
}

// StarOutput is the tagged union of results a Star can produce.
//
// The Runner recognizes the variants below when normalizing outputs and
// extracting binding values. Anything else satisfying the interface, or any
// value wrapped in RawOutput, is tolerated and coerced to text.
type StarOutput interface {
	starOutput()
}

// ToolCallRecord captures one probe invocation made during a worker star's
// execution. Result fields are truncated when recorded on the run (the
// node's main output never is).
type ToolCallRecord struct {
	Name   string         `json:"name"`
	Input  map[string]any `json:"input,omitempty"`
	Result string         `json:"result,omitempty"`
}

// WorkerOutput is the result of a worker star: free text plus any probe
// calls made along the way.
type WorkerOutput struct {
	Result    string           `json:"result"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
}

// SynthesisOutput is the formatted result of a synthesis star.
type SynthesisOutput struct {
	FormattedResult string `json:"formatted_result"`
}

// ExecutionResult aggregates the outputs of several workers.
type ExecutionResult struct {
	WorkerOutputs []string `json:"worker_outputs"`
}

// DocExResult carries the documents extracted by a document-extraction star.
type DocExResult struct {
	Documents []string `json:"documents"`
}

// Eval decision values. Any other decision string is treated as continue.
const (
	DecisionContinue = "continue"
	DecisionLoop     = "loop"
)

// EvalDecision is the verdict of an eval star: continue through the graph
// or loop back to an earlier node.
type EvalDecision struct {
	Decision  string `json:"decision"`
	Reasoning string `json:"reasoning,omitempty"`
}

// PlanTask is one step of a Plan.
type PlanTask struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
}

// Plan is the result of a planning star.
type Plan struct {
	Tasks []PlanTask `json:"tasks"`
}

// RawOutput wraps an arbitrary value as an opaque star output. The Runner
// uses it when restoring node outputs from a persisted run, where only the
// normalized string survives.
type RawOutput struct {
	Value any `json:"value"`
}

func (WorkerOutput) starOutput()    {}
func (SynthesisOutput) starOutput() {}
func (ExecutionResult) starOutput() {}
func (DocExResult) starOutput()     {}
func (*EvalDecision) starOutput()   {}
func (Plan) starOutput()            {}
func (RawOutput) starOutput()       {}
