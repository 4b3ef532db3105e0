package constellation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultToolResultLimit is the character limit applied to stored tool-call
// results. The main node output is never truncated; only tool-call results
// and event previews are.
const DefaultToolResultLimit = 500

// previewLimit bounds the output_preview field on NodeCompleted events.
const previewLimit = 300

// NormalizeOutput flattens a structured StarOutput into the single string
// stored on the Run's NodeOutput, plus the tool-call records to persist
// alongside it. The first matching shape wins:
//
//	SynthesisOutput  -> formatted result
//	WorkerOutput     -> result, with tool-call results truncated
//	ExecutionResult  -> worker outputs joined by blank lines
//	DocExResult      -> documents joined by blank lines
//	EvalDecision     -> "Decision: <decision>. <reasoning>"
//	Plan             -> "Plan with N tasks: <d1>; <d2>; <d3>" (first three)
//	anything else    -> string coercion
func NormalizeOutput(out StarOutput, toolResultLimit int) (string, []ToolCallRecord) {
	switch v := out.(type) {
	case SynthesisOutput:
		return v.FormattedResult, nil
	case WorkerOutput:
		return v.Result, truncateToolCalls(v.ToolCalls, toolResultLimit)
	case ExecutionResult:
		return strings.Join(v.WorkerOutputs, "\n\n"), nil
	case DocExResult:
		return strings.Join(v.Documents, "\n\n"), nil
	case *EvalDecision:
		return formatEvalDecision(v), nil
	case Plan:
		return formatPlan(v), nil
	case RawOutput:
		return coerceString(v.Value), nil
	default:
		return coerceString(out), nil
	}
}

// ExtractValue pulls the bindable value out of a StarOutput. It mirrors
// NormalizeOutput but keeps non-string raw values intact so a Star can pass
// structured data downstream through variable binding.
func ExtractValue(out StarOutput) any {
	switch v := out.(type) {
	case WorkerOutput:
		return v.Result
	case SynthesisOutput:
		return v.FormattedResult
	case ExecutionResult:
		return strings.Join(v.WorkerOutputs, "\n\n")
	case DocExResult:
		return strings.Join(v.Documents, "\n\n")
	case *EvalDecision:
		return formatEvalDecision(v)
	case Plan:
		return formatPlan(v)
	case RawOutput:
		return v.Value
	default:
		return out
	}
}

// OutputPreview returns the leading portion of a normalized output for the
// NodeCompleted event.
func OutputPreview(normalized string) string {
	return truncateAtRune(normalized, previewLimit)
}

// truncateAtRune cuts s at limit bytes, backing up so the cut never lands
// inside a multi-byte rune.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func formatEvalDecision(d *EvalDecision) string {
	return fmt.Sprintf("Decision: %s. %s", d.Decision, d.Reasoning)
}

func formatPlan(p Plan) string {
	descs := make([]string, 0, 3)
	for i, task := range p.Tasks {
		if i == 3 {
			break
		}
		descs = append(descs, task.Description)
	}
	return fmt.Sprintf("Plan with %d tasks: %s", len(p.Tasks), strings.Join(descs, "; "))
}

func truncateToolCalls(calls []ToolCallRecord, limit int) []ToolCallRecord {
	if len(calls) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultToolResultLimit
	}
	out := make([]ToolCallRecord, len(calls))
	for i, tc := range calls {
		if len(tc.Result) > limit {
			tc.Result = truncateAtRune(tc.Result, limit) + "… [truncated]"
		}
		out[i] = tc
	}
	return out
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
