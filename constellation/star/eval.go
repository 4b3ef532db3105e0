package star

import (
	"context"
	"strings"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

// Eval asks the model whether the work so far is sufficient and parses the
// verdict into an EvalDecision.
//
// The parser looks for a "DECISION: loop" or "DECISION: continue" line
// (case-insensitive); absent that, a response whose first word is "loop"
// decides to loop. Everything else continues, so a malformed verdict can
// never trap a run in a cycle. The remaining text becomes the reasoning.
type Eval struct {
	chat      model.ChatModel
	directive *constellation.Directive
}

// NewEval creates an eval star.
func NewEval(chat model.ChatModel, d *constellation.Directive) *Eval {
	return &Eval{chat: chat, directive: d}
}

// Type implements constellation.Star.
func (e *Eval) Type() constellation.StarType { return constellation.StarTypeEval }

// DirectiveID implements constellation.Star.
func (e *Eval) DirectiveID() string { return directiveID(e.directive) }

// Execute implements constellation.Star.
func (e *Eval) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	out, err := e.chat.Chat(ctx, conversation(e.directive, cc), nil)
	if err != nil {
		return nil, err
	}
	return parseDecision(out.Text), nil
}

func parseDecision(text string) *constellation.EvalDecision {
	decision := constellation.DecisionContinue
	var reasoning []string

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if rest, ok := strings.CutPrefix(lower, "decision:"); ok {
			if strings.TrimSpace(rest) == constellation.DecisionLoop {
				decision = constellation.DecisionLoop
			}
			continue
		}
		if trimmed != "" {
			reasoning = append(reasoning, trimmed)
		}
	}

	if decision == constellation.DecisionContinue {
		first := strings.ToLower(strings.TrimSpace(text))
		if first == constellation.DecisionLoop || strings.HasPrefix(first, "loop ") || strings.HasPrefix(first, "loop\n") {
			decision = constellation.DecisionLoop
		}
	}

	return &constellation.EvalDecision{
		Decision:  decision,
		Reasoning: strings.Join(reasoning, " "),
	}
}
