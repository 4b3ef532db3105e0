package star

import (
	"context"
	"testing"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name          string
		text          string
		wantDecision  string
		wantReasoning string
	}{
		{
			name:          "explicit loop decision",
			text:          "DECISION: loop\nThe draft is missing the revenue section.",
			wantDecision:  constellation.DecisionLoop,
			wantReasoning: "The draft is missing the revenue section.",
		},
		{
			name:          "explicit continue decision",
			text:          "Decision: continue\nLooks complete.",
			wantDecision:  constellation.DecisionContinue,
			wantReasoning: "Looks complete.",
		},
		{
			name:         "bare loop response",
			text:         "loop",
			wantDecision: constellation.DecisionLoop,
		},
		{
			name:          "loop as first word",
			text:          "loop because data is stale",
			wantDecision:  constellation.DecisionLoop,
			wantReasoning: "loop because data is stale",
		},
		{
			name:          "malformed verdict defaults to continue",
			text:          "I think we might need another pass, not sure.",
			wantDecision:  constellation.DecisionContinue,
			wantReasoning: "I think we might need another pass, not sure.",
		},
		{
			name:         "unknown decision value continues",
			text:         "DECISION: retry",
			wantDecision: constellation.DecisionContinue,
		},
		{
			name:         "empty response continues",
			text:         "",
			wantDecision: constellation.DecisionContinue,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := parseDecision(tc.text)
			if d.Decision != tc.wantDecision {
				t.Errorf("expected decision %q, got %q", tc.wantDecision, d.Decision)
			}
			if d.Reasoning != tc.wantReasoning {
				t.Errorf("expected reasoning %q, got %q", tc.wantReasoning, d.Reasoning)
			}
		})
	}
}

func TestEval_Execute(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "DECISION: loop\nneeds work"}}}
	e := NewEval(chat, &constellation.Directive{ID: "judge", Content: "is it done?"})

	if e.Type() != constellation.StarTypeEval {
		t.Errorf("expected eval type, got %s", e.Type())
	}
	out, err := e.Execute(context.Background(), starContext(t, nil))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	decision, ok := out.(*constellation.EvalDecision)
	if !ok {
		t.Fatalf("expected *EvalDecision, got %T", out)
	}
	if decision.Decision != constellation.DecisionLoop || decision.Reasoning != "needs work" {
		t.Errorf("unexpected decision: %+v", decision)
	}
}
