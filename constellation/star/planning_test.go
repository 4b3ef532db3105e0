package star

import (
	"context"
	"testing"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

func TestParsePlan(t *testing.T) {
	t.Run("dash list", func(t *testing.T) {
		p := parsePlan("- research the market\n- draft the report\n- review")
		if len(p.Tasks) != 3 {
			t.Fatalf("expected 3 tasks, got %d", len(p.Tasks))
		}
		if p.Tasks[0].ID != "task_1" || p.Tasks[0].Description != "research the market" {
			t.Errorf("unexpected first task: %+v", p.Tasks[0])
		}
		if p.Tasks[2].ID != "task_3" {
			t.Errorf("expected sequential IDs, got %s", p.Tasks[2].ID)
		}
	})

	t.Run("numbered list with surrounding prose", func(t *testing.T) {
		p := parsePlan("Here is the plan:\n1. collect data\n2) analyze it\n\nThat should do it.")
		if len(p.Tasks) != 2 {
			t.Fatalf("expected 2 tasks, got %d: %v", len(p.Tasks), p.Tasks)
		}
		if p.Tasks[0].Description != "collect data" || p.Tasks[1].Description != "analyze it" {
			t.Errorf("unexpected tasks: %v", p.Tasks)
		}
	})

	t.Run("star bullets", func(t *testing.T) {
		p := parsePlan("* one\n* two")
		if len(p.Tasks) != 2 {
			t.Errorf("expected 2 tasks, got %d", len(p.Tasks))
		}
	})

	t.Run("no list becomes single task", func(t *testing.T) {
		p := parsePlan("just do everything at once")
		if len(p.Tasks) != 1 || p.Tasks[0].Description != "just do everything at once" {
			t.Errorf("expected single-task fallback, got %v", p.Tasks)
		}
	})

	t.Run("empty response yields empty plan", func(t *testing.T) {
		if p := parsePlan("   \n  "); len(p.Tasks) != 0 {
			t.Errorf("expected no tasks, got %v", p.Tasks)
		}
	})
}

func TestPlanning_Execute(t *testing.T) {
	chat := &model.MockChatModel{Responses: []model.ChatOut{{Text: "- step one\n- step two"}}}
	p := NewPlanning(chat, &constellation.Directive{ID: "plan", Content: "break it down"})

	if p.Type() != constellation.StarTypePlanning {
		t.Errorf("expected planning type, got %s", p.Type())
	}
	out, err := p.Execute(context.Background(), starContext(t, nil))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	plan, ok := out.(constellation.Plan)
	if !ok {
		t.Fatalf("expected Plan, got %T", out)
	}
	if len(plan.Tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(plan.Tasks))
	}
}
