package star

import (
	"context"
	"fmt"
	"strings"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

// Planning asks the model for a task breakdown and parses it into a Plan.
//
// The parser accepts common list shapes: "- task", "* task", and "1. task".
// A response with no list lines becomes a single-task plan.
type Planning struct {
	chat      model.ChatModel
	directive *constellation.Directive
}

// NewPlanning creates a planning star.
func NewPlanning(chat model.ChatModel, d *constellation.Directive) *Planning {
	return &Planning{chat: chat, directive: d}
}

// Type implements constellation.Star.
func (p *Planning) Type() constellation.StarType { return constellation.StarTypePlanning }

// DirectiveID implements constellation.Star.
func (p *Planning) DirectiveID() string { return directiveID(p.directive) }

// Execute implements constellation.Star.
func (p *Planning) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	out, err := p.chat.Chat(ctx, conversation(p.directive, cc), nil)
	if err != nil {
		return nil, err
	}
	return parsePlan(out.Text), nil
}

func parsePlan(text string) constellation.Plan {
	var tasks []constellation.PlanTask
	for _, line := range strings.Split(text, "\n") {
		desc, ok := stripListMarker(strings.TrimSpace(line))
		if !ok || desc == "" {
			continue
		}
		tasks = append(tasks, constellation.PlanTask{
			ID:          fmt.Sprintf("task_%d", len(tasks)+1),
			Description: desc,
		})
	}
	if len(tasks) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			tasks = append(tasks, constellation.PlanTask{ID: "task_1", Description: trimmed})
		}
	}
	return constellation.Plan{Tasks: tasks}
}

func stripListMarker(line string) (string, bool) {
	if rest, ok := strings.CutPrefix(line, "- "); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutPrefix(line, "* "); ok {
		return strings.TrimSpace(rest), true
	}
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if i > 0 && (r == '.' || r == ')') {
			return strings.TrimSpace(line[i+1:]), true
		}
		break
	}
	return "", false
}
