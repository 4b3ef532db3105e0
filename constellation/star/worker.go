package star

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
	"github.com/astrolabs/astro/constellation/probe"
)

// Worker is the general-purpose star: it renders its directive into a
// prompt, calls the model, and executes any probes the model requests.
//
// Probe use is a single round: the model's tool calls are executed through
// the registry, their results are appended to the conversation, and the
// model is called once more for the final answer. Every probe invocation is
// recorded on the output as a tool call.
type Worker struct {
	chat      model.ChatModel
	directive *constellation.Directive
	probes    *probe.Registry
}

// NewWorker creates a worker star. The registry may be nil when the
// directive grants no probes.
func NewWorker(chat model.ChatModel, d *constellation.Directive, probes *probe.Registry) *Worker {
	return &Worker{chat: chat, directive: d, probes: probes}
}

// Type implements constellation.Star.
func (w *Worker) Type() constellation.StarType { return constellation.StarTypeWorker }

// DirectiveID implements constellation.Star.
func (w *Worker) DirectiveID() string { return directiveID(w.directive) }

// Execute implements constellation.Star.
func (w *Worker) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	msgs := conversation(w.directive, cc)
	specs := w.toolSpecs()

	out, err := w.chat.Chat(ctx, msgs, specs)
	if err != nil {
		return nil, err
	}
	if len(out.ToolCalls) == 0 {
		return constellation.WorkerOutput{Result: out.Text}, nil
	}

	records, results, err := w.runProbes(ctx, out.ToolCalls)
	if err != nil {
		return nil, err
	}

	msgs = append(msgs,
		model.Message{Role: model.RoleAssistant, Content: out.Text},
		model.Message{Role: model.RoleUser, Content: "Tool results:\n" + results},
	)
	final, err := w.chat.Chat(ctx, msgs, nil)
	if err != nil {
		return nil, err
	}
	return constellation.WorkerOutput{Result: final.Text, ToolCalls: records}, nil
}

func (w *Worker) toolSpecs() []model.ToolSpec {
	if w.probes == nil || w.directive == nil {
		return nil
	}
	var specs []model.ToolSpec
	for _, id := range w.directive.ProbeIDs {
		p, ok := w.probes.Get(id)
		if !ok {
			continue
		}
		specs = append(specs, model.ToolSpec{Name: p.Name(), Description: p.Description()})
	}
	return specs
}

func (w *Worker) runProbes(ctx context.Context, calls []model.ToolCall) ([]constellation.ToolCallRecord, string, error) {
	if w.probes == nil {
		return nil, "", fmt.Errorf("model requested probes but none are registered")
	}
	records := make([]constellation.ToolCallRecord, 0, len(calls))
	var results strings.Builder
	for _, call := range calls {
		result, err := w.probes.Call(ctx, call.Name, call.Input)
		if err != nil {
			return nil, "", fmt.Errorf("probe %s: %w", call.Name, err)
		}
		encoded, err := json.Marshal(result)
		if err != nil {
			return nil, "", fmt.Errorf("encode probe %s result: %w", call.Name, err)
		}
		records = append(records, constellation.ToolCallRecord{
			Name:   call.Name,
			Input:  call.Input,
			Result: string(encoded),
		})
		fmt.Fprintf(&results, "%s: %s\n", call.Name, encoded)
	}
	return records, results.String(), nil
}
