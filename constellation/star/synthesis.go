package star

import (
	"context"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

// Synthesis formats the accumulated work into the final deliverable. The
// model's response is used verbatim as the formatted result.
type Synthesis struct {
	chat      model.ChatModel
	directive *constellation.Directive
}

// NewSynthesis creates a synthesis star.
func NewSynthesis(chat model.ChatModel, d *constellation.Directive) *Synthesis {
	return &Synthesis{chat: chat, directive: d}
}

// Type implements constellation.Star.
func (s *Synthesis) Type() constellation.StarType { return constellation.StarTypeSynthesis }

// DirectiveID implements constellation.Star.
func (s *Synthesis) DirectiveID() string { return directiveID(s.directive) }

// Execute implements constellation.Star.
func (s *Synthesis) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	out, err := s.chat.Chat(ctx, conversation(s.directive, cc), nil)
	if err != nil {
		return nil, err
	}
	return constellation.SynthesisOutput{FormattedResult: out.Text}, nil
}
