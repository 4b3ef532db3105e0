package star

import (
	"context"
	"strings"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

// documentSeparator splits a multi-document extraction response.
const documentSeparator = "\n---\n"

// DocEx extracts structured documents from source material. The model is
// instructed (by its directive) to separate documents with "---" lines; the
// response is split on that separator into individual documents.
type DocEx struct {
	chat      model.ChatModel
	directive *constellation.Directive
}

// NewDocEx creates a document-extraction star.
func NewDocEx(chat model.ChatModel, d *constellation.Directive) *DocEx {
	return &DocEx{chat: chat, directive: d}
}

// Type implements constellation.Star.
func (d *DocEx) Type() constellation.StarType { return constellation.StarTypeDocEx }

// DirectiveID implements constellation.Star.
func (d *DocEx) DirectiveID() string { return directiveID(d.directive) }

// Execute implements constellation.Star.
func (d *DocEx) Execute(ctx context.Context, cc *constellation.Context) (constellation.StarOutput, error) {
	out, err := d.chat.Chat(ctx, conversation(d.directive, cc), nil)
	if err != nil {
		return nil, err
	}

	var docs []string
	for _, doc := range strings.Split(out.Text, documentSeparator) {
		if trimmed := strings.TrimSpace(doc); trimmed != "" {
			docs = append(docs, trimmed)
		}
	}
	return constellation.DocExResult{Documents: docs}, nil
}
