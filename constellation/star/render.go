// Package star provides the built-in Star implementations: worker,
// planning, eval, synthesis, and document extraction. All are backed by a
// model.ChatModel and configured with a Directive.
package star

import (
	"strings"

	"github.com/astrolabs/astro/constellation"
	"github.com/astrolabs/astro/constellation/model"
)

// renderPrompt substitutes the directive's declared variables into its
// content. Placeholders use double braces: {{variable_name}}. Undeclared
// placeholders pass through untouched.
func renderPrompt(d *constellation.Directive, cc *constellation.Context) string {
	if d == nil {
		return cc.OriginalQuery
	}
	pairs := make([]string, 0, len(d.TemplateVariables)*2)
	for _, v := range d.TemplateVariables {
		if val := cc.StringVariable(v.Name); val != "" {
			pairs = append(pairs, "{{"+v.Name+"}}", val)
		}
	}
	return strings.NewReplacer(pairs...).Replace(d.Content)
}

// conversation builds the standard two-message exchange: the directive's
// description as the system turn, the rendered content as the user turn.
func conversation(d *constellation.Directive, cc *constellation.Context) []model.Message {
	var msgs []model.Message
	if d != nil && d.Description != "" {
		msgs = append(msgs, model.Message{Role: model.RoleSystem, Content: d.Description})
	}
	prompt := renderPrompt(d, cc)
	if prompt == "" {
		prompt = cc.OriginalQuery
	}
	return append(msgs, model.Message{Role: model.RoleUser, Content: prompt})
}

func directiveID(d *constellation.Directive) string {
	if d == nil {
		return ""
	}
	return d.ID
}
