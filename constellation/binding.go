package constellation

import "strings"

// DefaultSemanticMatches maps well-known variable names to substrings looked
// for in prior node ids during binding resolution. Applications extend or
// replace this map through WithSemanticMatches.
func DefaultSemanticMatches() map[string][]string {
	return map[string][]string{
		"structure_analysis":   {"excel_parser", "parser"},
		"interview_transcript": {"expert_interview", "interviewer"},
		"model_blueprint":      {"blueprint_compiler"},
	}
}

// Binder resolves a Directive's template variables against a run Context.
//
// Resolution is deterministic: given the same variables, node outputs, and
// semantic-match table, it always produces the same bindings.
type Binder struct {
	semanticMatches map[string][]string
}

// NewBinder creates a Binder. A nil table falls back to
// DefaultSemanticMatches.
func NewBinder(semanticMatches map[string][]string) *Binder {
	if semanticMatches == nil {
		semanticMatches = DefaultSemanticMatches()
	}
	return &Binder{semanticMatches: semanticMatches}
}

// Resolve computes the variable bindings for the named node's directive.
// Each declared variable is tried, in order, against: an explicit context
// variable, a prior node whose id equals the variable name, a semantic match
// on prior node ids, the most recently completed output, and the declared
// default. A required variable that resolves through none of these fails the
// node with a BindingError.
func (b *Binder) Resolve(d *Directive, cc *Context, nodeID string) (map[string]any, error) {
	bindings := make(map[string]any)
	if d == nil {
		return bindings, nil
	}
	for _, v := range d.TemplateVariables {
		if val, ok := cc.Variable(v.Name); ok {
			bindings[v.Name] = val
			continue
		}
		if out, ok := cc.NodeOutput(v.Name); ok {
			bindings[v.Name] = ExtractValue(out)
			continue
		}
		if val, ok := b.semanticMatch(v.Name, cc); ok {
			bindings[v.Name] = val
			continue
		}
		if val, ok := mostRecentOutput(cc); ok {
			bindings[v.Name] = val
			continue
		}
		if v.Default != nil {
			bindings[v.Name] = v.Default
			continue
		}
		if v.Required {
			return nil, &BindingError{NodeID: nodeID, Variable: v.Name}
		}
	}
	return bindings, nil
}

// semanticMatch scans prior node outputs in insertion order for an id
// containing any of the substrings registered for the variable name.
// Matching is case-insensitive.
func (b *Binder) semanticMatch(name string, cc *Context) (any, bool) {
	subs, ok := b.semanticMatches[name]
	if !ok {
		return nil, false
	}
	for _, nodeID := range cc.NodeOutputIDs() {
		lower := strings.ToLower(nodeID)
		for _, sub := range subs {
			if strings.Contains(lower, strings.ToLower(sub)) {
				out, _ := cc.NodeOutput(nodeID)
				return ExtractValue(out), true
			}
		}
	}
	return nil, false
}

// mostRecentOutput returns the extracted value of the most recently
// completed node, if any.
func mostRecentOutput(cc *Context) (any, bool) {
	ids := cc.NodeOutputIDs()
	if len(ids) == 0 {
		return nil, false
	}
	out, _ := cc.NodeOutput(ids[len(ids)-1])
	return ExtractValue(out), true
}
