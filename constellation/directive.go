package constellation

// Directive is the template a Star executes: the prompt content plus the
// variables the content declares and the probes the Star may invoke.
type Directive struct {
	// ID uniquely identifies the directive in the Runner's registry.
	ID string `json:"id"`

	// Name is a human-readable title.
	Name string `json:"name"`

	// Description explains what the directive instructs the Star to do.
	Description string `json:"description,omitempty"`

	// Content is the prompt template. Stars substitute declared variables
	// into it before invoking the model.
	Content string `json:"content"`

	// TemplateVariables declares the inputs the content expects. The Runner
	// resolves each declared variable from the execution context before the
	// Star runs (see Binder).
	TemplateVariables []TemplateVariable `json:"template_variables,omitempty"`

	// ProbeIDs names the probes the Star may expose to the model.
	ProbeIDs []string `json:"probe_ids,omitempty"`
}

// TemplateVariable declares one input of a directive's content.
type TemplateVariable struct {
	// Name is the variable identifier referenced by the template.
	Name string `json:"name"`

	// Description documents the expected value for authoring tools.
	Description string `json:"description,omitempty"`

	// Required makes node execution fail when no binding resolves.
	Required bool `json:"required,omitempty"`

	// Default is used when no other binding source resolves the variable.
	Default any `json:"default,omitempty"`
}
