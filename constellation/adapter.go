package constellation

import "context"

// invokeStar is the bridge between a star node and its registered Star: it
// resolves the star and its directive, computes bindings, merges them into
// the context variables, and executes.
//
// A missing star fails the node. A missing directive does not: the star runs
// with no declared variables.
func (r *Runner) invokeStar(ctx context.Context, cc *Context, node *Node) (StarOutput, error) {
	star, ok := r.star(node.StarID)
	if !ok {
		return nil, &ExecutionError{NodeID: node.ID, Message: "Star not found: " + node.StarID}
	}

	var directive *Directive
	if id := star.DirectiveID(); id != "" {
		directive, _ = r.directive(id)
	}

	bindings, err := r.binder.Resolve(directive, cc, node.ID)
	if err != nil {
		return nil, err
	}
	cc.mergeVariables(bindings)

	return star.Execute(ctx, cc)
}
