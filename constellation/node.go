// Package constellation provides the core graph execution runtime for Astro.
package constellation

// NodeKind discriminates the node variants of a Constellation.
type NodeKind int

const (
	// KindStart marks the single entry node of a constellation.
	KindStart NodeKind = iota

	// KindEnd marks the single exit node of a constellation.
	KindEnd

	// KindStar marks a node that executes a registered Star.
	KindStar
)

// String returns the lowercase name of the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindEnd:
		return "end"
	case KindStar:
		return "star"
	default:
		return "unknown"
	}
}

// Node is a vertex in a Constellation graph.
//
// A constellation has exactly one Start node, exactly one End node, and any
// number of Star nodes between them. Start and End carry no behavior of their
// own; the run's original query and purpose travel on the per-run Context, so
// the graph can be shared between concurrent runs.
type Node struct {
	// ID uniquely identifies the node within its constellation.
	ID string `json:"id"`

	// Kind selects the node variant (Start, End, or Star).
	Kind NodeKind `json:"kind"`

	// StarID names the registered Star this node executes.
	// Only meaningful for KindStar nodes.
	StarID string `json:"star_id,omitempty"`

	// DisplayName is an optional human-readable label used in events.
	// Falls back to ID when empty.
	DisplayName string `json:"display_name,omitempty"`

	// RequiresConfirmation pauses the run after this node completes,
	// awaiting human approval before downstream nodes execute.
	RequiresConfirmation bool `json:"requires_confirmation,omitempty"`

	// ConfirmationPrompt is shown to the human reviewer when the run pauses.
	// A default prompt is used when empty.
	ConfirmationPrompt string `json:"confirmation_prompt,omitempty"`
}

// Name returns the display name of the node, falling back to its ID.
func (n *Node) Name() string {
	if n.DisplayName != "" {
		return n.DisplayName
	}
	return n.ID
}

// StartNode constructs the entry node of a constellation.
func StartNode(id string) *Node {
	return &Node{ID: id, Kind: KindStart}
}

// EndNode constructs the exit node of a constellation.
func EndNode(id string) *Node {
	return &Node{ID: id, Kind: KindEnd}
}

// NewStarNode constructs a Star node bound to the given registered star.
func NewStarNode(id, starID string) *Node {
	return &Node{ID: id, Kind: KindStar, StarID: starID}
}
