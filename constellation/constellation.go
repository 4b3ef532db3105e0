package constellation

import (
	"strings"
	"time"
)

// Default execution limits applied by Normalize when the authoring tool
// leaves them unset.
const (
	// DefaultMaxLoopIterations bounds eval-cycle re-entries per run.
	DefaultMaxLoopIterations = 3

	// DefaultMaxRetryAttempts is the number of retries after the initial
	// attempt, so a node is tried at most DefaultMaxRetryAttempts+1 times.
	DefaultMaxRetryAttempts = 2

	// DefaultRetryDelayBase seeds the exponential backoff between retries.
	DefaultRetryDelayBase = 500 * time.Millisecond
)

// Edge is a directed connection between two nodes in a constellation.
//
// Condition is an opaque tag assigned by the authoring tool. The runtime
// interprets exactly one token: an edge whose condition contains "loop"
// (case-insensitive) routes eval-cycle re-entries and is excluded from
// topological ordering. All other conditions pass through untouched.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
}

// IsLoop reports whether this edge is a loop-target edge.
func (e Edge) IsLoop() bool {
	return strings.Contains(strings.ToLower(e.Condition), "loop")
}

// Constellation is an immutable directed acyclic graph of Star nodes,
// acyclic after excluding loop edges. Loop edges are the sole cycle
// mechanism and are handled by the Runner outside topological order.
type Constellation struct {
	// ID uniquely identifies the constellation in the Runner's registry.
	ID string `json:"id"`

	// Name is a human-readable title surfaced in run records and events.
	Name string `json:"name"`

	// Description explains what the constellation accomplishes. Stars that
	// inspect the graph see it as the constellation purpose.
	Description string `json:"description,omitempty"`

	// Start and End are the entry and exit nodes.
	Start *Node `json:"start"`
	End   *Node `json:"end"`

	// Nodes are the Star nodes in authoring order. Authoring order breaks
	// ties in the topological sort, keeping traversal deterministic.
	Nodes []*Node `json:"nodes"`

	// Edges connect Start, Star nodes, and End.
	Edges []Edge `json:"edges"`

	// MaxLoopIterations bounds eval-cycle re-entries (default 3).
	MaxLoopIterations int `json:"max_loop_iterations,omitempty"`

	// MaxRetryAttempts is the retry count after the initial attempt
	// (default 2, so up to 3 tries per node visit).
	MaxRetryAttempts int `json:"max_retry_attempts,omitempty"`

	// RetryDelayBase seeds exponential backoff: base * 2^attempt.
	RetryDelayBase time.Duration `json:"retry_delay_base,omitempty"`
}

// Normalize fills unset execution limits with their defaults. A negative
// MaxRetryAttempts is an explicit "no retries" and normalizes to zero;
// leaving it unset gets the default.
func (c *Constellation) Normalize() {
	if c.MaxLoopIterations <= 0 {
		c.MaxLoopIterations = DefaultMaxLoopIterations
	}
	if c.MaxRetryAttempts == 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	} else if c.MaxRetryAttempts < 0 {
		c.MaxRetryAttempts = 0
	}
	if c.RetryDelayBase <= 0 {
		c.RetryDelayBase = DefaultRetryDelayBase
	}
}

// node returns the node with the given ID, including Start and End.
func (c *Constellation) node(id string) *Node {
	if c.Start != nil && c.Start.ID == id {
		return c.Start
	}
	if c.End != nil && c.End.ID == id {
		return c.End
	}
	for _, n := range c.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// StarNodes returns the Star nodes in authoring order.
func (c *Constellation) StarNodes() []*Node {
	return c.Nodes
}

// Validate checks the structural invariants of the constellation:
// exactly one Start and one End, every edge endpoint resolves to a node,
// node IDs are unique, and the graph is acyclic once loop edges are removed.
//
// Star registry resolution is validated separately by the Runner, which owns
// the registry.
func (c *Constellation) Validate() error {
	if c.ID == "" {
		return &ConfigError{Message: "constellation ID cannot be empty"}
	}
	if c.Start == nil || c.Start.Kind != KindStart {
		return &ConfigError{Message: "constellation requires exactly one start node", Code: "NO_START"}
	}
	if c.End == nil || c.End.Kind != KindEnd {
		return &ConfigError{Message: "constellation requires exactly one end node", Code: "NO_END"}
	}

	seen := map[string]bool{c.Start.ID: true}
	if seen[c.End.ID] {
		return &ConfigError{Message: "duplicate node ID: " + c.End.ID, Code: "DUPLICATE_NODE"}
	}
	seen[c.End.ID] = true
	for _, n := range c.Nodes {
		if n.ID == "" {
			return &ConfigError{Message: "node ID cannot be empty"}
		}
		if n.Kind != KindStar {
			return &ConfigError{Message: "node " + n.ID + " must be a star node", Code: "BAD_NODE_KIND"}
		}
		if n.StarID == "" {
			return &ConfigError{Message: "node " + n.ID + " has no star_id", Code: "NO_STAR_ID"}
		}
		if seen[n.ID] {
			return &ConfigError{Message: "duplicate node ID: " + n.ID, Code: "DUPLICATE_NODE"}
		}
		seen[n.ID] = true
	}

	for _, e := range c.Edges {
		if !seen[e.Source] {
			return &ConfigError{Message: "edge " + e.ID + " references unknown source: " + e.Source, Code: "BAD_EDGE"}
		}
		if !seen[e.Target] {
			return &ConfigError{Message: "edge " + e.ID + " references unknown target: " + e.Target, Code: "BAD_EDGE"}
		}
	}

	if _, err := c.TopologicalOrder(); err != nil {
		return err
	}
	return nil
}

// TopologicalOrder returns all node IDs in dependency order over the DAG
// with loop edges removed. Start is always first and End always last.
//
// Ties are broken by authoring order (Start, then Nodes, then End), so the
// order is stable across calls for the same constellation.
func (c *Constellation) TopologicalOrder() ([]string, error) {
	ordered := make([]*Node, 0, len(c.Nodes)+2)
	ordered = append(ordered, c.Start)
	ordered = append(ordered, c.Nodes...)
	ordered = append(ordered, c.End)

	indegree := make(map[string]int, len(ordered))
	for _, n := range ordered {
		indegree[n.ID] = 0
	}
	for _, e := range c.Edges {
		if e.IsLoop() {
			continue
		}
		indegree[e.Target]++
	}

	result := make([]string, 0, len(ordered))
	remaining := len(ordered)
	for remaining > 0 {
		progressed := false
		for _, n := range ordered {
			if deg, ok := indegree[n.ID]; ok && deg == 0 {
				result = append(result, n.ID)
				delete(indegree, n.ID)
				remaining--
				progressed = true
				for _, e := range c.Edges {
					if e.IsLoop() || e.Source != n.ID {
						continue
					}
					if _, pending := indegree[e.Target]; pending {
						indegree[e.Target]--
					}
				}
			}
		}
		if !progressed {
			return nil, &ConfigError{
				Message: "constellation contains a cycle outside loop edges",
				Code:    "CYCLIC_GRAPH",
			}
		}
	}
	return result, nil
}

// UpstreamNodes returns the immediate predecessors of the given node over
// non-loop edges, in edge declaration order.
func (c *Constellation) UpstreamNodes(id string) []string {
	var ups []string
	for _, e := range c.Edges {
		if e.IsLoop() || e.Target != id {
			continue
		}
		ups = append(ups, e.Source)
	}
	return ups
}

// DownstreamNodes returns the immediate successors of the given node over
// non-loop edges, in edge declaration order.
func (c *Constellation) DownstreamNodes(id string) []string {
	var downs []string
	for _, e := range c.Edges {
		if e.IsLoop() || e.Source != id {
			continue
		}
		downs = append(downs, e.Target)
	}
	return downs
}

// LoopTarget resolves the node an eval "loop" decision re-enters at.
//
// The first outgoing edge of evalNodeID whose condition contains "loop"
// wins. When no loop edge exists, the first Star node whose registered star
// is a Planning star is used; resolution of star types is the caller's
// concern, so the fallback is provided the star lookup function.
//
// Returns empty when neither source yields a target.
func (c *Constellation) LoopTarget(evalNodeID string, starType func(starID string) (StarType, bool)) string {
	for _, e := range c.Edges {
		if e.Source == evalNodeID && e.IsLoop() {
			return e.Target
		}
	}
	if starType != nil {
		for _, n := range c.Nodes {
			if t, ok := starType(n.StarID); ok && t == StarTypePlanning {
				return n.ID
			}
		}
	}
	return ""
}

// DownstreamClosure returns the given node plus every node reachable from it
// over non-loop edges. An explicit worklist with a visited set tolerates
// cycles in the loop subgraph and deep graphs alike.
func (c *Constellation) DownstreamClosure(id string) []string {
	visited := make(map[string]bool)
	worklist := []string{id}
	var closure []string
	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if visited[current] {
			continue
		}
		visited[current] = true
		closure = append(closure, current)
		worklist = append(worklist, c.DownstreamNodes(current)...)
	}
	return closure
}
