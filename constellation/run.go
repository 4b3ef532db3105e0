package constellation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// OriginalQueryKey is the variable under which the run's original query is
// persisted alongside the caller-supplied variables.
const OriginalQueryKey = "_original_query"

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusRunning              RunStatus = "running"
	RunStatusCompleted            RunStatus = "completed"
	RunStatusFailed               RunStatus = "failed"
	RunStatusAwaitingConfirmation RunStatus = "awaiting_confirmation"
	RunStatusCancelled            RunStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// NodeStatus is the lifecycle state of one node's execution within a run.
type NodeStatus string

const (
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
)

// NodeOutput records one node's execution on the run: the normalized output
// string, status, error, probe calls, and timing.
//
// Invariant: while Status is running, Output is empty; the transition to
// completed or failed stamps CompletedAt with the current UTC instant.
type NodeOutput struct {
	NodeID      string           `json:"node_id"`
	StarID      string           `json:"star_id"`
	Status      NodeStatus       `json:"status"`
	Output      string           `json:"output,omitempty"`
	Error       string           `json:"error,omitempty"`
	ToolCalls   []ToolCallRecord `json:"tool_calls,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Run is the persisted record of one constellation execution. It carries
// everything needed to resume after a crash or an out-of-band approval:
// input variables, per-node outputs, and the awaiting-confirmation cursor.
//
// All timestamps are UTC; the JSON serialization round-trips them as
// ISO-8601 strings.
type Run struct {
	ID                string                 `json:"id"`
	ConstellationID   string                 `json:"constellation_id"`
	ConstellationName string                 `json:"constellation_name"`
	Status            RunStatus              `json:"status"`
	Variables         map[string]any         `json:"variables"`
	StartedAt         time.Time              `json:"started_at"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
	FinalOutput       string                 `json:"final_output,omitempty"`
	Error             string                 `json:"error,omitempty"`
	AwaitingNodeID    string                 `json:"awaiting_node_id,omitempty"`
	AwaitingPrompt    string                 `json:"awaiting_prompt,omitempty"`
	AdditionalContext string                 `json:"additional_context,omitempty"`
	NodeOutputs       map[string]*NodeOutput `json:"node_outputs"`
}

// NewRunID generates a run identifier in the canonical run_<12 hex> format.
func NewRunID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate run ID: %w", err)
	}
	return "run_" + hex.EncodeToString(buf), nil
}

// NewRun creates a running Run record for the given constellation.
//
// The caller-supplied variables are copied, then augmented with the
// original query under OriginalQueryKey so the record is self-contained
// for resumption.
func NewRun(id string, c *Constellation, variables map[string]any, originalQuery string) *Run {
	vars := make(map[string]any, len(variables)+1)
	for k, v := range variables {
		vars[k] = v
	}
	vars[OriginalQueryKey] = originalQuery

	return &Run{
		ID:                id,
		ConstellationID:   c.ID,
		ConstellationName: c.Name,
		Status:            RunStatusRunning,
		Variables:         vars,
		StartedAt:         time.Now().UTC(),
		NodeOutputs:       make(map[string]*NodeOutput),
	}
}

// OriginalQuery returns the query persisted with the run's variables.
func (r *Run) OriginalQuery() string {
	if q, ok := r.Variables[OriginalQueryKey].(string); ok {
		return q
	}
	return ""
}

// beginNode records a fresh running NodeOutput for the node, overwriting any
// prior attempt or loop visit.
func (r *Run) beginNode(nodeID, starID string) *NodeOutput {
	out := &NodeOutput{
		NodeID:    nodeID,
		StarID:    starID,
		Status:    NodeStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	r.NodeOutputs[nodeID] = out
	return out
}

// completeNode transitions the node's record to completed.
func (no *NodeOutput) complete(output string, toolCalls []ToolCallRecord) {
	now := time.Now().UTC()
	no.Status = NodeStatusCompleted
	no.Output = output
	no.ToolCalls = toolCalls
	no.CompletedAt = &now
}

// fail transitions the node's record to failed.
func (no *NodeOutput) fail(err error) {
	now := time.Now().UTC()
	no.Status = NodeStatusFailed
	no.Error = err.Error()
	no.CompletedAt = &now
}

// finish stamps the run with a terminal status.
func (r *Run) finish(status RunStatus) {
	now := time.Now().UTC()
	r.Status = status
	r.CompletedAt = &now
}
