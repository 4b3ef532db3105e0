// Package emit provides the progress event stream for constellation runs.
package emit

import "unicode/utf8"

// EventType discriminates the progress events a run emits.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventNodeStarted   EventType = "node_started"
	EventNodeCompleted EventType = "node_completed"
	EventNodeFailed    EventType = "node_failed"
	EventRunPaused     EventType = "run_paused"
	EventRunResumed    EventType = "run_resumed"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
)

// Event is one structured progress event. The populated fields depend on
// Type; unset fields are omitted from the JSON form.
//
// Ordering guarantees (provided by the Runner, not the stream):
//   - RunStarted precedes all NodeStarted events.
//   - For each node, NodeStarted precedes its NodeCompleted or NodeFailed.
//   - RunCompleted / RunFailed follows the last node event.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"run_id"`

	// Constellation identity (RunStarted).
	ConstellationID   string   `json:"constellation_id,omitempty"`
	ConstellationName string   `json:"constellation_name,omitempty"`
	TotalNodes        int      `json:"total_nodes,omitempty"`
	NodeNames         []string `json:"node_names,omitempty"`

	// Node identity (node events and RunPaused).
	NodeID   string `json:"node_id,omitempty"`
	NodeName string `json:"node_name,omitempty"`
	StarID   string `json:"star_id,omitempty"`
	StarType string `json:"star_type,omitempty"`

	// NodeIndex is 1-based over Star nodes only (Start and End excluded).
	NodeIndex int `json:"node_index,omitempty"`

	// OutputPreview is the leading portion of a completed node's output.
	OutputPreview string `json:"output_preview,omitempty"`

	// Error carries the failure message for NodeFailed and RunFailed.
	Error        string `json:"error,omitempty"`
	FailedNodeID string `json:"failed_node_id,omitempty"`

	// Prompt is the confirmation prompt shown when a run pauses.
	Prompt string `json:"prompt,omitempty"`

	// Resume details (RunResumed).
	ResumedFromNode   string `json:"resumed_from_node,omitempty"`
	AdditionalContext string `json:"additional_context,omitempty"`

	// FinalOutput is truncated to 500 characters on RunCompleted.
	FinalOutput string `json:"final_output,omitempty"`

	DurationMS int64 `json:"duration_ms,omitempty"`
}

// NewRunStarted builds the event announcing a run.
func NewRunStarted(runID, constellationID, constellationName string, totalNodes int, nodeNames []string) Event {
	return Event{
		Type:              EventRunStarted,
		RunID:             runID,
		ConstellationID:   constellationID,
		ConstellationName: constellationName,
		TotalNodes:        totalNodes,
		NodeNames:         nodeNames,
	}
}

// NewNodeStarted builds the event announcing one node attempt.
func NewNodeStarted(runID, nodeID, nodeName, starID, starType string, nodeIndex, totalNodes int) Event {
	return Event{
		Type:       EventNodeStarted,
		RunID:      runID,
		NodeID:     nodeID,
		NodeName:   nodeName,
		StarID:     starID,
		StarType:   starType,
		NodeIndex:  nodeIndex,
		TotalNodes: totalNodes,
	}
}

// NewNodeCompleted builds the terminal success event for one node attempt.
func NewNodeCompleted(runID, nodeID, nodeName, outputPreview string, durationMS int64) Event {
	return Event{
		Type:          EventNodeCompleted,
		RunID:         runID,
		NodeID:        nodeID,
		NodeName:      nodeName,
		OutputPreview: outputPreview,
		DurationMS:    durationMS,
	}
}

// NewNodeFailed builds the terminal failure event for one node attempt.
func NewNodeFailed(runID, nodeID, nodeName, errMsg string, durationMS int64) Event {
	return Event{
		Type:       EventNodeFailed,
		RunID:      runID,
		NodeID:     nodeID,
		NodeName:   nodeName,
		Error:      errMsg,
		DurationMS: durationMS,
	}
}

// NewRunPaused builds the event announcing a human-in-the-loop pause.
func NewRunPaused(runID, nodeID, nodeName, prompt string) Event {
	return Event{
		Type:     EventRunPaused,
		RunID:    runID,
		NodeID:   nodeID,
		NodeName: nodeName,
		Prompt:   prompt,
	}
}

// NewRunResumed builds the event announcing a resume after confirmation.
func NewRunResumed(runID, resumedFromNode, additionalContext string) Event {
	return Event{
		Type:              EventRunResumed,
		RunID:             runID,
		ResumedFromNode:   resumedFromNode,
		AdditionalContext: additionalContext,
	}
}

// NewRunCompleted builds the terminal success event for a run. The final
// output is truncated to 500 characters.
func NewRunCompleted(runID, finalOutput string, durationMS int64) Event {
	if len(finalOutput) > 500 {
		cut := 500
		for cut > 0 && !utf8.RuneStart(finalOutput[cut]) {
			cut--
		}
		finalOutput = finalOutput[:cut]
	}
	return Event{
		Type:        EventRunCompleted,
		RunID:       runID,
		FinalOutput: finalOutput,
		DurationMS:  durationMS,
	}
}

// NewRunFailed builds the terminal failure event for a run.
func NewRunFailed(runID, errMsg, failedNodeID string) Event {
	return Event{
		Type:         EventRunFailed,
		RunID:        runID,
		Error:        errMsg,
		FailedNodeID: failedNodeID,
	}
}
