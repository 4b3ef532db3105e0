package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// LogStream writes each event to a writer, either as human-readable text or
// as one JSON object per line.
//
// Example text output:
//
//	[node_started] run=run_a1b2c3d4e5f6 node=researcher (2/4)
//	[node_completed] run=run_a1b2c3d4e5f6 node=researcher 812ms
//
// Example JSONL output:
//
//	{"type":"node_started","run_id":"run_a1b2c3d4e5f6","node_id":"researcher",...}
type LogStream struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogStream creates a LogStream. A nil writer defaults to os.Stdout;
// jsonMode selects JSONL over text.
func NewLogStream(writer io.Writer, jsonMode bool) *LogStream {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogStream{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event to the configured writer.
func (l *LogStream) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.jsonMode {
		data, err := json.Marshal(event)
		if err != nil {
			fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
			return
		}
		fmt.Fprintf(l.writer, "%s\n", data)
		return
	}
	l.emitText(event)
}

func (l *LogStream) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] run=%s", event.Type, event.RunID)
	if event.NodeID != "" {
		fmt.Fprintf(l.writer, " node=%s", event.NodeName)
	}
	if event.NodeIndex > 0 {
		fmt.Fprintf(l.writer, " (%d/%d)", event.NodeIndex, event.TotalNodes)
	}
	if event.Error != "" {
		fmt.Fprintf(l.writer, " error=%q", event.Error)
	}
	if event.Prompt != "" {
		fmt.Fprintf(l.writer, " prompt=%q", event.Prompt)
	}
	if event.DurationMS > 0 {
		fmt.Fprintf(l.writer, " %dms", event.DurationMS)
	}
	fmt.Fprint(l.writer, "\n")
}
