package emit

// Stream receives progress events from constellation runs.
//
// Streams enable pluggable delivery backends:
//   - Logging: stdout, files, JSONL
//   - Live subscribers: SSE, websockets (via BufferedStream)
//   - Distributed tracing: OpenTelemetry (via OTelStream)
//
// Implementations must be:
//   - Non-blocking: the Runner never awaits delivery, so a slow backend
//     must buffer or drop rather than stall node execution
//   - Safe for concurrent use: parallel branches emit from multiple
//     goroutines
//   - Resilient: Emit must not panic; delivery errors are the stream's
//     concern
type Stream interface {
	// Emit accepts one event. Acknowledgment means accepted (or dropped by
	// policy), never delivered.
	Emit(event Event)
}
