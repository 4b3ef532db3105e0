package emit

import "sync"

// BufferedStream stores events in memory, keyed by run ID.
//
// It backs live subscribers (SSE, websockets, TUIs) and tests: Emit never
// blocks, and History returns a stable snapshot of everything a run has
// emitted so far. An optional bounded channel fans events out to one live
// consumer; when the consumer lags, the oldest undelivered event is dropped
// rather than stalling the emitting goroutine.
//
// All events stay resident until Clear is called, so long-running deployments
// should clear finished runs periodically.
type BufferedStream struct {
	mu     sync.RWMutex
	events map[string][]Event

	live    chan Event
	dropped int
}

// NewBufferedStream creates a BufferedStream with no live channel.
func NewBufferedStream() *BufferedStream {
	return &BufferedStream{
		events: make(map[string][]Event),
	}
}

// NewBufferedStreamWithLive creates a BufferedStream that also forwards
// events to a bounded live channel of the given capacity. Capacities below 1
// are raised to 1.
func NewBufferedStreamWithLive(capacity int) *BufferedStream {
	if capacity < 1 {
		capacity = 1
	}
	return &BufferedStream{
		events: make(map[string][]Event),
		live:   make(chan Event, capacity),
	}
}

// Emit records the event and, if a live channel exists, offers it without
// blocking. A full channel sheds its oldest event to make room.
func (b *BufferedStream) Emit(event Event) {
	b.mu.Lock()
	b.events[event.RunID] = append(b.events[event.RunID], event)
	if b.live != nil {
		for {
			select {
			case b.live <- event:
				b.mu.Unlock()
				return
			default:
			}
			select {
			case <-b.live:
				b.dropped++
			default:
			}
		}
	}
	b.mu.Unlock()
}

// Live returns the live channel, or nil when the stream was created without
// one. The caller must drain it promptly to avoid drops.
func (b *BufferedStream) Live() <-chan Event {
	return b.live
}

// Dropped reports how many live events were shed to a lagging consumer.
func (b *BufferedStream) Dropped() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// History returns a copy of all events emitted for the run, in emission
// order. Returns an empty slice for unknown runs.
func (b *BufferedStream) History(runID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	events := b.events[runID]
	result := make([]Event, len(events))
	copy(result, events)
	return result
}

// HistoryByType returns the run's events of one type, in emission order.
func (b *BufferedStream) HistoryByType(runID string, t EventType) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var result []Event
	for _, ev := range b.events[runID] {
		if ev.Type == t {
			result = append(result, ev)
		}
	}
	return result
}

// HistoryForNode returns the run's events for one node, in emission order.
func (b *BufferedStream) HistoryForNode(runID, nodeID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var result []Event
	for _, ev := range b.events[runID] {
		if ev.NodeID == nodeID {
			result = append(result, ev)
		}
	}
	return result
}

// Clear discards all stored events for the run.
func (b *BufferedStream) Clear(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, runID)
}

// ClearAll discards every stored event.
func (b *BufferedStream) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
