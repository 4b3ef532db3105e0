package emit

// NullStream discards all events. The Runner substitutes it when a caller
// attaches no subscriber, so emitters never branch on nullability.
type NullStream struct{}

// Emit discards the event.
func (NullStream) Emit(Event) {}
