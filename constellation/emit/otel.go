package emit

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelStream converts each event into an OpenTelemetry span.
//
// Events are points in time, so each span is started and ended immediately;
// when the event carries a duration, the span start is backdated so span
// length reflects the node's wall time. Failure events set the span status
// to Error.
//
// Attributes use the astro.* namespace:
//
//	astro.run_id, astro.constellation_id, astro.node_id, astro.node_name,
//	astro.star_id, astro.star_type, astro.node_index, astro.prompt,
//	astro.failed_node_id, astro.resumed_from_node
//
// Usage:
//
//	tracer := otel.Tracer("astro")
//	stream := emit.NewOTelStream(tracer)
//	runner.Run(ctx, id, vars, query, constellation.WithRunStream(stream))
type OTelStream struct {
	tracer trace.Tracer
}

// NewOTelStream creates an OTelStream emitting spans through the tracer.
func NewOTelStream(tracer trace.Tracer) *OTelStream {
	return &OTelStream{tracer: tracer}
}

// Emit creates and ends one span describing the event.
func (o *OTelStream) Emit(event Event) {
	opts := []trace.SpanStartOption{}
	if event.DurationMS > 0 {
		opts = append(opts, trace.WithTimestamp(time.Now().Add(-time.Duration(event.DurationMS)*time.Millisecond)))
	}
	_, span := o.tracer.Start(context.Background(), string(event.Type), opts...)
	defer span.End()

	span.SetAttributes(attribute.String("astro.run_id", event.RunID))
	if event.ConstellationID != "" {
		span.SetAttributes(attribute.String("astro.constellation_id", event.ConstellationID))
	}
	if event.NodeID != "" {
		span.SetAttributes(
			attribute.String("astro.node_id", event.NodeID),
			attribute.String("astro.node_name", event.NodeName),
		)
	}
	if event.StarID != "" {
		span.SetAttributes(
			attribute.String("astro.star_id", event.StarID),
			attribute.String("astro.star_type", event.StarType),
		)
	}
	if event.NodeIndex > 0 {
		span.SetAttributes(
			attribute.Int("astro.node_index", event.NodeIndex),
			attribute.Int("astro.total_nodes", event.TotalNodes),
		)
	}
	if event.Prompt != "" {
		span.SetAttributes(attribute.String("astro.prompt", event.Prompt))
	}
	if event.FailedNodeID != "" {
		span.SetAttributes(attribute.String("astro.failed_node_id", event.FailedNodeID))
	}
	if event.ResumedFromNode != "" {
		span.SetAttributes(attribute.String("astro.resumed_from_node", event.ResumedFromNode))
	}

	if event.Error != "" {
		span.SetStatus(codes.Error, event.Error)
	}
}
