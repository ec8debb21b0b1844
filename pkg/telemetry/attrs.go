package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys shared by the analysis phases.
const (
	KeyTraceSource    = attribute.Key("leak.trace.source")
	KeyTraceLines     = attribute.Key("leak.trace.lines")
	KeyTraceEvents    = attribute.Key("leak.trace.events")
	KeyTraceMalformed = attribute.Key("leak.trace.malformed")
	KeyTraceTruncated = attribute.Key("leak.trace.truncated")
	KeyDatums         = attribute.Key("leak.graph.datums")
	KeyEdges          = attribute.Key("leak.graph.edges")
	KeyLeaked         = attribute.Key("leak.graph.leaked")
	KeyRunName        = attribute.Key("leak.run.name")
	KeyViewTitle      = attribute.Key("leak.view.title")
)

// GraphSize describes a datum graph on a span.
func GraphSize(datums, edges, leaked int) []attribute.KeyValue {
	return []attribute.KeyValue{
		KeyDatums.Int(datums),
		KeyEdges.Int(edges),
		KeyLeaked.Int(leaked),
	}
}

// TraceCounts describes what a parse pass saw.
func TraceCounts(lines, events, malformed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		KeyTraceLines.Int(lines),
		KeyTraceEvents.Int(events),
		KeyTraceMalformed.Int(malformed),
	}
}
