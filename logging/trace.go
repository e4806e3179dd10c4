package logging

import (
	"context"
)

type traceKeyType int

const traceKey = traceKeyType(iota)

// TraceField is the structured field carrying the trace name on context aware debug lines.
const TraceField = "trace"

// WithTrace returns a context that lets `CDebug*` calls through at any level, tagged with name.
// The lanemask tool traces one image at a time, so name is usually the input path.
func WithTrace(ctx context.Context, name string) context.Context {
	if name == "" {
		name = "trace"
	}
	return context.WithValue(ctx, traceKey, name)
}

// TraceName returns the name attached by WithTrace, or "" when ctx is not traced.
func TraceName(ctx context.Context) string {
	name, _ := ctx.Value(traceKey).(string)
	return name
}
