/*
Package tracing wraps OpenTelemetry for the worker tree.

Spans:
  - run: one per invocation
  - worker.scan: one per segment scan
  - disposition: one per disposed worker, tagged with the rule applied

When a trace file is configured, spans are exported as JSON through the
stdouttrace exporter with a synchronous processor, so the file is complete
as soon as Shutdown returns. Without one, a no-op provider is used and spans
only show up as debug log lines.

Usage:

	tracer, err := tracing.New("forktree", "trace.json", logger)
	ctx, span := tracer.Start(ctx, "run")
	defer span.End(nil)
	defer tracer.Shutdown(context.Background())
*/
package tracing
