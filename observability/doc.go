// Package observability builds the OpenTelemetry trace pipeline used by the
// telemetry log sink and the tracing middleware.
//
//	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
//		ServiceName: "billing",
//		Endpoint:    "http://collector:4318",
//	})
//	defer tp.Shutdown(ctx)
package observability
