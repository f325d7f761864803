// Package otel provides OpenTelemetry metric exporter bindings for goOTP
// counters, the verify latency histogram and store occupancy gauges.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each engine
// counter and an Int64ObservableGauge per histogram bucket. A single callback
// reads [goOTP.Engine.MetricsSnapshot] and [goOTP.Engine.Statistics] on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
