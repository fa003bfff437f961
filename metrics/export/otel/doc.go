// Package otel binds authcore metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per authcore counter
// and an Int64ObservableGauge per latency bucket. A single callback reads
// [authcore.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
