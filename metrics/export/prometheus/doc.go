// Package prometheus exposes authcore metrics as a Prometheus collector.
//
// [NewPrometheusExporter] accepts an [authcore.Engine] and returns a
// collector that reads Engine.MetricsSnapshot on every scrape. Counter names
// are authcore_*_total; the latency histogram is
// authcore_auth_latency_seconds and is only reported when latency
// histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register
//     the collector or mount Handler.
//   - Mutate engine state.
package prometheus
