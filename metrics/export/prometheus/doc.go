// Package prometheus renders goOTP metrics in Prometheus text exposition
// format.
//
// [NewPrometheusExporter] accepts a [goOTP.Engine] and exposes an [http.Handler]
// serving every engine counter (gootp_*_total), the verify latency histogram
// (gootp_verify_latency_seconds) and, when the source reports statistics,
// occupancy gauges such as gootp_active_codes and gootp_locked_identities.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
