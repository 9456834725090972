// Package prometheus exports session metrics in Prometheus form.
//
// [Collector] plugs the series into a client_golang registry for
// applications that already run one. [PrometheusExporter] keeps a private
// registry with one Collector and renders it in the text exposition format,
// directly or from an [http.Handler]. Counter names are authclient_*_total;
// the histograms are authclient_verify_latency_seconds and
// authclient_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers register
//     the Collector or mount the Handler.
//   - Mutate session state.
package prometheus
