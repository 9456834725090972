package internaldefs

import (
	"github.com/kdktj/authclient"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// HistogramDef names one exported latency histogram.
type HistogramDef struct {
	ID   authclient.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: authclient.MetricLoginSuccess, Name: "authclient_login_success_total", Help: "Successful logins."},
	{ID: authclient.MetricLoginFailure, Name: "authclient_login_failure_total", Help: "Failed logins."},
	{ID: authclient.MetricRegisterSuccess, Name: "authclient_register_success_total", Help: "Successful registrations."},
	{ID: authclient.MetricRegisterFailure, Name: "authclient_register_failure_total", Help: "Failed registrations."},
	{ID: authclient.MetricStartupConfirmed, Name: "authclient_startup_confirmed_total", Help: "Persisted sessions confirmed at startup."},
	{ID: authclient.MetricStartupDowngraded, Name: "authclient_startup_downgraded_total", Help: "Persisted sessions cleared at startup."},
	{ID: authclient.MetricStartupDeduplicated, Name: "authclient_startup_deduplicated_total", Help: "Startup checks skipped because one was in flight."},
	{ID: authclient.MetricLogout, Name: "authclient_logout_total", Help: "Logouts."},
	{ID: authclient.MetricLogoutServerFailure, Name: "authclient_logout_server_failure_total", Help: "Logouts whose backend call failed."},
	{ID: authclient.MetricRefreshSuccess, Name: "authclient_refresh_success_total", Help: "Successful token refreshes."},
	{ID: authclient.MetricRefreshFailure, Name: "authclient_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: authclient.MetricUserRefreshed, Name: "authclient_user_refreshed_total", Help: "Successful user record refreshes."},
	{ID: authclient.MetricUserRefreshFailure, Name: "authclient_user_refresh_failure_total", Help: "Failed user record refreshes."},
	{ID: authclient.MetricSessionInvalidated, Name: "authclient_session_invalidated_total", Help: "Sessions ended after the backend rejected the token."},
	{ID: authclient.MetricStoreCorruptionCleared, Name: "authclient_store_corruption_cleared_total", Help: "Incomplete or unreadable persisted sessions cleared."},
}

// HistogramDefs lists every latency histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: authclient.MetricVerifyLatency, Name: "authclient_verify_latency_seconds", Help: "Startup verification latency."},
	{ID: authclient.MetricLoginLatency, Name: "authclient_login_latency_seconds", Help: "Login and register latency."},
}

// HistogramUpperBounds are the bucket upper bounds in seconds. The last
// bucket is unbounded.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix are the bucket name suffixes for exporters without
// labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, padding with
// zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
