package authclient

import internalmetrics "github.com/kdktj/authclient/internal/metrics"

// MetricID identifies one counter or histogram.
type MetricID = internalmetrics.MetricID

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricLoginSuccess           = internalmetrics.MetricLoginSuccess
	MetricLoginFailure           = internalmetrics.MetricLoginFailure
	MetricRegisterSuccess        = internalmetrics.MetricRegisterSuccess
	MetricRegisterFailure        = internalmetrics.MetricRegisterFailure
	MetricStartupConfirmed       = internalmetrics.MetricStartupConfirmed
	MetricStartupDowngraded      = internalmetrics.MetricStartupDowngraded
	MetricStartupDeduplicated    = internalmetrics.MetricStartupDeduplicated
	MetricLogout                 = internalmetrics.MetricLogout
	MetricLogoutServerFailure    = internalmetrics.MetricLogoutServerFailure
	MetricRefreshSuccess         = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure         = internalmetrics.MetricRefreshFailure
	MetricUserRefreshed          = internalmetrics.MetricUserRefreshed
	MetricUserRefreshFailure     = internalmetrics.MetricUserRefreshFailure
	MetricSessionInvalidated     = internalmetrics.MetricSessionInvalidated
	MetricStoreCorruptionCleared = internalmetrics.MetricStoreCorruptionCleared
	MetricVerifyLatency          = internalmetrics.MetricVerifyLatency
	MetricLoginLatency           = internalmetrics.MetricLoginLatency
)

// MetricCount is the number of defined metric ids.
const MetricCount = internalmetrics.Count
