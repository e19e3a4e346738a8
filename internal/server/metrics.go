package server

import "huddle/internal/stats"

const (
	MetricActiveConnections         = "ActiveConnections"
	MetricConnectionsEvicted        = "ConnectionsEvicted"
	MetricMessagesPersisted         = "MessagesPersisted"
	MetricThreadMessagesPersisted   = "ThreadMessagesPersisted"
	MetricDeliveriesSucceeded       = "DeliveriesSucceeded"
	MetricDeliveriesFailed          = "DeliveriesFailed"
	MetricStaleConnectionsReclaimed = "StaleConnectionsReclaimed"
)

// RegisterMetrics registers every counter the core increments.
func RegisterMetrics(sp stats.StatsProvider) {
	for _, name := range []string{
		MetricActiveConnections,
		MetricConnectionsEvicted,
		MetricMessagesPersisted,
		MetricThreadMessagesPersisted,
		MetricDeliveriesSucceeded,
		MetricDeliveriesFailed,
		MetricStaleConnectionsReclaimed,
	} {
		sp.RegisterMetric(name)
	}
}
