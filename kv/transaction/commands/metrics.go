package commands

import "github.com/prometheus/client_golang/prometheus"

var (
	checkTxnStatusCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tinykv",
			Subsystem: "check_txn_status",
			Name:      "total",
			Help:      "Counter of check txn status outcomes that did work",
		}, []string{"type"})

	checkTxnStatusRollback      = checkTxnStatusCounter.WithLabelValues("rollback")
	checkTxnStatusUpdateTs      = checkTxnStatusCounter.WithLabelValues("update_ts")
	checkTxnStatusGetCommitInfo = checkTxnStatusCounter.WithLabelValues("get_commit_info")
)

func init() {
	prometheus.MustRegister(checkTxnStatusCounter)
}
