package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	deploysTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlil",
		Subsystem: "manager",
		Name:      "deploys_total",
		Help:      "Total number of successful model deployments",
	})

	removalsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlil",
		Subsystem: "manager",
		Name:      "removals_total",
		Help:      "Total number of deployment removals",
	})

	deployFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mlil",
		Subsystem: "manager",
		Name:      "deploy_failures_total",
		Help:      "Total number of failed deployment attempts",
	})
)

func init() {
	prometheus.MustRegister(deploysTotal, removalsTotal, deployFailuresTotal)
}
