package lead

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var (
	workflowRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_workflow_runs_total",
		Help: "Lead status changes processed, by transition and outcome.",
	}, []string{"transition", "outcome"})
	profitAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lead_profit_allocated_total",
		Help: "Profit added to revenue targets by sold leads.",
	})
	profitReversed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lead_profit_reversed_total",
		Help: "Profit removed from revenue targets by leads leaving sold.",
	})
)

func init() {
	prometheus.MustRegister(workflowRuns, profitAllocated, profitReversed)
}

func observeRun(t Transition, outcome string) {
	workflowRuns.WithLabelValues(t.String(), outcome).Inc()
}

func observeProfit(c prometheus.Counter, amount decimal.Decimal) {
	if amount.IsPositive() {
		c.Add(amount.InexactFloat64())
	}
}
