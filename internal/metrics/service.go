package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khorolets/near-rewards/internal/domain"
)

const namespace = "near_rewards"

var (
	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "JSON-RPC requests sent to the NEAR node, by method and outcome.",
	}, []string{"method", "outcome"})

	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_request_duration_seconds",
		Help:      "Latency of JSON-RPC requests including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	AccountFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_failures_total",
		Help:      "Accounts that produced no row, by failure kind.",
	}, []string{"kind"})

	BalanceFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_fallbacks_total",
		Help:      "Recoverable balance query failures, by query.",
	}, []string{"query"})

	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Reconciliation runs, by outcome.",
	}, []string{"outcome"})

	RewardSum = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reward_sum_near",
		Help:      "Reward sum of the last completed run, in NEAR.",
	})

	LiquidSum = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "liquid_sum_near",
		Help:      "Deduplicated liquid balance sum of the last completed run, in NEAR.",
	})

	EpochProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "epoch_progress_percent",
		Help:      "Progress into the current epoch at the last completed run.",
	})
)

// ObserveRPC records one JSON-RPC call.
func ObserveRPC(method string, err error, started time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RPCRequests.WithLabelValues(method, outcome).Inc()
	RPCDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// ObserveFallback records a recoverable query failure.
func ObserveFallback(query string) {
	BalanceFallbacks.WithLabelValues(query).Inc()
}

// ObserveRunFailure records a run that could not produce a report.
func ObserveRunFailure() {
	Runs.WithLabelValues("error").Inc()
}

// ObserveReport records the outcome of a completed run.
// The gauges carry float64 approximations; the report keeps the exact values.
func ObserveReport(report domain.Report) {
	Runs.WithLabelValues("ok").Inc()
	for _, f := range report.Failures {
		AccountFailures.WithLabelValues(string(f.Kind)).Inc()
	}

	reward, _ := report.Totals.RewardSum.Human().Float64()
	RewardSum.Set(reward)
	liquid, _ := report.Totals.LiquidSum.Human().Float64()
	LiquidSum.Set(liquid)
	if report.EpochProgress != nil {
		EpochProgress.Set(float64(*report.EpochProgress))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
