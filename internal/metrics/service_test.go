package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/khorolets/near-rewards/internal/domain"
)

func TestObserveRPC(t *testing.T) {
	ok := RPCRequests.WithLabelValues("block", "ok")
	failed := RPCRequests.WithLabelValues("block", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveRPC("block", nil, time.Now())
	ObserveRPC("block", errors.New("boom"), time.Now())
	ObserveRPC("block", nil, time.Now())

	if got := testutil.ToFloat64(ok) - okBefore; got != 2 {
		t.Errorf("ok delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestObserveReport(t *testing.T) {
	progress := uint64(42)
	acc := domain.NewTotalsAccumulator()
	acc.Add(domain.AccountRow{AccountID: "a.near", Reward: domain.NearToMagnitude(3), Liquid: domain.NearToMagnitude(2)})

	unresolved := AccountFailures.WithLabelValues(string(domain.FailurePoolUnresolved))
	before := testutil.ToFloat64(unresolved)

	ObserveReport(domain.Report{
		EpochProgress: &progress,
		Totals:        acc.Totals(),
		Failures:      []domain.AccountFailure{domain.NewAccountFailure("b.near", "", domain.ErrPoolUnresolved)},
	})

	if got := testutil.ToFloat64(RewardSum); got != 3 {
		t.Errorf("RewardSum = %v, want 3", got)
	}
	if got := testutil.ToFloat64(LiquidSum); got != 2 {
		t.Errorf("LiquidSum = %v, want 2", got)
	}
	if got := testutil.ToFloat64(EpochProgress); got != 42 {
		t.Errorf("EpochProgress = %v, want 42", got)
	}
	if got := testutil.ToFloat64(unresolved) - before; got != 1 {
		t.Errorf("pool_unresolved failures delta = %v, want 1", got)
	}
}
