package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khorolets/near-rewards/internal/domain"
)

type mockRunner struct {
	callCount atomic.Int32
	err       error
	accounts  atomic.Int32
}

func (m *mockRunner) Run(_ context.Context, accounts []domain.TrackedAccount) (domain.Report, error) {
	n := m.callCount.Add(1)
	m.accounts.Store(int32(len(accounts)))
	if m.err != nil {
		return domain.Report{}, m.err
	}
	return domain.Report{Current: domain.ChainSnapshot{Height: uint64(n)}}, nil
}

type mockHook struct {
	callCount atomic.Int32
	err       error
}

func (m *mockHook) Export(_ context.Context, _ domain.Report) error {
	m.callCount.Add(1)
	return m.err
}

func twoAccounts() ([]domain.TrackedAccount, error) {
	return []domain.TrackedAccount{{AccountID: "a.near"}, {AccountID: "b.near"}}, nil
}

func TestReportWorkerRunsAndShutdown(t *testing.T) {
	runner := &mockRunner{}
	hook := &mockHook{}
	w := NewReportWorker(runner, twoAccounts, 50*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := runner.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := runner.accounts.Load(); got != 2 {
		t.Errorf("accounts passed = %d, want 2", got)
	}
	if hook.callCount.Load() != runner.callCount.Load() {
		t.Errorf("hook calls = %d, runs = %d", hook.callCount.Load(), runner.callCount.Load())
	}
	if _, err := w.Latest(); err != nil {
		t.Errorf("Latest error = %v, want a report", err)
	}
}

func TestReportWorkerLatestBeforeFirstRun(t *testing.T) {
	w := NewReportWorker(&mockRunner{}, twoAccounts, time.Hour, nil)
	if _, err := w.Latest(); !errors.Is(err, ErrNoReport) {
		t.Errorf("error = %v, want ErrNoReport", err)
	}
}

func TestReportWorkerRefreshKeepsPreviousOnFailure(t *testing.T) {
	runner := &mockRunner{}
	hook := &mockHook{}
	w := NewReportWorker(runner, twoAccounts, time.Hour, hook)

	first, err := w.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	runner.err = errors.New("node unreachable")
	if _, err := w.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	latest, err := w.Latest()
	if err != nil {
		t.Fatalf("Latest error = %v", err)
	}
	if latest.Current.Height != first.Current.Height {
		t.Errorf("latest height = %d, want %d from the successful run", latest.Current.Height, first.Current.Height)
	}
	if got := hook.callCount.Load(); got != 1 {
		t.Errorf("hook calls = %d, want 1", got)
	}
}

func TestReportWorkerHookFailureKeepsReport(t *testing.T) {
	w := NewReportWorker(&mockRunner{}, twoAccounts, time.Hour, &mockHook{err: errors.New("sheets down")})

	if _, err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Latest(); err != nil {
		t.Errorf("Latest error = %v, want a report", err)
	}
}

func TestReportWorkerAccountSourceError(t *testing.T) {
	runner := &mockRunner{}
	errMissing := errors.New("accounts file missing")
	w := NewReportWorker(runner, func() ([]domain.TrackedAccount, error) { return nil, errMissing }, time.Hour, nil)

	if _, err := w.Refresh(context.Background()); !errors.Is(err, errMissing) {
		t.Errorf("error = %v, want %v", err, errMissing)
	}
	if got := runner.callCount.Load(); got != 0 {
		t.Errorf("runner called %d times, want 0", got)
	}
}
