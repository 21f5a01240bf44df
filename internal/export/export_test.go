package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/khorolets/near-rewards/internal/domain"
)

func sampleReport(t *testing.T) domain.Report {
	t.Helper()

	acc := domain.NewTotalsAccumulator()
	mk := func(id, pool string, reward, ref, liquid uint64) domain.AccountRow {
		delta, err := domain.NewRewardDelta(domain.NearToMagnitude(reward), domain.NearToMagnitude(ref))
		if err != nil {
			t.Fatalf("delta: %v", err)
		}
		return acc.Add(domain.AccountRow{
			AccountID:     id,
			PoolAccountID: pool,
			Reward:        domain.NearToMagnitude(reward),
			Delta:         delta,
			Liquid:        domain.NearToMagnitude(liquid),
			Unstaked:      domain.NearToMagnitude(1),
			CanWithdraw:   true,
			Native:        domain.NearToMagnitude(2),
		})
	}

	progress := uint64(25)
	return domain.Report{
		Current:       domain.ChainSnapshot{Height: 1010, EpochStartHeight: 1000},
		Reference:     domain.ChainSnapshot{Height: 960},
		EpochProgress: &progress,
		Rows: []domain.AccountRow{
			mk("alice.near", "pool-a.near", 10, 8, 3),
			mk("alice.near", "pool-b.near", 5, 6, 3),
		},
		Failures: []domain.AccountFailure{{AccountID: "bob.near", Kind: domain.FailureDelegation, Message: "boom"}},
		Totals:   acc.Totals(),
	}
}

func TestBuildRewardRows(t *testing.T) {
	rows := buildRewardRows(sampleReport(t))

	// header + 2 rows + totals
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if len(rows[0]) != 9 || rows[0][0] != "Account" || rows[0][8] != "Native" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][2] != 10.0 || rows[1][3] != 2.0 || rows[1][5] != true {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][3] != -1.0 || rows[2][5] != false {
		t.Errorf("second row = %v, want delta -1 and liquid not counted", rows[2])
	}
	if rows[3][0] != "TOTAL" || rows[3][2] != 15.0 || rows[3][4] != 3.0 {
		t.Errorf("totals row = %v, want reward 15 and liquid 3", rows[3])
	}
}

func TestBuildHistoryRowWithoutProgress(t *testing.T) {
	report := sampleReport(t)
	report.EpochProgress = nil

	row := buildHistoryRow(report, report.GeneratedAt)
	if row[3] != nil {
		t.Errorf("progress = %v, want nil", row[3])
	}
	if row[6] != 2.0 || row[7] != 1.0 {
		t.Errorf("counts = %v/%v, want 2/1", row[6], row[7])
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rewards.xlsx")

	if err := NewXLSXWriter(path).Write(context.Background(), sampleReport(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("opening xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(rewardsSheet)
	if err != nil {
		t.Fatalf("reading rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[1][0] != "alice.near" || rows[1][1] != "pool-a.near" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[3][0] != "TOTAL" || rows[3][2] != "15" {
		t.Errorf("totals row = %v", rows[3])
	}

	failures, err := f.GetRows(failuresSheet)
	if err != nil {
		t.Fatalf("reading failures: %v", err)
	}
	if len(failures) != 2 || failures[1][2] != "delegation_query" {
		t.Errorf("failures = %v", failures)
	}
}

type mockWriter struct {
	name   string
	err    error
	called int
}

func (m *mockWriter) Name() string { return m.name }

func (m *mockWriter) Write(_ context.Context, _ domain.Report) error {
	m.called++
	return m.err
}

func TestExporterContinuesAfterFailure(t *testing.T) {
	errSheets := errors.New("quota exceeded")
	first := &mockWriter{name: "google_sheets", err: errSheets}
	second := &mockWriter{name: "xlsx"}

	e := NewExporter(first, nil, second)
	if e.Len() != 2 {
		t.Fatalf("Len = %d, want 2", e.Len())
	}

	err := e.Export(context.Background(), sampleReport(t))
	if !errors.Is(err, errSheets) {
		t.Errorf("error = %v, want %v", err, errSheets)
	}
	if first.called != 1 || second.called != 1 {
		t.Errorf("calls = %d/%d, want 1/1", first.called, second.called)
	}
}
