package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/nearrpc"
)

type mockLedger struct {
	mu      sync.Mutex
	heights []uint64

	stake     nearrpc.PoolAccount
	stakeErr  error
	locked    domain.Magnitude
	lockedErr error
	lockCalls int
	native    domain.Magnitude
	nativeErr error
	liquid    domain.Magnitude
	liquidErr error
}

func (m *mockLedger) seen(id nearrpc.BlockID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heights = append(m.heights, id.Height())
}

func (m *mockLedger) GetAccountInPool(_ context.Context, _, _ string, id nearrpc.BlockID) (nearrpc.PoolAccount, error) {
	m.seen(id)
	return m.stake, m.stakeErr
}

func (m *mockLedger) GetLockedAmount(_ context.Context, _ string, id nearrpc.BlockID) (domain.Magnitude, error) {
	m.seen(id)
	m.mu.Lock()
	m.lockCalls++
	m.mu.Unlock()
	return m.locked, m.lockedErr
}

func (m *mockLedger) GetLiquidOwnersBalance(_ context.Context, _ string, id nearrpc.BlockID) (domain.Magnitude, error) {
	m.seen(id)
	return m.liquid, m.liquidErr
}

func (m *mockLedger) GetNativeBalance(_ context.Context, _ string, id nearrpc.BlockID) (domain.Magnitude, error) {
	m.seen(id)
	return m.native, m.nativeErr
}

var (
	alice = domain.ResolvedAccount{
		Account:       domain.TrackedAccount{AccountID: "alice.lockup.near"},
		PoolAccountID: "pool.poolv1.near",
	}
	chainAt1005 = domain.ChainSnapshot{Height: 1005, EpochStartHeight: 1000}
)

func TestCollectLiquidFallsBackToNative(t *testing.T) {
	ledger := &mockLedger{
		stake:     nearrpc.PoolAccount{StakedBalance: domain.NearToMagnitude(100)},
		native:    domain.NearToMagnitude(5),
		liquidErr: errors.New("method not found"),
	}

	snap, err := NewService(ledger).Collect(context.Background(), alice, chainAt1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Liquid.Cmp(domain.NearToMagnitude(5)) != 0 || !snap.LiquidFromNative {
		t.Errorf("liquid = %s (fallback %v), want 5 NEAR from native", snap.Liquid, snap.LiquidFromNative)
	}
	if !snap.Reward.Human().Equal(decimal.NewFromInt(100)) {
		t.Errorf("reward = %s, want 100", snap.Reward.Human())
	}
	for _, h := range ledger.heights {
		if h != 1005 {
			t.Errorf("query ran at height %d, want 1005", h)
		}
	}
	if len(ledger.heights) != 4 {
		t.Errorf("ran %d queries, want 4", len(ledger.heights))
	}
}

func TestCollectLockedIncludesNative(t *testing.T) {
	ledger := &mockLedger{
		stake:  nearrpc.PoolAccount{StakedBalance: domain.NearToMagnitude(50), CanWithdraw: true},
		locked: domain.NearToMagnitude(20),
		native: domain.NearToMagnitude(20),
		liquid: domain.NearToMagnitude(3),
	}

	snap, err := NewService(ledger).Collect(context.Background(), alice, chainAt1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Reward.Human().Equal(decimal.NewFromInt(50)) {
		t.Errorf("reward = %s, want 50", snap.Reward.Human())
	}
	if snap.LiquidFromNative || snap.LockedDefaulted {
		t.Errorf("no fallback expected: %+v", snap)
	}
	if !snap.CanWithdraw || snap.Chain != chainAt1005 {
		t.Errorf("snapshot fields not carried: %+v", snap)
	}
}

func TestCollectLockFailureCountsAsZero(t *testing.T) {
	ledger := &mockLedger{
		stake:     nearrpc.PoolAccount{StakedBalance: domain.NearToMagnitude(10)},
		lockedErr: errors.New("not a lockup"),
		native:    domain.NearToMagnitude(7),
		liquid:    domain.NearToMagnitude(7),
	}

	snap, err := NewService(ledger).Collect(context.Background(), alice, chainAt1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.LockedDefaulted || !snap.Locked.IsZero() {
		t.Errorf("locked = %s (defaulted %v), want 0 defaulted", snap.Locked, snap.LockedDefaulted)
	}
	// nothing locked, so the native balance is not part of the reward
	if !snap.Reward.Human().Equal(decimal.NewFromInt(10)) {
		t.Errorf("reward = %s, want 10", snap.Reward.Human())
	}
}

func TestCollectLockedOverride(t *testing.T) {
	override := domain.NearToMagnitude(4)
	acc := alice
	acc.Account.LockedAmountOverride = &override

	ledger := &mockLedger{
		stake:  nearrpc.PoolAccount{StakedBalance: domain.NearToMagnitude(10)},
		locked: domain.NearToMagnitude(999),
		native: domain.NearToMagnitude(1),
		liquid: domain.NearToMagnitude(1),
	}

	snap, err := NewService(ledger).Collect(context.Background(), acc, chainAt1005)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.lockCalls != 0 {
		t.Errorf("lock schedule queried %d times, want 0 with override", ledger.lockCalls)
	}
	// 10 + 0 + 1 - 4
	if !snap.Reward.Human().Equal(decimal.NewFromInt(7)) {
		t.Errorf("reward = %s, want 7", snap.Reward.Human())
	}
}

func TestCollectFatalQueries(t *testing.T) {
	tests := []struct {
		name    string
		ledger  *mockLedger
		wantErr error
	}{
		{
			name:    "delegation",
			ledger:  &mockLedger{stakeErr: errors.New("pool gone")},
			wantErr: domain.ErrDelegationQuery,
		},
		{
			name:    "native balance",
			ledger:  &mockLedger{nativeErr: nearrpc.ErrUnknownAccount},
			wantErr: domain.ErrNativeBalanceQuery,
		},
		{
			name: "negative reward",
			ledger: &mockLedger{
				stake:  nearrpc.PoolAccount{StakedBalance: domain.NearToMagnitude(1)},
				locked: domain.NearToMagnitude(50),
				native: domain.NearToMagnitude(1),
			},
			wantErr: domain.ErrNegativeReward,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.ledger).Collect(context.Background(), alice, chainAt1005)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
