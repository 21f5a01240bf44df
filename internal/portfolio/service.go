package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/metrics"
	"github.com/khorolets/near-rewards/internal/nearrpc"
)

// LedgerClient defines the subset of the NEAR RPC used to collect a balance snapshot.
type LedgerClient interface {
	GetAccountInPool(ctx context.Context, poolID, accountID string, id nearrpc.BlockID) (nearrpc.PoolAccount, error)
	GetLockedAmount(ctx context.Context, accountID string, id nearrpc.BlockID) (domain.Magnitude, error)
	GetLiquidOwnersBalance(ctx context.Context, accountID string, id nearrpc.BlockID) (domain.Magnitude, error)
	GetNativeBalance(ctx context.Context, accountID string, id nearrpc.BlockID) (domain.Magnitude, error)
}

// Service collects balance snapshots of resolved accounts.
type Service struct {
	ledger LedgerClient
}

// NewService creates a new portfolio Service.
func NewService(ledger LedgerClient) *Service {
	if ledger == nil {
		panic("portfolio.NewService: ledger is nil")
	}
	return &Service{ledger: ledger}
}

// Collect queries the delegated stake, the lock schedule, the native balance and the
// liquid balance of acc at the snapshot's height and combines them into one snapshot.
//
// Delegated stake and native balance are required. A failed lock query counts as
// nothing locked and a failed liquid query falls back to the native balance.
func (s *Service) Collect(ctx context.Context, acc domain.ResolvedAccount, chain domain.ChainSnapshot) (domain.BalanceSnapshot, error) {
	accountID := acc.AccountID()
	at := nearrpc.AtHeight(chain.Height)

	var (
		stake                  nearrpc.PoolAccount
		locked, native, liquid domain.Magnitude
		lockedErr, liquidErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stake, err = s.ledger.GetAccountInPool(gctx, acc.PoolAccountID, accountID, at)
		if err != nil {
			return fmt.Errorf("%w: %s in %s at %d: %w", domain.ErrDelegationQuery, accountID, acc.PoolAccountID, chain.Height, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		native, err = s.ledger.GetNativeBalance(gctx, accountID, at)
		if err != nil {
			return fmt.Errorf("%w: %s at %d: %w", domain.ErrNativeBalanceQuery, accountID, chain.Height, err)
		}
		return nil
	})
	if acc.Account.LockedAmountOverride != nil {
		locked = *acc.Account.LockedAmountOverride
	} else {
		g.Go(func() error {
			locked, lockedErr = s.ledger.GetLockedAmount(gctx, accountID, at)
			return nil
		})
	}
	g.Go(func() error {
		liquid, liquidErr = s.ledger.GetLiquidOwnersBalance(gctx, accountID, at)
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.BalanceSnapshot{}, err
	}

	snap := domain.BalanceSnapshot{
		AccountID:     accountID,
		PoolAccountID: acc.PoolAccountID,
		Chain:         chain,
		Staked:        stake.StakedBalance,
		Unstaked:      stake.UnstakedBalance,
		CanWithdraw:   stake.CanWithdraw,
		Locked:        locked,
		Native:        native,
		Liquid:        liquid,
	}

	if lockedErr != nil {
		slog.Warn("portfolio: lock schedule unavailable, assuming nothing locked",
			"account", accountID, "height", chain.Height, "error", lockedErr)
		metrics.ObserveFallback("locked_amount")
		snap.Locked = domain.Magnitude{}
		snap.LockedDefaulted = true
	}
	if liquidErr != nil {
		slog.Warn("portfolio: liquid balance unavailable, using native balance",
			"account", accountID, "height", chain.Height, "error", liquidErr)
		metrics.ObserveFallback("liquid_owners_balance")
		snap.Liquid = native
		snap.LiquidFromNative = true
	}

	reward, err := domain.ComputeReward(snap.Staked, snap.Unstaked, snap.Native, snap.Locked)
	if err != nil {
		return domain.BalanceSnapshot{}, fmt.Errorf("%s at %d: %w", accountID, chain.Height, err)
	}
	snap.Reward = reward

	return snap, nil
}
