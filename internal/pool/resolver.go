package pool

import (
	"context"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/khorolets/near-rewards/internal/domain"
)

// Lookup queries the staking pool an account's contract has selected.
type Lookup interface {
	GetStakingPoolAccountID(ctx context.Context, accountID string) (string, error)
}

// Resolver turns tracked accounts into resolved accounts. Pool ids looked up on
// chain are memoized for the lifetime of the Resolver.
type Resolver struct {
	lookup Lookup
	memo   *gocache.Cache
	group  singleflight.Group
}

// NewResolver creates a Resolver backed by lookup.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		panic("pool.NewResolver: lookup is nil")
	}
	return &Resolver{
		lookup: lookup,
		memo:   gocache.New(gocache.NoExpiration, 0),
	}
}

// Resolve returns the account together with its staking pool. A pool id already
// present on the account is used as is, without touching the network.
func (r *Resolver) Resolve(ctx context.Context, acc domain.TrackedAccount) (domain.ResolvedAccount, error) {
	if acc.HasPool() {
		return domain.ResolvedAccount{Account: acc, PoolAccountID: acc.PoolAccountID}, nil
	}

	if cached, ok := r.memo.Get(acc.AccountID); ok {
		return domain.ResolvedAccount{Account: acc, PoolAccountID: cached.(string)}, nil
	}

	v, err, _ := r.group.Do(acc.AccountID, func() (any, error) {
		poolID, err := r.lookup.GetStakingPoolAccountID(ctx, acc.AccountID)
		if err != nil {
			return "", err
		}
		r.memo.SetDefault(acc.AccountID, poolID)
		slog.Debug("pool: resolved staking pool", "account", acc.AccountID, "pool", poolID)
		return poolID, nil
	})
	if err != nil {
		return domain.ResolvedAccount{}, fmt.Errorf("resolving pool of %s: %w: %w", acc.AccountID, domain.ErrPoolUnresolved, err)
	}

	return domain.ResolvedAccount{Account: acc, PoolAccountID: v.(string)}, nil
}

// Forget drops a memoized pool id so the next resolution queries the chain again.
func (r *Resolver) Forget(accountID string) {
	r.memo.Delete(accountID)
}
