package nearrpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/khorolets/near-rewards/internal/domain"
)

// Account is the result of a view_account query.
type Account struct {
	Amount       domain.Magnitude `json:"amount"`
	Locked       domain.Magnitude `json:"locked"`
	CodeHash     string           `json:"code_hash"`
	StorageUsage uint64           `json:"storage_usage"`
	BlockHeight  uint64           `json:"block_height"`
	BlockHash    string           `json:"block_hash"`
}

// CallResult is the result of a call_function query.
type CallResult struct {
	// Result is the raw return value of the view method, transported as a JSON array of bytes.
	Result      []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	// Error is set by older nodes instead of a JSON-RPC error when the contract fails.
	Error string `json:"error"`
}

// Bytes returns the raw return value.
func (r CallResult) Bytes() ([]byte, error) {
	out := make([]byte, len(r.Result))
	for i, b := range r.Result {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("result byte %d out of range: %d", i, b)
		}
		out[i] = byte(b)
	}
	return out, nil
}

// PoolAccount is the delegation record returned by a staking pool's get_account.
type PoolAccount struct {
	AccountID       string           `json:"account_id"`
	UnstakedBalance domain.Magnitude `json:"unstaked_balance"`
	StakedBalance   domain.Magnitude `json:"staked_balance"`
	CanWithdraw     bool             `json:"can_withdraw"`
}

// ViewAccount fetches the account state at the given block.
func (c *Client) ViewAccount(ctx context.Context, accountID string, id BlockID) (Account, error) {
	params := id.apply(map[string]any{
		"request_type": "view_account",
		"account_id":   accountID,
	})
	var acc Account
	if err := c.call(ctx, "query", params, &acc); err != nil {
		return Account{}, fmt.Errorf("viewing account %s at %s: %w", accountID, id, err)
	}
	return acc, nil
}

// CallFunction runs a view method. args is JSON-encoded; nil sends no arguments.
func (c *Client) CallFunction(ctx context.Context, contractID, method string, args any, id BlockID) (CallResult, error) {
	argsBase64 := ""
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return CallResult{}, fmt.Errorf("encoding %s args: %w", method, err)
		}
		argsBase64 = base64.StdEncoding.EncodeToString(raw)
	}

	params := id.apply(map[string]any{
		"request_type": "call_function",
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  argsBase64,
	})

	var res CallResult
	if err := c.call(ctx, "query", params, &res); err != nil {
		return CallResult{}, fmt.Errorf("calling %s.%s at %s: %w", contractID, method, id, err)
	}
	if res.Error != "" {
		return CallResult{}, fmt.Errorf("calling %s.%s at %s: %s: %w", contractID, method, id, res.Error, ErrContractExecution)
	}
	return res, nil
}

// callView runs a view method and decodes its JSON return value into dest.
func (c *Client) callView(ctx context.Context, contractID, method string, args any, id BlockID, dest any) error {
	res, err := c.CallFunction(ctx, contractID, method, args, id)
	if err != nil {
		return err
	}
	raw, err := res.Bytes()
	if err != nil {
		return fmt.Errorf("decoding %s.%s result: %w", contractID, method, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("parsing %s.%s result %q: %w", contractID, method, string(raw), err)
	}
	return nil
}

// GetNativeBalance returns the account's own balance at the given block.
func (c *Client) GetNativeBalance(ctx context.Context, accountID string, id BlockID) (domain.Magnitude, error) {
	acc, err := c.ViewAccount(ctx, accountID, id)
	if err != nil {
		return domain.Magnitude{}, err
	}
	return acc.Amount, nil
}

// GetAccountInPool returns the delegation of accountID in the given staking pool.
func (c *Client) GetAccountInPool(ctx context.Context, poolID, accountID string, id BlockID) (PoolAccount, error) {
	var pa PoolAccount
	if err := c.callView(ctx, poolID, "get_account", map[string]string{"account_id": accountID}, id, &pa); err != nil {
		return PoolAccount{}, err
	}
	return pa, nil
}

// GetLockedAmount returns the amount still locked by a lockup contract.
func (c *Client) GetLockedAmount(ctx context.Context, accountID string, id BlockID) (domain.Magnitude, error) {
	var m domain.Magnitude
	if err := c.callView(ctx, accountID, "get_locked_amount", nil, id, &m); err != nil {
		return domain.Magnitude{}, err
	}
	return m, nil
}

// GetLiquidOwnersBalance returns the balance the lockup owner may withdraw.
func (c *Client) GetLiquidOwnersBalance(ctx context.Context, accountID string, id BlockID) (domain.Magnitude, error) {
	var m domain.Magnitude
	if err := c.callView(ctx, accountID, "get_liquid_owners_balance", nil, id, &m); err != nil {
		return domain.Magnitude{}, err
	}
	return m, nil
}

// GetStakingPoolAccountID returns the staking pool selected by a lockup contract
// at the latest final block.
func (c *Client) GetStakingPoolAccountID(ctx context.Context, accountID string) (string, error) {
	var poolID *string
	if err := c.callView(ctx, accountID, "get_staking_pool_account_id", nil, Final, &poolID); err != nil {
		return "", err
	}
	if poolID == nil || strings.TrimSpace(*poolID) == "" {
		return "", fmt.Errorf("account %s: %w", accountID, ErrNoStakingPool)
	}
	return *poolID, nil
}
