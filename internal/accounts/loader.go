package accounts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/khorolets/near-rewards/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrFileMissing is returned when the accounts file does not exist.
var ErrFileMissing = errors.New("accounts file missing")

// ErrInvalidAccount is returned when an entry of the accounts file cannot be tracked.
var ErrInvalidAccount = errors.New("invalid account entry")

// Example is printed when the accounts file is missing.
const Example = `[
  {
    "account_id": "accountid.near",
    "pool_account_id": "nameofpool.poolv1.near"
  }
]`

// Load reads the tracked accounts from a JSON array at path.
func Load(path string) ([]domain.TrackedAccount, error) {
	slog.Info("accounts: reading", "path", path)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: create %s with the list of accounts to check, for example:\n%s",
			ErrFileMissing, path, Example)
	}
	if err != nil {
		return nil, fmt.Errorf("reading accounts file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates an accounts list.
func Parse(data []byte) ([]domain.TrackedAccount, error) {
	var list []domain.TrackedAccount
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing accounts file: %w", err)
	}

	for i := range list {
		list[i].AccountID = strings.TrimSpace(list[i].AccountID)
		list[i].PoolAccountID = strings.TrimSpace(list[i].PoolAccountID)
		if list[i].AccountID == "" {
			return nil, fmt.Errorf("%w: entry %d has no account_id", ErrInvalidAccount, i)
		}
	}

	slog.Debug("accounts: loaded", "count", len(list))
	return list, nil
}
