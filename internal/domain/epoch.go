package domain

import "fmt"

// EpochLength is the number of blocks in a NEAR mainnet epoch.
const EpochLength uint64 = 43200

// EpochProgress returns how far, in whole percent, current is into the epoch starting at epochStart.
func EpochProgress(epochStart, current uint64) (uint64, error) {
	if current < epochStart {
		return 0, fmt.Errorf("height %d, epoch start %d: %w", current, epochStart, ErrHeightBeforeEpochStart)
	}
	return (current - epochStart) * 100 / EpochLength, nil
}
