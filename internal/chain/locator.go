package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/nearrpc"
)

// Anchor selects which epoch boundary the reference block is measured from.
type Anchor string

const (
	// AnchorPreviousEpochStart probes forward from the start of the previous epoch.
	AnchorPreviousEpochStart Anchor = "previous-epoch-start"
	// AnchorCurrentEpochStart probes backward from the start of the current epoch,
	// landing on the last blocks of the previous epoch.
	AnchorCurrentEpochStart Anchor = "current-epoch-start"
)

// ParseAnchor validates an anchor name.
func ParseAnchor(s string) (Anchor, error) {
	switch a := Anchor(s); a {
	case AnchorPreviousEpochStart, AnchorCurrentEpochStart:
		return a, nil
	}
	return "", fmt.Errorf("unknown reference anchor %q", s)
}

// Node defines the chain queries used to pin the two snapshots of a run.
type Node interface {
	Block(ctx context.Context, id nearrpc.BlockID) (nearrpc.Block, error)
	Validators(ctx context.Context) (nearrpc.Validators, error)
}

// Locator establishes the current and reference chain snapshots of a run.
type Locator struct {
	node   Node
	anchor Anchor
	offset uint64
	probes int
}

// NewLocator creates a Locator. The reference block is searched at offset blocks from
// the anchor and, if the node does not have that block, at up to probes-1 further heights.
func NewLocator(node Node, anchor Anchor, offset uint64, probes int) *Locator {
	if node == nil {
		panic("chain.NewLocator: node is nil")
	}
	return &Locator{node: node, anchor: anchor, offset: offset, probes: max(probes, 1)}
}

// Locate returns the latest final block and the reference block.
func (l *Locator) Locate(ctx context.Context) (current, reference domain.ChainSnapshot, err error) {
	current, err = l.Current(ctx)
	if err != nil {
		return domain.ChainSnapshot{}, domain.ChainSnapshot{}, err
	}
	reference, err = l.Reference(ctx, current.EpochStartHeight)
	if err != nil {
		return domain.ChainSnapshot{}, domain.ChainSnapshot{}, err
	}
	return current, reference, nil
}

// Current returns the latest final block together with the current epoch start.
func (l *Locator) Current(ctx context.Context) (domain.ChainSnapshot, error) {
	block, err := l.node.Block(ctx, nearrpc.Final)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("%w: final block: %w", domain.ErrChainSnapshot, err)
	}
	validators, err := l.node.Validators(ctx)
	if err != nil {
		return domain.ChainSnapshot{}, fmt.Errorf("%w: validators: %w", domain.ErrChainSnapshot, err)
	}
	return domain.ChainSnapshot{
		Height:           block.Header.Height,
		BlockHash:        block.Header.Hash,
		EpochStartHeight: validators.EpochStartHeight,
	}, nil
}

// Reference finds the reference block for an epoch starting at epochStart.
func (l *Locator) Reference(ctx context.Context, epochStart uint64) (domain.ChainSnapshot, error) {
	heights, prevEpochStart, err := l.candidates(epochStart)
	if err != nil {
		return domain.ChainSnapshot{}, err
	}

	var lastErr error
	for _, h := range heights {
		block, err := l.node.Block(ctx, nearrpc.AtHeight(h))
		if err == nil {
			return domain.ChainSnapshot{
				Height:           block.Header.Height,
				BlockHash:        block.Header.Hash,
				EpochStartHeight: prevEpochStart,
			}, nil
		}
		if !errors.Is(err, nearrpc.ErrUnknownBlock) {
			return domain.ChainSnapshot{}, fmt.Errorf("%w: reference block %d: %w", domain.ErrChainSnapshot, h, err)
		}
		slog.Debug("chain: reference block unavailable, probing next height", "height", h)
		lastErr = err
	}
	return domain.ChainSnapshot{}, fmt.Errorf("%w: no reference block among %v: %w", domain.ErrChainSnapshot, heights, lastErr)
}

// candidates lists the heights to probe, nearest to the anchor first.
func (l *Locator) candidates(epochStart uint64) ([]uint64, uint64, error) {
	if epochStart < domain.EpochLength {
		return nil, 0, fmt.Errorf("%w: epoch start %d has no previous epoch", domain.ErrChainSnapshot, epochStart)
	}
	prevEpochStart := epochStart - domain.EpochLength

	heights := make([]uint64, 0, l.probes)
	for i := range uint64(l.probes) {
		step := l.offset + i
		if l.anchor != AnchorCurrentEpochStart {
			heights = append(heights, prevEpochStart+step)
			continue
		}
		// stay inside the previous epoch
		if step == 0 || step > domain.EpochLength {
			continue
		}
		heights = append(heights, epochStart-step)
	}
	if len(heights) == 0 {
		return nil, 0, fmt.Errorf("%w: no reference heights to probe", domain.ErrChainSnapshot)
	}
	return heights, prevEpochStart, nil
}
