package nearrpc

import (
	"context"
	"fmt"
	"strconv"
)

// BlockID selects the block a request is evaluated against.
// The zero value is the latest final block.
type BlockID struct {
	height uint64
}

// Final is the latest final block.
var Final = BlockID{}

// AtHeight selects the block at height h.
func AtHeight(h uint64) BlockID {
	return BlockID{height: h}
}

// Height returns the selected height, or 0 for the latest final block.
func (b BlockID) Height() uint64 {
	return b.height
}

func (b BlockID) String() string {
	if b.height == 0 {
		return "final"
	}
	return strconv.FormatUint(b.height, 10)
}

// apply adds the block reference fields to a params object.
func (b BlockID) apply(params map[string]any) map[string]any {
	if b.height == 0 {
		params["finality"] = "final"
	} else {
		params["block_id"] = b.height
	}
	return params
}

// BlockHeader holds the header fields the reconciliation needs.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prev_hash"`
	EpochID   string `json:"epoch_id"`
	Timestamp uint64 `json:"timestamp"`
}

// Block is the result of the block method.
type Block struct {
	Author string      `json:"author"`
	Header BlockHeader `json:"header"`
}

// Validators is the subset of the validators result used here.
type Validators struct {
	EpochStartHeight uint64 `json:"epoch_start_height"`
	EpochHeight      uint64 `json:"epoch_height"`
}

// SyncInfo is the sync section of the status result.
type SyncInfo struct {
	LatestBlockHeight uint64 `json:"latest_block_height"`
	LatestBlockHash   string `json:"latest_block_hash"`
	LatestBlockTime   string `json:"latest_block_time"`
	Syncing           bool   `json:"syncing"`
}

// Status is the result of the status method.
type Status struct {
	ChainID  string   `json:"chain_id"`
	SyncInfo SyncInfo `json:"sync_info"`
	Version  struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	} `json:"version"`
}

// Block fetches a block by height or the latest final block.
func (c *Client) Block(ctx context.Context, id BlockID) (Block, error) {
	var b Block
	if err := c.call(ctx, "block", id.apply(map[string]any{}), &b); err != nil {
		return Block{}, fmt.Errorf("fetching block %s: %w", id, err)
	}
	return b, nil
}

// Validators fetches the validator info of the current epoch.
func (c *Client) Validators(ctx context.Context) (Validators, error) {
	var v Validators
	if err := c.call(ctx, "validators", []any{nil}, &v); err != nil {
		return Validators{}, fmt.Errorf("fetching validators: %w", err)
	}
	return v, nil
}

// Status fetches the node status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	if err := c.call(ctx, "status", []any{}, &s); err != nil {
		return Status{}, fmt.Errorf("fetching status: %w", err)
	}
	return s, nil
}
