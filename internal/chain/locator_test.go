package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/khorolets/near-rewards/internal/domain"
	"github.com/khorolets/near-rewards/internal/nearrpc"
)

type mockNode struct {
	final         uint64
	epochStart    uint64
	missing       map[uint64]bool
	blockErr      error
	validatorsErr error
	requested     []uint64
}

func (m *mockNode) Block(_ context.Context, id nearrpc.BlockID) (nearrpc.Block, error) {
	if id.Height() == 0 {
		if m.blockErr != nil {
			return nearrpc.Block{}, m.blockErr
		}
		return nearrpc.Block{Header: nearrpc.BlockHeader{Height: m.final, Hash: "final-hash"}}, nil
	}
	m.requested = append(m.requested, id.Height())
	if m.missing[id.Height()] {
		return nearrpc.Block{}, &nearrpc.RPCError{Name: "HANDLER_ERROR", Cause: &nearrpc.ErrorCause{Name: "UNKNOWN_BLOCK"}}
	}
	if m.blockErr != nil {
		return nearrpc.Block{}, m.blockErr
	}
	return nearrpc.Block{Header: nearrpc.BlockHeader{Height: id.Height(), Hash: "ref-hash"}}, nil
}

func (m *mockNode) Validators(_ context.Context) (nearrpc.Validators, error) {
	return nearrpc.Validators{EpochStartHeight: m.epochStart}, m.validatorsErr
}

func TestLocatePreviousEpochStart(t *testing.T) {
	node := &mockNode{final: 100_000, epochStart: 90_000}
	l := NewLocator(node, AnchorPreviousEpochStart, 5, 3)

	current, reference, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.ChainSnapshot{Height: 100_000, BlockHash: "final-hash", EpochStartHeight: 90_000}
	if current != want {
		t.Errorf("current = %+v, want %+v", current, want)
	}
	if reference.Height != 90_000-43_200+5 {
		t.Errorf("reference height = %d, want %d", reference.Height, 90_000-43_200+5)
	}
	if reference.EpochStartHeight != 90_000-43_200 {
		t.Errorf("reference epoch start = %d, want %d", reference.EpochStartHeight, 90_000-43_200)
	}
}

func TestLocateCurrentEpochStartProbesBackward(t *testing.T) {
	node := &mockNode{final: 100_000, epochStart: 90_000, missing: map[uint64]bool{89_995: true, 89_994: true}}
	l := NewLocator(node, AnchorCurrentEpochStart, 5, 4)

	_, reference, err := l.Locate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reference.Height != 89_993 {
		t.Errorf("reference height = %d, want 89993", reference.Height)
	}
	want := []uint64{89_995, 89_994, 89_993}
	if len(node.requested) != len(want) {
		t.Fatalf("requested = %v, want %v", node.requested, want)
	}
	for i := range want {
		if node.requested[i] != want[i] {
			t.Errorf("requested[%d] = %d, want %d", i, node.requested[i], want[i])
		}
	}
}

func TestLocateProbesExhausted(t *testing.T) {
	node := &mockNode{final: 100_000, epochStart: 90_000, missing: map[uint64]bool{46_805: true, 46_806: true}}
	l := NewLocator(node, AnchorPreviousEpochStart, 5, 2)

	_, _, err := l.Locate(context.Background())
	if !errors.Is(err, domain.ErrChainSnapshot) {
		t.Fatalf("error = %v, want ErrChainSnapshot", err)
	}
	if !errors.Is(err, nearrpc.ErrUnknownBlock) {
		t.Errorf("error = %v, want cause ErrUnknownBlock", err)
	}
}

func TestLocateFatalErrors(t *testing.T) {
	tests := []struct {
		name string
		node *mockNode
	}{
		{"final block", &mockNode{blockErr: errors.New("connection refused")}},
		{"validators", &mockNode{final: 100_000, validatorsErr: errors.New("timeout")}},
		{"no previous epoch", &mockNode{final: 100, epochStart: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewLocator(tt.node, AnchorPreviousEpochStart, 5, 3).Locate(context.Background())
			if !errors.Is(err, domain.ErrChainSnapshot) {
				t.Errorf("error = %v, want ErrChainSnapshot", err)
			}
		})
	}
}

func TestParseAnchor(t *testing.T) {
	if a, err := ParseAnchor("current-epoch-start"); err != nil || a != AnchorCurrentEpochStart {
		t.Errorf("ParseAnchor = %q, %v", a, err)
	}
	if _, err := ParseAnchor("yesterday"); err == nil {
		t.Error("expected error for unknown anchor")
	}
}
