package domain

import (
	"errors"
	"testing"
)

func TestEpochProgress(t *testing.T) {
	tests := []struct {
		start, current uint64
		want           uint64
	}{
		{1000, 1000, 0},
		{1000, 22600, 50},
		{1000, 1431, 0},
		{1000, 1432, 1},
		{1000, 44199, 99},
		{1000, 44200, 100},
	}

	for _, tt := range tests {
		got, err := EpochProgress(tt.start, tt.current)
		if err != nil {
			t.Fatalf("EpochProgress(%d, %d) error: %v", tt.start, tt.current, err)
		}
		if got != tt.want {
			t.Errorf("EpochProgress(%d, %d) = %d, want %d", tt.start, tt.current, got, tt.want)
		}
	}
}

func TestEpochProgressRejectsHeightBeforeStart(t *testing.T) {
	_, err := EpochProgress(1000, 999)
	if !errors.Is(err, ErrHeightBeforeEpochStart) {
		t.Errorf("error = %v, want ErrHeightBeforeEpochStart", err)
	}
}
