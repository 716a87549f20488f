package performance

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"4g", 4 << 30, false},
		{"4G", 4 << 30, false},
		{"512m", 512 << 20, false},
		{"64k", 64 << 10, false},
		{"2gb", 2 << 30, false},
		{"1t", 1 << 40, false},
		{"1024", 1024, false},
		{"", 0, true},
		{"b", 0, true},
		{"g", 0, true},
		{"-1m", 0, true},
		{"lots", 0, true},
		{"8388607t", 8388607 << 40, false},
		{"8388608t", 0, true},
		{"99999999999g", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestMemoryBudget(t *testing.T) {
	b := NewMemoryBudget(100)

	if err := b.Allocate("frame", 60); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.CanAllocate(50) {
		t.Error("60 + 50 should not fit in 100")
	}
	err := b.Allocate("matrix", 50)
	if !errors.Is(err, ErrMemoryBudget) {
		t.Fatalf("expected ErrMemoryBudget, got %v", err)
	}

	b.Free(60)
	if used, max := b.GetUsage(); used != 0 || max != 100 {
		t.Errorf("usage = %d/%d", used, max)
	}
	b.Free(10)
	if used, _ := b.GetUsage(); used != 0 {
		t.Errorf("usage should not go negative, got %d", used)
	}
}

func TestMemoryBudget_Unlimited(t *testing.T) {
	b := NewMemoryBudget(0)
	if err := b.Allocate("anything", 1<<40); err != nil {
		t.Errorf("unlimited budget rejected allocation: %v", err)
	}
	if !b.CanAllocate(1 << 50) {
		t.Error("unlimited budget should always allow allocation")
	}
}
