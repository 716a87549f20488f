package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
)

func TestParallelizeN_CoversEveryItem(t *testing.T) {
	for _, items := range []int{0, 1, 7, 1000} {
		seen := make([]int32, items)
		ParallelizeN(items, 3, func(_, start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, n := range seen {
			if n != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, n)
			}
		}
	}
}

func TestParallelizeN_ChunkIndex(t *testing.T) {
	const items = 103
	workers := 4
	partial := make([]int, Chunks(items, workers))

	ParallelizeN(items, workers, func(chunk, start, end int) {
		for i := start; i < end; i++ {
			partial[chunk] += i
		}
	})

	total := 0
	for _, p := range partial {
		total += p
	}
	if want := items * (items - 1) / 2; total != want {
		t.Errorf("sum = %d, want %d", total, want)
	}
}

func TestWorkers(t *testing.T) {
	limit := runtime.GOMAXPROCS(0)
	tests := []struct {
		requested int
		want      int
	}{
		{0, limit},
		{-1, limit},
		{limit + 10, limit},
		{1, 1},
	}
	for _, tt := range tests {
		if got := Workers(tt.requested); got != tt.want {
			t.Errorf("Workers(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
	if got := Chunks(2, 64); got > 2 {
		t.Errorf("Chunks should not exceed items: %d", got)
	}
	if got := Chunks(0, 4); got != 0 {
		t.Errorf("Chunks(0, 4) = %d", got)
	}
}

func TestForEach(t *testing.T) {
	out := make([]int, 20)
	err := ForEach(context.Background(), len(out), 2, func(_ context.Context, i int) error {
		out[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
}

func TestForEach_FirstError(t *testing.T) {
	boom := errors.New("file 3 unreadable")
	err := ForEach(context.Background(), 10, 1, func(_ context.Context, i int) error {
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
}

func TestForEach_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	err := ForEach(ctx, 5, 2, func(context.Context, int) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}
