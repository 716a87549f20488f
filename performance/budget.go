// Package performance tracks the memory a run is allowed to hold.
package performance

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/YuminosukeSato/crashseverity/pkg/errors"
)

// ErrMemoryBudget is returned when an allocation would exceed the budget.
var ErrMemoryBudget = errors.New("memory budget exceeded")

// MemoryBudget accounts for large in-memory structures against a fixed limit.
// It only counts what callers report; it does not measure the heap.
type MemoryBudget struct {
	maxMemory   int64
	currentUsed int64
	mu          sync.Mutex
}

// NewMemoryBudget creates a budget of maxBytes. A non-positive limit means
// unlimited.
func NewMemoryBudget(maxBytes int64) *MemoryBudget {
	return &MemoryBudget{maxMemory: maxBytes}
}

// CanAllocate checks if allocation is possible within memory limits
func (m *MemoryBudget) CanAllocate(bytes int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.maxMemory <= 0 || m.currentUsed+bytes <= m.maxMemory
}

// Allocate reserves bytes, or fails with ErrMemoryBudget.
func (m *MemoryBudget) Allocate(what string, bytes int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxMemory > 0 && m.currentUsed+bytes > m.maxMemory {
		return errors.Wrapf(ErrMemoryBudget, "%s needs %d bytes, %d of %d in use",
			what, bytes, m.currentUsed, m.maxMemory)
	}
	m.currentUsed += bytes
	return nil
}

// Free releases a previous reservation.
func (m *MemoryBudget) Free(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentUsed -= bytes
	if m.currentUsed < 0 {
		m.currentUsed = 0
	}
}

// GetUsage returns current memory usage
func (m *MemoryBudget) GetUsage() (used, max int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.currentUsed, m.maxMemory
}

// ParseSize reads a JVM-style memory size such as "4g", "512m", "64k" or a
// plain byte count.
func ParseSize(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, errors.NewValueError("ParseSize", "empty size")
	}
	s = strings.TrimSuffix(s, "b")
	if s == "" {
		return 0, errors.NewValueError("ParseSize", "missing number")
	}

	mult := int64(1)
	switch s[len(s)-1] {
	case 'k':
		mult = 1 << 10
	case 'm':
		mult = 1 << 20
	case 'g':
		mult = 1 << 30
	case 't':
		mult = 1 << 40
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.NewValueError("ParseSize", "invalid size "+strconv.Quote(s))
	}
	if n > math.MaxInt64/mult {
		return 0, errors.NewValueError("ParseSize", "size "+strconv.Quote(s)+" overflows int64")
	}
	return n * mult, nil
}
