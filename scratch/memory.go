package scratch

import (
	"context"
	"fmt"
	"slices"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/atomenv/types"
)

// Memory is a ScratchStore kept in process memory.
//
// It is safe for concurrent use, so goroutine ranks of one process can share a
// single instance.
type Memory struct {
	entries *xsync.Map[string, []byte]
}

var _ types.ScratchStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: xsync.NewMap[string, []byte]()}
}

// Put stores a copy of data under key.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.entries.Store(key, slices.Clone(data))

	return nil
}

// Get returns a copy of the data stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.entries.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrScratchEntryMissing, key)
	}

	return slices.Clone(data), nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)

	return nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	return m.entries.Size()
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.entries.Clear()
}
