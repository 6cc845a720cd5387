package reporting

import (
	"context"
	"sync"
)

// MemoryRepo keeps snapshots in memory, oldest first.
type MemoryRepo struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) AppendSnapshot(ctx context.Context, s Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return nil
}

func (r *MemoryRepo) LatestSnapshot(ctx context.Context) (Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return Snapshot{}, false, nil
	}
	return r.snapshots[len(r.snapshots)-1], true, nil
}

func (r *MemoryRepo) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out, nil
}
