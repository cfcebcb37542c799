package sim

import (
	"sync"

	"github.com/san-kum/clothsim/internal/cloth"
)

// SnapshotPool recycles snapshot buffers sized for one cloth.
type SnapshotPool struct {
	pool  sync.Pool
	nodes int
}

func NewSnapshotPool(nodes int) *SnapshotPool {
	return &SnapshotPool{
		nodes: nodes,
		pool: sync.Pool{
			New: func() interface{} {
				return &cloth.Snapshot{}
			},
		},
	}
}

func (p *SnapshotPool) Get() *cloth.Snapshot {
	return p.pool.Get().(*cloth.Snapshot)
}

// Put returns s to the pool. Snapshots of a different size are dropped.
func (p *SnapshotPool) Put(s *cloth.Snapshot) {
	if s == nil || len(s.Positions) != p.nodes {
		return
	}
	p.pool.Put(s)
}

func copySnapshot(dst, src *cloth.Snapshot) {
	dst.Tick = src.Tick
	dst.Time = src.Time
	dst.Cols = src.Cols
	dst.Rows = src.Rows
	dst.Positions = append(dst.Positions[:0], src.Positions...)
	dst.Velocities = append(dst.Velocities[:0], src.Velocities...)
	dst.Fixed = append(dst.Fixed[:0], src.Fixed...)
}
