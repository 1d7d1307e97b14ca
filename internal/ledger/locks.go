package ledger

import "sync"

const lockStripes = 64

// stripedLock serializes writers per position id with a fixed set of mutexes.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLock) lock(id int64) func() {
	m := &s.stripes[uint64(id)%lockStripes]
	m.Lock()
	return m.Unlock
}
