package service

import "sync"

// productLocks serializes reservation creation per product id so two
// concurrent requests for the last unit cannot both pass the
// availability check.
type productLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *productLocks) lock(productID string) func() {
	p.mu.Lock()
	l, ok := p.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		p.locks[productID] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
