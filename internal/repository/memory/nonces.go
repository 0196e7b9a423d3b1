package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/repository"
)

var _ repository.Nonces = (*Nonces)(nil)

// Nonces remembers consumed token ids until their ttl passes.
type Nonces struct {
	mu   sync.Mutex
	used map[string]time.Time
	now  func() time.Time
}

func NewNonces() *Nonces {
	return &Nonces{used: map[string]time.Time{}, now: time.Now}
}

func (n *Nonces) Consume(_ context.Context, id string, ttl time.Duration) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	for k, exp := range n.used {
		if !now.Before(exp) {
			delete(n.used, k)
		}
	}
	if _, ok := n.used[id]; ok {
		return false, nil
	}
	n.used[id] = now.Add(ttl)
	return true, nil
}
