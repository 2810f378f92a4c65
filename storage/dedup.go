package storage

import (
	"context"
	"sync"

	"sbd/iridium"
	"sbd/log"
	"sbd/util/ident"

	"github.com/hashicorp/golang-lru"
)

type dedup struct {
	next Store
	seen *lru.Cache

	// mu guards seen and pending together; pending holds keys being stored right now.
	mu      sync.Mutex
	pending map[string]chan struct{}
}

// Dedup drops MO messages that next already stored. The gateway delivers a message again
// when it did not get through, and the second copy carries the same IMEI, MOMSN and CDR
// reference. Only the last size stored messages are remembered. A copy arriving while the
// first is being stored waits for it, and is stored itself if the first failed. MT
// messages always pass.
func Dedup(next Store, size int) (Store, error) {
	seen, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &dedup{next: next, seen: seen, pending: make(map[string]chan struct{})}, nil
}

func dedupKey(h iridium.MOHeader) string {
	return ident.With("imei", h.IMEI.String()).
		With("momsn", h.MOMSN).
		With("cdr", h.CDRReference).
		Hash()
}

func (d *dedup) Store(ctx context.Context, id string, m *iridium.Message) error {
	h, ok := m.MOHeader()
	if !ok {
		return d.next.Store(ctx, id, m)
	}
	key := dedupKey(h)
	for {
		done, wait, stored := d.claim(key)
		if stored {
			log.Debug("session %v: dropping duplicate of MOMSN %v from %v", id, h.MOMSN, h.IMEI)
			return nil
		}
		if done != nil {
			err := d.next.Store(ctx, id, m)
			d.release(key, id, done, err == nil)
			return err
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// claim reserves key for the caller, who must release it, unless it is stored already or
// another session holds it, in which case wait is closed on release.
func (d *dedup) claim(key string) (done, wait chan struct{}, stored bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen.Contains(key) {
		return nil, nil, true
	}
	if wait, ok := d.pending[key]; ok {
		return nil, wait, false
	}
	done = make(chan struct{})
	d.pending[key] = done
	return done, nil, false
}

func (d *dedup) release(key, id string, done chan struct{}, stored bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if stored {
		d.seen.Add(key, id)
	}
	delete(d.pending, key)
	close(done)
}
