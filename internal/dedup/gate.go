// Package dedup suppresses repeated detections of the same QR payload
// within a cooldown window.
package dedup

import (
	"container/heap"
	"time"
)

// Gate tracks recently accepted dedup keys. It is owned by the capture loop
// and is not safe for concurrent use.
type Gate struct {
	window  time.Duration
	seen    map[string]time.Time
	expires expiryHeap
}

// NewGate creates a gate with the given cooldown window.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = time.Second
	}
	return &Gate{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Accept reports whether the key should be forwarded downstream. A key is
// accepted when it has not been seen within the cooldown window ending at
// now. Suppressed hits do not re-arm the window: the original expiry stands,
// so a badge held in front of the camera is admitted again once the window
// from its first detection elapses.
func (g *Gate) Accept(key string, now time.Time) bool {
	g.evict(now)

	if until, ok := g.seen[key]; ok && now.Before(until) {
		return false
	}

	until := now.Add(g.window)
	g.seen[key] = until
	heap.Push(&g.expires, expiry{key: key, at: until})
	return true
}

// Len returns the number of keys currently tracked.
func (g *Gate) Len() int {
	return len(g.seen)
}

// evict drops expired entries. Heap entries may be stale when a key was
// re-accepted after expiring; the map holds the authoritative expiry.
func (g *Gate) evict(now time.Time) {
	for len(g.expires) > 0 {
		top := g.expires[0]
		if now.Before(top.at) {
			return
		}
		heap.Pop(&g.expires)
		if until, ok := g.seen[top.key]; ok && !now.Before(until) {
			delete(g.seen, top.key)
		}
	}
}

type expiry struct {
	key string
	at  time.Time
}

type expiryHeap []expiry

func (h expiryHeap) Len() int            { return len(h) }
func (h expiryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *expiryHeap) Push(x any)         { *h = append(*h, x.(expiry)) }
func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
