package scraper

import (
	"math"
	"sync"
	"time"
)

// Tab retirement thresholds. A tab that crosses any of them is closed on
// release and the pool creates a fresh one on the next Open.
const (
	retireErrScore = 3.0
	retireUses     = 50
	retireAge      = 50 * time.Minute
)

// tabHealth scores one pooled tab across extractions.
//
//   - success: errScore -= 0.5 (min 0)
//   - failure: errScore += 1.0
type tabHealth struct {
	mu       sync.Mutex
	errScore float64
	uses     int
	created  time.Time
}

func newTabHealth(now time.Time) *tabHealth {
	return &tabHealth{created: now}
}

func (h *tabHealth) record(ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uses++
	if ok {
		h.errScore = math.Max(0, h.errScore-0.5)
	} else {
		h.errScore += 1.0
	}
}

func (h *tabHealth) shouldRetire(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errScore >= retireErrScore ||
		h.uses >= retireUses ||
		now.Sub(h.created) >= retireAge
}
