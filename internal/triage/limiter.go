package triage

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/carepoint/engine/internal/shared/types"
)

// ShiftLimiter spaces out triage shifts per patient. A blocked shift is a
// legality error for the caller; nothing is queued or retried.
type ShiftLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	burst    int
	limiters map[types.ID]*rate.Limiter
}

// NewShiftLimiter creates a limiter allowing burst shifts back-to-back and
// one per cooldown after that. A zero cooldown disables limiting.
func NewShiftLimiter(cooldown time.Duration, burst int) *ShiftLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ShiftLimiter{
		cooldown: cooldown,
		burst:    burst,
		limiters: make(map[types.ID]*rate.Limiter),
	}
}

// Allow reports whether a shift for the patient may proceed now
func (l *ShiftLimiter) Allow(patientID types.ID) bool {
	if l == nil || l.cooldown == 0 {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[patientID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.cooldown), l.burst)
		l.limiters[patientID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Forget drops the patient's limiter state, e.g. after discharge
func (l *ShiftLimiter) Forget(patientID types.ID) {
	if l == nil {
		return
	}
	l.mu.Lock()
	delete(l.limiters, patientID)
	l.mu.Unlock()
}
