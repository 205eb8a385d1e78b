package infrastructure

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// InlineQueryLimiter throttles inline queries per Telegram user. Every query
// runs several aggregations, so typing fast must not flood the database.
type InlineQueryLimiter struct {
	mu      sync.Mutex
	users   map[int64]*userLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInlineQueryLimiter allows perSecond queries with the given burst
func NewInlineQueryLimiter(perSecond float64, burst int) *InlineQueryLimiter {
	return &InlineQueryLimiter{
		users:   make(map[int64]*userLimiter),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

// Allow consumes one query of the user's budget
func (l *InlineQueryLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.users[userID] = u
	}
	u.lastSeen = now
	return u.limiter.AllowN(now, 1)
}

// Sweep forgets users idle for longer than the TTL
func (l *InlineQueryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id, u := range l.users {
		if now.Sub(u.lastSeen) > l.idleTTL {
			delete(l.users, id)
			removed++
		}
	}
	return removed
}

// Run sweeps periodically until ctx is done
func (l *InlineQueryLimiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

func (l *InlineQueryLimiter) ActiveUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
