package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// threadMarks tracks which threads have a reply in flight or a reset running.
// The remote assistant resumes a thread from its last question, so two
// messages for the same thread must never be in flight together.
type threadMarks struct {
	inFlight sync.Map // map[string]*liveThread
}

// liveThread is the conversation of a marked thread. conv stays nil until the
// user's message is stored, and until then readers fall back to the store.
type liveThread struct {
	mu   sync.Mutex
	conv *Conversation
}

func (l *liveThread) set(conv *Conversation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conv = conv
}

// update applies fn to the conversation if one has been set
func (l *liveThread) update(fn func(c *Conversation)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conv != nil {
		fn(l.conv)
	}
}

// transcript returns a copy of the conversation and whether one was set
func (l *liveThread) transcript() (Transcript, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conv == nil {
		return Transcript{}, false
	}
	return Transcript{Messages: l.conv.Entries(), Pending: l.conv.Pending()}, true
}

// mark claims the thread. It returns nil if the thread was already claimed.
func (m *threadMarks) mark(threadID string) *liveThread {
	lt := &liveThread{}
	if _, loaded := m.inFlight.LoadOrStore(threadID, lt); loaded {
		return nil
	}
	return lt
}

func (m *threadMarks) unmark(threadID string) {
	m.inFlight.Delete(threadID)
}

// live returns the claimed thread's state, or nil when it is not claimed
func (m *threadMarks) live(threadID string) *liveThread {
	v, ok := m.inFlight.Load(threadID)
	if !ok {
		return nil
	}
	return v.(*liveThread)
}

// limiterIdleTTL is how long an unused per-thread limiter is kept
const limiterIdleTTL = 30 * time.Minute

type threadLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// threadLimiters hands out one token bucket per thread
type threadLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*threadLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

// newThreadLimiters allows perMinute messages per thread with the given
// burst. perMinute <= 0 disables limiting.
func newThreadLimiters(perMinute, burst int) *threadLimiters {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &threadLimiters{
		limiters: make(map[string]*threadLimiter),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// allow consumes a token for the thread
func (l *threadLimiters) allow(threadID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	tl, ok := l.limiters[threadID]
	if !ok {
		tl = &threadLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[threadID] = tl
	}
	tl.lastSeen = now

	return tl.limiter.AllowN(now, 1)
}

// sweep drops idle limiters, at most once per idle period
func (l *threadLimiters) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < limiterIdleTTL {
		return
	}
	l.lastSweep = now

	for id, tl := range l.limiters {
		if now.Sub(tl.lastSeen) > limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
}

func (l *threadLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
