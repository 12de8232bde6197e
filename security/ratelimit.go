package security

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultMaxTrackedUsers bounds how many per-user buckets are kept
	// before least recently used entries are evicted.
	defaultMaxTrackedUsers = 10000

	limiterCleanupInterval = 5 * time.Minute
	limiterMaxIdle         = 30 * time.Minute
)

// connectLimiterEntry tracks one user's bucket and its last access time.
type connectLimiterEntry struct {
	userID     string
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ConnectLimiter bounds how often a single user may start or complete an
// authorization flow. It protects the provider's token endpoint from
// connect storms caused by broken callback loops or abuse, using a token
// bucket per user with LRU eviction to keep memory bounded.
type ConnectLimiter struct {
	entries    map[string]*list.Element
	lru        *list.List
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	maxEntries int
	logger     *slog.Logger
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewConnectLimiter creates a limiter allowing attemptsPerMinute sustained
// connect attempts per user with the given burst. A background janitor
// drops buckets idle for more than thirty minutes; call Stop to end it.
func NewConnectLimiter(attemptsPerMinute, burst int, logger *slog.Logger) *ConnectLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	l := &ConnectLimiter{
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		limit:      rate.Limit(float64(attemptsPerMinute) / 60.0),
		burst:      burst,
		maxEntries: defaultMaxTrackedUsers,
		logger:     logger,
		stop:       make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether a connect attempt by the given user may proceed.
func (l *ConnectLimiter) Allow(userID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.entries[userID]; ok {
		l.lru.MoveToFront(elem)
		entry := elem.Value.(*connectLimiterEntry)
		entry.lastAccess = now
		return entry.limiter.Allow()
	}

	if len(l.entries) >= l.maxEntries {
		l.evictOldest()
	}

	entry := &connectLimiterEntry{
		userID:     userID,
		limiter:    rate.NewLimiter(l.limit, l.burst),
		lastAccess: now,
	}
	l.entries[userID] = l.lru.PushFront(entry)

	return entry.limiter.Allow()
}

// Size returns the number of users currently tracked.
func (l *ConnectLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// evictOldest removes the least recently used bucket.
// Must be called with the mutex held.
func (l *ConnectLimiter) evictOldest() {
	elem := l.lru.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*connectLimiterEntry)
	delete(l.entries, entry.userID)
	l.lru.Remove(elem)

	l.logger.Debug("Connect limiter evicted idle user bucket",
		"user_id_hash", hashForLogging(entry.userID),
		"tracked_users", len(l.entries))
}

// cleanupLoop periodically removes idle buckets.
func (l *ConnectLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.removeIdle(limiterMaxIdle)
		case <-l.stop:
			return
		}
	}
}

// removeIdle drops buckets not used within maxIdle.
func (l *ConnectLimiter) removeIdle(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	removed := 0

	var next *list.Element
	for elem := l.lru.Front(); elem != nil; elem = next {
		next = elem.Next()
		entry := elem.Value.(*connectLimiterEntry)
		if now.Sub(entry.lastAccess) > maxIdle {
			delete(l.entries, entry.userID)
			l.lru.Remove(elem)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("Connect limiter cleanup completed",
			"removed", removed,
			"remaining", len(l.entries))
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *ConnectLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}
