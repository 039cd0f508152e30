// Package hub keeps the live tracking sessions of all users in memory.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/meltforce/curlcoach/internal/pose"
	"github.com/meltforce/curlcoach/internal/tracker"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRateLimited     = errors.New("frame rate limit exceeded")
)

// Update is sent to subscribers after every accepted frame.
type Update struct {
	State  tracker.Snapshot `json:"state"`
	Events []string         `json:"events"`
}

// Info describes a live session.
type Info struct {
	ID        uuid.UUID        `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	LastSeen  time.Time        `json:"last_seen"`
	Config    tracker.Config   `json:"config"`
	State     tracker.Snapshot `json:"state"`
}

type entry struct {
	id      uuid.UUID
	owner   int
	created time.Time
	session *tracker.Session
	limiter *rate.Limiter

	// mu orders Tick, State and broadcast so subscribers see updates in frame order.
	mu       sync.Mutex
	lastSeen time.Time

	subsMu sync.Mutex
	subs   map[chan Update]struct{}
	closed bool
}

func (e *entry) info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Info{
		ID:        e.id,
		CreatedAt: e.created,
		LastSeen:  e.lastSeen,
		Config:    e.session.Config(),
		State:     e.session.State(),
	}
}

func (e *entry) broadcast(u Update) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- u:
		default:
			// slow subscriber, skip
		}
	}
}

// close ends every subscription. Later broadcasts are no-ops.
func (e *entry) close() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for ch := range e.subs {
		close(ch)
		delete(e.subs, ch)
	}
	e.closed = true
}

// Hub is safe for concurrent use. Sessions never share mutable state; only
// the registry map is guarded by the hub lock.
type Hub struct {
	log         *slog.Logger
	now         func() time.Time
	maxFPS      float64
	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

type Option func(*Hub)

// WithClock sets the time source shared by the hub and its sessions.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		if now != nil {
			h.now = now
		}
	}
}

// New creates a hub. maxFPS caps frames per session per second (0 disables
// the limit) and idleTimeout is how long a session may go without frames
// before Reap evicts it.
func New(log *slog.Logger, maxFPS float64, idleTimeout time.Duration, opts ...Option) *Hub {
	h := &Hub{
		log:         log,
		now:         time.Now,
		maxFPS:      maxFPS,
		idleTimeout: idleTimeout,
		sessions:    make(map[uuid.UUID]*entry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Create starts a new session for owner. Invalid configs are rejected with
// an error wrapping tracker.ErrInvalidConfig.
func (h *Hub) Create(owner int, cfg tracker.Config) (Info, error) {
	sess, err := tracker.NewSession(cfg, tracker.WithClock(h.now))
	if err != nil {
		return Info{}, err
	}
	now := h.now()
	e := &entry{
		id:       uuid.New(),
		owner:    owner,
		created:  now,
		lastSeen: now,
		session:  sess,
		subs:     make(map[chan Update]struct{}),
	}
	if h.maxFPS > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(h.maxFPS), int(math.Ceil(h.maxFPS)))
	}

	h.mu.Lock()
	h.sessions[e.id] = e
	h.mu.Unlock()

	h.log.Info("session created", "session", e.id, "user_id", owner,
		"target_reps", cfg.TargetReps, "target_sets", cfg.TargetSets)
	return e.info(), nil
}

// lookup hides sessions of other users behind ErrSessionNotFound.
func (h *Hub) lookup(owner int, id uuid.UUID) (*entry, error) {
	h.mu.RLock()
	e, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (h *Hub) Get(owner int, id uuid.UUID) (Info, error) {
	e, err := h.lookup(owner, id)
	if err != nil {
		return Info{}, err
	}
	return e.info(), nil
}

// List returns the owner's sessions, oldest first.
func (h *Hub) List(owner int) []Info {
	h.mu.RLock()
	var mine []*entry
	for _, e := range h.sessions {
		if e.owner == owner {
			mine = append(mine, e)
		}
	}
	h.mu.RUnlock()

	sort.Slice(mine, func(i, j int) bool {
		if mine[i].created.Equal(mine[j].created) {
			return mine[i].id.String() < mine[j].id.String()
		}
		return mine[i].created.Before(mine[j].created)
	})
	out := make([]Info, 0, len(mine))
	for _, e := range mine {
		out = append(out, e.info())
	}
	return out
}

// Len returns the number of live sessions across all users.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Delete ends a session and closes its subscriptions.
func (h *Hub) Delete(owner int, id uuid.UUID) error {
	h.mu.Lock()
	e, ok := h.sessions[id]
	if !ok || e.owner != owner {
		h.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(h.sessions, id)
	h.mu.Unlock()

	e.close()
	h.log.Info("session ended", "session", id, "user_id", owner)
	return nil
}

// Feed runs one frame through the session. A rate-limited frame is dropped
// with ErrRateLimited and leaves the session untouched.
func (h *Hub) Feed(owner int, id uuid.UUID, f pose.Frame) (tracker.Snapshot, tracker.Event, error) {
	e, err := h.lookup(owner, id)
	if err != nil {
		return tracker.Snapshot{}, 0, err
	}
	now := h.now()
	if e.limiter != nil && !e.limiter.AllowN(now, 1) {
		return tracker.Snapshot{}, 0, ErrRateLimited
	}

	e.mu.Lock()
	ev := e.session.Tick(f)
	snap := e.session.State()
	e.lastSeen = now
	e.broadcast(Update{State: snap, Events: ev.Names()})
	e.mu.Unlock()

	if ev.Has(tracker.SetCompleted) {
		h.log.Info("set completed", "session", id, "sets", snap.Sets)
	}
	if ev.Has(tracker.WorkoutCompleted) {
		h.log.Info("workout completed", "session", id, "user_id", owner)
	}
	return snap, ev, nil
}

// Subscribe returns a channel of updates for the session and a func that
// cancels the subscription. The channel is closed when the session ends.
func (h *Hub) Subscribe(owner int, id uuid.UUID) (<-chan Update, func(), error) {
	e, err := h.lookup(owner, id)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan Update, 32)
	e.subsMu.Lock()
	if e.closed {
		e.subsMu.Unlock()
		return nil, nil, ErrSessionNotFound
	}
	e.subs[ch] = struct{}{}
	e.subsMu.Unlock()

	unsubscribe := func() {
		e.subsMu.Lock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
		e.subsMu.Unlock()
	}
	return ch, unsubscribe, nil
}

// Sweep evicts sessions idle for longer than the idle timeout and returns
// how many were removed.
func (h *Hub) Sweep() int {
	cutoff := h.now().Add(-h.idleTimeout)

	h.mu.Lock()
	var stale []*entry
	for id, e := range h.sessions {
		e.mu.Lock()
		idle := e.lastSeen.Before(cutoff)
		e.mu.Unlock()
		if idle {
			stale = append(stale, e)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, e := range stale {
		e.close()
		h.log.Info("session evicted", "session", e.id, "user_id", e.owner, "idle_timeout", h.idleTimeout)
	}
	return len(stale)
}

// Reap calls Sweep every interval until ctx is done.
func (h *Hub) Reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}
