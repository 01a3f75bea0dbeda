// Package presence tracks which workers are active on the lanes.
//
// The server records an Activity every time an actor claims, completes or
// rejects a job. A background reaper marks workers idle past a threshold as
// dead and later evicts them.
package presence

import (
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"
)

// Entry is a single worker's presence state.
type Entry struct {
	Actor       string    `json:"actor"`
	LastSeen    time.Time `json:"last_seen"`
	FirstSeen   time.Time `json:"first_seen"`
	LastAction  string    `json:"last_action"`           // "claimed", "completed", "rejected"
	LastJobID   string    `json:"last_job_id,omitempty"` // job touched by LastAction
	ActiveJobs  []string  `json:"active_jobs,omitempty"` // claimed and not yet completed
	IdleSecs    float64   `json:"idle_secs"`
	ActionCount int64     `json:"action_count"`
	Reaped      bool      `json:"reaped,omitempty"`
	ReapedAt    time.Time `json:"reaped_at,omitempty"`
}

// Activity is a lane move performed by a worker.
type Activity struct {
	Actor  string
	Action string
	JobID  string
}

// Lane move actions.
const (
	ActionClaimed   = "claimed"
	ActionCompleted = "completed"
	ActionRejected  = "rejected"
)

// ReaperConfig configures the background dead-worker reaper. Zero fields
// take the defaults noted on each.
type ReaperConfig struct {
	DeadThreshold time.Duration // idle time before a worker is marked dead (15m)
	EvictAfter    time.Duration // time from dead to removed from the roster (30m)
	SweepInterval time.Duration // scan period (1m)

	// OnDead is called for each worker newly marked as dead, outside the lock.
	// activeJobs lists the jobs the worker still held.
	OnDead func(actor string, activeJobs []string)
}

func (c ReaperConfig) withDefaults() ReaperConfig {
	if c.DeadThreshold <= 0 {
		c.DeadThreshold = 15 * time.Minute
	}
	if c.EvictAfter <= 0 {
		c.EvictAfter = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	return c
}

// worker is the tracked state of one actor.
type worker struct {
	firstSeen  time.Time
	lastSeen   time.Time
	lastAction string
	lastJobID  string
	holding    map[string]struct{}
	actions    int64
	deadSince  time.Time // zero while alive
}

func (w *worker) record(a Activity, now time.Time) {
	w.lastSeen = now
	w.lastAction = a.Action
	w.lastJobID = a.JobID
	w.actions++
	if a.JobID == "" {
		return
	}
	switch a.Action {
	case ActionClaimed:
		w.holding[a.JobID] = struct{}{}
	case ActionCompleted:
		delete(w.holding, a.JobID)
	}
}

func (w *worker) jobs() []string {
	if len(w.holding) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(w.holding))
}

func (w *worker) entry(actor string, now time.Time) Entry {
	return Entry{
		Actor:       actor,
		LastSeen:    w.lastSeen,
		FirstSeen:   w.firstSeen,
		LastAction:  w.lastAction,
		LastJobID:   w.lastJobID,
		ActiveJobs:  w.jobs(),
		IdleSecs:    now.Sub(w.lastSeen).Seconds(),
		ActionCount: w.actions,
		Reaped:      !w.deadSince.IsZero(),
		ReapedAt:    w.deadSince,
	}
}

// Tracker maintains an in-memory roster of workers.
type Tracker struct {
	now func() time.Time

	mu      sync.RWMutex
	workers map[string]*worker

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a new presence tracker.
func New() *Tracker {
	return &Tracker{now: time.Now, workers: make(map[string]*worker)}
}

// RecordActivity updates the presence state for the activity's actor. A dead
// worker that acts again comes back to life.
func (t *Tracker) RecordActivity(a Activity) {
	if a.Actor == "" {
		return
	}
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	w, ok := t.workers[a.Actor]
	if !ok {
		w = &worker{firstSeen: now, holding: make(map[string]struct{})}
		t.workers[a.Actor] = w
	}
	if !w.deadSince.IsZero() {
		slog.Info("presence: worker back", "actor", a.Actor, "dead_for", now.Sub(w.deadSince))
		w.deadSince = time.Time{}
	}
	w.record(a, now)
}

// ReleaseJob drops jobID from whichever worker holds it, used when a job is
// completed by someone other than its claimant.
func (t *Tracker) ReleaseJob(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, w := range t.workers {
		delete(w.holding, jobID)
	}
}

// Roster returns a snapshot of all tracked workers, most recently active first.
// Workers idle longer than staleThreshold are excluded; 0 includes everyone.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	now := t.now()

	t.mu.RLock()
	entries := make([]Entry, 0, len(t.workers))
	for actor, w := range t.workers {
		if staleThreshold > 0 && now.Sub(w.lastSeen) > staleThreshold {
			continue
		}
		entries = append(entries, w.entry(actor, now))
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].Actor < entries[j].Actor
	})
	return entries
}

// StartReaper launches a background goroutine that periodically marks idle
// workers as dead. Call Stop to shut it down. A nil cfg uses the defaults.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	var c ReaperConfig
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(c.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				t.sweep(c)
			}
		}
	}()
	slog.Info("presence: reaper started", "dead_threshold", c.DeadThreshold, "sweep_interval", c.SweepInterval)
}

// Stop shuts down the reaper goroutine. It is safe to call when the reaper
// was never started and more than once.
func (t *Tracker) Stop() {
	if t.stop == nil {
		return
	}
	t.stopOnce.Do(func() {
		close(t.stop)
		<-t.done
	})
}

// sweep marks workers idle past the threshold as dead and evicts those dead
// longer than EvictAfter.
func (t *Tracker) sweep(c ReaperConfig) {
	now := t.now()
	dead := map[string][]string{}

	t.mu.Lock()
	for actor, w := range t.workers {
		switch {
		case !w.deadSince.IsZero():
			if now.Sub(w.deadSince) > c.EvictAfter {
				delete(t.workers, actor)
			}
		case now.Sub(w.lastSeen) > c.DeadThreshold:
			w.deadSince = now
			dead[actor] = w.jobs()
		}
	}
	t.mu.Unlock()

	for _, actor := range slices.Sorted(maps.Keys(dead)) {
		slog.Info("presence: reaper marked worker dead",
			"actor", actor,
			"active_jobs", len(dead[actor]),
			"threshold", c.DeadThreshold)
		if c.OnDead != nil {
			c.OnDead(actor, dead[actor])
		}
	}
}
