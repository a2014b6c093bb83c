// Package scheduler implements the event scheduler (C7): a single
// min-heap keyed by scheduled time, guarded by one timer, with no
// background polling. Between events the process is idle or doing other
// work, per §4.7 and the "no polling, everywhere" design note (§9).
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/orchestrator/observability"
)

// OnFire is invoked once per event as it comes due. It must not block
// for long; the coordinator typically enqueues work and returns.
type OnFire func(ctx context.Context, ev Event)

// Scheduler is the C7 event scheduler.
type Scheduler struct {
	mu    sync.Mutex
	h     eventHeap
	index map[string]*eventItem
	timer *time.Timer

	onFire   OnFire
	store    Store
	observer observability.Observer
	ctx      context.Context
}

// New creates a Scheduler. store may be nil to run without persistence
// (tests); observer defaults to observability.NoOpObserver{} if nil.
func New(store Store, onFire OnFire, observer observability.Observer) *Scheduler {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Scheduler{
		index:    make(map[string]*eventItem),
		onFire:   onFire,
		store:    store,
		observer: observer,
		ctx:      context.Background(),
	}
}

// Start loads any persisted events (restart durability) and arms the
// timer for the earliest one. A persisted event whose dedupe key is
// already scheduled is not inserted again. Subsequent OnFire invocations
// are made with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx

	if s.store != nil {
		events, err := s.store.ListEvents()
		if err != nil {
			return fmt.Errorf("scheduler: load persisted events: %w", err)
		}
		for _, ev := range events {
			if _, exists := s.index[ev.DedupeKey]; exists {
				continue
			}
			s.insertLocked(ev)
		}
	}

	s.rearmLocked()
	return nil
}

// Stop halts the timer without clearing scheduled events (they remain
// in the heap and in the store, and will fire again after a later
// Start).
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Schedule inserts an event at the given time unless dedupeKey is
// already scheduled, in which case it is a no-op (the caller's
// responsibility per §4.7 is to Cancel first if it wants to
// reschedule).
func (s *Scheduler) Schedule(at time.Time, kind Kind, payload map[string]any, dedupeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[dedupeKey]; exists {
		return nil
	}

	ev := Event{At: at, Kind: kind, Payload: payload, DedupeKey: dedupeKey}
	if s.store != nil {
		if err := s.store.SaveEvent(ev); err != nil {
			return fmt.Errorf("scheduler: persist event %s: %w", dedupeKey, err)
		}
	}

	s.insertLocked(ev)
	s.rearmLocked()

	s.observer.OnEvent(s.ctx, observability.Event{
		Type:      "scheduler.scheduled",
		Level:     observability.LevelVerbose,
		Timestamp: time.Now(),
		Source:    "scheduler.Scheduler",
		Data:      map[string]any{"dedupe_key": dedupeKey, "kind": string(kind), "at": at},
	})

	return nil
}

// Cancel removes a scheduled event. Returns ErrEventNotScheduled if
// dedupeKey is not currently scheduled.
func (s *Scheduler) Cancel(dedupeKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.index[dedupeKey]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotScheduled, dedupeKey)
	}

	heap.Remove(&s.h, it.heapIndex)
	delete(s.index, dedupeKey)

	if s.store != nil {
		if err := s.store.DeleteEvent(dedupeKey); err != nil {
			return fmt.Errorf("scheduler: delete persisted event %s: %w", dedupeKey, err)
		}
	}

	s.rearmLocked()
	return nil
}

// PeekNext returns the earliest scheduled event without removing it.
func (s *Scheduler) PeekNext() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.h.Len() == 0 {
		return Event{}, false
	}
	return s.h[0].ev, true
}

// Len returns the number of events currently scheduled.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Len()
}

func (s *Scheduler) insertLocked(ev Event) {
	it := &eventItem{ev: ev}
	heap.Push(&s.h, it)
	s.index[ev.DedupeKey] = it
}

// rearmLocked (re)sets the single timer to fire when the earliest event
// is due. Caller holds s.mu.
func (s *Scheduler) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.h.Len() == 0 {
		return
	}
	delay := time.Until(s.h[0].ev.At)
	if delay < 0 {
		delay = 0
	}
	s.timer = time.AfterFunc(delay, s.fire)
}

// fire pops every event now due, rearms for the next one, and dispatches
// each due event to onFire outside the lock.
func (s *Scheduler) fire() {
	s.mu.Lock()
	now := time.Now()
	var due []Event
	for s.h.Len() > 0 && !s.h[0].ev.At.After(now) {
		it := heap.Pop(&s.h).(*eventItem)
		delete(s.index, it.ev.DedupeKey)
		due = append(due, it.ev)
	}
	s.rearmLocked()
	ctx := s.ctx
	s.mu.Unlock()

	for _, ev := range due {
		if s.store != nil {
			_ = s.store.DeleteEvent(ev.DedupeKey)
		}
		s.observer.OnEvent(ctx, observability.Event{
			Type:      "scheduler.fired",
			Level:     observability.LevelInfo,
			Timestamp: time.Now(),
			Source:    "scheduler.Scheduler",
			Data:      map[string]any{"dedupe_key": ev.DedupeKey, "kind": string(ev.Kind)},
		})
		if s.onFire != nil {
			s.onFire(ctx, ev)
		}
	}
}
