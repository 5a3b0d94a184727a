// This file is part of gbacore.
//
// gbacore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// gbacore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with gbacore.  If not, see <https://www.gnu.org/licenses/>.

package scheduler

import (
	"github.com/jetsetilly/gbacore/logger"
)

// Index is a stable handle into the event store. Indices are not reused
// while the event they refer to is active - Add() will only hand out the
// index of an inactive slot, so a handle obtained from Add() remains valid
// (if inactive) until the slot is reused by a later Add() call.
type Index int

// Scheduler owns the master cycle counter and the ordered store of pending
// events. Every timed subsystem in the core (DMA, timers, PPU scanline
// progression, APU sample generation) schedules its future work through a
// Scheduler rather than keeping its own countdown.
//
// Scheduler is not safe for concurrent use. Per spec §5, the core runs on a
// single dedicated thread and nothing in hardware/ is reentrant.
type Scheduler struct {
	cycles    uint64
	nextEvent uint64
	events    []Event
	dispatch  [kindCount]Handler
}

const kindCount = KindQuitSentinel + 1

// New returns a Scheduler at cycle 0 with an empty event store.
func New() *Scheduler {
	s := &Scheduler{}
	s.resetNextEvent()
	return s
}

// SetHandler installs the function invoked when an event of the given kind
// fires. Handlers are resolved by Kind rather than stored per-event so that
// Event remains plain, quicksave-friendly data.
func (s *Scheduler) SetHandler(kind Kind, handler Handler) {
	s.dispatch[kind] = handler
}

// Cycles returns the current value of the master cycle counter.
func (s *Scheduler) Cycles() uint64 {
	return s.cycles
}

// NextEvent returns the cycle count of the earliest active event, or the
// current cycle count if no event is active.
func (s *Scheduler) NextEvent() uint64 {
	return s.nextEvent
}

// Len returns the number of event slots currently allocated, active or not.
// Exposed mainly for the quicksave codec, which needs to know the size of
// the event store it is about to serialise.
func (s *Scheduler) Len() int {
	return len(s.events)
}

// RestoreRaw replaces the cycle counter, cached next_event and the entire
// event store in one shot, bypassing the ordinary invariant checks Add/
// Reschedule apply. It exists solely for the quicksave codec's chunked
// loader, which commits an already-validated event set atomically (spec
// §4.4 step 4, "commit the scheduler events atomically").
func (s *Scheduler) RestoreRaw(cycles uint64, nextEvent uint64, events []Event) {
	s.cycles = cycles
	s.nextEvent = nextEvent
	s.events = events
}

// Reset discards every scheduled event and returns the cycle counter to
// zero. Used by GBA's reset message handler; quicksave's chunked loader
// replaces the event store through RestoreRaw instead.
func (s *Scheduler) Reset() {
	s.cycles = 0
	s.events = s.events[:0]
	s.resetNextEvent()
}

// Add inserts a new event and returns its stable index. If an inactive slot
// exists in the store it is reused; otherwise the store grows by one.
//
// at must be > the current cycle count - scheduling an event in the past is
// a caller bug (spec §4.1, "any event with at <= cycles at schedule time is
// rejected") and is treated as an internal-invariant violation.
func (s *Scheduler) Add(kind Kind, at uint64, period uint64, repeat bool, args Args) Index {
	if at <= s.cycles {
		invariant(EventInThePast, at, s.cycles)
	}

	ev := Event{
		Kind:   kind,
		Active: true,
		Repeat: repeat,
		At:     at,
		Period: period,
		Args:   args,
	}

	for i := range s.events {
		if !s.events[i].Active {
			s.events[i] = ev
			s.growNextEvent(at)
			return Index(i)
		}
	}

	s.events = append(s.events, ev)
	s.growNextEvent(at)
	return Index(len(s.events) - 1)
}

// Cancel marks the event at index as inactive. The slot may be reused by a
// later call to Add. next_event is not recomputed eagerly - the next call
// to RunUntil() will skip inactive slots when searching for the next event
// to fire, per spec §4.1.
func (s *Scheduler) Cancel(index Index) {
	s.mustEvent(index).Active = false
}

// Reschedule updates the fire time of an already-active event. The caller
// must supply an at that is not in the past.
func (s *Scheduler) Reschedule(index Index, at uint64) {
	if at < s.cycles {
		invariant(EventInThePast, at, s.cycles)
	}
	ev := s.mustEvent(index)
	if !ev.Active {
		invariant(IndexNotActive, index)
	}
	ev.At = at
	s.growNextEvent(at)
}

// Peek returns a copy of the event at index, for inspection (debugging,
// quicksave) without exposing a mutable reference into the store.
func (s *Scheduler) Peek(index Index) Event {
	return *s.mustEvent(index)
}

func (s *Scheduler) mustEvent(index Index) *Event {
	if index < 0 || int(index) >= len(s.events) {
		invariant(InvalidIndex, index)
	}
	return &s.events[index]
}

func (s *Scheduler) resetNextEvent() {
	s.nextEvent = s.cycles
}

// growNextEvent folds a newly scheduled at into the cached next_event,
// implementing next_event = min(next_event, at) from spec §4.1.
func (s *Scheduler) growNextEvent(at uint64) {
	if len(s.events) == 1 || at < s.nextEvent {
		s.recomputeNextEvent()
		return
	}
}

func (s *Scheduler) recomputeNextEvent() {
	min := s.cycles
	found := false
	for i := range s.events {
		if !s.events[i].Active {
			continue
		}
		if !found || s.events[i].At < min {
			min = s.events[i].At
			found = true
		}
	}
	if !found {
		min = s.cycles
	}
	s.nextEvent = min
}

// RunUntil advances the scheduler by up to budgetCycles, firing every active
// event whose at falls within the budget along the way, in non-decreasing
// at order with ties broken by insertion order (spec §4.1, testable property
// 2). Repeating events are re-armed with at += period exactly once per fire;
// one-shot events are marked inactive.
func (s *Scheduler) RunUntil(budgetCycles uint64) {
	deadline := s.cycles + budgetCycles

	for {
		idx, at := s.earliestActive()
		if idx < 0 || at > deadline {
			break
		}

		if at < s.cycles {
			invariant(EventInThePast, at, s.cycles)
		}

		s.cycles = at
		s.fire(Index(idx))
	}

	if s.cycles < deadline {
		s.cycles = deadline
	}
	s.recomputeNextEvent()
}

// IdleFor charges n cycles to the cycle counter without necessarily firing
// any event other than those whose at falls within the window - it is
// implemented as a bounded RunUntil, matching spec §4.1's "idle_for(n)".
func (s *Scheduler) IdleFor(n uint64) {
	s.RunUntil(n)
}

// earliestActive returns the index and at of the earliest active event, or
// (-1, 0) if none is active. Ties are broken by insertion order because the
// loop below scans low-to-high and strict less-than never displaces an
// earlier-seen equal at.
func (s *Scheduler) earliestActive() (int, uint64) {
	best := -1
	var bestAt uint64
	for i := range s.events {
		if !s.events[i].Active {
			continue
		}
		if best < 0 || s.events[i].At < bestAt {
			best = i
			bestAt = s.events[i].At
		}
	}
	return best, bestAt
}

func (s *Scheduler) fire(index Index) {
	ev := &s.events[index]
	kind := ev.Kind
	args := ev.Args
	at := ev.At

	if ev.Repeat {
		ev.At += ev.Period
	} else {
		ev.Active = false
	}

	handler := s.dispatch[kind]
	if handler == nil {
		logger.Logf(logger.Allow, "scheduler", "no handler registered for event kind %s, dropping fire at %d", kind, at)
		return
	}
	handler(args, at)
}
