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

package scheduler_test

import (
	"testing"

	"github.com/jetsetilly/gbacore/hardware/scheduler"
	"github.com/jetsetilly/gbacore/test"
)

func TestCyclesMonotonic(t *testing.T) {
	s := scheduler.New()
	test.DemandEquality(t, s.Cycles(), uint64(0))

	s.RunUntil(100)
	test.DemandEquality(t, s.Cycles(), uint64(100))

	s.RunUntil(50)
	test.DemandEquality(t, s.Cycles(), uint64(150))
}

func TestFireOrder(t *testing.T) {
	s := scheduler.New()

	var order []string

	s.SetHandler(scheduler.KindHDraw, func(args scheduler.Args, cycles uint64) {
		order = append(order, "hdraw")
	})
	s.SetHandler(scheduler.KindHBlank, func(args scheduler.Args, cycles uint64) {
		order = append(order, "hblank")
	})
	s.SetHandler(scheduler.KindDMAFire, func(args scheduler.Args, cycles uint64) {
		order = append(order, "dma")
	})

	s.Add(scheduler.KindHBlank, 30, 0, false, scheduler.Args{})
	s.Add(scheduler.KindHDraw, 10, 0, false, scheduler.Args{})
	s.Add(scheduler.KindDMAFire, 20, 0, false, scheduler.Args{})

	s.RunUntil(100)

	test.DemandEquality(t, len(order), 3)
	test.DemandEquality(t, order[0], "hdraw")
	test.DemandEquality(t, order[1], "dma")
	test.DemandEquality(t, order[2], "hblank")
}

// TestTieBreakInsertionOrder covers testable property 2: events scheduled
// for the same cycle fire in the order they were added.
func TestTieBreakInsertionOrder(t *testing.T) {
	s := scheduler.New()

	var order []int

	s.SetHandler(scheduler.KindTimer0Overflow, func(args scheduler.Args, cycles uint64) {
		order = append(order, int(args.Timer))
	})

	for i := 0; i < 4; i++ {
		s.Add(scheduler.KindTimer0Overflow, 10, 0, false, scheduler.Args{Timer: uint8(i)})
	}

	s.RunUntil(10)

	test.DemandEquality(t, len(order), 4)
	for i, v := range order {
		test.DemandEquality(t, v, i)
	}
}

func TestRepeatReArmsExactlyOnePeriod(t *testing.T) {
	s := scheduler.New()

	fires := 0
	var lastAt uint64

	s.SetHandler(scheduler.KindAPUSample, func(args scheduler.Args, cycles uint64) {
		fires++
		lastAt = cycles
	})

	s.Add(scheduler.KindAPUSample, 10, 10, true, scheduler.Args{})

	s.RunUntil(35)

	test.DemandEquality(t, fires, 3)
	test.DemandEquality(t, lastAt, uint64(30))
}

func TestCancelStopsFutureFires(t *testing.T) {
	s := scheduler.New()

	fires := 0
	s.SetHandler(scheduler.KindIRQLine, func(args scheduler.Args, cycles uint64) {
		fires++
	})

	idx := s.Add(scheduler.KindIRQLine, 10, 10, true, scheduler.Args{})

	s.RunUntil(15)
	test.DemandEquality(t, fires, 1)

	s.Cancel(idx)
	s.RunUntil(100)
	test.DemandEquality(t, fires, 1)
}

func TestCancelledSlotIsReused(t *testing.T) {
	s := scheduler.New()

	idx := s.Add(scheduler.KindNone, 10, 0, false, scheduler.Args{})
	s.Cancel(idx)

	idx2 := s.Add(scheduler.KindNone, 20, 0, false, scheduler.Args{})
	test.DemandEquality(t, idx2, idx)
	test.DemandEquality(t, s.Len(), 1)
}

func TestRescheduleMovesNextEvent(t *testing.T) {
	s := scheduler.New()

	fired := false
	s.SetHandler(scheduler.KindHDraw, func(args scheduler.Args, cycles uint64) {
		fired = true
	})

	idx := s.Add(scheduler.KindHDraw, 50, 0, false, scheduler.Args{})
	s.Reschedule(idx, 5)

	test.DemandEquality(t, s.NextEvent(), uint64(5))

	s.RunUntil(5)
	test.DemandEquality(t, fired, true)
}

func TestSchedulingInThePastPanics(t *testing.T) {
	s := scheduler.New()
	s.RunUntil(100)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a panic scheduling an event in the past")
		}
	}()

	s.Add(scheduler.KindHDraw, 50, 0, false, scheduler.Args{})
}

func TestUnhandledKindDoesNotPanic(t *testing.T) {
	s := scheduler.New()
	s.Add(scheduler.KindNone, 10, 0, false, scheduler.Args{})
	s.RunUntil(10)
}
