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

package gbacore_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jetsetilly/gbacore"
	"github.com/jetsetilly/gbacore/assert"
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/test"
)

func fixtureROM(size int, romCode string) []byte {
	rom := make([]byte, size)
	if size >= 0xB0 && len(romCode) == 4 {
		copy(rom[0xAC:0xB0], romCode)
	}
	return rom
}

func countingStep(n *uint64) gbacore.StepFunc {
	return func(g *gbacore.GBA) uint32 {
		atomic.AddUint64(n, 1)
		return 1
	}
}

// TestRunExecutesOnItsOwnGoroutine demands that Run makes CPU progress on
// whatever goroutine called it, not the caller that posts messages to it -
// the entire point of the mutex/condition-variable queue in front of Run.
// assert.GetGoRoutineID exists for exactly this kind of check.
func TestRunExecutesOnItsOwnGoroutine(t *testing.T) {
	g := gbacore.New(fixtureROM(0x1000, "AGBE"), nil, nil, nil)

	mainID := assert.GetGoRoutineID()
	var stepID uint64
	var once sync.Once

	step := func(g *gbacore.GBA) uint32 {
		once.Do(func() { atomic.StoreUint64(&stepID, assert.GetGoRoutineID()) })
		return 1
	}

	done := make(chan struct{})
	go func() {
		g.Run(step)
		close(done)
	}()

	for atomic.LoadUint64(&stepID) == 0 {
		time.Sleep(time.Millisecond)
	}
	g.Post(gbacore.Message{Kind: gbacore.MessageExit})
	<-done

	test.DemandEquality(t, atomic.LoadUint64(&stepID) != mainID, true)
}

// TestPauseStopsStepCalls covers the pause/run message handling: once
// paused, Run must stop completing frames, since MessagePause is only
// drained at the frame-boundary safe point (spec §5).
func TestPauseStopsStepCalls(t *testing.T) {
	g := gbacore.New(fixtureROM(0x1000, "AGBE"), nil, nil, nil)

	var count uint64
	done := make(chan struct{})
	go func() {
		g.Run(countingStep(&count))
		close(done)
	}()

	for g.Shared.FrameCounter() == 0 {
		time.Sleep(time.Millisecond)
	}
	g.Post(gbacore.Message{Kind: gbacore.MessagePause})

	// give pause plenty of time to take effect, then demand the frame
	// counter has actually stopped moving.
	time.Sleep(50 * time.Millisecond)
	stable := g.Shared.FrameCounter()
	time.Sleep(10 * time.Millisecond)
	test.DemandEquality(t, g.Shared.FrameCounter(), stable)

	g.Post(gbacore.Message{Kind: gbacore.MessageExit})
	<-done
}

// TestQuicksaveRoundTripSetsBackupDirty exercises Save/Load and the
// resulting backup-dirty flag. Both calls are made with the core not
// running, which is the only time Save/Load are safe to call directly -
// while running, a host must route through MessageQuicksave/
// MessageQuickload instead, a path no test in this file posts.
func TestQuicksaveRoundTripSetsBackupDirty(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	g := gbacore.New(rom, nil, backup.New(backup.SRAM), nil)
	data := g.Save()

	g2 := gbacore.New(rom, nil, backup.New(backup.SRAM), nil)
	test.DemandEquality(t, g2.Shared.BackupDirty(), false)

	err := g2.Load(data)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, g2.Shared.BackupDirty(), true)
}
