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

// Package gbacore wires the scheduler, bus arbitrator and prefetch buffer
// (hardware/) together with the quicksave codec behind a single host-facing
// type. CPU instruction decoding, PPU rendering and APU synthesis are
// external collaborators - GBA drives them through the Step hook rather
// than implementing them itself.
package gbacore

import (
	"sync"
	"sync/atomic"

	"github.com/jetsetilly/gbacore/hardware/apu"
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/hardware/clocks"
	"github.com/jetsetilly/gbacore/hardware/cpu"
	"github.com/jetsetilly/gbacore/hardware/gpio"
	"github.com/jetsetilly/gbacore/hardware/io"
	"github.com/jetsetilly/gbacore/hardware/memory"
	"github.com/jetsetilly/gbacore/hardware/ppu"
	"github.com/jetsetilly/gbacore/hardware/scheduler"
	"github.com/jetsetilly/gbacore/logger"
	"github.com/jetsetilly/gbacore/quicksave"
)

// MessageKind identifies an inbound command posted to a running GBA.
type MessageKind int

const (
	MessageReset MessageKind = iota
	MessageRun
	MessagePause
	MessageKey
	MessageQuicksave
	MessageQuickload
	MessageExit
)

// Message is one entry on the inbound queue (spec §5, "an inbound message
// queue for commands... protected by a mutex and a condition variable").
type Message struct {
	Kind MessageKind
	Args interface{}
}

// messageQueue is a plain FIFO guarded by a mutex, with a condition
// variable the core waits on when paused and the queue is empty.
type messageQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []Message
}

func newMessageQueue() *messageQueue {
	q := &messageQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *messageQueue) Post(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	q.cond.Signal()
}

// drain removes and returns every message currently queued, without
// blocking. Called by Run at each safe point between scheduler events.
func (q *messageQueue) drain() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = nil
	return items
}

// waitForMessage blocks until at least one message is queued, then drains
// and returns it. Used while paused, so the core doesn't spin.
func (q *messageQueue) waitForMessage() []Message {
	q.mu.Lock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// SharedData is the only state a host thread may touch while the core is
// running, per spec §5: the framebuffer behind a mutex and a lock-free
// version counter, the frame counter, and the backup-storage dirty flag -
// all polled without ever blocking the emulator thread.
type SharedData struct {
	frameMu     sync.Mutex
	framebuffer []byte

	frameVersion uint64 // atomic
	frameCounter uint64 // atomic
	backupDirty  uint32 // atomic, 0 or 1
}

// FrameVersion returns the current framebuffer version with acquire
// semantics. A host observing a new version is guaranteed, after locking
// the framebuffer mutex, to see a consistent image (spec §5.1).
func (s *SharedData) FrameVersion() uint64 {
	return atomic.LoadUint64(&s.frameVersion)
}

// FrameCounter returns the number of frames completed so far.
func (s *SharedData) FrameCounter() uint64 {
	return atomic.LoadUint64(&s.frameCounter)
}

// Framebuffer copies the current framebuffer into dst, locking the shared
// mutex for the duration of the copy.
func (s *SharedData) Framebuffer(dst []byte) int {
	s.frameMu.Lock()
	n := copy(dst, s.framebuffer)
	s.frameMu.Unlock()
	return n
}

// PublishFramebuffer copies pixels into the shared framebuffer under the
// mutex. Layer rendering is an external collaborator (spec §1); GBA itself
// never calls this - a host-side renderer wired up against the VRAM/PALRAM/
// OAM region bytes (memory.Bus.RegionBytes) does, once per frame.
func (s *SharedData) PublishFramebuffer(pixels []byte) {
	s.frameMu.Lock()
	if cap(s.framebuffer) < len(pixels) {
		s.framebuffer = make([]byte, len(pixels))
	}
	s.framebuffer = s.framebuffer[:len(pixels)]
	copy(s.framebuffer, pixels)
	s.frameMu.Unlock()
}

// completeFrame bumps the frame counter and version with release semantics
// so a host that observes the new version after an acquire load, and then
// locks the framebuffer mutex, is guaranteed a consistent image (spec
// §5.1) - assuming a renderer collaborator has called PublishFramebuffer
// for the frame just finished.
func (s *SharedData) completeFrame() {
	atomic.AddUint64(&s.frameCounter, 1)
	atomic.AddUint64(&s.frameVersion, 1)
}

// BackupDirty reports whether backup storage has unsaved changes.
func (s *SharedData) BackupDirty() bool {
	return atomic.LoadUint32(&s.backupDirty) != 0
}

// SetBackupDirty stores the dirty flag. Cleared by the host after it has
// persisted the backup buffer to disk. GBA.Load sets it after a successful
// quicksave load; writes to backup storage through the bus arbitrator do
// not set it.
func (s *SharedData) SetBackupDirty(dirty bool) {
	var v uint32
	if dirty {
		v = 1
	}
	atomic.StoreUint32(&s.backupDirty, v)
}

// StepFunc executes one unit of CPU progress (a single decoded instruction,
// or a burst of them) and returns the number of scheduler cycles consumed.
// Instruction decoding is an external collaborator (spec §1); GBA never
// implements one itself; callers supply this hook.
type StepFunc func(g *GBA) uint32

// GBA bundles every collaborator the scheduler, bus arbitrator and
// quicksave codec need, plus the message queue and shared data a host
// thread uses to control and observe a running core.
type GBA struct {
	CPU   *cpu.Registers
	IO    *io.Registers
	PPU   *ppu.State
	GPIO  gpio.Device
	APU   *apu.State
	Sched *scheduler.Scheduler
	Bus   *memory.Bus
	ROM   []byte

	Shared *SharedData
	queue  *messageQueue

	paused bool
}

// New builds a GBA around rom, wiring the scheduler, CPU, IO, PPU, APU and
// bus arbitrator together the way cmd/headless's launch sequence expects.
// bios is the 16K BIOS image; chip and gpioDevice may be nil.
func New(rom, bios []byte, chip backup.Chip, gpioDevice gpio.Device) *GBA {
	g := &GBA{
		CPU:    cpu.New(),
		IO:     io.New(),
		PPU:    ppu.New(),
		GPIO:   gpioDevice,
		APU:    apu.New(),
		Sched:  scheduler.New(),
		ROM:    rom,
		Shared: &SharedData{},
		queue:  newMessageQueue(),
	}
	g.Bus = memory.New(g.Sched, g.CPU, g.IO, rom, bios, chip, gpioDevice)
	return g
}

// Post enqueues a message for the core to process at its next safe point.
func (g *GBA) Post(m Message) {
	g.queue.Post(m)
}

// Run drives the scheduler one frame's worth of cycles at a time, forever,
// until a MessageExit is received. Between frames it drains the inbound
// queue at the safe point spec §5 requires ("the core drains it at
// well-defined safe points"); while paused it blocks on the queue's
// condition variable instead of spinning.
func (g *GBA) Run(step StepFunc) {
	for {
		if g.paused {
			if g.handleMessages(g.queue.waitForMessage()) {
				return
			}
			continue
		}

		if g.handleMessages(g.queue.drain()) {
			return
		}
		if g.paused {
			continue
		}

		g.runFrame(step)
	}
}

// runFrame advances the scheduler by one frame's cycle budget, calling step
// to make CPU progress along the way. The scheduler's own RunUntil fires
// any events whose deadline falls within the budget.
func (g *GBA) runFrame(step StepFunc) {
	target := g.Sched.Cycles() + clocks.CyclesPerFrame
	for g.Sched.Cycles() < target {
		consumed := step(g)
		if consumed == 0 {
			g.Sched.IdleFor(1)
			continue
		}
		g.Sched.RunUntil(uint64(consumed))
	}
	g.Shared.completeFrame()
}

// handleMessages applies each message in order, returning true if the core
// should stop running.
func (g *GBA) handleMessages(messages []Message) bool {
	for _, m := range messages {
		switch m.Kind {
		case MessageReset:
			g.reset()
		case MessageRun:
			g.paused = false
		case MessagePause:
			g.paused = true
		case MessageKey:
			logger.Logf(logger.Allow, "gbacore", "key message received with no input collaborator wired")
		case MessageQuicksave:
			if buf, ok := m.Args.(*[]byte); ok {
				*buf = g.Save()
			}
		case MessageQuickload:
			if data, ok := m.Args.([]byte); ok {
				if err := g.Load(data); err != nil {
					logger.Logf(logger.Allow, "gbacore", "quickload failed: %v", err)
				}
			}
		case MessageExit:
			return true
		}
	}
	return false
}

func (g *GBA) reset() {
	g.CPU.Restore(cpu.Snapshot{})
	g.Sched.Reset()
}

// Save produces a quicksave snapshot of the current state.
func (g *GBA) Save() []byte {
	return quicksave.Save(g.quicksaveTarget())
}

// Load restores state from a quicksave snapshot, refusing snapshots
// captured for a different cartridge. On success the backup-storage dirty
// flag is set true if the restored state has a backup chip and false if it
// has none; the snapshot does not record the flag's value at save time.
func (g *GBA) Load(data []byte) error {
	if err := quicksave.Load(g.quicksaveTarget(), data); err != nil {
		return err
	}
	g.Shared.SetBackupDirty(g.Bus.BackupChip() != nil)
	return nil
}

func (g *GBA) quicksaveTarget() *quicksave.Target {
	return &quicksave.Target{
		CPU:   g.CPU,
		IO:    g.IO,
		PPU:   g.PPU,
		GPIO:  g.GPIO,
		APU:   g.APU,
		Sched: g.Sched,
		Bus:   g.Bus,
		ROM:   g.ROM,
	}
}
