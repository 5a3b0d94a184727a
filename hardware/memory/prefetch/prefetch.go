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

// Package prefetch implements the GBA's speculative cartridge-fetch state
// machine (component C): it amortises the cost of sequential instruction
// fetches by reading ahead during CPU idle cycles. It is driven from two
// directions - hardware/memory's arbitrator calls Access on every cart-bus
// fetch, and Bus.IdlePrefetch forwards CPU idle cycles to Idle. The
// scheduler does not call Idle, and nothing in this repository calls
// Bus.IdlePrefetch.
package prefetch

// Buffer is the prefetch state record described in spec §3 "Prefetch
// buffer state". It holds no reference to the bus or the scheduler; both
// directions of interaction are plain method calls with the caller
// supplying whatever the buffer needs (instruction length selection,
// reload values) so Buffer stays a leaf with no import of hardware/memory.
type Buffer struct {
	Enabled bool

	insnLen  uint32 // 2 (Thumb) or 4 (ARM)
	capacity uint32 // 8 half-words or 4 words
	size     uint32 // items ready
	head     uint32 // address of next byte to be fetched into the buffer
	tail     uint32 // address the CPU will consume next
	countdown uint32
	reload    uint32
}

// Mode selects the instruction width the buffer is configured for.
type Mode int

const (
	Thumb Mode = iota
	ARM
)

// Access runs the state machine for a single CPU access at address addr
// with tabulated cost cost, per spec §4.3. It returns the number of cycles
// to charge to the scheduler: either the reduced cost of a sequential hit,
// or the full tabulated cost on a miss.
//
// seqCostAtPage is the sequential-access latency of the wait-state page
// addr falls on, used to pick the buffer's reload value when
// reconfiguring for a miss - the caller (the arbitrator) knows which of
// its two tables (16-bit or 32-bit) applies.
func (b *Buffer) Access(addr uint32, cost uint32, mode Mode, seqCostAtPage uint32) uint32 {
	if b.tail == addr {
		if b.size > 0 {
			b.tail += b.insnLen
			b.size--
			return 1
		}
		// a fetch is already in flight; the CPU must wait for it
		charge := b.countdown
		b.tail += b.insnLen
		return charge
	}

	// miss or non-sequential: reconfigure for the current mode and start a
	// fresh fetch run from addr.
	if mode == Thumb {
		b.insnLen = 2
		b.capacity = 8
	} else {
		b.insnLen = 4
		b.capacity = 4
	}
	b.reload = seqCostAtPage
	b.countdown = b.reload
	b.tail = addr + b.insnLen
	b.head = b.tail
	b.size = 0

	return cost
}

// Idle advances the buffer by n cycles of CPU idle time, filling it as far
// as capacity allows, per spec §4.3 "On N cycles of CPU idle time".
func (b *Buffer) Idle(n uint32) {
	for n >= b.countdown && b.size < b.capacity {
		n -= b.countdown
		b.head += b.insnLen
		b.size++
		b.countdown = b.reload
	}
	if b.size < b.capacity {
		b.countdown -= n
	}
}

// Size, Head, Tail and Countdown expose state for the quicksave codec and
// for tests; none of them are needed by the arbitrator itself.
func (b *Buffer) Size() uint32      { return b.size }
func (b *Buffer) Head() uint32      { return b.head }
func (b *Buffer) Tail() uint32      { return b.tail }
func (b *Buffer) Countdown() uint32 { return b.countdown }
func (b *Buffer) Capacity() uint32  { return b.capacity }
func (b *Buffer) Reload() uint32    { return b.reload }

// Snapshot and Restore round-trip the buffer's full state for the
// quicksave codec's memory-meta chunk.
type Snapshot struct {
	Enabled   bool
	InsnLen   uint32
	Capacity  uint32
	Size      uint32
	Head      uint32
	Tail      uint32
	Countdown uint32
	Reload    uint32
}

func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		Enabled:   b.Enabled,
		InsnLen:   b.insnLen,
		Capacity:  b.capacity,
		Size:      b.size,
		Head:      b.head,
		Tail:      b.tail,
		Countdown: b.countdown,
		Reload:    b.reload,
	}
}

func (b *Buffer) Restore(s Snapshot) {
	b.Enabled = s.Enabled
	b.insnLen = s.InsnLen
	b.capacity = s.Capacity
	b.size = s.Size
	b.head = s.Head
	b.tail = s.Tail
	b.countdown = s.Countdown
	b.reload = s.Reload
}
