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

// Kind identifies the sort of work an Event represents. The scheduler itself
// never interprets a Kind - it is purely a key used to look up a Handler in
// the dispatch table installed with SetHandler.
type Kind uint32

// The enumerated event kinds. Values are stable across quicksave versions -
// never renumber an existing entry, only append.
const (
	KindNone Kind = iota
	KindHDraw
	KindHBlank
	KindTimer0Overflow
	KindTimer1Overflow
	KindTimer2Overflow
	KindTimer3Overflow
	KindDMAFire
	KindAPUSample
	KindAudioFIFORefill
	KindIRQLine
	KindQuitSentinel
)

func (k Kind) String() string {
	switch k {
	case KindHDraw:
		return "hdraw"
	case KindHBlank:
		return "hblank"
	case KindTimer0Overflow:
		return "timer0-overflow"
	case KindTimer1Overflow:
		return "timer1-overflow"
	case KindTimer2Overflow:
		return "timer2-overflow"
	case KindTimer3Overflow:
		return "timer3-overflow"
	case KindDMAFire:
		return "dma-fire"
	case KindAPUSample:
		return "apu-sample"
	case KindAudioFIFORefill:
		return "audio-fifo-refill"
	case KindIRQLine:
		return "irq-line"
	case KindQuitSentinel:
		return "quit-sentinel"
	}
	return "none"
}

// Args is the inline argument payload carried by every Event. It is sized to
// the largest argument any handler in the core needs (a timer index or a DMA
// channel index) so that events never require heap indirection - this keeps
// the event store a flat, cache-hot array and keeps it trivially
// serialisable by the quicksave codec.
type Args struct {
	Timer      uint8
	DMAChannel uint8
	Reserved   [6]byte
}

// Event is a single unit of deferred work, keyed by an absolute cycle count.
// Event is plain data by design: every field round-trips through the
// quicksave codec, and none of them may be a pointer or an interface.
type Event struct {
	Kind   Kind
	Active bool
	Repeat bool
	At     uint64
	Period uint64
	Args   Args
}

// Handler is invoked when an Event fires. cycles is the cycle count at which
// the event fired (equal to the event's At at the moment of dispatch).
type Handler func(args Args, cycles uint64)
