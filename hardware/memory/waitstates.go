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

package memory

import "github.com/jetsetilly/gbacore/hardware/memory/memorymap"

// accessKind distinguishes the two rows of the latency tables.
type accessKind int

const (
	nonSequential accessKind = 0
	sequential    accessKind = 1
)

// gamepakNonSeqWaitstates converts a two-bit WAITCNT wait-state field into
// the base non-sequential cycle count the cartridge bus adds. Values taken
// from GBATek's WAITCNT table.
var gamepakNonSeqWaitstates = [4]uint32{4, 3, 2, 8}

// WaitControl is the decoded form of the WAITCNT register: the handful of
// bitfields that feed the latency tables. It is kept separate from the
// raw register value held by hardware/io so that waitstates.go never has to
// know the register's byte layout.
type WaitControl struct {
	WS0NonSeq uint8 // 0..3
	WS0Seq    uint8 // 0..1
	WS1NonSeq uint8
	WS1Seq    uint8
	WS2NonSeq uint8
	WS2Seq    uint8
	SRAM      uint8 // 0..3
	Prefetch  bool
}

// DecodeWaitControl unpacks the raw 16-bit WAITCNT value into the
// bitfields the latency tables need. Bit layout per GBATek:
// 0-1 SRAM wait, 2-3 WS0 first access, 4 WS0 second access, 5-6 WS1 first
// access, 7 WS1 second access, 8-9 WS2 first access, 10 WS2 second
// access, 14 prefetch buffer enable.
func DecodeWaitControl(bits uint16) WaitControl {
	return WaitControl{
		SRAM:      uint8(bits & 0x3),
		WS0NonSeq: uint8((bits >> 2) & 0x3),
		WS0Seq:    uint8((bits >> 4) & 0x1),
		WS1NonSeq: uint8((bits >> 5) & 0x3),
		WS1Seq:    uint8((bits >> 7) & 0x1),
		WS2NonSeq: uint8((bits >> 8) & 0x3),
		WS2Seq:    uint8((bits >> 10) & 0x1),
		Prefetch:  bits&0x4000 != 0,
	}
}

// latencyTables holds the per-emulator-instance access-time matrices. The
// source keeps these process-global; re-architected here as a field of Bus
// so that multiple concurrent cores never alias each other's tables (spec
// §9 "Global state").
type latencyTables struct {
	time16 [2][memorymap.NumSlots]uint32
	time32 [2][memorymap.NumSlots]uint32
}

// newLatencyTables builds the fixed portion of the tables - the regions
// whose cost never changes - leaving the cartridge and SRAM rows at zero
// until rebuild() is called with a WaitControl.
func newLatencyTables() *latencyTables {
	t := &latencyTables{}

	t.time16[nonSequential] = [memorymap.NumSlots]uint32{1, 1, 3, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	t.time16[sequential] = [memorymap.NumSlots]uint32{1, 1, 3, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	t.time32[nonSequential] = [memorymap.NumSlots]uint32{1, 1, 6, 1, 1, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	t.time32[sequential] = [memorymap.NumSlots]uint32{1, 1, 6, 1, 1, 2, 2, 1, 0, 0, 0, 0, 0, 0, 0, 1}

	return t
}

// rebuild recomputes the cartridge and SRAM rows of the tables from wcnt.
// Called once at reset and again every time the host writes WAITCNT (spec
// §4.2 "recomputed whenever the wait-state control register changes").
func (t *latencyTables) rebuild(wcnt WaitControl) {
	t.time16[nonSequential][memorymap.SlotROM0Lo] = 1 + gamepakNonSeqWaitstates[wcnt.WS0NonSeq]
	t.time16[nonSequential][memorymap.SlotROM0Hi] = 1 + gamepakNonSeqWaitstates[wcnt.WS0NonSeq]
	t.time16[nonSequential][memorymap.SlotROM1Lo] = 1 + gamepakNonSeqWaitstates[wcnt.WS1NonSeq]
	t.time16[nonSequential][memorymap.SlotROM1Hi] = 1 + gamepakNonSeqWaitstates[wcnt.WS1NonSeq]
	t.time16[nonSequential][memorymap.SlotROM2Lo] = 1 + gamepakNonSeqWaitstates[wcnt.WS2NonSeq]
	t.time16[nonSequential][memorymap.SlotROM2Hi] = 1 + gamepakNonSeqWaitstates[wcnt.WS2NonSeq]
	t.time16[nonSequential][memorymap.SlotSRAM] = 1 + gamepakNonSeqWaitstates[wcnt.SRAM]

	seqCost := func(fast bool, slow uint32) uint32 {
		if fast {
			return 1 + 1
		}
		return 1 + slow
	}
	t.time16[sequential][memorymap.SlotROM0Lo] = seqCost(wcnt.WS0Seq != 0, 2)
	t.time16[sequential][memorymap.SlotROM0Hi] = seqCost(wcnt.WS0Seq != 0, 2)
	t.time16[sequential][memorymap.SlotROM1Lo] = seqCost(wcnt.WS1Seq != 0, 4)
	t.time16[sequential][memorymap.SlotROM1Hi] = seqCost(wcnt.WS1Seq != 0, 4)
	t.time16[sequential][memorymap.SlotROM2Lo] = seqCost(wcnt.WS2Seq != 0, 8)
	t.time16[sequential][memorymap.SlotROM2Hi] = seqCost(wcnt.WS2Seq != 0, 8)
	t.time16[sequential][memorymap.SlotSRAM] = 1 + gamepakNonSeqWaitstates[wcnt.SRAM]

	for _, slot := range []int{
		memorymap.SlotROM0Lo, memorymap.SlotROM0Hi,
		memorymap.SlotROM1Lo, memorymap.SlotROM1Hi,
		memorymap.SlotROM2Lo, memorymap.SlotROM2Hi,
		memorymap.SlotSRAM,
	} {
		t.time32[nonSequential][slot] = t.time16[nonSequential][slot] + t.time16[sequential][slot]
		t.time32[sequential][slot] = 2 * t.time16[sequential][slot]
	}
}

// cost16 and cost32 look up the tabulated cycle cost for an access of the
// given width and sequentiality at slot.
func (t *latencyTables) cost16(kind accessKind, slot int) uint32 { return t.time16[kind][slot] }
func (t *latencyTables) cost32(kind accessKind, slot int) uint32 { return t.time32[kind][slot] }

// seq16 and seq32 are the sequential-access cost at slot, used by the
// prefetch buffer to compute its reload value when reconfiguring (spec
// §4.3 "reload = seq16[page]" / "seq32[page]").
func (t *latencyTables) seq16(slot int) uint32 { return t.time16[sequential][slot] }
func (t *latencyTables) seq32(slot int) uint32 { return t.time32[sequential][slot] }
