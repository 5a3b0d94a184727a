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

// openBusLatch is the data the arbitrator consults to synthesise a value
// for reads of unmapped or invalid addresses, per spec §3 "Open-bus latch"
// and GBATek's "GBA Unpredictable Things". CPUPrefetch0/1 are copied from
// the CPU's Prefetch0/Prefetch1 (updated by the CPU collaborator through
// cpu.Registers.Fetch) at the start of every region read; the arbitrator
// itself never decodes an instruction, so it trusts whatever the CPU last
// reported.
type openBusLatch struct {
	CPUPrefetch0 uint32
	CPUPrefetch1 uint32
	DMABus       uint32
	LastFromDMA  bool
}

// read synthesises an open-bus value for a read at addr, given the CPU's
// current program counter and execution mode. This mirrors
// mem_openbus_read from the source driving this design almost line for
// line, because the rules here are GBATek quirks with no room for
// reinterpretation.
func (l *openBusLatch) read(addr uint32, pc uint32, thumb bool) uint32 {
	shift := uint(addr&0x3) * 8

	if l.LastFromDMA {
		return l.DMABus >> shift
	}

	var val uint32
	if !thumb {
		val = l.CPUPrefetch1
		return val >> shift
	}

	switch memorymap.Slot(pc) {
	case memorymap.SlotEWRAM, memorymap.SlotPALRAM, memorymap.SlotVRAM,
		memorymap.SlotROM0Lo, memorymap.SlotROM0Hi,
		memorymap.SlotROM1Lo, memorymap.SlotROM1Hi,
		memorymap.SlotROM2Lo, memorymap.SlotROM2Hi:
		val = l.CPUPrefetch1 | (l.CPUPrefetch1 << 16)

	case memorymap.SlotBIOS, memorymap.SlotOAM:
		if pc&0x2 == 0 {
			val = l.CPUPrefetch1 | (l.CPUPrefetch1 << 16)
		} else {
			val = l.CPUPrefetch0 | (l.CPUPrefetch1 << 16)
		}

	case memorymap.SlotIWRAM:
		if pc&0x2 == 0 {
			val = l.CPUPrefetch1 | (l.CPUPrefetch0 << 16)
		} else {
			val = l.CPUPrefetch0 | (l.CPUPrefetch1 << 16)
		}

	default:
		invariant(OpenBusFromImpossiblePage, memorymap.Slot(pc))
	}

	return val >> shift
}
