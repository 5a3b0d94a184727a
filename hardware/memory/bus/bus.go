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

// Package bus declares the interfaces the CPU and DMA collaborators use to
// talk to the memory arbitrator, in the spirit of the teacher's own
// hardware/memory package splitting CPUBus/ChipBus/PeriphBus apart from the
// concrete memory implementation. Keeping the interface in its own leaf
// package lets hardware/cpu depend on bus without depending on the much
// larger hardware/memory package that implements it.
package bus

// CPUBus is the width-dispatching interface the CPU instruction decoders
// use for every memory access. Accesses never fail: invalid or unmapped
// addresses fall through to open-bus reads and silently-dropped writes,
// per spec §4.2's failure model - so every method here is infallible.
type CPUBus interface {
	Read8(addr uint32, sequential bool) (uint8, uint32)
	Read16(addr uint32, sequential bool) (uint16, uint32)
	Read32(addr uint32, sequential bool) (uint32, uint32)

	ReadRotated16(addr uint32, sequential bool) (uint16, uint32)
	ReadRotated32(addr uint32, sequential bool) (uint32, uint32)

	Write8(addr uint32, val uint8, sequential bool) uint32
	Write16(addr uint32, val uint16, sequential bool) uint32
	Write32(addr uint32, val uint32, sequential bool) uint32
}

// RawBus bypasses cycle accounting entirely. It is used by the quicksave
// codec (to snapshot/restore region contents) and by any future debugger
// that must inspect memory without perturbing timing.
type RawBus interface {
	ReadRaw8(addr uint32) uint8
	WriteRaw8(addr uint32, val uint8)
}
