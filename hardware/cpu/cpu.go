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

// Package cpu holds the ARM7TDMI register file the bus arbitrator and
// prefetch buffer need to observe - the program counter, the Thumb mode
// flag, and the two most recently fetched instruction words. Instruction
// decoding itself is out of scope per spec §1; this is the "core" chunk of
// the quicksave format and nothing more.
package cpu

// Mode names the two ARM7TDMI instruction sets.
type Mode int

const (
	ARM Mode = iota
	Thumb
)

// Registers is the core-CPU quicksave chunk: the thirteen general-purpose
// registers plus the banked/special ones the bus arbitrator's open-bus
// synthesis and the prefetch buffer's mode selection need to see.
type Registers struct {
	R  [13]uint32
	SP uint32
	LR uint32
	PC uint32

	CPSR     uint32
	CPSRMode Mode

	// Prefetch0/Prefetch1 are the last two instruction words fetched by
	// the decoder, copied into hardware/memory's open-bus latch on every
	// bus read. Thumb fetches store a zero-extended halfword here.
	Prefetch0 uint32
	Prefetch1 uint32
}

func New() *Registers {
	return &Registers{}
}

func (r *Registers) Thumb() bool {
	return r.CPSRMode == Thumb
}

// Fetch records a freshly fetched instruction word in the two-deep
// prefetch shadow, shifting the previous Prefetch1 into Prefetch0.
func (r *Registers) Fetch(insn uint32) {
	r.Prefetch0 = r.Prefetch1
	r.Prefetch1 = insn
}

// Snapshot and Restore round-trip the full register file for the
// quicksave codec's core-CPU scalar chunk (spec §4.4).
type Snapshot struct {
	R         [13]uint32
	SP        uint32
	LR        uint32
	PC        uint32
	CPSR      uint32
	CPSRMode  Mode
	Prefetch0 uint32
	Prefetch1 uint32
}

func (r *Registers) Snapshot() Snapshot {
	return Snapshot{
		R:         r.R,
		SP:        r.SP,
		LR:        r.LR,
		PC:        r.PC,
		CPSR:      r.CPSR,
		CPSRMode:  r.CPSRMode,
		Prefetch0: r.Prefetch0,
		Prefetch1: r.Prefetch1,
	}
}

func (r *Registers) Restore(s Snapshot) {
	r.R = s.R
	r.SP = s.SP
	r.LR = s.LR
	r.PC = s.PC
	r.CPSR = s.CPSR
	r.CPSRMode = s.CPSRMode
	r.Prefetch0 = s.Prefetch0
	r.Prefetch1 = s.Prefetch1
}
