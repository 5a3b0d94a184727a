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

// Package gpio models the cartridge-side GPIO port (used by real-time-clock
// and solar-sensor peripherals on a handful of cartridges) as an external
// collaborator of the bus arbitrator. The peripheral protocols themselves
// are out of scope per spec §1; this package carries just the register
// window and the readable flag the arbitrator's routing rule needs.
package gpio

// RegStart and RegEnd bound the four 16-bit GPIO registers mapped into the
// cartridge ROM window at 0x080000C4-0x080000CA (spec §4.2).
const (
	RegStart = 0x080000C4
	RegEnd   = 0x080000CA
)

// Device is the GPIO collaborator interface the arbitrator drives. A
// cartridge with no GPIO peripheral simply has no Device at all - the
// arbitrator checks for a nil Device before routing.
type Device interface {
	// Readable reports whether the GPIO port is currently configured to
	// allow reads. The port is normally write-only; firmware toggles it
	// into read mode briefly to poll the RTC.
	Readable() bool

	ReadRegister(addr uint32) uint8
	WriteRegister(addr uint32, val uint8)

	Snapshot() []byte
	Restore(data []byte)
}

// InWindow reports whether addr falls inside the GPIO register window.
func InWindow(addr uint32) bool {
	return addr >= RegStart && addr <= RegEnd
}

// generic is a minimal Device: four bytes of register storage and a
// read-enable latch, enough for the arbitrator's routing contract without
// decoding any particular peripheral's command protocol.
type generic struct {
	regs     [4]uint8
	readable bool
}

// New returns a Device backed by plain register storage. romdb substitutes
// a more specific Device only if a future peripheral-protocol package is
// added; today every detected GPIO cartridge gets this generic shell.
func New() Device {
	return &generic{}
}

func (g *generic) Readable() bool { return g.readable }

func (g *generic) ReadRegister(addr uint32) uint8 {
	idx := (addr - RegStart) / 2
	if idx >= uint32(len(g.regs)) {
		return 0
	}
	return g.regs[idx]
}

func (g *generic) WriteRegister(addr uint32, val uint8) {
	idx := (addr - RegStart) / 2
	if idx >= uint32(len(g.regs)) {
		return
	}
	if idx == 1 {
		g.readable = val&1 != 0
	}
	g.regs[idx] = val
}

func (g *generic) Snapshot() []byte {
	out := make([]byte, len(g.regs)+1)
	copy(out, g.regs[:])
	if g.readable {
		out[len(g.regs)] = 1
	}
	return out
}

func (g *generic) Restore(data []byte) {
	if len(data) < len(g.regs)+1 {
		return
	}
	copy(g.regs[:], data[:len(g.regs)])
	g.readable = data[len(g.regs)] != 0
}
