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

// Package clocks holds the ARM7TDMI master clock rate, mirroring the
// teacher's clocks package of television-standard clock constants.
package clocks

// MasterClockHz is the GBA's master clock rate. The scheduler's cycle
// counter ticks at this rate; everything else (CPU cycles, PPU scanline
// timing, APU sample rate) is derived from it as a fixed divisor.
const MasterClockHz = 16777216

// CyclesPerScanline and ScanlinesPerFrame give the PPU collaborator's
// fixed timing grid - 4 cycles per dot, 308 dots per scanline (240
// visible + 68 blank), 228 scanlines per frame (160 visible + 68 vblank).
const (
	CyclesPerDot       = 4
	DotsPerScanline    = 308
	CyclesPerScanline  = CyclesPerDot * DotsPerScanline
	ScanlinesPerFrame  = 228
	CyclesPerFrame     = CyclesPerScanline * ScanlinesPerFrame
)
