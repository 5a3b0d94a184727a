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

// Package scheduler implements the discrete-event scheduler that drives all
// timing in the core. It owns the cycle counter and an ordered store of
// future work units (timer overflows, DMA fires, PPU scanline events, and so
// on) keyed by absolute cycle count.
//
// The scheduler has no notion of what an event *does* - a Handler is
// supplied by the caller at Add() time and is invoked with the event's Args
// when it fires. This mirrors the relationship between hardware/memory and
// hardware/cpu in the teacher codebase: the low-level component knows
// nothing about the domain objects that drive it.
package scheduler
