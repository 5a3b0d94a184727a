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

// Package apu holds the opaque state the quicksave apu chunk carries.
// Channel synthesis is an explicit spec Non-goal (no audio output); the
// scheduler still fires APU-sample and audio-FIFO-refill events on a
// fixed cadence so that timing-sensitive guest code observes the right
// IRQ behaviour, but this package never produces a sample.
package apu

// RecordSize is large enough to hold four channels' worth of frequency/
// envelope/length counters without this package needing to model what
// any of them mean. Exported so quicksave's chunk dispatch has a concrete
// size to validate the apu chunk against (spec §4.4 "size must equal the
// expected structure size exactly").
const RecordSize = 64

// State is the apu quicksave chunk: an opaque byte blob. Keeping it a
// named type rather than a bare []byte gives quicksave's chunk dispatch
// a concrete size to validate against (spec §4.4 "size must equal the
// expected structure size exactly").
type State struct {
	Raw [RecordSize]byte
}

func New() *State {
	return &State{}
}

func (s *State) Snapshot() []byte {
	out := make([]byte, RecordSize)
	copy(out, s.Raw[:])
	return out
}

func (s *State) Restore(data []byte) {
	copy(s.Raw[:], data)
}
