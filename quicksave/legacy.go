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

package quicksave

import "github.com/jetsetilly/gbacore/curated"

// loadLegacy restores state from the magic-less v1 format: a flat packed
// copy of CPU, IO, PPU, GPIO, APU and the scheduler header, followed by a
// u32 event count and that many fixed-size event records. Save never
// produces this format - it exists purely so that state files written by
// an older version of this codec keep loading.
//
// Per spec §9's open question, v1 also serialised the rest of the memory
// struct, including pointers that mean nothing across a load - the
// source restores rom separately and leaves everything else alone. This
// loader follows the same rule: only the fields whose layout is
// recoverable purely from their size (CPU/IO/PPU/GPIO/APU/scheduler
// header, exactly as the v2 scalar chunks encode them) are read; nothing
// about memory-meta or the RAM regions is touched, so a v1 load leaves
// those collaborators at whatever state they were already in.
func loadLegacy(t *Target, data []byte) error {
	r := newReader(data)

	cpuSnap, err := decodeCPU(r)
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated core record")
	}

	ioData, err := r.ReadBytes(int(ioLegacySize()))
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated io record")
	}

	ppuSnap, err := decodePPU(r)
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated ppu record")
	}

	gpioData, err := r.ReadBytes(gpioLegacySize(t))
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated gpio record")
	}

	apuData, err := r.ReadBytes(apuLegacySize())
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated apu record")
	}

	cycles, nextEvent, eventsLen, err := decodeSchedulerHeader(r)
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated scheduler header")
	}

	events, err := decodeEvents(r, int(eventsLen))
	if err != nil {
		return curated.Errorf(ErrCorrupt, "legacy load: truncated event records")
	}

	t.CPU.Restore(cpuSnap)
	if len(ioData) > 0 {
		t.IO.Restore(ioData)
	}
	t.PPU.Restore(ppuSnap)
	if t.GPIO != nil && len(gpioData) > 0 {
		t.GPIO.Restore(gpioData)
	}
	if len(apuData) > 0 {
		t.APU.Restore(apuData)
	}
	t.Sched.RestoreRaw(cycles, nextEvent, events)

	return nil
}

func ioLegacySize() uint32 {
	return 0x400
}

func gpioLegacySize(t *Target) int {
	if t.GPIO == nil {
		return 0
	}
	return len(t.GPIO.Snapshot())
}

func apuLegacySize() int {
	return 64
}
