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

import "fmt"

// chunkKind enumerates the fourteen chunk kinds from spec §6. Values are
// fixed on the wire - never renumber an existing entry.
type chunkKind uint32

const (
	chunkCore           chunkKind = 1
	chunkIO             chunkKind = 2
	chunkPPU            chunkKind = 3
	chunkGPIO           chunkKind = 4
	chunkAPU            chunkKind = 5
	chunkScheduler      chunkKind = 6
	chunkSchedulerEvents chunkKind = 7
	chunkMemoryMeta     chunkKind = 8
	chunkEWRAM          chunkKind = 9
	chunkIWRAM          chunkKind = 10
	chunkVRAM           chunkKind = 11
	chunkPALRAM         chunkKind = 12
	chunkOAM            chunkKind = 13
	chunkBackupStorage  chunkKind = 14
)

func (k chunkKind) String() string {
	switch k {
	case chunkCore:
		return "core"
	case chunkIO:
		return "io"
	case chunkPPU:
		return "ppu"
	case chunkGPIO:
		return "gpio"
	case chunkAPU:
		return "apu"
	case chunkScheduler:
		return "scheduler"
	case chunkSchedulerEvents:
		return "scheduler-events"
	case chunkMemoryMeta:
		return "memory-meta"
	case chunkEWRAM:
		return "ewram"
	case chunkIWRAM:
		return "iwram"
	case chunkVRAM:
		return "vram"
	case chunkPALRAM:
		return "palram"
	case chunkOAM:
		return "oam"
	case chunkBackupStorage:
		return "backup-storage"
	}
	return fmt.Sprintf("unknown(0x%08x)", uint32(k))
}

// writeChunk appends an {u32 kind, u32 size, payload} record (spec §6).
func writeChunk(w *writer, kind chunkKind, payload []byte) {
	w.WriteU32(uint32(kind))
	w.WriteU32(uint32(len(payload)))
	w.WriteBytes(payload)
}

// chunkHeader is the decoded {kind, size} pair read from the front of
// every chunk.
type chunkHeader struct {
	Kind chunkKind
	Size uint32
}

func readChunkHeader(r *reader) (chunkHeader, error) {
	kindRaw, err := r.ReadU32()
	if err != nil {
		return chunkHeader{}, err
	}
	size, err := r.ReadU32()
	if err != nil {
		return chunkHeader{}, err
	}
	return chunkHeader{Kind: chunkKind(kindRaw), Size: size}, nil
}

// eventRecordSize is the fixed, field-by-field encoded size of one
// scheduler.Event: Kind(u32) + Active(u8) + Repeat(u8) + At(u64) +
// Period(u64) + Args(Timer u8 + DMAChannel u8 + Reserved[6]).
const eventRecordSize = 4 + 1 + 1 + 8 + 8 + 8
