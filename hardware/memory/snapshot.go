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

import (
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/hardware/memory/prefetch"
)

// MetaSnapshot is everything the quicksave memory-meta chunk needs that
// isn't already covered by a region chunk or by the io/cpu/ppu/gpio/apu
// scalar chunks (spec §4.4): the BIOS and DMA bus latches, the open-bus
// CPU-prefetch shadow, the DMA-active and gamepak-bus-in-use flags, the
// full prefetch buffer state, the backup chip's declared type, and
// whatever controller state (flash bank/command state, EEPROM shift
// register) that chip carries on top of its raw data blob.
type MetaSnapshot struct {
	BiosLatch uint32

	OpenBusCPUPrefetch0 uint32
	OpenBusCPUPrefetch1 uint32
	OpenBusDMABus       uint32
	OpenBusLastFromDMA  bool

	DMAActive       bool
	GamepakBusInUse bool

	Prefetch prefetch.Snapshot

	BackupType backup.Type
	BackupMeta []byte
}

// Snapshot captures the memory-meta chunk's contents.
func (b *Bus) Snapshot() MetaSnapshot {
	s := MetaSnapshot{
		BiosLatch:           b.biosLatch,
		OpenBusCPUPrefetch0: b.openBus.CPUPrefetch0,
		OpenBusCPUPrefetch1: b.openBus.CPUPrefetch1,
		OpenBusDMABus:       b.openBus.DMABus,
		OpenBusLastFromDMA:  b.openBus.LastFromDMA,
		DMAActive:           b.dmaActive,
		GamepakBusInUse:     b.gamepakBusInUse,
		Prefetch:            b.prefetchBuf.Snapshot(),
		BackupType:          backup.None,
	}
	if b.backupChip != nil {
		s.BackupType = b.backupChip.Type()
		if mc, ok := b.backupChip.(backup.MetaChip); ok {
			s.BackupMeta = mc.MetaSnapshot()
		}
	}
	return s
}

// Restore replays a MetaSnapshot captured by Snapshot. It does not touch
// the backup chip's raw data (that is the separate backup-storage chunk's
// job) or the wait-state tables (those are rebuilt from the io chunk's
// WAITCNT bytes via SetWaitControl, once the caller has restored io).
func (b *Bus) Restore(s MetaSnapshot) {
	b.biosLatch = s.BiosLatch
	b.openBus.CPUPrefetch0 = s.OpenBusCPUPrefetch0
	b.openBus.CPUPrefetch1 = s.OpenBusCPUPrefetch1
	b.openBus.DMABus = s.OpenBusDMABus
	b.openBus.LastFromDMA = s.OpenBusLastFromDMA
	b.dmaActive = s.DMAActive
	b.gamepakBusInUse = s.GamepakBusInUse
	b.prefetchBuf.Restore(s.Prefetch)
	if b.backupChip != nil && s.BackupMeta != nil {
		if mc, ok := b.backupChip.(backup.MetaChip); ok {
			mc.MetaRestore(s.BackupMeta)
		}
	}
}

// region identifies one of the five paged RAM regions the quicksave codec
// addresses directly by chunk kind.
type region int

const (
	RegionEWRAM region = iota
	RegionIWRAM
	RegionVRAM
	RegionPALRAM
	RegionOAM
)

func (b *Bus) regionRAM(r region) *pagedRAM {
	switch r {
	case RegionEWRAM:
		return b.ewram
	case RegionIWRAM:
		return b.iwram
	case RegionVRAM:
		return b.vram
	case RegionPALRAM:
		return b.palram
	case RegionOAM:
		return b.oam
	}
	return nil
}

// RegionBytes returns the logical contents of one of the five RAM
// regions, for the quicksave codec's region-payload encoder.
func (b *Bus) RegionBytes(r region) []byte {
	return b.regionRAM(r).Snapshot()
}

// RegionSize returns the intrinsic logical size of a region, which the
// quicksave codec's region-chunk validator compares against the decoded
// size declared in the payload header (spec §4.4 step 3, "decoded size
// must equal the region's intrinsic size").
func (b *Bus) RegionSize(r region) int {
	return b.regionRAM(r).Size()
}

// RestoreRegion replaces a region's contents from a flat byte slice of
// exactly RegionSize(r) bytes.
func (b *Bus) RestoreRegion(r region, data []byte) {
	b.regionRAM(r).Restore(data)
}

// BackupChip exposes the backup collaborator itself, for the quicksave
// codec's backup-storage chunk (which reads/writes the chip's raw data,
// as opposed to the controller state carried in MetaSnapshot).
func (b *Bus) BackupChip() backup.Chip {
	return b.backupChip
}

// SetBackupChip installs chip as the bus's backup collaborator. The
// chunked loader calls it on every successful load, with a fresh chip of
// the snapshot's backup type, or nil when the snapshot has none.
func (b *Bus) SetBackupChip(chip backup.Chip) {
	b.backupChip = chip
}
