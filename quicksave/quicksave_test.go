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

package quicksave_test

import (
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/gbacore/hardware/apu"
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/hardware/cpu"
	"github.com/jetsetilly/gbacore/hardware/gpio"
	"github.com/jetsetilly/gbacore/hardware/io"
	"github.com/jetsetilly/gbacore/hardware/memory"
	"github.com/jetsetilly/gbacore/hardware/memory/memorymap"
	"github.com/jetsetilly/gbacore/hardware/ppu"
	"github.com/jetsetilly/gbacore/hardware/scheduler"
	"github.com/jetsetilly/gbacore/quicksave"
	"github.com/jetsetilly/gbacore/test"
)

// corruptChunkSize rewrites the declared size field of the first chunk of
// the given kind (see quicksave's unexported chunkKind enum, spec §6) to
// size-1, so Load must reject the stream rather than reading past or short
// of the real payload.
func corruptChunkSize(data []byte, kind uint32) []byte {
	corrupted := append([]byte(nil), data...)
	off := 16 // past the fixed file header
	for off+8 <= len(corrupted) {
		gotKind := binary.LittleEndian.Uint32(corrupted[off : off+4])
		size := binary.LittleEndian.Uint32(corrupted[off+4 : off+8])
		if gotKind == kind {
			binary.LittleEndian.PutUint32(corrupted[off+4:off+8], size-1)
			return corrupted
		}
		off += 8 + int(size)
	}
	return corrupted
}

// newTarget builds a fully wired quicksave.Target around a rom of the
// given length, with an SRAM backup chip attached so the backup-storage
// chunk round-trips too.
func newTarget(rom []byte) *quicksave.Target {
	sched := scheduler.New()
	cpuRegs := cpu.New()
	ioRegs := io.New()
	chip := backup.New(backup.SRAM)
	bus := memory.New(sched, cpuRegs, ioRegs, rom, nil, chip, nil)

	return &quicksave.Target{
		CPU:   cpuRegs,
		IO:    ioRegs,
		PPU:   ppu.New(),
		APU:   apu.New(),
		Sched: sched,
		Bus:   bus,
		ROM:   rom,
	}
}

func fixtureROM(size int, romCode string) []byte {
	rom := make([]byte, size)
	if size >= 0xB0 && len(romCode) == 4 {
		copy(rom[0xAC:0xB0], romCode)
	}
	return rom
}

// TestRoundTripPreservesState covers testable property 8: Save followed by
// Load against a freshly constructed, matching Target reproduces every
// value that was live at Save time.
func TestRoundTripPreservesState(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)

	src.CPU.R[3] = 0xdeadbeef
	src.CPU.PC = 0x08000100
	src.Sched.RunUntil(1234)
	src.Bus.WriteRaw8(0x02000010, 0x77)
	src.Bus.BackupChip().WriteByte(0x10, 0x99)

	data := quicksave.Save(src)

	dst := newTarget(rom)
	err := quicksave.Load(dst, data)
	test.DemandSuccess(t, err)

	test.DemandEquality(t, dst.CPU.R[3], uint32(0xdeadbeef))
	test.DemandEquality(t, dst.CPU.PC, uint32(0x08000100))
	test.DemandEquality(t, dst.Sched.Cycles(), src.Sched.Cycles())
	test.DemandEquality(t, dst.Bus.ReadRaw8(0x02000010), uint8(0x77))
	test.DemandEquality(t, dst.Bus.BackupChip().ReadByte(0x10), uint8(0x99))
}

// TestWaitControlRebuiltOnLoad demands that loading a snapshot rebuilds
// the cartridge-bus latency tables from the restored WAITCNT bits rather
// than leaving a freshly constructed Target's defaults in place.
func TestWaitControlRebuiltOnLoad(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)

	// WS0 non-sequential wait states to the slowest setting (bits 2-3 =
	// 3), prefetch left disabled so the cost comes straight out of the
	// latency table rather than through prefetch-buffer bookkeeping.
	src.Bus.Write16(memorymap.OriginIO+0x204, 0x000c, false)
	_, wantCycles := src.Bus.Read16(memorymap.OriginROM0, false)

	data := quicksave.Save(src)

	dst := newTarget(rom)
	err := quicksave.Load(dst, data)
	test.DemandSuccess(t, err)

	_, gotCycles := dst.Bus.Read16(memorymap.OriginROM0, false)
	test.DemandEquality(t, gotCycles, wantCycles)
}

// TestAPUChunkSizeRejected covers the scalar-chunk exact-size rule of spec
// §4.4 for the apu chunk: a declared size that doesn't match apu.RecordSize
// must be rejected rather than silently truncated or zero-padded by
// apu.State.Restore.
func TestAPUChunkSizeRejected(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)
	data := quicksave.Save(src)

	corrupted := corruptChunkSize(data, 5) // chunkAPU
	dst := newTarget(rom)
	err := quicksave.Load(dst, corrupted)
	test.DemandFailure(t, err)
}

// TestGPIOChunkSizeRejected covers the same rule for the gpio chunk: when a
// GPIO device is attached, its snapshot length is fixed for that device, so
// a declared size that disagrees with it must be rejected rather than
// accepted as a shorter or longer payload (spec §4.4, quicksave.c:474).
func TestGPIOChunkSizeRejected(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)
	src.GPIO = gpio.New()
	data := quicksave.Save(src)

	corrupted := corruptChunkSize(data, 4) // chunkGPIO
	dst := newTarget(rom)
	dst.GPIO = gpio.New()
	err := quicksave.Load(dst, corrupted)
	test.DemandFailure(t, err)
}

// TestMismatchedROMRejected covers testable property 9 and the load-
// mismatch error kind from spec §7: a snapshot captured against one ROM
// must not load against a different one.
func TestMismatchedROMRejected(t *testing.T) {
	src := newTarget(fixtureROM(0x1000, "AGBE"))
	data := quicksave.Save(src)

	dst := newTarget(fixtureROM(0x2000, "ZZZZ"))
	err := quicksave.Load(dst, data)
	test.DemandFailure(t, err)
}

// TestTruncatedStreamRejected covers the load-corrupt error kind: Load
// must fail cleanly, not panic, on a stream cut off mid-chunk.
func TestTruncatedStreamRejected(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)
	data := quicksave.Save(src)

	for _, cut := range []int{0, 4, 15, 16, len(data) / 2, len(data) - 1} {
		dst := newTarget(rom)
		err := quicksave.Load(dst, data[:cut])
		test.DemandFailure(t, err)
	}
}

// TestUnknownVersionRejected exercises the version-mismatch branch of
// Load's header check.
func TestUnknownVersionRejected(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)
	data := quicksave.Save(src)

	// version field sits at byte offset 4, little-endian u32.
	corrupted := append([]byte(nil), data...)
	corrupted[4] = 99

	dst := newTarget(rom)
	err := quicksave.Load(dst, corrupted)
	test.DemandFailure(t, err)
}

// TestUnknownChunkSkippedForwardCompat covers testable property 11: an
// unrecognised chunk kind appended to an otherwise valid stream must be
// skipped rather than rejected, so older Load implementations keep reading
// newer saves produced by future Save versions.
func TestUnknownChunkSkippedForwardCompat(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	src := newTarget(rom)
	data := quicksave.Save(src)

	// append a bogus chunk - kind 0xFFFFFFFF, 4 bytes of payload - after
	// the last real chunk, but before nothing (this codec has no trailer).
	bogus := []byte{0xff, 0xff, 0xff, 0xff, 0x04, 0x00, 0x00, 0x00, 0xaa, 0xbb, 0xcc, 0xdd}
	withExtra := append(append([]byte(nil), data...), bogus...)

	dst := newTarget(rom)
	err := quicksave.Load(dst, withExtra)
	test.DemandSuccess(t, err)
}

// TestEmptyBackupSkipsChunk checks that a Target with no backup chip
// attached produces (and loads) a stream with no backup-storage chunk at
// all, rather than an empty one.
func TestEmptyBackupSkipsChunk(t *testing.T) {
	rom := fixtureROM(0x1000, "AGBE")
	sched := scheduler.New()
	cpuRegs := cpu.New()
	ioRegs := io.New()
	bus := memory.New(sched, cpuRegs, ioRegs, rom, nil, nil, nil)

	src := &quicksave.Target{
		CPU:   cpuRegs,
		IO:    ioRegs,
		PPU:   ppu.New(),
		APU:   apu.New(),
		Sched: sched,
		Bus:   bus,
		ROM:   rom,
	}

	data := quicksave.Save(src)

	// walk the chunk headers and demand no backup-storage chunk (kind 14)
	sawBackup := false
	for off := 16; off+8 <= len(data); {
		if binary.LittleEndian.Uint32(data[off:off+4]) == 14 {
			sawBackup = true
		}
		off += 8 + int(binary.LittleEndian.Uint32(data[off+4:off+8]))
	}
	test.DemandEquality(t, sawBackup, false)

	dst := &quicksave.Target{
		CPU:   cpu.New(),
		IO:    io.New(),
		PPU:   ppu.New(),
		APU:   apu.New(),
		Sched: scheduler.New(),
		Bus:   memory.New(scheduler.New(), cpu.New(), io.New(), rom, nil, nil, nil),
		ROM:   rom,
	}
	err := quicksave.Load(dst, data)
	test.DemandSuccess(t, err)
}
