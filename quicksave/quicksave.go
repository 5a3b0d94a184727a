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

// Package quicksave implements the chunked, versioned snapshot codec
// (component D): Save produces an opaque byte stream capturing every
// piece of live emulator state, and Load restores it, refusing to load a
// stream captured under a different cartridge. A legacy, magic-less v1
// format is accepted by Load for backward compatibility but is never
// produced by Save.
package quicksave

import (
	"fmt"

	"github.com/jetsetilly/gbacore/curated"
	"github.com/jetsetilly/gbacore/hardware/apu"
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/hardware/cpu"
	"github.com/jetsetilly/gbacore/hardware/gpio"
	"github.com/jetsetilly/gbacore/hardware/io"
	"github.com/jetsetilly/gbacore/hardware/memory"
	"github.com/jetsetilly/gbacore/hardware/memory/memorymap"
	"github.com/jetsetilly/gbacore/hardware/ppu"
	"github.com/jetsetilly/gbacore/hardware/scheduler"
)

const (
	magic          = "HSQS"
	currentVersion = uint32(2)
	headerSize     = 16

	cpuRecordSize      = 13*4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 // R[13] + SP + LR + PC + CPSR + CPSRMode + Prefetch0 + Prefetch1
	ppuRecordSize      = 2 + 4 + 8                    // VCount + DotInLine + FrameNumber
	schedulerHdrSize   = 8 + 8 + 4                     // cycles + nextEvent + eventsLen
	memoryMetaMinSize  = 4*4 + 1 + 1 + 1 + 1 + 4*7 + 4 + 4
)

// Target bundles every collaborator quicksave needs to reach into. It
// borrows all of them - Save and Load never take ownership of anything
// they're given.
type Target struct {
	CPU   *cpu.Registers
	IO    *io.Registers
	PPU   *ppu.State
	GPIO  gpio.Device
	APU   *apu.State
	Sched *scheduler.Scheduler
	Bus   *memory.Bus
	ROM   []byte
}

// romCode extracts the 4 bytes at ROM offset 0xAC, or zero if rom is
// shorter than 0xC0 bytes (spec §3 "Quicksave header").
func romCode(rom []byte) uint32 {
	if len(rom) < 0xC0 {
		return 0
	}
	return u32leDecode(rom[0xAC:0xB0])
}

// Save produces a byte stream capturing every piece of t's live state, in
// the fixed chunk order from spec §4.4.
func Save(t *Target) []byte {
	w := newWriter()

	w.WriteBytes([]byte(magic))
	w.WriteU32(currentVersion)
	w.WriteU32(uint32(len(t.ROM)))
	w.WriteU32(romCode(t.ROM))

	writeChunk(w, chunkCore, encodeCPU(t.CPU))
	writeChunk(w, chunkIO, t.IO.Snapshot())
	writeChunk(w, chunkPPU, encodePPU(t.PPU))
	if t.GPIO != nil {
		writeChunk(w, chunkGPIO, t.GPIO.Snapshot())
	}
	writeChunk(w, chunkAPU, t.APU.Snapshot())

	events := snapshotEvents(t.Sched)
	writeChunk(w, chunkScheduler, encodeSchedulerHeader(t.Sched, len(events)))
	if len(events) > 0 {
		writeChunk(w, chunkSchedulerEvents, encodeEvents(events))
	}

	writeChunk(w, chunkMemoryMeta, encodeMemoryMeta(t.Bus))

	writeChunk(w, chunkEWRAM, encodeRegionPayload(t.Bus.RegionBytes(memory.RegionEWRAM)))
	writeChunk(w, chunkIWRAM, encodeRegionPayload(t.Bus.RegionBytes(memory.RegionIWRAM)))
	writeChunk(w, chunkVRAM, encodeRegionPayload(t.Bus.RegionBytes(memory.RegionVRAM)))
	writeChunk(w, chunkPALRAM, encodeRegionPayload(t.Bus.RegionBytes(memory.RegionPALRAM)))
	writeChunk(w, chunkOAM, encodeRegionPayload(t.Bus.RegionBytes(memory.RegionOAM)))

	if chip := t.Bus.BackupChip(); chip != nil && chip.Size() > 0 {
		writeChunk(w, chunkBackupStorage, encodeRegionPayload(chip.Snapshot()))
	}

	return w.Bytes()
}

func snapshotEvents(s *scheduler.Scheduler) []scheduler.Event {
	events := make([]scheduler.Event, s.Len())
	for i := range events {
		events[i] = s.Peek(scheduler.Index(i))
	}
	return events
}

func encodeCPU(r *cpu.Registers) []byte {
	s := r.Snapshot()
	w := newWriter()
	for _, v := range s.R {
		w.WriteU32(v)
	}
	w.WriteU32(s.SP)
	w.WriteU32(s.LR)
	w.WriteU32(s.PC)
	w.WriteU32(s.CPSR)
	w.WriteU32(uint32(s.CPSRMode))
	w.WriteU32(s.Prefetch0)
	w.WriteU32(s.Prefetch1)
	return w.Bytes()
}

func decodeCPU(r *reader) (cpu.Snapshot, error) {
	var s cpu.Snapshot
	for i := range s.R {
		v, err := r.ReadU32()
		if err != nil {
			return s, err
		}
		s.R[i] = v
	}
	var err error
	if s.SP, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.LR, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.PC, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.CPSR, err = r.ReadU32(); err != nil {
		return s, err
	}
	mode, err := r.ReadU32()
	if err != nil {
		return s, err
	}
	s.CPSRMode = cpu.Mode(mode)
	if s.Prefetch0, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch1, err = r.ReadU32(); err != nil {
		return s, err
	}
	return s, nil
}

func encodePPU(p *ppu.State) []byte {
	s := p.Snapshot()
	w := newWriter()
	w.WriteU16(s.VCount)
	w.WriteU32(s.DotInLine)
	w.WriteU64(s.FrameNumber)
	return w.Bytes()
}

func decodePPU(r *reader) (ppu.State, error) {
	var s ppu.State
	var err error
	if s.VCount, err = r.ReadU16(); err != nil {
		return s, err
	}
	if s.DotInLine, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.FrameNumber, err = r.ReadU64(); err != nil {
		return s, err
	}
	return s, nil
}

func encodeSchedulerHeader(s *scheduler.Scheduler, eventsLen int) []byte {
	w := newWriter()
	w.WriteU64(s.Cycles())
	w.WriteU64(s.NextEvent())
	w.WriteU32(uint32(eventsLen))
	return w.Bytes()
}

func decodeSchedulerHeader(r *reader) (cycles, nextEvent uint64, eventsLen uint32, err error) {
	if cycles, err = r.ReadU64(); err != nil {
		return
	}
	if nextEvent, err = r.ReadU64(); err != nil {
		return
	}
	eventsLen, err = r.ReadU32()
	return
}

func encodeEvents(events []scheduler.Event) []byte {
	w := newWriter()
	for _, ev := range events {
		w.WriteU32(uint32(ev.Kind))
		w.WriteBool(ev.Active)
		w.WriteBool(ev.Repeat)
		w.WriteU64(ev.At)
		w.WriteU64(ev.Period)
		w.WriteU8(ev.Args.Timer)
		w.WriteU8(ev.Args.DMAChannel)
		w.WriteBytes(ev.Args.Reserved[:])
	}
	return w.Bytes()
}

func decodeEvents(r *reader, count int) ([]scheduler.Event, error) {
	events := make([]scheduler.Event, count)
	for i := range events {
		kind, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		active, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		repeat, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		at, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		period, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		timer, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		dmaChannel, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		reserved, err := r.ReadBytes(6)
		if err != nil {
			return nil, err
		}
		ev := scheduler.Event{
			Kind:   scheduler.Kind(kind),
			Active: active,
			Repeat: repeat,
			At:     at,
			Period: period,
			Args: scheduler.Args{
				Timer:      timer,
				DMAChannel: dmaChannel,
			},
		}
		copy(ev.Args.Reserved[:], reserved)
		events[i] = ev
	}
	return events, nil
}

func encodeMemoryMeta(b *memory.Bus) []byte {
	s := b.Snapshot()
	w := newWriter()
	w.WriteU32(s.BiosLatch)
	w.WriteU32(s.OpenBusCPUPrefetch0)
	w.WriteU32(s.OpenBusCPUPrefetch1)
	w.WriteU32(s.OpenBusDMABus)
	w.WriteBool(s.OpenBusLastFromDMA)
	w.WriteBool(s.DMAActive)
	w.WriteBool(s.GamepakBusInUse)
	w.WriteBool(s.Prefetch.Enabled)
	w.WriteU32(s.Prefetch.InsnLen)
	w.WriteU32(s.Prefetch.Capacity)
	w.WriteU32(s.Prefetch.Size)
	w.WriteU32(s.Prefetch.Head)
	w.WriteU32(s.Prefetch.Tail)
	w.WriteU32(s.Prefetch.Countdown)
	w.WriteU32(s.Prefetch.Reload)
	w.WriteU32(uint32(s.BackupType))
	w.WriteU32(uint32(len(s.BackupMeta)))
	w.WriteBytes(s.BackupMeta)
	return w.Bytes()
}

func decodeMemoryMeta(r *reader) (memory.MetaSnapshot, error) {
	var s memory.MetaSnapshot
	var err error
	if s.BiosLatch, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.OpenBusCPUPrefetch0, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.OpenBusCPUPrefetch1, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.OpenBusDMABus, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.OpenBusLastFromDMA, err = r.ReadBool(); err != nil {
		return s, err
	}
	if s.DMAActive, err = r.ReadBool(); err != nil {
		return s, err
	}
	if s.GamepakBusInUse, err = r.ReadBool(); err != nil {
		return s, err
	}
	if s.Prefetch.Enabled, err = r.ReadBool(); err != nil {
		return s, err
	}
	if s.Prefetch.InsnLen, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Capacity, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Size, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Head, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Tail, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Countdown, err = r.ReadU32(); err != nil {
		return s, err
	}
	if s.Prefetch.Reload, err = r.ReadU32(); err != nil {
		return s, err
	}
	backupType, err := r.ReadU32()
	if err != nil {
		return s, err
	}
	s.BackupType = backup.Type(backupType)
	metaLen, err := r.ReadU32()
	if err != nil {
		return s, err
	}
	if metaLen > 0 {
		if s.BackupMeta, err = r.ReadBytes(int(metaLen)); err != nil {
			return s, err
		}
	}
	return s, nil
}

// staged accumulates everything a chunked load reads before anything is
// committed to the live Target, so a failed load never mutates state
// (spec §4.4 step 4, "commit... only once all chunks are validated").
type staged struct {
	cpu    cpu.Snapshot
	ioData []byte
	ppu    ppu.State
	gpio   []byte
	apu    []byte

	schedCycles, schedNextEvent uint64
	schedEventsLen              uint32
	events                      []scheduler.Event

	meta memory.MetaSnapshot

	ewram, iwram, vram, palram, oam []byte
	backup                          []byte

	sawCore, sawIO, sawPPU, sawAPU, sawScheduler, sawMemoryMeta bool
	sawEWRAM, sawIWRAM, sawVRAM, sawPALRAM, sawOAM              bool
}

func (s *staged) mandatorySeen() bool {
	return s.sawCore && s.sawIO && s.sawPPU && s.sawAPU && s.sawScheduler &&
		s.sawMemoryMeta && s.sawEWRAM && s.sawIWRAM && s.sawVRAM && s.sawPALRAM && s.sawOAM
}

// Load restores t's state from data. If data begins with the current
// magic and version, the chunked loader is used; if the magic is absent,
// Load falls back to the legacy v1 loader for backward compatibility. A
// present-but-unrecognised version fails outright (spec §4.4).
func Load(t *Target, data []byte) error {
	if len(data) < 4 || string(data[:4]) != magic {
		return loadLegacy(t, data)
	}

	r := newReader(data)
	if _, err := r.ReadBytes(4); err != nil {
		return curated.Errorf(ErrCorrupt, "truncated header")
	}
	version, err := r.ReadU32()
	if err != nil {
		return curated.Errorf(ErrCorrupt, "truncated header")
	}
	if version != currentVersion {
		return curated.Errorf(ErrCorrupt, fmt.Sprintf("unrecognised quicksave version %d", version))
	}
	romSize, err := r.ReadU32()
	if err != nil {
		return curated.Errorf(ErrCorrupt, "truncated header")
	}
	romCodeField, err := r.ReadU32()
	if err != nil {
		return curated.Errorf(ErrCorrupt, "truncated header")
	}

	if romSize != uint32(len(t.ROM)) || romCodeField != romCode(t.ROM) {
		return curated.Errorf(ErrMismatch, "quicksave was captured for a different cartridge")
	}

	st := &staged{}

	for !r.AtEnd() {
		hdr, err := readChunkHeader(r)
		if err != nil {
			return curated.Errorf(ErrCorrupt, "truncated chunk header")
		}
		sub, err := r.Sub(int(hdr.Size))
		if err != nil {
			return curated.Errorf(ErrCorrupt, fmt.Sprintf("chunk %s declares size %d beyond buffer end", hdr.Kind, hdr.Size))
		}

		if err := dispatchChunk(hdr, sub, st, t); err != nil {
			return curated.Errorf(ErrCorrupt, fmt.Sprintf("chunk %s: %v", hdr.Kind, err))
		}
	}

	if !st.mandatorySeen() {
		return curated.Errorf(ErrCorrupt, "save data is missing a mandatory chunk")
	}
	if st.schedEventsLen != uint32(len(st.events)) {
		return curated.Errorf(ErrCorrupt, "scheduler event count mismatch")
	}

	commit(t, st)
	return nil
}

func dispatchChunk(hdr chunkHeader, sub *reader, st *staged, t *Target) error {
	switch hdr.Kind {
	case chunkCore:
		if hdr.Size != cpuRecordSize {
			return fmt.Errorf("expected %d bytes, got %d", cpuRecordSize, hdr.Size)
		}
		s, err := decodeCPU(sub)
		if err != nil {
			return err
		}
		st.cpu = s
		st.sawCore = true

	case chunkIO:
		if hdr.Size != memorymap.SizeIO {
			return fmt.Errorf("expected %d bytes, got %d", memorymap.SizeIO, hdr.Size)
		}
		data, err := sub.ReadBytes(int(hdr.Size))
		if err != nil {
			return err
		}
		st.ioData = append([]byte(nil), data...)
		st.sawIO = true

	case chunkPPU:
		if hdr.Size != ppuRecordSize {
			return fmt.Errorf("expected %d bytes, got %d", ppuRecordSize, hdr.Size)
		}
		s, err := decodePPU(sub)
		if err != nil {
			return err
		}
		st.ppu = s
		st.sawPPU = true

	case chunkGPIO:
		if t.GPIO != nil {
			if want := uint32(len(t.GPIO.Snapshot())); hdr.Size != want {
				return fmt.Errorf("expected %d bytes, got %d", want, hdr.Size)
			}
		}
		data, err := sub.ReadBytes(int(hdr.Size))
		if err != nil {
			return err
		}
		st.gpio = append([]byte(nil), data...)

	case chunkAPU:
		if hdr.Size != apu.RecordSize {
			return fmt.Errorf("expected %d bytes, got %d", apu.RecordSize, hdr.Size)
		}
		data, err := sub.ReadBytes(int(hdr.Size))
		if err != nil {
			return err
		}
		st.apu = append([]byte(nil), data...)
		st.sawAPU = true

	case chunkScheduler:
		if hdr.Size != schedulerHdrSize {
			return fmt.Errorf("expected %d bytes, got %d", schedulerHdrSize, hdr.Size)
		}
		cycles, next, eventsLen, err := decodeSchedulerHeader(sub)
		if err != nil {
			return err
		}
		st.schedCycles = cycles
		st.schedNextEvent = next
		st.schedEventsLen = eventsLen
		st.sawScheduler = true

	case chunkSchedulerEvents:
		if hdr.Size%eventRecordSize != 0 {
			return fmt.Errorf("size %d is not a multiple of the event record size %d", hdr.Size, eventRecordSize)
		}
		events, err := decodeEvents(sub, int(hdr.Size)/eventRecordSize)
		if err != nil {
			return err
		}
		st.events = events

	case chunkMemoryMeta:
		if hdr.Size < memoryMetaMinSize {
			return fmt.Errorf("chunk too small to be a memory-meta record")
		}
		meta, err := decodeMemoryMeta(sub)
		if err != nil {
			return err
		}
		st.meta = meta
		st.sawMemoryMeta = true

	case chunkEWRAM:
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, t.Bus.RegionSize(memory.RegionEWRAM))
		if err != nil {
			return err
		}
		st.ewram = data
		st.sawEWRAM = true

	case chunkIWRAM:
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, t.Bus.RegionSize(memory.RegionIWRAM))
		if err != nil {
			return err
		}
		st.iwram = data
		st.sawIWRAM = true

	case chunkVRAM:
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, t.Bus.RegionSize(memory.RegionVRAM))
		if err != nil {
			return err
		}
		st.vram = data
		st.sawVRAM = true

	case chunkPALRAM:
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, t.Bus.RegionSize(memory.RegionPALRAM))
		if err != nil {
			return err
		}
		st.palram = data
		st.sawPALRAM = true

	case chunkOAM:
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, t.Bus.RegionSize(memory.RegionOAM))
		if err != nil {
			return err
		}
		st.oam = data
		st.sawOAM = true

	case chunkBackupStorage:
		if !st.sawMemoryMeta || st.meta.BackupType == backup.None {
			// order guarantees memory-meta precedes this chunk on any
			// stream produced by Save; without a type to size against,
			// keep the raw bytes and let commit() decide.
			data, err := sub.ReadBytes(int(hdr.Size))
			if err != nil {
				return err
			}
			st.backup = append([]byte(nil), data...)
			return nil
		}
		chip := backup.New(st.meta.BackupType)
		data, err := decodeRegionPayloadFrom(sub, hdr.Size, chip.Size())
		if err != nil {
			return err
		}
		st.backup = data

	default:
		// unknown kind: the Sub call in Load already consumed exactly
		// hdr.Size bytes, so there is nothing further to do here (spec
		// §4.4 step 3, "skip forward by chunk.size bytes").
	}

	return nil
}

func decodeRegionPayloadFrom(sub *reader, size uint32, expectedSize int) ([]byte, error) {
	payload, err := sub.ReadBytes(int(size))
	if err != nil {
		return nil, err
	}
	return decodeRegionPayload(payload, expectedSize)
}

func commit(t *Target, st *staged) {
	t.CPU.Restore(st.cpu)
	t.IO.Restore(st.ioData)
	t.PPU.Restore(st.ppu)
	if t.GPIO != nil && st.gpio != nil {
		t.GPIO.Restore(st.gpio)
	}
	t.APU.Restore(st.apu)
	t.Sched.RestoreRaw(st.schedCycles, st.schedNextEvent, st.events)

	t.Bus.RestoreRegion(memory.RegionEWRAM, st.ewram)
	t.Bus.RestoreRegion(memory.RegionIWRAM, st.iwram)
	t.Bus.RestoreRegion(memory.RegionVRAM, st.vram)
	t.Bus.RestoreRegion(memory.RegionPALRAM, st.palram)
	t.Bus.RestoreRegion(memory.RegionOAM, st.oam)

	if st.meta.BackupType != backup.None {
		chip := backup.New(st.meta.BackupType)
		if st.backup != nil {
			chip.Restore(st.backup)
		}
		if mc, ok := chip.(backup.MetaChip); ok && st.meta.BackupMeta != nil {
			mc.MetaRestore(st.meta.BackupMeta)
		}
		t.Bus.SetBackupChip(chip)
	} else {
		t.Bus.SetBackupChip(nil)
	}

	t.Bus.Restore(st.meta)

	// io is already restored above; rebuild the wait-state latency tables
	// and prefetch-enable flag from the restored WAITCNT bits rather than
	// leaving them stale until the game next writes WAITCNT.
	t.Bus.SetWaitControl(memory.DecodeWaitControl(t.IO.WaitControlBits()))
}
