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

// Package memory implements the bus/memory arbitrator (component B): it
// decodes every CPU and DMA address into a region, charges the scheduler
// for the access, and applies each region's own read/write quirks. It
// coordinates with the prefetch buffer on cartridge-bus accesses and
// synthesises open-bus values for invalid ones.
package memory

import (
	"github.com/jetsetilly/gbacore/hardware/backup"
	"github.com/jetsetilly/gbacore/hardware/cpu"
	"github.com/jetsetilly/gbacore/hardware/gpio"
	"github.com/jetsetilly/gbacore/hardware/io"
	"github.com/jetsetilly/gbacore/hardware/memory/bus"
	"github.com/jetsetilly/gbacore/hardware/memory/memorymap"
	"github.com/jetsetilly/gbacore/hardware/memory/prefetch"
	"github.com/jetsetilly/gbacore/hardware/ppu"
	"github.com/jetsetilly/gbacore/hardware/scheduler"
	"github.com/jetsetilly/gbacore/logger"
)

// Bus satisfies the decoder-facing interfaces a CPU instruction decoder
// collaborator is written against, so that collaborator never needs to
// import this package directly.
var _ bus.CPUBus = (*Bus)(nil)
var _ bus.RawBus = (*Bus)(nil)

// Bus is the bus/memory arbitrator. It owns every RAM region's backing
// storage, the wait-state latency tables, the open-bus latch, and the
// prefetch buffer, and it is the sole writer of cycles onto the
// scheduler's budget for ordinary memory traffic.
type Bus struct {
	sched *scheduler.Scheduler
	cpu   *cpu.Registers
	io    *io.Registers

	tables      *latencyTables
	waitControl WaitControl

	ewram  *pagedRAM
	iwram  *pagedRAM
	vram   *pagedRAM
	palram *pagedRAM
	oam    *pagedRAM

	bios      []byte
	biosLatch uint32

	rom []byte

	backupChip backup.Chip
	gpioDevice gpio.Device

	prefetchBuf *prefetch.Buffer

	openBus openBusLatch

	dmaActive       bool
	gamepakBusInUse bool
}

// New constructs a Bus. rom and bios are borrowed, never mutated (spec §5
// "the ROM buffer is owned by the host... the core never mutates it").
// chip and gpioDevice may be nil for a cartridge with no backup storage
// or GPIO peripheral.
func New(sched *scheduler.Scheduler, cpuRegs *cpu.Registers, ioRegs *io.Registers, rom []byte, bios []byte, chip backup.Chip, gpioDevice gpio.Device) *Bus {
	b := &Bus{
		sched:       sched,
		cpu:         cpuRegs,
		io:          ioRegs,
		tables:      newLatencyTables(),
		ewram:       newPagedRAM(memorymap.SizeEWRAM),
		iwram:       newPagedRAM(memorymap.SizeIWRAM),
		vram:        newPagedRAM(memorymap.SizeVRAM),
		palram:      newPagedRAM(memorymap.SizePALRAM),
		oam:         newPagedRAM(memorymap.SizeOAM),
		bios:        bios,
		rom:         rom,
		backupChip:  chip,
		gpioDevice:  gpioDevice,
		prefetchBuf: &prefetch.Buffer{},
	}
	b.tables.rebuild(b.waitControl)
	return b
}

// SetDMAActive marks whether a DMA transfer currently owns the bus. While
// active, the prefetch buffer is bypassed but its state is left alone, so
// it resumes unchanged once DMA releases the bus (spec §4.3).
func (b *Bus) SetDMAActive(active bool) {
	b.dmaActive = active
}

// SetWaitControl updates the wait-state configuration and rebuilds the
// latency tables from it, per spec §4.2 "recomputed whenever the
// wait-state control register changes".
func (b *Bus) SetWaitControl(wcnt WaitControl) {
	b.waitControl = wcnt
	b.tables.rebuild(wcnt)
	b.prefetchBuf.Enabled = wcnt.Prefetch
}

// GamepakBusInUse reports whether the most recent access touched the
// cartridge bus - consulted by the PPU collaborator for its "+1 cycle if
// video memory is accessed at the same time" rule.
func (b *Bus) GamepakBusInUse() bool { return b.gamepakBusInUse }

func widthMask(width int) uint32 {
	switch width {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// charge computes the tabulated cycle cost of an access of the given
// width at addr, runs it through the prefetch buffer when applicable, and
// charges the result to the scheduler. It returns the cycles actually
// charged, which read_rotated and the prefetch-aware callers don't
// otherwise need, but tests do.
func (b *Bus) charge(addr uint32, width int, seq bool) uint32 {
	region, slot := memorymap.Decode(addr)

	// Testable property 4: a cartridge access landing on a 128 KiB
	// boundary is always billed as non-sequential.
	if region.Area == memorymap.ROM && memorymap.CrossesNonSequentialBoundary(addr) {
		seq = false
	}

	kind := nonSequential
	if seq {
		kind = sequential
	}

	var cost uint32
	if width <= 16 {
		cost = b.tables.cost16(kind, slot)
	} else {
		cost = b.tables.cost32(kind, slot)
	}

	inCart := region.Area == memorymap.ROM
	if !inCart || !b.prefetchBuf.Enabled || b.dmaActive {
		b.gamepakBusInUse = inCart
		b.sched.IdleFor(uint64(cost))
		return cost
	}

	b.gamepakBusInUse = true
	mode := prefetch.ARM
	if b.cpu.Thumb() {
		mode = prefetch.Thumb
	}
	var seqCost uint32
	if width <= 16 {
		seqCost = b.tables.seq16(slot)
	} else {
		seqCost = b.tables.seq32(slot)
	}
	charged := b.prefetchBuf.Access(addr, cost, mode, seqCost)
	b.sched.IdleFor(uint64(charged))
	return charged
}

// IdlePrefetch advances the prefetch buffer by n cycles of CPU idle time.
// Called by whatever drives CPU instruction timing whenever an
// instruction doesn't itself touch the cart bus.
func (b *Bus) IdlePrefetch(n uint32) {
	b.prefetchBuf.Idle(n)
}

// ror rotates v right by n bits within a 32-bit word.
func ror(v uint32, n uint) uint32 {
	n &= 31
	if n == 0 {
		return v
	}
	return (v >> n) | (v << (32 - n))
}

// Read8, Read16 and Read32 are the bus arbitrator's width-dispatching
// read entry points. They charge the scheduler and then read the region,
// never failing - an invalid address simply returns open bus.
func (b *Bus) Read8(addr uint32, sequential bool) (uint8, uint32) {
	c := b.charge(addr, 8, sequential)
	return uint8(b.readRegion(addr, addr, 8)), c
}

func (b *Bus) Read16(addr uint32, sequential bool) (uint16, uint32) {
	aligned := addr &^ 1
	c := b.charge(aligned, 16, sequential)
	return uint16(b.readRegion(aligned, addr, 16)), c
}

func (b *Bus) Read32(addr uint32, sequential bool) (uint32, uint32) {
	aligned := addr &^ 3
	c := b.charge(aligned, 32, sequential)
	return b.readRegion(aligned, addr, 32), c
}

// ReadRotated16 and ReadRotated32 implement testable property 5: the
// value returned for a misaligned access is the aligned read rotated
// right by 8 bits per byte of misalignment, mirroring ARM7TDMI LDR/LDRH
// behaviour on unaligned addresses.
func (b *Bus) ReadRotated16(addr uint32, sequential bool) (uint16, uint32) {
	v, c := b.Read16(addr, sequential)
	return uint16(ror(uint32(v), 8*uint(addr%2))), c
}

func (b *Bus) ReadRotated32(addr uint32, sequential bool) (uint32, uint32) {
	v, c := b.Read32(addr, sequential)
	return ror(v, 8*uint(addr%4)), c
}

func (b *Bus) Write8(addr uint32, val uint8, sequential bool) uint32 {
	c := b.charge(addr, 8, sequential)
	b.writeRegion(addr, addr, uint32(val), 8)
	return c
}

func (b *Bus) Write16(addr uint32, val uint16, sequential bool) uint32 {
	aligned := addr &^ 1
	c := b.charge(aligned, 16, sequential)
	b.writeRegion(aligned, addr, uint32(val), 16)
	return c
}

func (b *Bus) Write32(addr uint32, val uint32, sequential bool) uint32 {
	aligned := addr &^ 3
	c := b.charge(aligned, 32, sequential)
	b.writeRegion(aligned, addr, val, 32)
	return c
}

// ReadRaw8 and WriteRaw8 bypass cycle accounting entirely, for the
// quicksave codec and any future debugger (spec §4.2 "a raw read/write
// pair that bypasses cycle accounting").
func (b *Bus) ReadRaw8(addr uint32) uint8 {
	return uint8(b.readRegion(addr, addr, 8))
}

func (b *Bus) WriteRaw8(addr uint32, val uint8) {
	b.writeRegion(addr, addr, uint32(val), 8)
}

// readRegion dispatches a read to the right region. addr is the
// width-aligned address used for region decode and RAM indexing; raw is
// the original, possibly-unaligned address the caller asked for, needed
// only by the SRAM path, which (per hardware) never aligns down before
// picking the byte it reads.
func (b *Bus) readRegion(addr, raw uint32, width int) uint32 {
	region, _ := memorymap.Decode(addr)
	b.openBus.CPUPrefetch0, b.openBus.CPUPrefetch1 = b.cpu.Prefetch0, b.cpu.Prefetch1

	switch region.Area {
	case memorymap.BIOS:
		return b.readBIOS(addr, width)

	case memorymap.EWRAM:
		return b.readRAM(b.ewram, memorymap.EWRAMOffset(addr), width)

	case memorymap.IWRAM:
		return b.readRAM(b.iwram, memorymap.IWRAMOffset(addr), width)

	case memorymap.IO:
		return b.readIO(memorymap.IOOffset(addr), width)

	case memorymap.PALRAM:
		return b.readRAM(b.palram, memorymap.PALRAMOffset(addr), width)

	case memorymap.VRAM:
		return b.readRAM(b.vram, memorymap.VRAMOffset(addr), width)

	case memorymap.OAM:
		return b.readRAM(b.oam, memorymap.OAMOffset(addr), width)

	case memorymap.ROM:
		return b.readROM(addr, width)

	case memorymap.SRAM:
		return b.readSRAM(raw, width)
	}

	logger.Logf(logger.Allow, "memory", "invalid read of width %d from 0x%08x", width, addr)
	return b.openBus.read(addr, b.cpu.PC, b.cpu.Thumb())
}

func (b *Bus) writeRegion(addr, raw uint32, val uint32, width int) {
	region, _ := memorymap.Decode(addr)

	switch region.Area {
	case memorymap.BIOS:
		// writes to BIOS are silently ignored

	case memorymap.EWRAM:
		b.writeRAM(b.ewram, memorymap.EWRAMOffset(addr), val, width)

	case memorymap.IWRAM:
		b.writeRAM(b.iwram, memorymap.IWRAMOffset(addr), val, width)

	case memorymap.IO:
		b.writeIO(memorymap.IOOffset(addr), val, width)

	case memorymap.PALRAM:
		b.writePALRAM(addr, val, width)

	case memorymap.VRAM:
		b.writeVRAM(addr, val, width)

	case memorymap.OAM:
		b.writeOAM(addr, val, width)

	case memorymap.ROM:
		b.writeROM(addr, val, width)

	case memorymap.SRAM:
		b.writeSRAM(raw, val, width)

	default:
		logger.Logf(logger.Allow, "memory", "invalid write of width %d to 0x%08x", width, addr)
	}
}

func (b *Bus) readRAM(r *pagedRAM, offset uint32, width int) uint32 {
	switch width {
	case 8:
		return uint32(r.Read8(int(offset)))
	case 16:
		return uint32(r.Read16(int(offset)))
	default:
		return r.Read32(int(offset))
	}
}

func (b *Bus) writeRAM(r *pagedRAM, offset uint32, val uint32, width int) {
	switch width {
	case 8:
		r.Write8(int(offset), uint8(val))
	case 16:
		r.Write16(int(offset), uint16(val))
	default:
		r.Write32(int(offset), val)
	}
}

func (b *Bus) readBIOS(addr uint32, width int) uint32 {
	if addr >= memorymap.SizeBIOS {
		logger.Logf(logger.Allow, "memory", "invalid BIOS read of width %d from 0x%08x", width, addr)
		return b.openBus.read(addr, b.cpu.PC, b.cpu.Thumb())
	}

	if b.cpu.PC < memorymap.SizeBIOS {
		aligned := addr &^ 3
		b.biosLatch = readLE32(b.bios, aligned)
	}
	shift := (addr & 0x3) * 8
	return (b.biosLatch >> shift) & widthMask(width)
}

func readLE32(data []byte, offset uint32) uint32 {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		idx := offset + i
		if int(idx) < len(data) {
			v |= uint32(data[idx]) << (8 * i)
		}
	}
	return v
}

func (b *Bus) readIO(offset uint32, width int) uint32 {
	v := uint32(b.io.ReadByte(offset))
	if width >= 16 {
		v |= uint32(b.io.ReadByte(offset+1)) << 8
	}
	if width >= 32 {
		v |= uint32(b.io.ReadByte(offset+2)) << 16
		v |= uint32(b.io.ReadByte(offset+3)) << 24
	}
	return v
}

func (b *Bus) writeIO(offset uint32, val uint32, width int) {
	b.writeIOByte(offset, uint8(val))
	if width >= 16 {
		b.writeIOByte(offset+1, uint8(val>>8))
	}
	if width >= 32 {
		b.writeIOByte(offset+2, uint8(val>>16))
		b.writeIOByte(offset+3, uint8(val>>24))
	}
}

func (b *Bus) writeIOByte(offset uint32, val uint8) {
	b.io.WriteByte(offset, val)
	if io.IsWaitControlOffset(offset) {
		b.SetWaitControl(DecodeWaitControl(b.io.WaitControlBits()))
	}
}

// writePALRAM implements the "8-bit writes mirrored to both byte lanes"
// quirk (spec §4.2, testable property 6).
func (b *Bus) writePALRAM(addr uint32, val uint32, width int) {
	offset := memorymap.PALRAMOffset(addr)
	if width == 8 {
		lane := uint16(val&0xFF) | uint16(val&0xFF)<<8
		b.palram.Write16(int(offset&^1), lane)
		return
	}
	b.writeRAM(b.palram, offset, val, width)
}

// writeVRAM implements both the lane-mirroring quirk and the OBJ-region
// 8-bit write drop (spec §4.2, testable property 7).
func (b *Bus) writeVRAM(addr uint32, val uint32, width int) {
	offset := memorymap.VRAMOffset(addr)
	if width == 8 {
		if offset >= ppu.OBJBoundary(b.io.BGMode()) {
			return
		}
		lane := uint16(val&0xFF) | uint16(val&0xFF)<<8
		b.vram.Write16(int(offset&^1), lane)
		return
	}
	b.writeRAM(b.vram, offset, val, width)
}

// writeOAM drops all 8-bit writes outright (spec §4.2).
func (b *Bus) writeOAM(addr uint32, val uint32, width int) {
	if width == 8 {
		return
	}
	b.writeRAM(b.oam, memorymap.OAMOffset(addr), val, width)
}

// bitSerial is implemented by backup chips whose real protocol addresses
// one bit per access regardless of the CPU's requested width - EEPROM.
// The chip's command-sequencing and address-latching protocol itself
// stays out of scope (spec §1); this is just enough of a contract for the
// arbitrator to shuttle single bits across the window.
type bitSerial interface {
	ReadBit() uint8
	WriteBit(bit uint8)
}

func (b *Bus) readROM(addr uint32, width int) uint32 {
	if b.backupChip != nil && b.backupChip.Type() >= backup.EEPROM4K && b.backupChip.InWindow(addr) {
		if bs, ok := b.backupChip.(bitSerial); ok {
			return uint32(bs.ReadBit())
		}
		return uint32(b.backupChip.ReadByte(addr))
	}
	if b.gpioDevice != nil && gpio.InWindow(addr) && b.gpioDevice.Readable() {
		return uint32(b.gpioDevice.ReadRegister(addr))
	}

	offset := memorymap.ROMOffset(addr)
	if b.rom == nil || int(offset) >= len(b.rom) {
		// beyond the cartridge's actual size: synthesise "address as
		// data", per GBATek's rule for reading past the ROM's end.
		switch width {
		case 16:
			return (addr >> 1) & 0xFFFF
		case 32:
			lo := (addr >> 1) & 0xFFFF
			hi := ((addr + 2) >> 1) & 0xFFFF
			return lo | hi<<16
		default:
			return (addr >> (1 + 8*(addr&1))) & 0xFF
		}
	}

	switch width {
	case 8:
		return uint32(b.rom[offset])
	case 16:
		return uint32(b.rom[offset]) | uint32(b.rom[offset+1])<<8
	default:
		return readLE32(b.rom, offset)
	}
}

func (b *Bus) writeROM(addr uint32, val uint32, width int) {
	if b.backupChip != nil && b.backupChip.Type() >= backup.EEPROM4K && b.backupChip.InWindow(addr) {
		if bs, ok := b.backupChip.(bitSerial); ok {
			bs.WriteBit(uint8(val & 1))
			return
		}
		b.backupChip.WriteByte(addr, uint8(val&1))
		return
	}
	if b.gpioDevice != nil && gpio.InWindow(addr) {
		b.gpioDevice.WriteRegister(addr, uint8(val))
		return
	}
	// all other writes to the cartridge ROM window are ignored
}

// readSRAM and writeSRAM implement "only 8-bit accesses land on the
// backup collaborator; wider accesses broadcast or rotate the byte"
// (spec §4.2).
func (b *Bus) readSRAM(addr uint32, width int) uint32 {
	if b.backupChip == nil {
		return b.openBus.read(addr, b.cpu.PC, b.cpu.Thumb())
	}
	v := uint32(b.backupChip.ReadByte(memorymap.SRAMOffset(addr)))
	switch width {
	case 16:
		return v * 0x0101
	case 32:
		return v * 0x01010101
	default:
		return v
	}
}

func (b *Bus) writeSRAM(addr uint32, val uint32, width int) {
	if b.backupChip == nil {
		return
	}
	shift := 8 * (addr % uint32(width/8))
	b.backupChip.WriteByte(memorymap.SRAMOffset(addr), uint8(val>>shift))
}
