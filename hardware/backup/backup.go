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

// Package backup models the cartridge save-storage chip as an external
// collaborator of the bus arbitrator. Per spec §1 the chip's own protocol
// (flash command sequencing, EEPROM's bit-serial handshake) is out of
// scope - what the arbitrator needs is just enough of a contract to decide
// whether an address on the cartridge bus should be routed to this
// collaborator at all, and to read/write a byte when it should.
package backup

// Type identifies which backup chip, if any, a cartridge carries. The ROM
// database (romdb) decides this at load time; the arbitrator consults it
// on every cartridge-bus access that isn't plain ROM.
type Type int

const (
	None Type = iota
	SRAM
	Flash64K
	Flash128K
	EEPROM4K
	EEPROM64K
)

func (t Type) String() string {
	switch t {
	case SRAM:
		return "SRAM"
	case Flash64K:
		return "Flash64K"
	case Flash128K:
		return "Flash128K"
	case EEPROM4K:
		return "EEPROM4K"
	case EEPROM64K:
		return "EEPROM64K"
	}
	return "None"
}

// Chip is the interface the bus arbitrator drives. SRAM, Flash and EEPROM
// all implement it, each with its own window-matching rule baked into
// InWindow so the arbitrator never has to know the chip's type to decide
// whether to route an access to it.
type Chip interface {
	Type() Type
	Size() int

	// InWindow reports whether addr (a cartridge-bus address) belongs to
	// this chip rather than to plain ROM. SRAM and Flash claim the whole
	// 0x0E000000-0x0FFFFFFF window; EEPROM claims only the narrow
	// address range its mask/range pair selects within the ROM window.
	InWindow(addr uint32) bool

	ReadByte(addr uint32) uint8
	WriteByte(addr uint32, val uint8)

	Snapshot() []byte
	Restore(data []byte)
}

// MetaChip is implemented by backup chips that carry controller state
// beyond their raw data blob - flash's command/bank state machine,
// EEPROM's bit-serial shift register - that the quicksave memory-meta
// chunk captures separately from the backup-storage data chunk (spec
// §4.4 "flash chip registers, EEPROM controller"). SRAM has none, so it
// does not implement this interface; callers check for it with a type
// assertion.
type MetaChip interface {
	MetaSnapshot() []byte
	MetaRestore(data []byte)
}

// New constructs the Chip for a given Type, sized appropriately. A None
// chip type yields a nil Chip - the arbitrator must check for this and
// treat the backup window as open bus.
func New(t Type) Chip {
	switch t {
	case SRAM:
		return newSRAM()
	case Flash64K:
		return newFlash(0x10000)
	case Flash128K:
		return newFlash(0x20000)
	case EEPROM4K:
		return newEEPROM(0x200)
	case EEPROM64K:
		return newEEPROM(0x2000)
	}
	return nil
}
