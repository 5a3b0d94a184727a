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

package backup

// flashState is the small state machine flash chips expose on top of their
// byte array: which command sequence is in progress, and (for 128K chips)
// which of the two 64 KiB banks is currently selected. The quicksave
// memory-meta chunk carries this alongside the raw data blob so a save
// taken mid-erase-sequence restores faithfully.
type flashState int

const (
	flashIdle flashState = iota
	flashCommand
	flashErase
)

type flash struct {
	data  []byte
	bank  int
	state flashState
}

func newFlash(size int) *flash {
	return &flash{data: make([]byte, size)}
}

func (f *flash) Type() Type {
	if len(f.data) > 0x10000 {
		return Flash128K
	}
	return Flash64K
}

func (f *flash) Size() int { return len(f.data) }

func (f *flash) InWindow(addr uint32) bool { return true }

func (f *flash) ReadByte(addr uint32) uint8 {
	offset := f.bank*0x10000 + int(addr%0x10000)
	if offset >= len(f.data) {
		return 0
	}
	return f.data[offset]
}

func (f *flash) WriteByte(addr uint32, val uint8) {
	offset := f.bank*0x10000 + int(addr%0x10000)
	if offset >= len(f.data) {
		return
	}
	f.data[offset] = val
}

// SelectBank switches the active 64 KiB bank on a 128K flash chip, driven
// by the cartridge's own GPIO/bank-select command sequence (a collaborator
// concern this package does not decode).
func (f *flash) SelectBank(bank int) {
	f.bank = bank % 2
}

// MetaSnapshot and MetaRestore round-trip the bank-select and command-
// sequence state that sits on top of the raw flash data blob.
func (f *flash) MetaSnapshot() []byte {
	return []byte{uint8(f.bank), uint8(f.state)}
}

func (f *flash) MetaRestore(data []byte) {
	if len(data) < 2 {
		return
	}
	f.SelectBank(int(data[0]))
	f.state = flashState(data[1])
}

func (f *flash) Snapshot() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	return out
}

func (f *flash) Restore(data []byte) {
	copy(f.data, data)
}
