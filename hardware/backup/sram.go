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

const sramSize = 0x8000 // 32 KiB, the usual GBA battery-SRAM size

type sram struct {
	data [sramSize]byte
}

func newSRAM() *sram {
	return &sram{}
}

func (s *sram) Type() Type { return SRAM }
func (s *sram) Size() int  { return sramSize }

func (s *sram) InWindow(addr uint32) bool { return true }

func (s *sram) ReadByte(addr uint32) uint8 {
	return s.data[addr%sramSize]
}

func (s *sram) WriteByte(addr uint32, val uint8) {
	s.data[addr%sramSize] = val
}

func (s *sram) Snapshot() []byte {
	out := make([]byte, sramSize)
	copy(out, s.data[:])
	return out
}

func (s *sram) Restore(data []byte) {
	copy(s.data[:], data)
}
