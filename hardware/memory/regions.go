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

const pageSize = 0x1000 // 4 KiB, per spec §3 "paged lazily (4 KiB pages...)"

// pagedRAM is a region backing that allocates its storage in 4 KiB pages on
// first write, rather than up front. A read of a page that was never
// written returns zero, matching freshly-powered-on RAM. Desktop-class
// hosts could allocate regions contiguously instead (spec §9 "Design
// notes" calls this a memory-budget decision, not a correctness one), but
// paging is the teacher-adjacent idiom this repo follows throughout, and it
// keeps the quicksave codec's region snapshot path identical regardless of
// how much of the region has actually been touched.
type pagedRAM struct {
	size  int
	pages [][]byte
}

func newPagedRAM(size int) *pagedRAM {
	return &pagedRAM{
		size:  size,
		pages: make([][]byte, (size+pageSize-1)/pageSize),
	}
}

func (r *pagedRAM) page(offset int) []byte {
	idx := offset / pageSize
	if r.pages[idx] == nil {
		return nil
	}
	return r.pages[idx]
}

func (r *pagedRAM) pageForWrite(offset int) []byte {
	idx := offset / pageSize
	if r.pages[idx] == nil {
		r.pages[idx] = make([]byte, pageSize)
	}
	return r.pages[idx]
}

func (r *pagedRAM) Read8(offset int) uint8 {
	p := r.page(offset)
	if p == nil {
		return 0
	}
	return p[offset%pageSize]
}

func (r *pagedRAM) Write8(offset int, val uint8) {
	p := r.pageForWrite(offset)
	p[offset%pageSize] = val
}

func (r *pagedRAM) Read16(offset int) uint16 {
	return uint16(r.Read8(offset)) | uint16(r.Read8(offset+1))<<8
}

func (r *pagedRAM) Write16(offset int, val uint16) {
	r.Write8(offset, uint8(val))
	r.Write8(offset+1, uint8(val>>8))
}

func (r *pagedRAM) Read32(offset int) uint32 {
	return uint32(r.Read16(offset)) | uint32(r.Read16(offset+2))<<16
}

func (r *pagedRAM) Write32(offset int, val uint32) {
	r.Write16(offset, uint16(val))
	r.Write16(offset+2, uint16(val>>16))
}

// Snapshot copies the region's full logical contents out as a flat byte
// slice - unallocated pages read back as zero - for the quicksave codec's
// region-payload encoder (spec §4.4). The logical size is always returned
// regardless of how many pages were actually allocated, so the on-disk
// format never depends on the lazy-paging implementation detail.
func (r *pagedRAM) Snapshot() []byte {
	out := make([]byte, r.size)
	for i, p := range r.pages {
		if p == nil {
			continue
		}
		start := i * pageSize
		end := start + pageSize
		if end > r.size {
			end = r.size
		}
		copy(out[start:end], p[:end-start])
	}
	return out
}

// Restore replaces the region's contents from a flat byte slice of exactly
// Size() bytes, as produced by a matching quicksave region chunk. Pages
// that are all-zero in src are left unallocated, so a freshly restored
// all-zero region is as cheap as a freshly created one.
func (r *pagedRAM) Restore(src []byte) {
	for i := range r.pages {
		r.pages[i] = nil
	}
	for offset := 0; offset < len(src); offset++ {
		if src[offset] != 0 {
			r.pageForWrite(offset)[offset%pageSize] = src[offset]
		}
	}
}

func (r *pagedRAM) Size() int { return r.size }
