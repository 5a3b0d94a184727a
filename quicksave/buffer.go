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

import (
	"encoding/binary"
	"fmt"

	"github.com/jetsetilly/gbacore/curated"
)

// writer is the growable byte array with a write cursor described in spec
// §3 "Quicksave buffer". Save owns one for the lifetime of the call; the
// finished byte slice is handed to the caller.
type writer struct {
	buf []byte
}

func newWriter() *writer {
	return &writer{buf: make([]byte, 0, 4096)}
}

func (w *writer) Bytes() []byte { return w.buf }

func (w *writer) WriteBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

// reader is an immutable borrowed buffer with a read cursor. load borrows
// one buffer for the chunked loader's single pass, and carves a fresh
// reader out of it per chunk via Sub so that a chunk's own reads can never
// wander past its declared end (spec §3 "bounds-check the cursor against
// the enclosing chunk end, not just the buffer end").
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) Len() int       { return len(r.buf) }
func (r *reader) Pos() int       { return r.pos }
func (r *reader) Remaining() int { return len(r.buf) - r.pos }
func (r *reader) AtEnd() bool    { return r.pos >= len(r.buf) }

func (r *reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, curated.Errorf(ErrCorrupt, fmt.Sprintf("buffer underrun reading %d bytes at offset %d", n, r.pos))
	}
	p := r.buf[r.pos : r.pos+n]
	r.pos += n
	return p, nil
}

func (r *reader) ReadU8() (uint8, error) {
	p, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (r *reader) ReadU16() (uint16, error) {
	p, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(p), nil
}

func (r *reader) ReadU32() (uint32, error) {
	p, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

func (r *reader) ReadU64() (uint64, error) {
	p, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

func (r *reader) ReadBool() (bool, error) {
	v, err := r.ReadU8()
	return v != 0, err
}

// Sub carves out the next n bytes as an independent reader, advancing this
// reader's cursor past them. Every chunk payload is read through a Sub
// reader so a malformed payload can never read beyond its own declared
// size even if the outer buffer has more bytes after it.
func (r *reader) Sub(n int) (*reader, error) {
	p, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return newReader(p), nil
}
