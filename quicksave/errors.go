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

// Sentinel patterns for curated.Is()/curated.Has(), corresponding to the
// two recoverable error kinds from spec §7. Both surface through Load's
// single error return; neither is fatal.
const (
	// ErrMismatch is returned when a quicksave's ROM size or ROM code
	// differs from the currently loaded ROM (spec §7 "load-mismatch").
	ErrMismatch = "quicksave: ROM mismatch (%s)"

	// ErrCorrupt covers every other reason a load can fail: a truncated
	// chunk, a region whose decoded size doesn't match its intrinsic
	// size, an RLE run that overflows its region, a missing mandatory
	// chunk, or an unrecognised version (spec §7 "load-corrupt").
	ErrCorrupt = "quicksave: corrupt save data (%s)"
)
