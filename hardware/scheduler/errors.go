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

package scheduler

import "github.com/jetsetilly/gbacore/curated"

// Sentinel patterns for curated.Is()/curated.Has(). These never surface as
// recoverable errors - any caller that hits one has found a bug in the core
// itself (spec §7's "internal-invariant" kind), so the scheduler panics
// rather than returning an error.
const (
	InvalidIndex   = "scheduler: invalid event index %d"
	EventInThePast = "scheduler: event scheduled at %d but cycles is already %d"
	IndexNotActive = "scheduler: event index %d is not active"
)

func invariant(pattern string, values ...interface{}) {
	panic(curated.Errorf(pattern, values...))
}
