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

import "github.com/jetsetilly/gbacore/curated"

// Sentinel patterns for the handful of states the bus arbitrator treats as
// internal-invariant violations rather than ordinary open-bus reads. A real
// GBA never executes from these regions, so reaching one means the CPU
// collaborator fed the arbitrator a PC it never should have.
const (
	OpenBusFromImpossiblePage = "memory: open bus read with program counter on impossible page 0x%02x"
)

func invariant(pattern string, values ...interface{}) {
	panic(curated.Errorf(pattern, values...))
}
