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

package prefetch_test

import (
	"testing"

	"github.com/jetsetilly/gbacore/hardware/memory/prefetch"
	"github.com/jetsetilly/gbacore/test"
)

// TestSequentialHitCostsOneCycle covers scenario S5: after a miss refills
// the buffer, a subsequent sequential access at the predicted address
// costs a single idle cycle regardless of the tabulated sequential cost.
func TestSequentialHitCostsOneCycle(t *testing.T) {
	var b prefetch.Buffer
	b.Enabled = true

	const addr = 0x08020000
	const tabulatedMiss = 5
	const tabulatedSeq = 2

	c := b.Access(addr, tabulatedMiss, prefetch.Thumb, tabulatedSeq)
	test.DemandEquality(t, c, uint32(tabulatedMiss))

	b.Idle(tabulatedSeq)
	test.DemandEquality(t, b.Size() > 0, true)

	c = b.Access(addr+2, tabulatedSeq, prefetch.Thumb, tabulatedSeq)
	test.DemandEquality(t, c, uint32(1))
}

// TestBoundedSize covers testable property 3: size never exceeds capacity.
func TestBoundedSize(t *testing.T) {
	var b prefetch.Buffer
	b.Enabled = true

	b.Access(0x08000000, 5, prefetch.Thumb, 2)
	for i := 0; i < 100; i++ {
		b.Idle(2)
	}
	test.DemandEquality(t, b.Size() <= b.Capacity(), true)
}

func TestMissReconfiguresForMode(t *testing.T) {
	var b prefetch.Buffer
	b.Enabled = true

	b.Access(0x08000000, 5, prefetch.ARM, 4)
	test.DemandEquality(t, b.Capacity(), uint32(4))

	b.Access(0x0A000000, 5, prefetch.Thumb, 2)
	test.DemandEquality(t, b.Capacity(), uint32(8))
}
