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

import "fmt"

const (
	encodingRaw byte = 0
	encodingRLE byte = 1
)

// encodeRegionPayload builds a region payload - {u32 decoded_size, u8
// encoding, u8[3] reserved, data} - choosing RLE only when it is strictly
// smaller than the raw encoding (spec §4.4, testable property 10).
func encodeRegionPayload(data []byte) []byte {
	rle := rleEncode(data)

	out := make([]byte, 0, 8+len(data))
	out = append(out, u32le(uint32(len(data)))...)

	if len(rle) < len(data) {
		out = append(out, encodingRLE, 0, 0, 0)
		out = append(out, rle...)
		return out
	}

	out = append(out, encodingRaw, 0, 0, 0)
	out = append(out, data...)
	return out
}

// decodeRegionPayload reverses encodeRegionPayload, validating that the
// declared decoded size matches expectedSize (spec §4.4 step 3, "decoded
// size must equal the region's intrinsic size").
func decodeRegionPayload(payload []byte, expectedSize int) ([]byte, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("region payload too short: %d bytes", len(payload))
	}

	decodedSize := int(u32leDecode(payload[0:4]))
	encoding := payload[4]
	data := payload[8:]

	if decodedSize != expectedSize {
		return nil, fmt.Errorf("region decoded size %d does not match intrinsic size %d", decodedSize, expectedSize)
	}

	switch encoding {
	case encodingRaw:
		if len(data) != decodedSize {
			return nil, fmt.Errorf("raw region payload is %d bytes, expected %d", len(data), decodedSize)
		}
		out := make([]byte, decodedSize)
		copy(out, data)
		return out, nil

	case encodingRLE:
		return rleDecode(data, decodedSize)
	}

	return nil, fmt.Errorf("region payload has unknown encoding tag %d", encoding)
}

func u32le(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func u32leDecode(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
