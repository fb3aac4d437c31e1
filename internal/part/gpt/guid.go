// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package gpt

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// readGUID decodes a UEFI mixed-endian GUID: the first three fields are
// little-endian, the last (clock sequence + node) is read as raw bytes.
// google/uuid's own MarshalBinary/UnmarshalBinary assume RFC 4122 big-endian
// throughout, so the wire format is hand-rolled here.
func readGUID(b []byte) uuid.UUID {
	var out uuid.UUID
	binary.BigEndian.PutUint32(out[0:4], binary.LittleEndian.Uint32(b[0:4]))
	binary.BigEndian.PutUint16(out[4:6], binary.LittleEndian.Uint16(b[4:6]))
	binary.BigEndian.PutUint16(out[6:8], binary.LittleEndian.Uint16(b[6:8]))
	copy(out[8:16], b[8:16])
	return out
}

// writeGUID encodes id into b (16 bytes) using the UEFI mixed-endian layout.
func writeGUID(b []byte, id uuid.UUID) {
	binary.LittleEndian.PutUint32(b[0:4], binary.BigEndian.Uint32(id[0:4]))
	binary.LittleEndian.PutUint16(b[4:6], binary.BigEndian.Uint16(id[4:6]))
	binary.LittleEndian.PutUint16(b[6:8], binary.BigEndian.Uint16(id[6:8]))
	copy(b[8:16], id[8:16])
}
