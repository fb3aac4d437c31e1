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
package disk

// ArgumentMap is a typed bag of format-specific parameters for opening or
// creating a disk: things like the sector size to enforce on a raw disk, or
// the block size to use when creating a dynamic VHD
// (vhd.CreateDynamicWithArgs). Every accessor takes a default
// so callers never need a presence check before reading a parameter with a
// sane fallback.
type ArgumentMap struct {
	values map[string]any
}

// NewArgumentMap returns an empty, ready-to-use ArgumentMap.
func NewArgumentMap() ArgumentMap {
	return ArgumentMap{values: make(map[string]any)}
}

func (m ArgumentMap) Set(key string, v any) ArgumentMap {
	m.values[key] = v
	return m
}

func (m ArgumentMap) GetU64(key string, def uint64) uint64 {
	if v, ok := m.values[key]; ok {
		if n, ok := v.(uint64); ok {
			return n
		}
	}
	return def
}

func (m ArgumentMap) GetU32(key string, def uint32) uint32 {
	if v, ok := m.values[key]; ok {
		if n, ok := v.(uint32); ok {
			return n
		}
	}
	return def
}

func (m ArgumentMap) GetString(key string, def string) string {
	if v, ok := m.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (m ArgumentMap) GetBool(key string, def bool) bool {
	if v, ok := m.values[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
