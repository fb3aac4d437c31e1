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
package format

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Helper to format bytes into human-readable units, avoiding .00 for whole numbers
func FormatBytes(b int64) string {
	const (
		_  = iota // ignore first value
		KB = 1 << (10 * iota)
		MB
		GB
		TB
	)

	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	// Use %.0f for whole numbers, %.2f for numbers with decimals
	if val == float64(int(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// ParseBytes parses a size with an optional single-letter binary unit
// suffix (k/K, m/M, g/G, t/T, e/E meaning KiB..EiB); a bare number is bytes.
func ParseBytes(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("format: empty size")
	}

	const (
		KiB = 1 << (10 * (iota + 1))
		MiB
		GiB
		TiB
		EiB = 1 << 60
	)

	last := s[len(s)-1]
	var mul uint64 = 1
	digits := s
	if last < '0' || last > '9' {
		switch strings.ToUpper(string(last)) {
		case "K":
			mul = KiB
		case "M":
			mul = MiB
		case "G":
			mul = GiB
		case "T":
			mul = TiB
		case "E":
			mul = EiB
		default:
			return 0, fmt.Errorf("format: unknown size unit %q", string(last))
		}
		digits = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("format: invalid size %q: %w", s, err)
	}
	if n != 0 && n > math.MaxUint64/mul {
		return 0, fmt.Errorf("format: size %q overflows uint64", s)
	}
	return n * mul, nil
}
