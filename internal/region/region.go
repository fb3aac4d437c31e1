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

// Package region implements a small closed-interval algebra over ordered
// integers, used by the GPT codec to track used and free LBA ranges.
package region

import "fmt"

// Integer is the set of ordered integer types a Region can be built over.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Region is an inclusive [Start, End] range. The zero value is not a valid
// Region; construct one with New or NewWithSize.
type Region[T Integer] struct {
	start T
	end   T
}

// New builds a Region covering [start, end]. Panics if end < start, since a
// Region can never be empty of its one required point.
func New[T Integer](start, end T) Region[T] {
	if end < start {
		panic(fmt.Sprintf("region: end (%v) is before start (%v)", end, start))
	}
	return Region[T]{start: start, end: end}
}

// NewWithSize builds a Region covering size elements starting at start.
// Panics if size == 0.
func NewWithSize[T Integer](start, size T) Region[T] {
	if size == 0 {
		panic("region: size must be positive")
	}
	return New(start, start+size-1)
}

// Start returns the inclusive lower bound.
func (r Region[T]) Start() T { return r.start }

// End returns the inclusive upper bound.
func (r Region[T]) End() T { return r.end }

// Size returns the number of elements the region covers.
func (r Region[T]) Size() T { return r.end - r.start + 1 }

// Overlaps reports whether r and other share at least one point.
func (r Region[T]) Overlaps(other Region[T]) bool {
	return r.start <= other.end && other.start <= r.end
}

// Belongs reports whether r is entirely contained within outer.
func (r Region[T]) Belongs(outer Region[T]) bool {
	return r.start >= outer.start && r.end <= outer.end
}

// Subtract removes other from r, returning at most two disjoint sub-regions.
// A nil return for either half means that side produced nothing (either
// because other fully covers it or other does not overlap r at all).
func (r Region[T]) Subtract(other Region[T]) (left, right *Region[T]) {
	if !r.Overlaps(other) {
		cp := r
		return &cp, nil
	}

	if other.start <= r.start && other.end >= r.end {
		return nil, nil
	}

	if other.start > r.start {
		lo := New(r.start, min(other.start-1, r.end))
		left = &lo
	}
	if other.end < r.end {
		hi := New(max(other.end+1, r.start), r.end)
		right = &hi
	}
	return left, right
}

func (r Region[T]) String() string {
	return fmt.Sprintf("[%v, %v]", r.start, r.end)
}

func min[T Integer](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func max[T Integer](a, b T) T {
	if a > b {
		return a
	}
	return b
}
