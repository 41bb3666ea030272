package vdb

import "math/bits"

// Mask512 is the active-state bitmask of a leaf node, one bit per voxel.
type Mask512 [8]uint64

// Set turns bit i on.
func (m *Mask512) Set(i int) {
	m[i>>6] |= 1 << (uint(i) & 63)
}

// Clear turns bit i off.
func (m *Mask512) Clear(i int) {
	m[i>>6] &^= 1 << (uint(i) & 63)
}

// IsOn reports whether bit i is set.
func (m *Mask512) IsOn(i int) bool {
	return m[i>>6]&(1<<(uint(i)&63)) != 0
}

// CountOn returns the number of set bits.
func (m *Mask512) CountOn() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// IsOff reports whether no bit is set.
func (m *Mask512) IsOff() bool {
	for _, w := range m {
		if w != 0 {
			return false
		}
	}
	return true
}

// ForEachOn calls fn with the index of every set bit in ascending order.
func (m *Mask512) ForEachOn(fn func(i int)) {
	for wi, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			fn(wi<<6 | b)
			w &= w - 1
		}
	}
}
