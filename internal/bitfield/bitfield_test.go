// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package bitfield

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteRoundTrip(t *testing.T) {
	var table []byte
	table = Write(table, 0, 9, 0x1F7)
	table = Write(table, 9, 4, 0x5)
	table = Write(table, 13, 19, 0x7FFFF)

	assert.Equal(t, uint64(0x1F7), Read(table, 0, 9))
	assert.Equal(t, uint64(0x5), Read(table, 9, 4))
	assert.Equal(t, uint64(0x7FFFF), Read(table, 13, 19))
}

func TestReadOutOfBoundsReturnsZero(t *testing.T) {
	table := []byte{0xFF, 0xFF}
	assert.Equal(t, uint64(0), Read(table, 64, 8))
}

func TestReadZeroBitCount(t *testing.T) {
	table := []byte{0xFF}
	assert.Equal(t, uint64(0), Read(table, 0, 0))
}

func TestReadSpanningByteBoundary(t *testing.T) {
	table := []byte{0b1010_0000, 0b0000_0011}
	got := Read(table, 5, 5)
	assert.Equal(t, uint64(0b11101), got)
}
