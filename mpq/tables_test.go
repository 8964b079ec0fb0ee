// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wowemulation-dev/wowarch/internal/mpqcrypto"
)

// buildHashTableFor places entries at successive probe slots for name,
// exercising findClassic's multi-candidate collection across the probe
// chain rather than just its first hit.
func buildHashTableFor(name string, entries ...HashEntry) []HashEntry {
	table := make([]HashEntry, 16)
	for i := range table {
		table[i] = HashEntry{HashA: hashEmpty, HashB: hashEmpty, Locale: 0xFFFF, Platform: 0xFFFF, BlockIndex: hashEmpty}
	}

	mask := uint32(len(table) - 1)
	start := mpqcrypto.HashString(name, mpqcrypto.HashTableOffset) & mask
	hashA := mpqcrypto.HashString(name, mpqcrypto.HashNameA)
	hashB := mpqcrypto.HashString(name, mpqcrypto.HashNameB)

	for i, e := range entries {
		e.HashA, e.HashB = hashA, hashB
		table[(start+uint32(i))&mask] = e
	}
	return table
}

func TestFindClassicPrefersExactLocaleOverNeutralSeenFirst(t *testing.T) {
	name := "Interface\\FrFR\\Strings.lua"
	table := buildHashTableFor(name,
		HashEntry{Locale: 0, BlockIndex: 1},    // neutral, probed first
		HashEntry{Locale: 0x407, BlockIndex: 2}, // exact match for requested locale, probed second
	)

	idx, locale, ok := findClassic(table, name, 0x407)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), idx)
	assert.Equal(t, uint16(0x407), locale)
}

func TestFindClassicFallsBackToNeutralWhenNoExactMatch(t *testing.T) {
	name := "Interface\\DeDE\\Strings.lua"
	table := buildHashTableFor(name,
		HashEntry{Locale: 0x409, BlockIndex: 1}, // unrelated locale, probed first
		HashEntry{Locale: 0, BlockIndex: 2},     // neutral
	)

	idx, locale, ok := findClassic(table, name, 0x407)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), idx)
	assert.Equal(t, uint16(0), locale)
}

func TestFindClassicFallsBackToFirstSeenWhenNoExactOrNeutral(t *testing.T) {
	name := "Interface\\EsES\\Strings.lua"
	table := buildHashTableFor(name,
		HashEntry{Locale: 0x409, BlockIndex: 1},
		HashEntry{Locale: 0x40C, BlockIndex: 2},
	)

	idx, locale, ok := findClassic(table, name, 0x407)
	assert.True(t, ok)
	assert.Equal(t, uint32(1), idx)
	assert.Equal(t, uint16(0x409), locale)
}
