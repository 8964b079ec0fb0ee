// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpqcrypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashStringGoldenVectors(t *testing.T) {
	assert.Equal(t, uint32(0xC3AF3770), HashString("(hash table)", HashFileKey))
	assert.Equal(t, uint32(0xEC83B3A3), HashString("(block table)", HashFileKey))
}

func TestHashStringCaseAndSlashInsensitive(t *testing.T) {
	a := HashString("Units\\Human\\Footman.mdx", HashNameA)
	b := HashString("units/human/footman.MDX", HashNameA)
	assert.Equal(t, a, b)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	data := []uint32{1, 2, 3, 4, 0xDEADBEEF}
	orig := append([]uint32(nil), data...)
	key := HashString("(hash table)", HashFileKey)

	EncryptBlock(data, key)
	require.NotEqual(t, orig, data)

	DecryptBlock(data, key)
	assert.Equal(t, orig, data)
}

func TestFileKeyFixKeyAdjustsByOffset(t *testing.T) {
	base := FileKey("Data\\file.txt", 0x1000, 4096, false)
	fixed := FileKey("Data\\file.txt", 0x1000, 4096, true)
	assert.NotEqual(t, base, fixed)
	assert.Equal(t, (base+0x1000)^4096, fixed)
}

func TestJenkins64Deterministic(t *testing.T) {
	a := Jenkins64("Data\\file.txt")
	b := Jenkins64("DATA/FILE.TXT")
	assert.Equal(t, a, b)
	assert.NotZero(t, a)
}
