// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpqcodec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZlibRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog"), 50)
	packed, err := CompressZlib(data)
	require.NoError(t, err)

	out, err := Decompress(packed, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPKWareRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("abcabcabcabc ZZZZZZZZZZZZZZZZ xyz"), 20)
	packed := compressPKWare(data, 6)
	require.Equal(t, byte(pkLiteralRaw), packed[0])

	out, err := decompressPKWare(packed, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestHuffmanRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{1, 2, 3, 1, 2, 1, 4, 1, 2, 3}, 30)
	packed, err := compressHuffman(data)
	require.NoError(t, err)

	out, err := decompressHuffman(packed, uint32(len(data)))
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestADPCMMonoRoundTrip(t *testing.T) {
	pcm := make([]byte, 2*64)
	for i := 0; i < 64; i++ {
		v := int16((i % 32) * 500)
		pcm[i*2] = byte(v)
		pcm[i*2+1] = byte(v >> 8)
	}

	packed, err := compressADPCM(pcm, 1)
	require.NoError(t, err)

	out, err := decompressADPCM(packed, 1, uint32(len(pcm)))
	require.NoError(t, err)
	assert.Equal(t, len(pcm), len(out))
}

func TestDecompressRejectsCompressionBomb(t *testing.T) {
	_, err := Decompress([]byte{MethodZlib, 0x01}, 1<<30)
	assert.Error(t, err)
}

func TestDecompressEmptyInput(t *testing.T) {
	_, err := Decompress(nil, 10)
	assert.Error(t, err)
}
