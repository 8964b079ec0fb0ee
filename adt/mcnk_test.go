// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wowemulation-dev/wowarch/internal/chunkio"
)

func buildMCNKPayload(t *testing.T, indexX, indexY uint32, subchunks []byte) []byte {
	t.Helper()
	header := make([]byte, 128)
	binary.LittleEndian.PutUint32(header[4:], indexX)
	binary.LittleEndian.PutUint32(header[8:], indexY)
	binary.LittleEndian.PutUint32(header[0x34:], 7) // area id
	return append(header, subchunks...)
}

func TestDecodeMCNKHeaderAndLayers(t *testing.T) {
	var sub []byte

	mcvt := make([]byte, 145*4)
	for i := 0; i < 145; i++ {
		binary.LittleEndian.PutUint32(mcvt[i*4:], math.Float32bits(float32(i)))
	}
	enc, err := chunkio.Encode("MCVT", mcvt)
	assert.NoError(t, err)
	sub = append(sub, enc...)

	layer := make([]byte, 16)
	binary.LittleEndian.PutUint32(layer[0:], 42)   // texture id
	binary.LittleEndian.PutUint32(layer[4:], 0x100) // has-alpha flag
	binary.LittleEndian.PutUint32(layer[8:], 0)     // alpha offset
	encLayer, err := chunkio.Encode("MCLY", layer)
	assert.NoError(t, err)
	sub = append(sub, encLayer...)

	alpha := make([]byte, AlphaMapSize)
	for i := range alpha {
		alpha[i] = 0xAB
	}
	encAlpha, err := chunkio.Encode("MCAL", alpha)
	assert.NoError(t, err)
	sub = append(sub, encAlpha...)

	payload := buildMCNKPayload(t, 3, 5, sub)

	m, err := DecodeMCNK(payload, true, false)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), m.IndexX)
	assert.Equal(t, uint32(5), m.IndexY)
	assert.Equal(t, uint32(7), m.AreaID)
	assert.InDelta(t, 0.0, m.Heights[0], 0.0001)
	assert.InDelta(t, 144.0, m.Heights[144], 0.0001)

	assert.Len(t, m.Layers, 1)
	assert.Equal(t, uint32(42), m.Layers[0].TextureID)
	assert.Len(t, m.Layers[0].AlphaMap, AlphaMapSize)
	assert.Equal(t, byte(0xAB), m.Layers[0].AlphaMap[0])
}

func TestDecodeMCNKTooShortHeader(t *testing.T) {
	_, err := DecodeMCNK(make([]byte, 10), false, false)
	assert.ErrorIs(t, err, errShortMCNK)
}

func TestDecodeMCNKLayerWithoutAlphaFlagSkipsMap(t *testing.T) {
	layer := make([]byte, 16)
	binary.LittleEndian.PutUint32(layer[0:], 1) // texture id, flags 0 (no alpha bit)
	encLayer, err := chunkio.Encode("MCLY", layer)
	assert.NoError(t, err)

	alpha := make([]byte, AlphaMapSize)
	encAlpha, err := chunkio.Encode("MCAL", alpha)
	assert.NoError(t, err)

	payload := buildMCNKPayload(t, 0, 0, append(encLayer, encAlpha...))
	m, err := DecodeMCNK(payload, true, false)
	assert.NoError(t, err)
	assert.Len(t, m.Layers, 1)
	assert.Nil(t, m.Layers[0].AlphaMap)
}
