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

func buildTileBytes(t *testing.T) []byte {
	t.Helper()
	var out []byte

	mver, err := chunkio.Encode("MVER", []byte{18, 0, 0, 0})
	assert.NoError(t, err)
	out = append(out, mver...)

	mtex, err := chunkio.Encode("MTEX", []byte("tex/a.blp\x00tex/b.blp\x00"))
	assert.NoError(t, err)
	out = append(out, mtex...)

	mcnkPayload := buildMCNKPayload(t, 2, 1, nil)
	mcnk, err := chunkio.Encode("MCNK", mcnkPayload)
	assert.NoError(t, err)
	out = append(out, mcnk...)

	mddf := make([]byte, 36)
	binary.LittleEndian.PutUint32(mddf[0:], 99) // name id
	binary.LittleEndian.PutUint32(mddf[4:], 1)  // unique id
	binary.LittleEndian.PutUint32(mddf[8:], math.Float32bits(100))
	encMddf, err := chunkio.Encode("MDDF", mddf)
	assert.NoError(t, err)
	out = append(out, encMddf...)

	return out
}

func TestDecodeAssemblesTile(t *testing.T) {
	tile, err := Decode(buildTileBytes(t))
	assert.NoError(t, err)
	assert.Equal(t, uint32(18), tile.Version)
	assert.Equal(t, []string{"tex/a.blp", "tex/b.blp"}, tile.Textures)
	assert.Len(t, tile.ModelPlacements, 1)
	assert.Equal(t, uint32(99), tile.ModelPlacements[0].NameID)

	idx := 1*16 + 2
	assert.NotNil(t, tile.Cells[idx])
	assert.Equal(t, uint32(2), tile.Cells[idx].IndexX)
}

func TestSplitNulTerminatedSkipsEmpty(t *testing.T) {
	out := splitNulTerminated([]byte("a\x00\x00b\x00"))
	assert.Equal(t, []string{"a", "b"}, out)
}
