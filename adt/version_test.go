// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wowemulation-dev/wowarch/internal/chunkio"
)

func chunksFromTags(t *testing.T, tags ...string) []chunkio.Chunk {
	t.Helper()
	var data []byte
	for _, tag := range tags {
		enc, err := chunkio.Encode(tag, nil)
		assert.NoError(t, err)
		data = append(data, enc...)
	}
	chunks, err := chunkio.Collect(data)
	assert.NoError(t, err)
	return chunks
}

func TestInferExpansionPrecedence(t *testing.T) {
	assert.Equal(t, ExpansionVanillaEarly, InferExpansion(chunksFromTags(t, "MVER", "MCNK", "MCIN")))
	assert.Equal(t, ExpansionVanillaLate, InferExpansion(chunksFromTags(t, "MVER", "MCCV")))
	assert.Equal(t, ExpansionTBC, InferExpansion(chunksFromTags(t, "MVER", "MFBO")))
	assert.Equal(t, ExpansionWotLK, InferExpansion(chunksFromTags(t, "MVER", "MH2O")))
	assert.Equal(t, ExpansionWotLK, InferExpansion(chunksFromTags(t, "MVER", "MTXF")))
	assert.Equal(t, ExpansionCataclysm, InferExpansion(chunksFromTags(t, "MVER", "MCNK")))
	assert.Equal(t, ExpansionCataclysm, InferExpansion(chunksFromTags(t, "MVER", "MAMP")))
	assert.Equal(t, ExpansionMoP, InferExpansion(chunksFromTags(t, "MVER", "MTXP")))

	// A later marker always wins even alongside an earlier one.
	assert.Equal(t, ExpansionMoP, InferExpansion(chunksFromTags(t, "MVER", "MCCV", "MTXP")))
}

func TestExpansionString(t *testing.T) {
	assert.Equal(t, "vanilla-early", ExpansionVanillaEarly.String())
	assert.Equal(t, "mop", ExpansionMoP.String())
	assert.Equal(t, "unknown", Expansion(99).String())
}
