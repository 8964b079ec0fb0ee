// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSplitSuffix(t *testing.T) {
	assert.Equal(t, SplitRoot, DetectSplitSuffix("Azeroth_32_48.adt"))
	assert.Equal(t, SplitTex0, DetectSplitSuffix("Azeroth_32_48_tex0.adt"))
	assert.Equal(t, SplitTex1, DetectSplitSuffix("Azeroth_32_48_tex1.adt"))
	assert.Equal(t, SplitObj0, DetectSplitSuffix("Azeroth_32_48_obj0.adt"))
	assert.Equal(t, SplitObj1, DetectSplitSuffix("Azeroth_32_48_obj1.ADT"))
	assert.Equal(t, SplitLOD, DetectSplitSuffix("Azeroth_32_48_lod.adt"))
}

func TestMergeSplitTilesMergesLayersIntoRootCells(t *testing.T) {
	root := &Tile{Version: 18}
	root.Cells[0] = &MCNK{IndexX: 0, IndexY: 0}

	tex0 := &Tile{
		Textures: []string{"tex/a.blp"},
		HasWater: true,
	}
	tex0.Cells[0] = &MCNK{
		IndexX: 0, IndexY: 0,
		Layers: []TextureLayer{{TextureID: 5}},
		Shadow: []byte{0xFF},
	}

	obj0 := &Tile{
		Models:          []string{"m.m2"},
		ModelPlacements: []ModelPlacement{{NameID: 1}},
	}

	merged := MergeSplitTiles(root, tex0, nil, obj0, nil)

	assert.Equal(t, []string{"tex/a.blp"}, merged.Textures)
	assert.True(t, merged.HasWater)
	assert.NotNil(t, merged.Cells[0])
	assert.Len(t, merged.Cells[0].Layers, 1)
	assert.Equal(t, uint32(5), merged.Cells[0].Layers[0].TextureID)
	assert.Equal(t, []byte{0xFF}, merged.Cells[0].Shadow)

	assert.Equal(t, []string{"m.m2"}, merged.Models)
	assert.Len(t, merged.ModelPlacements, 1)
}

func TestMergeSplitTilesTex1Obj1OverrideTex0Obj0(t *testing.T) {
	root := &Tile{Version: 18}
	root.Cells[0] = &MCNK{IndexX: 0, IndexY: 0}

	tex0 := &Tile{Textures: []string{"tex/a.blp"}}
	tex0.Cells[0] = &MCNK{IndexX: 0, IndexY: 0, Layers: []TextureLayer{{TextureID: 5}}}

	tex1 := &Tile{Textures: []string{"tex/b.blp"}}
	tex1.Cells[0] = &MCNK{IndexX: 0, IndexY: 0, Layers: []TextureLayer{{TextureID: 9}}}

	obj0 := &Tile{Models: []string{"a.m2"}, ModelPlacements: []ModelPlacement{{NameID: 1}}}
	obj1 := &Tile{Models: []string{"b.m2"}, ModelPlacements: []ModelPlacement{{NameID: 2}, {NameID: 3}}}

	merged := MergeSplitTiles(root, tex0, tex1, obj0, obj1)

	assert.Equal(t, []string{"tex/b.blp"}, merged.Textures)
	assert.Equal(t, uint32(9), merged.Cells[0].Layers[0].TextureID)
	assert.Equal(t, []string{"b.m2"}, merged.Models)
	assert.Len(t, merged.ModelPlacements, 2)
}

func TestMergeSplitTilesFallsBackToRootWhenSiblingsMissing(t *testing.T) {
	root := &Tile{
		Version:         18,
		Textures:        []string{"root.blp"},
		Models:          []string{"root.m2"},
		ModelPlacements: []ModelPlacement{{NameID: 7}},
	}
	root.Cells[0] = &MCNK{IndexX: 0, IndexY: 0, Layers: []TextureLayer{{TextureID: 1}}}

	merged := MergeSplitTiles(root, nil, nil, nil, nil)
	assert.Equal(t, []string{"root.blp"}, merged.Textures)
	assert.Equal(t, []string{"root.m2"}, merged.Models)
	assert.Equal(t, root.Cells[0].Layers, merged.Cells[0].Layers)
}
