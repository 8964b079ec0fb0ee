// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/wowemulation-dev/wowarch/internal/chunkio"
)

// ModelPlacement is one MDDF entry: a doodad (M2) instance.
type ModelPlacement struct {
	NameID   uint32
	UniqueID uint32
	Position [3]float32
	Rotation [3]float32
	Scale    uint16
	Flags    uint16
}

// WMOPlacement is one MODF entry: a WMO instance.
type WMOPlacement struct {
	NameID       uint32
	UniqueID     uint32
	Position     [3]float32
	Rotation     [3]float32
	BoundsMin    [3]float32
	BoundsMax    [3]float32
	Flags        uint16
	DoodadSet    uint16
	NameSet      uint16
	Scale        uint16 // MoP+; 1024 == 1.0 when present
}

// Tile is a fully decoded ADT terrain tile, merged across its split sibling
// files when the source was split (Cataclysm+).
type Tile struct {
	Version    uint32
	Expansion  Expansion
	Textures   []string
	Models     []string
	WMOs       []string
	ModelPlacements []ModelPlacement
	WMOPlacements   []WMOPlacement
	Cells      [256]*MCNK // 16x16, row-major
	Water      [mh2oHeaderCount]LiquidCell
	HasWater   bool
}

// Decode parses a single (unsplit, or already-merged) ADT file's bytes into
// a Tile.
func Decode(data []byte) (*Tile, error) {
	chunks, err := chunkio.Collect(data)
	if err != nil && len(chunks) == 0 {
		return nil, fmt.Errorf("adt: decode: %w", err)
	}

	t := &Tile{Expansion: InferExpansion(chunks)}

	if c, ok := chunkio.First(chunks, "MVER"); ok && len(c.Payload) >= 4 {
		t.Version = binary.LittleEndian.Uint32(c.Payload)
	}
	if c, ok := chunkio.First(chunks, "MTEX"); ok {
		t.Textures = splitNulTerminated(c.Payload)
	}
	if c, ok := chunkio.First(chunks, "MMDX"); ok {
		t.Models = splitNulTerminated(c.Payload)
	}
	if c, ok := chunkio.First(chunks, "MWMO"); ok {
		t.WMOs = splitNulTerminated(c.Payload)
	}
	if c, ok := chunkio.First(chunks, "MDDF"); ok {
		t.ModelPlacements = decodeModelPlacements(c.Payload)
	}
	if c, ok := chunkio.First(chunks, "MODF"); ok {
		t.WMOPlacements = decodeWMOPlacements(c.Payload)
	}

	bigAlpha := t.Expansion >= ExpansionCataclysm
	fixAlpha := t.Expansion < ExpansionCataclysm

	for _, c := range chunkio.All(chunks, "MCNK") {
		mcnk, err := DecodeMCNK(c.Payload, bigAlpha, fixAlpha)
		if err != nil {
			continue // one bad cell does not invalidate the tile
		}
		idx := mcnk.IndexY*16 + mcnk.IndexX
		if idx < 256 {
			t.Cells[idx] = mcnk
		}
	}

	if c, ok := chunkio.First(chunks, "MH2O"); ok {
		t.Water = DecodeMH2O(c.Payload, t.Expansion >= ExpansionMoP)
		t.HasWater = true
	}

	return t, nil
}

func splitNulTerminated(data []byte) []string {
	var out []string
	for _, s := range strings.Split(string(data), "\x00") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeModelPlacements(data []byte) []ModelPlacement {
	const entrySize = 36
	n := len(data) / entrySize
	out := make([]ModelPlacement, 0, n)
	for i := 0; i < n; i++ {
		b := data[i*entrySize:]
		out = append(out, ModelPlacement{
			NameID:   binary.LittleEndian.Uint32(b[0:]),
			UniqueID: binary.LittleEndian.Uint32(b[4:]),
			Position: readVec3(b[8:]),
			Rotation: readVec3(b[20:]),
			Scale:    binary.LittleEndian.Uint16(b[32:]),
			Flags:    binary.LittleEndian.Uint16(b[34:]),
		})
	}
	return out
}

func decodeWMOPlacements(data []byte) []WMOPlacement {
	const entrySize = 64
	n := len(data) / entrySize
	out := make([]WMOPlacement, 0, n)
	for i := 0; i < n; i++ {
		b := data[i*entrySize:]
		out = append(out, WMOPlacement{
			NameID:    binary.LittleEndian.Uint32(b[0:]),
			UniqueID:  binary.LittleEndian.Uint32(b[4:]),
			Position:  readVec3(b[8:]),
			Rotation:  readVec3(b[20:]),
			BoundsMin: readVec3(b[32:]),
			BoundsMax: readVec3(b[44:]),
			Flags:     binary.LittleEndian.Uint16(b[56:]),
			DoodadSet: binary.LittleEndian.Uint16(b[58:]),
			NameSet:   binary.LittleEndian.Uint16(b[60:]),
			// Scale (MoP+) reuses what pre-MoP clients leave as padding at
			// this offset; callers on earlier content should ignore it.
			Scale: binary.LittleEndian.Uint16(b[62:]),
		})
	}
	return out
}

func readVec3(b []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}
