// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"encoding/binary"
	"math"

	"github.com/wowemulation-dev/wowarch/internal/chunkio"
)

// MCNK is one 33.33-yard map cell: the heightmap, normals, texture layers
// and their alpha masks, vertex shadows/colors, liquid, and ambient sound
// emitters for a single cell in the tile's 16x16 grid.
type MCNK struct {
	IndexX, IndexY uint32
	Flags          uint32
	AreaID         uint32
	HolesLowRes    uint16

	Heights [145]float32 // 9x9 outer + 8x8 inner grid, MCVT order
	Normals [145][3]int8 // MCNR order

	Layers    []TextureLayer
	Shadow    []byte // MCSH, 64x64 1bpp packed
	VertexColors []byte // MCCV, 145 BGRA entries

	Liquid LiquidCell

	SoundEmitters []SoundEmitter
	BoundingBox   [8][3]float32 // MCBB, present WotLK+
}

// TextureLayer is one MCLY entry plus its decoded MCAL alpha mask.
type TextureLayer struct {
	TextureID     uint32
	Flags         uint32
	AlphaOffset   uint32
	EffectID      int32
	AlphaMap      []byte // decoded to 64x64 when present
}

// SoundEmitter is one MCSE entry: an ambient sound's position and radii.
type SoundEmitter struct {
	SoundPointID uint32
	Position     [3]float32
	MinDistance  float32
	MaxDistance  float32
}

// DecodeMCNK decodes one MCNK record's header and subchunks. bigAlpha and
// fixAlpha carry the tile-level flags MCLY alpha decoding needs; they are
// not stored per-MCNK.
func DecodeMCNK(payload []byte, bigAlpha, fixAlpha bool) (*MCNK, error) {
	const headerSize = 128
	if len(payload) < headerSize {
		return nil, errShortMCNK
	}

	m := &MCNK{}
	m.Flags = binary.LittleEndian.Uint32(payload[0:4])
	m.IndexX = binary.LittleEndian.Uint32(payload[4:8])
	m.IndexY = binary.LittleEndian.Uint32(payload[8:12])
	m.AreaID = binary.LittleEndian.Uint32(payload[0x34:0x38])
	m.HolesLowRes = binary.LittleEndian.Uint16(payload[0x3C:0x3E])

	body := payload[headerSize:]
	chunks, err := chunkio.Collect(body)
	if err != nil {
		// A malformed subchunk tail still yields the chunks parsed so far.
		chunks, _ = chunkio.Collect(body[:len(body)])
	}

	if c, ok := chunkio.First(chunks, "MCVT"); ok {
		decodeHeights(c.Payload, m)
	}
	if c, ok := chunkio.First(chunks, "MCNR"); ok {
		decodeNormals(c.Payload, m)
	}
	if c, ok := chunkio.First(chunks, "MCSH"); ok {
		m.Shadow = append([]byte(nil), c.Payload...)
	}
	if c, ok := chunkio.First(chunks, "MCCV"); ok {
		m.VertexColors = append([]byte(nil), c.Payload...)
	}
	if c, ok := chunkio.First(chunks, "MCBB"); ok {
		decodeBoundingBox(c.Payload, m)
	}

	layerChunk, hasLayers := chunkio.First(chunks, "MCLY")
	alphaChunk, hasAlpha := chunkio.First(chunks, "MCAL")
	if hasLayers {
		m.Layers = decodeLayers(layerChunk.Payload)
		if hasAlpha {
			for i := range m.Layers {
				l := &m.Layers[i]
				if l.Flags&0x100 == 0 { // layer 0 or "use alpha" unset never carries a map
					continue
				}
				compressed := l.Flags&0x200 != 0
				off := int(l.AlphaOffset)
				if off < len(alphaChunk.Payload) {
					l.AlphaMap = DecodeAlphaMap(alphaChunk.Payload[off:], compressed, bigAlpha, fixAlpha)
				}
			}
		}
	}

	if c, ok := chunkio.First(chunks, "MCSE"); ok {
		m.SoundEmitters = decodeSoundEmitters(c.Payload)
	}

	return m, nil
}

func decodeHeights(data []byte, m *MCNK) {
	for i := 0; i < 145 && i*4+4 <= len(data); i++ {
		m.Heights[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

func decodeNormals(data []byte, m *MCNK) {
	for i := 0; i < 145 && i*3+3 <= len(data); i++ {
		m.Normals[i] = [3]int8{int8(data[i*3]), int8(data[i*3+1]), int8(data[i*3+2])}
	}
}

func decodeBoundingBox(data []byte, m *MCNK) {
	for i := 0; i < 8 && i*12+12 <= len(data); i++ {
		for a := 0; a < 3; a++ {
			m.BoundingBox[i][a] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*12+a*4:]))
		}
	}
}

func decodeLayers(data []byte) []TextureLayer {
	const entrySize = 16
	n := len(data) / entrySize
	layers := make([]TextureLayer, 0, n)
	for i := 0; i < n; i++ {
		base := i * entrySize
		layers = append(layers, TextureLayer{
			TextureID:   binary.LittleEndian.Uint32(data[base:]),
			Flags:       binary.LittleEndian.Uint32(data[base+4:]),
			AlphaOffset: binary.LittleEndian.Uint32(data[base+8:]),
			EffectID:    int32(binary.LittleEndian.Uint32(data[base+12:])),
		})
	}
	return layers
}

func decodeSoundEmitters(data []byte) []SoundEmitter {
	const entrySize = 28
	n := len(data) / entrySize
	out := make([]SoundEmitter, 0, n)
	for i := 0; i < n; i++ {
		base := i * entrySize
		out = append(out, SoundEmitter{
			SoundPointID: binary.LittleEndian.Uint32(data[base:]),
			Position: [3]float32{
				math.Float32frombits(binary.LittleEndian.Uint32(data[base+4:])),
				math.Float32frombits(binary.LittleEndian.Uint32(data[base+8:])),
				math.Float32frombits(binary.LittleEndian.Uint32(data[base+12:])),
			},
			MinDistance: math.Float32frombits(binary.LittleEndian.Uint32(data[base+16:])),
			MaxDistance: math.Float32frombits(binary.LittleEndian.Uint32(data[base+20:])),
		})
	}
	return out
}

var errShortMCNK = shortMCNKError{}

type shortMCNKError struct{}

func (shortMCNKError) Error() string { return "adt: MCNK payload shorter than fixed header" }
