// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"encoding/binary"
	"math"
)

// mh2oHeaderCount is the fixed number of per-MCNK header slots an MH2O
// chunk always carries, one per terrain cell in the tile's 16x16 grid.
const mh2oHeaderCount = 256

// LiquidInstance is one liquid layer within a map cell: a rectangular
// sub-region (in 0-8 vertex units) of water of a given type and height
// range, with optional per-vertex height/flow detail.
type LiquidInstance struct {
	LiquidType     uint16
	LiquidObject   uint16
	MinHeight      float32
	MaxHeight      float32
	XOffset        uint8
	YOffset        uint8
	Width          uint8
	Height         uint8
	HeightMap      [][9][9]float32 // present when an explicit height map was stored
	HasHeightMap   bool
	VertexWidth    uint8
	VertexHeight   uint8
	LiquidFlags    uint16
	VertexDepths   [][]float32
	VertexFlows    [][][2]uint8
	AttributeMask  uint64 // fishable/fatigue bitmask, MoP+ only
	RenderMask     [8]byte
}

// LiquidCell is the (possibly empty) water content of one MCNK cell.
type LiquidCell struct {
	Instances []LiquidInstance
}

type mh2oHeaderEntry struct {
	offsetInstances  uint32
	layerCount       uint32
	offsetRenderMask uint32
}

// DecodeMH2O parses an MH2O chunk's payload into per-cell liquid data.
// Every sub-read degrades gracefully: a short or malformed offset leaves
// that cell (or that field within an instance) empty rather than aborting
// the whole chunk, since a single corrupt water record should not cost the
// rest of the tile's terrain.
func DecodeMH2O(data []byte, mopOrLater bool) [mh2oHeaderCount]LiquidCell {
	var cells [mh2oHeaderCount]LiquidCell

	headerCount := len(data) / 12
	if headerCount > mh2oHeaderCount {
		headerCount = mh2oHeaderCount
	}

	for i := 0; i < headerCount; i++ {
		base := i * 12
		if base+12 > len(data) {
			break
		}
		hdr := mh2oHeaderEntry{
			offsetInstances:  binary.LittleEndian.Uint32(data[base:]),
			layerCount:       binary.LittleEndian.Uint32(data[base+4:]),
			offsetRenderMask: binary.LittleEndian.Uint32(data[base+8:]),
		}
		if hdr.layerCount == 0 {
			continue
		}
		cells[i] = decodeLiquidCell(data, hdr, mopOrLater)
	}

	return cells
}

func decodeLiquidCell(data []byte, hdr mh2oHeaderEntry, mopOrLater bool) LiquidCell {
	var cell LiquidCell

	for layer := uint32(0); layer < hdr.layerCount; layer++ {
		instBase := int(hdr.offsetInstances) + int(layer)*24
		if instBase+24 > len(data) || instBase < 0 {
			break
		}

		inst := LiquidInstance{
			LiquidType:   binary.LittleEndian.Uint16(data[instBase:]),
			LiquidObject: binary.LittleEndian.Uint16(data[instBase+2:]),
			MinHeight:    float32FromBits(data[instBase+4:]),
			MaxHeight:    float32FromBits(data[instBase+8:]),
			XOffset:      data[instBase+12],
			YOffset:      data[instBase+13],
			Width:        data[instBase+14],
			Height:       data[instBase+15],
		}

		offsetHeightMap := binary.LittleEndian.Uint32(data[instBase+20:])

		// The vertex-data offset field doubles as a vertex-dimensions
		// header when non-zero and the instance isn't a uniform-height
		// rectangle: x_vertices, y_vertices, liquid_flags follow
		// immediately instead of a plain offset, mirroring the union the
		// reference format uses here.
		if instBase+24 <= len(data) {
			vertexField := data[instBase+16 : instBase+24]
			vOffset := binary.LittleEndian.Uint32(vertexField[0:4])
			if vOffset != 0 {
				inst.VertexWidth = vertexField[4]
				inst.VertexHeight = vertexField[5]
				inst.LiquidFlags = binary.LittleEndian.Uint16(vertexField[6:8])
				decodeVertexData(data, int(vOffset), &inst)
			}
		}

		if offsetHeightMap != 0 {
			decodeHeightMap(data, int(offsetHeightMap), &inst)
		}

		if mopOrLater && instBase+24+8 <= len(data) {
			inst.AttributeMask = binary.LittleEndian.Uint64(data[instBase+24:])
		}

		if hdr.offsetRenderMask != 0 {
			base := int(hdr.offsetRenderMask)
			if base+8 <= len(data) {
				copy(inst.RenderMask[:], data[base:base+8])
			}
		}

		cell.Instances = append(cell.Instances, inst)
	}

	return cell
}

func decodeHeightMap(data []byte, offset int, inst *LiquidInstance) {
	var grid [9][9]float32
	pos := offset
	for y := 0; y < 9; y++ {
		for x := 0; x < 9; x++ {
			if pos+4 > len(data) {
				inst.HeightMap = append(inst.HeightMap, grid)
				inst.HasHeightMap = true
				return
			}
			grid[y][x] = float32FromBits(data[pos:])
			pos += 4
		}
	}
	inst.HeightMap = append(inst.HeightMap, grid)
	inst.HasHeightMap = true
}

func decodeVertexData(data []byte, offset int, inst *LiquidInstance) {
	w, h := int(inst.VertexWidth), int(inst.VertexHeight)
	if w == 0 || h == 0 {
		return
	}

	depths := make([]float32, 0, w*h)
	flows := make([][2]uint8, 0, w*h)
	pos := offset
	for i := 0; i < w*h; i++ {
		if pos+6 > len(data) {
			break
		}
		depths = append(depths, float32FromBits(data[pos:]))
		flows = append(flows, [2]uint8{data[pos+4], data[pos+5]})
		pos += 6
	}

	row := make([]float32, len(depths))
	copy(row, depths)
	inst.VertexDepths = append(inst.VertexDepths, row)

	frow := make([][2]uint8, len(flows))
	copy(frow, flows)
	inst.VertexFlows = append(inst.VertexFlows, frow)
}

func float32FromBits(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
