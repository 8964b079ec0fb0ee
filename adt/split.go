// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package adt

import (
	"fmt"
	"strings"
)

// SplitSuffix identifies which sibling file of a split (Cataclysm+) ADT
// tile a given file name represents.
type SplitSuffix int

const (
	SplitRoot SplitSuffix = iota
	SplitTex0
	SplitTex1
	SplitObj0
	SplitObj1
	SplitLOD
)

// DetectSplitSuffix classifies name by its trailing "_tex0"/"_obj1"/etc.
// suffix (before the .adt extension), returning SplitRoot for a plain,
// unsplit tile name.
func DetectSplitSuffix(name string) SplitSuffix {
	base := strings.TrimSuffix(strings.ToLower(name), ".adt")
	switch {
	case strings.HasSuffix(base, "_tex0"):
		return SplitTex0
	case strings.HasSuffix(base, "_tex1"):
		return SplitTex1
	case strings.HasSuffix(base, "_obj0"):
		return SplitObj0
	case strings.HasSuffix(base, "_obj1"):
		return SplitObj1
	case strings.HasSuffix(base, "_lod"):
		return SplitLOD
	default:
		return SplitRoot
	}
}

// SplitTileProvider supplies a split tile's sibling file bytes by suffix,
// the shape ParseSplitTile loads a tile's root plus whichever siblings the
// caller can provide through.
type SplitTileProvider func(suffix SplitSuffix) ([]byte, bool)

// ParseSplitTile loads a split (Cataclysm+) tile's root file plus whichever
// of its _tex0/_tex1/_obj0/_obj1 siblings provider can supply, merging them
// into one logical Tile. A missing or undecodable sibling is treated as
// absent rather than an error: the root alone still yields a usable,
// if texture/object-light, tile.
func ParseSplitTile(provider SplitTileProvider) (*Tile, error) {
	rootData, ok := provider(SplitRoot)
	if !ok {
		return nil, fmt.Errorf("adt: parse split tile: no root data")
	}
	root, err := Decode(rootData)
	if err != nil {
		return nil, fmt.Errorf("adt: parse split tile: root: %w", err)
	}

	decodeSibling := func(suffix SplitSuffix) *Tile {
		data, ok := provider(suffix)
		if !ok {
			return nil
		}
		tile, err := Decode(data)
		if err != nil {
			return nil
		}
		return tile
	}

	return MergeSplitTiles(root, decodeSibling(SplitTex0), decodeSibling(SplitTex1), decodeSibling(SplitObj0), decodeSibling(SplitObj1)), nil
}

// MergeSplitTiles combines a split tile's sibling files (root, and
// optionally _tex0/_tex1/_obj0/_obj1) into one logical Tile. Unlike a
// field-by-field "first non-nil wins" merge, per-MCNK texture data
// (MCLY/MCAL) from a _tex* sibling is merged directly into the root tile's
// corresponding cells — the root MCNK is written out flag-only in a split
// archive (no layers of its own), so a merge that only fills top-level
// fields would silently drop every tile's texture layers. tex1 and obj1
// apply after tex0 and obj0 respectively, replacing whichever nullable
// fields they carry data for, per the split format's layered-override
// design.
func MergeSplitTiles(root, tex0, tex1, obj0, obj1 *Tile) *Tile {
	merged := &Tile{
		Version:   root.Version,
		Expansion: root.Expansion,
		Cells:     root.Cells,
	}

	merged.Textures = root.Textures
	merged.Water = root.Water
	merged.HasWater = root.HasWater
	applyTexSibling(merged, tex0)
	applyTexSibling(merged, tex1)

	merged.Models = root.Models
	merged.WMOs = root.WMOs
	merged.ModelPlacements = root.ModelPlacements
	merged.WMOPlacements = root.WMOPlacements
	applyObjSibling(merged, obj0)
	applyObjSibling(merged, obj1)

	return merged
}

// applyTexSibling overlays sib's textures and per-cell MCLY/MCAL/shadow
// data onto merged, replacing whatever non-empty fields sib carries.
func applyTexSibling(merged *Tile, sib *Tile) {
	if sib == nil {
		return
	}

	if len(sib.Textures) > 0 {
		merged.Textures = sib.Textures
	}
	for i := range merged.Cells {
		rootCell := merged.Cells[i]
		texCell := sib.Cells[i]
		if rootCell == nil || texCell == nil {
			continue
		}
		if len(texCell.Layers) > 0 {
			rootCell.Layers = texCell.Layers
		}
		if len(texCell.Shadow) > 0 {
			rootCell.Shadow = texCell.Shadow
		}
	}
	if sib.HasWater {
		merged.Water = sib.Water
		merged.HasWater = true
	}
}

// applyObjSibling overlays sib's model/WMO lists and placements onto
// merged, replacing whatever non-empty fields sib carries.
func applyObjSibling(merged *Tile, sib *Tile) {
	if sib == nil {
		return
	}

	if len(sib.Models) > 0 {
		merged.Models = sib.Models
	}
	if len(sib.WMOs) > 0 {
		merged.WMOs = sib.WMOs
	}
	if len(sib.ModelPlacements) > 0 {
		merged.ModelPlacements = sib.ModelPlacements
	}
	if len(sib.WMOPlacements) > 0 {
		merged.WMOPlacements = sib.WMOPlacements
	}
}
