// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package adt decodes ADT terrain tiles: the chunk-oriented binary format
// describing one map grid cell's heightmap, texture layers, water, and
// object placements. A tile's expansion is never stored explicitly; it is
// inferred from which chunks are present, since the format grew by adding
// chunks rather than bumping a version field.
package adt

import "github.com/wowemulation-dev/wowarch/internal/chunkio"

// Expansion identifies which content era a tile's chunk layout matches.
type Expansion int

const (
	ExpansionVanillaEarly Expansion = iota
	ExpansionVanillaLate
	ExpansionTBC
	ExpansionWotLK
	ExpansionCataclysm
	ExpansionMoP
)

func (e Expansion) String() string {
	switch e {
	case ExpansionVanillaEarly:
		return "vanilla-early"
	case ExpansionVanillaLate:
		return "vanilla-late"
	case ExpansionTBC:
		return "tbc"
	case ExpansionWotLK:
		return "wotlk"
	case ExpansionCataclysm:
		return "cataclysm"
	case ExpansionMoP:
		return "mop"
	default:
		return "unknown"
	}
}

// InferExpansion determines a tile's expansion from the chunk tags present,
// following strict precedence: a later expansion's marker chunk always wins
// over an earlier one's, even if both are present in the same tile (which
// happens when a tile is carried forward across an expansion boundary with
// minimal re-export).
func InferExpansion(chunks []chunkio.Chunk) Expansion {
	has := func(tag string) bool {
		_, ok := chunkio.First(chunks, tag)
		return ok
	}

	hasMCNK := has("MCNK")
	hasMCIN := has("MCIN")
	isSplitRoot := hasMCNK && !hasMCIN

	switch {
	case has("MTXP"):
		return ExpansionMoP
	case has("MAMP") || isSplitRoot:
		return ExpansionCataclysm
	case has("MH2O") || has("MTXF"):
		return ExpansionWotLK
	case has("MFBO"):
		return ExpansionTBC
	case has("MCCV"):
		return ExpansionVanillaLate
	default:
		return ExpansionVanillaEarly
	}
}
