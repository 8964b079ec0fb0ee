// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func planeFor(axis AxisType, distance float32) Plane {
	var normal Vec3
	switch axis {
	case AxisX:
		normal = Vec3{X: 1}
	case AxisY:
		normal = Vec3{Y: 1}
	case AxisZ:
		normal = Vec3{Z: 1}
	default:
		normal = Vec3{X: 0.577, Y: 0.577, Z: 0.577}
	}
	return Plane{Normal: normal, Distance: distance}
}

func TestNodeIsLeaf(t *testing.T) {
	leaf := Node{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, NumFaces: 2}
	assert.True(t, leaf.IsLeaf())

	internal := Node{Plane: planeFor(AxisX, 0), Children: [2]int32{1, 2}, NumFaces: 0}
	assert.False(t, internal.IsLeaf())
}

func TestNodeAxisType(t *testing.T) {
	assert.Equal(t, AxisX, Node{Plane: planeFor(AxisX, 5)}.AxisType())
	assert.Equal(t, AxisY, Node{Plane: planeFor(AxisY, 5)}.AxisType())
	assert.Equal(t, AxisZ, Node{Plane: planeFor(AxisZ, 5)}.AxisType())
}

func TestEmptyTree(t *testing.T) {
	tree := New(nil)
	assert.True(t, tree.IsEmpty())
	assert.Empty(t, tree.QueryPoint(Vec3{}))
}

func TestSingleLeafTree(t *testing.T) {
	tree := New([]Node{
		{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, NumFaces: 1},
	})
	leaves := tree.QueryPoint(Vec3{})
	assert.Equal(t, []int{0}, leaves)
}

func TestSimpleXSplit(t *testing.T) {
	tree := New([]Node{
		{Plane: planeFor(AxisX, 0), Children: [2]int32{1, 2}},
		{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, NumFaces: 1},
		{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, FirstFace: 1, NumFaces: 1},
	})

	assert.Equal(t, []int{1}, tree.QueryPoint(Vec3{X: -5}))
	assert.Equal(t, []int{2}, tree.QueryPoint(Vec3{X: 5}))
}

func TestZSplitTraversesBoth(t *testing.T) {
	tree := New([]Node{
		{Plane: planeFor(AxisZ, 0), Children: [2]int32{1, 2}},
		{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, NumFaces: 1},
		{Plane: planeFor(AxisX, 0), Children: [2]int32{-1, -1}, FirstFace: 1, NumFaces: 1},
	})

	leaves := tree.QueryPoint(Vec3{Z: 5})
	assert.ElementsMatch(t, []int{1, 2}, leaves)
}

func TestRayTriangleIntersect(t *testing.T) {
	v0 := Vec3{X: -1, Y: -1, Z: 0}
	v1 := Vec3{X: 1, Y: -1, Z: 0}
	v2 := Vec3{X: 0, Y: 1, Z: 0}

	hit, ok := rayTriangleIntersectNegZ(Vec3{Z: 5}, v0, v1, v2)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, hit, 0.001)

	_, miss := rayTriangleIntersectNegZ(Vec3{X: 10, Y: 10, Z: 5}, v0, v1, v2)
	assert.False(t, miss)

	_, below := rayTriangleIntersectNegZ(Vec3{Z: -5}, v0, v1, v2)
	assert.False(t, below)
}

func TestPickClosestTriangleAndPointInGroup(t *testing.T) {
	tree := New([]Node{
		{Plane: planeFor(AxisZ, 0), Children: [2]int32{-1, -1}, NumFaces: 1},
	})
	vertices := []Vec3{
		{X: -1, Y: -1, Z: 0},
		{X: 1, Y: -1, Z: 0},
		{X: 0, Y: 1, Z: 0},
	}
	indices := []uint16{0, 1, 2}

	face, ok := tree.PickClosestTriangle(Vec3{Z: 5}, vertices, indices)
	assert.True(t, ok)
	assert.Equal(t, 0, face)
	assert.True(t, PointInGroup(Vec3{Z: 5}, tree, vertices, indices))
	assert.False(t, PointInGroup(Vec3{X: 50, Y: 50, Z: 5}, tree, vertices, indices))
}
