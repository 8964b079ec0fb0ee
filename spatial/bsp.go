// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package spatial provides the BSP point-query and ray-triangle intersection
// primitives WMO group geometry uses to answer "which triangle is directly
// below this point" against a binary space partition built from
// axis-aligned (and occasionally arbitrary) splitting planes. No other
// package in this module calls it.
package spatial

import "math"

// Vec3 is a plain 3-component point or vector.
type Vec3 struct {
	X, Y, Z float32
}

// Plane is a splitting plane in point-normal-distance form: a point p lies
// on the plane when dot(normal, p) == distance.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// AxisType classifies a plane's normal as aligned to one of the three axes,
// or Other when it isn't aligned to any of them within epsilon.
type AxisType int

const (
	AxisX AxisType = iota
	AxisY
	AxisZ
	AxisOther
)

const axisEpsilon = 0.0001

// Node is one BSP tree node: either an internal split (Children both >= 0,
// NumFaces == 0) or a leaf referencing a run of triangles starting at
// FirstFace. Children hold -1 for "no child", matching the on-disk
// convention rather than Go's usual nil/zero-value idiom, since -1 is a
// valid sentinel distinct from child index 0.
type Node struct {
	Plane     Plane
	Children  [2]int32
	FirstFace uint32
	NumFaces  uint32
}

// IsLeaf reports whether n terminates the tree: either it carries faces
// directly, or both of its children are absent.
func (n Node) IsLeaf() bool {
	return n.NumFaces > 0 || (n.Children[0] == -1 && n.Children[1] == -1)
}

// AxisType classifies n's splitting plane.
func (n Node) AxisType() AxisType {
	nx := absf(n.Plane.Normal.X)
	ny := absf(n.Plane.Normal.Y)
	nz := absf(n.Plane.Normal.Z)

	switch {
	case nx > 1.0-axisEpsilon && ny < axisEpsilon && nz < axisEpsilon:
		return AxisX
	case ny > 1.0-axisEpsilon && nx < axisEpsilon && nz < axisEpsilon:
		return AxisY
	case nz > 1.0-axisEpsilon && nx < axisEpsilon && ny < axisEpsilon:
		return AxisZ
	default:
		return AxisOther
	}
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Tree is a BSP tree over a flat node array, queried by point containment.
type Tree struct {
	Nodes []Node
}

// New builds a Tree from a flat node array, typically decoded directly from
// a chunk's fixed-size records.
func New(nodes []Node) *Tree {
	return &Tree{Nodes: nodes}
}

// IsEmpty reports whether the tree has no nodes at all.
func (t *Tree) IsEmpty() bool {
	return t == nil || len(t.Nodes) == 0
}

// QueryPoint walks the tree from the root and returns the indices of every
// leaf node a point could fall into. Z-aligned splits visit both children
// unconditionally (height queries need candidates on both sides of a
// horizontal cut); X/Y splits and arbitrary planes pick a single side by
// comparing the point against the plane.
func (t *Tree) QueryPoint(point Vec3) []int {
	if t.IsEmpty() {
		return nil
	}
	var leaves []int
	t.queryRecursive(point, 0, &leaves)
	return leaves
}

func (t *Tree) queryRecursive(point Vec3, nodeIndex int32, leaves *[]int) {
	if nodeIndex < 0 {
		return
	}
	idx := int(nodeIndex)
	if idx >= len(t.Nodes) {
		return
	}

	node := t.Nodes[idx]
	if node.IsLeaf() {
		*leaves = append(*leaves, idx)
		return
	}

	switch node.AxisType() {
	case AxisZ:
		t.queryRecursive(point, node.Children[0], leaves)
		t.queryRecursive(point, node.Children[1], leaves)
	case AxisX:
		t.querySide(point, point.X, node, leaves)
	case AxisY:
		t.querySide(point, point.Y, node, leaves)
	default:
		dist := node.Plane.Normal.X*point.X + node.Plane.Normal.Y*point.Y + node.Plane.Normal.Z*point.Z - node.Plane.Distance
		if dist < 0 {
			t.queryRecursive(point, node.Children[0], leaves)
		} else {
			t.queryRecursive(point, node.Children[1], leaves)
		}
	}
}

func (t *Tree) querySide(point Vec3, component float32, node Node, leaves *[]int) {
	if component < node.Plane.Distance {
		t.queryRecursive(point, node.Children[0], leaves)
	} else {
		t.queryRecursive(point, node.Children[1], leaves)
	}
}

// PickClosestTriangle shoots a ray in the negative-Z direction from point
// and returns the face index of the triangle it hits with the largest
// positive t (i.e. the first surface the ray would reach travelling downward
// from point, since t measures distance along -Z from the origin). indices
// is a flat triangle-index buffer, 3 entries per face.
func (t *Tree) PickClosestTriangle(point Vec3, vertices []Vec3, indices []uint16) (int, bool) {
	leaves := t.QueryPoint(point)

	closestT := float32(math.Inf(-1))
	closestFace := -1

	for _, leafIdx := range leaves {
		node := t.Nodes[leafIdx]
		if node.NumFaces == 0 {
			continue
		}
		for faceOffset := uint32(0); faceOffset < node.NumFaces; faceOffset++ {
			faceIndex := int(node.FirstFace) + int(faceOffset)
			triStart := faceIndex * 3
			if triStart+2 >= len(indices) {
				continue
			}
			i0, i1, i2 := int(indices[triStart]), int(indices[triStart+1]), int(indices[triStart+2])
			if i0 >= len(vertices) || i1 >= len(vertices) || i2 >= len(vertices) {
				continue
			}
			if tVal, ok := rayTriangleIntersectNegZ(point, vertices[i0], vertices[i1], vertices[i2]); ok {
				if tVal > 0 && tVal > closestT {
					closestT = tVal
					closestFace = faceIndex
				}
			}
		}
	}

	if closestFace < 0 {
		return 0, false
	}
	return closestFace, true
}

const rayEpsilon = 0.000001

// rayTriangleIntersectNegZ is the Möller-Trumbore test specialized for a ray
// direction fixed at (0, 0, -1), which collapses several of the general
// algorithm's cross/dot products into simple component arithmetic.
func rayTriangleIntersectNegZ(origin, v0, v1, v2 Vec3) (float32, bool) {
	edge1 := Vec3{v1.X - v0.X, v1.Y - v0.Y, v1.Z - v0.Z}
	edge2 := Vec3{v2.X - v0.X, v2.Y - v0.Y, v2.Z - v0.Z}

	// h = dir x edge2, with dir == (0, 0, -1)
	h := Vec3{edge2.Y, -edge2.X, 0}

	a := edge1.X*h.X + edge1.Y*h.Y + edge1.Z*h.Z
	if a > -rayEpsilon && a < rayEpsilon {
		return 0, false
	}

	f := 1.0 / a
	s := Vec3{origin.X - v0.X, origin.Y - v0.Y, origin.Z - v0.Z}

	u := f * (s.X*h.X + s.Y*h.Y + s.Z*h.Z)
	if u < 0 || u > 1 {
		return 0, false
	}

	q := Vec3{
		s.Y*edge1.Z - s.Z*edge1.Y,
		s.Z*edge1.X - s.X*edge1.Z,
		s.X*edge1.Y - s.Y*edge1.X,
	}

	v := f * (-q.Z)
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := f * (edge2.X*q.X + edge2.Y*q.Y + edge2.Z*q.Z)
	if t > rayEpsilon {
		return t, true
	}
	return 0, false
}

// PointInGroup reports whether point falls inside the group's geometry,
// defined as the ray in -Z hitting any triangle at all.
func PointInGroup(point Vec3, tree *Tree, vertices []Vec3, indices []uint16) bool {
	_, ok := tree.PickClosestTriangle(point, vertices, indices)
	return ok
}
