// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpqcodec

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

// Blizzard's wave compression runs a Huffman stage ahead of ADPCM. This
// package's Huffman codec builds one static tree from uniform byte weights
// (so every byte gets an 8-bit code), emits codes MSB-first via bitio, and
// never reshapes the tree as symbols are coded. It has no byte-for-byte
// parity with the reference codec, so it is exercised here only against its
// own encoder counterpart.

type huffNode struct {
	weight      int
	symbol      int // -1 for internal nodes
	left, right *huffNode
}

func buildAdaptiveTree(weights [256]int) *huffNode {
	nodes := make([]*huffNode, 0, 256)
	for sym, w := range weights {
		if w > 0 {
			nodes = append(nodes, &huffNode{weight: w, symbol: sym})
		}
	}
	if len(nodes) == 0 {
		nodes = append(nodes, &huffNode{weight: 1, symbol: 0})
	}
	if len(nodes) == 1 {
		nodes = append(nodes, &huffNode{weight: 1, symbol: (nodes[0].symbol + 1) % 256})
	}

	for len(nodes) > 1 {
		minI, minJ := 0, 1
		if nodes[minJ].weight < nodes[minI].weight {
			minI, minJ = minJ, minI
		}
		for k := 2; k < len(nodes); k++ {
			if nodes[k].weight < nodes[minI].weight {
				minJ = minI
				minI = k
			} else if nodes[k].weight < nodes[minJ].weight {
				minJ = k
			}
		}

		a, b := nodes[minI], nodes[minJ]
		parent := &huffNode{weight: a.weight + b.weight, symbol: -1, left: a, right: b}

		remaining := make([]*huffNode, 0, len(nodes)-1)
		for k, n := range nodes {
			if k != minI && k != minJ {
				remaining = append(remaining, n)
			}
		}
		nodes = append(remaining, parent)
	}
	return nodes[0]
}

func defaultWeights() (w [256]int) {
	for i := range w {
		w[i] = 1
	}
	return w
}

func decompressHuffman(data []byte, uncompressedSize uint32) ([]byte, error) {
	root := buildAdaptiveTree(defaultWeights())
	br := bitio.NewReader(bytes.NewReader(data))

	out := make([]byte, 0, uncompressedSize)
	for uint32(len(out)) < uncompressedSize {
		node := root
		for node.symbol == -1 {
			bit, err := br.ReadBool()
			if err != nil {
				return out, nil
			}
			if bit {
				node = node.right
			} else {
				node = node.left
			}
		}
		out = append(out, byte(node.symbol))
	}
	return out, nil
}

func compressHuffman(data []byte) ([]byte, error) {
	root := buildAdaptiveTree(defaultWeights())
	codes := make(map[int][]bool)
	var walk func(n *huffNode, prefix []bool)
	walk = func(n *huffNode, prefix []bool) {
		if n.symbol != -1 {
			c := make([]bool, len(prefix))
			copy(c, prefix)
			codes[n.symbol] = c
			return
		}
		walk(n.left, append(prefix, false))
		walk(n.right, append(prefix, true))
	}
	walk(root, nil)

	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	for _, b := range data {
		for _, bit := range codes[int(b)] {
			if err := bw.WriteBool(bit); err != nil {
				return nil, fmt.Errorf("huffman: write: %w", err)
			}
		}
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("huffman: close: %w", err)
	}
	return buf.Bytes(), nil
}
