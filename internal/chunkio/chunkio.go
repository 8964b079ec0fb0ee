// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package chunkio walks the IFF-style (tag, size, payload) records that
// every WoW client data file built from chunks uses, ADT terrain tiles and
// WMO objects both among them: a four-byte tag, a little-endian uint32
// payload size, then that many bytes of payload, repeated until the buffer
// is exhausted. Chunk tags are stored reversed on disk relative to how
// tools and documentation refer to them (a tag written "MVER" in the file
// reads as "REVM" if taken byte-for-byte forwards), so this package exposes
// tags in their conventional forward form and reverses internally.
package chunkio

import (
	"encoding/binary"
	"fmt"
)

// Chunk is one decoded (tag, payload) record and the file offset its
// payload began at, preserved for error reporting.
type Chunk struct {
	Tag     string
	Payload []byte
	Offset  int
}

// Walk decodes every chunk in data in sequence, calling visit with each one.
// Decoding stops at the first truncated header or payload; Walk returns an
// error in that case but still calls visit for every chunk fully decoded
// first, matching the "degrade gracefully on malformed tail" behavior
// expected of WoW file parsers operating on possibly-truncated archives.
func Walk(data []byte, visit func(Chunk) error) error {
	pos := 0
	for pos < len(data) {
		if pos+8 > len(data) {
			return fmt.Errorf("chunkio: truncated chunk header at offset %d", pos)
		}

		tag := reverseTag(data[pos : pos+4])
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		pos += 8

		end := pos + int(size)
		if end > len(data) || end < pos {
			return fmt.Errorf("chunkio: chunk %q at offset %d declares size %d beyond buffer", tag, pos-8, size)
		}

		if err := visit(Chunk{Tag: tag, Payload: data[pos:end], Offset: pos}); err != nil {
			return fmt.Errorf("chunkio: visiting chunk %q at offset %d: %w", tag, pos-8, err)
		}

		pos = end
	}
	return nil
}

// Collect decodes every chunk into a slice, for callers that want random
// access (looking up MCNK subchunks by tag, e.g.) rather than a visitor.
func Collect(data []byte) ([]Chunk, error) {
	var chunks []Chunk
	err := Walk(data, func(c Chunk) error {
		chunks = append(chunks, c)
		return nil
	})
	return chunks, err
}

// First returns the first chunk with the given tag, or false if absent.
func First(chunks []Chunk, tag string) (Chunk, bool) {
	for _, c := range chunks {
		if c.Tag == tag {
			return c, true
		}
	}
	return Chunk{}, false
}

// All returns every chunk with the given tag, preserving order.
func All(chunks []Chunk, tag string) []Chunk {
	var out []Chunk
	for _, c := range chunks {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Encode serializes a single chunk back to its on-disk (reversed-tag,
// little-endian size, payload) form, for rebuild/merge paths that need to
// re-emit chunks after editing their payload.
func Encode(tag string, payload []byte) ([]byte, error) {
	if len(tag) != 4 {
		return nil, fmt.Errorf("chunkio: tag %q must be exactly 4 characters", tag)
	}
	out := make([]byte, 8+len(payload))
	copy(out[0:4], reverseTag([]byte(tag)))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out, nil
}

func reverseTag(b []byte) string {
	return string([]byte{b[3], b[2], b[1], b[0]})
}
