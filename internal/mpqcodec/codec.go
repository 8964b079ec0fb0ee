// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package mpqcodec multiplexes the compression methods a sector's leading
// method byte can name, applying them in the fixed order StormLib-compatible
// archives use: sparse, then Huffman, then one of zlib/bzip2/lzma/pkware,
// then ADPCM. Decompression reverses that order.
package mpqcodec

import (
	"bytes"
	"compress/bzip2"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Method bits, as packed into a sector's leading compression byte. A sector
// may combine several (e.g. Huffman+ADPCM for compressed wave audio).
const (
	MethodHuffman   = 0x01
	MethodZlib      = 0x02
	MethodPKWare    = 0x08
	MethodBzip2     = 0x10
	MethodSparse    = 0x20
	MethodADPCMMono = 0x40
	MethodADPCM     = 0x80
	MethodLZMA      = 0x12
)

// MaxExpansionRatio bounds how large a decompressed sector may be relative
// to its on-disk compressed size before Decompress refuses to continue, to
// avoid a hostile archive requesting an unbounded allocation (a compression
// bomb). Genuine MPQ sectors are bounded in practice to SectorSize (commonly
// 4096-65536), so any multiplier far beyond typical compression ratios is a
// sign of a corrupt or adversarial size field.
const MaxExpansionRatio = 4096

// Decompress reverses the compression chain a sector's leading method byte
// describes, validating the requested uncompressed size against
// MaxExpansionRatio before allocating output buffers.
func Decompress(data []byte, uncompressedSize uint32) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("mpqcodec: empty compressed data")
	}

	if uint64(uncompressedSize) > uint64(len(data))*MaxExpansionRatio && len(data) > 0 {
		return nil, fmt.Errorf("mpqcodec: refusing to expand %d bytes into %d bytes (exceeds %dx ratio)",
			len(data), uncompressedSize, MaxExpansionRatio)
	}

	method := data[0]
	result := data[1:]

	// Single-method fast paths, matching what most archives actually emit.
	switch method {
	case MethodZlib:
		return decompressZlib(result, uncompressedSize)
	case MethodBzip2:
		return decompressBzip2(result, uncompressedSize)
	case MethodLZMA:
		return decompressLZMA(result, uncompressedSize)
	case MethodPKWare:
		return decompressPKWare(result, uncompressedSize)
	case MethodSparse:
		return decompressSparse(result, uncompressedSize)
	case MethodHuffman:
		return decompressHuffman(result, uncompressedSize)
	case MethodADPCMMono:
		return decompressADPCM(result, 1, uncompressedSize)
	case MethodADPCM:
		return decompressADPCM(result, 2, uncompressedSize)
	}

	// Multi-method: undo in reverse of the documented compression order.
	var err error

	if method&MethodADPCM != 0 {
		result, err = decompressADPCM(result, 2, uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("mpqcodec: adpcm stereo stage: %w", err)
		}
	} else if method&MethodADPCMMono != 0 {
		result, err = decompressADPCM(result, 1, uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("mpqcodec: adpcm mono stage: %w", err)
		}
	}

	if method&MethodBzip2 != 0 {
		result, err = decompressBzip2(result, uncompressedSize)
	} else if method&MethodZlib != 0 {
		result, err = decompressZlib(result, uncompressedSize)
	} else if method&MethodLZMA != 0 && method != MethodLZMA {
		result, err = decompressLZMA(result, uncompressedSize)
	} else if method&MethodPKWare != 0 {
		result, err = decompressPKWare(result, uncompressedSize)
	}
	if err != nil {
		return nil, fmt.Errorf("mpqcodec: primary stage: %w", err)
	}

	if method&MethodHuffman != 0 {
		result, err = decompressHuffman(result, uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("mpqcodec: huffman stage: %w", err)
		}
	}

	if method&MethodSparse != 0 {
		result, err = decompressSparse(result, uncompressedSize)
		if err != nil {
			return nil, fmt.Errorf("mpqcodec: sparse stage: %w", err)
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("mpqcodec: unsupported or empty method byte 0x%02X", method)
	}

	return result, nil
}

// CompressZlib is the only exported encoder in this package and the only
// codec archive writes use. bzip2 and LZMA are decode-only; the sparse,
// PKWARE, Huffman and ADPCM encoders are unexported and exercised only by
// this package's tests.
func CompressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(MethodZlib)

	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("mpqcodec: new zlib writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("mpqcodec: zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("mpqcodec: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressZlib(data []byte, uncompressedSize uint32) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib reader: %w", err)
	}
	defer r.Close()

	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("zlib read: %w", err)
	}
	return out[:n], nil
}

// decompressBzip2 is read-only: compress/bzip2 in the standard library never
// shipped an encoder, and no archive-producing path in this module emits
// bzip2 sectors as a result. Archives that already carry bzip2 sectors still
// read correctly.
func decompressBzip2(data []byte, uncompressedSize uint32) ([]byte, error) {
	r := bzip2.NewReader(bytes.NewReader(data))
	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("bzip2 read: %w", err)
	}
	return out[:n], nil
}

func decompressLZMA(data []byte, uncompressedSize uint32) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("lzma reader: %w", err)
	}
	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("lzma read: %w", err)
	}
	return out[:n], nil
}
