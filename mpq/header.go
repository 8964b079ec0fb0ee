// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magicMPQ      = 0x1A51504D // "MPQ\x1A"
	magicUserData = 0x1B51504D // "MPQ\x1B"

	headerSizeV1 = 0x20
	headerSizeV2 = 0x2C
	headerSizeV3 = 0x2C + 0x18 // V2 header plus the V3 extension block
	headerSizeV4 = 0xD0

	// headerScanStride is the alignment MPQ archives require embedded
	// headers to fall on; many archives are appended to another file (an
	// .exe installer, a patch MPQ chained after another), so the reader
	// scans forward in sector-sized steps rather than assuming offset 0.
	headerScanStride = 0x200
)

// Version identifies which of the four documented header layouts an
// archive uses.
type Version int

const (
	Version1 Version = iota
	Version2
	Version3
	Version4
)

// Header is the decoded MPQ archive header, normalized across all four
// format versions. ArchiveOffset is the file offset the header itself was
// found at: every other offset field in the header and its tables is
// relative to this base, not to the start of the underlying file, since
// archives are routinely embedded inside another container.
type Header struct {
	ArchiveOffset    int64
	Version          Version
	HeaderSize       uint32
	ArchiveSize      uint32
	SectorSizeShift  uint16
	HashTableOffset  uint64
	BlockTableOffset uint64
	HashTableSize    uint32
	BlockTableSize   uint32

	// V2+ (HiBlockTableOffset) and V3+ (the rest)
	HiBlockTableOffset uint64
	ArchiveSize64      uint64
	BetTableOffset     uint64
	HetTableOffset     uint64

	// V4
	HashTableSize64       uint64
	BlockTableSize64       uint64
	HiBlockTableSize64    uint64
	HetTableSize64        uint64
	BetTableSize64        uint64
	RawChunkSize          uint32
	BlockTableMD5         [16]byte
	HashTableMD5          [16]byte
	HiBlockTableMD5       [16]byte
	BetTableMD5           [16]byte
	HetTableMD5           [16]byte
	MPQHeaderMD5          [16]byte
}

// SectorSize returns the decompressed-sector size the header's shift
// implies.
func (h *Header) SectorSize() uint32 {
	return 1 << h.SectorSizeShift
}

// findHeader scans r at headerScanStride intervals for an MPQ header,
// following a "MPQ\x1B" user-data redirect when one is encountered. This is
// the piece the classic single-offset-0 assumption misses: many archives
// (patch MPQs chained behind an installer, Battle.net-style archives with a
// user data header) do not start with their real header at byte 0.
func findHeader(r io.ReadSeeker) (*Header, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &FatalError{Structure: "header", Err: fmt.Errorf("seek end: %w", err)}
	}

	for offset := int64(0); offset+4 <= size; offset += headerScanStride {
		if _, err := r.Seek(offset, io.SeekStart); err != nil {
			return nil, &FatalError{Offset: offset, Structure: "header", Err: err}
		}

		var magic uint32
		if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, &FatalError{Offset: offset, Structure: "header", Err: err}
		}

		switch magic {
		case magicUserData:
			// "MPQ\x1B" user data header: UserDataSize u32, HeaderOffset
			// u32 (where the real archive header begins, relative to this
			// same base), UserDataHeaderSize u32.
			var userDataSize, headerOffset, userDataHeaderSize uint32
			if err := binary.Read(r, binary.LittleEndian, &userDataSize); err != nil {
				return nil, &FatalError{Offset: offset, Structure: "user-data header", Err: err}
			}
			if err := binary.Read(r, binary.LittleEndian, &headerOffset); err != nil {
				return nil, &FatalError{Offset: offset, Structure: "user-data header", Err: err}
			}
			if err := binary.Read(r, binary.LittleEndian, &userDataHeaderSize); err != nil {
				return nil, &FatalError{Offset: offset, Structure: "user-data header", Err: err}
			}
			return readHeaderAt(r, offset+int64(headerOffset))

		case magicMPQ:
			return readHeaderAt(r, offset)
		}
	}

	return nil, &FatalError{Structure: "header", Err: ErrNotAnArchive}
}

// readHeaderAt decodes the archive header assumed to start at base.
func readHeaderAt(r io.ReadSeeker, base int64) (*Header, error) {
	if _, err := r.Seek(base, io.SeekStart); err != nil {
		return nil, &FatalError{Offset: base, Structure: "header", Err: err}
	}

	var raw struct {
		Magic            uint32
		HeaderSize       uint32
		ArchiveSize      uint32
		FormatVersion    uint16
		SectorSizeShift  uint16
		HashTableOffset  uint32
		BlockTableOffset uint32
		HashTableSize    uint32
		BlockTableSize   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, &FatalError{Offset: base, Structure: "header", Err: err}
	}
	if raw.Magic != magicMPQ {
		return nil, &FatalError{Offset: base, Structure: "header", Err: ErrNotAnArchive}
	}
	if raw.FormatVersion > uint16(Version4) {
		return nil, &FatalError{Offset: base, Structure: "header", Err: ErrUnsupportedVer}
	}

	h := &Header{
		ArchiveOffset:    base,
		Version:          Version(raw.FormatVersion),
		HeaderSize:       raw.HeaderSize,
		ArchiveSize:      raw.ArchiveSize,
		SectorSizeShift:  raw.SectorSizeShift,
		HashTableOffset:  uint64(raw.HashTableOffset),
		BlockTableOffset: uint64(raw.BlockTableOffset),
		HashTableSize:    raw.HashTableSize,
		BlockTableSize:   raw.BlockTableSize,
	}

	if h.Version >= Version2 && h.HeaderSize >= headerSizeV2 {
		var ext struct {
			HiBlockTableOffset64 uint64
			HashTableOffsetHi    uint16
			BlockTableOffsetHi   uint16
		}
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, &FatalError{Offset: base, Structure: "extended header", Err: err}
		}
		h.HiBlockTableOffset = ext.HiBlockTableOffset64
		h.HashTableOffset |= uint64(ext.HashTableOffsetHi) << 32
		h.BlockTableOffset |= uint64(ext.BlockTableOffsetHi) << 32
	}

	if h.Version >= Version3 && h.HeaderSize >= headerSizeV3 {
		var v3 struct {
			ArchiveSize64  uint64
			BetTableOffset uint64
			HetTableOffset uint64
		}
		if err := binary.Read(r, binary.LittleEndian, &v3); err != nil {
			return nil, &FatalError{Offset: base, Structure: "v3 header", Err: err}
		}
		h.ArchiveSize64 = v3.ArchiveSize64
		h.BetTableOffset = v3.BetTableOffset
		h.HetTableOffset = v3.HetTableOffset
	}

	if h.Version >= Version4 && h.HeaderSize >= headerSizeV4 {
		var v4 struct {
			HashTableSize64    uint64
			BlockTableSize64   uint64
			HiBlockTableSize64 uint64
			HetTableSize64     uint64
			BetTableSize64     uint64
			RawChunkSize       uint32
			BlockTableMD5      [16]byte
			HashTableMD5       [16]byte
			HiBlockTableMD5    [16]byte
			BetTableMD5        [16]byte
			HetTableMD5        [16]byte
			MPQHeaderMD5       [16]byte
		}
		if err := binary.Read(r, binary.LittleEndian, &v4); err != nil {
			return nil, &FatalError{Offset: base, Structure: "v4 header", Err: err}
		}
		h.HashTableSize64 = v4.HashTableSize64
		h.BlockTableSize64 = v4.BlockTableSize64
		h.HiBlockTableSize64 = v4.HiBlockTableSize64
		h.HetTableSize64 = v4.HetTableSize64
		h.BetTableSize64 = v4.BetTableSize64
		h.RawChunkSize = v4.RawChunkSize
		h.BlockTableMD5 = v4.BlockTableMD5
		h.HashTableMD5 = v4.HashTableMD5
		h.HiBlockTableMD5 = v4.HiBlockTableMD5
		h.BetTableMD5 = v4.BetTableMD5
		h.HetTableMD5 = v4.HetTableMD5
		h.MPQHeaderMD5 = v4.MPQHeaderMD5
	}

	return h, nil
}
