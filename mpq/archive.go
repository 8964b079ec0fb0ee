// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

// Package mpq reads, mutates, and rebuilds MPQ archives: the content-addressed,
// optionally encrypted and compressed container format WoW client data ships
// in, across all four documented header versions and both its classic
// (hash/block table) and extended (HET/BET) file-location schemes.
package mpq

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wowemulation-dev/wowarch/internal/mpqcodec"
	"github.com/wowemulation-dev/wowarch/internal/mpqcrypto"
	"go.uber.org/zap"
)

// Archive is a read-only handle onto an opened MPQ file. Use MutableArchive
// to add, remove, or rename files.
type Archive struct {
	file       *os.File
	path       string
	header     *Header
	hashTable  []HashEntry
	blockTable []BlockEntry
	het        *hetTable
	bet        *betTable
	sectorSize uint32
	log        *zap.Logger
}

// Open opens path as an MPQ archive for reading, scanning for an embedded
// header and decoding whichever of the classic or extended file tables the
// header describes.
func Open(path string) (*Archive, error) {
	return OpenWithLogger(path, zap.NewNop())
}

// OpenWithLogger is Open with an explicit logger for warning-kind
// conditions encountered while reading files (a sector checksum mismatch);
// pass zap.NewNop() to silence them. Table decoding does not log, and BET
// collision hashes are not checked.
func OpenWithLogger(path string, log *zap.Logger) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mpq: open %s: %w", path, err)
	}

	header, err := findHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	a := &Archive{file: f, path: path, header: header, sectorSize: header.SectorSize(), log: log}

	if header.HashTableOffset != 0 && header.HashTableSize != 0 {
		a.hashTable, err = readHashTable(f, header)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	if header.BlockTableOffset != 0 && header.BlockTableSize != 0 {
		a.blockTable, err = readBlockTable(f, header)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	if header.Version >= Version3 {
		a.het, err = readHetTable(f, header)
		if err != nil {
			f.Close()
			return nil, err
		}
		a.bet, err = readBetTable(f, header)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.file.Close()
}

// Header returns the archive's decoded header.
func (a *Archive) Header() *Header { return a.header }

// findBlock resolves name to its block-table entry, preferring the extended
// HET/BET tables when present and falling back to the classic hash table.
func (a *Archive) findBlock(name string) (BlockEntry, error) {
	name = strings.ReplaceAll(name, "/", "\\")

	if a.het != nil {
		if betIdx, ok := a.het.lookup(name); ok {
			entry, err := a.bet.entryAt(betIdx)
			if err != nil {
				return BlockEntry{}, &LocalError{Path: name, Structure: "bet table", Err: err}
			}
			return entry, nil
		}
	}

	if blockIdx, _, ok := findClassic(a.hashTable, name, 0); ok {
		if int(blockIdx) >= len(a.blockTable) {
			return BlockEntry{}, &LocalError{Path: name, Structure: "block table", Err: fmt.Errorf("block index %d out of range", blockIdx)}
		}
		return a.blockTable[blockIdx], nil
	}

	return BlockEntry{}, ErrFileNotFound
}

// FileLocale reports the locale stored against name's classic hash-table
// entry (0 = neutral). HET/BET-located files have no locale concept, so
// this always returns 0 for archives where the lookup only resolves there.
func (a *Archive) FileLocale(name string) uint16 {
	name = strings.ReplaceAll(name, "/", "\\")
	_, locale, ok := findClassic(a.hashTable, name, 0)
	if !ok {
		return 0
	}
	return locale
}

// fileOptions reconstructs the AddFileOptions that reproduce name's current
// on-disk representation as closely as this package's write side allows:
// the original method byte is not preserved when it was something other
// than zlib (e.g. bzip2 or LZMA), since CompressZlib is the only codec this
// package writes.
func (a *Archive) fileOptions(name string) (AddFileOptions, error) {
	block, err := a.findBlock(name)
	if err != nil {
		return AddFileOptions{}, err
	}

	opts := AddFileOptions{
		Encrypted:   block.Flags&FlagEncrypted != 0,
		FixKey:      block.Flags&FlagFixKey != 0,
		Locale:      a.FileLocale(name),
		GenerateCRC: block.Flags&FlagSectorCRC != 0,
	}
	if block.Flags&FlagCompress != 0 {
		opts.Compression = CompressionZlib
	} else {
		opts.Compression = CompressionNone
	}
	return opts, nil
}

// HasFile reports whether name exists in the archive and is not a deletion
// marker.
func (a *Archive) HasFile(name string) bool {
	b, err := a.findBlock(name)
	if err != nil {
		return false
	}
	return b.Flags&FlagExists != 0 && b.Flags&FlagDeleteMarker == 0
}

// ReadFile returns the decompressed, decrypted contents of name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	block, err := a.findBlock(name)
	if err != nil {
		return nil, err
	}
	if block.Flags&FlagDeleteMarker != 0 {
		return nil, &LocalError{Path: name, Structure: "block table", Err: ErrDeleted}
	}

	if _, err := a.file.Seek(a.header.ArchiveOffset+int64(block.FilePos), io.SeekStart); err != nil {
		return nil, &LocalError{Path: name, Structure: "file data", Err: err}
	}

	raw := make([]byte, block.CompressedSize)
	if _, err := io.ReadFull(a.file, raw); err != nil {
		return nil, &LocalError{Path: name, Structure: "file data", Err: err}
	}

	key := uint32(0)
	if block.Flags&FlagEncrypted != 0 {
		key = mpqcrypto.FileKey(name, block.FilePos, block.FileSize, block.Flags&FlagFixKey != 0)
	}

	switch {
	case block.Flags&FlagSingleUnit != 0:
		return a.decodeSingleUnit(name, raw, block, key)
	default:
		return a.decodeSectors(name, raw, block, key)
	}
}

// ExtractFile reads name out of the archive and writes it to destPath.
func (a *Archive) ExtractFile(name, destPath string) error {
	data, err := a.ReadFile(name)
	if err != nil {
		return err
	}
	return os.WriteFile(destPath, data, 0o644)
}

func (a *Archive) decodeSingleUnit(name string, data []byte, block BlockEntry, key uint32) ([]byte, error) {
	if block.Flags&FlagEncrypted != 0 {
		mpqcrypto.DecryptBytes(data, key)
	}

	if block.Flags&FlagSectorCRC != 0 {
		if len(data) < 4 {
			return nil, &LocalError{Path: name, Structure: "sector crc", Err: fmt.Errorf("missing trailing crc")}
		}
		payload := data[:len(data)-4]
		expected := binary.LittleEndian.Uint32(data[len(data)-4:])
		if block.Flags&FlagCompress != 0 && uint32(len(payload)) < block.FileSize {
			out, err := mpqcodec.Decompress(payload, block.FileSize)
			if err != nil {
				return nil, &LocalError{Path: name, Structure: "compression", Err: err}
			}
			if got := adler32(out); got != expected {
				a.log.Warn("sector crc mismatch", zap.String("file", name))
			}
			return out, nil
		}
		if got := adler32(payload); got != expected {
			a.log.Warn("sector crc mismatch", zap.String("file", name))
		}
		return payload, nil
	}

	if block.Flags&FlagCompress != 0 && uint32(len(data)) < block.FileSize {
		out, err := mpqcodec.Decompress(data, block.FileSize)
		if err != nil {
			return nil, &LocalError{Path: name, Structure: "compression", Err: err}
		}
		return out, nil
	}
	return data, nil
}

func (a *Archive) decodeSectors(name string, data []byte, block BlockEntry, key uint32) ([]byte, error) {
	numSectors := (block.FileSize + a.sectorSize - 1) / a.sectorSize
	offsetTableSize := (numSectors + 1) * 4
	if uint32(len(data)) < offsetTableSize {
		return nil, &LocalError{Path: name, Structure: "sector offset table", Err: fmt.Errorf("truncated")}
	}

	offsets := make([]uint32, numSectors+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if block.Flags&FlagEncrypted != 0 {
		mpqcrypto.DecryptBlock(offsets, key-1)
	}

	hasSectorCRC := block.Flags&FlagSectorCRC != 0

	result := make([]byte, 0, block.FileSize)
	for i := uint32(0); i < numSectors; i++ {
		start, end := offsets[i], offsets[i+1]
		if start > uint32(len(data)) || end > uint32(len(data)) || end < start {
			return nil, &LocalError{Path: name, Structure: "sector offset table", Err: fmt.Errorf("sector %d has invalid bounds %d-%d", i, start, end)}
		}

		sector := append([]byte(nil), data[start:end]...)
		if block.Flags&FlagEncrypted != 0 {
			mpqcrypto.DecryptBytes(sector, key+i)
		}

		var expectedCRC uint32
		if hasSectorCRC {
			if len(sector) < 4 {
				return nil, &LocalError{Path: name, Structure: "sector crc", Err: fmt.Errorf("sector %d missing trailing crc", i)}
			}
			expectedCRC = binary.LittleEndian.Uint32(sector[len(sector)-4:])
			sector = sector[:len(sector)-4]
		}

		expected := a.sectorSize
		if i == numSectors-1 {
			expected = block.FileSize - i*a.sectorSize
		}

		var out []byte
		if block.Flags&FlagCompress != 0 && uint32(len(sector)) < expected {
			decoded, err := mpqcodec.Decompress(sector, expected)
			if err != nil {
				return nil, &LocalError{Path: name, Structure: "compression", Err: fmt.Errorf("sector %d: %w", i, err)}
			}
			out = decoded
		} else {
			out = sector
		}

		if hasSectorCRC {
			if got := adler32(out); got != expectedCRC {
				a.log.Warn("sector crc mismatch", zap.String("file", name), zap.Uint32("sector", i))
			}
		}

		result = append(result, out...)
	}

	return result, nil
}
