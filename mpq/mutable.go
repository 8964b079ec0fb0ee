// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"github.com/wowemulation-dev/wowarch/internal/mpqcodec"
	"github.com/wowemulation-dev/wowarch/internal/mpqcrypto"
)

// CompressionMethod selects how AddFileWithOptions compresses a file's
// sector data. zlib is the only method this package's write side exercises
// (see mpqcodec.CompressZlib); CompressionNone stores sectors raw.
type CompressionMethod int

const (
	CompressionZlib CompressionMethod = iota
	CompressionNone
)

// AddFileOptions mirrors the add_file options contract: the compression
// method, encryption (and its fix-key variant), and locale a written file
// is tagged with.
type AddFileOptions struct {
	Compression CompressionMethod
	Encrypted   bool
	FixKey      bool
	Locale      uint16
	// GenerateCRC computes a per-sector Adler-32 trailer and marks
	// FlagSectorCRC, letting a reader detect sector corruption.
	GenerateCRC bool
}

// pendingFile is a staged add, overwriting any same-named existing entry at
// Flush time.
type pendingFile struct {
	name           string
	data           []byte
	options        AddFileOptions
	isPatchFile    bool
	isDeleteMarker bool
}

// MutableArchive accumulates add/remove/rename operations against either a
// brand-new or an already-open archive and commits them all at once on
// Flush, rewriting the archive atomically via a temp file plus rename. MPQ
// has no in-place append story once the hash/block tables are encrypted at
// known offsets, so every mutation path in this package works this way,
// matching how the format is built in practice.
type MutableArchive struct {
	source     *Archive // nil for a brand-new archive
	path       string
	version    Version
	pending    []pendingFile
	removed    map[string]bool
	sectorSize uint32
}

// NewArchive stages a brand-new archive at path, created on the first Flush.
func NewArchive(path string, version Version) *MutableArchive {
	return &MutableArchive{
		path:       path,
		version:    version,
		removed:    make(map[string]bool),
		sectorSize: 1 << 12,
	}
}

// OpenForModify opens path for reading and staged modification.
func OpenForModify(path string) (*MutableArchive, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &MutableArchive{
		source:     src,
		path:       path,
		version:    src.header.Version,
		removed:    make(map[string]bool),
		sectorSize: src.sectorSize,
	}, nil
}

// AddFile stages name for addition with contents data, compressed with
// zlib and split into sectors when larger than one sector.
func (m *MutableArchive) AddFile(name string, data []byte) {
	m.AddFileWithOptions(name, data, AddFileOptions{})
}

// AddFileWithOptions stages name as AddFile does, honoring opts's
// compression method, encryption, fix-key, locale, and sector-CRC
// generation. A file larger than one sector is striped into real
// multi-sector layout (a possibly-encrypted offset table followed by
// independently compressed/encrypted/CRC'd sectors); one no larger than a
// sector is written as a single unit.
func (m *MutableArchive) AddFileWithOptions(name string, data []byte, opts AddFileOptions) {
	name = strings.ReplaceAll(name, "/", "\\")
	delete(m.removed, name)
	m.pending = append(m.pending, pendingFile{name: name, data: data, options: opts})
}

// AddPatchFile stages name carrying the patch-file flag, as used by a
// patch-chain's incremental MPQs.
func (m *MutableArchive) AddPatchFile(name string, data []byte) {
	name = strings.ReplaceAll(name, "/", "\\")
	delete(m.removed, name)
	m.pending = append(m.pending, pendingFile{name: name, data: data, isPatchFile: true})
}

// AddDeleteMarker stages a deletion marker for name: an entry with no data
// and FlagDeleteMarker set, the mechanism a patch MPQ uses to remove a file
// a base archive provided.
func (m *MutableArchive) AddDeleteMarker(name string) {
	name = strings.ReplaceAll(name, "/", "\\")
	delete(m.removed, name)
	m.pending = append(m.pending, pendingFile{name: name, isDeleteMarker: true})
}

// RemoveFile stages name for removal: it is simply omitted from the next
// Flush's rewritten archive (a hard delete, not a delete-marker patch entry).
func (m *MutableArchive) RemoveFile(name string) {
	name = strings.ReplaceAll(name, "/", "\\")
	m.removed[name] = true
	for i := len(m.pending) - 1; i >= 0; i-- {
		if m.pending[i].name == name {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
		}
	}
}

// RenameFile stages a rename by reading oldName's current bytes and options
// (from either staged or source data) and re-adding them under newName,
// then removing oldName.
func (m *MutableArchive) RenameFile(oldName, newName string) error {
	oldName = strings.ReplaceAll(oldName, "/", "\\")
	newName = strings.ReplaceAll(newName, "/", "\\")

	for _, pf := range m.pending {
		if pf.name == oldName {
			m.RemoveFile(oldName)
			m.AddFileWithOptions(newName, pf.data, pf.options)
			return nil
		}
	}

	if m.source == nil {
		return fmt.Errorf("mpq: rename %q: not found", oldName)
	}
	data, err := m.source.ReadFile(oldName)
	if err != nil {
		return fmt.Errorf("mpq: rename %q: %w", oldName, err)
	}
	opts, err := m.source.fileOptions(oldName)
	if err != nil {
		return fmt.Errorf("mpq: rename %q: %w", oldName, err)
	}
	m.RemoveFile(oldName)
	m.AddFileWithOptions(newName, data, opts)
	return nil
}

// Flush writes the complete archive (every unremoved source file plus every
// staged change) to path atomically via a temp file and rename.
func (m *MutableArchive) Flush() error {
	names, existing, err := m.collectAllNames()
	if err != nil {
		return err
	}

	if len(names) > 0 {
		var listing []byte
		for _, n := range names {
			listing = append(listing, n...)
			listing = append(listing, '\r', '\n')
		}
		existing.pendingByName["(listfile)"] = pendingFile{name: "(listfile)", data: listing}
		names = append(names, "(listfile)")
	}

	dir := filepath.Dir(m.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "mpq_*.tmp")
	if err != nil {
		return fmt.Errorf("mpq: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hashSize := nextPowerOf2(uint32(len(names))*2 + 1)
	if hashSize < 16 {
		hashSize = 16
	}
	hashTable := make([]HashEntry, hashSize)
	for i := range hashTable {
		hashTable[i] = HashEntry{HashA: hashEmpty, HashB: hashEmpty, Locale: 0xFFFF, Platform: 0xFFFF, BlockIndex: hashEmpty}
	}
	blockTable := make([]BlockEntry, 0, len(names))

	headerSize := uint32(headerSizeV1)
	if m.version >= Version2 {
		headerSize = headerSizeV2
	}
	if _, err := tmp.Seek(int64(headerSize), 0); err != nil {
		tmp.Close()
		return fmt.Errorf("mpq: seek past header: %w", err)
	}

	attrs := newAttributesBuilder(len(names) + 1)

	for _, name := range names {
		var data []byte
		var opts AddFileOptions
		var extraFlags uint32

		if pf, ok := existing.pendingByName[name]; ok {
			if pf.isDeleteMarker {
				if err := m.writeBlockEntry(hashTable, &blockTable, name, 0, 0, 0, FlagExists|FlagDeleteMarker); err != nil {
					tmp.Close()
					return err
				}
				continue
			}
			data = pf.data
			opts = pf.options
			if pf.isPatchFile {
				extraFlags |= FlagPatchFile
			}
		} else {
			data, err = m.source.ReadFile(name)
			if err != nil {
				tmp.Close()
				return fmt.Errorf("mpq: carry forward %q: %w", name, err)
			}
			opts, err = m.source.fileOptions(name)
			if err != nil {
				tmp.Close()
				return fmt.Errorf("mpq: carry forward %q: %w", name, err)
			}
		}

		block, err := m.writeFileData(tmp, name, data, opts, extraFlags)
		if err != nil {
			tmp.Close()
			return err
		}

		attrs.setEntry(len(blockTable), data)
		if err := addToHashTable(hashTable, name, uint32(len(blockTable)), opts.Locale); err != nil {
			tmp.Close()
			return fmt.Errorf("mpq: hash table full adding %q: %w", name, err)
		}
		blockTable = append(blockTable, block)
	}

	if attrData := attrs.build(); attrData != nil {
		block, err := m.writeFileData(tmp, "(attributes)", attrData, AddFileOptions{}, 0)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("mpq: write (attributes): %w", err)
		}
		if err := addToHashTable(hashTable, "(attributes)", uint32(len(blockTable)), 0); err != nil {
			tmp.Close()
			return fmt.Errorf("mpq: hash table full adding (attributes): %w", err)
		}
		blockTable = append(blockTable, block)
	}

	hashTablePos, _ := tmp.Seek(0, 1)
	if err := writeEncryptedHashTable(tmp, hashTable); err != nil {
		tmp.Close()
		return err
	}
	blockTablePos, _ := tmp.Seek(0, 1)
	if err := writeEncryptedBlockTable(tmp, blockTable); err != nil {
		tmp.Close()
		return err
	}

	archiveSize, _ := tmp.Seek(0, 1)
	if err := writeHeader(tmp, m.version, uint32(archiveSize), uint32(hashTablePos), uint32(blockTablePos), hashSize, uint32(len(blockTable)), m.sectorSize); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mpq: close temp file: %w", err)
	}

	if m.source != nil {
		m.source.Close()
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("mpq: rename into place: %w", err)
	}
	return nil
}

// writeFileData writes data to tmp at the current offset honoring opts,
// returning the BlockEntry to record for it. A file no larger than one
// sector is written single-unit; a larger one gets a real sector offset
// table with each sector independently compressed, CRC'd, and encrypted,
// mirroring Archive.decodeSectors's read-side layout exactly.
func (m *MutableArchive) writeFileData(tmp *os.File, name string, data []byte, opts AddFileOptions, extraFlags uint32) (BlockEntry, error) {
	pos, err := tmp.Seek(0, 1)
	if err != nil {
		return BlockEntry{}, fmt.Errorf("mpq: seek before %q: %w", name, err)
	}

	flags := FlagExists | extraFlags
	var key uint32
	if opts.Encrypted {
		flags |= FlagEncrypted
		if opts.FixKey {
			flags |= FlagFixKey
		}
		key = mpqcrypto.FileKey(name, uint64(pos), uint32(len(data)), opts.FixKey)
	}
	if opts.GenerateCRC {
		flags |= FlagSectorCRC
	}

	var compressedSize uint32
	if uint32(len(data)) <= m.sectorSize {
		flags |= FlagSingleUnit

		encoded, compressed, err := encodeSector(data, opts.Compression)
		if err != nil {
			return BlockEntry{}, fmt.Errorf("mpq: compress %q: %w", name, err)
		}
		if compressed {
			flags |= FlagCompress
		}
		if opts.GenerateCRC {
			encoded = appendSectorCRC(encoded, data)
		}
		if opts.Encrypted {
			encoded = append([]byte(nil), encoded...)
			mpqcrypto.EncryptBytes(encoded, key)
		}
		if _, err := tmp.Write(encoded); err != nil {
			return BlockEntry{}, fmt.Errorf("mpq: write %q: %w", name, err)
		}
		compressedSize = uint32(len(encoded))
	} else {
		size, anyCompressed, err := m.writeMultiSector(tmp, data, opts, key)
		if err != nil {
			return BlockEntry{}, fmt.Errorf("mpq: write %q: %w", name, err)
		}
		if anyCompressed {
			flags |= FlagCompress
		}
		compressedSize = size
	}

	return BlockEntry{FilePos: uint64(pos), CompressedSize: compressedSize, FileSize: uint32(len(data)), Flags: flags}, nil
}

// writeMultiSector writes data as a sector offset table followed by each
// sector's encoded bytes, encrypting the offset table with key-1 and
// sector i with key+i when opts.Encrypted, matching
// Archive.decodeSectors's expectations exactly. It returns the total bytes
// written and whether any sector actually used compression.
func (m *MutableArchive) writeMultiSector(tmp *os.File, data []byte, opts AddFileOptions, key uint32) (uint32, bool, error) {
	sectorSize := m.sectorSize
	numSectors := (uint32(len(data)) + sectorSize - 1) / sectorSize

	offsets := make([]uint32, numSectors+1)
	offsets[0] = (numSectors + 1) * 4
	sectors := make([][]byte, numSectors)
	anyCompressed := false

	for i := uint32(0); i < numSectors; i++ {
		start := i * sectorSize
		end := start + sectorSize
		if end > uint32(len(data)) {
			end = uint32(len(data))
		}
		plain := data[start:end]

		encoded, compressed, err := encodeSector(plain, opts.Compression)
		if err != nil {
			return 0, false, fmt.Errorf("sector %d: %w", i, err)
		}
		if compressed {
			anyCompressed = true
		}
		if opts.GenerateCRC {
			encoded = appendSectorCRC(encoded, plain)
		}
		if opts.Encrypted {
			encoded = append([]byte(nil), encoded...)
			mpqcrypto.EncryptBytes(encoded, key+i)
		}

		sectors[i] = encoded
		offsets[i+1] = offsets[i] + uint32(len(encoded))
	}

	offsetBytes := make([]byte, len(offsets)*4)
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(offsetBytes[i*4:], off)
	}
	if opts.Encrypted {
		mpqcrypto.EncryptBytes(offsetBytes, key-1)
	}
	if _, err := tmp.Write(offsetBytes); err != nil {
		return 0, false, fmt.Errorf("write sector offsets: %w", err)
	}
	for i, sector := range sectors {
		if _, err := tmp.Write(sector); err != nil {
			return 0, false, fmt.Errorf("write sector %d: %w", i, err)
		}
	}

	return offsets[len(offsets)-1], anyCompressed, nil
}

// encodeSector compresses plain per method, falling back to storing it raw
// when compression doesn't shrink it (or wasn't requested): a per-sector
// decision, since Archive.decodeSectors infers whether a given sector was
// stored compressed purely from its encoded length against the logical
// sector size.
func encodeSector(plain []byte, method CompressionMethod) (encoded []byte, compressed bool, err error) {
	if method == CompressionNone || len(plain) == 0 {
		return plain, false, nil
	}
	packed, err := mpqcodec.CompressZlib(plain)
	if err != nil {
		return nil, false, err
	}
	if len(packed) < len(plain) {
		return packed, true, nil
	}
	return plain, false, nil
}

// appendSectorCRC appends plain's Adler-32 as a little-endian trailer after
// encoded, the checksum Archive.decodeSectors/decodeSingleUnit verify
// against the decompressed sector.
func appendSectorCRC(encoded, plain []byte) []byte {
	trailer := make([]byte, 4)
	binary.LittleEndian.PutUint32(trailer, adler32(plain))
	return append(encoded, trailer...)
}

type nameSources struct {
	pendingByName map[string]pendingFile
}

func (m *MutableArchive) collectAllNames() ([]string, nameSources, error) {
	ns := nameSources{pendingByName: make(map[string]pendingFile)}
	seen := make(map[string]bool)
	var names []string

	if m.source != nil {
		existingNames, _ := m.source.ListFiles()
		for _, n := range existingNames {
			n = strings.ReplaceAll(n, "/", "\\")
			if m.removed[n] {
				continue
			}
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}

	for _, pf := range m.pending {
		ns.pendingByName[pf.name] = pf
		if !seen[pf.name] {
			seen[pf.name] = true
			names = append(names, pf.name)
		}
	}

	return names, ns, nil
}

func (m *MutableArchive) writeBlockEntry(hashTable []HashEntry, blockTable *[]BlockEntry, name string, pos uint64, size uint32, locale uint16, flags uint32) error {
	if err := addToHashTable(hashTable, name, uint32(len(*blockTable)), locale); err != nil {
		return err
	}
	*blockTable = append(*blockTable, BlockEntry{FilePos: pos, CompressedSize: 0, FileSize: size, Flags: flags})
	return nil
}

func addToHashTable(hashTable []HashEntry, name string, blockIndex uint32, locale uint16) error {
	mask := uint32(len(hashTable) - 1)
	start := mpqcrypto.HashString(name, mpqcrypto.HashTableOffset) & mask
	hashA := mpqcrypto.HashString(name, mpqcrypto.HashNameA)
	hashB := mpqcrypto.HashString(name, mpqcrypto.HashNameB)

	for i := uint32(0); i < uint32(len(hashTable)); i++ {
		idx := (start + i) & mask
		if hashTable[idx].BlockIndex == hashEmpty || hashTable[idx].BlockIndex == hashDeleted {
			hashTable[idx] = HashEntry{HashA: hashA, HashB: hashB, Locale: locale, Platform: 0, BlockIndex: blockIndex}
			return nil
		}
	}
	return fmt.Errorf("hash table full")
}

func writeEncryptedHashTable(w *os.File, hashTable []HashEntry) error {
	raw := make([]uint32, len(hashTable)*4)
	for i, e := range hashTable {
		raw[i*4] = e.HashA
		raw[i*4+1] = e.HashB
		raw[i*4+2] = uint32(e.Locale) | uint32(e.Platform)<<16
		raw[i*4+3] = e.BlockIndex
	}
	mpqcrypto.EncryptBlock(raw, mpqcrypto.HashString("(hash table)", mpqcrypto.HashFileKey))
	return binary.Write(w, binary.LittleEndian, raw)
}

func writeEncryptedBlockTable(w *os.File, blockTable []BlockEntry) error {
	raw := make([]uint32, len(blockTable)*4)
	for i, e := range blockTable {
		raw[i*4] = uint32(e.FilePos)
		raw[i*4+1] = e.CompressedSize
		raw[i*4+2] = e.FileSize
		raw[i*4+3] = e.Flags
	}
	mpqcrypto.EncryptBlock(raw, mpqcrypto.HashString("(block table)", mpqcrypto.HashFileKey))
	return binary.Write(w, binary.LittleEndian, raw)
}

func writeHeader(w *os.File, version Version, archiveSize, hashTableOffset, blockTableOffset, hashTableSize, blockTableSize, sectorSize uint32) error {
	if _, err := w.Seek(0, 0); err != nil {
		return err
	}

	hs := uint32(headerSizeV1)
	fv := uint16(0)
	if version >= Version2 {
		hs = headerSizeV2
		fv = 1
	}

	base := struct {
		Magic            uint32
		HeaderSize       uint32
		ArchiveSize      uint32
		FormatVersion    uint16
		SectorSizeShift  uint16
		HashTableOffset  uint32
		BlockTableOffset uint32
		HashTableSize    uint32
		BlockTableSize   uint32
	}{
		Magic:            magicMPQ,
		HeaderSize:       hs,
		ArchiveSize:      archiveSize,
		FormatVersion:    fv,
		SectorSizeShift:  uint16(sectorSizeShift(sectorSize)),
		HashTableOffset:  hashTableOffset,
		BlockTableOffset: blockTableOffset,
		HashTableSize:    hashTableSize,
		BlockTableSize:   blockTableSize,
	}
	if err := binary.Write(w, binary.LittleEndian, &base); err != nil {
		return err
	}
	if version >= Version2 {
		ext := struct {
			HiBlockTableOffset64 uint64
			HashTableOffsetHi    uint16
			BlockTableOffsetHi   uint16
		}{}
		if err := binary.Write(w, binary.LittleEndian, &ext); err != nil {
			return err
		}
	}
	return nil
}

func nextPowerOf2(n uint32) uint32 {
	p := uint32(1)
	for p < n {
		p <<= 1
	}
	return p
}

// sectorSizeShift returns the power of 2 that produces sectorSize, matching
// Header.SectorSize's 1<<shift interpretation. A non-power-of-2 size rounds
// down to the nearest one below it.
func sectorSizeShift(sectorSize uint32) int {
	if sectorSize == 0 {
		return 12
	}
	return bits.Len32(sectorSize) - 1
}
