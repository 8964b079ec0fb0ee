// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import "encoding/binary"

const (
	attributesVersion  = 100
	attributesFlagCRC32 = 0x00000001
)

// attributesBuilder accumulates the per-file CRC-32 array MutableArchive
// writes out as the special "(attributes)" file, in block-table order.
type attributesBuilder struct {
	crc32 []uint32
}

func newAttributesBuilder(fileCount int) *attributesBuilder {
	return &attributesBuilder{crc32: make([]uint32, fileCount)}
}

func (a *attributesBuilder) setEntry(index int, data []byte) {
	if index < 0 || index >= len(a.crc32) {
		return
	}
	if data != nil {
		a.crc32[index] = crc32Checksum(data)
	}
}

func (a *attributesBuilder) build() []byte {
	if len(a.crc32) == 0 {
		return nil
	}
	out := make([]byte, 8+len(a.crc32)*4)
	binary.LittleEndian.PutUint32(out[0:4], attributesVersion)
	binary.LittleEndian.PutUint32(out[4:8], attributesFlagCRC32)
	offset := 8
	for _, v := range a.crc32 {
		binary.LittleEndian.PutUint32(out[offset:offset+4], v)
		offset += 4
	}
	return out
}

// Attributes is the decoded contents of an archive's "(attributes)" file:
// a per-file CRC-32 array in block-table order, used to spot-check file
// integrity without a full decompress-and-compare.
type Attributes struct {
	Version uint32
	Flags   uint32
	CRC32   []uint32
}

// ReadAttributes decodes the archive's "(attributes)" special file, if
// present.
func (a *Archive) ReadAttributes() (*Attributes, error) {
	data, err := a.ReadFile("(attributes)")
	if err != nil {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, &LocalError{Path: "(attributes)", Structure: "attributes", Err: errTruncated}
	}

	at := &Attributes{
		Version: binary.LittleEndian.Uint32(data[0:4]),
		Flags:   binary.LittleEndian.Uint32(data[4:8]),
	}
	if at.Flags&attributesFlagCRC32 != 0 {
		count := (len(data) - 8) / 4
		at.CRC32 = make([]uint32, count)
		for i := 0; i < count; i++ {
			at.CRC32[i] = binary.LittleEndian.Uint32(data[8+i*4:])
		}
	}
	return at, nil
}

var errTruncated = &Warning{Structure: "attributes", Message: "file shorter than fixed header"}
