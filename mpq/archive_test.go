// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestArchive(t *testing.T, version Version) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mpq")
	w := NewArchive(path, version)
	w.AddFile("README.txt", []byte("hello from a test archive"))
	w.AddFile("data\\big.bin", make([]byte, 20000))
	require.NoError(t, w.Flush())
	return path
}

func TestRoundTripReadWriteV1(t *testing.T) {
	path := buildTestArchive(t, Version1)

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.HasFile("README.txt"))
	data, err := a.ReadFile("README.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello from a test archive", string(data))

	big, err := a.ReadFile("data\\big.bin")
	require.NoError(t, err)
	assert.Len(t, big, 20000)
}

func TestHasFileFalseForMissing(t *testing.T) {
	path := buildTestArchive(t, Version1)
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.HasFile("does-not-exist.txt"))
}

func TestRemoveFileThenFlush(t *testing.T) {
	path := buildTestArchive(t, Version1)

	m, err := OpenForModify(path)
	require.NoError(t, err)
	m.RemoveFile("README.txt")
	require.NoError(t, m.Flush())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	assert.False(t, a.HasFile("README.txt"))
	assert.True(t, a.HasFile("data\\big.bin"))
}

func TestRebuildPreservesFiles(t *testing.T) {
	path := buildTestArchive(t, Version1)
	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	destPath := filepath.Join(t.TempDir(), "rebuilt.mpq")
	opts := DefaultRebuildOptions()
	opts.Verify = true
	report, err := Rebuild(src, destPath, opts)
	require.NoError(t, err)
	assert.True(t, report.Verified)
	assert.Equal(t, 3, report.FilesWritten)
}

func TestCompareIdenticalArchives(t *testing.T) {
	path := buildTestArchive(t, Version1)
	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path)
	require.NoError(t, err)
	defer b.Close()

	report, err := Compare(a, b, CompareOptions{DeepCompare: true})
	require.NoError(t, err)
	assert.Empty(t, report.OnlyInA)
	assert.Empty(t, report.OnlyInB)
	assert.Empty(t, report.Differing)
	assert.True(t, report.Metadata.Matches)
}

func TestParallelExtractPreservesOrder(t *testing.T) {
	path := buildTestArchive(t, Version1)
	names := []string{"README.txt", "data\\big.bin", "README.txt"}

	results, err := ParallelExtract(context.Background(), path, names, ParallelExtractOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "README.txt", results[0].Name)
	assert.Equal(t, "hello from a test archive", string(results[0].Data))
	assert.Equal(t, "README.txt", results[2].Name)
}

func TestParallelExtractSkipErrors(t *testing.T) {
	path := buildTestArchive(t, Version1)
	names := []string{"README.txt", "missing.txt"}

	results, err := ParallelExtract(context.Background(), path, names, ParallelExtractOptions{SkipErrors: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
}

func TestExtractMatching(t *testing.T) {
	path := buildTestArchive(t, Version1)

	results, err := ExtractMatching(context.Background(), path, func(name string) bool {
		return strings.HasSuffix(name, ".txt")
	}, ParallelExtractOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "README.txt", results[0].Name)
}

func TestMultiSectorCompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multisector.mpq")
	w := NewArchive(path, Version1)

	content := make([]byte, 300*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	w.AddFile("big\\striped.bin", content)
	require.NoError(t, w.Flush())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.ReadFile("big\\striped.bin")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSectorCRCRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crc.mpq")
	w := NewArchive(path, Version1)

	content := make([]byte, 200*1024)
	for i := range content {
		content[i] = byte(i % 211)
	}
	w.AddFileWithOptions("crc\\data.bin", content, AddFileOptions{GenerateCRC: true})
	require.NoError(t, w.Flush())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	got, err := a.ReadFile("crc\\data.bin")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestAddFileWithOptionsEncryptedFixKeyMultiSector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encrypted.mpq")
	w := NewArchive(path, Version1)

	content := make([]byte, 150*1024)
	for i := range content {
		content[i] = byte(i%97 + 1)
	}
	w.AddFileWithOptions("secret\\payload.bin", content, AddFileOptions{
		Encrypted: true,
		FixKey:    true,
		Locale:    0x409,
	})
	require.NoError(t, w.Flush())

	a, err := Open(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, uint16(0x409), a.FileLocale("secret\\payload.bin"))

	got, err := a.ReadFile("secret\\payload.bin")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRebuildPreservesEncryptionAndLocale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.mpq")
	w := NewArchive(path, Version1)
	w.AddFileWithOptions("locked\\file.bin", []byte("secret payload"), AddFileOptions{
		Encrypted: true,
		FixKey:    true,
		Locale:    0x407,
	})
	require.NoError(t, w.Flush())

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	destPath := filepath.Join(t.TempDir(), "rebuilt.mpq")
	opts := DefaultRebuildOptions()
	report, err := Rebuild(src, destPath, opts)
	require.NoError(t, err)
	assert.Empty(t, report.FilesSkipped)

	dst, err := Open(destPath)
	require.NoError(t, err)
	defer dst.Close()

	data, err := dst.ReadFile("locked\\file.bin")
	require.NoError(t, err)
	assert.Equal(t, "secret payload", string(data))

	block, err := dst.findBlock("locked\\file.bin")
	require.NoError(t, err)
	assert.NotZero(t, block.Flags&FlagEncrypted)
	assert.NotZero(t, block.Flags&FlagFixKey)
	assert.Equal(t, uint16(0x407), dst.FileLocale("locked\\file.bin"))
}
