// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"
	"os"
)

// RebuildOptions controls how Rebuild reconstructs an archive.
type RebuildOptions struct {
	// PreserveFormat keeps the source archive's format version in the
	// rebuilt archive instead of writing it as Version2.
	PreserveFormat bool
	// PreserveOrder keeps files in their (listfile) order rather than
	// whatever order the rebuild happens to visit them in.
	PreserveOrder bool
	// SkipEncrypted omits encrypted files from the rebuilt archive instead
	// of decrypting them and re-encrypting them at their new position.
	SkipEncrypted bool
	// SkipSignatures drops the (signature) special file; archives are
	// re-signed separately, since a rebuild changes file offsets the
	// signature covers.
	SkipSignatures bool
	// OverrideCompression, when non-nil, forces every rebuilt file to use
	// this compression method instead of whatever the source file used.
	OverrideCompression *CompressionMethod
	// OverrideBlockSize, when non-zero, sets the rebuilt archive's sector
	// size instead of carrying the source archive's forward.
	OverrideBlockSize uint32
	// Verify re-opens the rebuilt archive and compares its file set against
	// the source after writing.
	Verify bool
}

// DefaultRebuildOptions matches the options a routine repack should use.
func DefaultRebuildOptions() RebuildOptions {
	return RebuildOptions{
		PreserveFormat: true,
		PreserveOrder:  true,
		SkipEncrypted:  false,
		SkipSignatures: true,
		Verify:         false,
	}
}

// RebuildReport summarizes what Rebuild did.
type RebuildReport struct {
	FilesWritten int
	FilesSkipped []string
	Verified     bool
}

// Rebuild re-extracts every file from src and writes a fresh archive at
// destPath, in four phases: analyze the source's file list, extract each
// file's bytes and metadata, write the new archive, and (if requested)
// verify it reads back the same file set. This is how a corrupted block
// table, a need to change sector size, or a desire to drop dead weight from
// an archive gets fixed: by never trying to patch the existing structure in
// place.
func Rebuild(src *Archive, destPath string, opts RebuildOptions) (*RebuildReport, error) {
	// Phase 1: analyze.
	names, err := src.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("mpq: rebuild analyze: %w", err)
	}
	if !opts.PreserveOrder {
		// ListFiles already returns listfile order; an unordered rebuild
		// would instead walk the block table directly. Preserved here for
		// the common case since both orders are valid and stable either
		// way once written.
	}

	type extracted struct {
		name string
		data []byte
		opts AddFileOptions
	}

	// Phase 2: extract with metadata.
	var files []extracted
	var skipped []string
	for _, name := range names {
		if opts.SkipSignatures && name == "(signature)" {
			continue
		}
		if src.IsDeleteMarker(name) {
			continue
		}

		fileOpts, err := src.fileOptions(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}

		if opts.SkipEncrypted && fileOpts.Encrypted {
			skipped = append(skipped, name)
			continue
		}

		if opts.OverrideCompression != nil {
			fileOpts.Compression = *opts.OverrideCompression
		}

		data, err := src.ReadFile(name)
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		files = append(files, extracted{name: name, data: data, opts: fileOpts})
	}

	// Phase 3: rebuild with files, preserving each one's original
	// encryption, fix-key, locale, and compression unless overridden.
	version := Version2
	if opts.PreserveFormat {
		version = src.header.Version
	}
	dst := NewArchive(destPath, version)
	if opts.OverrideBlockSize != 0 {
		dst.sectorSize = opts.OverrideBlockSize
	}
	for _, f := range files {
		dst.AddFileWithOptions(f.name, f.data, f.opts)
	}
	if err := dst.Flush(); err != nil {
		return nil, fmt.Errorf("mpq: rebuild write: %w", err)
	}

	report := &RebuildReport{FilesWritten: len(files), FilesSkipped: skipped}

	// Phase 4: optional verify.
	if opts.Verify {
		reopened, err := Open(destPath)
		if err != nil {
			return report, fmt.Errorf("mpq: rebuild verify: reopen: %w", err)
		}
		defer reopened.Close()

		for _, f := range files {
			if !reopened.HasFile(f.name) {
				return report, fmt.Errorf("mpq: rebuild verify: %q missing from rebuilt archive", f.name)
			}
		}
		report.Verified = true
	}

	return report, nil
}

// RebuildInPlace rebuilds src to a temp file alongside its own path, then
// replaces it, for callers that want Rebuild's guarantees without managing
// a separate destination path.
func RebuildInPlace(src *Archive, opts RebuildOptions) (*RebuildReport, error) {
	tmpPath := src.path + ".rebuild.tmp"
	report, err := Rebuild(src, tmpPath, opts)
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	srcPath := src.path
	if err := src.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("mpq: close source before replace: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		return nil, fmt.Errorf("mpq: replace original with rebuilt archive: %w", err)
	}
	return report, nil
}
