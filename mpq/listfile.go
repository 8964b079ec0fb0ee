// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ListFiles returns the archive's file names by reading its embedded
// "(listfile)" entry, one name per line, CRLF or LF terminated. Archives
// without a listfile (signature/attributes-only lookups still work) return
// an error; callers that only need to check individual names should use
// HasFile instead.
func (a *Archive) ListFiles() ([]string, error) {
	data, err := a.ReadFile("(listfile)")
	if err != nil {
		return nil, fmt.Errorf("mpq: read (listfile): %w", err)
	}

	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mpq: scan (listfile): %w", err)
	}
	return names, nil
}

// IsPatchFile reports whether name's block entry carries the patch-file flag.
func (a *Archive) IsPatchFile(name string) bool {
	b, err := a.findBlock(name)
	return err == nil && b.Flags&FlagPatchFile != 0
}

// IsDeleteMarker reports whether name's block entry is a deletion marker
// left behind by a patch chain.
func (a *Archive) IsDeleteMarker(name string) bool {
	b, err := a.findBlock(name)
	return err == nil && b.Flags&FlagDeleteMarker != 0
}
