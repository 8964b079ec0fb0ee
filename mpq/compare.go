// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"fmt"

	"github.com/ryanuber/go-glob"
)

// CompareOptions controls which files Compare considers and how deeply.
type CompareOptions struct {
	// IncludePatterns, if non-empty, restricts comparison to files matching
	// at least one glob, in which each "*" matches any run of characters,
	// path separators included (go-glob's matching).
	IncludePatterns []string
	// DeepCompare reads every file present in both archives and compares
	// contents byte-for-byte; otherwise shared files are not read and only
	// presence and header metadata are compared. File sizes are not compared
	// on their own.
	DeepCompare bool
}

// MetadataDiff reports whether two archives' headers describe the same
// shape. ArchiveSize is deliberately excluded: two archives can differ in
// padding or sector alignment without differing in what they contain.
type MetadataDiff struct {
	FormatVersionMatch bool
	SectorSizeMatch    bool
	FileCountMatch     bool
	Matches            bool
}

// CompareReport is the full result of comparing two archives.
type CompareReport struct {
	Metadata     MetadataDiff
	OnlyInA      []string
	OnlyInB      []string
	Differing    []string // present in both, contents differ (DeepCompare only)
	Identical    []string
}

// Compare reports how archive a and archive b differ: which files exist
// only on one side, and optionally which shared files have different
// contents.
func Compare(a, b *Archive, opts CompareOptions) (*CompareReport, error) {
	metaMatch := MetadataDiff{
		FormatVersionMatch: a.header.Version == b.header.Version,
		SectorSizeMatch:    a.sectorSize == b.sectorSize,
		FileCountMatch:     len(a.blockTable) == len(b.blockTable) || (a.bet != nil && b.bet != nil && a.bet.header.FileCount == b.bet.header.FileCount),
	}
	metaMatch.Matches = metaMatch.FormatVersionMatch && metaMatch.SectorSizeMatch && metaMatch.FileCountMatch

	namesA, err := a.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("mpq: compare: list archive a: %w", err)
	}
	namesB, err := b.ListFiles()
	if err != nil {
		return nil, fmt.Errorf("mpq: compare: list archive b: %w", err)
	}

	namesA = filterNames(namesA, opts.IncludePatterns)
	namesB = filterNames(namesB, opts.IncludePatterns)

	setB := make(map[string]bool, len(namesB))
	for _, n := range namesB {
		setB[n] = true
	}
	setA := make(map[string]bool, len(namesA))
	for _, n := range namesA {
		setA[n] = true
	}

	report := &CompareReport{Metadata: metaMatch}

	for _, n := range namesA {
		if !setB[n] {
			report.OnlyInA = append(report.OnlyInA, n)
			continue
		}
		if !opts.DeepCompare {
			continue
		}
		da, errA := a.ReadFile(n)
		db, errB := b.ReadFile(n)
		if errA != nil || errB != nil || !bytesEqual(da, db) {
			report.Differing = append(report.Differing, n)
		} else {
			report.Identical = append(report.Identical, n)
		}
	}
	for _, n := range namesB {
		if !setA[n] {
			report.OnlyInB = append(report.OnlyInB, n)
		}
	}

	return report, nil
}

func filterNames(names []string, patterns []string) []string {
	if len(patterns) == 0 {
		return names
	}
	var out []string
	for _, n := range names {
		for _, p := range patterns {
			if glob.Glob(p, n) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
