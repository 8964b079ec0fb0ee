// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package mpq

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// defaultBatchSize is how many files each worker's archive handle processes
// once batching kicks in automatically for very large file lists.
const defaultBatchSize = 10

// batchThreshold is the file-list size above which ParallelExtract switches
// from one handle per file to one handle per batch, bounding the number of
// concurrently open file descriptors on archives with tens of thousands of
// entries.
const batchThreshold = 1000

// ExtractResult pairs a requested name with its outcome, preserving input
// order regardless of which worker finished first.
type ExtractResult struct {
	Name string
	Data []byte
	Err  error
}

// ParallelExtractOptions configures ParallelExtract.
type ParallelExtractOptions struct {
	// Concurrency is the worker count; zero selects a small fixed default.
	Concurrency int
	// SkipErrors causes per-file errors to be recorded in the result slice
	// instead of aborting the whole extraction.
	SkipErrors bool
	// BatchSize overrides the default batch size used above batchThreshold
	// files; zero uses defaultBatchSize.
	BatchSize int
}

// ParallelExtract reads every name in names from path concurrently, each
// worker opening its own *Archive handle (MPQ archives have no concurrent
// read API of their own), and returns results in the same order names was
// given in.
func ParallelExtract(ctx context.Context, path string, names []string, opts ParallelExtractOptions) ([]ExtractResult, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	results := make([]ExtractResult, len(names))

	if len(names) > batchThreshold {
		return extractBatched(ctx, path, names, results, concurrency, batchSize, opts.SkipErrors)
	}
	return extractPerFile(ctx, path, names, results, concurrency, opts.SkipErrors)
}

// ExtractMatching extracts every file in the archive at path whose name
// satisfies predicate, listing the archive once up front and then
// delegating to ParallelExtract for the matched subset.
func ExtractMatching(ctx context.Context, path string, predicate func(string) bool, opts ParallelExtractOptions) ([]ExtractResult, error) {
	a, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("mpq: open %s: %w", path, err)
	}
	names, err := a.ListFiles()
	a.Close()
	if err != nil {
		return nil, fmt.Errorf("mpq: list files: %w", err)
	}

	var matched []string
	for _, name := range names {
		if predicate(name) {
			matched = append(matched, name)
		}
	}

	return ParallelExtract(ctx, path, matched, opts)
}

func extractPerFile(ctx context.Context, path string, names []string, results []ExtractResult, concurrency int, skipErrors bool) ([]ExtractResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			a, err := Open(path)
			if err != nil {
				if skipErrors {
					results[i] = ExtractResult{Name: name, Err: err}
					return nil
				}
				return fmt.Errorf("mpq: open handle for %q: %w", name, err)
			}
			defer a.Close()

			data, err := a.ReadFile(name)
			if err != nil {
				if skipErrors {
					results[i] = ExtractResult{Name: name, Err: err}
					return nil
				}
				return fmt.Errorf("mpq: extract %q: %w", name, err)
			}
			results[i] = ExtractResult{Name: name, Data: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractBatched(ctx context.Context, path string, names []string, results []ExtractResult, concurrency, batchSize int, skipErrors bool) ([]ExtractResult, error) {
	type batch struct {
		start int
		names []string
	}
	var batches []batch
	for start := 0; start < len(names); start += batchSize {
		end := start + batchSize
		if end > len(names) {
			end = len(names)
		}
		batches = append(batches, batch{start: start, names: names[start:end]})
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, b := range batches {
		b := b
		g.Go(func() error {
			a, err := Open(path)
			if err != nil {
				return fmt.Errorf("mpq: open handle for batch at %d: %w", b.start, err)
			}
			defer a.Close()

			for j, name := range b.names {
				data, err := a.ReadFile(name)
				if err != nil {
					if skipErrors {
						results[b.start+j] = ExtractResult{Name: name, Err: err}
						continue
					}
					return fmt.Errorf("mpq: extract %q: %w", name, err)
				}
				results[b.start+j] = ExtractResult{Name: name, Data: data}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
