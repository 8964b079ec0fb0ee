// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/wowemulation-dev/wowarch/mpq"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-interrupt:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "mpqtool",
		Description: "Inspect, extract, rebuild, and compare MPQ archives.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Commands: []*cli.Command{
			newListCmd(),
			newExtractCmd(),
			newRebuildCmd(),
			newCompareCmd(),
			newInfoCmd(),
		},
	}

	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *zap.Logger {
	if c.Bool("verbose") {
		log, _ := zap.NewDevelopment()
		return log
	}
	return zap.NewNop()
}

func newInfoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print an archive's header and table sizes",
		ArgsUsage: "<archive.mpq>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("missing archive path", 1)
			}
			a, err := mpq.OpenWithLogger(c.Args().First(), newLogger(c))
			if err != nil {
				return err
			}
			defer a.Close()

			h := a.Header()
			fmt.Printf("version:     %d\n", h.Version)
			fmt.Printf("sector size: %d\n", h.SectorSize())
			fmt.Printf("hash table:  offset=0x%x size=%d\n", h.HashTableOffset, h.HashTableSize)
			fmt.Printf("block table: offset=0x%x size=%d\n", h.BlockTableOffset, h.BlockTableSize)
			return nil
		},
	}
}

func newListCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "list files in an archive",
		ArgsUsage: "<archive.mpq>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("missing archive path", 1)
			}
			a, err := mpq.OpenWithLogger(c.Args().First(), newLogger(c))
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.ListFiles()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func newExtractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "extract files from an archive",
		ArgsUsage: "<archive.mpq> [file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Value: ".", Usage: "directory to extract into"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"j"}, Value: 4, Usage: "parallel extraction workers"},
			&cli.BoolFlag{Name: "skip-errors", Usage: "continue past per-file extraction errors"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("missing archive path", 1)
			}
			path := c.Args().First()
			names := c.Args().Slice()[1:]

			if len(names) == 0 {
				a, err := mpq.OpenWithLogger(path, newLogger(c))
				if err != nil {
					return err
				}
				names, err = a.ListFiles()
				a.Close()
				if err != nil {
					return err
				}
			}

			results, err := mpq.ParallelExtract(c.Context, path, names, mpq.ParallelExtractOptions{
				Concurrency: c.Int("concurrency"),
				SkipErrors:  c.Bool("skip-errors"),
			})
			if err != nil {
				return err
			}

			outDir := c.String("output-dir")
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "skip %s: %v\n", r.Name, r.Err)
					continue
				}
				dest := filepath.Join(outDir, filepath.FromSlash(r.Name))
				if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(dest, r.Data, 0o644); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRebuildCmd() *cli.Command {
	return &cli.Command{
		Name:      "rebuild",
		Usage:     "rebuild an archive from scratch, dropping dead weight",
		ArgsUsage: "<src.mpq> <dest.mpq>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "skip-encrypted", Usage: "drop encrypted files instead of re-encrypting them in the rebuilt archive"},
			&cli.BoolFlag{Name: "verify", Usage: "re-open the rebuilt archive and verify its file set"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return cli.Exit("usage: rebuild <src.mpq> <dest.mpq>", 1)
			}
			a, err := mpq.OpenWithLogger(c.Args().Get(0), newLogger(c))
			if err != nil {
				return err
			}
			defer a.Close()

			opts := mpq.DefaultRebuildOptions()
			opts.SkipEncrypted = c.Bool("skip-encrypted")
			opts.Verify = c.Bool("verify")

			report, err := mpq.Rebuild(a, c.Args().Get(1), opts)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %d files, skipped %d, verified=%v\n", report.FilesWritten, len(report.FilesSkipped), report.Verified)
			return nil
		},
	}
}

func newCompareCmd() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "compare two archives' contents",
		ArgsUsage: "<a.mpq> <b.mpq>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "deep", Usage: "compare file contents, not just presence"},
			&cli.StringSliceFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "restrict comparison to files matching a glob"},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return cli.Exit("usage: compare <a.mpq> <b.mpq>", 1)
			}
			a, err := mpq.OpenWithLogger(c.Args().Get(0), newLogger(c))
			if err != nil {
				return err
			}
			defer a.Close()
			b, err := mpq.OpenWithLogger(c.Args().Get(1), newLogger(c))
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := mpq.Compare(a, b, mpq.CompareOptions{
				DeepCompare:     c.Bool("deep"),
				IncludePatterns: c.StringSlice("pattern"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("metadata match: %v\n", report.Metadata.Matches)
			fmt.Printf("only in a: %d, only in b: %d, differing: %d\n",
				len(report.OnlyInA), len(report.OnlyInB), len(report.Differing))
			for _, n := range report.OnlyInA {
				fmt.Println("< ", n)
			}
			for _, n := range report.OnlyInB {
				fmt.Println("> ", n)
			}
			for _, n := range report.Differing {
				fmt.Println("! ", n)
			}
			return nil
		},
	}
}
