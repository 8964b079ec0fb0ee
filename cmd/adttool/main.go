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
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/wowemulation-dev/wowarch/adt"
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
		Name:        "adttool",
		Description: "Decode and summarize ADT terrain tiles, merging split siblings when present.",
		Commands: []*cli.Command{
			newSummaryCmd(),
			newMergeCmd(),
		},
	}

	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSummaryCmd() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "decode a tile and print its expansion, cell, and placement counts",
		ArgsUsage: "<tile.adt>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("missing tile path", 1)
			}
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			tile, err := adt.Decode(data)
			if err != nil {
				return err
			}
			printSummary(tile)
			return nil
		},
	}
}

func newMergeCmd() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "merge a split tile's root/_tex0/_tex1/_obj0/_obj1 siblings and print the result",
		ArgsUsage: "<root.adt> [_tex0.adt] [_tex1.adt] [_obj0.adt] [_obj1.adt]",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return cli.Exit("missing root tile path", 1)
			}

			rootPath := c.Args().Get(0)
			paths := map[adt.SplitSuffix]string{}
			for i := 1; i < c.Args().Len(); i++ {
				arg := c.Args().Get(i)
				paths[adt.DetectSplitSuffix(arg)] = arg
			}
			for suffix, suffixName := range map[adt.SplitSuffix]string{
				adt.SplitTex0: "_tex0",
				adt.SplitTex1: "_tex1",
				adt.SplitObj0: "_obj0",
				adt.SplitObj1: "_obj1",
			} {
				if paths[suffix] == "" {
					paths[suffix] = guessSibling(rootPath, suffixName)
				}
			}

			root, err := decodeFile(rootPath)
			if err != nil {
				return err
			}
			tex0, err := decodeFileOptional(paths[adt.SplitTex0])
			if err != nil {
				return err
			}
			tex1, err := decodeFileOptional(paths[adt.SplitTex1])
			if err != nil {
				return err
			}
			obj0, err := decodeFileOptional(paths[adt.SplitObj0])
			if err != nil {
				return err
			}
			obj1, err := decodeFileOptional(paths[adt.SplitObj1])
			if err != nil {
				return err
			}

			merged := adt.MergeSplitTiles(root, tex0, tex1, obj0, obj1)
			printSummary(merged)
			return nil
		},
	}
}

func guessSibling(rootPath, suffix string) string {
	ext := filepath.Ext(rootPath)
	base := strings.TrimSuffix(rootPath, ext)
	candidate := base + suffix + ext
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func decodeFile(path string) (*adt.Tile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return adt.Decode(data)
}

func decodeFileOptional(path string) (*adt.Tile, error) {
	if path == "" {
		return nil, nil
	}
	return decodeFile(path)
}

func printSummary(tile *adt.Tile) {
	fmt.Printf("expansion:  %s (mver %d)\n", tile.Expansion, tile.Version)
	fmt.Printf("textures:   %d\n", len(tile.Textures))
	fmt.Printf("models:     %d\n", len(tile.Models))
	fmt.Printf("wmos:       %d\n", len(tile.WMOs))
	fmt.Printf("doodads:    %d placements\n", len(tile.ModelPlacements))
	fmt.Printf("wmo insts:  %d placements\n", len(tile.WMOPlacements))

	cells := 0
	layers := 0
	for _, cell := range tile.Cells {
		if cell == nil {
			continue
		}
		cells++
		layers += len(cell.Layers)
	}
	fmt.Printf("cells:      %d/256 decoded, %d texture layers total\n", cells, layers)

	if tile.HasWater {
		liquidCells := 0
		for _, w := range tile.Water {
			if len(w.Instances) > 0 {
				liquidCells++
			}
		}
		fmt.Printf("water:      %d cells with liquid\n", liquidCells)
	}
}
