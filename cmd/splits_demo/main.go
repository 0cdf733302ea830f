// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// splits_demo splits a synthetic dataset into training and validation sets and
// prints a summary of the partition. It optionally persists the partition to a
// file (-state), so re-running with the same file reuses the exact same split.
package main

import (
	"encoding/gob"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/splits"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagNumExamples = flag.Int("num_examples", 10000, "Number of examples in the synthetic dataset.")
	flagFraction    = flag.Float64("valid_fraction", 0.2, "Fraction of the dataset reserved for validation.")
	flagSeed        = flag.Int64("seed", 0, "Seed for the shuffling of the partition. 0 means seeding with the current time.")
	flagState       = flag.String("state", "", "Path to the partition state file: loaded if it exists, saved otherwise. "+
		"Empty means the partition is not persisted.")
)

func main() {
	flag.Parse()
	backend := backends.MustNew()

	splitter := buildSplitter()
	x, y := syntheticTensors(*flagNumExamples)
	ds := must.M1(splits.FromTensors(backend, "synthetic", x, y))
	trainDS, validDS := splitter.Datasets(ds)

	trainX, _, validX, _, err := splitter.SplitTensors(backend, x, y)
	must.M(err)

	table := newPlainTable()
	table.Headers("Set", "Examples", "Tensor Shape")
	table.Row("training", humanize.Comma(int64(trainDS.NumExamples())), trainX.Shape().String())
	table.Row("validation", humanize.Comma(int64(validDS.NumExamples())), validX.Shape().String())
	fmt.Printf("Split of %q (%s examples, valid_fraction=%s):\n%s\n",
		ds.Name(), humanize.Comma(int64(ds.NumExamples())),
		strconv.FormatFloat(*flagFraction, 'g', -1, 64), table.Render())
}

// buildSplitter creates the partition, reusing the -state file when it exists.
func buildSplitter() *splits.Splitter {
	if *flagState != "" {
		if f, err := os.Open(*flagState); err == nil {
			defer func() { must.M(f.Close()) }()
			splitter := must.M1(splits.GobDeserializeSplitter(gob.NewDecoder(f)))
			fmt.Printf("Reusing partition from %q.\n", *flagState)
			return splitter
		} else if !os.IsNotExist(err) {
			klog.Fatalf("Failed to open state file %q: %+v", *flagState, err)
		}
	}

	splitter := splits.NewSplitter(*flagNumExamples, *flagFraction)
	if *flagSeed != 0 {
		splitter.WithRand(rand.New(rand.NewSource(*flagSeed)))
	}
	if *flagState != "" {
		f := must.M1(os.Create(*flagState))
		must.M(splitter.GobSerialize(gob.NewEncoder(f)))
		must.M(f.Close())
		fmt.Printf("Partition saved to %q.\n", *flagState)
	}
	return splitter
}

// syntheticTensors builds a [n, 4] float32 data tensor and a [n] int32 label tensor.
func syntheticTensors(n int) (x, y *tensors.Tensor) {
	rng := rand.New(rand.NewSource(1))
	xData := make([]float32, n*4)
	for ii := range xData {
		xData[ii] = rng.Float32()
	}
	yData := make([]int32, n)
	for ii := range yData {
		yData[ii] = int32(ii % 10)
	}
	x = tensors.FromFlatDataAndDimensions(xData, n, 4)
	y = tensors.FromFlatDataAndDimensions(yData, n)
	return
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	rowStyle = lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
)

func newPlainTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 1 {
				return headerRowStyle
			}
			return rowStyle
		})
}
