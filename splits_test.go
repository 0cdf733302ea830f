// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"io"
	"math/rand"
	"sort"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

// pairedTensors builds x of shape [numExamples, 2] with row i = {i, i+0.5}, and
// y of shape [numExamples] with y[i] = 2*i. The pairing y[i] == 2*x[i][0] is what
// the shuffling tests verify is preserved.
func pairedTensors(numExamples int) (x, y *tensors.Tensor) {
	xRows := make([][]float32, numExamples)
	yValues := make([]float32, numExamples)
	for ii := range xRows {
		xRows[ii] = []float32{float32(ii), float32(ii) + 0.5}
		yValues[ii] = 2 * float32(ii)
	}
	return tensors.FromValue(xRows), tensors.FromValue(yValues)
}

func TestSplitTensors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, y := pairedTensors(10)

	// Without shuffling the cut is positional: with fraction 0.3, rows 0..2
	// become validation and rows 3..9 training.
	trainX, trainY, validX, validY, err := SplitTensors(backend, x, y, 0.3, false)
	require.NoError(t, err)
	require.Equal(t, 7, trainX.Shape().Dimensions[0])
	require.Equal(t, 3, validX.Shape().Dimensions[0])
	require.Equal(t, [][]float32{{0, 0.5}, {1, 1.5}, {2, 2.5}}, validX.Value())
	require.Equal(t, []float32{0, 2, 4}, validY.Value())
	require.Equal(t, []float32{3, 3.5}, trainX.Value().([][]float32)[0])
	require.Equal(t, []float32{6, 8, 10, 12, 14, 16, 18}, trainY.Value())

	// Mismatched example counts are an error.
	_, badY := pairedTensors(7)
	_, _, _, _, err = SplitTensors(backend, x, badY, 0.3, false)
	require.Error(t, err)

	// Scalars cannot be split.
	_, _, _, _, err = SplitTensors(backend, tensors.FromScalar(float32(1)), y, 0.3, false)
	require.Error(t, err)
}

func TestSplitTensorsShuffle(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	const numExamples = 20
	x, y := pairedTensors(numExamples)

	trainX, trainY, validX, validY, err := SplitTensors(backend, x, y, 0.25, true)
	require.NoError(t, err)
	require.Equal(t, 15, trainX.Shape().Dimensions[0])
	require.Equal(t, 5, validX.Shape().Dimensions[0])

	// Pairing must survive the joint permutation, and together the two sides must
	// hold every original example exactly once.
	var seen []int
	isShuffled := false
	check := func(xSplit, ySplit *tensors.Tensor, offset int) {
		xRows := xSplit.Value().([][]float32)
		yValues := ySplit.Value().([]float32)
		for ii, row := range xRows {
			require.Equalf(t, 2*row[0], yValues[ii], "label no longer paired with data for row %v", row)
			require.Equal(t, row[0]+0.5, row[1])
			seen = append(seen, int(row[0]))
			isShuffled = isShuffled || int(row[0]) != offset+ii
		}
	}
	check(validX, validY, 0)
	check(trainX, trainY, 5)
	sort.Ints(seen)
	wantAll := make([]int, numExamples)
	for ii := range wantAll {
		wantAll[ii] = ii
	}
	require.Equal(t, wantAll, seen)
	// Chances of drawing the identity permutation over 20 examples are
	// astronomically low.
	require.True(t, isShuffled)
}

func TestSplitTensorsDegenerateFractions(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, y := pairedTensors(10)

	trainX, _, validX, _, err := SplitTensors(backend, x, y, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 10, trainX.Shape().Dimensions[0])
	assert.Equal(t, 0, validX.Shape().Dimensions[0])

	trainX, _, validX, _, err = SplitTensors(backend, x, y, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 0, trainX.Shape().Dimensions[0])
	assert.Equal(t, 10, validX.Shape().Dimensions[0])

	// Fractions outside [0, 1] saturate rather than fail.
	trainX, _, validX, _, err = SplitTensors(backend, x, y, 1.5, true)
	require.NoError(t, err)
	assert.Equal(t, 0, trainX.Shape().Dimensions[0])
	assert.Equal(t, 10, validX.Shape().Dimensions[0])
}

func TestSplitterSplitTensors(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, y := pairedTensors(10)
	s := NewSplitter(10, 0.3).WithRand(rand.New(rand.NewSource(42)))

	trainX, trainY, validX, validY, err := s.SplitTensors(backend, x, y)
	require.NoError(t, err)
	trainRows := trainX.Value().([][]float32)
	trainLabels := trainY.Value().([]float32)
	require.Len(t, trainRows, len(s.TrainIDs()))
	for ii, id := range s.TrainIDs() {
		require.Equal(t, float32(id), trainRows[ii][0])
		require.Equal(t, 2*float32(id), trainLabels[ii])
	}
	validRows := validX.Value().([][]float32)
	validLabels := validY.Value().([]float32)
	require.Len(t, validRows, len(s.ValidIDs()))
	for ii, id := range s.ValidIDs() {
		require.Equal(t, float32(id), validRows[ii][0])
		require.Equal(t, 2*float32(id), validLabels[ii])
	}
}

func TestGatherRows(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, _ := pairedTensors(5)

	rows, err := GatherRows(backend, x, []int{3, 1, 3})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{3, 3.5}, {1, 1.5}, {3, 3.5}}, rows.Value())

	// Empty ids yield an empty tensor of the same row shape and dtype.
	empty, err := GatherRows(backend, x, nil)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Shape().Dimensions[0])
	require.Equal(t, 2, empty.Shape().Dimensions[1])
	require.Equal(t, dtypes.Float32, empty.DType())

	_, err = GatherRows(backend, tensors.FromScalar(float32(1)), []int{0})
	require.Error(t, err)
}

func TestTensorDatasets(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, y := pairedTensors(10)

	// Explicit validation tensors win over the fraction.
	validX := tensors.FromValue([][]float32{{100, 100.5}, {101, 101.5}, {102, 102.5}})
	validY := tensors.FromValue([]float32{200, 202, 204})
	trainDS, validDS, err := TensorDatasets(backend, "synthetic", x, y, validX, validY, 0.9, true)
	require.NoError(t, err)
	require.Equal(t, "synthetic [train]", trainDS.Name())
	require.Equal(t, "synthetic [valid]", validDS.Name())
	require.Equal(t, 10, trainDS.NumExamples()) // Fraction 0.9 was ignored.
	require.Equal(t, 3, validDS.NumExamples())
	inputs, labels, err := trainDS.Example(0)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0.5}, inputs[0].Value()) // x used verbatim, in order.
	require.Equal(t, float32(0), labels[0].Value())
	inputs, _, err = validDS.Example(1)
	require.NoError(t, err)
	require.Equal(t, []float32{101, 101.5}, inputs[0].Value())

	// With a fraction (and no explicit tensors), the splitter kicks in.
	trainDS, validDS, err = TensorDatasets(backend, "synthetic", x, y, nil, nil, 0.3, false)
	require.NoError(t, err)
	require.Equal(t, 7, trainDS.NumExamples())
	require.Equal(t, 3, validDS.NumExamples())
	inputs, _, err = validDS.Example(0)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0.5}, inputs[0].Value())

	// Neither explicit tensors nor a fraction: no validation dataset.
	trainDS, validDS, err = TensorDatasets(backend, "synthetic", x, y, nil, nil, -1, true)
	require.NoError(t, err)
	require.Equal(t, 10, trainDS.NumExamples())
	require.Nil(t, validDS)

	// A half-given validation pair is an error.
	_, _, err = TensorDatasets(backend, "synthetic", x, y, validX, nil, 0.3, true)
	require.Error(t, err)
}

func TestTensorDataset(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x, y := pairedTensors(10)
	ds, err := FromTensors(backend, "synthetic", x, y)
	require.NoError(t, err)
	require.Equal(t, "synthetic", ds.Name())
	require.Equal(t, "syn", ds.ShortName())
	require.Equal(t, 10, ds.NumExamples())

	// Yields every example in order, then io.EOF; Reset restarts.
	for repeat := 0; repeat < 2; repeat++ {
		count := 0
		for {
			_, inputs, labels, err := ds.Yield()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			require.Equal(t, []float32{float32(count), float32(count) + 0.5}, inputs[0].Value())
			require.Equal(t, 2*float32(count), labels[0].Value())
			count++
		}
		require.Equal(t, 10, count)
		_, _, _, err = ds.Yield() // Stays exhausted.
		require.Equal(t, io.EOF, err)
		ds.Reset()
	}

	// Out-of-range example access fails.
	_, _, err = ds.Example(10)
	require.Error(t, err)
	_, _, err = ds.Example(-1)
	require.Error(t, err)

	// Tensors that don't pair up are rejected at construction.
	_, badY := pairedTensors(3)
	_, err = FromTensors(backend, "broken", x, badY)
	require.Error(t, err)
}
