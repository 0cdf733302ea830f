// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package splits provides train/validation splitting of datasets for GoMLX.
//
// It works at three levels:
//
//   - Whole-dataset tensors: SplitTensors partitions paired data (x) and label (y)
//     tensors along their leading axis, optionally shuffling them jointly first.
//     TensorDatasets goes one step further and assembles the resulting tensors
//     into train.Dataset implementations, ready for train.Loop.
//   - Index partitions: Splitter precomputes a train/validation partition of the
//     indices [0, N) for a dataset of known length, reproducibly if given a
//     random number generator (see Splitter.WithRand). The partition can be
//     exported and re-imported (see Splitter.State), so the exact split of an
//     experiment can be persisted along with its checkpoints.
//   - Subset views: Subset is a read-through view of any Indexed dataset
//     restricted to a list of indices. It doesn't copy the underlying data.
//
// Example: split 20% of a dataset for validation, reproducibly.
//
//	splitter := splits.NewSplitter(ds.NumExamples(), 0.2).
//		WithRand(rand.New(rand.NewSource(42)))
//	trainDS, validDS := splitter.Datasets(ds)
//
// Tensors are moved around with GoMLX graph executions (Gather on the backend
// given), so split results live wherever the backend puts them.
package splits

import (
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/pkg/errors"
)

// SplitTensors generates training and validation tensors from whole-dataset data (x)
// and label (y) tensors. Both must have the same leading (examples) dimension.
//
// If shuffle is true, one random permutation of the examples is applied jointly to
// x and y, so pairing is preserved. The permutation is drawn from a private
// generator seeded with the current time -- use Splitter.SplitTensors with
// Splitter.WithRand if you need a reproducible split.
//
// The first floor(N*validFraction) (permuted) examples become the validation set,
// the remainder the training set. The fraction is not validated: values outside
// [0, 1] simply yield empty or full slices. A fraction of 0 returns an empty
// validation set, with a zero leading dimension.
func SplitTensors(backend backends.Backend, x, y *tensors.Tensor, validFraction float64, shuffle bool) (
	trainX, trainY, validX, validY *tensors.Tensor, err error) {
	numExamples, err := pairedNumExamples(x, y)
	if err != nil {
		return
	}
	all := xslices.Iota(0, numExamples)
	if shuffle {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	}
	numValid := validCount(numExamples, validFraction)
	return splitTensorsByIDs(backend, x, y, all[numValid:], all[:numValid])
}

// TensorDatasets generates training and (optionally) validation datasets from
// whole-dataset tensors, the datasets' names derived from the given name.
//
// The validation set is chosen with the following precedence:
//
//  1. If validX and validY are given, they are used verbatim as the validation
//     set, and x/y verbatim as the training set -- validFraction is ignored.
//  2. Otherwise, if validFraction >= 0, SplitTensors is used to derive both sets.
//  3. Otherwise no validation set is produced and validDS is nil.
//
// Pass a negative validFraction to mean "no fraction given". Giving only one of
// validX/validY is an error.
func TensorDatasets(backend backends.Backend, name string, x, y, validX, validY *tensors.Tensor,
	validFraction float64, shuffle bool) (trainDS, validDS *TensorDataset, err error) {
	if (validX == nil) != (validY == nil) {
		err = errors.Errorf("validation tensors must be given as a pair: got validX=%v, validY=%v",
			validX != nil, validY != nil)
		return
	}
	trainX, trainY := x, y
	if validX == nil && validFraction >= 0 {
		trainX, trainY, validX, validY, err = SplitTensors(backend, x, y, validFraction, shuffle)
		if err != nil {
			return
		}
	}
	trainDS, err = FromTensors(backend, name+" [train]", trainX, trainY)
	if err != nil {
		return
	}
	if validX == nil {
		return
	}
	validDS, err = FromTensors(backend, name+" [valid]", validX, validY)
	return
}

// GatherRows returns a new tensor with the rows (leading axis) of t at the given
// ids, in the order given. Ids may repeat. An empty ids slice returns a tensor
// with a zero leading dimension.
func GatherRows(backend backends.Backend, t *tensors.Tensor, ids []int) (rows *tensors.Tensor, err error) {
	if t.Shape().IsScalar() {
		err = errors.Errorf("cannot gather rows of a scalar tensor (shape %s)", t.Shape())
		return
	}
	if len(ids) == 0 {
		dims := slices.Clone(t.Shape().Dimensions)
		dims[0] = 0
		rows = tensors.FromShape(shapes.Make(t.DType(), dims...))
		return
	}
	// Indices are shaped [len(ids), 1], gathering over the leading axis.
	idsT := tensors.FromFlatDataAndDimensions(ids, len(ids), 1)
	defer idsT.MustFinalizeAll() // Free immediately after use.
	err = exceptions.TryCatch[error](func() {
		rows = MustNewExec(backend, gatherRowsGraph).MustExec(idsT, t)[0]
	})
	if err != nil {
		err = errors.WithMessagef(err, "while gathering %d rows of tensor shaped %s", len(ids), t.Shape())
	}
	return
}

// gatherRowsGraph gathers the rows of the second operand at the indices given by the first.
func gatherRowsGraph(operands []*Node) []*Node {
	indices, data := operands[0], operands[1]
	return []*Node{Gather(data, indices)}
}

// splitTensorsByIDs gathers the train/validation rows of x and y for an already
// materialized partition.
func splitTensorsByIDs(backend backends.Backend, x, y *tensors.Tensor, trainIDs, validIDs []int) (
	trainX, trainY, validX, validY *tensors.Tensor, err error) {
	if _, err = pairedNumExamples(x, y); err != nil {
		return
	}
	if trainX, err = GatherRows(backend, x, trainIDs); err != nil {
		return
	}
	if trainY, err = GatherRows(backend, y, trainIDs); err != nil {
		return
	}
	if validX, err = GatherRows(backend, x, validIDs); err != nil {
		return
	}
	validY, err = GatherRows(backend, y, validIDs)
	return
}

// pairedNumExamples returns the shared leading dimension of x and y, or an error
// if they are scalars or don't pair up.
func pairedNumExamples(x, y *tensors.Tensor) (int, error) {
	if x.Shape().IsScalar() || y.Shape().IsScalar() {
		return 0, errors.Errorf("cannot split scalar tensors: x shaped %s, y shaped %s", x.Shape(), y.Shape())
	}
	numExamples := x.Shape().Dimensions[0]
	if got := y.Shape().Dimensions[0]; got != numExamples {
		return 0, errors.Errorf("x has %d examples but y has %d -- data and labels must pair up",
			numExamples, got)
	}
	return numExamples, nil
}

// validCount is floor(n*fraction) bounded to [0, n]. Fractions outside [0, 1] are
// not an error, they saturate to empty or full -- same as the slicing they lead to.
func validCount(n int, fraction float64) int {
	count := int(math.Floor(float64(n) * fraction))
	return max(0, min(count, n))
}
