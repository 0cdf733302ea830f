// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"io"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// TensorDataset is a paired-sample dataset zipping a data tensor (x) and a label
// tensor (y) along their leading axis: example i is (x[i], y[i]).
//
// It implements train.Dataset -- yielding one example at a time, in order -- and
// Indexed, so it can be partitioned with a Splitter.
//
// Rows are extracted with a gather on the backend given at construction. Yielded
// tensors are newly gathered, their ownership is transferred to the caller.
type TensorDataset struct {
	backend         backends.Backend
	name, shortName string

	x, y        *tensors.Tensor
	numExamples int

	// gatherExec gathers the (x, y) rows of one example.
	gatherExec *Exec

	// mu serializes the iteration state below.
	mu   sync.Mutex
	next int
}

var (
	_ train.Dataset      = (*TensorDataset)(nil)
	_ train.HasShortName = (*TensorDataset)(nil)
	_ Indexed            = (*TensorDataset)(nil)
)

// FromTensors creates a TensorDataset zipping x and y.
//
// Both tensors must be non-scalar and have the same leading (examples) dimension.
// The tensors are shared, not copied: they must remain valid (not finalized) for
// the life of the dataset.
func FromTensors(backend backends.Backend, name string, x, y *tensors.Tensor) (ds *TensorDataset, err error) {
	numExamples, err := pairedNumExamples(x, y)
	if err != nil {
		return
	}
	ds = &TensorDataset{
		backend:     backend,
		name:        name,
		shortName:   name[:min(3, len(name))],
		x:           x,
		y:           y,
		numExamples: numExamples,
		gatherExec:  MustNewExec(backend, gatherExampleGraph),
	}
	return
}

// gatherExampleGraph gathers one row of each data operand at the scalar index
// given by the first operand.
func gatherExampleGraph(operands []*Node) []*Node {
	index := operands[0]
	return []*Node{Gather(operands[1], index), Gather(operands[2], index)}
}

// Name implements train.Dataset.
func (ds *TensorDataset) Name() string { return ds.name }

// ShortName implements train.HasShortName.
func (ds *TensorDataset) ShortName() string { return ds.shortName }

// NumExamples in the dataset, the leading dimension of its tensors.
func (ds *TensorDataset) NumExamples() int { return ds.numExamples }

// Example implements Indexed, returning example (x[index], y[index]).
func (ds *TensorDataset) Example(index int) (inputs, labels []*tensors.Tensor, err error) {
	if index < 0 || index >= ds.numExamples {
		err = errors.Errorf("example %d out of range for dataset %q with %d examples",
			index, ds.name, ds.numExamples)
		return
	}
	var rows []*tensors.Tensor
	err = exceptions.TryCatch[error](func() {
		rows = ds.gatherExec.MustExec(index, ds.x, ds.y)
	})
	if err != nil {
		err = errors.WithMessagef(err, "failed gathering example %d of dataset %q", index, ds.name)
		return
	}
	inputs = rows[:1]
	labels = rows[1:]
	return
}

// Reset implements train.Dataset, restarting the iteration from example 0.
func (ds *TensorDataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.next = 0
}

// Yield implements train.Dataset. It yields one example at a time, in order, and
// returns io.EOF at the end of the epoch.
func (ds *TensorDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	pos := ds.next
	if pos >= ds.numExamples {
		ds.mu.Unlock()
		err = io.EOF
		return
	}
	ds.next++
	ds.mu.Unlock()

	spec = ds
	inputs, labels, err = ds.Example(pos)
	return
}
