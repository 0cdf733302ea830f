// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"fmt"
	"io"
	"sync"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"
)

// Indexed is a dataset whose examples can be addressed individually by their
// position. It is the capability Splitter needs from a dataset to derive subset
// views from it.
//
// TensorDataset implements it; so does Subset itself, so views can be nested.
type Indexed interface {
	// NumExamples in the dataset. Examples are addressable in [0, NumExamples).
	NumExamples() int

	// Example returns the inputs and labels of the example at the given index.
	// It returns an error if index is out of range.
	Example(index int) (inputs, labels []*tensors.Tensor, err error)
}

// Subset is a read-through view of a parent Indexed dataset restricted to a list
// of ids: example i of the view is example ids[i] of the parent.
//
// It shares the parent (no data is copied) and references the id slice it was
// created with -- its lifetime is tied to both. It has no mutation capability.
//
// It also implements train.Dataset, yielding the selected examples one at a time,
// so views plug directly into train.Loop.
type Subset struct {
	parent Indexed
	ids    []int

	mu   sync.Mutex
	next int
}

var (
	_ Indexed       = (*Subset)(nil)
	_ train.Dataset = (*Subset)(nil)
)

// TakeSubset creates a view of parent restricted to the given ids.
// Usually created through Splitter.TrainDataset and Splitter.ValidDataset.
func TakeSubset(parent Indexed, ids []int) *Subset {
	return &Subset{parent: parent, ids: ids}
}

// Name implements train.Dataset. It derives from the parent's name, when the
// parent has one.
func (ds *Subset) Name() string {
	if named, ok := ds.parent.(interface{ Name() string }); ok {
		return fmt.Sprintf("%s [Subset]", named.Name())
	}
	return "Subset"
}

// NumExamples in the view.
func (ds *Subset) NumExamples() int { return len(ds.ids) }

// Example implements Indexed: it reads through to the parent's example at
// ids[index]. Fails with an out-of-range error if index is not in
// [0, NumExamples()).
func (ds *Subset) Example(index int) (inputs, labels []*tensors.Tensor, err error) {
	if index < 0 || index >= len(ds.ids) {
		err = errors.Errorf("index %d out of range for subset with %d examples", index, len(ds.ids))
		return
	}
	return ds.parent.Example(ds.ids[index])
}

// Reset implements train.Dataset, restarting the iteration from the first id.
func (ds *Subset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.next = 0
}

// Yield implements train.Dataset. It yields one example at a time, in the order of
// the view's ids, and returns io.EOF once they are exhausted.
func (ds *Subset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	pos := ds.next
	if pos >= len(ds.ids) {
		ds.mu.Unlock()
		err = io.EOF
		return
	}
	ds.next++
	ds.mu.Unlock()

	spec = ds
	inputs, labels, err = ds.parent.Example(ds.ids[pos])
	return
}
