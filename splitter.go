// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"encoding/gob"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Splitter precomputes a train/validation partition of the indices [0, numExamples)
// for a dataset of known length, and derives subset views (see Subset) of any
// Indexed dataset from it.
//
// The partition is drawn once, at construction: the indices are shuffled and cut at
// floor(numExamples*validFraction), the first slice becoming the validation ids and
// the remainder the training ids. It only changes wholesale afterwards, through
// WithRand (re-draw with a caller-owned generator) or LoadState (reuse of a
// previously exported partition).
//
// The Splitter never touches the global random generator.
type Splitter struct {
	numExamples   int
	validFraction float64
	rng           *rand.Rand

	trainIDs, validIDs []int
}

// State is the plain, persistable record of a Splitter partition. It has no
// versioning or schema beyond the two id sequences. The json tags allow embedding
// it in checkpoint metadata records.
type State struct {
	TrainIDs []int `json:"train_ids"`
	ValidIDs []int `json:"valid_ids"`
}

// NewSplitter creates a Splitter for a dataset with numExamples examples, reserving
// floor(numExamples*validFraction) of them for validation.
//
// The partition is shuffled with a generator seeded with the current time. For a
// reproducible partition chain it with WithRand.
//
// The fraction is not validated: values outside [0, 1] yield an empty or full
// validation side.
func NewSplitter(numExamples int, validFraction float64) *Splitter {
	s := &Splitter{
		numExamples:   numExamples,
		validFraction: validFraction,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.partition()
	return s
}

// WithRand sets the random number generator used to shuffle the partition and
// immediately re-partitions with it. This allows for repeatable deterministic
// splits.
//
// It returns the modified Splitter, so calls can be cascaded if one wants.
func (s *Splitter) WithRand(rng *rand.Rand) *Splitter {
	s.rng = rng
	s.partition()
	return s
}

// partition draws the train/validation ids from s.rng.
func (s *Splitter) partition() {
	all := xslices.Iota(0, s.numExamples)
	s.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	numValid := validCount(s.numExamples, s.validFraction)
	s.validIDs = all[:numValid]
	s.trainIDs = all[numValid:]
}

// NumExamples the Splitter was created for.
func (s *Splitter) NumExamples() int { return s.numExamples }

// TrainIDs returns the training side of the partition. The slice is owned by the
// Splitter, don't modify it.
func (s *Splitter) TrainIDs() []int { return s.trainIDs }

// ValidIDs returns the validation side of the partition. The slice is owned by the
// Splitter, don't modify it.
func (s *Splitter) ValidIDs() []int { return s.validIDs }

// TrainDataset returns a subset view of ds restricted to the training ids.
// The view references ds, it doesn't copy any data.
func (s *Splitter) TrainDataset(ds Indexed) *Subset { return TakeSubset(ds, s.trainIDs) }

// ValidDataset returns a subset view of ds restricted to the validation ids.
// The view references ds, it doesn't copy any data.
func (s *Splitter) ValidDataset(ds Indexed) *Subset { return TakeSubset(ds, s.validIDs) }

// Datasets returns the training and validation subset views over the same parent ds.
func (s *Splitter) Datasets(ds Indexed) (trainDS, validDS *Subset) {
	return s.TrainDataset(ds), s.ValidDataset(ds)
}

// SplitTensors gathers the training and validation rows of the paired tensors x
// and y according to the Splitter's partition. Combined with WithRand this is the
// reproducible version of the package-level SplitTensors.
//
// The tensors' leading dimension should be at least as large as the ids in the
// partition -- ids out of range fail with the backend's gather error.
func (s *Splitter) SplitTensors(backend backends.Backend, x, y *tensors.Tensor) (
	trainX, trainY, validX, validY *tensors.Tensor, err error) {
	return splitTensorsByIDs(backend, x, y, s.trainIDs, s.validIDs)
}

// State exports the partition for persistence. The returned record holds copies of
// the id sequences, so it stays valid whatever happens to the Splitter.
func (s *Splitter) State() State {
	return State{
		TrainIDs: xslices.Copy(s.trainIDs),
		ValidIDs: xslices.Copy(s.validIDs),
	}
}

// LoadState overwrites the partition with a previously exported record, bypassing
// re-randomization, so that a saved split can be reused exactly.
//
// The record is not checked against the Splitter's numExamples: a mismatched
// record produces a partition whose inconsistency only surfaces later, as
// out-of-range errors during item access. That check is the caller's
// responsibility.
func (s *Splitter) LoadState(state State) {
	s.trainIDs = xslices.Copy(state.TrainIDs)
	s.validIDs = xslices.Copy(state.ValidIDs)
}

// GobSerialize the Splitter's partition to the encoder, so a split can ride inside
// a broader checkpoint record.
//
// The random number generator is not serialized.
func (s *Splitter) GobSerialize(encoder *gob.Encoder) (err error) {
	enc := func(data any) {
		if err != nil {
			return
		}
		err = encoder.Encode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to serialize Splitter")
		}
	}
	enc(s.numExamples)
	enc(s.validFraction)
	enc(s.trainIDs)
	enc(s.validIDs)
	return
}

// GobDeserializeSplitter recovers a Splitter serialized with GobSerialize.
//
// The partition is restored as serialized, without re-randomizing. The random
// number generator is newly initialized with the current time (see
// Splitter.WithRand to replace it).
func GobDeserializeSplitter(decoder *gob.Decoder) (s *Splitter, err error) {
	dec := func(data any) {
		if err != nil {
			return
		}
		err = decoder.Decode(data)
		if err != nil {
			err = errors.Wrapf(err, "failed to deserialize Splitter")
		}
	}
	s = &Splitter{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	dec(&s.numExamples)
	dec(&s.validFraction)
	dec(&s.trainIDs)
	dec(&s.validIDs)
	if err != nil {
		return nil, err
	}
	return
}
