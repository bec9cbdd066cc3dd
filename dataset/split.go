// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataset

import (
	"github.com/gorse-io/mfrec/base"
	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

// Split holds out a fraction of the positive cells of every user. Cells are
// positive if they are greater than zero. Users with a single positive cell
// keep it in the train set.
func Split(interactions *Interactions, testRatio float64, seed int64) (*Interactions, *Interactions, error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, errors.NotValidf("test ratio %v", testRatio)
	}
	nUsers, nItems := interactions.Dims()
	if nUsers == 0 || nItems == 0 {
		return nil, nil, errors.NotValidf("empty interactions")
	}
	rng := base.NewRandomGenerator(seed)
	train := &Interactions{
		UserIds: interactions.UserIds,
		ItemIds: interactions.ItemIds,
		Matrix:  mat.DenseCopyOf(interactions.Matrix),
	}
	test := &Interactions{
		UserIds: interactions.UserIds,
		ItemIds: interactions.ItemIds,
		Matrix:  mat.NewDense(nUsers, nItems, nil),
	}
	for i := 0; i < nUsers; i++ {
		var positives []int
		for j := 0; j < nItems; j++ {
			if interactions.Matrix.At(i, j) > 0 {
				positives = append(positives, j)
			}
		}
		if len(positives) < 2 {
			continue
		}
		rng.Shuffle(len(positives), func(a, b int) {
			positives[a], positives[b] = positives[b], positives[a]
		})
		nTest := int(float64(len(positives)) * testRatio)
		if nTest == 0 {
			nTest = 1
		}
		for _, j := range positives[:nTest] {
			test.Matrix.Set(i, j, interactions.Matrix.At(i, j))
			train.Matrix.Set(i, j, 0)
		}
	}
	return train, test, nil
}
