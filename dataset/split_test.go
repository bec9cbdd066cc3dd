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
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	var records []Interaction
	for u := 0; u < 10; u++ {
		for i := 0; i < 10; i++ {
			if (u+i)%2 == 0 {
				records = append(records, Interaction{UserId: fmt.Sprint(u), ItemId: fmt.Sprint(i), Rating: 1})
			}
		}
	}
	records = append(records, Interaction{UserId: "10", ItemId: "0", Rating: 1})
	m, err := BuildInteractions(records, InteractionOptions{})
	assert.NoError(t, err)
	train, test, err := Split(m, 0.2, 0)
	assert.NoError(t, err)
	for u := 0; u < 10; u++ {
		var nTrain, nTest int
		for i := 0; i < 10; i++ {
			// train and test never overlap
			assert.False(t, train.At(u, i) > 0 && test.At(u, i) > 0)
			assert.Equal(t, m.At(u, i), train.At(u, i)+test.At(u, i))
			if train.At(u, i) > 0 {
				nTrain++
			}
			if test.At(u, i) > 0 {
				nTest++
			}
		}
		assert.Equal(t, 4, nTrain)
		assert.Equal(t, 1, nTest)
	}
	// single positive stays in train set
	assert.Equal(t, 1.0, train.At(10, 0))
	assert.Equal(t, 0.0, test.At(10, 0))
	// deterministic
	train2, _, err := Split(m, 0.2, 0)
	assert.NoError(t, err)
	assert.Equal(t, train.Matrix.RawMatrix().Data, train2.Matrix.RawMatrix().Data)
}

func TestSplitInvalid(t *testing.T) {
	m, err := BuildInteractions(testRecords(), InteractionOptions{})
	assert.NoError(t, err)
	_, _, err = Split(m, 0, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, _, err = Split(m, 1, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
	empty, err := BuildInteractions(nil, InteractionOptions{})
	assert.NoError(t, err)
	_, _, err = Split(empty, 0.5, 0)
	assert.True(t, errors.Is(err, errors.NotValid))
}
