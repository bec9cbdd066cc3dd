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

package mf

import (
	"context"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

const evalEpsilon = 0.00001

// mockPredictor scores items by their indices.
type mockPredictor struct{}

func (mockPredictor) Predict(_ int32, itemIndices []int32) []float32 {
	return lo.Map(itemIndices, func(i int32, _ int) float32 { return float32(i) })
}

func TestNDCG(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.7365897, NDCG(targetSet, rankList), evalEpsilon)
	assert.Zero(t, NDCG(targetSet, nil))
}

func TestPrecision(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 5, 7)
	rankList := []int32{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.6, Precision(targetSet, rankList), evalEpsilon)
	assert.Zero(t, Precision(targetSet, nil))
}

func TestRecall(t *testing.T) {
	targetSet := mapset.NewSet[int32](1, 3, 15, 17, 19)
	rankList := []int32{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.4, Recall(targetSet, rankList), evalEpsilon)
	assert.Zero(t, Recall(mapset.NewSet[int32](), rankList))
}

func TestRank(t *testing.T) {
	assert.Equal(t, []int32{9, 7, 5}, Rank(mockPredictor{}, 0, []int32{1, 3, 5, 7, 9}, 3))
}

func TestEvaluate(t *testing.T) {
	train, err := dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "0", Rating: 1},
		{UserId: "u1", ItemId: "4", Rating: 1},
		{UserId: "u2", ItemId: "1", Rating: 1},
		{UserId: "u2", ItemId: "2", Rating: 0},
		{UserId: "u2", ItemId: "3", Rating: 0},
	}, dataset.InteractionOptions{})
	assert.NoError(t, err)
	test, err := dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "3", Rating: 1},
		{UserId: "u1", ItemId: "0", Rating: 0},
		{UserId: "u1", ItemId: "1", Rating: 0},
		{UserId: "u1", ItemId: "2", Rating: 0},
		{UserId: "u1", ItemId: "4", Rating: 0},
		{UserId: "u2", ItemId: "0", Rating: 0},
	}, dataset.InteractionOptions{})
	assert.NoError(t, err)
	// u1 ranks [3, 2] from candidates {1, 2, 3} and hits 3. u2 has no test items.
	score, err := Evaluate(context.Background(), mockPredictor{}, test, train, 2, 2)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, score.NDCG, evalEpsilon)
	assert.InDelta(t, 0.5, score.Precision, evalEpsilon)
	assert.InDelta(t, 1.0, score.Recall, evalEpsilon)
}

func TestEvaluateInvalid(t *testing.T) {
	train, err := dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "0", Rating: 1},
	}, dataset.InteractionOptions{})
	assert.NoError(t, err)
	test, err := dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "0", Rating: 1},
		{UserId: "u1", ItemId: "1", Rating: 1},
	}, dataset.InteractionOptions{})
	assert.NoError(t, err)
	// shape mismatch
	_, err = Evaluate(context.Background(), mockPredictor{}, test, train, 2, 1)
	assert.True(t, errors.Is(err, errors.NotValid))
	// no positive values
	zeros, err := dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "0", Rating: 0},
	}, dataset.InteractionOptions{})
	assert.NoError(t, err)
	_, err = Evaluate(context.Background(), mockPredictor{}, zeros, train, 2, 1)
	assert.True(t, errors.Is(err, errors.NotValid))
}
