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

	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mfrec/common/heap"
	"github.com/gorse-io/mfrec/common/parallel"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/juju/errors"
)

type Score struct {
	NDCG      float32
	Precision float32
	Recall    float32
}

/* Evaluate Item Ranking */

// Metric is used by evaluators in personalized ranking tasks.
type Metric func(targetSet mapset.Set[int32], rankList []int32) float32

// Evaluate evaluates a model in top-n tasks. Every user with positive items in
// the test set ranks all items which are not positive in the train set.
func Evaluate(ctx context.Context, estimator Predictor, testSet, trainSet *dataset.Interactions, topK, nJobs int) (Score, error) {
	nUsers, nItems := testSet.Dims()
	trainUsers, trainItems := trainSet.Dims()
	if nUsers != trainUsers || nItems != trainItems {
		return Score{}, errors.NotValidf("train set (%d, %d) and test set (%d, %d)", trainUsers, trainItems, nUsers, nItems)
	}
	nJobs = max(nJobs, 1)
	scorers := []Metric{NDCG, Precision, Recall}
	partSum := make([][]float32, nJobs)
	partCount := make([]float32, nJobs)
	for i := 0; i < nJobs; i++ {
		partSum[i] = make([]float32, len(scorers))
	}
	err := parallel.Parallel(ctx, nUsers, nJobs, func(workerId, userIndex int) error {
		targetSet := mapset.NewThreadUnsafeSet[int32]()
		candidates := make([]int32, 0, nItems)
		for itemIndex := 0; itemIndex < nItems; itemIndex++ {
			if testSet.At(userIndex, itemIndex) > 0 {
				targetSet.Add(int32(itemIndex))
			}
			if trainSet.At(userIndex, itemIndex) <= 0 {
				candidates = append(candidates, int32(itemIndex))
			}
		}
		if targetSet.Cardinality() == 0 {
			return nil
		}
		rankList := Rank(estimator, int32(userIndex), candidates, topK)
		partCount[workerId]++
		for i, metric := range scorers {
			partSum[workerId][i] += metric(targetSet, rankList)
		}
		return nil
	})
	if err != nil {
		return Score{}, errors.Trace(err)
	}
	sum := make([]float32, len(scorers))
	count := float32(0)
	for i := 0; i < nJobs; i++ {
		for j := range partSum[i] {
			sum[j] += partSum[i][j]
		}
		count += partCount[i]
	}
	if count == 0 {
		return Score{}, errors.NotValidf("test set without positive values")
	}
	return Score{
		NDCG:      sum[0] / count,
		Precision: sum[1] / count,
		Recall:    sum[2] / count,
	}, nil
}

// NDCG means Normalized Discounted Cumulative Gain.
func NDCG(targetSet mapset.Set[int32], rankList []int32) float32 {
	// IDCG = \sum^{|REL|}_{i=1} \frac {1} {\log_2(i+1)}
	idcg := float32(0)
	for i := 0; i < targetSet.Cardinality() && i < len(rankList); i++ {
		idcg += 1.0 / math32.Log2(float32(i)+2.0)
	}
	if idcg == 0 {
		return 0
	}
	// DCG = \sum^{N}_{i=1} \frac {2^{rel_i}-1} {\log_2(i+1)}
	dcg := float32(0)
	for i, itemId := range rankList {
		if targetSet.Contains(itemId) {
			dcg += 1.0 / math32.Log2(float32(i)+2.0)
		}
	}
	return dcg / idcg
}

// Precision is the fraction of relevant items among the recommended items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{retrieved documents}|}
func Precision(targetSet mapset.Set[int32], rankList []int32) float32 {
	if len(rankList) == 0 {
		return 0
	}
	hit := float32(0)
	for _, itemId := range rankList {
		if targetSet.Contains(itemId) {
			hit++
		}
	}
	return hit / float32(len(rankList))
}

// Recall is the fraction of relevant items that have been recommended over the total
// amount of relevant items.
//
//	\frac{|relevant documents| \cap |retrieved documents|} {|{relevant documents}|}
func Recall(targetSet mapset.Set[int32], rankList []int32) float32 {
	if targetSet.Cardinality() == 0 {
		return 0
	}
	hit := 0
	for _, itemId := range rankList {
		if targetSet.Contains(itemId) {
			hit++
		}
	}
	return float32(hit) / float32(targetSet.Cardinality())
}

// Rank gets the top-k items from candidates for a user.
func Rank(predictor Predictor, userIndex int32, candidates []int32, topK int) []int32 {
	scores := predictor.Predict(userIndex, candidates)
	filter := heap.NewTopKFilter[int32, float32](topK)
	for i, itemIndex := range candidates {
		filter.Push(itemIndex, scores[i])
	}
	return filter.PopAllValues()
}
