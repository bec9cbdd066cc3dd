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

package logics

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RecommendOptions controls which items are known and how lists are printed.
type RecommendOptions struct {
	// Threshold is the value above which an item is known to the user.
	Threshold float64
	// N is the number of recommended items.
	N               int
	ShowKnown       bool
	ShowRecommended bool
	// Writer receives printed lists. Stdout is used if nil.
	Writer io.Writer
}

// NewRecommendOptions returns options printing both lists with ten recommendations.
func NewRecommendOptions() RecommendOptions {
	return RecommendOptions{
		Threshold:       0,
		N:               10,
		ShowKnown:       true,
		ShowRecommended: true,
	}
}

// Recommend ranks items which are unknown to a user and returns the display
// names of the top N items.
func Recommend(
	predictor mf.Predictor,
	interactions *dataset.Interactions,
	userId string,
	userIndex *dataset.UserIndex,
	itemNames dataset.ItemNames,
	options RecommendOptions,
) ([]string, error) {
	if options.N < 0 {
		return nil, errors.NotValidf("n %d", options.N)
	}
	index, err := userIndex.Index(userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	nItems := interactions.CountItems()
	if int(index) >= interactions.CountUsers() {
		return nil, errors.NotFoundf("row %d of user %s", index, userId)
	}
	// rank all items
	itemIndices := lo.Map(lo.Range(nItems), func(i int, _ int) int32 { return int32(i) })
	scores := predictor.Predict(index, itemIndices)
	if len(scores) != nItems {
		return nil, errors.NotValidf("%d scores for %d items", len(scores), nItems)
	}
	ranked := slices.Clone(itemIndices)
	slices.SortStableFunc(ranked, func(a, b int32) int {
		return cmp.Compare(scores[b], scores[a])
	})
	// find known items
	known := bitset.New(uint(nItems))
	row := interactions.Row(int(index))
	for i, v := range row {
		if v > options.Threshold {
			known.Set(uint(i))
		}
	}
	// columns are sorted ascending by id
	knownIds := make([]string, 0, known.Count())
	for i := nItems - 1; i >= 0; i-- {
		if known.Test(uint(i)) {
			knownIds = append(knownIds, interactions.ItemIds[i])
		}
	}
	recommendIds := make([]string, 0, options.N)
	for _, i := range ranked {
		if len(recommendIds) >= options.N {
			break
		}
		if !known.Test(uint(i)) {
			recommendIds = append(recommendIds, interactions.ItemIds[i])
		}
	}
	// translate to names
	knownNames, err := itemNames.Names(knownIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendNames, err := itemNames.Names(recommendIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("recommend",
		zap.String("user_id", userId),
		zap.Int("n_known", len(knownNames)),
		zap.Int("n_recommend", len(recommendNames)))
	// print lists
	w := options.Writer
	if w == nil {
		w = os.Stdout
	}
	if options.ShowKnown {
		if err = printList(w, "Known Likes:", knownNames); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if options.ShowRecommended {
		if err = printList(w, "\n Recommended Items:", recommendNames); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return recommendNames, nil
}

func printList(w io.Writer, title string, names []string) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for i, name := range names {
		if _, err := fmt.Fprintf(w, "%d- %s\n", i+1, name); err != nil {
			return err
		}
	}
	return nil
}
