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
	"bytes"
	"fmt"
	"testing"

	"github.com/gorse-io/mfrec/dataset"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// mockPredictor returns fixed scores for every user.
type mockPredictor struct {
	scores []float32
}

func (m *mockPredictor) Predict(_ int32, itemIndices []int32) []float32 {
	return lo.Map(itemIndices, func(i int32, _ int) float32 { return m.scores[i] })
}

type RecommenderTestSuite struct {
	suite.Suite
	interactions *dataset.Interactions
	userIndex    *dataset.UserIndex
	itemNames    dataset.ItemNames
}

func (suite *RecommenderTestSuite) SetupTest() {
	var err error
	suite.interactions, err = dataset.BuildInteractions([]dataset.Interaction{
		{UserId: "u1", ItemId: "i1", Rating: 5},
		{UserId: "u1", ItemId: "i2", Rating: 0},
		{UserId: "u1", ItemId: "i3", Rating: 0},
		{UserId: "u2", ItemId: "i2", Rating: 1},
		{UserId: "u2", ItemId: "i3", Rating: 3},
	}, dataset.InteractionOptions{})
	suite.NoError(err)
	suite.userIndex = dataset.BuildUserIndex(suite.interactions)
	suite.itemNames = dataset.BuildItemNames([]dataset.Item{
		{ItemId: "i1", Name: "Chess"},
		{ItemId: "i2", Name: "Go"},
		{ItemId: "i3", Name: "Shogi"},
	})
}

func (suite *RecommenderTestSuite) quiet() RecommendOptions {
	options := NewRecommendOptions()
	options.ShowKnown = false
	options.ShowRecommended = false
	return options
}

func (suite *RecommenderTestSuite) TestRecommend() {
	// ranking is [i1, i2, i3] and i1 is known
	predictor := &mockPredictor{scores: []float32{3, 2, 1}}
	names, err := Recommend(predictor, suite.interactions, "u1", suite.userIndex, suite.itemNames, suite.quiet())
	suite.NoError(err)
	suite.Equal([]string{"Go", "Shogi"}, names)
}

func (suite *RecommenderTestSuite) TestKnownItemsExcluded() {
	predictor := &mockPredictor{scores: []float32{1, 2, 3}}
	names, err := Recommend(predictor, suite.interactions, "u2", suite.userIndex, suite.itemNames, suite.quiet())
	suite.NoError(err)
	suite.Equal([]string{"Chess"}, names)
	// raise threshold so that i2 is unknown
	options := suite.quiet()
	options.Threshold = 1
	names, err = Recommend(predictor, suite.interactions, "u2", suite.userIndex, suite.itemNames, options)
	suite.NoError(err)
	suite.Equal([]string{"Go", "Chess"}, names)
}

func (suite *RecommenderTestSuite) TestTruncate() {
	predictor := &mockPredictor{scores: []float32{1, 3, 2}}
	options := suite.quiet()
	options.Threshold = 10
	for n := 0; n <= 4; n++ {
		options.N = n
		names, err := Recommend(predictor, suite.interactions, "u1", suite.userIndex, suite.itemNames, options)
		suite.NoError(err)
		suite.Equal([]string{"Go", "Shogi", "Chess"}[:min(n, 3)], names)
	}
}

func (suite *RecommenderTestSuite) TestNegativeN() {
	predictor := &mockPredictor{scores: []float32{1, 3, 2}}
	options := suite.quiet()
	options.N = -1
	names, err := Recommend(predictor, suite.interactions, "u1", suite.userIndex, suite.itemNames, options)
	suite.True(errors.Is(err, errors.NotValid))
	suite.Nil(names)
}

func (suite *RecommenderTestSuite) TestTieBreak() {
	// equal scores keep column order
	predictor := &mockPredictor{scores: []float32{1, 1, 1}}
	options := suite.quiet()
	options.Threshold = 10
	names, err := Recommend(predictor, suite.interactions, "u1", suite.userIndex, suite.itemNames, options)
	suite.NoError(err)
	suite.Equal([]string{"Chess", "Go", "Shogi"}, names)
}

func (suite *RecommenderTestSuite) TestPrint() {
	predictor := &mockPredictor{scores: []float32{3, 2, 1}}
	buf := bytes.NewBuffer(nil)
	options := NewRecommendOptions()
	options.Writer = buf
	names, err := Recommend(predictor, suite.interactions, "u2", suite.userIndex, suite.itemNames, options)
	suite.NoError(err)
	suite.Equal([]string{"Chess"}, names)
	// known items are sorted descending by id
	suite.Equal("Known Likes:\n1- Shogi\n2- Go\n\n Recommended Items:\n1- Chess\n", buf.String())
	// printing doesn't change the result
	options.ShowKnown = false
	options.ShowRecommended = false
	quietNames, err := Recommend(predictor, suite.interactions, "u2", suite.userIndex, suite.itemNames, options)
	suite.NoError(err)
	suite.Equal(names, quietNames)
}

func (suite *RecommenderTestSuite) TestUnknownUser() {
	predictor := &mockPredictor{scores: []float32{3, 2, 1}}
	_, err := Recommend(predictor, suite.interactions, "u3", suite.userIndex, suite.itemNames, suite.quiet())
	suite.True(errors.Is(err, errors.NotFound))
}

func (suite *RecommenderTestSuite) TestMissingItemName() {
	predictor := &mockPredictor{scores: []float32{3, 2, 1}}
	itemNames := dataset.BuildItemNames([]dataset.Item{{ItemId: "i1", Name: "Chess"}})
	names, err := Recommend(predictor, suite.interactions, "u1", suite.userIndex, itemNames, suite.quiet())
	suite.True(errors.Is(err, errors.NotFound))
	suite.Nil(names)
}

func (suite *RecommenderTestSuite) TestLength() {
	// length = min(N, items - known)
	for u := 0; u < 2; u++ {
		userId := fmt.Sprintf("u%d", u+1)
		for n := 1; n <= 3; n++ {
			options := suite.quiet()
			options.N = n
			names, err := Recommend(&mockPredictor{scores: []float32{1, 2, 3}}, suite.interactions, userId, suite.userIndex, suite.itemNames, options)
			suite.NoError(err)
			nKnown := 0
			for _, v := range suite.interactions.Row(u) {
				if v > 0 {
					nKnown++
				}
			}
			suite.Len(names, min(n, 3-nKnown))
		}
	}
}

func TestRecommender(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}
