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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestModelSearch(t *testing.T) {
	interactions := newClusteredInteractions(t, 20)
	train, test, err := dataset.Split(interactions, 0.2, 0)
	assert.NoError(t, err)
	search := NewModelSearch(model.Params{model.NEpochs: 2}, train, test, 5, NewFitConfig().SetJobs(1))
	study, err := goptuna.CreateStudy("TestModelSearch",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	assert.NoError(t, err)
	err = study.Optimize(search.Objective, 3)
	assert.NoError(t, err)
	v, _ := study.GetBestValue()
	result := search.Result()
	assert.InDelta(t, v, float64(result.Score.NDCG), 0.00001)
	assert.Equal(t, 2, result.Params.GetInt(model.NEpochs, 0))
	assert.Contains(t, Losses, result.Params.GetString(model.Loss, ""))
	nFactors := result.Params.GetInt(model.NFactors, 0)
	assert.True(t, nFactors >= 8 && nFactors <= 64 && nFactors%8 == 0)
}

func TestModelSearch_Optimize(t *testing.T) {
	interactions := newClusteredInteractions(t, 20)
	train, test, err := dataset.Split(interactions, 0.2, 0)
	assert.NoError(t, err)
	search := NewModelSearch(model.Params{model.NEpochs: 2}, train, test, 5, NewFitConfig().SetJobs(1))
	result, err := search.Optimize(context.Background(), 2)
	assert.NoError(t, err)
	assert.NotNil(t, result.Params)
	assert.True(t, lo.Contains(Losses, result.Params.GetString(model.Loss, "")))
}

func TestModelSearch_Cancel(t *testing.T) {
	interactions := newClusteredInteractions(t, 20)
	train, test, err := dataset.Split(interactions, 0.2, 0)
	assert.NoError(t, err)
	search := NewModelSearch(model.Params{model.NEpochs: 2}, train, test, 5, NewFitConfig().SetJobs(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = search.Optimize(ctx, 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, search.Result().Params)
}
