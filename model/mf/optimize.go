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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Result is the best trial found by ModelSearch.
type Result struct {
	Params model.Params
	Score  Score
}

// ModelSearch searches hyper-parameters of matrix factorization by NDCG on a test set.
type ModelSearch struct {
	ctx      context.Context
	params   model.Params
	trainSet *dataset.Interactions
	testSet  *dataset.Interactions
	topK     int
	config   *FitConfig
	result   Result
}

// NewModelSearch creates a searcher. Suggested parameters overwrite params.
func NewModelSearch(params model.Params, trainSet, testSet *dataset.Interactions, topK int, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		ctx:      context.Background(),
		params:   params,
		trainSet: trainSet,
		testSet:  testSet,
		topK:     topK,
		config:   config,
	}
}

// SuggestParams suggests hyper-parameters for a trial.
func SuggestParams(trial goptuna.Trial) (model.Params, error) {
	loss, err := trial.SuggestCategorical(string(model.Loss), Losses)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return model.Params{
		model.Loss:     loss,
		model.NFactors: lo.Must(trial.SuggestDiscreteFloat(string(model.NFactors), 8, 64, 8)),
		model.Lr:       lo.Must(trial.SuggestLogFloat(string(model.Lr), 0.001, 0.1)),
		model.Reg:      lo.Must(trial.SuggestLogFloat(string(model.Reg), 0.0001, 0.1)),
	}, nil
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if err := ms.ctx.Err(); err != nil {
		return 0, errors.Trace(err)
	}
	params, err := SuggestParams(trial)
	if err != nil {
		return 0, errors.Trace(err)
	}
	m := NewMatrixFactorization(ms.params.Overwrite(params))
	if err = m.Fit(ms.ctx, ms.trainSet.ToCSR(), ms.config); err != nil {
		return 0, errors.Trace(err)
	}
	score, err := Evaluate(ms.ctx, m, ms.testSet, ms.trainSet, ms.topK, ms.config.Jobs)
	if err != nil {
		return 0, errors.Trace(err)
	}
	log.Logger().Info("model search trial",
		zap.Any("params", params),
		zap.Float32("ndcg", score.NDCG),
		zap.Float32("precision", score.Precision),
		zap.Float32("recall", score.Recall))
	if ms.result.Params == nil || score.NDCG > ms.result.Score.NDCG {
		ms.result = Result{
			Params: m.GetParams(),
			Score:  score,
		}
	}
	return float64(score.NDCG), nil
}

func (ms *ModelSearch) Result() Result {
	return ms.result
}

// Optimize runs a TPE search for nTrials trials and returns the best result.
// Cancelling ctx stops training and fails the search.
func (ms *ModelSearch) Optimize(ctx context.Context, nTrials int) (Result, error) {
	ms.ctx = ctx
	study, err := goptuna.CreateStudy("mfrec",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	if err != nil {
		return Result{}, errors.Trace(err)
	}
	if err = study.Optimize(ms.Objective, nTrials); err != nil {
		return Result{}, errors.Trace(err)
	}
	if err = ctx.Err(); err != nil {
		return Result{}, errors.Trace(err)
	}
	return ms.result, nil
}
