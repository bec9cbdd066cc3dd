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

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Tune hyper-parameters by tree-structured Parzen estimators.",
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd)
		conf := ws.conf
		if cmd.Flags().Changed("trials") {
			conf.Tune.Trials, _ = cmd.Flags().GetInt("trials")
		}
		trainSet, testSet, err := dataset.Split(ws.interactions, conf.Evaluate.TestRatio, conf.Evaluate.RandomState)
		if err != nil {
			log.Logger().Fatal("failed to split interactions", zap.Error(err))
		}
		start := time.Now()
		search := mf.NewModelSearch(conf.Model.GetParams(), trainSet, testSet, conf.Evaluate.TopK, conf.Model.GetFitConfig())
		result, err := search.Optimize(cmd.Context(), conf.Tune.Trials)
		if err != nil {
			log.Logger().Fatal("failed to tune model", zap.Error(err))
		}
		log.Logger().Info("tune model",
			zap.Int("n_trials", conf.Tune.Trials),
			zap.Duration("elapsed", time.Since(start)))
		if err = renderResult(os.Stdout, conf.Evaluate.TopK, result); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}

func init() {
	rootCommand.AddCommand(tuneCommand)
	tuneCommand.Flags().Int("trials", 10, "number of trials")
}

func renderResult(w io.Writer, topK int, result mf.Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Param", "Value")
	rows := [][]string{
		{string(model.Loss), fmt.Sprint(result.Params[model.Loss])},
		{string(model.NFactors), fmt.Sprint(result.Params[model.NFactors])},
		{string(model.Lr), fmt.Sprint(result.Params[model.Lr])},
		{string(model.Reg), fmt.Sprint(result.Params[model.Reg])},
		{fmt.Sprintf("NDCG@%d", topK), fmt.Sprintf("%f", result.Score.NDCG)},
		{fmt.Sprintf("Precision@%d", topK), fmt.Sprintf("%f", result.Score.Precision)},
		{fmt.Sprintf("Recall@%d", topK), fmt.Sprintf("%f", result.Score.Recall)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
