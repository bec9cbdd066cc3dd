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
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var evaluateCommand = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate the model on held out interactions.",
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd)
		conf := ws.conf
		if cmd.Flags().Changed("top-k") {
			conf.Evaluate.TopK, _ = cmd.Flags().GetInt("top-k")
		}
		trainSet, testSet, err := dataset.Split(ws.interactions, conf.Evaluate.TestRatio, conf.Evaluate.RandomState)
		if err != nil {
			log.Logger().Fatal("failed to split interactions", zap.Error(err))
		}
		start := time.Now()
		m, err := mf.Train(cmd.Context(), trainSet, conf.Model.GetParams(), conf.Model.GetFitConfig())
		if err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
		score, err := mf.Evaluate(cmd.Context(), m, testSet, trainSet, conf.Evaluate.TopK, conf.Model.Jobs)
		if err != nil {
			log.Logger().Fatal("failed to evaluate model", zap.Error(err))
		}
		log.Logger().Info("evaluate model", zap.Duration("elapsed", time.Since(start)))
		if err = renderScore(os.Stdout, conf.Evaluate.TopK, score); err != nil {
			log.Logger().Fatal("failed to render table", zap.Error(err))
		}
	},
}

func init() {
	rootCommand.AddCommand(evaluateCommand)
	evaluateCommand.Flags().Int("top-k", 10, "length of recommendation list")
}

func renderScore(w io.Writer, topK int, score mf.Score) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Score")
	rows := [][]string{
		{fmt.Sprintf("NDCG@%d", topK), fmt.Sprintf("%f", score.NDCG)},
		{fmt.Sprintf("Precision@%d", topK), fmt.Sprintf("%f", score.Precision)},
		{fmt.Sprintf("Recall@%d", topK), fmt.Sprintf("%f", score.Recall)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(table.Render())
}
