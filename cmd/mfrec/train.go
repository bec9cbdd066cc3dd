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
	"time"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a model and save it to storage.",
	Run: func(cmd *cobra.Command, args []string) {
		ws := loadWorkspace(cmd)
		start := time.Now()
		m, err := mf.Train(cmd.Context(), ws.interactions, ws.conf.Model.GetParams(), ws.conf.Model.GetFitConfig())
		if err != nil {
			log.Logger().Fatal("failed to train model", zap.Error(err))
		}
		if err = ws.files.SaveModel(ws.conf.Data.Model, m); err != nil {
			log.Logger().Fatal("failed to save model", zap.Error(err))
		}
		log.Logger().Info("save model",
			zap.String("file", ws.conf.Data.Model),
			zap.Duration("elapsed", time.Since(start)))
	},
}

func init() {
	rootCommand.AddCommand(trainCommand)
}
