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
	"io"
	"os"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/logics"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/gorse-io/mfrec/storage/cache"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recommendCommand = &cobra.Command{
	Use:   "recommend <user-id>",
	Short: "Recommend items to a user.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userId := args[0]
		ws := loadWorkspace(cmd)
		conf := ws.conf
		options := logics.NewRecommendOptions()
		options.Threshold = conf.Recommend.KnownThreshold
		options.N = conf.Recommend.N
		options.ShowKnown = conf.Recommend.ShowKnown
		options.ShowRecommended = conf.Recommend.ShowRecommended
		if cmd.Flags().Changed("n") {
			options.N, _ = cmd.Flags().GetInt("n")
		}
		if cmd.Flags().Changed("threshold") {
			options.Threshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			options.Writer = io.Discard
		} else {
			options.Writer = os.Stdout
		}

		// train or load model
		var (
			m   *mf.MatrixFactorization
			err error
		)
		if load, _ := cmd.Flags().GetBool("load"); load {
			m, err = ws.files.LoadModel(conf.Data.Model)
			if err != nil {
				log.Logger().Fatal("failed to load model", zap.String("file", conf.Data.Model), zap.Error(err))
			}
			if m.CountUsers() != ws.interactions.CountUsers() || m.CountItems() != ws.interactions.CountItems() {
				log.Logger().Fatal("model does not match interactions",
					zap.Int("model_users", m.CountUsers()),
					zap.Int("model_items", m.CountItems()),
					zap.Int("n_users", ws.interactions.CountUsers()),
					zap.Int("n_items", ws.interactions.CountItems()))
			}
		} else {
			m, err = mf.Train(cmd.Context(), ws.interactions, conf.Model.GetParams(), conf.Model.GetFitConfig())
			if err != nil {
				log.Logger().Fatal("failed to train model", zap.Error(err))
			}
		}

		names, err := logics.Recommend(m, ws.interactions, userId, ws.userIndex, ws.itemNames, options)
		if err != nil {
			log.Logger().Fatal("failed to recommend", zap.String("user_id", userId), zap.Error(err))
		}
		if err = ws.files.ExportRecommendations(conf.Data.Recommendations, names); err != nil {
			log.Logger().Fatal("failed to export recommendations", zap.Error(err))
		}
		log.Logger().Info("export recommendations",
			zap.String("user_id", userId),
			zap.String("file", conf.Data.Recommendations),
			zap.Int("n_items", len(names)))

		// push to redis
		if conf.Cache.RedisURI != "" {
			client, err := cache.Open(conf.Cache.RedisURI, conf.Cache.TTL)
			if err != nil {
				log.Logger().Fatal("failed to connect redis", zap.Error(err))
			}
			defer client.Close()
			if err = client.SetRecommendations(cmd.Context(), userId, names); err != nil {
				log.Logger().Fatal("failed to cache recommendations", zap.Error(err))
			}
		}
	},
}

func init() {
	rootCommand.AddCommand(recommendCommand)
	recommendCommand.Flags().Bool("load", false, "load the saved model instead of training")
	recommendCommand.Flags().Int("n", 10, "number of recommended items")
	recommendCommand.Flags().Float64("threshold", 0, "value above which an item is known to the user")
	recommendCommand.Flags().BoolP("quiet", "q", false, "do not print lists")
}
