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
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/cmd/version"
	"github.com/gorse-io/mfrec/config"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/storage"
	"github.com/gorse-io/mfrec/storage/blob"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "mfrec",
	Short: "Recommend items by matrix factorization on implicit feedback.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	rootCommand.Flags().BoolP("version", "v", false, "mfrec version")
}

// workspace holds loaded configuration and data for a command.
type workspace struct {
	conf         *config.Config
	files        *storage.Files
	interactions *dataset.Interactions
	userIndex    *dataset.UserIndex
	itemNames    dataset.ItemNames
}

func loadConfig(cmd *cobra.Command) *config.Config {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

// loadWorkspace reads interactions and items from the blob store and builds the interaction
// matrix with its dictionaries.
func loadWorkspace(cmd *cobra.Command) *workspace {
	conf := loadConfig(cmd)
	store, err := blob.Open(conf.Storage)
	if err != nil {
		log.Logger().Fatal("failed to open storage", zap.Error(err))
	}
	files := storage.NewFiles(store).SetProgress(true)
	ws, err := buildWorkspace(conf, files)
	if err != nil {
		log.Logger().Fatal("failed to load data", zap.Error(err))
	}
	return ws
}

func buildWorkspace(conf *config.Config, files *storage.Files) (*workspace, error) {
	records, err := files.LoadInteractions(conf.Data.Interactions, conf.Interactions)
	if err != nil {
		return nil, errors.Trace(err)
	}
	items, err := files.LoadItems(conf.Data.Items, conf.Items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	interactions, err := dataset.BuildInteractions(records, conf.Interactions.GetOptions())
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("build interactions",
		zap.Int("n_users", interactions.CountUsers()),
		zap.Int("n_items", interactions.CountItems()),
		zap.Int("n_records", len(records)))
	return &workspace{
		conf:         conf,
		files:        files,
		interactions: interactions,
		userIndex:    dataset.BuildUserIndex(interactions),
		itemNames:    dataset.BuildItemNames(items),
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCommand.ExecuteContext(ctx); err != nil {
		log.Logger().Fatal("failed to execute command", zap.Error(err))
	}
}
