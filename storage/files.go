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

package storage

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/gorse-io/mfrec/base/encoding"
	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/config"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model/mf"
	"github.com/gorse-io/mfrec/storage/blob"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Files reads and writes data files in a blob store.
type Files struct {
	store    blob.Store
	progress bool
}

func NewFiles(store blob.Store) *Files {
	return &Files{store: store}
}

// SetProgress shows a progress bar on stderr while reading CSV files.
func (f *Files) SetProgress(progress bool) *Files {
	f.progress = progress
	return f
}

// LoadTable reads a CSV file. Files with the .gz suffix are decompressed.
func (f *Files) LoadTable(name string) (*dataset.Table, error) {
	file, err := f.store.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer file.Close()
	var r io.Reader = file
	if sizer, ok := f.store.(blob.Sizer); ok && f.progress {
		if size, err := sizer.Stat(name); err == nil {
			pbReader := progressbar.NewReader(file, progressbar.DefaultBytes(size, "Loading "+name))
			r = &pbReader
		}
	}
	if strings.HasSuffix(name, ".gz") {
		gzipReader, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer gzipReader.Close()
		r = gzipReader
	}
	table, err := dataset.ReadCSV(r)
	if err != nil {
		return nil, errors.Annotatef(err, "failed to read %s", name)
	}
	return table, nil
}

// LoadInteractions reads interaction records from a CSV file.
func (f *Files) LoadInteractions(name string, cfg config.InteractionsConfig) ([]dataset.Interaction, error) {
	table, err := f.LoadTable(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	records, err := table.Interactions(cfg.UserColumn, cfg.ItemColumn, cfg.RatingColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("load interactions", zap.String("file", name), zap.Int("n_records", len(records)))
	return records, nil
}

// LoadItems reads items from a CSV file.
func (f *Files) LoadItems(name string, cfg config.ItemsConfig) ([]dataset.Item, error) {
	table, err := f.LoadTable(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	items, err := table.Items(cfg.IdColumn, cfg.NameColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("load items", zap.String("file", name), zap.Int("n_items", len(items)))
	return items, nil
}

// create opens a file for writing and waits for the store to persist it.
func (f *Files) create(name string, write func(w io.Writer) error) error {
	w, done, err := f.store.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	if err = write(w); err != nil {
		_ = w.Close()
		<-done
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		return errors.Trace(err)
	}
	<-done
	return nil
}

// ExportRecommendations writes recommended item names. An existing file is overwritten.
func (f *Files) ExportRecommendations(name string, names []string) error {
	return f.create(name, func(w io.Writer) error {
		return encoding.WriteStrings(w, names)
	})
}

// ImportRecommendations reads item names written by ExportRecommendations.
func (f *Files) ImportRecommendations(name string) ([]string, error) {
	r, err := f.store.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	names, err := encoding.ReadStrings(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return names, nil
}

// SaveModel writes a trained model.
func (f *Files) SaveModel(name string, m *mf.MatrixFactorization) error {
	return f.create(name, func(w io.Writer) error {
		return mf.MarshalModel(w, m)
	})
}

// LoadModel reads a model written by SaveModel.
func (f *Files) LoadModel(name string) (*mf.MatrixFactorization, error) {
	r, err := f.store.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	m, err := mf.UnmarshalModel(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}
