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

package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/common/util"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Table is a typed view over a CSV file. The leading index column of the
// file is discarded when the table is read.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// ReadCSV reads a table from r. The first line holds column names and the
// first column of every line is an index which is dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(records) == 0 {
		return nil, errors.NotValidf("empty csv")
	}
	header := records[0]
	if len(header) < 2 {
		return nil, errors.NotValidf("csv with %d columns", len(header))
	}
	table := &Table{
		Columns: header[1:],
		Rows:    make([][]string, 0, len(records)-1),
		index:   make(map[string]int, len(header)-1),
	}
	for i, name := range table.Columns {
		table.index[name] = i
	}
	for lineNumber, record := range records[1:] {
		if len(record) != len(header) {
			return nil, errors.NotValidf("line %d has %d fields, expect %d", lineNumber+2, len(record), len(header))
		}
		table.Rows = append(table.Rows, record[1:])
	}
	log.Logger().Debug("read csv",
		zap.Strings("columns", table.Columns),
		zap.Int("n_rows", len(table.Rows)))
	return table, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns all values of a column.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.NotFoundf("column %s", name)
	}
	values := make([]string, len(t.Rows))
	for j, row := range t.Rows {
		values[j] = row[i]
	}
	return values, nil
}

// Interactions extracts interaction records from the user, item and rating columns.
func (t *Table) Interactions(userColumn, itemColumn, ratingColumn string) ([]Interaction, error) {
	users, err := t.Column(userColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	items, err := t.Column(itemColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ratings, err := t.Column(ratingColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	records := make([]Interaction, len(t.Rows))
	for i := range t.Rows {
		rating, err := ParseRating(ratings[i])
		if err != nil {
			return nil, errors.Annotatef(err, "row %d", i)
		}
		records[i] = Interaction{UserId: users[i], ItemId: items[i], Rating: rating}
	}
	return records, nil
}

// Items extracts item records from the id and name columns.
func (t *Table) Items(idColumn, nameColumn string) ([]Item, error) {
	ids, err := t.Column(idColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	names, err := t.Column(nameColumn)
	if err != nil {
		return nil, errors.Trace(err)
	}
	items := make([]Item, len(t.Rows))
	for i := range t.Rows {
		items[i] = Item{ItemId: ids[i], Name: names[i]}
	}
	return items, nil
}

// ParseRating parses a rating cell. Booleans count as 1 and 0, empty cells as 0.
func ParseRating(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if v, err := util.ParseFloat[float64](s); err == nil {
		return v, nil
	}
	if b, err := strconv.ParseBool(s); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	return 0, errors.NotValidf("rating %q", s)
}
