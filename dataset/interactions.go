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
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gorse-io/mfrec/base/log"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Interaction is a rating given by a user to an item.
type Interaction struct {
	UserId string
	ItemId string
	Rating float64
}

// Item is an item with a display name.
type Item struct {
	ItemId string
	Name   string
}

// InteractionOptions controls how ratings are aggregated.
type InteractionOptions struct {
	// Normalize maps every cell to 1 if it exceeds Threshold, otherwise 0.
	Normalize bool
	Threshold *float64
}

// Interactions is a dense user-item matrix. Rows are users and columns are items,
// both sorted ascending by id.
type Interactions struct {
	UserIds []string
	ItemIds []string
	Matrix  *mat.Dense
}

// BuildInteractions sums ratings of duplicated (user, item) pairs and pivots
// them into a dense matrix. Pairs absent from records are 0.
func BuildInteractions(records []Interaction, options InteractionOptions) (*Interactions, error) {
	if options.Normalize && options.Threshold == nil {
		return nil, errors.NotValidf("normalize without threshold")
	}
	interactions := &Interactions{
		UserIds: SortIds(lo.Uniq(lo.Map(records, func(r Interaction, _ int) string { return r.UserId }))),
		ItemIds: SortIds(lo.Uniq(lo.Map(records, func(r Interaction, _ int) string { return r.ItemId }))),
	}
	if len(records) == 0 {
		log.Logger().Warn("build interactions from empty records")
		return interactions, nil
	}
	userIndex := indexOf(interactions.UserIds)
	itemIndex := indexOf(interactions.ItemIds)
	interactions.Matrix = mat.NewDense(len(interactions.UserIds), len(interactions.ItemIds), nil)
	for _, r := range records {
		i, j := userIndex[r.UserId], itemIndex[r.ItemId]
		interactions.Matrix.Set(i, j, interactions.Matrix.At(i, j)+r.Rating)
	}
	if options.Normalize {
		threshold := *options.Threshold
		interactions.Matrix.Apply(func(_, _ int, v float64) float64 {
			if v > threshold {
				return 1
			}
			return 0
		}, interactions.Matrix)
	}
	log.Logger().Debug("build interactions",
		zap.Int("n_records", len(records)),
		zap.Int("n_users", len(interactions.UserIds)),
		zap.Int("n_items", len(interactions.ItemIds)))
	return interactions, nil
}

func indexOf(ids []string) map[string]int {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	return index
}

// Dims returns the number of users and items.
func (m *Interactions) Dims() (int, int) {
	return len(m.UserIds), len(m.ItemIds)
}

// CountUsers returns the number of rows.
func (m *Interactions) CountUsers() int {
	return len(m.UserIds)
}

// CountItems returns the number of columns.
func (m *Interactions) CountItems() int {
	return len(m.ItemIds)
}

// At returns the value of a cell.
func (m *Interactions) At(userIndex, itemIndex int) float64 {
	return m.Matrix.At(userIndex, itemIndex)
}

// Row returns a copy of the values of a user.
func (m *Interactions) Row(userIndex int) []float64 {
	return mat.Row(nil, userIndex, m.Matrix)
}

// ToCSR converts the matrix to a compressed sparse row matrix. Zero cells are skipped.
func (m *Interactions) ToCSR() *CSR {
	nUsers, nItems := m.Dims()
	csr := &CSR{
		NRows:  nUsers,
		NCols:  nItems,
		IndPtr: make([]int32, nUsers+1),
	}
	for i := 0; i < nUsers; i++ {
		for j := 0; j < nItems; j++ {
			if v := m.Matrix.At(i, j); v != 0 {
				csr.Indices = append(csr.Indices, int32(j))
				csr.Data = append(csr.Data, float32(v))
			}
		}
		csr.IndPtr[i+1] = int32(len(csr.Indices))
	}
	return csr
}

// CSR is a compressed sparse row matrix.
type CSR struct {
	NRows   int
	NCols   int
	IndPtr  []int32
	Indices []int32
	Data    []float32
}

// Len returns the number of stored values.
func (csr *CSR) Len() int {
	return len(csr.Indices)
}

// Row returns column indices and values of a row.
func (csr *CSR) Row(i int) ([]int32, []float32) {
	begin, end := csr.IndPtr[i], csr.IndPtr[i+1]
	return csr.Indices[begin:end], csr.Data[begin:end]
}

// Positives returns column indices of positive values in a row.
func (csr *CSR) Positives(i int) []int32 {
	indices, values := csr.Row(i)
	positives := make([]int32, 0, len(indices))
	for k, v := range values {
		if v > 0 {
			positives = append(positives, indices[k])
		}
	}
	return positives
}

// SortIds sorts ids ascending in place and returns them. Ids are compared as
// numbers if all of them are numeric, otherwise lexically.
func SortIds(ids []string) []string {
	if lo.EveryBy(ids, isNumeric) {
		slices.SortFunc(ids, func(a, b string) int {
			x, _ := strconv.ParseFloat(a, 64)
			y, _ := strconv.ParseFloat(b, 64)
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return strings.Compare(a, b)
			}
		})
	} else {
		slices.Sort(ids)
	}
	return ids
}

func isNumeric(s string) bool {
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v)
}
