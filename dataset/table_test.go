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
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(",uid,id,owned\n" +
		"0,u1,i1,5\n" +
		"1,u1,i2,0\n" +
		"2,u2,i1,3\n"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"uid", "id", "owned"}, table.Columns)
	assert.Equal(t, 3, table.Len())
	users, err := table.Column("uid")
	assert.NoError(t, err)
	assert.Equal(t, []string{"u1", "u1", "u2"}, users)
	_, err = table.Column("rating")
	assert.True(t, errors.Is(err, errors.NotFound))
	// extract interactions
	records, err := table.Interactions("uid", "id", "owned")
	assert.NoError(t, err)
	assert.Equal(t, testRecords(), records)
	_, err = table.Interactions("uid", "id", "rating")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestReadCSVItems(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(",id,name\n" +
		"0,1,Chess\n" +
		"1,2,\"Go, the game\"\n"))
	assert.NoError(t, err)
	items, err := table.Items("id", "name")
	assert.NoError(t, err)
	assert.Equal(t, []Item{{ItemId: "1", Name: "Chess"}, {ItemId: "2", Name: "Go, the game"}}, items)
}

func TestReadCSVInvalid(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ReadCSV(strings.NewReader("id\n1\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = ReadCSV(strings.NewReader(",id,name\n0,1\n"))
	assert.True(t, errors.Is(err, errors.NotValid))
	table, err := ReadCSV(strings.NewReader(",uid,id,owned\n0,u1,i1,many\n"))
	assert.NoError(t, err)
	_, err = table.Interactions("uid", "id", "owned")
	assert.True(t, errors.Is(err, errors.NotValid))
}

func TestParseRating(t *testing.T) {
	for s, expected := range map[string]float64{
		"":      0,
		"1.5":   1.5,
		"True":  1,
		"false": 0,
		"0":     0,
	} {
		v, err := ParseRating(s)
		assert.NoError(t, err)
		assert.Equal(t, expected, v, s)
	}
}
