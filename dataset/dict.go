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
	"github.com/juju/errors"
)

// UserIndex maps user ids to row indices of an interaction matrix.
type UserIndex struct {
	si map[string]int32
	is []string
}

// NewUserIndex creates an empty UserIndex.
func NewUserIndex() *UserIndex {
	return &UserIndex{si: make(map[string]int32)}
}

// BuildUserIndex assigns sequential indices to users in row order.
func BuildUserIndex(interactions *Interactions) *UserIndex {
	idx := NewUserIndex()
	for _, userId := range interactions.UserIds {
		idx.Add(userId)
	}
	return idx
}

// Add inserts a user id and returns its index. An existing id keeps its index.
func (idx *UserIndex) Add(userId string) int32 {
	if i, ok := idx.si[userId]; ok {
		return i
	}
	i := int32(len(idx.is))
	idx.si[userId] = i
	idx.is = append(idx.is, userId)
	return i
}

// Index returns the row index of a user.
func (idx *UserIndex) Index(userId string) (int32, error) {
	if i, ok := idx.si[userId]; ok {
		return i, nil
	}
	return -1, errors.NotFoundf("user %s", userId)
}

// Id returns the user id of a row index.
func (idx *UserIndex) Id(index int32) (string, bool) {
	if index < 0 || int(index) >= len(idx.is) {
		return "", false
	}
	return idx.is[index], true
}

// Count returns the number of users.
func (idx *UserIndex) Count() int32 {
	return int32(len(idx.is))
}

// ItemNames maps item ids to display names.
type ItemNames map[string]string

// BuildItemNames builds an ItemNames from items. Later duplicates overwrite earlier ones.
func BuildItemNames(items []Item) ItemNames {
	names := make(ItemNames, len(items))
	for _, item := range items {
		names[item.ItemId] = item.Name
	}
	return names
}

// Name returns the display name of an item.
func (names ItemNames) Name(itemId string) (string, error) {
	if name, ok := names[itemId]; ok {
		return name, nil
	}
	return "", errors.NotFoundf("item %s", itemId)
}

// Names translates item ids to display names. It fails on the first unknown id.
func (names ItemNames) Names(itemIds []string) ([]string, error) {
	result := make([]string, len(itemIds))
	for i, itemId := range itemIds {
		name, err := names.Name(itemId)
		if err != nil {
			return nil, errors.Trace(err)
		}
		result[i] = name
	}
	return result, nil
}
