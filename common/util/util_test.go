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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloat(t *testing.T) {
	v, err := ParseFloat[float32]("1.5")
	assert.NoError(t, err)
	assert.Equal(t, float32(1.5), v)
	_, err = ParseFloat[float64]("abc")
	assert.Error(t, err)
}

func TestCheckPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer CheckPanic()
		panic("boom")
	})
}
