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

package floats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubTo(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	c := make([]float32, 4)
	SubTo(a, b, c)
	assert.Equal(t, []float32{-4, -4, -4, -4}, c)
	assert.Panics(t, func() { SubTo([]float32{1}, nil, nil) })
}

func TestMulConst(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	MulConst(a, 2)
	assert.Equal(t, []float32{2, 4, 6, 8}, a)
}

func TestMulConstTo(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := make([]float32, 4)
	MulConstTo(a, 2, b)
	assert.Equal(t, []float32{2, 4, 6, 8}, b)
	assert.Panics(t, func() { MulConstTo([]float32{1}, 2, nil) })
}

func TestMulConstAdd(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	MulConstAdd(a, 2, b)
	assert.Equal(t, []float32{7, 10, 13, 16}, b)
	assert.Panics(t, func() { MulConstAdd([]float32{1}, 2, nil) })
}

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{5, 6, 7, 8}
	assert.Equal(t, float32(70), Dot(a, b))
	assert.Panics(t, func() { Dot([]float32{1}, nil) })
}

func TestSum(t *testing.T) {
	assert.Equal(t, float32(10), Sum([]float32{1, 2, 3, 4}))
	assert.Zero(t, Sum(nil))
}
