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

package mf

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/chewxy/math32"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/mfrec/base"
	"github.com/gorse-io/mfrec/base/encoding"
	"github.com/gorse-io/mfrec/base/log"
	"github.com/gorse-io/mfrec/common/floats"
	"github.com/gorse-io/mfrec/common/parallel"
	"github.com/gorse-io/mfrec/dataset"
	"github.com/gorse-io/mfrec/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Supported loss functions.
const (
	WARP     = "warp"
	Logistic = "logistic"
	BPR      = "bpr"
)

// Losses lists supported loss functions.
var Losses = []string{WARP, Logistic, BPR}

// maxLoss clips WARP gradients.
const maxLoss = 10

// Predictor scores items for a user. Scores are aligned with itemIndices and
// a higher score means a stronger affinity.
type Predictor interface {
	Predict(userIndex int32, itemIndices []int32) []float32
}

type FitConfig struct {
	Jobs    int
	Verbose int
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:    4,
		Verbose: 10,
	}
}

func (config *FitConfig) SetVerbose(verbose int) *FitConfig {
	config.Verbose = verbose
	return config
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

// MatrixFactorization is a latent factor model with user and item biases. The
// affinity of user u to item i is estimated by:
//
//	\hat{r}_{ui} = p_u^T q_i + b_u + b_i
//
// Hyper-parameters:
//
//	 NFactors	- The number of latent factors. Default is 30.
//	 NEpochs	- The number of passes over positive interactions. Default is 30.
//	 Lr 		- The learning rate of SGD. Default is 0.05.
//	 Reg 		- The L2 regularization strength. Default is 0.
//	 Loss		- One of warp, logistic and bpr. Default is warp.
//	 MaxSampled	- The maximum number of negatives sampled by WARP. Default is 10.
//	 RandomState	- The random seed. Default is 0.
type MatrixFactorization struct {
	model.BaseModel
	// Model parameters
	UserFactor [][]float32 // p_u
	ItemFactor [][]float32 // q_i
	UserBias   []float32   // b_u
	ItemBias   []float32   // b_i
	// Users with positive interactions
	UserPredictable *bitset.BitSet
	// Hyper parameters
	nFactors   int
	nEpochs    int
	lr         float32
	reg        float32
	loss       string
	maxSampled int
}

// NewMatrixFactorization creates a matrix factorization model.
func NewMatrixFactorization(params model.Params) *MatrixFactorization {
	m := new(MatrixFactorization)
	m.SetParams(params)
	return m
}

// SetParams sets hyper-parameters of the model.
func (m *MatrixFactorization) SetParams(params model.Params) {
	m.BaseModel.SetParams(params)
	m.nFactors = m.Params.GetInt(model.NFactors, 30)
	m.nEpochs = m.Params.GetInt(model.NEpochs, 30)
	m.lr = m.Params.GetFloat32(model.Lr, 0.05)
	m.reg = m.Params.GetFloat32(model.Reg, 0)
	m.loss = m.Params.GetString(model.Loss, WARP)
	m.maxSampled = m.Params.GetInt(model.MaxSampled, 10)
}

// CountUsers returns the number of users.
func (m *MatrixFactorization) CountUsers() int {
	return len(m.UserFactor)
}

// CountItems returns the number of items.
func (m *MatrixFactorization) CountItems() int {
	return len(m.ItemFactor)
}

// IsUserPredictable returns false if a user has no positive interaction in the train set.
func (m *MatrixFactorization) IsUserPredictable(userIndex int32) bool {
	if userIndex < 0 || int(userIndex) >= m.CountUsers() {
		return false
	}
	return m.UserPredictable.Test(uint(userIndex))
}

// Predict scores items for a user. Unknown users or items score 0.
func (m *MatrixFactorization) Predict(userIndex int32, itemIndices []int32) []float32 {
	scores := make([]float32, len(itemIndices))
	if userIndex < 0 || int(userIndex) >= m.CountUsers() {
		log.Logger().Warn("unknown user", zap.Int32("user_index", userIndex))
		return scores
	}
	for i, itemIndex := range itemIndices {
		if itemIndex < 0 || int(itemIndex) >= m.CountItems() {
			log.Logger().Warn("unknown item", zap.Int32("item_index", itemIndex))
			continue
		}
		scores[i] = m.internalPredict(userIndex, itemIndex)
	}
	return scores
}

func (m *MatrixFactorization) internalPredict(userIndex, itemIndex int32) float32 {
	return floats.Dot(m.UserFactor[userIndex], m.ItemFactor[itemIndex]) + m.UserBias[userIndex] + m.ItemBias[itemIndex]
}

// Init initializes factors uniformly in (-0.5/k, 0.5/k) and biases with zeros.
func (m *MatrixFactorization) Init(nUsers, nItems int) {
	scale := 0.5 / float32(m.nFactors)
	m.UserFactor = m.GetRandomGenerator().UniformMatrix(nUsers, m.nFactors, -scale, scale)
	m.ItemFactor = m.GetRandomGenerator().UniformMatrix(nItems, m.nFactors, -scale, scale)
	m.UserBias = make([]float32, nUsers)
	m.ItemBias = make([]float32, nItems)
	m.UserPredictable = bitset.New(uint(nUsers))
}

// Fit the model on positive interactions of a train set. Each epoch visits every
// positive interaction once in random order. Updates run on config.Jobs goroutines
// without locks.
func (m *MatrixFactorization) Fit(ctx context.Context, trainSet *dataset.CSR, config *FitConfig) error {
	if config == nil {
		config = NewFitConfig()
	}
	if !lo.Contains(Losses, m.loss) {
		return errors.NotValidf("loss %s", m.loss)
	}
	if m.nFactors <= 0 || m.nEpochs <= 0 {
		return errors.NotValidf("n_factors %d or n_epochs %d", m.nFactors, m.nEpochs)
	}
	if trainSet.NRows == 0 || trainSet.NCols == 0 {
		return errors.NotValidf("interaction matrix of shape (%d, %d)", trainSet.NRows, trainSet.NCols)
	}
	// Collect positive interactions
	var users, items []int32
	positives := make([]mapset.Set[int32], trainSet.NRows)
	for u := 0; u < trainSet.NRows; u++ {
		userPositives := trainSet.Positives(u)
		positives[u] = mapset.NewThreadUnsafeSet(userPositives...)
		for _, i := range userPositives {
			users = append(users, int32(u))
			items = append(items, i)
		}
	}
	if len(users) == 0 {
		return errors.NotValidf("interaction matrix without positive values")
	}
	jobs := max(config.Jobs, 1)
	log.Logger().Info("fit matrix factorization",
		zap.Int("n_users", trainSet.NRows),
		zap.Int("n_items", trainSet.NCols),
		zap.Int("n_positives", len(users)),
		zap.Any("params", m.GetParams()),
		zap.Any("config", config))
	m.Init(trainSet.NRows, trainSet.NCols)
	for u := range positives {
		if positives[u].Cardinality() > 0 {
			m.UserPredictable.Set(uint(u))
		}
	}
	// Create buffers
	userFactor := base.NewMatrix32(jobs, m.nFactors)
	positiveItemFactor := base.NewMatrix32(jobs, m.nFactors)
	negativeItemFactor := base.NewMatrix32(jobs, m.nFactors)
	temp := base.NewMatrix32(jobs, m.nFactors)
	rng := make([]base.RandomGenerator, jobs)
	for i := 0; i < jobs; i++ {
		rng[i] = base.NewRandomGenerator(m.GetRandomGenerator().Int63())
	}
	nItems := int32(trainSet.NCols)
	// Sample an item which is not positive for the user.
	sampleNegative := func(workerId int, userIndex int32) (int32, bool) {
		if positives[userIndex].Cardinality() >= int(nItems) {
			return -1, false
		}
		for {
			negIndex := rng[workerId].Int31n(nItems)
			if !positives[userIndex].Contains(negIndex) {
				return negIndex, true
			}
		}
	}
	// Move a user and two items along the gradient of a pairwise loss. The
	// gradient coefficient is applied to p_u^T (q_i - q_j) + b_i - b_j.
	pairwiseUpdate := func(workerId int, userIndex, posIndex, negIndex int32, grad float32) {
		copy(userFactor[workerId], m.UserFactor[userIndex])
		copy(positiveItemFactor[workerId], m.ItemFactor[posIndex])
		copy(negativeItemFactor[workerId], m.ItemFactor[negIndex])
		// Update positive item latent factor: +w_u
		floats.MulConstTo(userFactor[workerId], grad, temp[workerId])
		floats.MulConstAdd(positiveItemFactor[workerId], -m.reg, temp[workerId])
		floats.MulConstAdd(temp[workerId], m.lr, m.ItemFactor[posIndex])
		// Update negative item latent factor: -w_u
		floats.MulConstTo(userFactor[workerId], -grad, temp[workerId])
		floats.MulConstAdd(negativeItemFactor[workerId], -m.reg, temp[workerId])
		floats.MulConstAdd(temp[workerId], m.lr, m.ItemFactor[negIndex])
		// Update user latent factor: h_i-h_j
		floats.SubTo(positiveItemFactor[workerId], negativeItemFactor[workerId], temp[workerId])
		floats.MulConst(temp[workerId], grad)
		floats.MulConstAdd(userFactor[workerId], -m.reg, temp[workerId])
		floats.MulConstAdd(temp[workerId], m.lr, m.UserFactor[userIndex])
		// Update biases
		m.ItemBias[posIndex] += m.lr * (grad - m.reg*m.ItemBias[posIndex])
		m.ItemBias[negIndex] += m.lr * (-grad - m.reg*m.ItemBias[negIndex])
	}
	// Move a user and an item along the gradient of a pointwise loss.
	pointwiseUpdate := func(workerId int, userIndex, itemIndex int32, grad float32) {
		copy(userFactor[workerId], m.UserFactor[userIndex])
		copy(positiveItemFactor[workerId], m.ItemFactor[itemIndex])
		// Update item latent factor
		floats.MulConstTo(userFactor[workerId], grad, temp[workerId])
		floats.MulConstAdd(positiveItemFactor[workerId], -m.reg, temp[workerId])
		floats.MulConstAdd(temp[workerId], m.lr, m.ItemFactor[itemIndex])
		// Update user latent factor
		floats.MulConstTo(positiveItemFactor[workerId], grad, temp[workerId])
		floats.MulConstAdd(userFactor[workerId], -m.reg, temp[workerId])
		floats.MulConstAdd(temp[workerId], m.lr, m.UserFactor[userIndex])
		// Update biases
		m.UserBias[userIndex] += m.lr * (grad - m.reg*m.UserBias[userIndex])
		m.ItemBias[itemIndex] += m.lr * (grad - m.reg*m.ItemBias[itemIndex])
	}
	order := make([]int, len(users))
	for i := range order {
		order[i] = i
	}
	for epoch := 1; epoch <= m.nEpochs; epoch++ {
		fitStart := time.Now()
		m.GetRandomGenerator().Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		cost := make([]float32, jobs)
		err := parallel.Parallel(ctx, len(order), jobs, func(workerId, jobId int) error {
			userIndex, posIndex := users[order[jobId]], items[order[jobId]]
			switch m.loss {
			case WARP:
				posScore := m.internalPredict(userIndex, posIndex)
				for sampled := 1; sampled <= m.maxSampled; sampled++ {
					negIndex := rng[workerId].Int31n(nItems)
					negScore := m.internalPredict(userIndex, negIndex)
					if negScore > posScore-1 {
						if positives[userIndex].Contains(negIndex) {
							continue
						}
						weight := math32.Log(max(1, math32.Floor(float32(nItems-1)/float32(sampled))))
						weight = min(weight, maxLoss)
						cost[workerId] += weight * (1 - posScore + negScore)
						pairwiseUpdate(workerId, userIndex, posIndex, negIndex, weight)
						break
					}
				}
			case BPR:
				negIndex, ok := sampleNegative(workerId, userIndex)
				if !ok {
					return nil
				}
				diff := m.internalPredict(userIndex, posIndex) - m.internalPredict(userIndex, negIndex)
				cost[workerId] += math32.Log1p(math32.Exp(-diff))
				grad := math32.Exp(-diff) / (1.0 + math32.Exp(-diff))
				pairwiseUpdate(workerId, userIndex, posIndex, negIndex, grad)
			case Logistic:
				// positive label
				score := m.internalPredict(userIndex, posIndex)
				cost[workerId] += math32.Log1p(math32.Exp(-score))
				pointwiseUpdate(workerId, userIndex, posIndex, 1-sigmoid(score))
				// negative label
				negIndex, ok := sampleNegative(workerId, userIndex)
				if !ok {
					return nil
				}
				score = m.internalPredict(userIndex, negIndex)
				cost[workerId] += math32.Log1p(math32.Exp(score))
				pointwiseUpdate(workerId, userIndex, negIndex, -sigmoid(score))
			}
			return nil
		})
		if err != nil {
			return errors.Trace(err)
		}
		fitTime := time.Since(fitStart)
		if config.Verbose > 0 && (epoch%config.Verbose == 0 || epoch == m.nEpochs) {
			log.Logger().Info(fmt.Sprintf("fit matrix factorization %v/%v", epoch, m.nEpochs),
				zap.String("loss", m.loss),
				zap.Float32("cost", floats.Sum(cost)/float32(len(order))),
				zap.String("fit_time", fitTime.String()))
		}
	}
	log.Logger().Info("fit matrix factorization complete",
		zap.Int("n_epochs", m.nEpochs))
	return nil
}

func sigmoid(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

// Clear model weights.
func (m *MatrixFactorization) Clear() {
	m.UserFactor = nil
	m.ItemFactor = nil
	m.UserBias = nil
	m.ItemBias = nil
	m.UserPredictable = nil
}

// Invalid returns true if the model has not been trained.
func (m *MatrixFactorization) Invalid() bool {
	return m == nil ||
		m.UserFactor == nil ||
		m.ItemFactor == nil
}

// Marshal model into byte stream.
func (m *MatrixFactorization) Marshal(w io.Writer) error {
	// write params
	if err := encoding.WriteGob(w, m.Params); err != nil {
		return errors.Trace(err)
	}
	// write shape
	shape := []int64{int64(m.CountUsers()), int64(m.CountItems()), int64(m.nFactors)}
	if err := binary.Write(w, binary.LittleEndian, shape); err != nil {
		return errors.Trace(err)
	}
	// write user predictable flags
	if err := encoding.WriteGob(w, m.UserPredictable); err != nil {
		return errors.Trace(err)
	}
	// write factors and biases
	if err := encoding.WriteMatrix(w, m.UserFactor); err != nil {
		return errors.Trace(err)
	}
	if err := encoding.WriteMatrix(w, m.ItemFactor); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.UserBias); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.ItemBias); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// Unmarshal model from byte stream.
func (m *MatrixFactorization) Unmarshal(r io.Reader) error {
	// read params
	var params model.Params
	if err := encoding.ReadGob(r, &params); err != nil {
		return errors.Trace(err)
	}
	m.SetParams(params)
	// read shape
	shape := make([]int64, 3)
	if err := binary.Read(r, binary.LittleEndian, shape); err != nil {
		return errors.Trace(err)
	}
	if shape[0] < 0 || shape[1] < 0 || m.nFactors <= 0 || shape[2] != int64(m.nFactors) {
		return errors.NotValidf("model shape %v", shape)
	}
	nUsers, nItems := int(shape[0]), int(shape[1])
	// read user predictable flags
	m.UserPredictable = bitset.New(0)
	if err := encoding.ReadGob(r, m.UserPredictable); err != nil {
		return errors.Trace(err)
	}
	// read factors and biases
	var err error
	if m.UserFactor, err = encoding.ReadMatrixN(r, nUsers, m.nFactors); err != nil {
		return errors.Trace(err)
	}
	if m.ItemFactor, err = encoding.ReadMatrixN(r, nItems, m.nFactors); err != nil {
		return errors.Trace(err)
	}
	if m.UserBias, err = encoding.ReadFloat32s(r, nUsers); err != nil {
		return errors.Trace(err)
	}
	if m.ItemBias, err = encoding.ReadFloat32s(r, nItems); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// modelName is written in front of a marshaled model.
const modelName = "mf"

// MarshalModel writes a model with a header.
func MarshalModel(w io.Writer, m *MatrixFactorization) error {
	if m.Invalid() {
		return errors.NotValidf("untrained model")
	}
	if err := encoding.WriteString(w, modelName); err != nil {
		return errors.Trace(err)
	}
	if err := m.Marshal(w); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// UnmarshalModel reads a model written by MarshalModel.
func UnmarshalModel(r io.Reader) (*MatrixFactorization, error) {
	name, err := encoding.ReadString(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if name != modelName {
		return nil, errors.NotValidf("model %s", name)
	}
	m := new(MatrixFactorization)
	if err = m.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}

// Train builds a model from an interaction matrix.
func Train(ctx context.Context, interactions *dataset.Interactions, params model.Params, config *FitConfig) (*MatrixFactorization, error) {
	m := NewMatrixFactorization(params)
	if err := m.Fit(ctx, interactions.ToCSR(), config); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}
