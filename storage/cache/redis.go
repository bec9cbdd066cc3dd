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

package cache

import (
	"bytes"
	"context"
	"time"

	"github.com/gorse-io/mfrec/base/encoding"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

const recommendPrefix = "recommend"

// Redis stores recommended item names per user.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Open connects to Redis by an URI such as redis://localhost:6379/0. A zero ttl keeps
// recommendations forever.
func Open(uri string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, errors.NewNotValid(err, "invalid redis uri")
	}
	return &Redis{client: redis.NewClient(opt), ttl: ttl}, nil
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return errors.Trace(r.client.Ping(ctx).Err())
}

func recommendKey(userId string) string {
	return recommendPrefix + "/" + userId
}

// SetRecommendations replaces the recommendations of a user.
func (r *Redis) SetRecommendations(ctx context.Context, userId string, names []string) error {
	buf := bytes.NewBuffer(nil)
	if err := encoding.WriteStrings(buf, names); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(r.client.Set(ctx, recommendKey(userId), buf.Bytes(), r.ttl).Err())
}

// GetRecommendations returns the recommendations of a user.
func (r *Redis) GetRecommendations(ctx context.Context, userId string) ([]string, error) {
	val, err := r.client.Get(ctx, recommendKey(userId)).Bytes()
	if err == redis.Nil {
		return nil, errors.NotFoundf("recommendations for user %s", userId)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	names, err := encoding.ReadStrings(bytes.NewReader(val))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return names, nil
}
