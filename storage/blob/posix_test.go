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

package blob

import (
	"io"
	"os"
	"path"
	"testing"

	"github.com/gorse-io/mfrec/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestPOSIX(t *testing.T) {
	// create client
	client := NewPOSIX(path.Join(t.TempDir(), "blob"))

	// write a temp file
	w, done, err := client.Create("test")
	assert.NoError(t, err)
	_, err = w.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	<-done

	// stat the file
	size, err := client.Stat("test")
	assert.NoError(t, err)
	assert.Equal(t, int64(11), size)

	// read the file
	r, err := client.Open("test")
	assert.NoError(t, err)
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.NoError(t, r.Close())

	// overwrite the file
	w, done, err = client.Create("test")
	assert.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	<-done
	r, err = client.Open("test")
	assert.NoError(t, err)
	content, err = io.ReadAll(r)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.NoError(t, r.Close())

	// missing file
	_, err = client.Open("missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestUploadWriter(t *testing.T) {
	// upload fails after reading everything
	w, done := newUploadWriter(func(r io.Reader) error {
		_, err := io.ReadAll(r)
		assert.NoError(t, err)
		return io.ErrShortWrite
	})
	_, err := w.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.ErrorIs(t, w.Close(), io.ErrShortWrite)
	<-done

	// upload fails before reading
	w, done = newUploadWriter(func(r io.Reader) error {
		return io.ErrClosedPipe
	})
	_, err = w.Write([]byte("hello"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, w.Close(), io.ErrClosedPipe)
	<-done
}

func TestOpen(t *testing.T) {
	store, err := Open(config.StorageConfig{Type: config.POSIX, Dir: t.TempDir()})
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)
	_, ok := store.(Sizer)
	assert.True(t, ok)

	store, err = Open(config.StorageConfig{Type: config.S3, Bucket: "bucket", S3: config.S3Config{Endpoint: "localhost:9000"}})
	assert.NoError(t, err)
	assert.IsType(t, &S3{}, store)

	_, err = Open(config.StorageConfig{Type: config.Azure, Bucket: "container"})
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = Open(config.StorageConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, errors.NotSupported))
}
