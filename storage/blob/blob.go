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

	"github.com/gorse-io/mfrec/config"
	"github.com/juju/errors"
)

// Store is a flat namespace of files.
type Store interface {
	// Open a file for reading.
	Open(name string) (io.ReadCloser, error)
	// Create a file for writing. The done channel is closed when the content is persisted
	// after the writer is closed.
	Create(name string) (io.WriteCloser, chan struct{}, error)
}

// Sizer is implemented by stores which know file sizes before reading.
type Sizer interface {
	Stat(name string) (int64, error)
}

// Open creates a blob store from configuration.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case config.POSIX, "":
		return NewPOSIX(cfg.Dir), nil
	case config.S3:
		return NewS3(cfg.S3, cfg.Bucket, cfg.Prefix)
	case config.GCS:
		return NewGCS(cfg.GCS, cfg.Bucket, cfg.Prefix)
	case config.Azure:
		return NewAzureBlob(cfg.Azure, cfg.Bucket, cfg.Prefix)
	default:
		return nil, errors.NotSupportedf("storage type %s", cfg.Type)
	}
}

// uploadWriter streams written bytes to an upload running in another goroutine.
// Close waits for the upload and returns its error.
type uploadWriter struct {
	*io.PipeWriter
	done chan struct{}
	err  error
}

func newUploadWriter(upload func(r io.Reader) error) (*uploadWriter, chan struct{}) {
	pr, pw := io.Pipe()
	w := &uploadWriter{PipeWriter: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		if err := upload(pr); err != nil {
			w.err = err
			_ = pr.CloseWithError(err)
		} else {
			_ = pr.Close()
		}
	}()
	return w, w.done
}

func (w *uploadWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return err
	}
	<-w.done
	return w.err
}
