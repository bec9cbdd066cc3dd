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

package encoding

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"strconv"

	"github.com/juju/errors"
)

// WriteMatrix writes matrix to byte stream.
func WriteMatrix(w io.Writer, m [][]float32) error {
	for i := range m {
		err := binary.Write(w, binary.LittleEndian, m[i])
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// readChunk is the number of values allocated ahead while reading a sequence
// whose length comes from the stream.
const readChunk = 4096

// ReadMatrixN reads a rows x cols matrix. Rows are allocated as they arrive.
func ReadMatrixN(r io.Reader, rows, cols int) ([][]float32, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.NotValidf("matrix shape %dx%d", rows, cols)
	}
	m := make([][]float32, 0, min(rows, readChunk))
	for len(m) < rows {
		row, err := ReadFloat32s(r, cols)
		if err != nil {
			return nil, errors.Trace(err)
		}
		m = append(m, row)
	}
	return m, nil
}

// ReadFloat32s reads n 32-bit floats. Memory grows with the data read.
func ReadFloat32s(r io.Reader, n int) ([]float32, error) {
	if n < 0 {
		return nil, errors.NotValidf("vector length %d", n)
	}
	v := make([]float32, 0, min(n, readChunk))
	for len(v) < n {
		chunk := make([]float32, min(n-len(v), readChunk))
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			return nil, errors.Trace(err)
		}
		v = append(v, chunk...)
	}
	return v, nil
}

// WriteString writes string to byte stream.
func WriteString(w io.Writer, s string) error {
	return WriteBytes(w, []byte(s))
}

// ReadString reads string from byte stream.
func ReadString(r io.Reader) (string, error) {
	data, err := ReadBytes(r)
	return string(data), err
}

// WriteStrings writes the number of strings followed by each string.
func WriteStrings(w io.Writer, s []string) error {
	if err := binary.Write(w, binary.LittleEndian, int32(len(s))); err != nil {
		return errors.Trace(err)
	}
	for _, v := range s {
		if err := WriteString(w, v); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// ReadStrings reads strings written by WriteStrings.
func ReadStrings(r io.Reader) ([]string, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.Trace(err)
	}
	if n < 0 {
		return nil, errors.NotValidf("string count %d", n)
	}
	s := make([]string, 0, min(int(n), readChunk))
	for len(s) < int(n) {
		v, err := ReadString(r)
		if err != nil {
			return nil, errors.Trace(err)
		}
		s = append(s, v)
	}
	return s, nil
}

// WriteBytes writes bytes to byte stream.
func WriteBytes(w io.Writer, s []byte) error {
	err := binary.Write(w, binary.LittleEndian, int32(len(s)))
	if err != nil {
		return err
	}
	n, err := w.Write(s)
	if err != nil {
		return err
	} else if n != len(s) {
		return errors.New("fail to write string")
	}
	return nil
}

// ReadBytes reads bytes from byte stream.
func ReadBytes(r io.Reader) ([]byte, error) {
	var length int32
	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		return nil, errors.NotValidf("byte length %d", length)
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(length)))
	if err != nil {
		return nil, err
	}
	if len(data) != int(length) {
		return nil, io.ErrUnexpectedEOF
	}
	return data, nil
}

// WriteGob writes object to byte stream.
func WriteGob(w io.Writer, v interface{}) error {
	buffer := bytes.NewBuffer(nil)
	encoder := gob.NewEncoder(buffer)
	err := encoder.Encode(v)
	if err != nil {
		return err
	}
	return WriteBytes(w, buffer.Bytes())
}

// ReadGob read object from byte stream.
func ReadGob(r io.Reader, v interface{}) error {
	data, err := ReadBytes(r)
	if err != nil {
		return err
	}
	buffer := bytes.NewBuffer(data)
	decoder := gob.NewDecoder(buffer)
	return decoder.Decode(v)
}

func FormatFloat32(val float32) string {
	return strconv.FormatFloat(float64(val), 'f', -1, 32)
}
