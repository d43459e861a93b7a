// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Writer streams NDJSON output. Safe for concurrent use.
type Writer struct {
	mu        sync.Mutex
	output    io.Writer
	encoder   *json.Encoder
	count     int
	closeFunc func() error
}

// NewWriter creates a new NDJSON writer that writes to the specified output.
func NewWriter(w io.Writer) *Writer {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	return &Writer{
		output:  w,
		encoder: encoder,
	}
}

// Write writes a single record as one line.
func (w *Writer) Write(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close closes the underlying writer if it's a file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closeFunc != nil {
		return w.closeFunc()
	}
	return nil
}

// ArrayWriter streams records as the elements of one JSON array. The
// closing bracket is written by Close, so an ArrayWriter that is never
// closed leaves an incomplete document.
type ArrayWriter struct {
	mu        sync.Mutex
	output    io.Writer
	count     int
	closed    bool
	closeFunc func() error
}

// NewArrayWriter creates a JSON array writer over w.
func NewArrayWriter(w io.Writer) *ArrayWriter {
	return &ArrayWriter{output: w}
}

// Write appends record to the array.
func (w *ArrayWriter) Write(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("failed to write record: writer closed")
	}

	data, err := marshal(record)
	if err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	sep := ",\n  "
	if w.count == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(w.output, sep); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if _, err := w.output.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of records written.
func (w *ArrayWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close terminates the array and closes the underlying file, if any. An
// array with no records is written as [].
func (w *ArrayWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	tail := "\n]\n"
	if w.count == 0 {
		tail = "[]\n"
	}
	_, err := io.WriteString(w.output, tail)

	if w.closeFunc != nil {
		if cerr := w.closeFunc(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("failed to finish output: %w", err)
	}
	return nil
}

// marshal encodes v without HTML escaping and without a trailing newline.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
