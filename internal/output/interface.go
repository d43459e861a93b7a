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
	"fmt"
	"io"
	"os"
	"strings"
)

// Format names an output encoding.
type Format string

const (
	FormatNDJSON Format = "ndjson"
	FormatJSON   Format = "json"
)

// ParseFormat accepts a format name case-insensitively. The empty string
// means NDJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatNDJSON:
		return FormatNDJSON, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want ndjson or json)", s)
	}
}

// RecordWriter writes records in some format.
type RecordWriter interface {
	// Write writes a single record to the output.
	Write(record any) error

	// Count returns the number of records written so far.
	Count() int

	// Close finishes the document and closes the underlying file, if any.
	Close() error
}

// New returns a writer for format over w. Close does not close w.
func New(w io.Writer, format Format) (RecordWriter, error) {
	switch format {
	case "", FormatNDJSON:
		return NewWriter(w), nil
	case FormatJSON:
		return NewArrayWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Open creates filename and returns a writer for format over it. A
// filename of "" or "-" writes to stdout.
func Open(filename string, format Format) (RecordWriter, error) {
	if filename == "" || filename == "-" {
		return New(os.Stdout, format)
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := New(file, format)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(filename)
		return nil, err
	}

	switch w := w.(type) {
	case *Writer:
		w.closeFunc = file.Close
	case *ArrayWriter:
		w.closeFunc = file.Close
	}
	return w, nil
}
