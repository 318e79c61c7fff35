// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records raw radio traffic to a file of CBOR records so a
// session can be replayed through the decoder later.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record directions
const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

// Record is one chunk of wire bytes, encoded as a CBOR map with integer keys.
type Record struct {
	At        int64  `cbor:"1,keyasint"` // unix microseconds
	Direction string `cbor:"2,keyasint"`
	Wire      []byte `cbor:"3,keyasint"`
}

// Time returns the record timestamp.
func (r Record) Time() time.Time {
	return time.UnixMicro(r.At)
}

// Writer appends records to an io.Writer. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	enc *cbor.Encoder
	buf *bufio.Writer
	c   io.Closer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	cw := &Writer{enc: cbor.NewEncoder(buf), buf: buf}
	if c, ok := w.(io.Closer); ok {
		cw.c = c
	}
	return cw
}

// Create opens path for appending and returns a writer on it.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", path, err)
	}
	return NewWriter(f), nil
}

// Write records wire bytes seen in direction dir.
func (w *Writer) Write(dir string, wire []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec := Record{At: time.Now().UnixMicro(), Direction: dir, Wire: append([]byte(nil), wire...)}
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode capture record: %w", err)
	}
	return w.buf.Flush()
}

// Close flushes and closes the underlying writer if it is closable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.buf.Flush()
	if w.c != nil {
		err = errors.Join(err, w.c.Close())
	}
	return err
}

// Reader decodes records from an io.Reader.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(bufio.NewReader(r))}
}

// Next returns the next record, or io.EOF at the end of the capture.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decode capture record: %w", err)
	}
	return rec, nil
}
