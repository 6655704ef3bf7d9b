/*
 * Copyright 2026 The warcforge authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package diskbuffer implements a byte buffer which holds data in memory up to
// a configured size and spools the overflow to a temporary file. It is used to
// stage record blocks and captured HTTP bodies without materializing them on
// the heap.
package diskbuffer

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const tmpFilePrefix = "warc-diskbuffer-"

// Buffer is the interface provided by this package.
//
// Writes always append. Reads consume from the current read offset, which can
// be repositioned with Seek. A Buffer also serves random access reads through
// ReadAt and Slice, independent of the read offset.
type Buffer interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.Seeker
	io.Closer
	io.ReaderFrom
	io.StringWriter
	io.WriterTo
	// Size returns the total number of bytes written to the buffer.
	Size() int64
	// Slice returns a reader over a region of the buffer.
	Slice(offset, n int64) *io.SectionReader
}

type buffer struct {
	opts   options
	mem    []byte
	file   *os.File
	size   int64
	off    int64
	closed bool
}

var errClosed = errors.New("diskbuffer: buffer is closed")

// New creates an empty Buffer.
func New(opts ...Option) Buffer {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &buffer{opts: o}
}

func (b *buffer) Size() int64 {
	return b.size
}

func (b *buffer) Write(p []byte) (int, error) {
	if b.closed {
		return 0, errClosed
	}
	var written int
	if room := b.opts.maxMemBytes - int64(len(b.mem)); room > 0 {
		n := int64(len(p))
		if n > room {
			n = room
		}
		b.mem = append(b.mem, p[:n]...)
		b.size += n
		written += int(n)
		p = p[n:]
	}
	if len(p) > 0 {
		if b.file == nil {
			f, err := os.CreateTemp(b.opts.tmpDir, tmpFilePrefix)
			if err != nil {
				return written, err
			}
			b.file = f
		}
		n, err := b.file.Write(p)
		b.size += int64(n)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (b *buffer) WriteString(s string) (int, error) {
	return b.Write([]byte(s))
}

func (b *buffer) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	p := make([]byte, 8192)
	for {
		n, err := r.Read(p)
		if n > 0 {
			w, werr := b.Write(p[:n])
			total += int64(w)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// ReadAt reads from the in-memory region, the spooled file, or both.
func (b *buffer) ReadAt(p []byte, off int64) (int, error) {
	if b.closed {
		return 0, errClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("diskbuffer: negative offset %d", off)
	}
	if off >= b.size {
		return 0, io.EOF
	}
	if max := b.size - off; int64(len(p)) > max {
		p = p[:max]
	}
	var n int
	memSize := int64(len(b.mem))
	if off < memSize {
		n = copy(p, b.mem[off:])
		off += int64(n)
	}
	if n < len(p) && b.file != nil {
		fn, err := b.file.ReadAt(p[n:], off-memSize)
		n += fn
		if err != nil && err != io.EOF {
			return n, err
		}
	}
	return n, nil
}

func (b *buffer) Read(p []byte) (int, error) {
	n, err := b.ReadAt(p, b.off)
	b.off += int64(n)
	return n, err
}

func (b *buffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.off + offset
	case io.SeekEnd:
		abs = b.size + offset
	default:
		return 0, fmt.Errorf("diskbuffer: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("diskbuffer: negative position")
	}
	b.off = abs
	return abs, nil
}

func (b *buffer) WriteTo(w io.Writer) (int64, error) {
	var total int64
	p := make([]byte, 8192)
	for {
		n, err := b.Read(p)
		if n > 0 {
			wn, werr := w.Write(p[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (b *buffer) Slice(offset, n int64) *io.SectionReader {
	return io.NewSectionReader(b, offset, n)
}

// Close releases the spooled file, if any. The buffer must not be used after Close.
func (b *buffer) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.mem = nil
	if b.file != nil {
		name := b.file.Name()
		if err := b.file.Close(); err != nil {
			return err
		}
		return os.Remove(name)
	}
	return nil
}
