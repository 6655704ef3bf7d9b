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

// Package countingreader provides an io.Reader wrapper which counts the bytes
// read through it, optionally stopping after a fixed number of bytes.
package countingreader

import (
	"io"
	"sync/atomic"
)

// Reader counts the bytes read through it.
type Reader struct {
	src       io.Reader
	bytesRead int64
	maxBytes  int64
}

// New makes a new Reader counting the bytes read through it.
func New(r io.Reader) *Reader {
	return &Reader{src: r, maxBytes: -1}
}

// NewLimited makes a new Reader which returns io.EOF after maxBytes bytes are
// read, even if the underlying reader has more data.
func NewLimited(r io.Reader, maxBytes int64) *Reader {
	return &Reader{src: r, maxBytes: maxBytes}
}

func (r *Reader) Read(p []byte) (n int, err error) {
	if r.maxBytes >= 0 {
		remaining := r.maxBytes - r.N()
		if remaining <= 0 {
			return 0, io.EOF
		}
		if int64(len(p)) > remaining {
			p = p[:remaining]
		}
	}
	n, err = r.src.Read(p)
	atomic.AddInt64(&r.bytesRead, int64(n))
	if err == nil && r.maxBytes >= 0 && r.N() >= r.maxBytes {
		err = io.EOF
	}
	return
}

// N returns the number of bytes read so far.
func (r *Reader) N() int64 {
	return atomic.LoadInt64(&r.bytesRead)
}
