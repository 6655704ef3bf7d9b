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

package warc

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// chunkedReader decodes a chunked transfer encoded body. Chunk extensions are
// ignored. Reading past the terminating zero sized chunk returns io.EOF;
// trailer fields are not consumed.
type chunkedReader struct {
	r       *bufio.Reader
	left    int64 // unread bytes in the current chunk
	started bool
	done    bool
}

func newChunkedReader(r io.Reader) *chunkedReader {
	return &chunkedReader{r: bufio.NewReader(r)}
}

// malformedChunkError wraps a chunk framing problem with the offending line.
func malformedChunkError(line string, err error) error {
	return fmt.Errorf("warc: malformed chunk size line %q: %w", line, err)
}

func (cr *chunkedReader) nextChunk() error {
	if cr.started {
		// consume the CRLF terminating the previous chunk
		for _, want := range []byte(crlf) {
			b, err := cr.r.ReadByte()
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return err
			}
			if b != want {
				return malformedChunkError(string(b), fmt.Errorf("expected chunk terminator"))
			}
		}
	}
	cr.started = true

	line, err := cr.r.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	line = strings.TrimRight(line, crlf)
	sizeField := line
	if i := strings.IndexByte(sizeField, ';'); i >= 0 {
		sizeField = sizeField[:i]
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 16, 64)
	if err != nil || size < 0 {
		return malformedChunkError(line, err)
	}
	if size == 0 {
		cr.done = true
		return io.EOF
	}
	cr.left = size
	return nil
}

func (cr *chunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}
	if cr.left == 0 {
		if err := cr.nextChunk(); err != nil {
			return 0, err
		}
	}
	if int64(len(p)) > cr.left {
		p = p[:cr.left]
	}
	n, err := cr.r.Read(p)
	cr.left -= int64(n)
	if err == io.EOF && (cr.left > 0 || !cr.done) {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// DecodeTransferEncoding wraps r with decoders for the given Transfer-Encoding
// header value. Supported values are the empty string and "identity" (no
// decoding), "chunked" and "chunked" followed by "gzip". A bare "gzip"
// encoding cannot be delimited without chunking and fails with
// ErrUnsupportedTransferEncoding, as does any other encoding.
func DecodeTransferEncoding(r io.Reader, transferEncoding string) (io.Reader, error) {
	var codings []string
	for _, c := range strings.Split(transferEncoding, ",") {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			codings = append(codings, c)
		}
	}

	switch {
	case len(codings) == 0:
		return r, nil
	case len(codings) == 1 && codings[0] == "identity":
		return r, nil
	case len(codings) == 1 && codings[0] == "chunked":
		return newChunkedReader(r), nil
	case len(codings) == 2 && codings[0] == "gzip" && codings[1] == "chunked":
		return gzip.NewReader(newChunkedReader(r))
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransferEncoding, transferEncoding)
}
