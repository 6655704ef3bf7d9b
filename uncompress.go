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
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxDictionarySize bounds the dictionary accepted from a skippable frame.
const maxDictionarySize = 128 * 1024 * 1024

// OpenReader wraps r with the decompressor matching the stream's leading
// magic bytes. Plain, gzip and zstd WARC files are recognized, including
// zstd files starting with a dictionary skippable frame, in which case the
// dictionary is read from the frame and used for decoding. Unrecognized
// input is passed through unchanged.
func OpenReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		// too short for any compressed format
		return br, nil
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return gzip.NewReader(br)
	case binary.LittleEndian.Uint32(magic) == zstdFrameMagic:
		d, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case binary.LittleEndian.Uint32(magic) == skippableFrameMagic:
		dict, err := readDictionaryFrame(br)
		if err != nil {
			return nil, err
		}
		var dictOpt zstd.DOption
		if isStructuredDictionary(dict) {
			dictOpt = zstd.WithDecoderDicts(dict)
		} else {
			dictOpt = zstd.WithDecoderDictRaw(0, dict)
		}
		d, err := zstd.NewReader(br, dictOpt)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	}
	return br, nil
}

// zstdFrameMagic is the standard zstd frame magic number.
const zstdFrameMagic = 0xFD2FB528

// readDictionaryFrame consumes the dictionary skippable frame and returns the
// dictionary bytes.
func readDictionaryFrame(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxDictionarySize {
		return nil, newSyntaxError("dictionary frame too large", 0)
	}
	dict := make([]byte, size)
	if _, err := io.ReadFull(r, dict); err != nil {
		return nil, err
	}
	// the frame may carry the dictionary in zstd compressed form
	if len(dict) >= 4 && binary.LittleEndian.Uint32(dict[:4]) == zstdFrameMagic {
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(dict, nil)
	}
	return dict, nil
}
