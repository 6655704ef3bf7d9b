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
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zstd"
)

// skippableFrameMagic identifies the zstd skippable frame carrying the
// compression dictionary at the start of a dictionary compressed WARC file.
// See https://iipc.github.io/warc-specifications/specifications/warc-zstd/
const skippableFrameMagic = 0x184D2A5D

// dictionaryMagic starts a structured zstd dictionary, as produced by
// dictionary training. Anything else is treated as raw dictionary content.
const dictionaryMagic = 0xEC30A437

func isStructuredDictionary(dict []byte) bool {
	return len(dict) >= 4 && binary.LittleEndian.Uint32(dict[:4]) == dictionaryMagic
}

// Compressor serializes records to a WARC file, optionally compressing them.
//
// Start is called once per file immediately after creation, before any
// record, so the compressor can emit a file leading header such as the
// dictionary skippable frame. WriteRecord consumes one record's serialized
// byte stream. FileExtension returns the suffix appended after the base
// ".warc" extension.
//
// Each WriteRecord call produces an independently decompressible unit (a
// gzip member or a zstd frame) so records can be accessed without
// decompressing the whole file.
type Compressor interface {
	Start(w io.Writer) error
	WriteRecord(w io.Writer, record *Record) (int64, error)
	FileExtension() string
}

// IdentityCompressor writes records verbatim.
type IdentityCompressor struct{}

func NewIdentityCompressor() *IdentityCompressor {
	return &IdentityCompressor{}
}

func (c *IdentityCompressor) Start(io.Writer) error {
	return nil
}

func (c *IdentityCompressor) WriteRecord(w io.Writer, record *Record) (int64, error) {
	return record.WriteTo(w)
}

func (c *IdentityCompressor) FileExtension() string {
	return ""
}

// GzipCompressor writes each record as its own gzip member.
type GzipCompressor struct {
	level int
	gz    *gzip.Writer // reused between records
}

// NewGzipCompressor creates a gzip compressor with the given level
// (gzip.DefaultCompression for the default).
func NewGzipCompressor(level int) *GzipCompressor {
	return &GzipCompressor{level: level}
}

func (c *GzipCompressor) Start(io.Writer) error {
	return nil
}

func (c *GzipCompressor) WriteRecord(w io.Writer, record *Record) (int64, error) {
	if c.gz == nil {
		gz, err := gzip.NewWriterLevel(w, c.level)
		if err != nil {
			return 0, err
		}
		c.gz = gz
	} else {
		c.gz.Reset(w)
	}
	n, err := record.WriteTo(c.gz)
	if err != nil {
		_ = c.gz.Close()
		return n, err
	}
	return n, c.gz.Close()
}

func (c *GzipCompressor) FileExtension() string {
	return ".gz"
}

// ZstdCompressor writes each record as its own zstd frame. With a dictionary
// it additionally emits a skippable frame holding the dictionary at the start
// of every file, so a decoder can recover the dictionary from the file itself.
type ZstdCompressor struct {
	level      zstd.EncoderLevel
	dictionary []byte
	enc        *zstd.Encoder // reused between records
}

// NewZstdCompressor creates a zstd compressor without a dictionary.
func NewZstdCompressor(level zstd.EncoderLevel) *ZstdCompressor {
	return &ZstdCompressor{level: level}
}

// NewZstdDictCompressor creates a zstd compressor using the supplied
// content dictionary.
func NewZstdDictCompressor(level zstd.EncoderLevel, dictionary []byte) *ZstdCompressor {
	return &ZstdCompressor{level: level, dictionary: dictionary}
}

// Start writes the dictionary skippable frame: the little-endian magic
// 0x184D2A5D, a little-endian 4 byte length and the raw dictionary bytes.
// Without a dictionary, Start writes nothing.
func (c *ZstdCompressor) Start(w io.Writer) error {
	if len(c.dictionary) == 0 {
		return nil
	}
	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], skippableFrameMagic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(c.dictionary)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(c.dictionary)
	return err
}

func (c *ZstdCompressor) WriteRecord(w io.Writer, record *Record) (int64, error) {
	if c.enc == nil {
		opts := []zstd.EOption{zstd.WithEncoderLevel(c.level)}
		if isStructuredDictionary(c.dictionary) {
			opts = append(opts, zstd.WithEncoderDict(c.dictionary))
		} else if len(c.dictionary) > 0 {
			opts = append(opts, zstd.WithEncoderDictRaw(0, c.dictionary))
		}
		enc, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return 0, err
		}
		c.enc = enc
	} else {
		c.enc.Reset(w)
	}
	n, err := record.WriteTo(c.enc)
	if err != nil {
		_ = c.enc.Close()
		return n, err
	}
	// Close ends the frame. The encoder stays reusable through Reset.
	return n, c.enc.Close()
}

func (c *ZstdCompressor) FileExtension() string {
	return ".zst"
}
