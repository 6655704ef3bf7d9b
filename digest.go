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
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"strings"
)

type digestEncoding uint8

const (
	// Base16 is lower case hex, the conventional encoding for md5 digests.
	Base16 digestEncoding = 1
	// Base32 is upper case standard base32, the conventional encoding for sha digests.
	Base32 digestEncoding = 2
)

func (e digestEncoding) encode(sum []byte) string {
	switch e {
	case Base16:
		return hex.EncodeToString(sum)
	case Base32:
		return base32.StdEncoding.EncodeToString(sum)
	default:
		return string(sum)
	}
}

// Digest is an immutable wrapper over raw hash bytes together with the
// algorithm name and the textual encoding used for the WARC header value.
type Digest struct {
	algorithm string
	raw       []byte
	encoding  digestEncoding
}

// NewDigest wraps a raw hash sum. The encoding follows the WARC convention:
// hex for md5, base32 for everything else.
func NewDigest(algorithm string, raw []byte) *Digest {
	return &Digest{algorithm: algorithm, raw: raw, encoding: conventionalEncoding(algorithm)}
}

// Algorithm returns the lower case algorithm name.
func (d *Digest) Algorithm() string {
	return d.algorithm
}

// Format renders the digest as a WARC header value, "algorithm:ENCODEDSUM".
func (d *Digest) Format() string {
	return d.algorithm + ":" + d.encoding.encode(d.raw)
}

// FormatSum renders another raw sum with this digest's algorithm and encoding.
// Used for reporting a computed sum next to a recorded one.
func (d *Digest) FormatSum(sum []byte) string {
	return d.algorithm + ":" + d.encoding.encode(sum)
}

// Equals compares raw hash bytes, not formatted strings.
func (d *Digest) Equals(raw []byte) bool {
	return bytes.Equal(d.raw, raw)
}

func conventionalEncoding(algorithm string) digestEncoding {
	if algorithm == "md5" {
		return Base16
	}
	return Base32
}

// algorithmSize returns the sum size in bytes for the supported algorithms.
func algorithmSize(algorithm string) (int, bool) {
	switch algorithm {
	case "md5":
		return md5.Size, true
	case "sha1":
		return sha1.Size, true
	case "sha256":
		return sha256.Size, true
	case "sha512":
		return sha512.Size, true
	}
	return 0, false
}

// newHash returns a hash.Hash for the named algorithm.
func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	}
	return nil, fmt.Errorf("warc: unsupported digest algorithm '%s'", algorithm)
}

// formatDigest renders a freshly computed sum as a WARC digest header value.
func formatDigest(algorithm string, sum []byte) string {
	return NewDigest(algorithm, sum).Format()
}

// ParseDigest parses a recorded digest header value like
// "sha1:AIKLJM2V2EOKR4WOIWUWRQTEMUN57P4D" or "md5:b53227da4280f0e18270f21dd77c91d0".
// The encoding is detected from the length of the encoded sum.
func ParseDigest(value string) (*Digest, error) {
	algorithm, encoded, found := strings.Cut(value, ":")
	if !found {
		return nil, fmt.Errorf("warc: malformed digest value '%s'", value)
	}
	algorithm = strings.ToLower(strings.ReplaceAll(algorithm, "-", ""))
	size, ok := algorithmSize(algorithm)
	if !ok {
		return nil, fmt.Errorf("warc: unsupported digest algorithm '%s'", algorithm)
	}

	var raw []byte
	var err error
	var encoding digestEncoding
	switch len(encoded) {
	case hex.EncodedLen(size):
		encoding = Base16
		raw, err = hex.DecodeString(strings.ToLower(encoded))
	case base32.StdEncoding.EncodedLen(size):
		encoding = Base32
		raw, err = base32.StdEncoding.DecodeString(strings.ToUpper(encoded))
	default:
		return nil, fmt.Errorf("warc: unrecognized digest encoding in '%s'", value)
	}
	if err != nil {
		return nil, fmt.Errorf("warc: malformed digest value '%s': %w", value, err)
	}
	return &Digest{algorithm: algorithm, raw: raw, encoding: encoding}, nil
}

// digestFilterReader tees everything read through it into one or more hashes.
type digestFilterReader struct {
	src     io.Reader
	digests []hash.Hash
}

func newDigestFilterReader(src io.Reader, digests ...hash.Hash) *digestFilterReader {
	return &digestFilterReader{src: src, digests: digests}
}

func (d *digestFilterReader) Read(p []byte) (n int, err error) {
	n, err = d.src.Read(p)
	if n > 0 {
		pp := p[:n]
		for _, dd := range d.digests {
			// OK to ignore error. Hash writes never fail.
			_, _ = dd.Write(pp)
		}
	}
	return
}
