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
	"crypto/sha512"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nlnwa/whatwg-url/url"
	log "github.com/sirupsen/logrus"

	"github.com/warcforge/warc/internal/timestamp"
)

// Allow overriding of time.Now for tests
var now = time.Now

// serializeChunkSize bounds the reads used when streaming record content.
const serializeChunkSize = 8192

// Record is a single WARC record: an ordered header field list plus a content
// block held either in memory or in a seekable stream.
//
// A Record is created with NewRecord, filled in with the header and content
// setters, serialized once with WriteTo and closed after it has been durably
// written. WriteTo is not safe for concurrent use.
type Record struct {
	fields        *WarcFields
	contentBytes  []byte
	contentStream io.ReadSeeker
	hasContent    bool
	closeOnFinish bool
}

// mandatoryFields must all be present before a record can be serialized.
var mandatoryFields = []string{WarcRecordID, ContentLength, WarcDate, WarcType}

// NewRecord creates a record of the given type with WARC-Date set to the
// current time and a generated WARC-Record-ID. contentType may be empty.
func NewRecord(recordType, contentType string) (*Record, error) {
	r := &Record{fields: &WarcFields{}}
	if err := r.SetType(recordType); err != nil {
		return nil, err
	}
	if contentType != "" {
		r.SetHeader(ContentType, contentType)
	}
	r.DateNow()
	r.ID()
	return r, nil
}

// WarcHeader returns the record's header fields.
func (r *Record) WarcHeader() *WarcFields {
	return r.fields
}

// SetHeader sets a header field, overwriting any existing value.
func (r *Record) SetHeader(name, value string) {
	r.fields.Set(name, value)
}

// AddHeader adds a header field, repeating the field if it is already set.
func (r *Record) AddHeader(name, value string) {
	r.fields.Add(name, value)
}

// SetType sets the WARC-Type header. Types outside the WARC 1.1 set are rejected.
func (r *Record) SetType(recordType string) error {
	if !validRecordTypes[recordType] {
		return newRecordTypeError(recordType)
	}
	r.fields.Set(WarcType, recordType)
	return nil
}

// Type returns the record's WARC-Type header value.
func (r *Record) Type() string {
	return r.fields.Get(WarcType)
}

// SetTargetURI sets the WARC-Target-URI header. A URI which does not parse is
// still set, but logged as a warning.
func (r *Record) SetTargetURI(uri string) {
	if _, err := url.Parse(uri); err != nil {
		log.Warnf("target uri '%s' does not parse: %v", uri, err)
	}
	r.fields.Set(WarcTargetURI, uri)
}

// ID returns the record's WARC-Record-ID, generating a URN formatted UUID on
// first access. Once generated the id is stable for the record's lifetime.
func (r *Record) ID() string {
	if id := r.fields.Get(WarcRecordID); id != "" {
		return id
	}
	id := fmt.Sprintf("<%s>", uuid.New().URN())
	r.fields.Set(WarcRecordID, id)
	return id
}

// DateNow sets the WARC-Date header to the current time.
func (r *Record) DateNow() {
	r.fields.Set(WarcDate, timestamp.UTCW3cIso8601(now()))
}

// Date returns the record's WARC-Date header value.
func (r *Record) Date() string {
	return r.fields.Get(WarcDate)
}

// AddHeadersForConn sets WARC-IP-Address from the connection's remote address.
// For a TLS connection, WARC-Protocol and WARC-Cipher-Suite are also recorded
// to document the encryption used.
func (r *Record) AddHeadersForConn(conn net.Conn) {
	if conn == nil {
		return
	}
	if host, _, err := net.SplitHostPort(conn.RemoteAddr().String()); err == nil {
		r.fields.Set(WarcIPAddress, host)
	}
	if tlsConn, ok := conn.(*tls.Conn); ok {
		state := tlsConn.ConnectionState()
		r.fields.Add(WarcProtocol, tlsVersionName(state.Version))
		r.fields.Add(WarcCipherSuite, tls.CipherSuiteName(state.CipherSuite))
	}
}

func tlsVersionName(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "tls/1.0"
	case tls.VersionTLS11:
		return "tls/1.1"
	case tls.VersionTLS12:
		return "tls/1.2"
	case tls.VersionTLS13:
		return "tls/1.3"
	default:
		return "tls/unknown"
	}
}

// Concurrent sets WARC-Concurrent-To headers on both records, pointing at
// each other. Used to pair a request with its response.
func (r *Record) Concurrent(other *Record) {
	r.fields.Set(WarcConcurrentTo, other.ID())
	other.fields.Set(WarcConcurrentTo, r.ID())
}

// SetContentBytes sets the record's content block from an in-memory buffer.
// Content-Length is set, and a SHA-512 block digest is computed unless
// blockDigest supplies one.
func (r *Record) SetContentBytes(content []byte, contentType string, blockDigest *Digest) {
	if contentType != "" {
		r.fields.Set(ContentType, contentType)
	}
	r.contentBytes = content
	r.contentStream = nil
	r.hasContent = true
	r.fields.Set(ContentLength, strconv.Itoa(len(content)))

	if blockDigest == nil {
		sum := sha512.Sum512(content)
		r.fields.Set(WarcBlockDigest, formatDigest("sha512", sum[:]))
		return
	}
	r.fields.Set(WarcBlockDigest, blockDigest.Format())
}

// SetContentStream sets the record's content block from a seekable stream.
// The length is determined by seeking to the end, and a SHA-512 block digest
// is computed by streaming through the data unless blockDigest supplies one.
// The stream is left positioned at the start. If closeOnFinish is set and the
// stream is an io.Closer, Close releases it.
func (r *Record) SetContentStream(content io.ReadSeeker, contentType string, blockDigest *Digest, closeOnFinish bool) error {
	if contentType != "" {
		r.fields.Set(ContentType, contentType)
	}
	size, err := content.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	r.contentStream = content
	r.contentBytes = nil
	r.hasContent = true
	r.closeOnFinish = closeOnFinish
	r.fields.Set(ContentLength, strconv.FormatInt(size, 10))

	if blockDigest == nil {
		if _, err := content.Seek(0, io.SeekStart); err != nil {
			return err
		}
		h := sha512.New()
		if _, err := io.Copy(io.Discard, newDigestFilterReader(content, h)); err != nil {
			return err
		}
		blockDigest = NewDigest("sha512", h.Sum(nil))
	}
	r.fields.Set(WarcBlockDigest, blockDigest.Format())

	_, err = content.Seek(0, io.SeekStart)
	return err
}

// HasContent reports whether a content block has been set.
func (r *Record) HasContent() bool {
	return r.hasContent
}

// WriteTo serializes the record to w in the WARC wire format: the version
// line, one header line per field value in insertion order, a blank line, the
// content block and the end of record marker.
//
// WriteTo fails with a MissingHeaderError if any of the four mandatory
// headers is absent, or ErrMissingContent if content was never set.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	if !r.hasContent {
		return 0, ErrMissingContent
	}
	for _, f := range mandatoryFields {
		if !r.fields.Has(f) {
			return 0, newMissingHeaderError(f)
		}
	}

	n, err := io.WriteString(w, V1_1+crlf)
	bytesWritten := int64(n)
	if err != nil {
		return bytesWritten, err
	}

	bw, err := r.fields.Write(w)
	bytesWritten += bw
	if err != nil {
		return bytesWritten, err
	}

	n, err = io.WriteString(w, crlf)
	bytesWritten += int64(n)
	if err != nil {
		return bytesWritten, err
	}

	if r.contentStream != nil {
		if _, err := r.contentStream.Seek(0, io.SeekStart); err != nil {
			return bytesWritten, err
		}
		bw, err = io.CopyBuffer(w, r.contentStream, make([]byte, serializeChunkSize))
		bytesWritten += bw
		if err != nil {
			return bytesWritten, err
		}
	} else {
		n, err = w.Write(r.contentBytes)
		bytesWritten += int64(n)
		if err != nil {
			return bytesWritten, err
		}
	}

	n, err = io.WriteString(w, crlfcrlf)
	bytesWritten += int64(n)
	return bytesWritten, err
}

// Close releases the owned content stream if requested at SetContentStream.
// Close is idempotent.
func (r *Record) Close() error {
	if r.closeOnFinish {
		if c, ok := r.contentStream.(io.Closer); ok {
			r.closeOnFinish = false
			r.contentStream = nil
			return c.Close()
		}
	}
	return nil
}

func (r *Record) String() string {
	return fmt.Sprintf("WARC record: type: %s, id: %s", r.Type(), r.fields.Get(WarcRecordID))
}

// warcFieldsBody renders a "key: value\r\n" field list body, used for
// warcinfo records.
func warcFieldsBody(fields *WarcFields) []byte {
	sb := &strings.Builder{}
	_, _ = fields.Write(sb)
	return []byte(sb.String())
}
