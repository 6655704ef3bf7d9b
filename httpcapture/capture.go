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

// Package httpcapture records live HTTP exchanges as WARC request and
// response records.
//
// A Recorder wraps a warc.Writer. For every HTTP exchange the caller opens an
// Exchange, streams the fully framed request and response bytes into it
// (transfer encoding intact) and either commits or discards it. Commit builds
// the record pair, links the records through WARC-Concurrent-To and writes
// them as one batch so both land in the same file. A response whose payload
// digest was seen before is written as a revisit record pointing back at the
// original capture instead of storing the payload again.
package httpcapture

import (
	"bufio"
	"crypto/sha1"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/internal/diskbuffer"
)

// Recorder turns captured HTTP exchanges into WARC records on a warc.Writer.
type Recorder struct {
	writer *warc.Writer
}

func NewRecorder(writer *warc.Writer) *Recorder {
	return &Recorder{writer: writer}
}

// Exchange is one in-flight HTTP request/response pair. Bodies are spooled
// to disk backed buffers so large responses do not accumulate on the heap.
// An Exchange must be finished with either Commit or Discard.
type Exchange struct {
	recorder  *Recorder
	targetURI string
	conn      net.Conn
	reqBuf    diskbuffer.Buffer
	respBuf   diskbuffer.Buffer
	finished  bool
}

// NewExchange starts capturing one HTTP exchange against the given target URI.
func (r *Recorder) NewExchange(targetURI string, opts ...diskbuffer.Option) *Exchange {
	return &Exchange{
		recorder:  r,
		targetURI: targetURI,
		reqBuf:    diskbuffer.New(opts...),
		respBuf:   diskbuffer.New(opts...),
	}
}

// SetConn records the connection the exchange runs on. The remote address and
// TLS parameters end up in the records' headers.
func (e *Exchange) SetConn(conn net.Conn) {
	e.conn = conn
}

// RequestWriter returns the sink for the raw framed request bytes.
func (e *Exchange) RequestWriter() io.Writer {
	return e.reqBuf
}

// ResponseWriter returns the sink for the raw framed response bytes,
// header block plus body with the transfer encoding intact.
func (e *Exchange) ResponseWriter() io.Writer {
	return e.respBuf
}

// Discard drops the exchange without writing anything. Used when the
// transport fails mid-exchange. Idempotent.
func (e *Exchange) Discard() {
	if e.finished {
		return
	}
	e.finished = true
	_ = e.reqBuf.Close()
	_ = e.respBuf.Close()
}

// Commit builds the request and response records and writes them as one
// batch. The response becomes a revisit record when its payload digest
// matches an earlier capture.
//
// Commit fails with warc.ErrUnsupportedTransferEncoding for a response using
// a transfer encoding the payload digest cannot be computed over.
func (e *Exchange) Commit() error {
	if e.finished {
		return nil
	}

	requestRecord, err := e.buildRequestRecord()
	if err != nil {
		e.Discard()
		return err
	}
	responseRecord, ownsRespBuf, err := e.buildResponseRecord()
	if err != nil {
		_ = requestRecord.Close()
		e.Discard()
		return err
	}

	e.finished = true
	if !ownsRespBuf {
		_ = e.respBuf.Close()
	}
	requestRecord.Concurrent(responseRecord)

	w := e.recorder.writer
	if err := w.QueuePending(requestRecord, responseRecord); err != nil {
		_ = requestRecord.Close()
		_ = responseRecord.Close()
		return err
	}
	return w.FlushPending()
}

func (e *Exchange) buildRequestRecord() (*warc.Record, error) {
	rec, err := warc.NewRecord(warc.Request, warc.ApplicationHttpRequest)
	if err != nil {
		return nil, err
	}
	rec.SetTargetURI(e.targetURI)
	rec.AddHeadersForConn(e.conn)

	blockDigest, err := digestBuffer(e.reqBuf)
	if err != nil {
		return nil, err
	}
	if err := rec.SetContentStream(e.reqBuf, "", blockDigest, true); err != nil {
		return nil, err
	}
	return rec, nil
}

// buildResponseRecord returns the response side record and whether it took
// ownership of the response buffer.
func (e *Exchange) buildResponseRecord() (*warc.Record, bool, error) {
	headerEnd, transferEncoding, err := scanResponseHeaders(e.respBuf)
	if err != nil {
		return nil, false, err
	}

	payloadDigest, err := digestPayload(e.respBuf, headerEnd, transferEncoding)
	if err != nil {
		return nil, false, err
	}

	if found, refersTo := e.recorder.writer.CheckForRevisit(payloadDigest.Format()); found {
		rec, err := e.buildRevisitRecord(headerEnd, payloadDigest, refersTo)
		return rec, false, err
	}

	rec, err := warc.NewRecord(warc.Response, warc.ApplicationHttpReponse)
	if err != nil {
		return nil, false, err
	}
	rec.SetTargetURI(e.targetURI)
	rec.AddHeadersForConn(e.conn)
	rec.SetHeader(warc.WarcPayloadDigest, payloadDigest.Format())

	blockDigest, err := digestBuffer(e.respBuf)
	if err != nil {
		return nil, false, err
	}
	if err := rec.SetContentStream(e.respBuf, "", blockDigest, true); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// buildRevisitRecord stores only the response headers, truncated at the
// payload, with refers-to headers pointing at the original capture.
func (e *Exchange) buildRevisitRecord(headerEnd int64, payloadDigest *warc.Digest, refersTo *warc.WarcFields) (*warc.Record, error) {
	rec, err := warc.NewRecord(warc.Revisit, warc.ApplicationHttpReponse)
	if err != nil {
		return nil, err
	}
	rec.SetTargetURI(e.targetURI)
	rec.AddHeadersForConn(e.conn)
	rec.SetHeader(warc.WarcProfile, warc.ProfileIdenticalPayloadDigestV1_1)
	rec.SetHeader(warc.WarcTruncated, "length")
	rec.SetHeader(warc.WarcPayloadDigest, payloadDigest.Format())
	for _, name := range []string{warc.WarcRefersTo, warc.WarcRefersToDate, warc.WarcRefersToTargetURI} {
		if v := refersTo.Get(name); v != "" {
			rec.SetHeader(name, v)
		}
	}

	headers := make([]byte, headerEnd)
	if _, err := io.ReadFull(e.respBuf.Slice(0, headerEnd), headers); err != nil {
		return nil, err
	}
	rec.SetContentBytes(headers, "", nil)
	return rec, nil
}

// scanResponseHeaders locates the end of the response's header section,
// including the blank line, and extracts its Transfer-Encoding value.
func scanResponseHeaders(buf diskbuffer.Buffer) (headerEnd int64, transferEncoding string, err error) {
	br := bufio.NewReader(buf.Slice(0, buf.Size()))
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return 0, "", fmt.Errorf("httpcapture: response without header terminator: %w", err)
		}
		headerEnd += int64(len(line))
		if line == "\r\n" {
			return headerEnd, transferEncoding, nil
		}
		if name, value, found := strings.Cut(line, ":"); found {
			if strings.EqualFold(strings.TrimSpace(name), "Transfer-Encoding") {
				transferEncoding = strings.TrimSpace(strings.TrimRight(value, "\r\n"))
			}
		}
	}
}

// digestBuffer computes a SHA-1 digest over a whole buffer.
func digestBuffer(buf diskbuffer.Buffer) (*warc.Digest, error) {
	h := sha1.New()
	if _, err := io.Copy(h, buf.Slice(0, buf.Size())); err != nil {
		return nil, err
	}
	return warc.NewDigest("sha1", h.Sum(nil)), nil
}

// digestPayload computes a SHA-1 digest over the transfer decoded response
// payload.
func digestPayload(buf diskbuffer.Buffer, headerEnd int64, transferEncoding string) (*warc.Digest, error) {
	body := buf.Slice(headerEnd, buf.Size()-headerEnd)
	decoded, err := warc.DecodeTransferEncoding(body, transferEncoding)
	if err != nil {
		return nil, err
	}
	h := sha1.New()
	if _, err := io.Copy(h, decoded); err != nil {
		return nil, err
	}
	return warc.NewDigest("sha1", h.Sum(nil)), nil
}
