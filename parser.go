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

	"github.com/warcforge/warc/internal/countingreader"
	"github.com/warcforge/warc/internal/diskbuffer"
)

// parseChunkSize bounds the size of the data chunks emitted by the parser.
const parseChunkSize = 8192

// IssueKind classifies a problem found while parsing.
type IssueKind string

const (
	IssueEmptyFile           IssueKind = "EMPTY_FILE"
	IssueTruncatedFile       IssueKind = "TRUNCATED_FILE"
	IssueMalformedHTTPRecord IssueKind = "MALFORMED_HTTP_RECORD"
)

// BlockPart tags which part of a record's block a BlockChunk carries.
type BlockPart uint8

const (
	// BlockPartOpaque is block data of a record not carrying an HTTP message.
	BlockPartOpaque BlockPart = iota
	// BlockPartHTTPHeader is the HTTP header section including its trailing CRLFCRLF.
	BlockPartHTTPHeader
	// BlockPartHTTPBody is the HTTP body as stored, transfer encoding intact.
	BlockPartHTTPBody
)

// Event is one item of the parser's output stream. The concrete types are
// BeginOfRecord, BlockChunk, HTTPHeaders, RawPayloadChunk, PayloadChunk,
// EndOfRecord and ParseIssue.
type Event interface {
	isEvent()
}

// BeginOfRecord starts a record. It carries the version line, the parsed
// header fields and the raw header block without the terminating CRLFCRLF.
type BeginOfRecord struct {
	Version   string
	Fields    *WarcFields
	RawHeader []byte
}

// BlockChunk carries a piece of the record's block, exactly as stored.
// The concatenated chunks of one record reproduce the block byte for byte.
type BlockChunk struct {
	Data []byte
	Part BlockPart
}

// HTTPHeaders carries the parsed HTTP header section of a request or
// response record.
type HTTPHeaders struct {
	StatusLine string
	Fields     *WarcFields
}

// RawPayloadChunk carries payload bytes before transfer decoding. Some
// archives compute their payload digest over these bytes.
type RawPayloadChunk struct {
	Data []byte
}

// PayloadChunk carries transfer decoded payload bytes.
type PayloadChunk struct {
	Data []byte
}

// EndOfRecord ends a record. Emitted even when the record's body could not
// be decoded; only a truncated input leaves a record unterminated.
type EndOfRecord struct{}

// ParseIssue reports a problem in the input. Issues are part of the event
// stream, letting the consumer decide whether to continue.
type ParseIssue struct {
	Kind    IssueKind
	Message string
}

func (BeginOfRecord) isEvent()   {}
func (BlockChunk) isEvent()      {}
func (HTTPHeaders) isEvent()     {}
func (RawPayloadChunk) isEvent() {}
func (PayloadChunk) isEvent()    {}
func (EndOfRecord) isEvent()     {}
func (ParseIssue) isEvent()      {}

// phase is one step in the emission of a record's body. Either events holds
// ready made events, or open yields a reader whose data is emitted in chunks
// wrapped by wrap.
type phase struct {
	events  []Event
	open    func() (io.Reader, error)
	wrap    func([]byte) Event
	payload bool // part of payload decoding, aborted on a malformed body
}

// Parser reads a WARC byte stream and produces its event stream one event per
// Next call. Events are produced lazily in file order; record blocks are
// staged in a disk backed buffer so memory use stays bounded for large blocks.
//
// Next returns io.EOF after the last event. Unrecoverable format errors, like
// an unparseable header block, are returned as errors; recoverable problems
// are emitted as ParseIssue events.
type Parser struct {
	r       *bufio.Reader
	opts    parserOptions
	line    int
	started bool
	stopped bool

	block   diskbuffer.Buffer
	phases  []phase
	reader  io.Reader
	wrap    func([]byte) Event
	emitted bool
	buf     []byte
}

// ParserOption configures a Parser.
type ParserOption interface {
	apply(*parserOptions)
}

type parserOptions struct {
	bufferOpts []diskbuffer.Option
}

type funcParserOption struct {
	f func(*parserOptions)
}

func (fo *funcParserOption) apply(o *parserOptions) {
	fo.f(o)
}

// WithBufferOptions sets the options for the disk backed buffers staging
// record blocks.
func WithBufferOptions(opts ...diskbuffer.Option) ParserOption {
	return &funcParserOption{f: func(o *parserOptions) {
		o.bufferOpts = opts
	}}
}

// NewParser creates a Parser reading from r. The stream must be uncompressed;
// see OpenReader for transparent decompression of WARC files.
func NewParser(r io.Reader, opts ...ParserOption) *Parser {
	o := parserOptions{}
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Parser{
		r:    bufio.NewReader(r),
		opts: o,
		buf:  make([]byte, parseChunkSize),
	}
}

// Next returns the next event, or io.EOF when the stream is exhausted.
func (p *Parser) Next() (Event, error) {
	for {
		if p.reader != nil {
			e, err := p.nextChunkEvent()
			if err != nil || e != nil {
				return e, err
			}
			continue
		}
		if len(p.phases) > 0 {
			ph := p.phases[0]
			if len(ph.events) > 0 {
				e := ph.events[0]
				ph.events = ph.events[1:]
				p.phases[0] = ph
				if len(ph.events) == 0 && ph.open == nil {
					p.phases = p.phases[1:]
				}
				return e, nil
			}
			p.phases = p.phases[1:]
			if ph.open != nil {
				r, err := ph.open()
				if err != nil {
					// a body which cannot be decoded aborts payload emission only
					p.abortPayload()
					return ParseIssue{Kind: IssueMalformedHTTPRecord, Message: err.Error()}, nil
				}
				p.reader = r
				p.wrap = ph.wrap
				p.emitted = false
			}
			continue
		}
		if p.block != nil {
			_ = p.block.Close()
			p.block = nil
			return EndOfRecord{}, nil
		}
		if p.stopped {
			return nil, io.EOF
		}
		e, err := p.nextRecord()
		if err != nil || e != nil {
			return e, err
		}
	}
}

// nextChunkEvent reads the next chunk from the active phase reader.
func (p *Parser) nextChunkEvent() (Event, error) {
	n, err := p.reader.Read(p.buf)
	if n > 0 {
		p.emitted = true
		data := make([]byte, n)
		copy(data, p.buf[:n])
		return p.wrap(data), nil
	}
	if err == io.EOF || err == nil {
		if err == io.EOF && !p.emitted {
			// a present but empty section still yields one chunk
			p.emitted = true
			return p.wrap([]byte{}), nil
		}
		if err == io.EOF {
			p.reader = nil
		}
		return nil, nil
	}
	p.reader = nil
	p.abortPayload()
	return ParseIssue{Kind: IssueMalformedHTTPRecord, Message: err.Error()}, nil
}

// abortPayload drops the remaining payload phases of the current record.
func (p *Parser) abortPayload() {
	remaining := p.phases[:0]
	for _, ph := range p.phases {
		if !ph.payload {
			remaining = append(remaining, ph)
		}
	}
	p.phases = remaining
}

// stop ends the stream. Subsequent Next calls return io.EOF.
func (p *Parser) stop() {
	p.stopped = true
	if p.block != nil {
		_ = p.block.Close()
		p.block = nil
	}
	p.phases = nil
	p.reader = nil
}

// nextRecord parses the next record's header block and stages its content.
// It returns the BeginOfRecord event, an issue event, or (nil, nil) at a
// clean end of input where the caller should return io.EOF.
func (p *Parser) nextRecord() (Event, error) {
	rawHeader, err := p.readHeaderBlock()
	if err != nil {
		p.stop()
		if err != io.EOF {
			return nil, err
		}
		if !p.started {
			return ParseIssue{Kind: IssueEmptyFile, Message: "no records found"}, nil
		}
		return nil, nil
	}
	if rawHeader == nil {
		// input ended inside a header block
		p.stop()
		if !p.started {
			return ParseIssue{Kind: IssueEmptyFile, Message: "no records found"}, nil
		}
		return ParseIssue{Kind: IssueTruncatedFile, Message: "input ended inside a record header"}, nil
	}
	p.started = true

	version, fields, err := p.parseHeaderBlock(rawHeader)
	if err != nil {
		p.stop()
		return nil, err
	}

	lengthValue := fields.GetIgnoreCase(ContentLength)
	if lengthValue == "" {
		p.stop()
		return nil, newSyntaxError("missing Content-Length header", p.line)
	}
	contentLength, err := strconv.ParseInt(lengthValue, 10, 64)
	if err != nil || contentLength < 0 {
		p.stop()
		return nil, newSyntaxError("invalid Content-Length '"+lengthValue+"'", p.line)
	}

	begin := BeginOfRecord{Version: version, Fields: fields, RawHeader: rawHeader}

	block := diskbuffer.New(p.opts.bufferOpts...)
	body := countingreader.NewLimited(p.r, contentLength)
	if _, err := block.ReadFrom(body); err != nil {
		_ = block.Close()
		p.stop()
		return nil, err
	}
	if body.N() < contentLength {
		_ = block.Close()
		msg := fmt.Sprintf("record block is %d bytes, Content-Length says %d", body.N(), contentLength)
		return begin, p.truncated(msg)
	}
	var trailer [4]byte
	if _, err := io.ReadFull(p.r, trailer[:]); err != nil {
		_ = block.Close()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return begin, p.truncated("missing end of record marker")
		}
		p.stop()
		return nil, err
	}
	if string(trailer[:]) != crlfcrlf {
		_ = block.Close()
		p.stop()
		return nil, newSyntaxError("missing end of record marker", p.line)
	}

	p.block = block
	p.stageBlock(fields)
	return begin, nil
}

// truncated ends the stream after one final issue event, keeping the already
// parsed record header visible to the consumer.
func (p *Parser) truncated(msg string) error {
	p.stopped = true
	p.phases = []phase{{events: []Event{ParseIssue{Kind: IssueTruncatedFile, Message: msg}}}}
	return nil
}

// readHeaderBlock accumulates input up to the CRLFCRLF header terminator and
// returns the header bytes without the terminator. At a clean end of input it
// returns io.EOF; (nil, nil) means the input ended inside a header block.
func (p *Parser) readHeaderBlock() ([]byte, error) {
	header := []byte{}
	for {
		line, err := p.r.ReadString('\n')
		if err == io.EOF {
			if len(header) == 0 && line == "" {
				return nil, io.EOF
			}
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		p.line++
		if line == crlf {
			return header, nil
		}
		header = append(header, line...)
	}
}

// parseHeaderBlock validates the version line and splits the remaining lines
// into name value pairs at the first colon.
func (p *Parser) parseHeaderBlock(rawHeader []byte) (string, *WarcFields, error) {
	lines := strings.Split(string(rawHeader), crlf)
	firstLine := p.line - len(lines)
	version := strings.TrimRight(lines[0], sphtcrlf)
	if version != V1_0 && version != V1_1 {
		return "", nil, newSyntaxError("unsupported WARC version '"+version+"'", firstLine+1)
	}
	fields := &WarcFields{}
	for i, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			return "", nil, newSyntaxError("header line without colon", firstLine+2+i)
		}
		fields.Add(strings.Trim(name, sphtcrlf), strings.Trim(value, sphtcrlf))
	}
	return version, fields, nil
}

// stageBlock sets up the emission phases for the staged block.
func (p *Parser) stageBlock(fields *WarcFields) {
	size := p.block.Size()
	opaque := func() {
		p.phases = []phase{{
			open: func() (io.Reader, error) { return p.block.Slice(0, size), nil },
			wrap: func(data []byte) Event { return BlockChunk{Data: data, Part: BlockPartOpaque} },
		}}
	}

	recordType := strings.ToLower(fields.GetIgnoreCase(WarcType))
	contentType := fields.GetIgnoreCase(ContentType)
	if !isHTTPRecord(recordType, contentType) {
		opaque()
		return
	}

	headerEnd := findDelimiter(p.block, size)
	if headerEnd < 0 {
		p.phases = []phase{{
			events: []Event{ParseIssue{Kind: IssueMalformedHTTPRecord, Message: "no CRLFCRLF delimiter in HTTP record block"}},
		}}
		opaquePhase := phase{
			open: func() (io.Reader, error) { return p.block.Slice(0, size), nil },
			wrap: func(data []byte) Event { return BlockChunk{Data: data, Part: BlockPartOpaque} },
		}
		p.phases = append(p.phases, opaquePhase)
		return
	}

	statusLine, httpFields := parseHTTPHeaders(readSlice(p.block, 0, headerEnd))
	bodyStart := headerEnd + 4
	bodySize := size - bodyStart
	transferEncoding := httpFields.GetIgnoreCase("Transfer-Encoding")

	p.phases = []phase{
		{
			open: func() (io.Reader, error) { return p.block.Slice(0, bodyStart), nil },
			wrap: func(data []byte) Event { return BlockChunk{Data: data, Part: BlockPartHTTPHeader} },
		},
		{events: []Event{HTTPHeaders{StatusLine: statusLine, Fields: httpFields}}},
		{
			open: func() (io.Reader, error) { return p.block.Slice(bodyStart, bodySize), nil },
			wrap: func(data []byte) Event { return BlockChunk{Data: data, Part: BlockPartHTTPBody} },
		},
		{
			open:    func() (io.Reader, error) { return p.block.Slice(bodyStart, bodySize), nil },
			wrap:    func(data []byte) Event { return RawPayloadChunk{Data: data} },
			payload: true,
		},
		{
			open: func() (io.Reader, error) {
				return decodeParsedBody(p.block.Slice(bodyStart, bodySize), transferEncoding)
			},
			wrap:    func(data []byte) Event { return PayloadChunk{Data: data} },
			payload: true,
		},
	}
}

// isHTTPRecord reports whether the record block holds an HTTP message whose
// direction matches the record type.
func isHTTPRecord(recordType, contentType string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(contentType, " ", ""))
	switch recordType {
	case Request:
		return normalized == ApplicationHttpRequest
	case Response:
		return normalized == ApplicationHttpReponse
	}
	return false
}

// decodeParsedBody wraps the stored body with the decoders implied by its
// Transfer-Encoding value. Unlike the capture side, a bare gzip encoding is
// decoded here since the stored body is already fully delimited.
func decodeParsedBody(r io.Reader, transferEncoding string) (io.Reader, error) {
	chunked := false
	gzipped := false
	for _, c := range strings.Split(transferEncoding, ",") {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "chunked":
			chunked = true
		case "gzip":
			gzipped = true
		}
	}
	if chunked {
		r = newChunkedReader(r)
	}
	if gzipped {
		return gzip.NewReader(r)
	}
	return r, nil
}

// findDelimiter returns the offset of the first CRLFCRLF in the buffer, or -1.
func findDelimiter(b io.ReaderAt, size int64) int64 {
	buf := make([]byte, parseChunkSize+3)
	var offset int64
	for offset < size {
		n, err := b.ReadAt(buf, offset)
		if i := strings.Index(string(buf[:n]), crlfcrlf); i >= 0 {
			return offset + int64(i)
		}
		if err != nil || int64(n) >= size-offset {
			return -1
		}
		// overlap so a delimiter spanning two reads is still found
		offset += int64(n) - 3
	}
	return -1
}

// readSlice materializes a region of the buffer. Only used for HTTP header
// sections, which are small.
func readSlice(b diskbuffer.Buffer, offset, n int64) []byte {
	data := make([]byte, n)
	if _, err := io.ReadFull(b.Slice(offset, n), data); err != nil {
		return data[:0]
	}
	return data
}

// parseHTTPHeaders splits an HTTP header section into the status line and
// name value pairs. Unparseable lines are skipped.
func parseHTTPHeaders(header []byte) (string, *WarcFields) {
	lines := strings.Split(string(header), crlf)
	statusLine := ""
	if len(lines) > 0 {
		statusLine = lines[0]
	}
	fields := &WarcFields{}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields.Add(strings.Trim(name, sphtcrlf), strings.Trim(value, sphtcrlf))
	}
	return statusLine, fields
}
