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
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testHTTPHeader = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 14\r\n" +
	"\r\n"

const testHTTPBody = "Hello, world!\n"

const testChunkedHeader = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain\r\n" +
	"Transfer-Encoding: chunked\r\n" +
	"\r\n"

const testChunkedBody = "5\r\nHello\r\n8\r\n, world!\r\n0\r\n\r\n"

// testRecordBytes frames a block as one WARC record on the wire.
func testRecordBytes(recordType, contentType, block string) string {
	return "WARC/1.1\r\n" +
		"WARC-Type: " + recordType + "\r\n" +
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
		"WARC-Date: 2001-09-12T05:30:20Z\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(block)) +
		"\r\n" +
		block +
		"\r\n\r\n"
}

// collectEvents drains a parser, concatenating chunk data per event type.
func collectEvents(t *testing.T, input string) []Event {
	t.Helper()
	parser := NewParser(strings.NewReader(input))
	var events []Event
	for {
		event, err := parser.Next()
		if err == io.EOF {
			return events
		}
		assert.NoError(t, err)
		if err != nil {
			return events
		}
		events = append(events, event)
	}
}

// eventData concatenates the data of consecutive chunk events of one kind.
func eventData(events []Event, part BlockPart) string {
	var sb strings.Builder
	for _, e := range events {
		if c, ok := e.(BlockChunk); ok && c.Part == part {
			sb.Write(c.Data)
		}
	}
	return sb.String()
}

func payloadData(events []Event) (raw, decoded string) {
	var rawSb, decodedSb strings.Builder
	for _, e := range events {
		switch c := e.(type) {
		case RawPayloadChunk:
			rawSb.Write(c.Data)
		case PayloadChunk:
			decodedSb.Write(c.Data)
		}
	}
	return rawSb.String(), decodedSb.String()
}

func TestParser_resourceRecord(t *testing.T) {
	assert := assert.New(t)
	events := collectEvents(t, testRecordBytes(Resource, "text/plain", "Some content"))

	assert.Len(events, 3)
	begin, ok := events[0].(BeginOfRecord)
	assert.True(ok)
	assert.Equal(V1_1, begin.Version)
	assert.Equal(Resource, begin.Fields.Get(WarcType))
	assert.Equal("12", begin.Fields.Get(ContentLength))
	assert.True(strings.HasPrefix(string(begin.RawHeader), "WARC/1.1\r\n"))

	assert.Equal("Some content", eventData(events, BlockPartOpaque))
	_, ok = events[len(events)-1].(EndOfRecord)
	assert.True(ok)
}

func TestParser_httpResponseRecord(t *testing.T) {
	assert := assert.New(t)
	block := testHTTPHeader + testHTTPBody
	events := collectEvents(t, testRecordBytes(Response, ApplicationHttpReponse, block))

	assert.Equal(testHTTPHeader, eventData(events, BlockPartHTTPHeader))
	assert.Equal(testHTTPBody, eventData(events, BlockPartHTTPBody))

	raw, decoded := payloadData(events)
	assert.Equal(testHTTPBody, raw)
	assert.Equal(testHTTPBody, decoded)

	var headers *HTTPHeaders
	for _, e := range events {
		if h, ok := e.(HTTPHeaders); ok {
			headers = &h
		}
	}
	assert.NotNil(headers)
	assert.Equal("HTTP/1.1 200 OK", headers.StatusLine)
	assert.Equal("text/plain", headers.Fields.GetIgnoreCase("Content-Type"))
}

func TestParser_chunkedResponseRecord(t *testing.T) {
	assert := assert.New(t)
	block := testChunkedHeader + testChunkedBody
	events := collectEvents(t, testRecordBytes(Response, ApplicationHttpReponse, block))

	// the raw payload keeps the chunked framing, the decoded payload loses it
	raw, decoded := payloadData(events)
	assert.Equal(testChunkedBody, raw)
	assert.Equal("Hello, world!", decoded)
}

func TestParser_eventOrder(t *testing.T) {
	block := testHTTPHeader + testHTTPBody
	events := collectEvents(t, testRecordBytes(Response, ApplicationHttpReponse, block))

	var order []string
	for _, e := range events {
		switch c := e.(type) {
		case BeginOfRecord:
			order = append(order, "begin")
		case BlockChunk:
			switch c.Part {
			case BlockPartHTTPHeader:
				order = append(order, "header-chunk")
			case BlockPartHTTPBody:
				order = append(order, "body-chunk")
			default:
				order = append(order, "opaque-chunk")
			}
		case HTTPHeaders:
			order = append(order, "http-headers")
		case RawPayloadChunk:
			order = append(order, "raw-payload")
		case PayloadChunk:
			order = append(order, "payload")
		case EndOfRecord:
			order = append(order, "end")
		}
	}
	assert.Equal(t, []string{"begin", "header-chunk", "http-headers", "body-chunk", "raw-payload", "payload", "end"}, order)
}

func TestParser_multipleRecords(t *testing.T) {
	assert := assert.New(t)
	input := testRecordBytes(Resource, "text/plain", "first") +
		testRecordBytes(Resource, "text/plain", "second")
	events := collectEvents(t, input)

	begins := 0
	ends := 0
	for _, e := range events {
		switch e.(type) {
		case BeginOfRecord:
			begins++
		case EndOfRecord:
			ends++
		}
	}
	assert.Equal(2, begins)
	assert.Equal(2, ends)
	assert.Equal("firstsecond", eventData(events, BlockPartOpaque))
}

func TestParser_emptyInput(t *testing.T) {
	events := collectEvents(t, "")
	assert.Len(t, events, 1)
	issue, ok := events[0].(ParseIssue)
	assert.True(t, ok)
	assert.Equal(t, IssueEmptyFile, issue.Kind)
}

func TestParser_truncatedBlock(t *testing.T) {
	full := testRecordBytes(Resource, "text/plain", "Some content")
	events := collectEvents(t, full[:len(full)-10])

	assert.Len(t, events, 2)
	_, ok := events[0].(BeginOfRecord)
	assert.True(t, ok)
	issue, ok := events[1].(ParseIssue)
	assert.True(t, ok)
	assert.Equal(t, IssueTruncatedFile, issue.Kind)
}

func TestParser_truncatedHeader(t *testing.T) {
	full := testRecordBytes(Resource, "text/plain", "Some content")
	input := full + "WARC/1.1\r\nWARC-Type: resource\r\n"
	events := collectEvents(t, input)

	issue, ok := events[len(events)-1].(ParseIssue)
	assert.True(t, ok)
	assert.Equal(t, IssueTruncatedFile, issue.Kind)
}

func TestParser_malformedHTTPRecord(t *testing.T) {
	assert := assert.New(t)
	// header section never terminated by a blank line
	block := "HTTP/1.1 200 OK\r\nContent-Type: text/plain"
	events := collectEvents(t, testRecordBytes(Response, ApplicationHttpReponse, block))

	var issue *ParseIssue
	for _, e := range events {
		if i, ok := e.(ParseIssue); ok {
			issue = &i
		}
	}
	assert.NotNil(issue)
	assert.Equal(IssueMalformedHTTPRecord, issue.Kind)

	// the block is still emitted opaquely and the record terminated
	assert.Equal(block, eventData(events, BlockPartOpaque))
	_, ok := events[len(events)-1].(EndOfRecord)
	assert.True(ok)
}

func TestParser_badVersionLine(t *testing.T) {
	parser := NewParser(strings.NewReader("HTTP/1.1 200 OK\r\n\r\n"))
	_, err := parser.Next()
	var syntaxErr *SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestParser_missingContentLength(t *testing.T) {
	input := "WARC/1.1\r\nWARC-Type: resource\r\n\r\n"
	parser := NewParser(strings.NewReader(input))
	_, err := parser.Next()
	var syntaxErr *SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestParser_emptyHTTPBody(t *testing.T) {
	assert := assert.New(t)
	block := "HTTP/1.1 204 No Content\r\n\r\n"
	events := collectEvents(t, testRecordBytes(Response, ApplicationHttpReponse, block))

	// empty sections still produce one empty chunk each
	assert.Equal("", eventData(events, BlockPartHTTPBody))
	bodyChunks := 0
	for _, e := range events {
		if c, ok := e.(BlockChunk); ok && c.Part == BlockPartHTTPBody {
			bodyChunks++
		}
	}
	assert.Equal(1, bodyChunks)
}
