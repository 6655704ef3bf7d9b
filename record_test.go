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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const someContentSha512 = "sha512:WIGZO5YY5VT7FP3WEDXC3GBP3BIMJCB6ZDIEQRAP463KQ3HWGIX5PEOEPMGHI2O353Z6GOIDFYNLYS6OXZPPYECLYGNBC6766RDYMBI="

func fixedTime() {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
}

func TestNewRecord(t *testing.T) {
	fixedTime()
	assert := assert.New(t)

	rec, err := NewRecord(Resource, "text/plain")
	require.NoError(t, err)
	assert.Equal(Resource, rec.Type())
	assert.Equal("2001-09-12T05:30:20Z", rec.Date())
	assert.Equal("text/plain", rec.WarcHeader().Get(ContentType))
	// a fresh record is complete enough to serialize
	assert.True(strings.HasPrefix(rec.WarcHeader().Get(WarcRecordID), "<urn:uuid:"))

	_, err = NewRecord("shipment", "")
	assert.Error(err)
	var typeErr *RecordTypeError
	assert.ErrorAs(err, &typeErr)
}

func TestRecord_ID_stable(t *testing.T) {
	rec, err := NewRecord(Metadata, "")
	require.NoError(t, err)

	id := rec.ID()
	assert.True(t, strings.HasPrefix(id, "<urn:uuid:"))
	assert.True(t, strings.HasSuffix(id, ">"))
	assert.Equal(t, id, rec.ID())
	assert.Equal(t, id, rec.WarcHeader().Get(WarcRecordID))
}

func TestRecord_SetContentBytes(t *testing.T) {
	assert := assert.New(t)
	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)

	rec.SetContentBytes([]byte("Some content"), "text/plain", nil)
	assert.Equal("12", rec.WarcHeader().Get(ContentLength))
	assert.Equal(someContentSha512, rec.WarcHeader().Get(WarcBlockDigest))
	assert.Equal("text/plain", rec.WarcHeader().Get(ContentType))
	assert.True(rec.HasContent())
}

func TestRecord_SetContentStream(t *testing.T) {
	assert := assert.New(t)
	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)

	stream := bytes.NewReader([]byte("Some content"))
	assert.NoError(rec.SetContentStream(stream, "text/plain", nil, false))
	assert.Equal("12", rec.WarcHeader().Get(ContentLength))
	assert.Equal(someContentSha512, rec.WarcHeader().Get(WarcBlockDigest))

	// the stream must be back at the start for serialization
	pos, err := stream.Seek(0, 1)
	assert.NoError(err)
	assert.Equal(int64(0), pos)
}

func TestRecord_WriteTo(t *testing.T) {
	fixedTime()
	assert := assert.New(t)

	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)
	rec.SetHeader(WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>")
	rec.SetTargetURI("https://example.com/")
	rec.SetContentBytes([]byte("Some content"), "text/plain", nil)

	buf := &bytes.Buffer{}
	n, err := rec.WriteTo(buf)
	assert.NoError(err)

	want := "WARC/1.1\r\n" +
		"WARC-Type: resource\r\n" +
		"WARC-Date: 2001-09-12T05:30:20Z\r\n" +
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
		"WARC-Target-URI: https://example.com/\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 12\r\n" +
		"WARC-Block-Digest: " + someContentSha512 + "\r\n" +
		"\r\n" +
		"Some content" +
		"\r\n\r\n"
	assert.Equal(want, buf.String())
	assert.Equal(int64(len(want)), n)
}

func TestRecord_WriteTo_missingContent(t *testing.T) {
	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)
	rec.SetHeader(WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>")

	_, err = rec.WriteTo(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrMissingContent)
}

func TestRecord_WriteTo_generatedID(t *testing.T) {
	// a record serializes without the caller ever touching the id
	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)
	rec.SetContentBytes([]byte("Some content"), "text/plain", nil)

	buf := &bytes.Buffer{}
	_, err = rec.WriteTo(buf)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "WARC-Record-ID: <urn:uuid:")
}

func TestRecord_WriteTo_missingMandatoryHeader(t *testing.T) {
	rec, err := NewRecord(Resource, "")
	require.NoError(t, err)
	rec.SetContentBytes([]byte("Some content"), "", nil)
	rec.WarcHeader().Delete(WarcDate)

	_, err = rec.WriteTo(&bytes.Buffer{})
	var missingErr *MissingHeaderError
	assert.ErrorAs(t, err, &missingErr)
}

func TestRecord_Concurrent(t *testing.T) {
	assert := assert.New(t)
	req, err := NewRecord(Request, ApplicationHttpRequest)
	require.NoError(t, err)
	resp, err := NewRecord(Response, ApplicationHttpReponse)
	require.NoError(t, err)

	req.Concurrent(resp)
	assert.Equal(resp.ID(), req.WarcHeader().Get(WarcConcurrentTo))
	assert.Equal(req.ID(), resp.WarcHeader().Get(WarcConcurrentTo))
}
