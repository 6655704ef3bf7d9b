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

package httpcapture

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warcforge/warc"
)

func TestTransport_roundTrip(t *testing.T) {
	assert := assert.New(t)
	recorder, dir := newTestRecorder(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, testResponseBody)
	}))
	defer server.Close()

	client := &http.Client{Transport: &Transport{Recorder: recorder}}
	resp, err := client.Get(server.URL + "/hello")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(testResponseBody, string(body))

	records := parseCaptured(t, filepath.Join(dir, "capture-00000.warc.open"))
	require.Len(t, records, 2)

	request, response := records[0], records[1]
	assert.Equal(warc.Request, request.fields.Get(warc.WarcType))
	assert.Equal(server.URL+"/hello", request.fields.Get(warc.WarcTargetURI))
	assert.True(strings.HasPrefix(request.block, "GET /hello HTTP/1.1\r\n"))
	assert.Equal("127.0.0.1", request.fields.Get(warc.WarcIPAddress))

	assert.Equal(warc.Response, response.fields.Get(warc.WarcType))
	assert.True(strings.HasPrefix(response.block, "HTTP/1.1 200 OK\r\n"))
	assert.True(strings.HasSuffix(response.block, testResponseBody))
}

func TestTransport_closeWithoutRead(t *testing.T) {
	assert := assert.New(t)
	recorder, dir := newTestRecorder(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, testResponseBody)
	}))
	defer server.Close()

	client := &http.Client{Transport: &Transport{Recorder: recorder}}
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	// Close drains the body so the capture still covers the full response
	require.NoError(t, resp.Body.Close())

	records := parseCaptured(t, filepath.Join(dir, "capture-00000.warc.open"))
	require.Len(t, records, 2)
	assert.True(strings.HasSuffix(records[1].block, testResponseBody))
}

func TestTransport_unsupportedScheme(t *testing.T) {
	recorder, _ := newTestRecorder(t)
	client := &http.Client{Transport: &Transport{Recorder: recorder}}
	_, err := client.Get("ftp://example.com/")
	assert.Error(t, err)
}
