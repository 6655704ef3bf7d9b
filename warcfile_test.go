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
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseFile parses a finished WARC file and returns its events.
func parseFile(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	r, err := OpenReader(file)
	require.NoError(t, err)
	parser := NewParser(r)
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

// recordsOf groups a parsed event stream by record.
func recordsOf(events []Event) (headers []*WarcFields, blocks []string) {
	var block strings.Builder
	for _, e := range events {
		switch c := e.(type) {
		case BeginOfRecord:
			headers = append(headers, c.Fields)
			block.Reset()
		case BlockChunk:
			block.Write(c.Data)
		case EndOfRecord:
			blocks = append(blocks, block.String())
		}
	}
	return
}

func TestWarcFile_warcinfo(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dir := t.TempDir()

	wf, err := NewWarcFile(filepath.Join(dir, "test"), WithSoftware("mycrawler/1.0"))
	require.NoError(err)
	assert.Equal("test.warc", wf.Name())

	// while open the file carries the open suffix
	_, err = os.Stat(filepath.Join(dir, "test.warc.open"))
	assert.NoError(err)

	rec, err := NewRecord(Resource, "text/plain")
	require.NoError(err)
	rec.SetContentBytes([]byte("Some content"), "", nil)
	require.NoError(wf.WriteRecord(rec, true))

	require.NoError(wf.Close())
	_, err = os.Stat(filepath.Join(dir, "test.warc.open"))
	assert.True(os.IsNotExist(err))

	headers, blocks := recordsOf(parseFile(t, filepath.Join(dir, "test.warc")))
	require.Len(headers, 2)

	assert.Equal(Warcinfo, headers[0].Get(WarcType))
	assert.Equal(ApplicationWarcFields, headers[0].Get(ContentType))
	assert.Equal("test.warc", headers[0].Get(WarcFilename))
	assert.Contains(blocks[0], "software: warcforge/0.1.0 mycrawler/1.0\r\n")
	assert.Contains(blocks[0], "format: WARC File Format 1.1\r\n")
	assert.Contains(blocks[0], "conformsTo: ")

	// later records point back at the warcinfo record
	assert.Equal(headers[0].Get(WarcRecordID), headers[1].Get(WarcWarcinfoID))
	assert.Equal("Some content", blocks[1])
}

func TestWarcFile_withoutWarcinfo(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	dir := t.TempDir()

	wf, err := NewWarcFile(filepath.Join(dir, "test"), WithoutWarcinfo())
	require.NoError(err)

	rec, err := NewRecord(Resource, "text/plain")
	require.NoError(err)
	rec.SetContentBytes([]byte("Some content"), "", nil)
	require.NoError(wf.WriteRecord(rec, true))
	require.NoError(wf.Close())

	headers, _ := recordsOf(parseFile(t, filepath.Join(dir, "test.warc")))
	require.Len(headers, 1)
	assert.Equal(Resource, headers[0].Get(WarcType))
	assert.False(headers[0].Has(WarcWarcinfoID))
}

func TestWarcFile_extraWarcinfoFields(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	extra := &WarcFields{}
	extra.Set("operator", "tester")
	wf, err := NewWarcFile(filepath.Join(dir, "test"), WithWarcinfoFields(extra))
	require.NoError(t, err)
	require.NoError(t, wf.Close())

	_, blocks := recordsOf(parseFile(t, filepath.Join(dir, "test.warc")))
	require.Len(t, blocks, 1)
	assert.Contains(blocks[0], "operator: tester\r\n")
}

func TestWarcFile_compressedVerifies(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	wf, err := NewWarcFile(filepath.Join(dir, "test"), WithFileCompressor(NewGzipCompressor(5)))
	require.NoError(t, err)
	assert.Equal("test.warc.gz", wf.Name())

	rec, err := NewRecord(Resource, "text/plain")
	require.NoError(t, err)
	rec.SetContentBytes([]byte("Some content"), "", nil)
	require.NoError(t, wf.WriteRecord(rec, true))
	require.NoError(t, wf.Close())

	events := parseFile(t, filepath.Join(dir, "test.warc.gz"))
	verifier := NewVerifier()
	for _, e := range events {
		verifier.ProcessEvent(e)
	}
	assert.NoError(verifier.Finish("test.warc.gz"))
}
