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

package diskbuffer

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func spoolFilesIn(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	count := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), tmpFilePrefix) {
			count++
		}
	}
	return count
}

func TestBuffer_inMemory(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	b := New(WithMaxMemBytes(1024), WithTmpDir(dir))

	n, err := b.WriteString("Some content")
	assert.NoError(err)
	assert.Equal(12, n)
	assert.Equal(int64(12), b.Size())

	// nothing spooled
	assert.Equal(0, spoolFilesIn(t, dir))

	got, err := io.ReadAll(b)
	assert.NoError(err)
	assert.Equal("Some content", string(got))
	assert.NoError(b.Close())
}

func TestBuffer_spillsToFile(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	b := New(WithMaxMemBytes(4), WithTmpDir(dir))

	_, err := b.WriteString("Some content")
	assert.NoError(err)
	assert.Equal(int64(12), b.Size())
	assert.Equal(1, spoolFilesIn(t, dir))

	got, err := io.ReadAll(b)
	assert.NoError(err)
	assert.Equal("Some content", string(got))

	// Close removes the spool file
	assert.NoError(b.Close())
	assert.Equal(0, spoolFilesIn(t, dir))
}

func TestBuffer_readAtAcrossBoundary(t *testing.T) {
	assert := assert.New(t)
	b := New(WithMaxMemBytes(4), WithTmpDir(t.TempDir()))
	defer b.Close()

	_, err := b.WriteString("Some content")
	assert.NoError(err)

	tests := []struct {
		name string
		off  int64
		n    int
		want string
	}{
		{"memory only", 0, 4, "Some"},
		{"spanning", 2, 6, "me con"},
		{"file only", 5, 7, "content"},
		{"clamped at end", 10, 10, "nt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := make([]byte, tt.n)
			n, err := b.ReadAt(p, tt.off)
			assert.NoError(err)
			assert.Equal(tt.want, string(p[:n]))
		})
	}

	_, err = b.ReadAt(make([]byte, 1), 12)
	assert.Equal(io.EOF, err)
}

func TestBuffer_seekAndSlice(t *testing.T) {
	assert := assert.New(t)
	b := New(WithMaxMemBytes(4), WithTmpDir(t.TempDir()))
	defer b.Close()

	_, err := b.WriteString("Some content")
	assert.NoError(err)

	// reads consume, Seek repositions
	p := make([]byte, 4)
	_, err = io.ReadFull(b, p)
	assert.NoError(err)
	assert.Equal("Some", string(p))

	pos, err := b.Seek(0, io.SeekStart)
	assert.NoError(err)
	assert.Equal(int64(0), pos)
	got, err := io.ReadAll(b)
	assert.NoError(err)
	assert.Equal("Some content", string(got))

	// Slice reads do not move the read offset
	slice, err := io.ReadAll(b.Slice(5, 7))
	assert.NoError(err)
	assert.Equal("content", string(slice))
}

func TestBuffer_readFromAndWriteTo(t *testing.T) {
	assert := assert.New(t)
	b := New(WithMaxMemBytes(4), WithTmpDir(t.TempDir()))
	defer b.Close()

	n, err := b.ReadFrom(strings.NewReader("Some content"))
	assert.NoError(err)
	assert.Equal(int64(12), n)

	var out bytes.Buffer
	n, err = b.WriteTo(&out)
	assert.NoError(err)
	assert.Equal(int64(12), n)
	assert.Equal("Some content", out.String())
}

func TestBuffer_closedBufferFails(t *testing.T) {
	assert := assert.New(t)
	b := New()
	assert.NoError(b.Close())
	assert.NoError(b.Close())

	_, err := b.WriteString("Some content")
	assert.Error(err)
	_, err = b.ReadAt(make([]byte, 1), 0)
	assert.Error(err)
}
