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

package countingreader

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReader_counts(t *testing.T) {
	assert := assert.New(t)
	r := New(strings.NewReader("Some content"))

	got, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Equal("Some content", string(got))
	assert.Equal(int64(12), r.N())
}

func TestReader_limited(t *testing.T) {
	assert := assert.New(t)
	r := NewLimited(strings.NewReader("Some content"), 4)

	got, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Equal("Some", string(got))
	assert.Equal(int64(4), r.N())

	// subsequent reads keep returning EOF
	_, err = r.Read(make([]byte, 1))
	assert.Equal(io.EOF, err)
}

func TestReader_limitBeyondSource(t *testing.T) {
	assert := assert.New(t)
	r := NewLimited(strings.NewReader("Some"), 100)

	got, err := io.ReadAll(r)
	assert.NoError(err)
	assert.Equal("Some", string(got))
	assert.Equal(int64(4), r.N())
}
