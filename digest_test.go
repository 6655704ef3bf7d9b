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
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha512"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigest_Format(t *testing.T) {
	content := []byte("Some content")
	tests := []struct {
		name      string
		algorithm string
		sum       []byte
		want      string
	}{
		{"md5 uses lower case hex", "md5", sumMD5(content), "md5:b53227da4280f0e18270f21dd77c91d0"},
		{"sha1 uses base32", "sha1", sumSHA1(content), "sha1:T4NG5T3U5H43DLSS5DVVQHKCBZR6QRJ2"},
		{"sha512 uses base32", "sha512", sumSHA512(content), "sha512:WIGZO5YY5VT7FP3WEDXC3GBP3BIMJCB6ZDIEQRAP463KQ3HWGIX5PEOEPMGHI2O353Z6GOIDFYNLYS6OXZPPYECLYGNBC6766RDYMBI="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewDigest(tt.algorithm, tt.sum).Format())
		})
	}
}

func TestParseDigest(t *testing.T) {
	content := []byte("Some content")
	tests := []struct {
		name    string
		value   string
		wantAlg string
		wantRaw []byte
		wantErr bool
	}{
		{"base32 sha1", "sha1:T4NG5T3U5H43DLSS5DVVQHKCBZR6QRJ2", "sha1", sumSHA1(content), false},
		{"lower case base32 sha1", "sha1:t4ng5t3u5h43dlss5dvvqhkcbzr6qrj2", "sha1", sumSHA1(content), false},
		{"hex md5", "md5:b53227da4280f0e18270f21dd77c91d0", "md5", sumMD5(content), false},
		{"dashed algorithm name", "SHA-1:T4NG5T3U5H43DLSS5DVVQHKCBZR6QRJ2", "sha1", sumSHA1(content), false},
		{"unknown algorithm", "mysecret:12345", "", nil, true},
		{"no colon", "sha1T4NG", "", nil, true},
		{"wrong encoded length", "sha1:T4NG", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			d, err := ParseDigest(tt.value)
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tt.wantAlg, d.Algorithm())
			assert.True(d.Equals(tt.wantRaw))
		})
	}
}

func TestParseDigest_roundTrip(t *testing.T) {
	for _, value := range []string{
		"sha1:T4NG5T3U5H43DLSS5DVVQHKCBZR6QRJ2",
		"md5:b53227da4280f0e18270f21dd77c91d0",
		"sha512:WIGZO5YY5VT7FP3WEDXC3GBP3BIMJCB6ZDIEQRAP463KQ3HWGIX5PEOEPMGHI2O353Z6GOIDFYNLYS6OXZPPYECLYGNBC6766RDYMBI=",
	} {
		d, err := ParseDigest(value)
		assert.NoError(t, err)
		assert.Equal(t, value, d.Format())
	}
}

func sumMD5(p []byte) []byte {
	s := md5.Sum(p)
	return s[:]
}

func sumSHA1(p []byte) []byte {
	s := sha1.Sum(p)
	return s[:]
}

func sumSHA512(p []byte) []byte {
	s := sha512.Sum512(p)
	return s[:]
}
