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
)

type nameValue struct {
	Name  string
	Value string
}

func (n *nameValue) String() string {
	return n.Name + ": " + n.Value
}

// WarcFields is an ordered list of WARC header fields.
//
// Field names are compared case sensitively as written. Names may repeat; the
// insertion order is preserved when the fields are written out.
type WarcFields []*nameValue

// Get gets the first value associated with the given name.
// If the name doesn't exist, Get returns "". To access all values of a
// repeated field, use GetAll.
func (wf *WarcFields) Get(name string) string {
	for _, nv := range *wf {
		if nv.Name == name {
			return nv.Value
		}
	}
	return ""
}

// GetIgnoreCase gets the first value whose name matches ignoring case. Used
// when reading foreign input; writing always uses canonical names.
func (wf *WarcFields) GetIgnoreCase(name string) string {
	for _, nv := range *wf {
		if strings.EqualFold(nv.Name, name) {
			return nv.Value
		}
	}
	return ""
}

// GetAll returns all values associated with the given name in insertion order.
func (wf *WarcFields) GetAll(name string) []string {
	var result []string
	for _, nv := range *wf {
		if nv.Name == name {
			result = append(result, nv.Value)
		}
	}
	return result
}

// Has reports whether a field with the given name exists.
func (wf *WarcFields) Has(name string) bool {
	for _, nv := range *wf {
		if nv.Name == name {
			return true
		}
	}
	return false
}

// Add appends a field, repeating the name if it is already present.
func (wf *WarcFields) Add(name, value string) {
	*wf = append(*wf, &nameValue{Name: name, Value: value})
}

// Set overwrites the value of the named field, removing any extra occurrences.
// A new field is appended if the name is not present.
func (wf *WarcFields) Set(name, value string) {
	isSet := false
	result := (*wf)[:0]
	for _, nv := range *wf {
		if nv.Name == name {
			if isSet {
				continue
			}
			nv.Value = value
			isSet = true
		}
		result = append(result, nv)
	}
	*wf = result
	if !isSet {
		*wf = append(*wf, &nameValue{Name: name, Value: value})
	}
}

// SetAll replaces all occurrences of the named field with the given values.
func (wf *WarcFields) SetAll(name string, values []string) {
	wf.Delete(name)
	for _, v := range values {
		wf.Add(name, v)
	}
}

// Delete removes all fields with the given name.
func (wf *WarcFields) Delete(name string) {
	result := (*wf)[:0]
	for _, nv := range *wf {
		if nv.Name != name {
			result = append(result, nv)
		}
	}
	*wf = result
}

// Write writes the fields to w, one "Name: value\r\n" line per value.
func (wf *WarcFields) Write(w io.Writer) (bytesWritten int64, err error) {
	var n int
	for _, field := range *wf {
		n, err = fmt.Fprintf(w, "%s: %s\r\n", field.Name, field.Value)
		bytesWritten += int64(n)
		if err != nil {
			return
		}
	}
	return
}

func (wf *WarcFields) String() string {
	sb := &strings.Builder{}
	if _, err := wf.Write(sb); err != nil {
		panic(err)
	}
	return sb.String()
}
