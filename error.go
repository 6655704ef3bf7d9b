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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrWriterClosed is returned when writing to a closed Writer.
	ErrWriterClosed = errors.New("warc: writer is closed")
	// ErrMissingContent is returned when a record is serialized before any content was set.
	ErrMissingContent = errors.New("warc: record content is not set")
	// ErrUnsupportedTransferEncoding is returned for transfer encodings the
	// capture contract does not support, such as gzip without chunked.
	ErrUnsupportedTransferEncoding = errors.New("warc: unsupported transfer encoding")
)

// RecordTypeError is returned when a record type outside the WARC 1.1 set is used.
type RecordTypeError struct {
	recordType string
}

func (e *RecordTypeError) Error() string {
	return fmt.Sprintf("warc: invalid record type: %s", e.recordType)
}

func newRecordTypeError(recordType string) *RecordTypeError {
	return &RecordTypeError{recordType: recordType}
}

// MissingHeaderError is returned when a record is serialized without one of
// the mandatory headers.
type MissingHeaderError struct {
	fieldName string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("warc: missing mandatory header: %s", e.fieldName)
}

func newMissingHeaderError(fieldName string) *MissingHeaderError {
	return &MissingHeaderError{fieldName: fieldName}
}

// SyntaxError is used for syntactical errors in a parsed record, like an
// unparseable header block.
type SyntaxError struct {
	msg     string
	line    int
	wrapped error
}

func newSyntaxError(msg string, line int) *SyntaxError {
	return &SyntaxError{msg: msg, line: line}
}

func (e *SyntaxError) Error() string {
	if e.line > 0 {
		return fmt.Sprintf("warc: %s at line %d", e.msg, e.line)
	}
	return fmt.Sprintf("warc: %s", e.msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

type multiErr []error

func (e multiErr) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e[0].Error())
	for _, s := range e[1:] {
		b.WriteString(", ")
		b.WriteString(s.Error())
	}
	b.WriteString("]")
	return b.String()
}
