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
	"math/rand"
	"strings"
	"sync"

	"github.com/warcforge/warc/internal/timestamp"
)

// revisitRef is the cached identity of a previously written response record,
// used to fill in the refers-to headers of a revisit record.
type revisitRef struct {
	recordID  string
	date      string
	targetURI string
}

// Writer writes records across a rotating series of WarcFiles.
//
// Files are named from a template where $date expands to a UTC timestamp,
// $number to a zero padded sequence number and $serial to a random string.
// A file is created lazily on the first write and closed when it has grown
// past the rotation threshold, so a record is never split across files.
//
// When revisit tracking is on, the Writer remembers the payload digest of
// every response record it writes and CheckForRevisit lets a caller turn a
// repeated payload into a revisit record pointing back at the first capture.
//
// All methods are safe for concurrent use.
type Writer struct {
	opts      writerOptions
	template  string
	mutex     sync.Mutex
	file      *WarcFile
	filesMade int
	pending   []*Record
	revisits  map[string]revisitRef
	closed    bool
}

// NewWriter creates a Writer naming its files from template. The template may
// contain directories and the substitution variables $date, $number and
// $serial. The ".warc" extension and the compressor's suffix are appended.
func NewWriter(template string, opts ...WriterOption) *Writer {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	w := &Writer{
		opts:     o,
		template: template,
	}
	if o.revisit {
		w.revisits = map[string]revisitRef{}
	}
	return w
}

var serialChars = []byte("abcdefghijklmnopqrstuvwxyz0123456789")

func randomSerial() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = serialChars[rand.Intn(len(serialChars))]
	}
	return string(b)
}

// fileName expands the template for the next file in the series.
func (w *Writer) fileName() string {
	r := strings.NewReplacer(
		"$date", timestamp.UTC14(now()),
		"$number", fmt.Sprintf("%05d", w.filesMade),
		"$serial", randomSerial(),
	)
	return r.Replace(w.template)
}

// currentFile returns the open file, creating the next one in the series if
// needed. When rotate is set and the open file has grown past the rotation
// threshold it is closed first.
func (w *Writer) currentFile(rotate bool) (*WarcFile, error) {
	if w.file != nil && rotate && w.opts.rotateSize > 0 {
		size, err := w.file.Size()
		if err != nil {
			return nil, err
		}
		if size >= w.opts.rotateSize {
			if err := w.file.Close(); err != nil {
				return nil, err
			}
			w.file = nil
		}
	}
	if w.file == nil {
		fileOpts := []FileOption{WithFileCompressor(w.opts.compressor)}
		if !w.opts.createWarcinfo {
			fileOpts = append(fileOpts, WithoutWarcinfo())
		}
		if w.opts.warcinfoFields != nil {
			fileOpts = append(fileOpts, WithWarcinfoFields(w.opts.warcinfoFields))
		}
		if w.opts.software != "" {
			fileOpts = append(fileOpts, WithSoftware(w.opts.software))
		}
		f, err := NewWarcFile(w.fileName(), fileOpts...)
		if err != nil {
			return nil, err
		}
		w.file = f
		w.filesMade++
	}
	return w.file, nil
}

func (w *Writer) writeRecord(record *Record, rotate bool) error {
	if w.closed {
		return ErrWriterClosed
	}
	f, err := w.currentFile(rotate)
	if err != nil {
		return err
	}
	if err := f.WriteRecord(record, true); err != nil {
		return err
	}
	w.rememberRevisit(record)
	return nil
}

// rememberRevisit caches the payload digest of a response record, overwriting
// any prior entry for the same digest. Repeated payloads are expected to be
// written as revisit records, which are not response typed and leave the
// cached original capture in place.
func (w *Writer) rememberRevisit(record *Record) {
	if w.revisits == nil || record.Type() != Response {
		return
	}
	digest := record.WarcHeader().Get(WarcPayloadDigest)
	date := record.Date()
	uri := record.WarcHeader().Get(WarcTargetURI)
	if digest == "" || date == "" || uri == "" {
		return
	}
	w.revisits[digest] = revisitRef{recordID: record.ID(), date: date, targetURI: uri}
}

// WriteRecord writes one record, rotating to a new file first if the open
// file has grown past the rotation threshold.
func (w *Writer) WriteRecord(record *Record) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writeRecord(record, true)
}

// WriteRecords writes records as a batch. With rotateBetween false the
// rotation check is suppressed for the whole batch so all records land in the
// same file, which keeps cross referencing records together.
func (w *Writer) WriteRecords(records []*Record, rotateBetween bool) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	for i, record := range records {
		rotate := rotateBetween || i == 0
		if err := w.writeRecord(record, rotate); err != nil {
			return err
		}
	}
	return nil
}

// QueuePending queues records to be written later by FlushPending. Queued
// records are written as one batch into a single file.
func (w *Writer) QueuePending(records ...*Record) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.pending = append(w.pending, records...)
	return nil
}

// FlushPending writes all queued records. The rotation check runs once before
// the batch, never inside it.
func (w *Writer) FlushPending() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.flushPending()
}

func (w *Writer) flushPending() error {
	pending := w.pending
	w.pending = nil
	for i, record := range pending {
		if err := w.writeRecord(record, i == 0); err != nil {
			// The failed and unwritten records still own their streams.
			for _, rest := range pending[i:] {
				_ = rest.Close()
			}
			return err
		}
	}
	return nil
}

// DiscardPending drops all queued records without writing them.
func (w *Writer) DiscardPending() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	for _, record := range w.pending {
		_ = record.Close()
	}
	w.pending = nil
}

// Discard drops the queued record with the given id, if queued.
func (w *Writer) Discard(recordID string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	result := w.pending[:0]
	for _, record := range w.pending {
		if record.WarcHeader().Get(WarcRecordID) == recordID {
			_ = record.Close()
			continue
		}
		result = append(result, record)
	}
	w.pending = result
}

// CheckForRevisit reports whether a response with the given payload digest was
// written before. On a hit it returns the refers-to headers identifying the
// original capture, ready to be set on a revisit record.
func (w *Writer) CheckForRevisit(payloadDigest string) (bool, *WarcFields) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.revisits == nil || payloadDigest == "" {
		return false, nil
	}
	ref, ok := w.revisits[payloadDigest]
	if !ok {
		return false, nil
	}
	fields := &WarcFields{}
	fields.Set(WarcRefersTo, ref.recordID)
	fields.Set(WarcRefersToDate, ref.date)
	fields.Set(WarcRefersToTargetURI, ref.targetURI)
	return true, fields
}

// Close flushes queued records and closes the open file. Close is idempotent.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return nil
	}
	if err := w.flushPending(); err != nil {
		return err
	}
	w.closed = true
	if w.file != nil {
		f := w.file
		w.file = nil
		return f.Close()
	}
	return nil
}

// Options for Writer
type writerOptions struct {
	compressor     Compressor
	rotateSize     int64
	createWarcinfo bool
	warcinfoFields *WarcFields
	software       string
	revisit        bool
}

// WriterOption configures a Writer.
type WriterOption interface {
	apply(*writerOptions)
}

type funcWriterOption struct {
	f func(*writerOptions)
}

func (fo *funcWriterOption) apply(o *writerOptions) {
	fo.f(o)
}

func newFuncWriterOption(f func(*writerOptions)) *funcWriterOption {
	return &funcWriterOption{f: f}
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		compressor:     NewIdentityCompressor(),
		rotateSize:     1024 * 1024 * 1024,
		createWarcinfo: true,
		revisit:        true,
	}
}

// WithCompressor sets the Compressor used for all files in the series.
// defaults to the identity compressor
func WithCompressor(c Compressor) WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.compressor = c
	})
}

// WithRotateSize sets the file size in bytes after which the Writer rotates
// to a new file. Zero disables rotation.
// defaults to 1 GiB
func WithRotateSize(size int64) WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.rotateSize = size
	})
}

// WithoutWriterWarcinfo suppresses warcinfo records in all files of the series.
func WithoutWriterWarcinfo() WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.createWarcinfo = false
	})
}

// WithWriterWarcinfoFields adds fields to the warcinfo record of every file.
func WithWriterWarcinfoFields(fields *WarcFields) WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.warcinfoFields = fields
	})
}

// WithWriterSoftware appends a name to the software identity written to warcinfo.
func WithWriterSoftware(s string) WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.software = s
	})
}

// WithRevisitTracking enables or disables the payload digest cache backing
// CheckForRevisit.
// defaults to enabled
func WithRevisitTracking(enabled bool) WriterOption {
	return newFuncWriterOption(func(o *writerOptions) {
		o.revisit = enabled
	})
}
