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
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/prometheus/tsdb/fileutil"
	"github.com/warcforge/warc/internal"
)

const (
	software   = "warcforge/0.1.0"
	conformsTo = "https://bibnum.bnf.fr/WARC/WARC_ISO_28500_version1-1_latestdraft.pdf"
)

// WarcFile is one physical WARC file on disk. It owns the file handle and a
// Compressor, and unless suppressed writes a warcinfo record at creation
// which later records are stamped with through WARC-Warcinfo-ID.
//
// While open, the file carries the openFileSuffix. Close renames it to its
// final name.
type WarcFile struct {
	opts       warcFileOptions
	file       *os.File
	fileName   string
	path       string
	warcinfoID string
}

// NewWarcFile opens path + ".warc" + the compressor's extension for append,
// applies the compressor's Start hook and writes the warcinfo record.
func NewWarcFile(path string, opts ...FileOption) (*WarcFile, error) {
	o := defaultWarcFileOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	fullPath := path + ".warc" + o.compressor.FileExtension()
	w := &WarcFile{
		opts:     o,
		fileName: filepath.Base(fullPath),
		path:     fullPath,
	}

	file, err := os.OpenFile(fullPath+o.openFileSuffix, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, err
	}
	w.file = file

	if err := o.compressor.Start(file); err != nil {
		_ = file.Close()
		return nil, err
	}

	if o.createWarcinfo {
		if err := w.createWarcinfoRecord(); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return w, nil
}

// Name returns the file's final name without the open file suffix.
func (w *WarcFile) Name() string {
	return w.fileName
}

// Size returns the current size of the file on disk. Compressors may still
// hold buffered data for the record being written.
func (w *WarcFile) Size() (int64, error) {
	fi, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (w *WarcFile) createWarcinfoRecord() error {
	rec, err := NewRecord(Warcinfo, ApplicationWarcFields)
	if err != nil {
		return err
	}
	rec.SetHeader(WarcFilename, w.fileName)

	fields := &WarcFields{}
	softwareValue := software
	if w.opts.software != "" {
		softwareValue += " " + w.opts.software
	}
	fields.Set("software", softwareValue)
	fields.Set("format", "WARC File Format 1.1")
	fields.Set("conformsTo", conformsTo)
	fields.Set("host", internal.GetHostName())
	fields.Set("ip", internal.GetOutboundIP())
	fields.Set("go-version", runtime.Version())
	if w.opts.warcinfoFields != nil {
		for _, nv := range *w.opts.warcinfoFields {
			fields.Set(nv.Name, nv.Value)
		}
	}

	rec.SetContentBytes(warcFieldsBody(fields), "", nil)
	if err := w.WriteRecord(rec, false); err != nil {
		return err
	}
	w.warcinfoID = rec.ID()
	return nil
}

// WriteRecord writes one record through the compressor and closes the record.
// When stampWarcinfo is set and this file has a warcinfo record, the record
// gets a WARC-Warcinfo-ID back-reference first.
func (w *WarcFile) WriteRecord(record *Record, stampWarcinfo bool) error {
	if w.warcinfoID != "" && stampWarcinfo {
		record.SetHeader(WarcWarcinfoID, w.warcinfoID)
	}
	_, err := w.opts.compressor.WriteRecord(w.file, record)
	if err != nil {
		return err
	}
	if err := record.Close(); err != nil {
		return err
	}
	// sync to reduce the chance of half written records in case of crash
	return w.file.Sync()
}

// Close closes the file handle and renames the file to its final name.
// Pending writer level batches are the Writer's responsibility, not WarcFile's.
func (w *WarcFile) Close() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	if err := f.Close(); err != nil {
		return err
	}
	if w.opts.openFileSuffix != "" {
		return fileutil.Rename(f.Name(), strings.TrimSuffix(f.Name(), w.opts.openFileSuffix))
	}
	return nil
}

// Options for WarcFile
type warcFileOptions struct {
	compressor     Compressor
	createWarcinfo bool
	warcinfoFields *WarcFields
	software       string
	openFileSuffix string
}

// FileOption configures a WarcFile.
type FileOption interface {
	apply(*warcFileOptions)
}

type funcFileOption struct {
	f func(*warcFileOptions)
}

func (fo *funcFileOption) apply(o *warcFileOptions) {
	fo.f(o)
}

func newFuncFileOption(f func(*warcFileOptions)) *funcFileOption {
	return &funcFileOption{f: f}
}

func defaultWarcFileOptions() warcFileOptions {
	return warcFileOptions{
		compressor:     NewIdentityCompressor(),
		createWarcinfo: true,
		openFileSuffix: ".open",
	}
}

// WithFileCompressor sets the Compressor used for the file.
// defaults to the identity compressor
func WithFileCompressor(c Compressor) FileOption {
	return newFuncFileOption(func(o *warcFileOptions) {
		o.compressor = c
	})
}

// WithoutWarcinfo suppresses the warcinfo record written at file creation.
func WithoutWarcinfo() FileOption {
	return newFuncFileOption(func(o *warcFileOptions) {
		o.createWarcinfo = false
	})
}

// WithWarcinfoFields adds fields to the warcinfo record body.
func WithWarcinfoFields(fields *WarcFields) FileOption {
	return newFuncFileOption(func(o *warcFileOptions) {
		o.warcinfoFields = fields
	})
}

// WithSoftware appends a name to the software identity written to warcinfo.
func WithSoftware(s string) FileOption {
	return newFuncFileOption(func(o *warcFileOptions) {
		o.software = s
	})
}

// WithOpenFileSuffix sets the suffix added to the file name while the file is
// open for writing. The suffix is removed when the file is closed.
// defaults to ".open"
func WithOpenFileSuffix(suffix string) FileOption {
	return newFuncFileOption(func(o *warcFileOptions) {
		o.openFileSuffix = suffix
	})
}
