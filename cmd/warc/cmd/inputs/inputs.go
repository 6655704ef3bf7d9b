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

// Package inputs handles the common input convention of the warc subcommands:
// a list of file paths, or stdin when the list is empty, with compressed
// files decompressed transparently.
package inputs

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/warcforge/warc"
)

// ForEach calls fn once per input with a decompressed byte stream. A failing
// input does not stop the iteration; the error is logged and the aggregate
// failure reported at the end so a caller can exit non zero.
func ForEach(paths []string, fn func(name string, p *warc.Parser) error) error {
	if len(paths) == 0 {
		r, err := warc.OpenReader(os.Stdin)
		if err != nil {
			return err
		}
		return fn("-", warc.NewParser(r))
	}

	failed := 0
	for _, path := range paths {
		if err := processFile(path, fn); err != nil {
			log.Error(err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(paths))
	}
	return nil
}

func processFile(path string, fn func(name string, p *warc.Parser) error) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	r, err := warc.OpenReader(file)
	if err != nil {
		return err
	}
	return fn(path, warc.NewParser(r))
}
