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

package dump

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
)

type conf struct {
	meta bool
}

func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "dump-responses <file>...",
		Short: "Write the decoded payload of every response record to stdout",
		Long: `Write the decoded payload of every response record to stdout.

The payload is emitted after transfer decoding, so chunked and gzip transfer
encodings are stripped. With --meta, each payload is preceded by a line
identifying the file, the record id and the target URI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inputs.ForEach(args, func(name string, parser *warc.Parser) error {
				return runE(c, name, parser)
			})
		},
	}

	cmd.Flags().BoolVarP(&c.meta, "meta", "m", false, "print a metadata line before each payload")

	return cmd
}

func runE(c *conf, name string, parser *warc.Parser) error {
	var isResponse bool
	var recordID, targetURI string
	var metaPrinted bool

	for {
		event, err := parser.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch e := event.(type) {
		case warc.BeginOfRecord:
			isResponse = strings.EqualFold(e.Fields.Get(warc.WarcType), warc.Response)
			recordID = e.Fields.Get(warc.WarcRecordID)
			targetURI = e.Fields.Get(warc.WarcTargetURI)
			metaPrinted = false
		case warc.PayloadChunk:
			if !isResponse {
				continue
			}
			if c.meta && !metaPrinted {
				metaPrinted = true
				fmt.Printf("%s\t%s\t%s\n", name, recordID, targetURI)
			}
			if _, err := os.Stdout.Write(e.Data); err != nil {
				return err
			}
		case warc.EndOfRecord:
			isResponse = false
		}
	}
}
