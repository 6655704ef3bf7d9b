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

package ls

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
)

type conf struct {
	recordCount int
	id          []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "ls [file]...",
		Short: "List records from warc files",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			sort.Strings(c.id)
			return inputs.ForEach(args, c.run)
		},
	}

	cmd.Flags().IntVarP(&c.recordCount, "record-count", "c", 0, "The maximum number of records to show")
	cmd.Flags().StringArrayVar(&c.id, "id", []string{}, "specify record ids to ls")

	return cmd
}

func (c *conf) run(name string, parser *warc.Parser) error {
	count := 0
	for {
		event, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		begin, ok := event.(warc.BeginOfRecord)
		if !ok {
			continue
		}
		recordID := begin.Fields.Get(warc.WarcRecordID)
		if len(c.id) > 0 && !contains(c.id, recordID) {
			continue
		}
		count++
		printRecord(name, count, recordID, begin.Fields)
		if c.recordCount > 0 && count >= c.recordCount {
			break
		}
	}
	fmt.Fprintln(os.Stderr, "Count: ", count)
	return nil
}

func printRecord(name string, num int, recordID string, fields *warc.WarcFields) {
	targetURI := cropString(fields.Get(warc.WarcTargetURI), 100)
	fmt.Printf("%s %4d %s %-9.9s %s\n", name, num, recordID, fields.Get(warc.WarcType), targetURI)
}

func contains(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func cropString(s string, length int) string {
	if len(s) > length {
		return s[:length-3] + "..."
	}
	return s
}
