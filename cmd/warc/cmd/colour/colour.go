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

package colour

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
)

var (
	versionColour    = color.New(color.FgHiGreen)
	headerNameColour = color.New(color.FgGreen)
	statusColour     = color.New(color.FgHiMagenta)
	httpHeaderColour = color.New(color.FgMagenta)
	bodyColour       = color.New(color.FgRed)
	issueColour      = color.New(color.FgHiRed, color.Bold)
)

func NewCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "colour <file>...",
		Short: "Print records colourized for manual inspection",
		Long: `Print records colourized for manual inspection.

The record header, the HTTP header section and the decoded body get distinct
colours. Escape characters in the body are replaced so a hostile payload
cannot take over the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				color.NoColor = false
			}
			return inputs.ForEach(args, runE)
		},
	}

	cmd.Flags().BoolVar(&force, "force-colour", false, "emit colour codes even when stdout is not a terminal")

	return cmd
}

func runE(name string, parser *warc.Parser) error {
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
			versionColour.Println(e.Version)
			for _, line := range strings.Split(string(e.RawHeader), "\r\n")[1:] {
				if line == "" {
					continue
				}
				if fieldName, value, found := strings.Cut(line, ":"); found {
					headerNameColour.Print(fieldName)
					fmt.Printf(":%s\n", value)
				} else {
					fmt.Println(line)
				}
			}
			fmt.Println()
		case warc.HTTPHeaders:
			statusColour.Println(e.StatusLine)
			for _, nv := range *e.Fields {
				httpHeaderColour.Printf("%s: %s\n", nv.Name, nv.Value)
			}
			fmt.Println()
		case warc.BlockChunk:
			if e.Part == warc.BlockPartOpaque {
				bodyColour.Print(sanitize(e.Data))
			}
		case warc.PayloadChunk:
			bodyColour.Print(sanitize(e.Data))
		case warc.EndOfRecord:
			fmt.Print("\n\n")
		case warc.ParseIssue:
			issueColour.Printf("%s: %s\n", e.Kind, e.Message)
		}
	}
}

// sanitize makes raw body bytes safe to print on a terminal.
func sanitize(data []byte) string {
	return strings.ReplaceAll(string(data), "\x1b", `\x1b`)
}
