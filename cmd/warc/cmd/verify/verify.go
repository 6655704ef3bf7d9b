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

package verify

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify the integrity of WARC files",
		Long: `Verify the integrity of WARC files.

Each record's block and payload digests are recomputed and compared against
the recorded values. All problems of a file are reported together; the exit
status is non zero when any file fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inputs.ForEach(args, Run)
		},
	}
}

// Run verifies one parsed input. Exported for reuse by the watch command.
func Run(name string, parser *warc.Parser) error {
	verifier := warc.NewVerifier()
	for {
		event, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		verifier.ProcessEvent(event)
	}
	if err := verifier.Finish(name); err != nil {
		return err
	}
	log.Infof("%s: OK", name)
	return nil
}
