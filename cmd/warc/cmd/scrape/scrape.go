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

package scrape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nlnwa/whatwg-url/url"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/warcforge/warc"
	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
)

// link is one extracted reference, written as a JSON line.
type link struct {
	Filename  string `json:"filename"`
	RecordID  string `json:"recordID"`
	RecordURI string `json:"recordURI"`
	LinkType  string `json:"linkType"`
	Inline    bool   `json:"inline"`
	URL       string `json:"url"`
}

// linkAttrs maps tag names to the attribute carrying the reference and
// whether the reference is an inline resource rather than a navigation link.
var linkAttrs = map[string]struct {
	attr   string
	inline bool
}{
	"a":      {"href", false},
	"area":   {"href", false},
	"iframe": {"src", true},
	"img":    {"src", true},
	"link":   {"href", true},
	"script": {"src", true},
	"embed":  {"src", true},
	"source": {"src", true},
}

type conf struct {
	urlsOnly bool
}

func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "scrape <file>...",
		Short: "Extract links from HTML response payloads",
		Long: `Extract links from HTML response payloads.

Every link and inline resource reference found in an HTML response is
resolved against the record's target URI and written to stdout as one JSON
object per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return inputs.ForEach(args, func(name string, parser *warc.Parser) error {
				return runE(c, name, parser)
			})
		},
	}

	cmd.Flags().BoolVarP(&c.urlsOnly, "urls", "u", false, "print resolved urls only, one per line")

	return cmd
}

func runE(c *conf, name string, parser *warc.Parser) error {
	enc := json.NewEncoder(os.Stdout)
	var recordID, targetURI string
	var isHTML bool
	var payload bytes.Buffer

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
			recordID = e.Fields.GetIgnoreCase(warc.WarcRecordID)
			targetURI = e.Fields.GetIgnoreCase(warc.WarcTargetURI)
			isHTML = false
			payload.Reset()
		case warc.HTTPHeaders:
			contentType := e.Fields.GetIgnoreCase("Content-Type")
			isHTML = strings.Contains(strings.ToLower(contentType), "html")
		case warc.PayloadChunk:
			if isHTML {
				payload.Write(e.Data)
			}
		case warc.EndOfRecord:
			if isHTML {
				if err := scrapeDocument(c, enc, name, recordID, targetURI, payload.Bytes()); err != nil {
					return err
				}
			}
		}
	}
}

func scrapeDocument(c *conf, enc *json.Encoder, filename, recordID, targetURI string, document []byte) error {
	tokenizer := html.NewTokenizer(bytes.NewReader(document))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// the tokenizer recovers from everything except the end of input
			return nil
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			la, ok := linkAttrs[token.Data]
			if !ok {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != la.attr || attr.Val == "" {
					continue
				}
				resolved := resolve(targetURI, attr.Val)
				if resolved == "" {
					continue
				}
				if c.urlsOnly {
					fmt.Println(resolved)
					continue
				}
				err := enc.Encode(link{
					Filename:  filename,
					RecordID:  recordID,
					RecordURI: targetURI,
					LinkType:  token.Data,
					Inline:    la.inline,
					URL:       resolved,
				})
				if err != nil {
					return err
				}
			}
		}
	}
}

// resolve resolves a possibly relative reference against the record's target
// URI. An unresolvable reference is dropped.
func resolve(base, ref string) string {
	if base == "" {
		if u, err := url.Parse(ref); err == nil {
			return u.String()
		}
		return ""
	}
	u, err := url.ParseRef(base, ref)
	if err != nil {
		log.Debugf("cannot resolve '%s' against '%s': %v", ref, base, err)
		return ""
	}
	return u.String()
}
