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

package watch

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warcforge/warc/cmd/warc/cmd/inputs"
	"github.com/warcforge/warc/cmd/warc/cmd/verify"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]...",
		Short: "Watch directories and verify WARC files as they appear",
		Long: `Watch directories and verify WARC files as they appear.

A file is checked when it reaches its final name, so files still carrying the
".open" suffix of an active writer are left alone until they are renamed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				viper.Set("warcdir", args)
			}
			return runE()
		},
	}

	cmd.Flags().StringSlice("warcdir", []string{"."}, "directories to watch for warc files")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		log.Fatalf("Failed to bind watch flags: %v", err)
	}

	return cmd
}

// isWarcFile recognizes finished WARC files by name.
func isWarcFile(name string) bool {
	return strings.HasSuffix(name, ".warc") ||
		strings.HasSuffix(name, ".warc.gz") ||
		strings.HasSuffix(name, ".warc.zst")
}

func runE() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range viper.GetStringSlice("warcdir") {
		if err := watcher.Add(dir); err != nil {
			return err
		}
		log.Infof("watching %s", dir)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// a writer renames its file from the .open suffix when done
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 || !isWarcFile(event.Name) {
				continue
			}
			if err := inputs.ForEach([]string{event.Name}, verify.Run); err != nil {
				log.Error(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(err)
		case sig := <-sigs:
			log.Infof("received %v, shutting down", sig)
			return nil
		}
	}
}
