// Copyright 2026 The Jvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"log"
	"os"

	"github.com/jvisor/jvisor/jvisor/ui"
)

func (c *cli) watch(ctx context.Context, args []string) error {
	app := ui.NewApp(c.client, c.v.GetString("server"))
	if name := c.v.GetString("ui-log"); name != "" {
		f, e := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if e != nil {
			return e
		}
		defer f.Close()
		app.SetLogger(log.New(f, "", log.LstdFlags))
	}
	return app.Run()
}
