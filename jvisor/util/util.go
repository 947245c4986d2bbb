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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/jvisor/jvisor/rest"
)

// Level is how worrying an instance state is, for coloring.
type Level int

const (
	LevelNormal Level = iota
	LevelGood
	LevelWarn
	LevelError
)

// Status returns a short label for the instance.
func Status(s *rest.InstanceInfo) string {
	if !s.Installed && s.State == "stopped" {
		return "empty"
	}
	return s.State
}

func StatusLevel(s *rest.InstanceInfo) Level {
	switch s.State {
	case "failed":
		return LevelError
	case "unknown", "starting", "stopping":
		return LevelWarn
	case "running":
		return LevelGood
	}
	return LevelNormal
}

// Since is the time elapsed since the last state change, truncated to
// whole seconds.
func Since(s *rest.InstanceInfo) time.Duration {
	d := time.Since(s.TimeStamp)
	return d - d%time.Second
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

// SortInstances puts troubled instances first, then running ones, and
// orders by alias within each group.
func SortInstances(items []*rest.InstanceInfo) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := StatusLevel(items[i]), StatusLevel(items[j])
		if a != b {
			return a > b
		}
		return items[i].Alias < items[j].Alias
	})
}
