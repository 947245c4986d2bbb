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

package ui

import (
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jvisor/jvisor"
	"github.com/jvisor/jvisor/rest"
)

func TestKeyMarkup(t *testing.T) {
	Convey("Keys are highlighted", t, func() {
		So(keyMarkup([]string{"[Q] Quit"}), ShouldEqual, "[%AQ%N] Quit")
		So(keyMarkup([]string{"[Q] Quit", "[H] Help"}), ShouldEqual,
			"[%AQ%N] Quit [%AH%N] Help")
	})
	Convey("Percent signs are escaped", t, func() {
		So(keyMarkup([]string{"100% done"}), ShouldEqual, "100%% done")
	})
	Convey("Empty words add no space", t, func() {
		So(keyMarkup([]string{"a", "", "b"}), ShouldEqual, "a b")
	})
}

func TestLifecycleWords(t *testing.T) {
	Convey("Installed and stopped may start", t, func() {
		info := &rest.InstanceInfo{Alias: "ci", State: "stopped", Installed: true}
		So(canStart(info), ShouldBeTrue)
		So(canStop(info), ShouldBeFalse)
		So(lifecycleWords(info), ShouldResemble, []string{"[S] Start", "[X] Uninstall"})
	})
	Convey("Not installed may not start", t, func() {
		info := &rest.InstanceInfo{Alias: "ci", State: "stopped"}
		So(canStart(info), ShouldBeFalse)
	})
	Convey("Running and unknown may stop", t, func() {
		for _, st := range []string{"running", "unknown"} {
			info := &rest.InstanceInfo{Alias: "ci", State: st, Installed: true}
			So(canStop(info), ShouldBeTrue)
			So(canStart(info), ShouldBeFalse)
		}
	})
	Convey("Busy instances offer neither", t, func() {
		info := &rest.InstanceInfo{Alias: "ci", State: "starting", Installed: true}
		So(lifecycleWords(info), ShouldResemble, []string{"[X] Uninstall"})
	})
}

func TestFormatting(t *testing.T) {
	Convey("Instance details list plugins", t, func() {
		info := &rest.InstanceInfo{
			Alias:     "ci",
			State:     "running",
			Installed: true,
			URL:       "http://localhost:8080",
			Pid:       42,
			Plugins: []jvisor.PluginInfo{
				{Name: "git", Digest: "abc"},
				{Name: "matrix", Digest: "def"},
			},
		}
		lines := strings.Join(infoLines(info), "\n")
		So(lines, ShouldContainSubstring, "Alias: ci")
		So(lines, ShouldContainSubstring, "Pid: 42")
		So(lines, ShouldContainSubstring, "git")
		So(lines, ShouldContainSubstring, "matrix")
		So(lines, ShouldNotContainSubstring, "none")
	})
	Convey("Stderr lines are marked", t, func() {
		now := time.Now()
		lines := logLines([]rest.LogRecord{
			{Id: 1, Time: now, Source: jvisor.SourceStdout, Text: "hello"},
			{Id: 2, Time: now, Source: jvisor.SourceStderr, Text: "oops"},
		})
		So(len(lines), ShouldEqual, 2)
		So(lines[0], ShouldEndWith, "  hello")
		So(lines[1], ShouldEndWith, "! oops")
	})
}
