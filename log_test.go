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

package jvisor

import (
	"bytes"
	"fmt"
	"log"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("Given a new log", t, func() {
		l := NewLog()
		recs, id := l.GetRecords(0)
		So(recs, ShouldBeEmpty)

		Convey("Lines become records", func() {
			l.Append(SourceStdout, "one\ntwo\n")
			recs, id2 := l.GetRecords(id)
			So(id2, ShouldNotEqual, id)
			So(len(recs), ShouldEqual, 2)
			So(recs[0].Text, ShouldEqual, "one")
			So(recs[1].Text, ShouldEqual, "two")
			So(recs[1].Source, ShouldEqual, SourceStdout)

			Convey("An unchanged log returns nothing", func() {
				recs, id3 := l.GetRecords(id2)
				So(recs, ShouldBeNil)
				So(id3, ShouldEqual, id2)
			})

			Convey("Clear empties it", func() {
				l.Clear()
				recs, id3 := l.GetRecords(id2)
				So(recs, ShouldBeEmpty)
				So(id3, ShouldNotEqual, id2)
			})
		})

		Convey("The ring keeps the newest records", func() {
			for i := 0; i < MaxLogRecords+5; i++ {
				l.Append(SourceManager, fmt.Sprintf("line %d", i))
			}
			recs, _ := l.GetRecords(0)
			So(len(recs), ShouldEqual, MaxLogRecords)
			So(recs[0].Text, ShouldEqual, "line 5")
			So(recs[MaxLogRecords-1].Text, ShouldEqual, fmt.Sprintf("line %d", MaxLogRecords+4))
		})

		Convey("Watch wakes on writes", func() {
			_, id := l.GetRecords(0)
			go func() {
				time.Sleep(time.Millisecond * 20)
				log.New(l, "", 0).Printf("hello")
			}()
			id2 := l.Watch(id, time.Second*5)
			So(id2, ShouldNotEqual, id)
			recs, _ := l.GetRecords(id)
			So(recs[len(recs)-1].Source, ShouldEqual, SourceManager)
			So(recs[len(recs)-1].Text, ShouldEqual, "hello")
		})

		Convey("Watch expires", func() {
			_, id := l.GetRecords(0)
			So(l.Watch(id, time.Millisecond*20), ShouldEqual, id)
		})
	})
}

func TestMultiLogger(t *testing.T) {
	Convey("A MultiLogger fans out lines", t, func() {
		var a, b bytes.Buffer
		la := log.New(&a, "a: ", 0)
		lb := log.New(&b, "b: ", 0)
		ml := NewMultiLogger("[ci1] ")
		ml.Add(la)
		ml.Add(lb)
		ml.Add(la)

		ml.Logger().Printf("started")
		So(a.String(), ShouldEqual, "a: [ci1] started\n")
		So(b.String(), ShouldEqual, "b: [ci1] started\n")

		ml.Remove(lb)
		ml.Logger().Printf("stopped")
		So(a.String(), ShouldEqual, "a: [ci1] started\na: [ci1] stopped\n")
		So(b.String(), ShouldEqual, "b: [ci1] started\n")
	})
}
