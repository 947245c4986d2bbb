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
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestHTTPProvider(t *testing.T) {
	Convey("Given an artifact server", t, func() {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&hits, 1)
			if r.URL.Path == "/gone.hpi" {
				http.Error(w, "gone", http.StatusGone)
				return
			}
			w.Write([]byte("archive bytes"))
		}))
		Reset(srv.Close)

		p := NewHTTPProvider(nil, log.New(&testLog{t: t}, "", 0))
		dest := filepath.Join(t.TempDir(), "sub", "a.hpi")
		ctx := context.Background()

		Convey("Fetch downloads into place", func() {
			So(p.Fetch(ctx, srv.URL+"/a.hpi", dest, false), ShouldBeNil)
			b, e := os.ReadFile(dest)
			So(e, ShouldBeNil)
			So(string(b), ShouldEqual, "archive bytes")
			So(atomic.LoadInt32(&hits), ShouldEqual, 1)

			Convey("A present file is not fetched again", func() {
				So(p.Fetch(ctx, srv.URL+"/a.hpi", dest, false), ShouldBeNil)
				So(atomic.LoadInt32(&hits), ShouldEqual, 1)
			})

			Convey("Unless forced", func() {
				So(p.Fetch(ctx, srv.URL+"/a.hpi", dest, true), ShouldBeNil)
				So(atomic.LoadInt32(&hits), ShouldEqual, 2)
			})
		})

		Convey("Error statuses fail without leaving a file", func() {
			e := p.Fetch(ctx, srv.URL+"/gone.hpi", dest, false)
			So(errors.Is(e, ErrDownload), ShouldBeTrue)
			_, e = os.Stat(dest)
			So(os.IsNotExist(e), ShouldBeTrue)
			ents, _ := os.ReadDir(filepath.Dir(dest))
			So(ents, ShouldBeEmpty)
		})
	})

	Convey("Remote sources are recognised by scheme", t, func() {
		So(isRemote("http://example.com/j.war"), ShouldBeTrue)
		So(isRemote("HTTPS://example.com/j.war"), ShouldBeTrue)
		So(isRemote("/tmp/jenkins-2.0.war"), ShouldBeFalse)
		So(isRemote("jenkins.war"), ShouldBeFalse)
	})
}
