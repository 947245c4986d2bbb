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

package rest

import (
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/net/context"

	"github.com/jvisor/jvisor"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

// jenkins answers GET / with 200 until POST /exit, after which it stops
// accepting connections.
type jenkins struct {
	ln   net.Listener
	srv  *http.Server
	once sync.Once
}

func newJenkins() *jenkins {
	ln, e := net.Listen("tcp", "127.0.0.1:0")
	So(e, ShouldBeNil)
	j := &jenkins{ln: ln}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Dashboard [Jenkins]"))
	})
	mux.HandleFunc("/exit", func(w http.ResponseWriter, r *http.Request) {
		j.once.Do(func() { j.ln.Close() })
	})
	j.srv = &http.Server{Handler: mux}
	go j.srv.Serve(ln)
	Reset(func() {
		j.srv.Close()
	})
	return j
}

func (j *jenkins) hostPort() (string, string) {
	host, port, _ := net.SplitHostPort(j.ln.Addr().String())
	return host, port
}

func withServer(t *testing.T, fn func(c *Client, m *jvisor.Manager, dir string)) func() {
	return func() {
		dir := t.TempDir()
		m := jvisor.NewManager(t.Name(), jvisor.Config{
			WorkDir:       filepath.Join(dir, "work"),
			CacheDir:      filepath.Join(dir, "cache"),
			Java:          []string{"/bin/sh", "-c", "exec sleep 60", "fakejava"},
			PollInterval:  time.Millisecond * 10,
			StartAttempts: 50,
			StopAttempts:  50,
			ShutdownGrace: time.Millisecond,
			KillTimeout:   time.Second,
		})
		m.SetLogger(log.New(&testLog{t: t}, "", 0))
		srv := httptest.NewServer(NewHandler(m))
		Reset(func() {
			srv.Close()
			m.Shutdown()
		})
		fn(NewClient(nil, srv.URL), m, dir)
	}
}

func code(e error) int {
	if re, ok := e.(*Error); ok {
		return re.Code
	}
	return 0
}

func TestRest(t *testing.T) {
	ctx := context.Background()

	Convey("With a jvisord server", t, withServer(t, func(c *Client, m *jvisor.Manager, dir string) {
		war := filepath.Join(dir, "jenkins.war")
		So(os.WriteFile(war, []byte("war"), 0644), ShouldBeNil)
		hpi := filepath.Join(dir, "git.hpi")
		So(os.WriteFile(hpi, []byte("hpi"), 0644), ShouldBeNil)

		Convey("Manager info is served", func() {
			info, e := c.Info(ctx)
			So(e, ShouldBeNil)
			So(info.Name, ShouldEqual, t.Name())
		})

		Convey("No instances at first", func() {
			list, e := c.Instances(ctx)
			So(e, ShouldBeNil)
			So(len(list), ShouldEqual, 0)
		})

		Convey("Unknown alias is 404", func() {
			_, e := c.Instance(ctx, "nope")
			So(e, ShouldNotBeNil)
			So(code(e), ShouldEqual, http.StatusNotFound)
		})

		Convey("Bad alias is 400", func() {
			_, e := c.Install(ctx, `a\b`, "2.0", war)
			So(code(e), ShouldEqual, http.StatusBadRequest)
		})

		Convey("Start before install is 404", func() {
			_, e := c.Start(ctx, "ci", "", "")
			So(code(e), ShouldEqual, http.StatusNotFound)
		})

		Convey("Install and plugin stage files", func() {
			info, e := c.Install(ctx, "ci", "2.0", war)
			So(e, ShouldBeNil)
			So(info.Alias, ShouldEqual, "ci")
			So(info.Installed, ShouldBeTrue)
			So(info.ArchiveDigest, ShouldNotEqual, "")

			info, e = c.InstallPlugin(ctx, "ci", "git", "1.0", hpi)
			So(e, ShouldBeNil)
			So(len(info.Plugins), ShouldEqual, 1)
			So(info.Plugins[0].Name, ShouldEqual, "git")

			list, e := c.Instances(ctx)
			So(e, ShouldBeNil)
			So(len(list), ShouldEqual, 1)

			Convey("Uninstall removes them", func() {
				So(c.Uninstall(ctx, "ci"), ShouldBeNil)
				_, e := c.Instance(ctx, "ci")
				So(code(e), ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("Start and stop go through the manager", func() {
			j := newJenkins()
			host, port := j.hostPort()
			_, e := c.Install(ctx, "ci", "2.0", war)
			So(e, ShouldBeNil)

			info, e := c.Start(ctx, "ci", host, port)
			So(e, ShouldBeNil)
			So(info.State, ShouldEqual, jvisor.StateRunning.String())
			So(info.URL, ShouldEqual, "http://"+host+":"+port)

			_, e = c.Start(ctx, "ci", host, port)
			So(code(e), ShouldEqual, http.StatusConflict)

			out, e := c.GetLog(ctx, "ci")
			So(e, ShouldBeNil)
			So(out.Etag, ShouldNotEqual, "")

			So(c.Stop(ctx, "ci"), ShouldBeNil)
			info, e = c.Instance(ctx, "ci")
			So(e, ShouldBeNil)
			So(info.State, ShouldEqual, jvisor.StateStopped.String())
			So(info.URL, ShouldEqual, "")
		})

		Convey("Startup timeout is 504", func() {
			ln, e := net.Listen("tcp", "127.0.0.1:0")
			So(e, ShouldBeNil)
			_, port, _ := net.SplitHostPort(ln.Addr().String())
			ln.Close()

			_, e = c.Install(ctx, "ci", "2.0", war)
			So(e, ShouldBeNil)
			_, e = c.Start(ctx, "ci", "127.0.0.1", port)
			So(code(e), ShouldEqual, http.StatusGatewayTimeout)
		})

		Convey("Instance list long polls", func() {
			_, etag, e := c.WatchInstances(ctx, "", 0)
			So(e, ShouldBeNil)
			So(etag, ShouldNotEqual, "")

			Convey("Unchanged list times out with the same etag", func() {
				list, ntag, e := c.WatchInstances(ctx, etag, 1)
				So(e, ShouldBeNil)
				So(list, ShouldBeNil)
				So(ntag, ShouldEqual, etag)
			})

			Convey("A change wakes the poll", func() {
				go func() {
					time.Sleep(time.Millisecond * 50)
					m.InstallJenkins(context.Background(), "ci", "2.0", war)
				}()
				list, ntag, e := c.WatchInstances(ctx, etag, 10)
				So(e, ShouldBeNil)
				So(ntag, ShouldNotEqual, etag)
				So(len(list), ShouldEqual, 1)
			})
		})

		Convey("Manager log is served", func() {
			_, e := c.Install(ctx, "ci", "2.0", war)
			So(e, ShouldBeNil)
			l, e := c.GetLog(ctx, "")
			So(e, ShouldBeNil)
			So(len(l.Records), ShouldBeGreaterThan, 0)

			Convey("Watching with a stale etag returns at once", func() {
				old := &LogInfo{Etag: "0"}
				nl, e := c.WatchLog(ctx, "", old, 10)
				So(e, ShouldBeNil)
				So(nl.Etag, ShouldEqual, l.Etag)
			})
		})
	}))
}
