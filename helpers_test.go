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
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

// fakeJava stands in for the JVM.  It ignores the Jenkins arguments and
// just stays alive.
var fakeJava = []string{"/bin/sh", "-c", "exec sleep 60", "fakejava"}

func testConfig(dir string) Config {
	return Config{
		WorkDir:       filepath.Join(dir, "work"),
		CacheDir:      filepath.Join(dir, "cache"),
		Java:          fakeJava,
		PollInterval:  time.Millisecond * 10,
		StartAttempts: 100,
		StopAttempts:  100,
		ShutdownGrace: time.Millisecond,
		KillTimeout:   time.Second,
	}
}

// WithManager runs fn with a Manager using fast polls and private
// directories.  Any JVMs left over are killed afterwards.
func WithManager(t *testing.T, adjust func(*Config), fn func(m *Manager, dir string)) func() {
	return func() {
		dir := t.TempDir()
		cfg := testConfig(dir)
		if adjust != nil {
			adjust(&cfg)
		}
		m := NewManager(t.Name(), cfg)
		So(m, ShouldNotBeNil)
		m.SetLogger(log.New(&testLog{t: t}, "", 0))
		Reset(func() {
			m.Shutdown()
		})
		fn(m, dir)
	}
}

// writeFile creates a file with content, making parent directories.
func writeFile(name, content string) {
	So(os.MkdirAll(filepath.Dir(name), 0755), ShouldBeNil)
	So(os.WriteFile(name, []byte(content), 0644), ShouldBeNil)
}

// stubJenkins answers GET / the way a booting and then running Jenkins
// does, and goes away some polls after POST /exit.
type stubJenkins struct {
	readyAt   int  // the first GET answered 200; earlier ones get 503
	downAfter int  // GETs still answered after /exit
	neverDown bool // ignore /exit

	mx        sync.Mutex
	gets      int
	exited    bool
	afterExit int
	ln        net.Listener
	srv       *http.Server
	closeOnce sync.Once
}

func newStubJenkins(readyAt, downAfter int) *stubJenkins {
	s := &stubJenkins{readyAt: readyAt, downAfter: downAfter}
	ln, e := net.Listen("tcp", "127.0.0.1:0")
	So(e, ShouldBeNil)
	s.ln = ln
	s.srv = &http.Server{Handler: s}
	go s.srv.Serve(ln)
	Reset(func() {
		s.srv.Close()
	})
	return s
}

func (s *stubJenkins) hostPort() (string, string) {
	host, port, _ := net.SplitHostPort(s.ln.Addr().String())
	return host, port
}

func (s *stubJenkins) url() string {
	return "http://" + s.ln.Addr().String()
}

// stopListening makes further connections fail, while letting the
// current request finish.
func (s *stubJenkins) stopListening() {
	s.closeOnce.Do(func() {
		s.ln.Close()
	})
}

func (s *stubJenkins) Gets() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.gets
}

func (s *stubJenkins) Exited() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.exited
}

func (s *stubJenkins) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mx.Lock()
	defer s.mx.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/exit":
		s.exited = true
		if !s.neverDown && s.downAfter == 0 {
			s.stopListening()
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Path == "/":
		s.gets++
		if s.exited && !s.neverDown {
			s.afterExit++
			if s.afterExit >= s.downAfter {
				s.stopListening()
			}
		}
		if s.gets < s.readyAt {
			http.Error(w, "Please wait while Jenkins is getting ready", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("Dashboard [Jenkins]"))
	default:
		http.NotFound(w, r)
	}
}

// freePort returns a port on which nothing listens.
func freePort() string {
	ln, e := net.Listen("tcp", "127.0.0.1:0")
	So(e, ShouldBeNil)
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()
	return port
}

// eventually polls cond for up to two seconds.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second * 2)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond * 10)
	}
	return cond()
}
