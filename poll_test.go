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
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestConnErrors(t *testing.T) {
	Convey("Connection errors are told apart from timeouts", t, func() {
		refused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
		So(isConnError(refused), ShouldBeTrue)
		So(isConnError(fmt.Errorf("Get: %w", refused)), ShouldBeTrue)
		So(isConnError(io.EOF), ShouldBeTrue)
		So(isConnError(&net.OpError{Op: "read", Net: "tcp", Err: timeoutErr{}}), ShouldBeFalse)
		So(isConnError(errors.New("something else")), ShouldBeFalse)
	})
}

func TestProbe(t *testing.T) {
	Convey("Probing a URL", t,
		WithManager(t, nil, func(m *Manager, dir string) {
			ctx := context.Background()
			var status int32 = http.StatusOK
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(int(atomic.LoadInt32(&status)))
			}))
			Reset(srv.Close)

			r, e := m.probe(ctx, srv.URL)
			So(r, ShouldEqual, probeUp)
			So(e, ShouldBeNil)

			atomic.StoreInt32(&status, http.StatusNoContent)
			r, _ = m.probe(ctx, srv.URL)
			So(r, ShouldEqual, probeUp)

			atomic.StoreInt32(&status, http.StatusServiceUnavailable)
			r, e = m.probe(ctx, srv.URL)
			So(r, ShouldEqual, probeBusy)
			So(e, ShouldNotBeNil)

			atomic.StoreInt32(&status, http.StatusForbidden)
			r, _ = m.probe(ctx, srv.URL)
			So(r, ShouldEqual, probeBusy)

			r, e = m.probe(ctx, "http://127.0.0.1:"+freePort())
			So(r, ShouldEqual, probeDown)
			So(e, ShouldNotBeNil)
		}))
}

func TestBaseURL(t *testing.T) {
	Convey("Base URLs bracket IPv6 literals", t, func() {
		So(baseURL("localhost", "8080"), ShouldEqual, "http://localhost:8080")
		So(baseURL("127.0.0.1", "8080"), ShouldEqual, "http://127.0.0.1:8080")
		So(baseURL("::1", "8080"), ShouldEqual, "http://[::1]:8080")
		So(baseURL("fe80::1%eth0", "9000"), ShouldEqual, "http://[fe80::1%eth0]:9000")
	})
}
