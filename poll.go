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
	"strings"
	"time"
)

// probe result
type probe int

const (
	probeUp   probe = iota // answered with 2xx
	probeBusy              // answered, but not with 2xx
	probeDown              // refused or dropped the connection
	probeLost              // anything else, e.g. a request timeout
)

// isConnError reports whether err means nothing is serving the address.
// Timeouts are not connection errors: a JVM under load may be slow to
// answer, but it is still there.
func isConnError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func (m *Manager) probe(ctx context.Context, url string) (probe, error) {
	req, e := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if e != nil {
		return probeLost, e
	}
	res, e := m.client.Do(req)
	if e != nil {
		if isConnError(e) {
			return probeDown, e
		}
		return probeLost, e
	}
	io.Copy(io.Discard, io.LimitReader(res.Body, 64*1024))
	res.Body.Close()
	if res.StatusCode/100 == 2 {
		return probeUp, nil
	}
	return probeBusy, fmt.Errorf("%s: %s", url, res.Status)
}

// sleep waits for d, or returns early with the context's error.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitUntilUp polls url until it answers with a 2xx status.  If exited
// is closed first, the JVM died and there is no point waiting.
func (m *Manager) waitUntilUp(ctx context.Context, inst *Instance, url string, exited <-chan struct{}) error {
	for i := 0; i < m.cfg.StartAttempts; i++ {
		inst.logger.Printf("Waiting for Jenkins to start...")
		r, e := m.probe(ctx, url)
		if r == probeUp {
			return nil
		}
		if e != nil {
			inst.logger.Printf("Poll of %s failed: %v", url, e)
		}
		select {
		case <-exited:
			return ErrProcessExited
		default:
		}
		if e := sleep(ctx, m.cfg.PollInterval); e != nil {
			return e
		}
	}
	return fmt.Errorf("%w: no 2xx from %s after %d attempts",
		ErrStartupTimeout, url, m.cfg.StartAttempts)
}

// waitUntilDown polls url until DownConfirmations consecutive polls fail
// to connect, then waits out the shutdown grace period.  A refusal seen
// within StopAttempts may be confirmed by up to DownConfirmations-1
// polls beyond it.
func (m *Manager) waitUntilDown(ctx context.Context, inst *Instance, url string) error {
	down := 0
	limit := m.cfg.StopAttempts + m.cfg.DownConfirmations - 1
	for i := 0; i < limit; i++ {
		if i >= m.cfg.StopAttempts && down == 0 {
			break
		}
		inst.logger.Printf("Waiting for Jenkins to shut down...")
		r, e := m.probe(ctx, url)
		switch r {
		case probeDown:
			down++
			inst.logger.Printf("Connection to %s failed (%d/%d): %v",
				url, down, m.cfg.DownConfirmations, e)
			if down >= m.cfg.DownConfirmations {
				return sleep(ctx, m.cfg.ShutdownGrace)
			}
		case probeLost:
			// Neither up nor down; don't count it either way.
			inst.logger.Printf("Poll of %s failed: %v", url, e)
		default:
			down = 0
		}
		if e := sleep(ctx, m.cfg.PollInterval); e != nil {
			return e
		}
	}
	return fmt.Errorf("%w: %s still answering after %d attempts",
		ErrShutdownTimeout, url, m.cfg.StopAttempts)
}

// postExit asks Jenkins to shut down.  The response is not interesting;
// a dropped connection here often just means it is already going away.
func (m *Manager) postExit(ctx context.Context, inst *Instance, url string) {
	url = strings.TrimRight(url, "/") + "/exit"
	req, e := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if e == nil {
		var res *http.Response
		if res, e = m.client.Do(req); e == nil {
			io.Copy(io.Discard, io.LimitReader(res.Body, 64*1024))
			res.Body.Close()
			inst.logger.Printf("POST %s: %s", url, res.Status)
			return
		}
	}
	inst.logger.Printf("POST %s failed: %v", url, e)
}
