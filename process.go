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
	"io"
	"log"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Process is one spawned Jenkins JVM.  Its standard output and error are
// drained into an output Log, so the child never blocks on a full pipe.
// The exit is reaped by a goroutine; Exited is closed once that happens.
type Process struct {
	cmd    *exec.Cmd
	logger *log.Logger
	output *Log
	done   chan struct{}
	reason error // exit status, valid once done is closed
	lock   sync.Mutex
}

// lineWriter splits a stream into lines for an output Log.
type lineWriter struct {
	log    *Log
	source string
	buf    bytes.Buffer
}

// flush appends a trailing partial line, if any.
func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		w.log.Append(w.source, w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.log.Append(w.source, line)
	}
	return len(b), nil
}

func newProcess(argv []string, dir string, env []string, logger *log.Logger, output *Log) *Process {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = &lineWriter{log: output, source: SourceStdout}
	cmd.Stderr = &lineWriter{log: output, source: SourceStderr}
	// Grandchildren may hold our pipes open after the JVM is gone.
	cmd.WaitDelay = time.Second * 2
	return &Process{
		cmd:    cmd,
		logger: logger,
		output: output,
		done:   make(chan struct{}),
	}
}

// Start spawns the child.  It does not wait for anything beyond the
// fork/exec itself.
func (p *Process) Start() error {
	if e := p.cmd.Start(); e != nil {
		close(p.done)
		p.reason = e
		return e
	}
	p.logger.Printf("Started pid %d: %s", p.cmd.Process.Pid, p.cmd.String())
	go p.doWait()
	return nil
}

func (p *Process) doWait() {
	e := p.cmd.Wait()
	// Wait has copied all output by now.
	for _, w := range []io.Writer{p.cmd.Stdout, p.cmd.Stderr} {
		if lw, ok := w.(*lineWriter); ok {
			lw.flush()
		}
	}
	p.lock.Lock()
	p.reason = e
	p.lock.Unlock()
	if e != nil {
		p.logger.Printf("Process %d exited: %v", p.cmd.Process.Pid, e)
	} else {
		p.logger.Printf("Process %d exited", p.cmd.Process.Pid)
	}
	close(p.done)
}

// Exited is closed when the child has been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.done
}

// Alive reports whether the child is still running.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Err returns the exit status once the child has exited.
func (p *Process) Err() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.reason
}

func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Terminate asks the child to exit with SIGTERM, and kills it if it is
// still around after d.  It returns once the child has been reaped.
func (p *Process) Terminate(d time.Duration) {
	if !p.Alive() {
		return
	}
	if e := p.cmd.Process.Signal(syscall.SIGTERM); e != nil {
		p.logger.Printf("Failed sending SIGTERM: %v", e)
		d = 0
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-p.done:
		return
	case <-timer.C:
	}
	p.logger.Printf("Graceful shutdown of pid %d timed out", p.Pid())
	if e := p.cmd.Process.Kill(); e != nil {
		p.logger.Printf("Failed killing: %v", e)
	}
	<-p.done
}
