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
	"os"
	"sort"
	"strings"
	"time"
)

// State is the lifecycle state of an instance, as far as the Manager
// knows it.
//
//                 +-----------+
//        +-------->  Stopped  +---------+
//        |        +-----------+         |
//        |                              |
//   +----+-----+                  +-----V------+      +----------+
//   |          |                  |            +------>  Failed  |
//   | Stopping <---+              |  Starting  |      +----------+
//   |          |   |              |            |
//   +-+--------+   |              +--+------+--+
//     |            |                 |      |
//     |       +----+-----+           |      |
//     |       |          <-----------+      |
//     |       | Running  |                  |
//     |       |          |           +------V----+
//     |       +----------+           |           |
//     +------------------------------>  Unknown  |
//                                    |           |
//                                    +-----------+
//
// Unknown is entered when a start or stop poll times out.  The JVM may
// still be booting or shutting down; StopJenkins may be retried from
// Unknown.  Failed is entered when the JVM could not be spawned, or
// exited before it answered.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateUnknown
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateUnknown:
		return "unknown"
	case StateFailed:
		return "failed"
	}
	return "invalid"
}

// Busy states do not admit another lifecycle operation.
func (s State) busy() bool {
	return s == StateStarting || s == StateStopping
}

// Instance is the Manager's record of one alias.  All fields are
// protected by the Manager's lock.
type Instance struct {
	alias  string
	state  State
	url    string // published once running
	target string // where the last start was told to listen
	runID  string
	proc   *Process
	digest string
	reason string
	stamp  time.Time
	logger *log.Logger
	mlog   *MultiLogger
	output *Log
}

// PluginInfo describes a staged plugin archive.
type PluginInfo struct {
	Name   string `json:"name"`
	Digest string `json:"digest,omitempty"`
}

// InstanceInfo is a consistent snapshot of an Instance.
type InstanceInfo struct {
	Alias         string       `json:"alias"`
	State         string       `json:"state"`
	URL           string       `json:"url,omitempty"`
	RunID         string       `json:"runId,omitempty"`
	Pid           int          `json:"pid,omitempty"`
	Dir           string       `json:"dir"`
	Home          string       `json:"home"`
	Installed     bool         `json:"installed"`
	ArchiveDigest string       `json:"archiveDigest,omitempty"`
	Plugins       []PluginInfo `json:"plugins"`
	Status        string       `json:"status"`
	TimeStamp     time.Time    `json:"tstamp"`
}

func newInstance(alias string, mgr *MultiLogger) *Instance {
	inst := &Instance{
		alias:  alias,
		state:  StateStopped,
		reason: "Added instance",
		stamp:  time.Now(),
		mlog:   NewMultiLogger("[" + alias + "] "),
		output: NewLog(),
	}
	inst.mlog.Add(log.New(mgr, "", 0))
	inst.logger = inst.mlog.Logger()
	return inst
}

// setState records a transition along with a human readable reason.
// Call with the Manager lock held.
func (inst *Instance) setState(st State, reason string) {
	inst.state = st
	inst.reason = reason
	inst.stamp = time.Now()
	inst.logger.Printf("%s: %s", st, reason)
}

// live reports whether a spawned JVM may still be running.
func (inst *Instance) live() bool {
	return inst.proc != nil && inst.proc.Alive()
}

// info builds a snapshot.  Plugin digests are read from disk, so this
// is called without the Manager lock, on a copy of the fields.
func (m *Manager) info(inst *Instance) *InstanceInfo {
	m.lock()
	i := &InstanceInfo{
		Alias:         inst.alias,
		State:         inst.state.String(),
		URL:           inst.url,
		RunID:         inst.runID,
		ArchiveDigest: inst.digest,
		Status:        inst.reason,
		TimeStamp:     inst.stamp,
		Dir:           m.aliasDir(inst.alias),
		Home:          m.homeDir(inst.alias),
		Plugins:       []PluginInfo{},
	}
	if inst.live() {
		i.Pid = inst.proc.Pid()
	}
	m.unlock()

	if fi, e := os.Stat(m.warPath(inst.alias)); e == nil && fi.Mode().IsRegular() {
		i.Installed = true
	}
	ents, _ := os.ReadDir(m.pluginsDir(inst.alias))
	for _, ent := range ents {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, pluginExt) {
			continue
		}
		pi := PluginInfo{Name: strings.TrimSuffix(name, pluginExt)}
		pi.Digest, _ = fileDigest(m.pluginPath(inst.alias, pi.Name))
		i.Plugins = append(i.Plugins, pi)
	}
	sort.Slice(i.Plugins, func(a, b int) bool {
		return i.Plugins[a].Name < i.Plugins[b].Name
	})
	return i
}
