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
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default URL templates.  {version} and {plugin} are substituted.
const (
	DefaultJenkinsURL = "https://updates.jenkins.io/download/war/{version}/jenkins.war"
	DefaultPluginURL  = "https://updates.jenkins.io/download/plugins/{plugin}/{version}/{plugin}.hpi"
)

// Defaults for StartJenkins.
const (
	DefaultAddress = "localhost"
	DefaultPort    = "8080"
)

// Config controls a Manager.  Zero values are replaced with defaults by
// NewManager.
type Config struct {
	WorkDir  string // alias trees live here
	CacheDir string // downloaded archives live here

	Java       []string // command used to run the war, default "java"
	JenkinsURL string   // war URL template
	PluginURL  string   // plugin URL template

	PollInterval      time.Duration // between polls, default 1s
	StartAttempts     int           // readiness polls, default 60
	StopAttempts      int           // shutdown polls, default 60
	DownConfirmations int           // consecutive refusals meaning down, default 2
	ShutdownGrace     time.Duration // extra wait once down, default 5s
	RequestTimeout    time.Duration // per poll request, default 5s
	KillTimeout       time.Duration // SIGTERM to SIGKILL in Shutdown, default 10s

	ForceDownload bool             // fetch remote archives even if cached
	Provider      ArtifactProvider // default is an HTTPProvider
}

type Manager struct {
	name      string
	cfg       Config
	instances map[string]*Instance
	client    *http.Client
	provider  ArtifactProvider
	logger    *log.Logger // our own messages, via mlog
	stderr    *log.Logger // the replaceable external destination
	mlog      *MultiLogger
	log       *Log
	serial    int64
	created   time.Time
	updated   time.Time
	mx        sync.Mutex
	cvs       map[*sync.Cond]bool
}

type ManagerInfo struct {
	Name       string    `json:"name"`
	Serial     int64     `json:"serial,string"`
	WorkDir    string    `json:"workDir"`
	CacheDir   string    `json:"cacheDir"`
	CreateTime time.Time `json:"created"`
	UpdateTime time.Time `json:"updated"`
}

func (m *Manager) lock() {
	m.mx.Lock()
}

func (m *Manager) unlock() {
	m.mx.Unlock()
}

// bumpSerial records a change and wakes watchers.  Call with lock held.
func (m *Manager) bumpSerial() {
	m.updated = time.Now()
	m.serial++
	for cv := range m.cvs {
		cv.Broadcast()
	}
}

// Serial returns the change counter.  It is incremented on every state
// change of every instance.
func (m *Manager) Serial() int64 {
	m.lock()
	defer m.unlock()
	return m.serial
}

// WatchSerial blocks until the serial differs from old, or expire passes.
func (m *Manager) WatchSerial(old int64, expire time.Duration) int64 {
	return watchCond(&m.mx, m.cvs, &m.serial, old, expire)
}

func (m *Manager) Name() string {
	return m.name
}

func (m *Manager) GetInfo() *ManagerInfo {
	m.lock()
	defer m.unlock()
	return &ManagerInfo{
		Name:       m.name,
		Serial:     m.serial,
		WorkDir:    m.cfg.WorkDir,
		CacheDir:   m.cfg.CacheDir,
		CreateTime: m.created,
		UpdateTime: m.updated,
	}
}

// SetLogger replaces the external log destination (stderr by default).
// The in-memory log is unaffected.
func (m *Manager) SetLogger(l *log.Logger) {
	m.mlog.Remove(m.stderr)
	m.stderr = l
	m.mlog.Add(l)
}

func (m *Manager) logf(format string, v ...interface{}) {
	m.logger.Printf(format, v...)
}

// instance returns the record for alias, creating it if needed.
// Call with lock held.
func (m *Manager) instance(alias string) *Instance {
	inst, ok := m.instances[alias]
	if !ok {
		inst = newInstance(alias, m.mlog)
		m.instances[alias] = inst
		m.bumpSerial()
	}
	return inst
}

// transition moves inst to st under the lock, and notifies watchers.
func (m *Manager) transition(inst *Instance, st State, reason string) {
	m.lock()
	inst.setState(st, reason)
	m.bumpSerial()
	m.unlock()
}

func expand(tmpl string, vars ...string) string {
	return strings.NewReplacer(vars...).Replace(tmpl)
}

// resolve turns a source specifier into a local file, fetching remote
// ones into the cache under cacheName.
func (m *Manager) resolve(ctx context.Context, src, cacheName string) (string, error) {
	if !isRemote(src) {
		return src, nil
	}
	dest := filepath.Join(m.cfg.CacheDir, cacheName)
	if e := m.provider.Fetch(ctx, src, dest, m.cfg.ForceDownload); e != nil {
		return "", fmt.Errorf("fetching %s: %w", src, e)
	}
	return dest, nil
}

// InstallJenkins stages a Jenkins war for alias.  If src is empty, the
// war for version is downloaded from JenkinsURL.  A remote src is cached
// as jenkins-<version>.war; anything else is taken as a local path.
// Any previously staged war is replaced.
func (m *Manager) InstallJenkins(ctx context.Context, alias, version, src string) error {
	if e := checkName(alias, ErrBadAlias); e != nil {
		return e
	}
	if src == "" {
		src = expand(m.cfg.JenkinsURL, "{version}", version)
	}
	cached, e := m.resolve(ctx, src, "jenkins-"+version+".war")
	if e != nil {
		return e
	}
	war := m.warPath(alias)
	if e := os.MkdirAll(filepath.Dir(war), 0755); e != nil {
		return e
	}
	if e := copyFile(cached, war); e != nil {
		return fmt.Errorf("staging %s: %w", war, e)
	}
	digest, e := fileDigest(war)
	if e != nil {
		return e
	}

	m.lock()
	inst := m.instance(alias)
	inst.digest = digest
	inst.reason = "Installed Jenkins " + version
	inst.stamp = time.Now()
	inst.logger.Printf("Installed %s as %s", cached, war)
	m.bumpSerial()
	m.unlock()
	return nil
}

// InstallPlugin stages a plugin archive for alias, as
// .home/plugins/<plugin>.hpi.  Source resolution is the same as for
// InstallJenkins, using PluginURL and a cache name of
// <plugin>-<version>.hpi.
func (m *Manager) InstallPlugin(ctx context.Context, alias, plugin, version, src string) error {
	if e := checkName(alias, ErrBadAlias); e != nil {
		return e
	}
	if e := checkName(plugin, ErrBadPlugin); e != nil {
		return e
	}
	if src == "" {
		src = expand(m.cfg.PluginURL, "{plugin}", plugin, "{version}", version)
	}
	cached, e := m.resolve(ctx, src, plugin+"-"+version+pluginExt)
	if e != nil {
		return e
	}
	if e := os.MkdirAll(m.pluginsDir(alias), 0755); e != nil {
		return e
	}
	dst := m.pluginPath(alias, plugin)
	if e := copyFile(cached, dst); e != nil {
		return fmt.Errorf("staging %s: %w", dst, e)
	}

	m.lock()
	inst := m.instance(alias)
	inst.logger.Printf("Installed plugin %s %s", plugin, version)
	m.bumpSerial()
	m.unlock()
	return nil
}

// UninstallJenkins removes the alias tree.  It does not stop anything
// first; stopping is the caller's business.
func (m *Manager) UninstallJenkins(alias string) error {
	if e := checkName(alias, ErrBadAlias); e != nil {
		return e
	}
	if e := os.RemoveAll(m.aliasDir(alias)); e != nil {
		return e
	}
	m.lock()
	if inst, ok := m.instances[alias]; ok {
		if inst.live() || inst.state.busy() {
			inst.logger.Printf("Uninstalled while %s", inst.state)
		} else {
			delete(m.instances, alias)
		}
		m.bumpSerial()
	}
	m.unlock()
	m.logf("Uninstalled %s", alias)
	return nil
}

func (m *Manager) command(alias, address, port string) []string {
	argv := append([]string{}, m.cfg.Java...)
	return append(argv,
		"-Dhudson.model.Api.INSECURE=true",
		"-jar", m.warPath(alias),
		"--httpPort="+port,
		"--httpListenAddress="+address)
}

// baseURL is where Jenkins listening on address and port is reached.
func baseURL(address, port string) string {
	return "http://" + net.JoinHostPort(address, port)
}

// StartJenkins spawns the staged war for alias, listening on address and
// port, and blocks until it answers HTTP requests.  Empty address and
// port select DefaultAddress and DefaultPort.
func (m *Manager) StartJenkins(ctx context.Context, alias, address, port string) error {
	if e := checkName(alias, ErrBadAlias); e != nil {
		return e
	}
	if address == "" {
		address = DefaultAddress
	}
	if port == "" {
		port = DefaultPort
	}
	if fi, e := os.Stat(m.warPath(alias)); e != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotInstalled, alias)
	}
	url := baseURL(address, port)

	m.lock()
	inst := m.instance(alias)
	if inst.state.busy() || inst.state == StateRunning {
		st := inst.state
		m.unlock()
		return fmt.Errorf("%w: %s is %s", ErrBusy, alias, st)
	}
	if inst.live() {
		m.unlock()
		return fmt.Errorf("%w: %s still has pid %d", ErrBusy, alias, inst.proc.Pid())
	}
	inst.url = ""
	inst.target = url
	inst.runID = uuid.New().String()
	inst.output.Clear()
	inst.setState(StateStarting, "Starting on "+url)
	m.bumpSerial()
	m.unlock()

	// JENKINS_HOME goes to this child only.
	env := append(os.Environ(), "JENKINS_HOME="+m.homeDir(alias))
	proc := newProcess(m.command(alias, address, port), m.aliasDir(alias),
		env, inst.logger, inst.output)
	if e := proc.Start(); e != nil {
		m.transition(inst, StateFailed, "Failed to start: "+e.Error())
		return e
	}
	m.lock()
	inst.proc = proc
	m.unlock()

	if e := m.waitUntilUp(ctx, inst, url, proc.Exited()); e != nil {
		if proc.Alive() {
			m.transition(inst, StateUnknown, e.Error())
		} else {
			if pe := proc.Err(); pe != nil {
				e = fmt.Errorf("%w: %v", ErrProcessExited, pe)
			}
			m.transition(inst, StateFailed, e.Error())
		}
		return e
	}

	m.lock()
	inst.url = url
	inst.setState(StateRunning, "Running on "+url)
	m.bumpSerial()
	m.unlock()
	return nil
}

// StopJenkins asks the instance for alias to exit, and blocks until it no
// longer accepts connections.  Stopping an alias that is not running is
// not an error.  An Unknown alias is not in the Registry, but is still
// stopped at the address of its last start, so that stop can fail with
// ErrShutdownTimeout.
func (m *Manager) StopJenkins(ctx context.Context, alias string) error {
	m.lock()
	inst, ok := m.instances[alias]
	if !ok {
		m.unlock()
		return nil
	}
	// After a timed out start the URL was never published, but we
	// still know where the instance was meant to listen.
	url := inst.target
	if url == "" || (inst.state != StateRunning && inst.state != StateUnknown) {
		m.unlock()
		return nil
	}
	inst.setState(StateStopping, "Stopping "+url)
	m.bumpSerial()
	m.unlock()

	m.postExit(ctx, inst, url)
	if e := m.waitUntilDown(ctx, inst, url); e != nil {
		m.lock()
		inst.url = ""
		inst.setState(StateUnknown, e.Error())
		m.bumpSerial()
		m.unlock()
		return e
	}

	// Reap a JVM that outlived its HTTP server.
	m.lock()
	proc := inst.proc
	m.unlock()
	if proc != nil && proc.Alive() {
		inst.logger.Printf("Reaping pid %d", proc.Pid())
		proc.Terminate(m.cfg.KillTimeout)
	}

	m.lock()
	inst.url = ""
	inst.setState(StateStopped, "Stopped")
	m.bumpSerial()
	m.unlock()
	return nil
}

// URL returns the base URL of a running alias.
func (m *Manager) URL(alias string) (string, bool) {
	m.lock()
	defer m.unlock()
	if inst, ok := m.instances[alias]; ok && inst.state == StateRunning {
		return inst.url, true
	}
	return "", false
}

// Registry returns alias to base URL for every running instance.
func (m *Manager) Registry() map[string]string {
	m.lock()
	defer m.unlock()
	reg := make(map[string]string)
	for alias, inst := range m.instances {
		if inst.state == StateRunning {
			reg[alias] = inst.url
		}
	}
	return reg
}

// Instances returns snapshots of every known alias, sorted by alias.
// An alias is known once anything was done with it, or if a tree for it
// exists in the work directory.
func (m *Manager) Instances() []*InstanceInfo {
	m.lock()
	if ents, e := os.ReadDir(m.cfg.WorkDir); e == nil {
		for _, ent := range ents {
			if ent.IsDir() && checkName(ent.Name(), ErrBadAlias) == nil {
				m.instance(ent.Name())
			}
		}
	}
	insts := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		insts = append(insts, inst)
	}
	m.unlock()

	infos := make([]*InstanceInfo, 0, len(insts))
	for _, inst := range insts {
		infos = append(infos, m.info(inst))
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Alias < infos[j].Alias
	})
	return infos
}

// Instance returns a snapshot for one alias.
func (m *Manager) Instance(alias string) (*InstanceInfo, error) {
	if e := checkName(alias, ErrBadAlias); e != nil {
		return nil, e
	}
	m.lock()
	inst, ok := m.instances[alias]
	if !ok {
		if _, e := os.Stat(m.aliasDir(alias)); e != nil {
			m.unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
		}
		inst = m.instance(alias)
	}
	m.unlock()
	return m.info(inst), nil
}

// Output returns the captured console output of the alias' last run.
func (m *Manager) Output(alias string, last int64) ([]LogRecord, int64, error) {
	m.lock()
	inst, ok := m.instances[alias]
	m.unlock()
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}
	recs, id := inst.output.GetRecords(last)
	return recs, id, nil
}

// WatchOutput blocks until the alias' console output changes.
func (m *Manager) WatchOutput(alias string, last int64, expire time.Duration) (int64, error) {
	m.lock()
	inst, ok := m.instances[alias]
	m.unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAlias, alias)
	}
	return inst.output.Watch(last, expire), nil
}

// GetLog returns the Manager's own log.
func (m *Manager) GetLog(last int64) ([]LogRecord, int64) {
	return m.log.GetRecords(last)
}

func (m *Manager) WatchLog(last int64, expire time.Duration) int64 {
	return m.log.Watch(last, expire)
}

// Shutdown terminates every JVM the Manager spawned that is still alive.
// It does not touch alias trees.
func (m *Manager) Shutdown() {
	m.lock()
	var procs []*Process
	for _, inst := range m.instances {
		if inst.live() {
			procs = append(procs, inst.proc)
			inst.url = ""
			inst.setState(StateStopped, "Shut down")
		}
	}
	m.bumpSerial()
	m.unlock()

	var wg sync.WaitGroup
	for _, p := range procs {
		wg.Add(1)
		go func(p *Process) {
			defer wg.Done()
			p.Terminate(m.cfg.KillTimeout)
		}(p)
	}
	wg.Wait()
	m.logf("*** Jvisor shut down: %s ***", m.name)
}

// defaultBaseDir picks a base directory the same way on every start,
// honoring $JVISORDIR first.
func defaultBaseDir() string {
	dir := os.Getenv("JVISORDIR")
	if dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "windows":
		dir = os.Getenv("USERPROFILE")
	default:
		dir = os.Getenv("HOME")
	}
	if dir == "" {
		return "."
	}
	return filepath.Join(dir, ".jvisor")
}

func (c *Config) setDefaults() {
	base := ""
	if c.WorkDir == "" || c.CacheDir == "" {
		base = defaultBaseDir()
	}
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(base, "work")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(base, "cache")
	}
	if len(c.Java) == 0 {
		c.Java = []string{"java"}
	}
	if c.JenkinsURL == "" {
		c.JenkinsURL = DefaultJenkinsURL
	}
	if c.PluginURL == "" {
		c.PluginURL = DefaultPluginURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StartAttempts <= 0 {
		c.StartAttempts = 60
	}
	if c.StopAttempts <= 0 {
		c.StopAttempts = 60
	}
	if c.DownConfirmations <= 0 {
		c.DownConfirmations = 2
	}
	if c.ShutdownGrace < 0 {
		c.ShutdownGrace = 0
	} else if c.ShutdownGrace == 0 {
		c.ShutdownGrace = time.Second * 5
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = time.Second * 5
	}
	if c.KillTimeout <= 0 {
		c.KillTimeout = time.Second * 10
	}
}

// NewManager returns a Manager for cfg.  The work and cache directories
// are created lazily.
func NewManager(name string, cfg Config) *Manager {
	if name == "" {
		name = "jvisor"
	}
	cfg.Java = append([]string{}, cfg.Java...)
	cfg.setDefaults()

	m := &Manager{
		name:      name,
		cfg:       cfg,
		instances: make(map[string]*Instance),
		cvs:       make(map[*sync.Cond]bool),
		// Each poll gets a fresh connection, so that "down" really
		// means nothing accepts connections any more.
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		// Serials start at the clock, so clients caching an Etag notice
		// when the server restarts.
		serial:  time.Now().UnixNano(),
		created: time.Now(),
	}
	m.updated = m.created
	m.mlog = NewMultiLogger("")
	m.log = NewLog()
	m.mlog.Add(log.New(m.log, "", 0))
	m.stderr = log.New(os.Stderr, "", log.LstdFlags)
	m.mlog.Add(m.stderr)
	m.logger = m.mlog.Logger()

	m.provider = cfg.Provider
	if m.provider == nil {
		m.provider = NewHTTPProvider(nil, m.logger)
	}
	return m
}

// IsPathError reports whether err came from the filesystem.
func IsPathError(err error) bool {
	var pe *fs.PathError
	var le *os.LinkError
	return errors.As(err, &pe) || errors.As(err, &le)
}
