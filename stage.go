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
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Layout of an alias tree, relative to the work directory.
const (
	warName    = "jenkins.war"
	homeName   = ".home"
	pluginsDir = "plugins"
	pluginExt  = ".hpi"
)

func checkName(name string, bad error) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", bad, name)
	}
	return nil
}

func (m *Manager) aliasDir(alias string) string {
	return filepath.Join(m.cfg.WorkDir, alias)
}

func (m *Manager) warPath(alias string) string {
	return filepath.Join(m.aliasDir(alias), warName)
}

func (m *Manager) homeDir(alias string) string {
	return filepath.Join(m.aliasDir(alias), homeName)
}

func (m *Manager) pluginsDir(alias string) string {
	return filepath.Join(m.homeDir(alias), pluginsDir)
}

func (m *Manager) pluginPath(alias, plugin string) string {
	return filepath.Join(m.pluginsDir(alias), plugin+pluginExt)
}

// copyFile copies src over dst, keeping the mode and modification time
// of src.  The copy is written beside dst and renamed into place.
func copyFile(src, dst string) error {
	in, e := os.Open(src)
	if e != nil {
		return e
	}
	defer in.Close()
	fi, e := in.Stat()
	if e != nil {
		return e
	}

	tmp, e := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if e != nil {
		return e
	}
	_, e = io.Copy(tmp, in)
	if ce := tmp.Close(); e == nil {
		e = ce
	}
	if e == nil {
		e = os.Chmod(tmp.Name(), fi.Mode().Perm())
	}
	if e == nil {
		e = os.Chtimes(tmp.Name(), fi.ModTime(), fi.ModTime())
	}
	if e == nil {
		e = os.Rename(tmp.Name(), dst)
	}
	if e != nil {
		os.Remove(tmp.Name())
	}
	return e
}

// fileDigest returns the hex BLAKE2b-256 sum of the named file.
func fileDigest(name string) (string, error) {
	f, e := os.Open(name)
	if e != nil {
		return "", e
	}
	defer f.Close()
	h, e := blake2b.New256(nil)
	if e != nil {
		return "", e
	}
	if _, e := io.Copy(h, f); e != nil {
		return "", e
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
