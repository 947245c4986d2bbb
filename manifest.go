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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PluginManifest names one plugin to stage.
type PluginManifest struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Src     string `yaml:"src,omitempty"`
}

// Manifest describes a fixture: which Jenkins to stage under which alias,
// which plugins go with it, and whether to start it.
type Manifest struct {
	Alias   string           `yaml:"alias"`
	Version string           `yaml:"version"`
	Src     string           `yaml:"src,omitempty"`
	Address string           `yaml:"address,omitempty"`
	Port    string           `yaml:"port,omitempty"`
	Start   bool             `yaml:"start"`
	Plugins []PluginManifest `yaml:"plugins,omitempty"`
}

// LoadManifest decodes a single YAML manifest.
func LoadManifest(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	mf := &Manifest{}
	if e := dec.Decode(mf); e != nil {
		return nil, e
	}
	if e := checkName(mf.Alias, ErrBadAlias); e != nil {
		return nil, e
	}
	if mf.Version == "" && mf.Src == "" {
		return nil, fmt.Errorf("manifest %s: version or src required", mf.Alias)
	}
	for _, p := range mf.Plugins {
		if e := checkName(p.Name, ErrBadPlugin); e != nil {
			return nil, fmt.Errorf("manifest %s: %w", mf.Alias, e)
		}
	}
	return mf, nil
}

// LoadManifests loads every *.yaml and *.yml file in dir, in name order.
// Files that fail to load are reported in the error, but do not stop
// the others from loading.
func LoadManifests(dir string) ([]*Manifest, error) {
	ents, e := os.ReadDir(dir)
	if e != nil {
		return nil, e
	}
	var mfs []*Manifest
	var bad []string
	for _, ent := range ents {
		name := ent.Name()
		if ent.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		f, e := os.Open(filepath.Join(dir, name))
		if e != nil {
			bad = append(bad, e.Error())
			continue
		}
		mf, e := LoadManifest(f)
		f.Close()
		if e != nil {
			bad = append(bad, name+": "+e.Error())
			continue
		}
		mfs = append(mfs, mf)
	}
	sort.SliceStable(mfs, func(i, j int) bool {
		return mfs[i].Alias < mfs[j].Alias
	})
	if len(bad) != 0 {
		return mfs, fmt.Errorf("bad manifests: %s", strings.Join(bad, "; "))
	}
	return mfs, nil
}

// Provision stages everything a manifest names, and starts the instance
// if the manifest asks for it.
func (m *Manager) Provision(ctx context.Context, mf *Manifest) error {
	if e := m.InstallJenkins(ctx, mf.Alias, mf.Version, mf.Src); e != nil {
		return e
	}
	for _, p := range mf.Plugins {
		if e := m.InstallPlugin(ctx, mf.Alias, p.Name, p.Version, p.Src); e != nil {
			return e
		}
	}
	if mf.Start {
		return m.StartJenkins(ctx, mf.Alias, mf.Address, mf.Port)
	}
	return nil
}
