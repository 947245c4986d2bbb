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
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactProvider is what the Manager uses to obtain remote archives.
// Fetch must leave a complete copy of src at dest.  If dest is already
// present and force is false, implementations should not fetch it again.
type ArtifactProvider interface {
	Fetch(ctx context.Context, src, dest string, force bool) error
}

// HTTPProvider fetches archives with an http.Client.
type HTTPProvider struct {
	client *http.Client
	logger *log.Logger
}

// NewHTTPProvider returns an HTTPProvider.  Either argument may be nil
// to use defaults.
func NewHTTPProvider(client *http.Client, logger *log.Logger) *HTTPProvider {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return &HTTPProvider{client: client, logger: logger}
}

func (p *HTTPProvider) Fetch(ctx context.Context, src, dest string, force bool) error {
	if fi, e := os.Stat(dest); e == nil && fi.Mode().IsRegular() && !force {
		p.logger.Printf("%s already present, skipping download", dest)
		return nil
	}

	p.logger.Printf("Downloading %s", src)
	if e := os.MkdirAll(filepath.Dir(dest), 0755); e != nil {
		return e
	}
	req, e := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if e != nil {
		return e
	}
	res, e := p.client.Do(req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("%w: %s: %s", ErrDownload, src, res.Status)
	}

	// Stream into a temporary file, so that an interrupted download
	// never looks like a cached copy.
	tmp, e := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if e != nil {
		return e
	}
	n, e := io.Copy(tmp, res.Body)
	if ce := tmp.Close(); e == nil {
		e = ce
	}
	if e == nil {
		e = os.Rename(tmp.Name(), dest)
	}
	if e != nil {
		os.Remove(tmp.Name())
		return e
	}
	p.logger.Printf("Downloaded %s (%d bytes)", src, n)
	return nil
}

func isRemote(src string) bool {
	return strings.HasPrefix(strings.ToLower(src), "http")
}
