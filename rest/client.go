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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/net/context"
	"golang.org/x/net/context/ctxhttp"
)

// LogInfo is a snapshot of a log ring along with the Etag it was
// fetched at, suitable for passing back to WatchLog.
type LogInfo struct {
	Etag    string
	Records []LogRecord
}

type Client struct {
	base   string // URI to root of tree on server
	client *http.Client
}

func (c *Client) url(alias string) string {
	if alias == "" {
		return c.base + "/instances"
	}
	return c.base + "/instances/" + url.PathEscape(alias)
}

// readError turns a failed response into an *Error, preferring the
// JSON body the server sends.
func readError(res *http.Response) error {
	e := &Error{}
	if body, err := io.ReadAll(res.Body); err == nil && json.Unmarshal(body, e) == nil && e.Message != "" {
		return e
	}
	return &Error{Code: res.StatusCode, Message: res.Status}
}

// poll issues an HTTP GET against the URL, optionally checking for a cache,
// including optionally issuing a long poll that tries to wait until the
// value changes.  The return values are the new Etag and any error.  If the
// value did not change, then the returned etag will be "", but the error will
// be nil.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {

	req, e := http.NewRequest("GET", url, nil)
	if e != nil {
		return "", e
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}
	res, e := ctxhttp.Do(ctx, c.client, req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", readError(res)
	}
	if e := json.NewDecoder(res.Body).Decode(v); e != nil {
		return "", e
	}
	return res.Header.Get("Etag"), nil
}

// send issues a request with an optional JSON body, decoding any JSON
// response into v when v is not nil.
func (c *Client) send(ctx context.Context, method, url string, body interface{}, v interface{}) error {
	var rd io.Reader
	if body != nil {
		b, e := json.Marshal(body)
		if e != nil {
			return e
		}
		rd = bytes.NewReader(b)
	}
	req, e := http.NewRequest(method, url, rd)
	if e != nil {
		return e
	}
	if body != nil {
		req.Header.Set("Content-Type", mimeJson)
	}
	res, e := ctxhttp.Do(ctx, c.client, req)
	if e != nil {
		return e
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return readError(res)
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}

func (c *Client) Info(ctx context.Context) (*ManagerInfo, error) {
	v := &ManagerInfo{}
	if _, e := c.poll(ctx, c.base+"/", "", 0, v); e != nil {
		return nil, e
	}
	return v, nil
}

// Instances returns a snapshot of every instance the server knows about.
func (c *Client) Instances(ctx context.Context) ([]*InstanceInfo, error) {
	v, _, e := c.WatchInstances(ctx, "", 0)
	return v, e
}

// WatchInstances waits up to secs seconds for the instance list to move
// past etag.  If nothing changed, the returned list is nil and the etag
// is the one passed in.
func (c *Client) WatchInstances(ctx context.Context, etag string, secs int) ([]*InstanceInfo, string, error) {
	var v []*InstanceInfo
	ntag, e := c.poll(ctx, c.url(""), etag, secs, &v)
	if e != nil {
		return nil, "", e
	}
	if ntag == "" {
		return nil, etag, nil
	}
	return v, ntag, nil
}

func (c *Client) Instance(ctx context.Context, alias string) (*InstanceInfo, error) {
	v := &InstanceInfo{}
	if _, e := c.poll(ctx, c.url(alias), "", 0, v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) Install(ctx context.Context, alias, version, src string) (*InstanceInfo, error) {
	v := &InstanceInfo{}
	req := &InstallRequest{Version: version, Src: src}
	if e := c.send(ctx, "POST", c.url(alias)+"/install", req, v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) InstallPlugin(ctx context.Context, alias, plugin, version, src string) (*InstanceInfo, error) {
	v := &InstanceInfo{}
	req := &InstallRequest{Version: version, Src: src}
	u := c.url(alias) + "/plugins/" + url.PathEscape(plugin)
	if e := c.send(ctx, "POST", u, req, v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) Start(ctx context.Context, alias, address, port string) (*InstanceInfo, error) {
	v := &InstanceInfo{}
	req := &StartRequest{Address: address, Port: port}
	if e := c.send(ctx, "POST", c.url(alias)+"/start", req, v); e != nil {
		return nil, e
	}
	return v, nil
}

func (c *Client) Stop(ctx context.Context, alias string) error {
	return c.send(ctx, "POST", c.url(alias)+"/stop", nil, nil)
}

func (c *Client) Uninstall(ctx context.Context, alias string) error {
	return c.send(ctx, "DELETE", c.url(alias), nil, nil)
}

func (c *Client) logURL(alias string) string {
	if alias == "" {
		return c.base + "/log"
	}
	return c.url(alias) + "/log"
}

// GetLog returns the output log of alias, or the manager log when alias
// is empty.
func (c *Client) GetLog(ctx context.Context, alias string) (*LogInfo, error) {
	return c.WatchLog(ctx, alias, nil, 0)
}

// WatchLog waits up to secs seconds for the log to grow past last.  When
// nothing changed, last is returned.
func (c *Client) WatchLog(ctx context.Context, alias string, last *LogInfo, secs int) (*LogInfo, error) {
	v := &LogInfo{}
	otag := ""
	if last != nil {
		otag = last.Etag
	}
	etag, e := c.poll(ctx, c.logURL(alias), otag, secs, &v.Records)
	if e != nil {
		return nil, e
	}
	if etag == "" {
		return last, nil
	}
	v.Etag = etag
	return v, nil
}

// NewClient returns a Client handle.  The transport maybe nil to use
// a default transport, but it may also be adjusted to support additional
// options such as TLS.  baseURI is the base URL to use.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	return &Client{
		base:   baseURI,
		client: &http.Client{Transport: t},
	}
}
