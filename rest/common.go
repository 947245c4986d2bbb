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
	"github.com/jvisor/jvisor"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// A client holding an Etag may ask the server to hold a GET until
	// the resource changes, by sending the Etag in PollEtagHeader and
	// the longest wait in seconds in PollTimeHeader.
	PollEtagHeader = "X-Jvisor-Poll-Etag"
	PollTimeHeader = "X-Jvisor-Poll-Time"

	// Longest wait a server grants.
	maxPollSecs = 300
)

type (
	InstanceInfo = jvisor.InstanceInfo
	ManagerInfo  = jvisor.ManagerInfo
	LogRecord    = jvisor.LogRecord
)

// InstallRequest is the body of install and plugin requests.  Empty Src
// selects the default download location for Version.
type InstallRequest struct {
	Version string `json:"version"`
	Src     string `json:"src,omitempty"`
}

// StartRequest is the body of start requests.  Empty fields select the
// Manager defaults.
type StartRequest struct {
	Address string `json:"address,omitempty"`
	Port    string `json:"port,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
