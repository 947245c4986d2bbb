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
	"errors"
)

var (
	ErrBadAlias        = errors.New("Bad instance alias")
	ErrBadPlugin       = errors.New("Bad plugin name")
	ErrUnknownAlias    = errors.New("No such instance")
	ErrNotInstalled    = errors.New("Jenkins is not installed")
	ErrBusy            = errors.New("Instance is busy")
	ErrProcessExited   = errors.New("Jenkins exited while starting")
	ErrStartupTimeout  = errors.New("Timeout waiting for Jenkins to start")
	ErrShutdownTimeout = errors.New("Timeout waiting for Jenkins to shut down")
	ErrDownload        = errors.New("Download failed")
)
