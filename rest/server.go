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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/jvisor/jvisor"
)

// Handler wraps a Manager, adding http.Handler functionality.
type Handler struct {
	m *jvisor.Manager
	r *mux.Router
}

var ok struct{}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		http.Error(w, e.Error(), http.StatusInternalServerError)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	b, _ := json.Marshal(e)
	w.Header().Set("Content-Type", mimeJson)
	w.WriteHeader(e.Code)
	w.Write(b)
}

// fail maps a Manager error onto an HTTP status.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, jvisor.ErrBadAlias),
		errors.Is(err, jvisor.ErrBadPlugin):
		code = http.StatusBadRequest
	case errors.Is(err, jvisor.ErrUnknownAlias),
		errors.Is(err, jvisor.ErrNotInstalled):
		code = http.StatusNotFound
	case errors.Is(err, jvisor.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, jvisor.ErrStartupTimeout),
		errors.Is(err, jvisor.ErrShutdownTimeout):
		code = http.StatusGatewayTimeout
	case errors.Is(err, jvisor.ErrDownload),
		errors.Is(err, jvisor.ErrProcessExited):
		code = http.StatusBadGateway
	}
	h.writeError(w, &Error{Code: code, Message: err.Error()})
}

// decode reads an optional JSON body into v.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if e := json.NewDecoder(r.Body).Decode(v); e != nil && e != io.EOF {
		h.writeError(w, &Error{http.StatusBadRequest, "Bad request body: " + e.Error()})
		return false
	}
	return true
}

func etag(id int64) string {
	return strconv.FormatInt(id, 16)
}

// pollTime returns how long the client is willing to wait for a change
// from the given Etag, or zero if it did not ask for a long poll on it.
func pollTime(r *http.Request, cur string) time.Duration {
	if r.Header.Get(PollEtagHeader) != cur {
		return 0
	}
	secs, e := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if e != nil || secs <= 0 {
		return 0
	}
	if secs > maxPollSecs {
		secs = maxPollSecs
	}
	return time.Duration(secs) * time.Second
}

// notModified writes 304 if the client already has tag.
func notModified(w http.ResponseWriter, r *http.Request, tag string) bool {
	w.Header().Set("Etag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func (h *Handler) getManager(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, h.m.GetInfo())
}

func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	serial := h.m.Serial()
	if d := pollTime(r, etag(serial)); d > 0 {
		serial = h.m.WatchSerial(serial, d)
	}
	if notModified(w, r, etag(serial)) {
		return
	}
	h.writeJson(w, h.m.Instances())
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	if info, e := h.m.Instance(mux.Vars(r)["alias"]); e != nil {
		h.fail(w, e)
	} else {
		h.writeJson(w, info)
	}
}

func (h *Handler) installJenkins(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if !h.decode(w, r, &req) {
		return
	}
	alias := mux.Vars(r)["alias"]
	if e := h.m.InstallJenkins(r.Context(), alias, req.Version, req.Src); e != nil {
		h.fail(w, e)
	} else {
		h.getInstance(w, r)
	}
}

func (h *Handler) installPlugin(w http.ResponseWriter, r *http.Request) {
	var req InstallRequest
	if !h.decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	if e := h.m.InstallPlugin(r.Context(), vars["alias"], vars["plugin"], req.Version, req.Src); e != nil {
		h.fail(w, e)
	} else {
		h.getInstance(w, r)
	}
}

func (h *Handler) startJenkins(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !h.decode(w, r, &req) {
		return
	}
	alias := mux.Vars(r)["alias"]
	if e := h.m.StartJenkins(r.Context(), alias, req.Address, req.Port); e != nil {
		h.fail(w, e)
	} else {
		h.getInstance(w, r)
	}
}

func (h *Handler) stopJenkins(w http.ResponseWriter, r *http.Request) {
	if e := h.m.StopJenkins(r.Context(), mux.Vars(r)["alias"]); e != nil {
		h.fail(w, e)
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) uninstallJenkins(w http.ResponseWriter, r *http.Request) {
	if e := h.m.UninstallJenkins(mux.Vars(r)["alias"]); e != nil {
		h.fail(w, e)
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) getOutput(w http.ResponseWriter, r *http.Request) {
	alias := mux.Vars(r)["alias"]
	recs, id, e := h.m.Output(alias, 0)
	if e != nil {
		h.fail(w, e)
		return
	}
	if d := pollTime(r, etag(id)); d > 0 {
		if _, e := h.m.WatchOutput(alias, id, d); e != nil {
			h.fail(w, e)
			return
		}
		recs, id, _ = h.m.Output(alias, 0)
	}
	if notModified(w, r, etag(id)) {
		return
	}
	h.writeJson(w, recs)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	recs, id := h.m.GetLog(0)
	if d := pollTime(r, etag(id)); d > 0 {
		h.m.WatchLog(id, d)
		recs, id = h.m.GetLog(0)
	}
	if notModified(w, r, etag(id)) {
		return
	}
	h.writeJson(w, recs)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func NewHandler(m *jvisor.Manager) *Handler {
	r := mux.NewRouter()
	h := &Handler{m: m, r: r}
	r.HandleFunc("/", h.getManager).Methods("GET")
	r.HandleFunc("/instances", h.listInstances).Methods("GET")
	r.HandleFunc("/instances/{alias}", h.getInstance).Methods("GET")
	r.HandleFunc("/instances/{alias}", h.uninstallJenkins).Methods("DELETE")
	r.HandleFunc("/instances/{alias}/install", h.installJenkins).Methods("POST")
	r.HandleFunc("/instances/{alias}/plugins/{plugin}", h.installPlugin).Methods("POST")
	r.HandleFunc("/instances/{alias}/start", h.startJenkins).Methods("POST")
	r.HandleFunc("/instances/{alias}/stop", h.stopJenkins).Methods("POST")
	r.HandleFunc("/instances/{alias}/log", h.getOutput).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	return h
}
