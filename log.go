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
	"strings"
	"sync"
	"time"
)

const (
	MaxLogRecords = 1000
)

// Log sources.  Records written through the io.Writer interface are
// tagged with SourceManager; child output carries the stream name.
const (
	SourceManager = "jvisor"
	SourceStdout  = "stdout"
	SourceStderr  = "stderr"
)

type LogRecord struct {
	Id     int64     `json:"id,string"`
	Time   time.Time `json:"time"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// Log is a bounded ring of LogRecords.  Readers can poll it with
// GetRecords, or block for changes with Watch.
type Log struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

// Write implements io.Writer, so that a Log can sit behind a log.Logger.
func (l *Log) Write(b []byte) (int, error) {
	l.Append(SourceManager, string(b))
	return len(b), nil
}

// Append adds one record per line of text.
func (l *Log) Append(source string, text string) {
	now := time.Now()
	l.mx.Lock()
	if l.records == nil {
		if l.maxRecords == 0 {
			l.maxRecords = MaxLogRecords
		}
		l.records = make([]LogRecord, l.maxRecords)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		l.id++
		// numRecords keeps counting past maxRecords; it is the
		// index of the next slot modulo the ring size.
		l.records[l.numRecords%l.maxRecords] = LogRecord{
			Id:     l.id,
			Time:   now,
			Source: source,
			Text:   line,
		}
		l.numRecords++
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
}

// Clear discards all records.  The id is reseeded from the clock, so
// that a reader holding an old id sees a change.
func (l *Log) Clear() {
	l.mx.Lock()
	l.numRecords = 0
	l.id = time.Now().UnixNano()
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.mx.Unlock()
}

// GetRecords returns the stored records, oldest first, and an id that can
// be used as an Etag.  If last matches the current id, nothing has changed
// and nil is returned.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if l.id == last {
		return nil, last
	}
	cnt := l.numRecords
	if cnt > l.maxRecords {
		cnt = l.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	for i := l.numRecords - cnt; i < l.numRecords; i++ {
		recs = append(recs, l.records[i%l.maxRecords])
	}
	return recs, l.id
}

// Watch blocks until the log id differs from last, or until expire has
// elapsed.  It returns the current id.  An expire of zero polls.
func (l *Log) Watch(last int64, expire time.Duration) int64 {
	return watchCond(&l.mx, l.cvs, &l.id, last, expire)
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{
		maxRecords: MaxLogRecords,
		id:         time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
}

// watchCond waits on a fresh condition variable registered in cvs until
// *val != old or the expiry fires.  The caller must not hold mx.
func watchCond(mx *sync.Mutex, cvs map[*sync.Cond]bool, val *int64, old int64, expire time.Duration) int64 {
	expired := false
	cv := sync.NewCond(mx)
	var timer *time.Timer

	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			mx.Lock()
			expired = true
			cv.Broadcast()
			mx.Unlock()
		})
	} else {
		expired = true
	}

	mx.Lock()
	cvs[cv] = true
	rv := *val
	for rv == old && !expired {
		cv.Wait()
		rv = *val
	}
	delete(cvs, cv)
	mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// MultiLogger fans lines written to it out to several log.Loggers.  Each
// destination keeps its own prefix and flags.
type MultiLogger struct {
	log     *log.Logger
	loggers []*log.Logger
	mx      sync.Mutex
}

func (ml *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	ml.mx.Lock()
	for _, dest := range ml.loggers {
		for _, line := range lines {
			dest.Println(line)
		}
	}
	ml.mx.Unlock()
	return len(b), nil
}

// Add registers a destination.  Adding the same logger twice is harmless.
func (ml *MultiLogger) Add(l *log.Logger) {
	ml.mx.Lock()
	defer ml.mx.Unlock()
	for _, x := range ml.loggers {
		if x == l {
			return
		}
	}
	ml.loggers = append(ml.loggers, l)
}

// Remove unregisters a destination.
func (ml *MultiLogger) Remove(l *log.Logger) {
	ml.mx.Lock()
	defer ml.mx.Unlock()
	for i, x := range ml.loggers {
		if x == l {
			ml.loggers = append(ml.loggers[:i], ml.loggers[i+1:]...)
			return
		}
	}
}

// Logger returns a log.Logger that writes through the fan out.
func (ml *MultiLogger) Logger() *log.Logger {
	return ml.log
}

func NewMultiLogger(prefix string) *MultiLogger {
	ml := &MultiLogger{}
	ml.log = log.New(ml, prefix, 0)
	return ml
}
