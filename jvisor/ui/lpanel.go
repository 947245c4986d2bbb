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

package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/jvisor/jvisor"
	"github.com/jvisor/jvisor/jvisor/util"
	"github.com/jvisor/jvisor/rest"
)

// LogPanel follows the output of one instance, or the jvisord log.
type LogPanel struct {
	text  *views.TextArea
	info  *rest.InstanceInfo
	alias string

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}

	p.Panel.Init(app)
	p.SetKeys([]string{"[ESC] Main", "[H] Help"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(contentStyles[util.LevelNormal])
	p.SetContent(p.text)

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
	info := p.info
	app := p.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if escOrQuit(ev) {
			app.ShowMain()
			return true
		}
		switch ev.Key() {
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'I', 'i':
				if info != nil {
					app.ShowInfo(info.Alias)
					return true
				}
			}
			if info != nil && lifecycleKey(app, info, ev.Rune()) {
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *LogPanel) SetAlias(alias string) {
	p.text.SetLines(nil)
	p.alias = alias
	p.info = nil
}

// logLines formats log records, marking child stderr.
func logLines(recs []rest.LogRecord) []string {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		mark := " "
		if r.Source == jvisor.SourceStderr {
			mark = "!"
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			r.Time.Format(time.StampMilli), mark, r.Text))
	}
	return lines
}

func (p *LogPanel) update() {
	app := p.App()
	var e1 error
	if p.alias != "" {
		p.info, e1 = app.GetItem(p.alias)
	}
	loginfo, e2 := app.GetLog(p.alias)

	words := []string{"[ESC] Main", "[H] Help"}

	if p.alias == "" {
		p.SetTitle("Jvisord Log")
	} else {
		p.SetTitle("Output of " + p.alias)
	}

	if loginfo == nil {
		e := e2
		if e == nil {
			e = e1
		}
		if e != nil {
			p.SetStatus(fmt.Sprintf("No data: %v", e))
			p.SetLevel(util.LevelError)
		} else {
			p.SetStatus("Loading ...")
			p.SetLevel(util.LevelNormal)
		}
		p.text.SetLines(nil)
		p.SetKeys(words)
		return
	}

	p.SetStatus(app.Notice())
	p.SetLevel(util.LevelNormal)
	if p.info != nil {
		p.SetLevel(util.StatusLevel(p.info))
		words = append(words, "[I] Info")
		words = append(words, lifecycleWords(p.info)...)
	}
	p.text.SetLines(logLines(loginfo.Records))
	p.SetKeys(words)
}
