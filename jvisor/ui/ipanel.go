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

	"github.com/jvisor/jvisor/jvisor/util"
	"github.com/jvisor/jvisor/rest"
)

// InfoPanel shows the details of one instance.
type InfoPanel struct {
	text  *views.TextArea
	info  *rest.InstanceInfo
	alias string

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	p := &InfoPanel{}
	p.Panel.Init(app)

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(contentStyles[util.LevelNormal])
	p.SetContent(p.text)
	p.SetKeys([]string{"[ESC] Main", "[H] Help"})
	return p
}

func (p *InfoPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *InfoPanel) HandleEvent(ev tcell.Event) bool {
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
			case 'L', 'l':
				app.ShowLog(p.alias)
				return true
			}
			if info != nil && lifecycleKey(app, info, ev.Rune()) {
				return true
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *InfoPanel) SetAlias(alias string) {
	p.alias = alias
	p.info = nil
}

// infoLines formats an instance for display.
func infoLines(s *rest.InstanceInfo) []string {
	row := func(k string, v interface{}) string {
		return fmt.Sprintf("%13s %v", k+":", v)
	}
	lines := []string{
		row("Alias", s.Alias),
		row("State", util.Status(s)),
		row("Since", s.TimeStamp.Format(time.RFC1123)),
		row("Detail", s.Status),
		row("URL", s.URL),
		row("Run ID", s.RunID),
	}
	if s.Pid != 0 {
		lines = append(lines, row("Pid", s.Pid))
	}
	lines = append(lines,
		row("Directory", s.Dir),
		row("Home", s.Home),
		row("Archive", s.ArchiveDigest),
	)
	if len(s.Plugins) == 0 {
		lines = append(lines, row("Plugins", "none"))
	}
	for i, pl := range s.Plugins {
		k := ""
		if i == 0 {
			k = "Plugins"
		}
		lines = append(lines, fmt.Sprintf("%13s %-24s %s", k+":", pl.Name, pl.Digest))
	}
	return lines
}

func (p *InfoPanel) update() {
	s, e := p.App().GetItem(p.alias)
	p.info = s

	words := []string{"[ESC] Main", "[H] Help", "[L] Log"}
	p.SetTitle("Details for " + p.alias)

	if s == nil {
		p.SetStatus(fmt.Sprintf("No data: %v", e))
		p.SetLevel(util.LevelError)
		p.text.SetLines(nil)
		p.SetKeys(words)
		return
	}

	p.SetStatus(p.App().Notice())
	p.SetLevel(util.StatusLevel(s))
	p.text.SetLines(infoLines(s))
	p.SetKeys(append(words, lifecycleWords(s)...))
}
