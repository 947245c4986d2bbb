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
	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/jvisor/jvisor/jvisor/util"
)

// Panel is a screen with a title bar on top, then a status line, the
// content, and a key bar at the bottom.
type Panel struct {
	tb  *views.SimpleStyledTextBar
	sb  *StatusBar
	kb  *views.SimpleStyledTextBar
	app *App

	views.Panel
}

func (p *Panel) SetTitle(title string) {
	p.tb.SetCenter(title)
}

func (p *Panel) SetKeys(words []string) {
	p.kb.SetLeft(keyMarkup(words))
}

func (p *Panel) SetStatus(status string) {
	p.sb.SetText(status)
}

func (p *Panel) SetLevel(l util.Level) {
	p.sb.SetLevel(l)
}

func (p *Panel) Init(app *App) {
	p.app = app

	p.tb = newBar(barAltStyle)
	p.tb.SetRight(app.GetAppName())
	p.tb.SetCenter(" ")
	p.kb = newBar(barAltStyle.Bold(true))
	p.sb = NewStatusBar()

	p.Panel.SetTitle(p.tb)
	p.Panel.SetMenu(p.sb)
	p.Panel.SetStatus(p.kb)
}

func (p *Panel) App() *App {
	return p.app
}

// escOrQuit reports whether ev asks to leave a secondary panel.
func escOrQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEsc:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}
