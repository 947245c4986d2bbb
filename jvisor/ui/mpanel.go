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

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/jvisor/jvisor/jvisor/util"
	"github.com/jvisor/jvisor/rest"
)

// MainPanel lists every instance, one per line.
type MainPanel struct {
	content  *views.CellView
	selected *rest.InstanceInfo
	counts   [4]int // by util.Level
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	levels   []util.Level
	items    []*rest.InstanceInfo

	Panel
}

type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App, server string) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(contentStyles[util.LevelNormal])

	m.SetTitle(server)
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	app := m.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				app.ShowInfo(m.selected.Alias)
				return true
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.Quit()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					app.ShowInfo(m.selected.Alias)
					return true
				}
			case 'L', 'l':
				if m.selected != nil {
					app.ShowLog(m.selected.Alias)
				} else {
					app.ShowLog("")
				}
				return true
			}
			if m.selected != nil && lifecycleKey(app, m.selected, ev.Rune()) {
				return true
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

// lifecycleKey handles the keys that start, stop or remove an instance,
// shared by the main and info panels.
func lifecycleKey(app *App, info *rest.InstanceInfo, r rune) bool {
	switch r {
	case 'S', 's':
		if canStart(info) {
			app.StartInstance(info.Alias)
			return true
		}
	case 'T', 't':
		if canStop(info) {
			app.StopInstance(info.Alias)
			return true
		}
	case 'X', 'x':
		app.UninstallInstance(info.Alias)
		return true
	}
	return false
}

func canStart(info *rest.InstanceInfo) bool {
	return info.Installed && (info.State == "stopped" || info.State == "failed")
}

func canStop(info *rest.InstanceInfo) bool {
	return info.State == "running" || info.State == "unknown"
}

// lifecycleWords returns the key bar entries lifecycleKey honors.
func lifecycleWords(info *rest.InstanceInfo) []string {
	var words []string
	if canStart(info) {
		words = append(words, "[S] Start")
	}
	if canStop(info) {
		words = append(words, "[T] Stop")
	}
	return append(words, "[X] Uninstall")
}

func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ' ', contentStyles[util.LevelNormal], nil, 1
	}

	ch := ' '
	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	}
	style := contentStyles[m.levels[y]]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// This assumes that all content is displayable runes of width 1.
	m := model.m
	return m.width, m.height
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *mainModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *MainPanel) unselect() {
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *MainPanel) updateCursor(selected bool) {
	if m.curx > m.width-1 {
		m.curx = m.width - 1
	}
	if m.cury > m.height-1 {
		m.cury = m.height - 1
	}
	if m.curx < 0 {
		m.curx = 0
	}
	if m.cury < 0 {
		m.cury = 0
	}
	if selected && m.height > 0 {
		if m.selected == nil {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.items[m.cury]
	} else {
		m.selected = nil
	}
}

func (m *MainPanel) update() {

	items, err := m.App().GetItems()
	m.items = items

	// preserve selected item
	if sel := m.selected; sel != nil {
		m.selected = nil
		for y, item := range m.items {
			if item.Alias == sel.Alias {
				m.selected = item
				m.cury = y
			}
		}
	}
	if err != nil {
		m.SetLevel(util.LevelError)
		m.SetStatus(fmt.Sprintf("Cannot load instances: %v", err))
		m.items = nil
		m.lines = nil
		m.levels = nil
		m.width, m.height = 0, 0
		return
	}

	m.lines = make([]string, 0, len(items))
	m.levels = make([]util.Level, 0, len(items))
	m.counts = [4]int{}
	m.width = 0

	for _, info := range items {
		line := fmt.Sprintf("%-20s %-9s %10s   %-28s %s",
			info.Alias, util.Status(info),
			util.FormatDuration(util.Since(info)), info.URL, info.Status)
		if len(line) > m.width {
			m.width = len(line)
		}
		lvl := util.StatusLevel(info)
		m.counts[lvl]++
		m.lines = append(m.lines, line)
		m.levels = append(m.levels, lvl)
	}
	m.height = len(m.lines)

	status := fmt.Sprintf("%6d Instances %6d Faulted %6d Running %6d Busy",
		len(items), m.counts[util.LevelError], m.counts[util.LevelGood],
		m.counts[util.LevelWarn])
	if n := m.App().Notice(); n != "" {
		status += "   " + n
	}
	m.SetStatus(status)

	switch {
	case m.counts[util.LevelError] > 0:
		m.SetLevel(util.LevelError)
	case m.counts[util.LevelWarn] > 0:
		m.SetLevel(util.LevelWarn)
	case m.counts[util.LevelGood] > 0:
		m.SetLevel(util.LevelGood)
	default:
		m.SetLevel(util.LevelNormal)
	}

	words := []string{"[Q] Quit", "[H] Help", "[L] Log"}
	if item := m.selected; item != nil {
		words = append(words, "[I] Info")
		words = append(words, lifecycleWords(item)...)
	}
	m.SetKeys(words)
}
