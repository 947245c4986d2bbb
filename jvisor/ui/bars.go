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
	"strings"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/jvisor/jvisor/jvisor/util"
)

var (
	barStyle = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
	barAltStyle = tcell.StyleDefault.
			Foreground(tcell.ColorBlue).
			Background(tcell.ColorSilver)

	// Indexed by util.Level.
	statusStyles = []tcell.Style{
		util.LevelNormal: barStyle,
		util.LevelGood: tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorGreen).
			Bold(true),
		util.LevelWarn: tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorYellow),
		util.LevelError: tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorMaroon).
			Bold(true),
	}
	contentStyles = []tcell.Style{
		util.LevelNormal: tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack),
		util.LevelGood: tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack),
		util.LevelWarn: tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack),
		util.LevelError: tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack),
	}
)

// newBar returns a text bar where %N selects the normal style and %A
// the alternate one.
func newBar(alt tcell.Style) *views.SimpleStyledTextBar {
	b := views.NewSimpleStyledTextBar()
	b.SetStyle(barStyle)
	b.RegisterLeftStyle('N', barStyle)
	b.RegisterLeftStyle('A', alt)
	b.RegisterCenterStyle('N', barStyle)
	b.RegisterCenterStyle('A', alt)
	b.RegisterRightStyle('N', barStyle)
	b.RegisterRightStyle('A', alt)
	return b
}

// keyMarkup renders words like "[Q] Quit" for a key bar, so that the
// bracketed key stands out.  Literal percent signs are escaped.
func keyMarkup(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i != 0 && w != "" {
			b.WriteByte(' ')
		}
		inKey := false
		for _, r := range w {
			if r == '%' {
				b.WriteByte('%')
			}
			if inKey && r == ']' {
				b.WriteString("%N")
				inKey = false
			}
			b.WriteRune(r)
			if !inKey && r == '[' {
				b.WriteString("%A")
				inKey = true
			}
		}
	}
	return b.String()
}

// StatusBar shows one line of text colored by level.
type StatusBar struct {
	text string
	views.SimpleStyledTextBar
}

func (sb *StatusBar) SetLevel(l util.Level) {
	st := statusStyles[l]
	sb.SimpleStyledTextBar.SetStyle(st)
	sb.RegisterLeftStyle('N', st)
	sb.SetLeft(sb.text)
}

func (sb *StatusBar) SetText(text string) {
	sb.text = strings.ReplaceAll(text, "%", "%%")
	sb.SetLeft(sb.text)
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.SimpleStyledTextBar.Init()
	sb.SetLevel(util.LevelNormal)
	return sb
}
