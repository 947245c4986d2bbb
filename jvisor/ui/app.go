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

// Package ui implements the jvisor watch screen.
package ui

import (
	"errors"
	"log"
	"time"

	"golang.org/x/net/context"

	"github.com/gdamore/tcell"
	"github.com/gdamore/tcell/views"

	"github.com/jvisor/jvisor/jvisor/util"
	"github.com/jvisor/jvisor/rest"
)

// Longest long poll we ask the server for, in seconds.
const watchSecs = 60

var errNoInstance = errors.New("Instance not found")

type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	info      *InfoPanel
	help      *HelpPanel
	log       *LogPanel
	main      *MainPanel
	client    *rest.Client
	logger    *log.Logger
	err       error
	items     []*rest.InstanceInfo
	notice    string
	logAlias  string
	logInfo   *rest.LogInfo
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(alias string) {
	a.info.SetAlias(alias)
	a.show(a.info)
}

// ShowLog shows the output of alias, or the jvisord log if alias is
// empty.
func (a *App) ShowLog(alias string) {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.logInfo = nil
	a.logErr = nil
	a.logAlias = alias
	a.logCancel = cancel
	a.log.SetAlias(alias)
	go a.refreshLog(ctx, alias)

	a.show(a.log)
}

func (a *App) ShowMain() {
	if a.logCancel != nil {
		a.logCancel()
		a.logCancel = nil
	}
	a.show(a.main)
}

// do runs a lifecycle request in the background, since start and stop
// block until Jenkins has come up or gone away.
func (a *App) do(verb, alias string, fn func(ctx context.Context) error) {
	a.notice = verb + " " + alias + " ..."
	go func() {
		e := fn(context.Background())
		a.app.PostFunc(func() {
			if e != nil {
				a.notice = verb + " " + alias + " failed: " + e.Error()
			} else {
				a.notice = verb + " " + alias + " done"
			}
			a.Logf("%s", a.notice)
			a.app.Update()
		})
	}()
}

// StartInstance starts alias on the default address and port.
func (a *App) StartInstance(alias string) {
	a.do("Starting", alias, func(ctx context.Context) error {
		_, e := a.client.Start(ctx, alias, "", "")
		return e
	})
}

func (a *App) StopInstance(alias string) {
	a.do("Stopping", alias, func(ctx context.Context) error {
		return a.client.Stop(ctx, alias)
	})
}

func (a *App) UninstallInstance(alias string) {
	a.do("Uninstalling", alias, func(ctx context.Context) error {
		return a.client.Uninstall(ctx, alias)
	})
}

// Notice returns the outcome of the last request made from the UI.
func (a *App) Notice() string {
	return a.notice
}

func (a *App) Quit() {
	a.app.Quit()
}

func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
}

func (a *App) Logf(fmt string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(fmt, v...)
	}
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetAppName() string {
	return "Jvisor v1.0"
}

func NewApp(client *rest.Client, url string) *App {

	app := &App{}
	app.app = &views.Application{}
	app.client = client
	app.info = NewInfoPanel(app)
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.main = NewMainPanel(app, url)
	app.panel = app.main

	return app
}

// refresh keeps the app items current.
func (a *App) refresh() {
	etag := ""
	for {
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Second*(watchSecs+10))
		items, ntag, e := a.client.WatchInstances(ctx, etag, watchSecs)
		cancel()
		if e == nil && ntag == etag {
			continue
		}
		etag = ntag
		if items != nil {
			util.SortInstances(items)
		}
		a.app.PostFunc(func() {
			a.items = items
			a.err = e
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

func (a *App) refreshLog(ctx context.Context, alias string) {
	info, e := a.client.GetLog(ctx, alias)

	for {
		a.app.PostFunc(func() {
			if a.logAlias == alias {
				a.logInfo = info
				a.logErr = e
				a.app.Update()
			}
		})
		select {
		case <-ctx.Done():
			return
		default:
		}
		if e != nil {
			time.Sleep(2 * time.Second)
			info, e = a.client.GetLog(ctx, alias)
			continue
		}
		info, e = a.client.WatchLog(ctx, alias, info, watchSecs)
	}
}

func (a *App) GetItems() ([]*rest.InstanceInfo, error) {
	return a.items, a.err
}

func (a *App) GetItem(alias string) (*rest.InstanceInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.Alias == alias {
			return i, nil
		}
	}
	return nil, errNoInstance
}

func (a *App) GetLog(alias string) (*rest.LogInfo, error) {
	if a.logAlias == alias {
		return a.logInfo, a.logErr
	}
	return nil, nil
}

func (a *App) Run() error {
	a.Logf("Starting up user interface")
	a.app.SetRootWidget(a)
	a.ShowMain()
	go a.refresh()
	go func() {
		// Give us periodic updates, for the elapsed times.
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	return a.app.Run()
}
