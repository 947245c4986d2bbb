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

// Command jvisor implements a client application that communicates with
// jvisord.  It uses subcommands.
//
// The flags are
//
//	-a <address>	- select the server address, default is
//			  http://127.0.0.1:8321 (or $JVISOR_SERVER)
//
// Subcommands are
//
//	instances                          - list all instance aliases
//	status [<alias> ...]               - show status for the named instances (or all)
//	info <alias>                       - show detailed instance info
//	install <alias> <version> [<src>]  - stage the Jenkins war
//	plugin <alias> <plugin> <version> [<src>]
//	                                   - stage a plugin
//	start <alias>                      - start Jenkins and wait until it answers
//	stop <alias>                       - stop Jenkins and wait until it is gone
//	uninstall <alias>                  - remove the instance tree
//	log [<alias>]                      - show instance output (or the jvisord log)
//	watch                              - full screen status (the default)
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jvisor/jvisor/jvisor/util"
	"github.com/jvisor/jvisor/rest"
)

const defaultServer = "http://127.0.0.1:8321"

type cli struct {
	v      *viper.Viper
	out    io.Writer
	client *rest.Client
}

func (c *cli) connect() {
	c.client = rest.NewClient(nil, c.v.GetString("server"))
}

func showStatus(w io.Writer, s *rest.InstanceInfo) {
	fmt.Fprintf(w, "%-20s %-9s %10s %s\n", s.Alias,
		util.Status(s), util.FormatDuration(util.Since(s)), s.Status)
}

func showInfo(w io.Writer, s *rest.InstanceInfo) {
	fmt.Fprintf(w, "Alias:     %s\n", s.Alias)
	fmt.Fprintf(w, "State:     %s\n", util.Status(s))
	fmt.Fprintf(w, "Since:     %v\n", util.Since(s))
	fmt.Fprintf(w, "Detail:    %s\n", s.Status)
	fmt.Fprintf(w, "URL:       %s\n", s.URL)
	fmt.Fprintf(w, "Run ID:    %s\n", s.RunID)
	if s.Pid != 0 {
		fmt.Fprintf(w, "Pid:       %d\n", s.Pid)
	}
	fmt.Fprintf(w, "Directory: %s\n", s.Dir)
	fmt.Fprintf(w, "Home:      %s\n", s.Home)
	fmt.Fprintf(w, "Archive:   %s\n", s.ArchiveDigest)
	fmt.Fprintf(w, "Plugins:  ")
	for _, p := range s.Plugins {
		fmt.Fprintf(w, " %s", p.Name)
	}
	fmt.Fprintf(w, "\n")
}

func (c *cli) instances(ctx context.Context, args []string) error {
	items, e := c.client.Instances(ctx)
	if e != nil {
		return e
	}
	names := make([]string, 0, len(items))
	for _, i := range items {
		names = append(names, i.Alias)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(c.out, n)
	}
	return nil
}

func (c *cli) status(ctx context.Context, args []string) error {
	var infos []*rest.InstanceInfo
	if len(args) == 0 {
		items, e := c.client.Instances(ctx)
		if e != nil {
			return e
		}
		infos = items
	}
	for _, a := range args {
		info, e := c.client.Instance(ctx, a)
		if e != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", a, e)
			continue
		}
		infos = append(infos, info)
	}
	util.SortInstances(infos)
	for _, info := range infos {
		showStatus(c.out, info)
	}
	return nil
}

func (c *cli) info(ctx context.Context, args []string) error {
	info, e := c.client.Instance(ctx, args[0])
	if e != nil {
		return e
	}
	showInfo(c.out, info)
	return nil
}

func (c *cli) install(ctx context.Context, args []string) error {
	src := ""
	if len(args) > 2 {
		src = args[2]
	}
	info, e := c.client.Install(ctx, args[0], args[1], src)
	if e != nil {
		return e
	}
	fmt.Fprintf(c.out, "%s %s\n", info.Alias, info.ArchiveDigest)
	return nil
}

func (c *cli) plugin(ctx context.Context, args []string) error {
	src := ""
	if len(args) > 3 {
		src = args[3]
	}
	_, e := c.client.InstallPlugin(ctx, args[0], args[1], args[2], src)
	return e
}

func (c *cli) start(ctx context.Context, args []string) error {
	info, e := c.client.Start(ctx, args[0],
		c.v.GetString("address"), c.v.GetString("port"))
	if e != nil {
		return e
	}
	fmt.Fprintln(c.out, info.URL)
	return nil
}

func (c *cli) stop(ctx context.Context, args []string) error {
	return c.client.Stop(ctx, args[0])
}

func (c *cli) uninstall(ctx context.Context, args []string) error {
	return c.client.Uninstall(ctx, args[0])
}

func (c *cli) log(ctx context.Context, args []string) error {
	alias := ""
	if len(args) > 0 {
		alias = args[0]
	}
	l, e := c.client.GetLog(ctx, alias)
	if e != nil {
		return e
	}
	for _, r := range l.Records {
		fmt.Fprintf(c.out, "%s %s\n", r.Time.Format(time.StampMilli), r.Text)
	}
	if !c.v.GetBool("follow") {
		return nil
	}
	for {
		nl, e := c.client.WatchLog(ctx, alias, l, 60)
		if e != nil {
			return e
		}
		for _, r := range nl.Records {
			if r.Id > lastID(l) {
				fmt.Fprintf(c.out, "%s %s\n", r.Time.Format(time.StampMilli), r.Text)
			}
		}
		l = nl
	}
}

func lastID(l *rest.LogInfo) int64 {
	if n := len(l.Records); n > 0 {
		return l.Records[n-1].Id
	}
	return 0
}

// run adapts a subcommand to cobra, cancelling it on interrupt.
func (c *cli) run(fn func(context.Context, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		c.connect()
		cmd.SilenceUsage = true
		return fn(ctx, args)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}
	c.v.SetEnvPrefix("JVISOR")
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "jvisor",
		Short: "Control Jenkins instances served by jvisord",
		Args:  cobra.NoArgs,
		RunE:  c.run(c.watch),
	}
	root.PersistentFlags().StringP("server", "a", defaultServer, "jvisord address")
	_ = c.v.BindPFlag("server", root.PersistentFlags().Lookup("server"))

	add := func(use, short string, args cobra.PositionalArgs, fn func(context.Context, []string) error) *cobra.Command {
		cmd := &cobra.Command{Use: use, Short: short, Args: args, RunE: c.run(fn)}
		root.AddCommand(cmd)
		return cmd
	}

	add("instances", "List instance aliases", cobra.NoArgs, c.instances)
	add("status [alias...]", "Show instance status", cobra.ArbitraryArgs, c.status)
	add("info <alias>", "Show instance details", cobra.ExactArgs(1), c.info)
	add("install <alias> <version> [src]", "Stage the Jenkins war", cobra.RangeArgs(2, 3), c.install)
	add("plugin <alias> <plugin> <version> [src]", "Stage a plugin", cobra.RangeArgs(3, 4), c.plugin)
	start := add("start <alias>", "Start Jenkins", cobra.ExactArgs(1), c.start)
	add("stop <alias>", "Stop Jenkins", cobra.ExactArgs(1), c.stop)
	add("uninstall <alias>", "Remove the instance tree", cobra.ExactArgs(1), c.uninstall)
	logCmd := add("log [alias]", "Show instance output, or the jvisord log", cobra.MaximumNArgs(1), c.log)
	add("watch", "Full screen status", cobra.NoArgs, c.watch)

	start.Flags().String("address", "", "listen address (default localhost)")
	start.Flags().String("port", "", "listen port (default 8080)")
	_ = c.v.BindPFlag("address", start.Flags().Lookup("address"))
	_ = c.v.BindPFlag("port", start.Flags().Lookup("port"))

	logCmd.Flags().BoolP("follow", "f", false, "keep printing new records")
	_ = c.v.BindPFlag("follow", logCmd.Flags().Lookup("follow"))

	root.PersistentFlags().String("ui-log", "", "append watch screen events to this file")
	_ = c.v.BindPFlag("ui-log", root.PersistentFlags().Lookup("ui-log"))

	return root
}

func main() {
	if e := newRootCmd(os.Stdout).Execute(); e != nil {
		os.Exit(1)
	}
}
