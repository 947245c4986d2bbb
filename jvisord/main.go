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

// Command jvisord serves a jvisor Manager over HTTP.
//
// At startup every manifest found in <dir>/fixtures is provisioned.  On
// SIGINT, SIGTERM or SIGHUP every Jenkins it started is shut down.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jvisor/jvisor"
	"github.com/jvisor/jvisor/rest"
)

func provision(ctx context.Context, m *jvisor.Manager, dir string) {
	fdir := filepath.Join(dir, "fixtures")
	mfs, e := jvisor.LoadManifests(fdir)
	if e != nil {
		if errors.Is(e, os.ErrNotExist) {
			return
		}
		log.Printf("Failed to load fixtures from %s: %v", fdir, e)
	}
	for _, mf := range mfs {
		if e := m.Provision(ctx, mf); e != nil {
			log.Printf("Failed to provision %s: %v", mf.Alias, e)
		}
	}
}

func serve(dc *daemonConfig) error {
	m := jvisor.NewManager(dc.Name, dc.Manager)

	srv := &http.Server{Addr: dc.Addr, Handler: rest.NewHandler(m)}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if dc.Provision {
		go provision(ctx, m, dc.Dir)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Wait for a termination signal, and shutdown cleanly if we get it.
	var err error
	select {
	case sig := <-sigs:
		log.Printf("Got %v, shutting down", sig)
	case err = <-errs:
	}
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), time.Second*5)
	defer scancel()
	srv.Shutdown(sctx)
	m.Shutdown()
	return err
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "jvisord",
		Short: "Serve throwaway Jenkins instances over HTTP",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dc, e := loadConfig(v)
			if e != nil {
				return e
			}
			cmd.SilenceUsage = true
			return serve(dc)
		},
	}
	addFlags(cmd, v)
	return cmd
}

func main() {
	if e := newRootCmd().Execute(); e != nil {
		os.Exit(1)
	}
}
