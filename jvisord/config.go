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

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jvisor/jvisor"
)

const (
	defaultAddr = "127.0.0.1:8321"
	defaultName = "jvisord"
)

type daemonConfig struct {
	Addr      string
	Dir       string
	Name      string
	Provision bool
	Manager   jvisor.Config
}

func addFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "config file (default is ./jvisord.yaml)")
	f.StringP("addr", "a", defaultAddr, "listen address")
	f.StringP("dir", "d", ".", "directory holding the fixtures directory")
	f.StringP("name", "n", defaultName, "jvisor name")
	f.BoolP("provision", "p", true, "provision fixtures at startup")
	f.String("work-dir", "", "instance working directory (default $JVISORDIR/work)")
	f.String("cache-dir", "", "artifact cache directory (default $JVISORDIR/cache)")
	f.StringSlice("java", nil, "java command and leading arguments")
	f.String("jenkins-url", jvisor.DefaultJenkinsURL, "war URL template")
	f.String("plugin-url", jvisor.DefaultPluginURL, "plugin URL template")
	f.Duration("poll-interval", 0, "interval between HTTP polls")
	f.Int("start-attempts", 0, "polls before startup times out")
	f.Int("stop-attempts", 0, "polls before shutdown times out")
	f.Int("down-confirmations", 0, "consecutive failed polls that confirm shutdown")
	f.Duration("shutdown-grace", 0, "wait after shutdown is confirmed")
	f.Duration("request-timeout", 0, "timeout for each HTTP request")
	f.Duration("kill-timeout", 0, "wait after SIGTERM before SIGKILL")
	f.Bool("force-download", false, "download remote artifacts even when cached")

	_ = v.BindPFlags(f)
}

// initConfig arranges for JVISOR_* environment variables and an
// optional configuration file to supply values not given as flags.
func initConfig(v *viper.Viper) error {
	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("jvisord")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.jvisor")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("JVISOR")
	// JVISOR_WORK_DIR for work-dir
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if e := v.ReadInConfig(); e != nil {
		if _, ok := e.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", e)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*daemonConfig, error) {
	dc := &daemonConfig{
		Addr:      v.GetString("addr"),
		Dir:       v.GetString("dir"),
		Name:      v.GetString("name"),
		Provision: v.GetBool("provision"),
		Manager: jvisor.Config{
			WorkDir:           v.GetString("work-dir"),
			CacheDir:          v.GetString("cache-dir"),
			Java:              v.GetStringSlice("java"),
			JenkinsURL:        v.GetString("jenkins-url"),
			PluginURL:         v.GetString("plugin-url"),
			PollInterval:      v.GetDuration("poll-interval"),
			StartAttempts:     v.GetInt("start-attempts"),
			StopAttempts:      v.GetInt("stop-attempts"),
			DownConfirmations: v.GetInt("down-confirmations"),
			ShutdownGrace:     v.GetDuration("shutdown-grace"),
			RequestTimeout:    v.GetDuration("request-timeout"),
			KillTimeout:       v.GetDuration("kill-timeout"),
			ForceDownload:     v.GetBool("force-download"),
		},
	}
	if dc.Addr == "" {
		return nil, fmt.Errorf("empty listen address")
	}
	if dc.Name == "" {
		dc.Name = defaultName
	}
	return dc, nil
}
