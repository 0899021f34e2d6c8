// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is empty unless set at link time (-ldflags "-X main.Version=...");
// when empty, printVersion falls back to the module's build info.
var Version string

var rootCmd = &cobra.Command{
	Use:   "pilverify",
	Short: "Verify connection identities of a compiled PIL program.",
	Long:  "A verifier for a compiled PIL program's connection identities, checked against a loaded trace.",
	Run: func(cmd *cobra.Command, args []string) {
		if version, _ := cmd.Flags().GetBool("version"); version {
			printVersion()
		}
	},
}

func printVersion() {
	if Version != "" {
		logrus.Infof("pilverify %s", Version)
		return
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		logrus.Infof("pilverify %s", info.Main.Version)
		return
	}

	logrus.Info("pilverify (unknown version)")
}

// Execute adds all child commands to the root command and runs it. Called
// exactly once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:errcheck
func init() {
	rootCmd.PersistentFlags().Bool("version", false, "print the version and exit")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(GetString(cmd, "log-level"))
		if err != nil {
			logrus.Fatalf("invalid log level: %v", err)
		}

		logrus.SetLevel(level)
	}
}

// GetString returns the string value of a named flag, or the empty string
// if the flag does not exist.
func GetString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}

	return v
}
