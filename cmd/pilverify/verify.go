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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/pil-verify/pkg/pil"
	"github.com/consensys/pil-verify/pkg/pols"
	"github.com/consensys/pil-verify/pkg/verifier"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <pil.json> <commit-file> <const-file>",
	Short: "Check a trace's connection identities against a compiled PIL program.",
	Args:  cobra.ExactArgs(3),
	Run:   runVerifyCmd,
}

func runVerifyCmd(cmd *cobra.Command, args []string) {
	pilPath, commitPath, constPath := args[0], args[1], args[2]

	data, err := os.ReadFile(pilPath)
	if err != nil {
		logrus.Fatalf("reading %s: %v", pilPath, err)
	}

	prog, err := pil.Parse(data)
	if err != nil {
		logrus.Fatalf("parsing %s: %v", pilPath, err)
	}

	cmPols, err := pols.New(prog, pols.Commit)
	if err != nil {
		logrus.Fatalf("building commitment column store: %v", err)
	}

	if err := cmPols.Load(commitPath); err != nil {
		logrus.Fatalf("loading %s: %v", commitPath, err)
	}

	constPols, err := pols.New(prog, pols.Constant)
	if err != nil {
		logrus.Fatalf("building constant column store: %v", err)
	}

	if err := constPols.Load(constPath); err != nil {
		logrus.Fatalf("loading %s: %v", constPath, err)
	}

	v, err := verifier.New(prog, cmPols, constPols)
	if err != nil {
		logrus.Fatalf("constructing verifier: %v", err)
	}

	violations, err := v.VerifyPIL()
	if err != nil {
		logrus.Fatalf("verification failed: %v", err)
	}

	if len(violations) == 0 {
		logrus.Info("OK: all connection identities verified")
		return
	}

	for _, violation := range violations {
		logrus.Error(violation.String())
	}

	logrus.Fatalf("FAILED: %d connection identity violation(s)", len(violations))
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(verifyCmd)
}
