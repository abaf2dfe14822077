// Copyright 2025 The Kube Resource Orchestrator Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"). You may
// not use this file except in compliance with the License. A copy of the
// License is located at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// or in the "license" file accompanying this file. This file is distributed
// on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either
// express or implied. See the License for the specific language governing
// permissions and limitations under the License.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/release-utils/version"

	"github.com/kro-run/kro-sdk/cmd/kro-sdk/commands"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kro-sdk",
		Short: "kro-sdk - client-side tooling for kro resource graphs",
		Long: `kro-sdk helps developers work with compiled ResourceGraphDefinitions:
validating them before they are handed to a cluster, and inspecting the
dependency structure the controller will resolve.`,
		Version:       version.GetVersionInfo().GitVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	commands.AddValidateCommands(cmd)
	commands.AddApplyCommands(cmd)
	return cmd
}
