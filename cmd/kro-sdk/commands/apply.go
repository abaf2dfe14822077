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

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/yaml"

	"github.com/kro-run/kro-sdk/pkg/deploy"
	"github.com/kro-run/kro-sdk/pkg/graph"
	"github.com/kro-run/kro-sdk/pkg/readiness"
)

type clusterFlags struct {
	kubeconfig string
	namespace  string
	inputsFile string
}

func (f *clusterFlags) register(cmd *cobra.Command) {
	defaultKubeconfig := ""
	if home := homedir.HomeDir(); home != "" {
		defaultKubeconfig = filepath.Join(home, ".kube", "config")
	}
	cmd.Flags().StringVar(&f.kubeconfig, "kubeconfig", defaultKubeconfig, "path to the kubeconfig file")
	cmd.Flags().StringVarP(&f.namespace, "namespace", "n", "default", "fallback namespace for namespaced resources")
	cmd.Flags().StringVar(&f.inputsFile, "inputs", "", "YAML file with instance spec values exposed as schema.spec.*")
}

func (f *clusterFlags) dynamicClient() (dynamic.Interface, error) {
	config, err := clientcmd.BuildConfigFromFlags("", f.kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed loading kubeconfig: %w", err)
	}
	return dynamic.NewForConfig(config)
}

func (f *clusterFlags) inputs() (map[string]interface{}, error) {
	if f.inputsFile == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(f.inputsFile)
	if err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", f.inputsFile, err)
	}
	var spec map[string]interface{}
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed parsing %s: %w", f.inputsFile, err)
	}
	return map[string]interface{}{"spec": spec}, nil
}

func AddApplyCommands(rootCmd *cobra.Command) {
	var (
		flags   clusterFlags
		wait    bool
		timeout time.Duration
		workers int
	)

	applyCmd := &cobra.Command{
		Use:   "apply [FILE]",
		Short: "Deploy a ResourceGraphDefinition's resources to a cluster",
		Long:  `Deploy the resources of a compiled ResourceGraphDefinition directly to a cluster, in dependency order, resolving cross-resource references from live state.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rgd, err := loadResourceGraphDefinition(args[0])
			if err != nil {
				return err
			}
			g, err := graph.FromDefinition(rgd)
			if err != nil {
				return err
			}
			client, err := flags.dynamicClient()
			if err != nil {
				return err
			}
			inputs, err := flags.inputs()
			if err != nil {
				return err
			}

			log := zap.New(zap.UseDevMode(true), func(o *zap.Options) { o.TimeEncoder = zapcore.ISO8601TimeEncoder })
			deployer := deploy.NewDeployer(client, readiness.DefaultRegistry(), log, deploy.Options{
				GraphName:         rgd.Name,
				Namespace:         flags.namespace,
				WaitForReady:      wait,
				DeploymentTimeout: timeout,
				MaxConcurrency:    workers,
			})

			result, err := deployer.Deploy(cmd.Context(), g, inputs)
			if result != nil {
				printResult(cmd, result)
			}
			return err
		},
	}
	flags.register(applyCmd)
	applyCmd.Flags().BoolVar(&wait, "wait", true, "wait for each resource to become ready before its dependents")
	applyCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deployment timeout (0 means no ceiling)")
	applyCmd.Flags().IntVar(&workers, "workers", 0, "maximum independent resources processed at once")

	deleteCmd := &cobra.Command{
		Use:   "delete [FILE]",
		Short: "Delete a ResourceGraphDefinition's resources from a cluster",
		Long:  `Delete the resources of a compiled ResourceGraphDefinition from a cluster in reverse dependency order. Resources that no longer exist are skipped.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rgd, err := loadResourceGraphDefinition(args[0])
			if err != nil {
				return err
			}
			g, err := graph.FromDefinition(rgd)
			if err != nil {
				return err
			}
			client, err := flags.dynamicClient()
			if err != nil {
				return err
			}
			inputs, err := flags.inputs()
			if err != nil {
				return err
			}

			log := zap.New(zap.UseDevMode(true), func(o *zap.Options) { o.TimeEncoder = zapcore.ISO8601TimeEncoder })
			deployer := deploy.NewDeployer(client, nil, log, deploy.Options{
				GraphName: rgd.Name,
				Namespace: flags.namespace,
			})
			if err := deployer.Destroy(cmd.Context(), g, inputs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d resources\n", len(g.Resources))
			return nil
		},
	}
	flags.register(deleteCmd)

	rootCmd.AddCommand(applyCmd, deleteCmd)
}

func printResult(cmd *cobra.Command, result *deploy.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", result.Status)
	for _, applied := range result.AppliedResources {
		readyState := "ready"
		if !applied.Readiness.Ready {
			readyState = "applied"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", readyState, applied.ID)
	}
	for _, failure := range result.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  failed %s: %v\n", failure.ResourceID, failure.Err)
	}
	for _, id := range result.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", id)
	}
}
