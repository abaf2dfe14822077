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

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/kro-run/kro-sdk/api/v1alpha1"
	"github.com/kro-run/kro-sdk/pkg/graph"
)

func AddValidateCommands(rootCmd *cobra.Command) {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a ResourceGraphDefinition",
		Long:  `Validate a compiled ResourceGraphDefinition: naming conventions, expression syntax, dangling references and dependency cycles.`,
	}

	var sample bool
	validateRGDCmd := &cobra.Command{
		Use:   "rgd [FILE]",
		Short: "Validate a ResourceGraphDefinition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rgd, err := loadResourceGraphDefinition(args[0])
			if err != nil {
				return err
			}
			if err := graph.ValidateDefinition(rgd); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			if sample {
				return printSampleInstance(cmd, rgd)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d resources\n", args[0], len(rgd.Spec.Resources))
			return nil
		},
	}
	validateRGDCmd.Flags().BoolVar(&sample, "sample", false, "emit a sample instance manifest for the definition's schema")

	validateCmd.AddCommand(validateRGDCmd)
	rootCmd.AddCommand(validateCmd)
}

func printSampleInstance(cmd *cobra.Command, rgd *v1alpha1.ResourceGraphDefinition) error {
	if rgd.Spec.Schema == nil {
		return fmt.Errorf("definition has no schema section")
	}
	g, err := graph.FromDefinition(rgd)
	if err != nil {
		return err
	}
	var specFields map[string]interface{}
	if len(rgd.Spec.Schema.Spec.Raw) > 0 {
		if err := yaml.Unmarshal(rgd.Spec.Schema.Spec.Raw, &specFields); err != nil {
			return fmt.Errorf("failed parsing schema spec: %w", err)
		}
	}
	instance, err := g.SampleInstance(graph.SchemaDefinition{
		Kind:       rgd.Spec.Schema.Kind,
		APIVersion: rgd.Spec.Schema.APIVersion,
		Spec:       specFields,
	})
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(instance.Object)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func loadResourceGraphDefinition(path string) (*v1alpha1.ResourceGraphDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", path, err)
	}
	var rgd v1alpha1.ResourceGraphDefinition
	if err := yaml.Unmarshal(raw, &rgd); err != nil {
		return nil, fmt.Errorf("failed parsing %s: %w", path, err)
	}
	if rgd.Kind != v1alpha1.ResourceGraphDefinitionKind {
		return nil, fmt.Errorf("%s is not a %s document (kind %q)", path, v1alpha1.ResourceGraphDefinitionKind, rgd.Kind)
	}
	return &rgd, nil
}
