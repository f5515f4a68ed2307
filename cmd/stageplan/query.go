package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/content-pipeline/pkg/pipeline/model"
)

func newLevelsCmd(opts *rootOptions) *cobra.Command {
	var noOptional bool

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Print the execution levels of every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.print(cmd.OutOrStdout(), opts.registry.BuildExecutionLevels(!noOptional))
		},
	}

	cmd.Flags().BoolVar(&noOptional, "no-optional", false, "leave the optional stage out")

	return cmd
}

func newChainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <stage>",
		Short: "Print the levels needed to produce a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			levels, err := opts.registry.UpstreamChain(model.Stage(args[0]))
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), levels)
		},
	}
}

type depsOutput struct {
	Stage     model.Stage          `json:"stage" yaml:"stage"`
	Info      model.DependencyInfo `json:"info" yaml:"info"`
	Readiness *model.Readiness     `json:"readiness,omitempty" yaml:"readiness,omitempty"`
}

func newDepsCmd(opts *rootOptions) *cobra.Command {
	var available []string

	cmd := &cobra.Command{
		Use:   "deps <stage>",
		Short: "Describe the dependencies of a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := model.Stage(args[0])

			info, err := opts.registry.DependencyInfo(stage)
			if err != nil {
				return err
			}

			out := depsOutput{Stage: stage, Info: info}

			if cmd.Flags().Changed("available") {
				done := make(map[model.Stage]bool, len(available))
				for _, name := range available {
					done[model.Stage(strings.TrimSpace(name))] = true
				}

				readiness, err := opts.registry.CheckDependenciesReady(stage, done)
				if err != nil {
					return err
				}

				out.Readiness = &readiness
			}

			return opts.print(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringSliceVar(&available, "available", nil, "stages with a completed result, to check readiness")

	return cmd
}

func newDownstreamCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "downstream <stage>",
		Short: "Print every stage depending on a stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := opts.registry.DownstreamStages(model.Stage(args[0]))
			if err != nil {
				return err
			}

			return opts.print(cmd.OutOrStdout(), stages)
		},
	}
}
