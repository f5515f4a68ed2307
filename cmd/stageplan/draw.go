package main

import (
	"github.com/spf13/cobra"

	"github.com/askiada/content-pipeline/pkg/pipeline/drawer"
)

func newDrawCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "draw [file.gv]",
		Short: "Write the stage graph in the DOT language, to stdout when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := drawer.NewDOTDrawer(cmd.OutOrStdout())
			if len(args) == 1 {
				d = drawer.NewFileDrawer(args[0])
			}

			err := drawer.AddConfigs(d, opts.registry.Label, opts.registry.Configs().Stages)
			if err != nil {
				return err
			}

			return d.Draw()
		},
	}
}
