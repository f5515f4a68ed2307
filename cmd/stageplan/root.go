package main

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/askiada/content-pipeline/pkg/pipeline"
)

type rootOptions struct {
	registryPath string
	output       string
	logMode      string

	registry *pipeline.Registry
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "stageplan",
		Short:         "Plan and run content pipeline stages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.registryPath, "registry", "", "registry YAML file, the built-in marketing registry when empty")
	flags.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	flags.StringVar(&opts.logMode, "log-mode", "dev", "logger: dev, prod or none")

	cmd.AddCommand(
		newLevelsCmd(opts),
		newChainCmd(opts),
		newDepsCmd(opts),
		newDownstreamCmd(opts),
		newDrawCmd(opts),
		newRunCmd(opts),
	)

	return cmd
}

func (o *rootOptions) setup() error {
	switch o.output {
	case "json", "yaml":
	default:
		return errors.Errorf("unknown output format %q", o.output)
	}

	logger, err := newLogger(o.logMode)
	if err != nil {
		return err
	}

	o.logger = logger

	if o.registryPath == "" {
		o.registry = pipeline.DefaultRegistry()

		return nil
	}

	o.registry, err = pipeline.LoadRegistryFile(o.registryPath)
	if err != nil {
		return err
	}

	o.logger.Debug("registry loaded", zap.String("path", o.registryPath), zap.Int("stages", len(o.registry.Stages())))

	return nil
}

func newLogger(mode string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)

	switch mode {
	case "dev":
		logger, err = zap.NewDevelopment()
	case "prod":
		logger, err = zap.NewProduction()
	case "none":
		logger = zap.NewNop()
	default:
		return nil, errors.Errorf("unknown log mode %q", mode)
	}

	if err != nil {
		return nil, errors.Wrap(err, "unable to create logger")
	}

	return logger, nil
}

func (o *rootOptions) print(wrt io.Writer, value any) error {
	if o.output == "yaml" {
		enc := yaml.NewEncoder(wrt)
		enc.SetIndent(2)

		err := enc.Encode(value)
		if err != nil {
			return errors.Wrap(err, "unable to encode yaml")
		}

		return errors.Wrap(enc.Close(), "unable to encode yaml")
	}

	enc := json.NewEncoder(wrt)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(value), "unable to encode json")
}
