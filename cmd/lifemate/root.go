package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lifemate/lifemate-go/pkg/core"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lifemate",
		Short:         "lifemate is a personal assistant for tasks, spending and study",
		Long:          `lifemate answers questions about your tasks, expenses and study goals, and manages its long-term memory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (default: environment and .env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newChatCmd(opts),
		newMemoryCmd(opts),
		newJanitorCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*core.Config, error) {
	var (
		cfg *core.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = core.LoadConfigFromYAML(o.configPath)
	} else {
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

func (o *rootOptions) newClient(reg prometheus.Registerer) (*core.Client, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	var clientOpts []core.ClientOption
	if reg != nil {
		clientOpts = append(clientOpts, core.WithRegisterer(reg))
	}
	client, err := core.NewClient(cfg, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}
