package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"readout/internal/config"
)

// commandContext resolves shared CLI state: config file, daemon address, and
// the API client.
type commandContext struct {
	configFlag *string
	addrFlag   *string
	jsonFlag   *bool

	cfg    *config.Config
	client *apiClient
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) apiClient() (*apiClient, error) {
	if c.client != nil {
		return c.client, nil
	}
	addr := strings.TrimSpace(*c.addrFlag)
	if addr == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		addr = dialableAddr(cfg.Paths.APIBind)
	}
	if addr == "" {
		return nil, fmt.Errorf("no daemon address: set paths.api_bind in the config or pass --addr")
	}
	c.client = newAPIClient(addr)
	return c.client, nil
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func newRootCommand() *cobra.Command {
	var configFlag, addrFlag string
	var jsonFlag bool

	ctx := &commandContext{
		configFlag: &configFlag,
		addrFlag:   &addrFlag,
		jsonFlag:   &jsonFlag,
	}

	rootCmd := &cobra.Command{
		Use:           "readout",
		Short:         "Control the readout content-to-audio daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Daemon API address, host:port")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit JSON instead of tables")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newSourcesCommand(ctx))
	rootCmd.AddCommand(newMediaCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
