// Package cli holds the desk commands.
package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dkeye/Desk/internal/config"
)

type rootOptions struct {
	ConfigPath string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "desk",
		Short: "Remote desktop streaming client",
		Long: `desk streams a remote device's desktop over WebRTC and forwards keyboard and
mouse input back to it. Run "desk serve" for the browser control surface or
"desk play" for a headless session.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a config file (default: config/config.$CONFIG_ENV.yaml)")

	cmd.AddCommand(
		NewServeCommand(opts),
		NewPlayCommand(opts),
		NewDevicesCommand(opts),
	)
	return cmd
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads the config and applies its log level.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(cfg.Level())
	return cfg, nil
}
