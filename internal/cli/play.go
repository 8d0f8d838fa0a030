package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dkeye/Desk/internal/domain"
)

type PlayOptions struct {
	DirectoryID string
	Forwarding  bool
}

func NewPlayCommand(root *rootOptions) *cobra.Command {
	opts := &PlayOptions{}

	cmd := &cobra.Command{
		Use:   "play [device_id] [flags]",
		Short: "Run a headless session and print stream quality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID := ""
			if len(args) == 1 {
				deviceID = args[0]
			}
			if deviceID == "" && opts.DirectoryID == "" {
				return errors.New("a device id or --id is required")
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("forward-input") {
				cfg.Input.Forwarding = opts.Forwarding
			}
			st, err := newStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			return ExecutePlay(cmd, st, deviceID, opts)
		},
		Example: `  # Stream device dev-42
  desk play dev-42

  # Resolve directory record 17 and stream it
  desk play --id 17`,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.DirectoryID, "id", "", "Directory record id to resolve instead of a device id")
	flags.BoolVar(&opts.Forwarding, "forward-input", false, "Enable input forwarding (overrides config)")
	return cmd
}

// ExecutePlay runs until the command context ends or the session fails.
func ExecutePlay(cmd *cobra.Command, st *stack, deviceID string, opts *PlayOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	failed := make(chan error, 1)
	st.orch.Session.OnFailure(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})
	st.orch.Session.OnStateChange(func(s domain.SessionState) {
		fmt.Fprintf(out, "%s %s\n", color.New(color.Faint).Sprint("state"), stateColor(s).Sprint(s))
	})
	st.orch.OnMetrics(func(m domain.QualityMetrics) {
		fmt.Fprintln(out, FormatMetrics(m))
	})

	if opts.DirectoryID != "" {
		d, err := st.orch.Play(ctx, opts.DirectoryID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Playing %s (%s)\n", color.CyanString(d.Name), d.DeviceID)
	} else if err := st.orch.Start(ctx, deviceID); err != nil {
		return err
	}
	fmt.Fprintf(out, "(Press %s to stop.)\n", color.New(color.FgYellow, color.Bold).Sprint("Ctrl+C"))

	select {
	case <-ctx.Done():
		st.orch.Stop()
		return nil
	case err := <-failed:
		return fmt.Errorf("session ended: %w", err)
	}
}

func stateColor(s domain.SessionState) *color.Color {
	switch s {
	case domain.StateConnected:
		return color.New(color.FgGreen)
	case domain.StateFailed, domain.StateDisconnected:
		return color.New(color.FgRed)
	case domain.StateNegotiating:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Faint)
	}
}

// FormatMetrics renders one quality snapshot as a single status line.
func FormatMetrics(m domain.QualityMetrics) string {
	loss := color.New(color.FgGreen)
	switch {
	case m.PacketLossRate >= 0.05:
		loss = color.New(color.FgRed)
	case m.PacketLossRate >= 0.01:
		loss = color.New(color.FgYellow)
	}
	codec := m.Codec
	if codec == "" {
		codec = "-"
	}
	return fmt.Sprintf("%s  %s kbps  %s fps  loss %s  rtt %s ms  jitter %s ms  %s MB  %s",
		m.Timestamp.Format("15:04:05"),
		color.CyanString("%.0f", m.BitrateKbps),
		color.CyanString("%.1f", m.FramesPerSecond),
		loss.Sprintf("%.2f%%", m.PacketLossRate*100),
		fmt.Sprintf("%.0f", m.LatencyMs),
		fmt.Sprintf("%.1f", m.JitterMs),
		fmt.Sprintf("%.2f", m.TransferredMB),
		codec,
	)
}
