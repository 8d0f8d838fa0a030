package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dkeye/Desk/internal/adapters/directory"
	"github.com/dkeye/Desk/internal/domain"
)

type DevicesOptions struct {
	Token        string
	OutputFormat string
	Status       string
	List         directory.ListOptions
}

func NewDevicesCommand(root *rootOptions) *cobra.Command {
	opts := &DevicesOptions{}

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Browse the device directory",
	}
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "Directory bearer token (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.OutputFormat, "format", "", "text", "Specify output format. Options are \"text\" (default) or \"json\".")
	cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	list := &cobra.Command{
		Use:     "ls [flags]",
		Aliases: []string{"list"},
		Short:   "List devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root)
			if err != nil {
				return err
			}
			opts.List.Status = domain.DeviceStatus(opts.Status)
			devices, err := client.ListDevices(cmd.Context(), opts.List)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}
			if opts.OutputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			return outputDevicesText(cmd.OutOrStdout(), devices)
		},
		Example: `  # List online devices, second page
  desk devices ls --status online --page 2

  # JSON output
  desk devices ls --format json`,
	}
	lf := list.Flags()
	lf.IntVar(&opts.List.Page, "page", 1, "Page number")
	lf.IntVar(&opts.List.PageSize, "page-size", 20, "Page size")
	lf.StringVar(&opts.Status, "status", "", "Filter by status (online, offline, maintenance)")
	lf.BoolVar(&opts.List.MyDevicesOnly, "mine", false, "Only devices associated with the token's user")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client(root)
			if err != nil {
				return err
			}
			d, err := client.GetDevice(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get device %s: %w", args[0], err)
			}
			if opts.OutputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			return outputDeviceText(cmd.OutOrStdout(), d)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

func (o *DevicesOptions) client(root *rootOptions) (*directory.Client, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	c := newDirectory(cfg)
	if o.Token != "" {
		c = c.WithToken(o.Token)
	}
	return c, nil
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func statusText(s domain.DeviceStatus) string {
	switch s {
	case domain.DeviceOnline:
		return color.GreenString(string(s))
	case domain.DeviceMaintenance:
		return color.YellowString(string(s))
	default:
		return color.New(color.Faint).Sprint(string(s))
	}
}

func outputDevicesText(w io.Writer, list *directory.DeviceList) error {
	if len(list.Devices) == 0 {
		_, err := fmt.Fprintln(w, "No devices found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEVICE ID\tIP\tSTATUS")
	for _, d := range list.Devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.DeviceID, d.IP, statusText(d.Status))
	}
	fmt.Fprintf(tw, "\nTotal: %d\n", list.Total)
	return tw.Flush()
}

func outputDeviceText(w io.Writer, d *domain.Device) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", d.ID},
		{"Name", d.Name},
		{"Device ID", d.DeviceID},
		{"IP", d.IP},
		{"MAC", d.MAC},
		{"Status", statusText(d.Status)},
		{"CPU", d.CPU.String()},
		{"Memory", d.Memory.String()},
		{"Disk", d.Disk.String()},
		{"OS", d.OS.String()},
		{"Updated", d.UpdatedAt},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}
