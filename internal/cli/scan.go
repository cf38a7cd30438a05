package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/roamwatch/internal/bus"
	"github.com/roach88/roamwatch/internal/config"
	"github.com/roach88/roamwatch/internal/wlan"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	Adapter string
	Script  string
	Timeout time.Duration
}

// ScanOutput is the scan command's result.
type ScanOutput struct {
	SSID      string         `json:"ssid,omitempty"`
	Refreshed bool           `json:"refreshed"`
	Networks  []wlan.Network `json:"networks"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "scan [ssid]",
		Short: "Scan and list visible access points",
		Long: `Request a scan, wait for the scan list to refresh and list every access
point joined with its network's security settings.

A scan that does not refresh within --timeout is reported and the current
lists are printed anyway.

Examples:
  roamwatch scan
  roamwatch scan Lab --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ssid := ""
			if len(args) == 1 {
				ssid = args[0]
			}
			return runScan(opts, ssid, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Adapter, "adapter", def.Adapter, "adapter to open (windows|sim)")
	cmd.Flags().StringVar(&opts.Script, "script", "", "script for the sim adapter")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", def.ScanTimeout, "how long to wait for the scan list refresh")

	return cmd
}

func (o *ScanOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := o.config()
	f := cmd.Flags()
	if f.Changed("adapter") {
		cfg.Adapter = o.Adapter
	}
	if f.Changed("script") {
		cfg.SimScript = o.Script
		if !f.Changed("adapter") {
			cfg.Adapter = config.AdapterSim
		}
	}
	if f.Changed("timeout") {
		cfg.ScanTimeout = o.Timeout
	}
	return cfg, cfg.Validate()
}

func runScan(opts *ScanOptions, ssid string, cmd *cobra.Command) error {
	logger := opts.logger()
	if err := wlan.ValidateSSID(ssid); err != nil {
		return WrapExitError(ExitCommandError, "invalid ssid", err)
	}
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	adapter, err := openAdapter(cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open adapter", err)
	}
	defer adapter.Close()

	b := bus.New()
	defer b.Close()
	in := bus.NewIngress(cfg.IngressBuffer, logger.With("component", "ingress"))
	pumped := make(chan struct{})
	go func() {
		defer close(pumped)
		_ = in.Run(ctx, b)
	}()
	defer func() {
		cancel()
		<-pumped
	}()

	if err := adapter.Subscribe(in.HandleRaw); err != nil {
		return WrapExitError(ExitCommandError, "failed to subscribe to notifications", err)
	}

	scanner := wlan.NewScanner(adapter, b,
		wlan.WithScanTimeout(cfg.ScanTimeout),
		wlan.WithScanLogger(logger.With("component", "scan")),
	)
	res, err := scanner.Scan(ctx, ssid)
	if err != nil {
		return WrapExitError(ExitCommandError, "scan failed", err)
	}

	result := ScanOutput{SSID: ssid, Refreshed: res.Refreshed, Networks: res.Networks}
	if result.Networks == nil {
		result.Networks = []wlan.Network{}
	}
	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	return writeNetworks(cmd.OutOrStdout(), result)
}

func writeNetworks(w io.Writer, result ScanOutput) error {
	if !result.Refreshed {
		fmt.Fprintln(w, "Scan list did not refresh in time; showing the current lists.")
	}
	if len(result.Networks) == 0 {
		_, err := fmt.Fprintln(w, "No networks found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SSID\tBSSID\tRSSI\tQUALITY\tCHANNEL\tBAND\tSECURITY")
	for _, n := range result.Networks {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			n.SSID, n.BSSID, n.RSSI, n.LinkQuality, n.Channel, n.Band, n.Security)
	}
	return tw.Flush()
}
