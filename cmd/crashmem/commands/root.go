package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"crashmem/config"
	"crashmem/editor"
	"crashmem/printer"
	"crashmem/scan"
)

var (
	flagConfig    string
	flagProcess   string
	flagFastScan  bool
	flagScanStart string
	flagTimeout   time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crashmem",
	Short: "Crashmem - live character-table editor for a running game process",
	Long: `Crashmem attaches to a running game process, locates the per-character
save table in its memory by signature scanning, and reads or writes
character fields in place.

The table moves on every launch; crashmem proves each candidate address
against the field-range invariants before trusting it, so edits never
land on a coincidental byte pattern.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// No subcommand: show help instead of silently succeeding
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	// Errors are printed colored by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file (defaults apply when omitted)")
	rootCmd.PersistentFlags().StringVar(&flagProcess, "process", "", "Target process name (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagFastScan, "fast-scan", true, "Restrict scanning to addresses at or above the scan start")
	rootCmd.PersistentFlags().StringVar(&flagScanStart, "scan-start", "", "Fast-scan start address, e.g. 0x07000000 (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "How long one-shot commands wait for character data")
}

// loadConfig builds the effective configuration: file (or defaults),
// then flag overrides
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	if cmd.Flags().Changed("process") {
		cfg.ProcessName = flagProcess
	}
	if cmd.Flags().Changed("fast-scan") {
		cfg.FastScan = flagFastScan
	}
	if cmd.Flags().Changed("scan-start") {
		start, err := strconv.ParseUint(flagScanStart, 0, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid --scan-start %q: %w", flagScanStart, err)
		}
		cfg.FastScanStart = start
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// withReady starts an editor, waits for it to reach Ready, runs fn, and
// tears the session down. One-shot commands share it.
func withReady(cmd *cobra.Command, fn func(ed *editor.Editor) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ed := editor.New(cfg, newOpener())
	defer ed.Close()

	ready := make(chan struct{}, 1)
	ed.OnStateChange(func(ev editor.StateEvent) {
		switch ev.To {
		case editor.StateAttaching:
			printer.Step("Waiting for %s...\n", cfg.ProcessName)
		case editor.StateScanning:
			if errors.Is(ev.Err, scan.ErrNoCandidate) {
				printer.Warning("Fast scan found nothing, running a full scan...\n")
			} else {
				printer.Step("Scanning process memory...\n")
			}
		case editor.StateReady:
			select {
			case ready <- struct{}{}:
			default:
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- ed.Run(ctx) }()
	defer func() {
		stop()
		ed.Close()
		<-done
	}()

	select {
	case <-ready:
		return fn(ed)
	case <-ctx.Done():
		return printer.Error("interrupted", "", nil)
	case <-time.After(flagTimeout):
		return printer.Error(
			"character data not found",
			fmt.Sprintf("No validated character table within %s.", flagTimeout),
			[]string{
				"Make sure the game is running and a save is loaded",
				"Try --fast-scan=false to search the whole address space",
			},
		)
	}
}
