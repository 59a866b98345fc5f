package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/printer"
	"crashmem/scan"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor the attach/scan lifecycle until interrupted",
	Long: `Run the orchestrator for as long as the terminal stays open, printing
every state transition: attaching, scanning, ready, stale. The machine
re-attaches on its own when the game restarts.

Examples:
  # Start before or after the game; attach order does not matter
  crashmem watch

  # Search the whole address space instead of the fast-scan window
  crashmem watch --fast-scan=false`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ed := editor.New(cfg, newOpener())
	defer ed.Close()

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
		case editor.StateValidating:
			printer.Step("Validating candidates...\n")
		case editor.StateReady:
			printer.Success("Character data located (session %.8s)\n", ev.Session)
		case editor.StateStale:
			printer.Warning("Process lost: %v\n", ev.Err)
		}
	})

	if err := ed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	printer.Println()
	printer.Info("Stopped.\n")
	return nil
}
