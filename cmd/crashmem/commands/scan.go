package commands

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"crashmem/layout"
	"crashmem/printer"
	"crashmem/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan pass and report every candidate with its verdict",
	Long: `Attach once, run a single signature pass, and print every raw candidate
address together with its validation verdict. Unlike the other commands
this does not retry: a miss is reported, not waited out.

Examples:
  crashmem scan
  crashmem scan --fast-scan=false`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc, err := newOpener().OpenByName(cfg.ProcessName)
	if err != nil {
		return printer.Error(
			"process not found",
			"No running process named "+cfg.ProcessName+".",
			[]string{"Start the game first, or pass --process"},
		)
	}
	defer proc.Close()

	s := scan.New(layout.Default(),
		scan.WithFastScanStart(cfg.FastScanStart),
		scan.WithChunkSize(cfg.ChunkSize),
	)

	candidates, err := s.Candidates(ctx, proc, cfg.FastScan)
	if errors.Is(err, scan.ErrNoCandidate) || len(candidates) == 0 && err == nil {
		return printer.Error(
			"character data not found",
			"The signature matched nothing in the scanned regions.",
			[]string{
				"Make sure a save is loaded in the game",
				"Try --fast-scan=false to search the whole address space",
			},
		)
	}
	if err != nil {
		return err
	}

	accepted := 0
	for _, c := range candidates {
		if verr := s.Validate(proc, c); verr != nil {
			printer.Warning("%s rejected: %v\n", c.ToString(), verr)
			continue
		}
		printer.Success("%s validated\n", c.ToString())
		accepted++
	}

	if accepted == 0 {
		return printer.Error(
			"character data not found",
			"Every signature match failed field validation.",
			[]string{"The game build may use a revised slot layout"},
		)
	}

	printer.Info("%d of %d candidates validated; lowest address wins.\n", accepted, len(candidates))
	return nil
}
