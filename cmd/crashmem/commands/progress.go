package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/printer"
)

var progressInsane bool

var progressCmd = &cobra.Command{
	Use:   "progress SLOT HIGHEST_LEVEL",
	Short: "Set a character's campaign progress up to a level index",
	Long: `Unlock campaign levels 0 through HIGHEST_LEVEL for one character slot,
composing the cascading bitmask bytes the game stores progress in.
Pass -1 to clear all progress for the difficulty.

Examples:
  crashmem progress 0 10
  crashmem progress 0 23 --insane
  crashmem progress 0 -1`,
	Args: cobra.ExactArgs(2),
	RunE: runProgress,
}

func init() {
	progressCmd.Flags().BoolVar(&progressInsane, "insane", false, "Set insane-mode progress instead of normal")
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[0], err)
	}

	highest, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid level %q: %w", args[1], err)
	}

	return withReady(cmd, func(ed *editor.Editor) error {
		if err := ed.WriteProgress(slot, progressInsane, highest); err != nil {
			return err
		}

		difficulty := "normal"
		if progressInsane {
			difficulty = "insane"
		}
		if highest < 0 {
			printer.Success("Cleared %s progress for slot %d\n", difficulty, slot)
		} else {
			printer.Success("Unlocked %s levels 0..%d for slot %d\n", difficulty, highest, slot)
		}
		return nil
	})
}
