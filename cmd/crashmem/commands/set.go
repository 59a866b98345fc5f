package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/printer"
)

var setCmd = &cobra.Command{
	Use:   "set SLOT FIELD VALUE",
	Short: "Write one character field in process memory",
	Long: `Write a value into one field of one character slot. Values outside the
field's documented range are rejected before any memory is touched.

The game revalidates some state on its own: licensing-gated unlocks and
stats past the documented caps can be reverted by the process itself.

Values accept decimal or 0x-prefixed hex.

Examples:
  crashmem set 0 Level 50
  crashmem set 0 Unlocked 0x80`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[0], err)
	}

	value, err := strconv.ParseUint(args[2], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[2], err)
	}

	return withReady(cmd, func(ed *editor.Editor) error {
		if err := ed.WriteField(slot, args[1], value); err != nil {
			if errors.Is(err, editor.ErrFieldOutOfRange) {
				return printer.Error(
					"value out of range",
					err.Error(),
					nil,
				)
			}
			if errors.Is(err, editor.ErrStaleHandle) {
				return printer.Error(
					"write failed",
					"The process exited or its memory layout changed.",
					[]string{"Re-run the command to re-scan"},
				)
			}
			return err
		}

		printer.Success("%s of slot %d set to %d\n", args[1], slot, value)
		return nil
	})
}
