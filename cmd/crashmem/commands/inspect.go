package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/hexdump"
	"crashmem/layout"
	"crashmem/printer"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect SLOT",
	Short: "Hexdump the raw bytes of one character slot",
	Long: `Read one character slot and print its raw bytes as a hexdump, addressed
at the slot's live location in the target process. Useful when revising
the field layout against a new game build.

Examples:
  crashmem inspect 0`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[0], err)
	}

	return withReady(cmd, func(ed *editor.Editor) error {
		addr, data, err := ed.ReadSlotBytes(slot)
		if err != nil {
			return err
		}

		printer.Info("%s (%s)\n", layout.CharacterName(slot), addr.ToString())
		printer.Printf("%s", hexdump.DumpWithOffset(data, uint64(addr)))
		return nil
	})
}
