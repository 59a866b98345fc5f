package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/printer"
)

var getCmd = &cobra.Command{
	Use:   "get SLOT FIELD",
	Short: "Read one character field from process memory",
	Long: `Read the current value of one field of one character slot.

Field names are case-insensitive: Level, Experience, Strength, Defense,
Magic, Agility, Unlocked, Insane, Weapon, AnimalOrb, Relics, Skull,
NormalProgress0..2, InsaneProgress0..2.

Examples:
  crashmem get 0 Level
  crashmem get 3 experience`,
	Args: cobra.ExactArgs(2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	slot, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", args[0], err)
	}

	return withReady(cmd, func(ed *editor.Editor) error {
		v, err := ed.ReadField(slot, args[1])
		if err != nil {
			return err
		}
		printer.Printf("%d\n", v)
		return nil
	})
}
