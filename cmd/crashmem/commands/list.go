package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"crashmem/editor"
	"crashmem/layout"
	"crashmem/printer"
)

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the characters found in the attached process",
	Long: `Attach, locate the character table, and print one row per character
slot: index, name, unlock state and the core stats.

Locked slots are hidden unless --all is given.

Examples:
  crashmem list
  crashmem list --all`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include locked character slots")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withReady(cmd, func(ed *editor.Editor) error {
		views, err := ed.ListCharacters()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "IDX\tNAME\tUNLOCKED\tLEVEL\tXP\tSTR\tDEF\tMAG\tAGI")
		shown := 0
		for _, v := range views {
			if !v.Unlocked && !listAll {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%v\t%d\t%d\t%d\t%d\t%d\t%d\n",
				v.Index, v.Name, v.Unlocked,
				v.Fields[layout.FieldLevel],
				v.Fields[layout.FieldExperience],
				v.Fields[layout.FieldStrength],
				v.Fields[layout.FieldDefense],
				v.Fields[layout.FieldMagic],
				v.Fields[layout.FieldAgility],
			)
			shown++
		}

		if shown == 0 {
			printer.Info("No unlocked characters; try --all to include locked slots.\n")
		}
		return nil
	})
}
