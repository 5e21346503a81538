package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/palliser-group/agcensus-cli/internal/state"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Review and edit report items",
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report items and their current values",
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := state.Open(statePath())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVALUE\tUNIT\tDATE APPLIED\tQUALITY\tMETHOD\tCATEGORY\tINCLUDED")
		for _, name := range st.Names() {
			item, ok := st.Get(name)
			if !ok {
				continue
			}
			value := ""
			if item.Value != nil {
				value = strconv.FormatFloat(*item.Value, 'f', -1, 64)
			}
			unit := item.DisplayUnit
			if unit == "" {
				unit = item.UnitOfMeasure
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%v\n",
				name, value, unit, item.DateApplied, item.Quality, item.Method, item.Category, item.Included)
		}
		return w.Flush()
	},
}

var itemsSetCmd = &cobra.Command{
	Use:   "set <item> <value>",
	Short: "Record a hand-entered value for an item",
	Long: `Overwrite an item's value with a manually gathered figure. The previous
value is snapshotted to the item's history first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		name := args[0]
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "items set: parse value %q", args[1])
		}

		st, err := state.Open(statePath())
		if err != nil {
			return err
		}
		if _, ok := st.Get(name); !ok {
			return eris.Errorf("items set: unknown item %q", name)
		}
		if err := st.ApplyManual(name, value); err != nil {
			return err
		}

		fmt.Printf("Set %s = %s\n", name, args[1])
		return nil
	},
}

var itemsIncludeCmd = &cobra.Command{
	Use:   "include <item> <true|false>",
	Short: "Toggle whether an item participates in import and export",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		name := args[0]
		included, err := strconv.ParseBool(args[1])
		if err != nil {
			return eris.Wrapf(err, "items include: parse %q", args[1])
		}

		st, err := state.Open(statePath())
		if err != nil {
			return err
		}
		if _, ok := st.Get(name); !ok {
			return eris.Errorf("items include: unknown item %q", name)
		}
		if err := st.SetIncluded(name, included); err != nil {
			return err
		}

		fmt.Printf("Item %s included=%v\n", name, included)
		return nil
	},
}

func init() {
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsSetCmd)
	itemsCmd.AddCommand(itemsIncludeCmd)
	rootCmd.AddCommand(itemsCmd)
}
