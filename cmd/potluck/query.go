package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// ErrNoMatch is returned when a query path selects nothing.
var ErrNoMatch = errors.New("no match")

func newQueryCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "query <snapshot> <path>",
		Short: "Query a snapshot with a GJSON path",
		Long: `Query reads a JSON or YAML snapshot ("-" reads JSON from stdin) and
prints the value selected by a GJSON path, for example:

  potluck query recipe.json 'annotations.#(type=="Ingredient")#.data.ingredient'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			// YAML snapshots are re-encoded so every input is queried as JSON.
			data, err := snap.Encode("json")
			if err != nil {
				return err
			}

			res := gjson.GetBytes(data, args[1])
			if !res.Exists() {
				return fmt.Errorf("%w: %s", ErrNoMatch, args[1])
			}
			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the raw JSON of the match")
	return cmd
}
