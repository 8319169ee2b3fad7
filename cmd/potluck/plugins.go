package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/potluck/internal/editor"
	"github.com/dshills/potluck/internal/plugins"
)

func newPluginsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List loaded plugins, annotation types and extension overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := editor.New(e.cfg, editor.WithLogger(e.log))
			if err != nil {
				return err
			}
			defer ed.Close()

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

			fmt.Fprintln(tw, "PLUGIN\tTYPES\tTRANSFORM\tEXTENDS")
			for _, p := range ed.Plugins() {
				types := "*"
				if len(p.Types) > 0 {
					types = strings.Join(p.Types, ", ")
				}
				extends := make([]string, 0, len(p.Extensions))
				for typ := range p.Extensions {
					extends = append(extends, typ)
				}
				slices.Sort(extends)
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", p.Name, types, p.Transform != nil, strings.Join(extends, ", "))
			}
			fmt.Fprintln(tw)

			fmt.Fprintln(tw, "\tTYPE\tCOLOR\tFIELDS")
			for _, ti := range plugins.Types() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ti.Icon, ti.Name, ti.Color.Hex(), strings.Join(ti.VisibleFields, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			conflicts := ed.Registry().Conflicts()
			if len(conflicts) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "overrides:")
			for _, c := range conflicts {
				fmt.Fprintf(out, "  %s\n", c)
			}
			return nil
		},
	}
}
