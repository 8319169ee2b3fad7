package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/dshills/potluck/internal/annotation"
	"github.com/dshills/potluck/internal/editor"
)

const demoRecipe = `Pancakes
Serves 2x
1 1/2 cups flour
2 tbsp sugar
1 cup milk
Whisk everything and rest for 10 minutes.
Cook each side 2 minutes.`

// demoMarks are the annotations placed on the demo recipe, in order.
var demoMarks = []struct {
	typ    string
	needle string
	data   annotation.Data
}{
	{annotation.TypeScaleFactor, "2x", nil},
	{annotation.TypeIngredient, "1 1/2 cups flour", nil},
	{annotation.TypeIngredient, "2 tbsp sugar", nil},
	{annotation.TypeIngredient, "1 cup milk", nil},
	{annotation.TypeStep, "Whisk everything and rest for 10 minutes.", nil},
	{annotation.TypeDuration, "10 minutes", nil},
	{annotation.TypeComment, "rest", annotation.Data{"text": "overnight works too"}},
	{annotation.TypeStep, "Cook each side 2 minutes.", nil},
	{annotation.TypeDuration, "2 minutes", nil},
}

// loadDemo fills ed with the demo recipe and its annotations.
func loadDemo(ed *editor.Editor) error {
	if err := ed.Restore(editor.Snapshot{Content: demoRecipe}); err != nil {
		return err
	}
	for _, m := range demoMarks {
		r, ok := find(ed.Content(), m.needle)
		if !ok {
			return fmt.Errorf("demo: %q not found", m.needle)
		}
		if _, err := ed.AddAnnotation(m.typ, r, m.data); err != nil {
			return fmt.Errorf("demo %s %q: %w", m.typ, m.needle, err)
		}
	}
	title, _ := find(ed.Content(), "Pancakes")
	return ed.ToggleFormat(annotation.FormatBold, title)
}

// find returns the rune range of the first occurrence of needle.
func find(content, needle string) (annotation.Range, bool) {
	i := strings.Index(content, needle)
	if i < 0 {
		return annotation.Range{}, false
	}
	start := utf8.RuneCountInString(content[:i])
	return annotation.Range{Start: start, End: start + utf8.RuneCountInString(needle)}, true
}

func newDemoCmd(e *env) *cobra.Command {
	var (
		format   string
		snapshot string
		opsPath  string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Annotate a sample recipe and print the result",
		Long: `Demo loads a sample recipe (or a snapshot), runs the configured plugins
over its annotations and prints every annotation with its fields and view.
Editing-surface operations in JSON can be applied first with --ops.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := e.openEditor(snapshot, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer ed.Close()

			if opsPath != "" {
				data, err := os.ReadFile(opsPath)
				if err != nil {
					return err
				}
				if err := ed.ApplyJSON(data); err != nil {
					e.log.Warn("some operations were dropped", "error", err)
				}
			}

			out := cmd.OutOrStdout()
			if format == "text" {
				return printEntries(out, ed)
			}
			data, err := ed.Snapshot().Encode(format)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().StringVarP(&snapshot, "snapshot", "s", "", "start from a snapshot file instead of the sample recipe")
	cmd.Flags().StringVar(&opsPath, "ops", "", "JSON file of editing operations to apply")
	return cmd
}

func printEntries(w io.Writer, ed *editor.Editor) error {
	fmt.Fprintln(w, ed.Content())
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tTYPE\tRANGE\tTEXT\tFIELDS\tVIEW")
	for _, en := range ed.Entries() {
		fields := make([]string, 0, len(en.Fields))
		for _, f := range en.Fields {
			if f.Name == "text" && f.Value == en.Text {
				continue
			}
			fields = append(fields, f.Name+"="+f.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%q\t%s\t%s\n",
			en.Info.Icon,
			en.Record.Type,
			en.Record.Range,
			en.Text,
			strings.Join(fields, " "),
			en.Presentation,
		)
	}
	return tw.Flush()
}
