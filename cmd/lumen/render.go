package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/pkg/dom"
	"github.com/recera/lumen/pkg/runtime"
)

func newRenderCommand() *cobra.Command {
	var (
		dataPath   string
		updatePath string
		preserve   bool
	)

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template against a data context and print the HTML",
		Long: `Compile a template, create and insert it into an in-memory document using
the data context from --data, and print the resulting HTML.

With --update, the context is replaced by the second file and Update runs;
the new HTML is printed together with the DOM mutations it caused.

Examples:
  lumen render card.lumen.html --data card.yaml
  lumen render list.lumen.html --data before.json --update after.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			var flag *bool
			if cmd.Flags().Changed("preserve-whitespace") {
				flag = &preserve
			}

			c, err := compileFile(args[0], proj.templateConfig(flag))
			if err != nil {
				return err
			}

			data, err := loadData(dataPath)
			if err != nil {
				return err
			}
			scope := newLiveScope(data)

			doc := dom.New()
			in := c.program.New(scope, doc)
			if err := runtime.Mount(in, doc.Root()); err != nil {
				return fmt.Errorf("create failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, doc.HTML())

			if updatePath == "" {
				return nil
			}

			next, err := loadData(updatePath)
			if err != nil {
				return err
			}
			scope.Set(next)
			doc.Journal().Reset()
			if err := in.Update(); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, doc.HTML())
			fmt.Fprintf(out, "\n%d mutations%s\n", doc.Journal().Mutations(), formatCounts(doc.Journal().Counts()))
			fmt.Fprint(out, doc.Journal().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "YAML or JSON data context")
	cmd.Flags().StringVar(&updatePath, "update", "", "Second data context applied with Update")
	cmd.Flags().BoolVar(&preserve, "preserve-whitespace", false, "Keep whitespace-only text between elements")

	return cmd
}

func formatCounts(counts map[dom.Op]int) string {
	if len(counts) == 0 {
		return ""
	}
	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)

	s := " ("
	for i, op := range ops {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s %d", op, counts[dom.Op(op)])
	}
	return s + ")"
}
