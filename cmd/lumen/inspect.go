package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/cmd/lumen/internal/ui"
	"github.com/recera/lumen/pkg/dom"
	"github.com/recera/lumen/pkg/render/gogen"
	"github.com/recera/lumen/pkg/runtime"
	"github.com/recera/lumen/pkg/template"
)

func newInspectCommand() *cobra.Command {
	var (
		dataPath string
		plain    bool
		preserve bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <template>",
		Short: "Browse the AST, render plan, generated Go and HTML of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			var flag *bool
			if cmd.Flags().Changed("preserve-whitespace") {
				flag = &preserve
			}

			ins, err := inspectTemplate(args[0], proj, proj.templateConfig(flag), dataPath)
			if err != nil {
				return err
			}

			if plain {
				fmt.Fprint(cmd.OutOrStdout(), ins.Plain())
				return nil
			}
			return ui.Run(ins)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "YAML or JSON data context for the HTML view")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print every view instead of starting the TUI")
	cmd.Flags().BoolVar(&preserve, "preserve-whitespace", false, "Keep whitespace-only text between elements")

	return cmd
}

func inspectTemplate(path string, proj *project, cfg template.Config, dataPath string) (ui.Inspection, error) {
	c, err := compileFile(path, cfg)
	if err != nil {
		return ui.Inspection{}, err
	}

	ins := ui.Inspection{
		Path:  path,
		Stats: c.program.Stats(),
		AST:   template.Dump(c.root),
		Plan:  c.program.Plan().Dump(),
	}

	code, err := gogen.Generate(c.root, gogen.Options{
		Package:       proj.cfg.Output.Package,
		Name:          gogen.Identifier(path),
		Source:        path,
		RuntimeImport: proj.cfg.Output.RuntimeImport,
		ExprImport:    proj.cfg.Output.ExprImport,
	})
	if err != nil {
		ins.Go = err.Error()
	} else {
		ins.Go = string(code)
	}

	if dataPath != "" {
		data, err := loadData(dataPath)
		if err != nil {
			return ins, err
		}
		doc := dom.New()
		if err := runtime.Mount(c.program.New(data, doc), doc.Root()); err != nil {
			ins.HTML = "render failed: " + err.Error()
		} else {
			ins.HTML = doc.HTML()
		}
	}
	return ins, nil
}
