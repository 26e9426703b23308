package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/cmd/lumen/internal/build"
	"github.com/recera/lumen/cmd/lumen/internal/ui"
	"github.com/recera/lumen/pkg/template"
)

func newCheckCommand() *cobra.Command {
	var (
		showAST  bool
		preserve bool
	)

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Compile templates and report errors without writing files",
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			var flag *bool
			if cmd.Flags().Changed("preserve-whitespace") {
				flag = &preserve
			}
			cfg := proj.templateConfig(flag)

			files := args
			if len(files) == 0 {
				b := build.New(build.Options{Extension: proj.cfg.Compiler.Extension})
				dir := filepath.Join(proj.root, proj.cfg.Compiler.TemplatesDir)
				if files, err = b.Templates(dir); err != nil {
					return fmt.Errorf("failed to walk directory %s: %w", dir, err)
				}
			}

			failed := 0
			for _, file := range files {
				c, err := compileFile(file, cfg)
				if err != nil {
					fmt.Fprint(os.Stderr, ui.RenderError(err))
					failed++
					continue
				}
				fmt.Println(ui.RenderSuccess(fmt.Sprintf("%s  %s", file, c.program.Stats())))
				if showAST {
					fmt.Print(template.Dump(c.root))
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showAST, "ast", false, "Print the AST of each template")
	cmd.Flags().BoolVar(&preserve, "preserve-whitespace", false, "Keep whitespace-only text between elements")

	return cmd
}
