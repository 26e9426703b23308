package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/cmd/lumen/internal/build"
	"github.com/recera/lumen/cmd/lumen/internal/ui"
	"github.com/recera/lumen/internal/cache"
)

func newGenCommand() *cobra.Command {
	var (
		watch     bool
		directory string
		pkg       string
		preserve  bool
		noCache   bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "gen [files...]",
		Short: "Generate Go render programs from template files",
		Long: `Compile template files (*.lumen.html) into Go source (*.lumen.go) written
next to each template.

If no files are specified, every template under the configured templates
directory (or --dir) is compiled.

Examples:
  lumen gen                          # Compile all templates
  lumen gen views/card.lumen.html    # Compile a specific file
  lumen gen --dir ./views --watch    # Watch and recompile on changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}

			opts := build.Options{
				Package:             proj.cfg.Output.Package,
				PreserveWhitespaces: proj.cfg.Compiler.PreserveWhitespaces,
				RuntimeImport:       proj.cfg.Output.RuntimeImport,
				ExprImport:          proj.cfg.Output.ExprImport,
				Extension:           proj.cfg.Compiler.Extension,
			}
			if cmd.Flags().Changed("package") {
				opts.Package = pkg
			}
			if cmd.Flags().Changed("preserve-whitespace") {
				opts.PreserveWhitespaces = preserve
			}

			if !noCache && !proj.cfg.Cache.Disabled {
				cacheCfg := cache.DefaultConfig()
				if proj.cfg.Cache.Dir != "" {
					cacheCfg.Dir = proj.cfg.Cache.Dir
				}
				c, err := cache.New(cacheCfg)
				if err != nil {
					warnf("Failed to initialize build cache: %v", err)
				} else {
					opts.Cache = c
					defer c.Flush()
				}
			}

			b := build.New(opts)

			if directory == "" {
				directory = filepath.Join(proj.root, proj.cfg.Compiler.TemplatesDir)
			}

			files := args
			if len(files) == 0 {
				if files, err = b.Templates(directory); err != nil {
					return fmt.Errorf("failed to walk directory %s: %w", directory, err)
				}
			}

			failed := compileAll(b, files, verbose)
			if !watch {
				if failed > 0 {
					return fmt.Errorf("%d of %d templates failed", failed, len(files))
				}
				return nil
			}

			return watchAndCompile(b, directory, args, verbose)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Watch for file changes and recompile")
	cmd.Flags().StringVarP(&directory, "dir", "d", "", "Directory to search for templates")
	cmd.Flags().StringVarP(&pkg, "package", "p", "", "Package name of generated files")
	cmd.Flags().BoolVar(&preserve, "preserve-whitespace", false, "Keep whitespace-only text between elements")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Always recompile, bypassing the build cache")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", true, "Verbose output")

	return cmd
}

// compileAll compiles files, reporting each result, and returns the number
// of failures
func compileAll(b *build.Builder, files []string, verbose bool) int {
	start := time.Now()
	compiled, cached, failed := 0, 0, 0

	for _, file := range files {
		res, err := b.ProcessFile(file)
		if err != nil {
			fmt.Fprint(os.Stderr, ui.RenderError(err))
			failed++
			continue
		}
		compiled++
		if res.Cached {
			cached++
		}
		if verbose {
			note := res.Stats.String()
			if res.Cached {
				note = "cached"
			}
			fmt.Printf("✅ Generated %s (%s)\n", res.Output, note)
		}
	}

	switch {
	case len(files) == 0:
		fmt.Println("ℹ️  No templates found")
	case verbose:
		fmt.Printf("\n✨ Compiled %d templates (%d cached, %d failed) in %v\n", compiled, cached, failed, time.Since(start))
	}
	return failed
}

func watchAndCompile(b *build.Builder, directory string, files []string, verbose bool) error {
	explicit := make(map[string]bool)
	for _, f := range files {
		explicit[filepath.Clean(f)] = true
	}

	w, err := newWatcher(func(path string) bool {
		if len(explicit) > 0 {
			return explicit[filepath.Clean(path)]
		}
		return b.IsTemplate(path)
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]bool{}
	if len(files) == 0 {
		if err := w.addTree(directory); err != nil {
			return fmt.Errorf("failed to watch %s: %w", directory, err)
		}
	} else {
		for _, f := range files {
			dir := filepath.Dir(f)
			if dirs[dir] {
				continue
			}
			dirs[dir] = true
			if err := w.add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("\n👀 Watching for changes... (Press Ctrl+C to stop)")
	w.run(ctx, func(paths []string) {
		var existing []string
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				existing = append(existing, p)
			}
		}
		if len(existing) > 0 {
			log.Printf("🔄 %d template(s) changed", len(existing))
			compileAll(b, existing, verbose)
		}
	})
	return nil
}
