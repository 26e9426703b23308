package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/lumen/pkg/runtime"
)

var (
	version = "0.1.0-preview"
	commit  = "dev"
	date    = "unknown"

	debug bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lumen",
		Short: "Lumen - HTML template compiler",
		Long: `Lumen compiles HTML templates with if:, for: directives and {expression}
interpolation into render programs that create the DOM once and update
only the values that changed.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				runtime.SetDebugLog(func(args ...interface{}) {
					log.Println(args...)
				})
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Trace block creation and updates")

	rootCmd.AddCommand(newGenCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}
