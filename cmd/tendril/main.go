package main

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	tderrors "github.com/vango-dev/tendril/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┬┐┌─┐┌┐┌┌┬┐┬─┐┬┬
   │ ├┤ │││ ││├┬┘││
   ┴ └─┘┘└┘─┴┘┴└─┴┴─┘
`

// skipConfig marks commands that run without loading configuration.
const skipConfig = "skip-config"

func main() {
	if err := execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		tderrors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the CLI with args and releases everything it opened.
func execute(args []string, stdout, stderr io.Writer) error {
	rootCmd, a := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	defer a.close()
	return rootCmd.Execute()
}

func newRootCmd() (*cobra.Command, *app) {
	a := newApp()

	rootCmd := &cobra.Command{
		Use:   "tendril",
		Short: "Reactive HTML documents without a build step",
		Long: `Tendril wires reactive state into plain HTML through attribute directives.

The CLI mounts a document with the same engine browsers run, so you can
render it, drive it with events and serve it for live preview:

  • #let variables, optionally persisted to the URL, session or local store
  • :attr and ::prop bindings that follow the variables they read
  • @event handlers with once, delay, throttle and fetch modifiers
  • #include and fetch directives that splice remote markup
  • <template #component> custom elements with shadow roots`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			detectColor(cmd.ErrOrStderr(), a.noColor)
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return a.load(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./tendril.yaml when present)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("base-url", "", "base URL for relative fetches")
	flags.String("root", "", "directory serving relative fetches when no base URL is set")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored error output")
	a.bindFlag("log.level", flags.Lookup("log-level"))
	a.bindFlag("base_url", flags.Lookup("base-url"))
	a.bindFlag("root", flags.Lookup("root"))

	rootCmd.AddCommand(
		renderCmd(a),
		serveCmd(a),
		inspectCmd(),
		configCmd(a),
		versionCmd(),
	)
	return rootCmd, a
}

// detectColor turns colored errors off when w has no color profile.
func detectColor(w io.Writer, disabled bool) {
	if disabled || termenv.NewOutput(w).EnvColorProfile() == termenv.Ascii {
		tderrors.DisableColors()
		return
	}
	tderrors.EnableColors()
}

// printBanner prints the ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
