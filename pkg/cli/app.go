// Package cli is the defectlens command tree.
package cli

import (
	"context"
	"defectlens/pkg/acquire"
	"defectlens/pkg/artifact"
	"defectlens/pkg/config"
	"defectlens/pkg/display"
	"defectlens/pkg/picker"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// App carries what every command needs. Zero fields are filled by Execute.
type App struct {
	Disp   display.Display
	Theme  *Theme
	In     io.Reader
	Out    io.Writer
	Getenv func(string) string
	// IsTTY reports whether the picker may take over the terminal.
	IsTTY func() bool
	// Pick runs the interactive batch list. It owns the terminal until it
	// returns.
	Pick func(ctx context.Context, o *acquire.Orchestrator, b *acquire.Batch, in io.Reader, out io.Writer) (*artifact.Image, error)

	cfgPath string
	verbose bool
}

func isTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func (a *App) withDefaults() {
	if a.Disp == nil {
		a.Disp = display.NewConsole()
	}
	if a.Theme == nil {
		a.Theme = DefaultTheme()
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Getenv == nil {
		a.Getenv = os.Getenv
	}
	if a.IsTTY == nil {
		a.IsTTY = isTTY
	}
	if a.Pick == nil {
		a.Pick = picker.Run
	}
}

// Execute runs the command line args.
func (a *App) Execute(ctx context.Context, args []string) error {
	a.withDefaults()
	root := a.NewRootCommand()
	root.SetArgs(args)
	root.SetIn(a.In)
	root.SetOut(a.Out)
	return root.ExecuteContext(ctx)
}

func (a *App) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "defectlens",
		Short: "Acquire product images and inspect them for defects",
		Long: `defectlens takes an image from a local file, a link or a list of links,
normalizes cloud share links (Google Drive, Dropbox, OneDrive/SharePoint)
into direct downloads, and runs defect detection on the acquired image.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.Disp.SetVerbose(a.verbose)
			level := zerolog.WarnLevel
			if a.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.Ctx(cmd.Context()).Level(level)
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Path to config.yaml")

	root.AddCommand(a.newAnalyzeCommand())
	root.AddCommand(a.newNormalizeCommand())
	root.AddCommand(a.newHistoryCommand())
	root.AddCommand(a.newVersionCommand())
	return root
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.Out, config.GetBuildInfo())
			return nil
		},
	}
}

func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(a.Getenv)
	return cfg, nil
}

// PrintError writes err for the user, with remediation advice when the
// error carries any.
func PrintError(w io.Writer, err error) {
	var ue *acquire.UserError
	if errors.As(err, &ue) {
		fmt.Fprintf(w, "Error: %s\n", ue.Full())
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
