package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ahrav/fringeproc/internal/app/workflow"
	"github.com/ahrav/fringeproc/internal/config"
	"github.com/ahrav/fringeproc/internal/config/fileloader"
)

var (
	settingsPath string
	catalogPath  string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "fringeproc",
		Short:        "Fringe pattern processing with state-driven action enablement",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "Path to a settings file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Path to an action catalog; overrides catalog_path from settings")

	rootCmd.AddCommand(newRunCmd(), newActionsCmd())
	return rootCmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run STEP...",
		Short: "Run a script of UI steps and print the menu after each one",
		Long: `The run command replays user interaction against the enablement engine.

Steps:
  open=PATH        load an image file
  mask=PATH        apply a mask image to the loaded data
  save=PATH        write the loaded data
  unwrap           run phase unwrapping
  demodulate       run phase demodulation
  cursor=X,Y       show the value under the cursor
  cancel=KIND      cancel the running open, open_mask, save or processing
  close            close the file
  quit             quit

A trailing '&' starts a step without waiting for its background work.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(args)
			if err != nil {
				return err
			}

			settings, err := config.LoadSettings(settingsPath)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), settings, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.shutdown(context.WithoutCancel(cmd.Context()))

			return a.run(cmd.Context(), steps)
		},
	}
}

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Print the action catalog and the states enabling each action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			catalog, err := catalogLoader(settings).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), catalog)
		},
	}
}

func catalogLoader(s *config.Settings) config.Loader {
	path := s.CatalogPath
	if catalogPath != "" {
		path = catalogPath
	}
	if path == "" {
		return config.DefaultLoader{}
	}
	return fileloader.NewFileLoader(path)
}

func printCatalog(w io.Writer, c *config.Catalog) error {
	for _, spec := range c.Actions {
		constraint, err := spec.Constraint()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%-20s %s\n", spec.Name, constraint); err != nil {
			return err
		}
	}
	return nil
}

// run executes steps in order on the UI loop, printing the state and the menu
// after each one.
func (a *app) run(ctx context.Context, steps []step) error {
	loopErr := make(chan error, 1)
	go func() { loopErr <- a.loop.Run(ctx) }()

	for _, s := range steps {
		var stepErr error
		err := a.loop.Call(ctx, func(ctx context.Context) { stepErr = a.apply(ctx, s) })
		if s.kind == stepQuit {
			break
		}
		if err != nil {
			return fmt.Errorf("step %s: %w", s, err)
		}

		if !s.async {
			a.workflow.Wait()
		}
		// Completions posted by finished background work run before this.
		if err := a.loop.Call(ctx, func(context.Context) { a.printMenu(s, stepErr) }); err != nil {
			return fmt.Errorf("step %s: %w", s, err)
		}
	}

	a.loop.Stop()
	a.workflow.Wait()
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *app) printMenu(s step, stepErr error) {
	fmt.Fprintf(a.out, "> %s\n", s)
	if stepErr != nil {
		fmt.Fprintf(a.out, "error: %v\n", stepErr)
	}
	fmt.Fprintf(a.out, "state: %s\n%s", a.engine.State(), a.menu)
}

func (a *app) apply(ctx context.Context, s step) error {
	switch s.kind {
	case stepCursor:
		if a.workflow.Image() == nil {
			return workflow.ErrNoImage
		}
		a.status.ShowMessage(ctx, a.workflow.CursorText(s.x, s.y))
		return nil
	case stepCancel:
		return a.workflow.Cancel(ctx, s.cancel)
	}

	action, ok := stepActions[s.kind]
	if !ok {
		return fmt.Errorf("unhandled step %s", s)
	}
	return a.actions.Trigger(ctx, action, s.arg)
}
