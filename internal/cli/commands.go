package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quote-sync-service/internal/app"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
)

func newShowCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a random quote under the active category filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			intent, req := app.IntentShowNext, app.Request{}
			if cmd.Flags().Changed("category") {
				intent, req = app.IntentFilterChanged, app.Request{Category: category}
			}

			result, err := opts.dispatch(cmd, intent, req)
			if err != nil {
				return err
			}

			show := result.(app.ShowResult)

			return newPrinter(opts, cmd.OutOrStdout()).emit(show, func(w io.Writer) {
				if !show.Available {
					fmt.Fprintln(w, show.Message)
					return
				}

				fmt.Fprintf(w, "%q (%s)\n", show.Quote.Text, show.Quote.Category)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", `set the category filter first ("all" clears it)`)

	return cmd
}

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every stored quote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.dispatch(cmd, app.IntentList, app.Request{})
			if err != nil {
				return err
			}

			quotes := result.([]domain.Quote)

			return newPrinter(opts, cmd.OutOrStdout()).emit(quotes, func(w io.Writer) {
				for i, q := range quotes {
					fmt.Fprintf(w, "%3d  %-16s %s\n", i, q.Category, q.Text)
				}
			})
		},
	}
}

func newAddCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.dispatch(cmd, app.IntentAddQuote, app.Request{Text: args[0], Category: category})
			if err != nil {
				return err
			}

			added := result.(app.AddResult)

			return newPrinter(opts, cmd.OutOrStdout()).emit(added, func(w io.Writer) {
				if !added.Added {
					fmt.Fprintln(w, "nothing added: text and category must not be blank")
					return
				}

				fmt.Fprintf(w, "added %q to %s\n", added.Quote.Text, added.Quote.Category)
			})
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category of the new quote")

	return cmd
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: `Import a JSON array of quotes ("-" reads stdin)`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			result, err := opts.dispatch(cmd, app.IntentImport, app.Request{Payload: payload})
			if err != nil {
				return err
			}

			imported := result.(app.ImportResult)

			return newPrinter(opts, cmd.OutOrStdout()).emit(imported, func(w io.Writer) {
				fmt.Fprintf(w, "imported %d, skipped %d\n", imported.Imported, imported.Skipped)
			})
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}

	return data, nil
}

func newExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the store as indented JSON to file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.dispatch(cmd, app.IntentExport, app.Request{})
			if err != nil {
				return err
			}

			export := result.(app.ExportResult)

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(append(export.Data, '\n'))
				return err
			}

			if err := os.WriteFile(args[0], export.Data, 0o600); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}

			return newPrinter(opts, cmd.OutOrStdout()).emit(map[string]string{"file": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "exported to %s\n", args[0])
			})
		},
	}
}

// syncOutput is the json form of the sync command.
type syncOutput struct {
	Report    app.SyncReport    `json:"report"`
	Conflicts []domain.Conflict `json:"conflicts,omitempty"`
	Resolved  []domain.Quote    `json:"resolved,omitempty"`
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	var policy, resolve string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the server snapshot and merge it into the store",
		Long: `Fetch the server snapshot and merge it into the store.

With --policy manual nothing is removed and conflicts are listed. Conflicts
only live for the duration of the command, so --resolve applies one
resolution to all of them before it exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resolve != "" {
				if _, err := domain.ParseResolution(resolve); err != nil {
					return err
				}
			}

			var out syncOutput

			err := opts.withDispatcher(cmd, func(ctx context.Context, d *app.Dispatcher) error {
				return runSync(ctx, d, policy, resolve, &out)
			})
			if err != nil {
				return err
			}

			if err := newPrinter(opts, cmd.OutOrStdout()).emit(out, func(w io.Writer) { printSync(w, out) }); err != nil {
				return err
			}

			if out.Report.Status == app.SyncStatusFailed {
				return fmt.Errorf("sync failed: %s", out.Report.Error)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "merge policy (server-wins|manual), defaults to the configured one")
	cmd.Flags().StringVar(&resolve, "resolve", "", "resolve every conflict with keep-local or keep-server")

	return cmd
}

func runSync(ctx context.Context, d *app.Dispatcher, policy, resolve string, out *syncOutput) error {
	result, err := d.Dispatch(ctx, app.IntentSyncNow, app.Request{Session: Session, Policy: policy})
	if err != nil {
		return err
	}

	out.Report = result.(app.SyncReport)
	if out.Report.Status != app.SyncStatusSuccess {
		return nil
	}

	conflicts, err := d.Dispatch(ctx, app.IntentConflicts, app.Request{Session: Session})
	if err != nil {
		return err
	}

	out.Conflicts = conflicts.([]domain.Conflict)
	if resolve == "" {
		return nil
	}

	var errs []error

	for i := range out.Conflicts {
		chosen, err := d.Dispatch(ctx, app.IntentResolveConflict, app.Request{
			Session:    Session,
			Index:      i,
			Resolution: resolve,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}

		out.Resolved = append(out.Resolved, chosen.(domain.Quote))
	}

	return errors.Join(errs...)
}

func printSync(w io.Writer, out syncOutput) {
	r := out.Report
	if r.Status == app.SyncStatusFailed {
		fmt.Fprintf(w, "sync failed during %s: %s\n", r.Step, r.Error)
		return
	}

	fmt.Fprintf(w, "sync %s (%s): %d conflicts, %d removed, %d added\n",
		r.Status, r.Policy, r.ConflictsCount, r.RemovedCount, r.AddedCount)

	for i, c := range out.Conflicts {
		fmt.Fprintf(w, "  [%d] local %q (%s) / server %q (%s)\n",
			i, c.Local.Text, c.Local.Category, c.Server.Text, c.Server.Category)
	}

	if len(out.Resolved) > 0 {
		fmt.Fprintf(w, "resolved %d conflicts\n", len(out.Resolved))
	}

	if r.PushError != "" {
		fmt.Fprintf(w, "push failed: %s\n", r.PushError)
	}
}

func newResetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default quotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.dispatch(cmd, app.IntentReset, app.Request{})
			if err != nil {
				return err
			}

			quotes := result.([]domain.Quote)

			return newPrinter(opts, cmd.OutOrStdout()).emit(quotes, func(w io.Writer) {
				fmt.Fprintf(w, "restored %d default quotes\n", len(quotes))
			})
		},
	}
}

func newCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category index; the active filter is starred",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := opts.dispatch(cmd, app.IntentCategories, app.Request{})
			if err != nil {
				return err
			}

			view := result.(app.CategoryView)

			return newPrinter(opts, cmd.OutOrStdout()).emit(view, func(w io.Writer) {
				for _, c := range view.Categories {
					marker := " "
					if c == view.Selected {
						marker = "*"
					}

					fmt.Fprintf(w, "%s %s\n", marker, c)
				}
			})
		},
	}
}
