package hrconsolecli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/phillip-england/hrconsole/internal/directory"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/ingest"
	"github.com/phillip-england/hrconsole/internal/picker"
	"github.com/phillip-england/hrconsole/internal/typeahead"
	"github.com/spf13/cobra"
)

func newFormsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the forms the console knows about.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, def := range a.svc.Registry().All() {
				fmt.Fprintf(out, "%-16s %-28s %s\n", def.Entity, def.Title, def.Endpoint)
			}
			return nil
		},
	}
}

func newDirectoryCmd(opts *options) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "directory [query]",
		Short: "Resolve the employee directory and search it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			resolver := a.svc.NewResolver()
			defer resolver.Close()

			state := resolver.Resolve(commandContext(cmd))
			switch state.Phase {
			case directory.Failed:
				return fmt.Errorf("employee directory unavailable: %s", state.Reason)
			case directory.Ready:
			default:
				// Canceled before it finished.
				return commandContext(cmd).Err()
			}

			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			suggestions := typeahead.FromState(state, limit).Suggest(query)
			if strings.TrimSpace(query) == "" {
				// No query lists the directory itself.
				suggestions = state.Identities
				if limit > 0 && len(suggestions) > limit {
					suggestions = suggestions[:limit]
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, map[string]any{
					"source":      state.Source,
					"count":       len(state.Identities),
					"suggestions": suggestions,
				})
			}
			if state.Source == directory.SourceSecondary {
				fmt.Fprintln(cmd.ErrOrStderr(), "names only: employee IDs are temporary and will not be saved")
			}
			for _, identity := range suggestions {
				fmt.Fprintf(out, "%-12s %s\n", identity.Identifier, identity.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum suggestions (0 for no limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newPickCmd(opts *options) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Pick an employee interactively and print the form's identity fields.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.InOrStdin() == os.Stdin && !stdinIsTerminal() {
				return errors.New("pick needs an interactive terminal")
			}
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			def, err := a.svc.Definition(entity)
			if err != nil {
				return err
			}
			resolver := a.svc.NewResolver()
			defer resolver.Close()

			ctx := commandContext(cmd)
			model := picker.New(ctx, def.Title, resolver, a.svc.NewCombobox(def, ingest.Record{}))
			program := tea.NewProgram(model,
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.ErrOrStderr()),
			)
			final, err := program.Run()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			result, ok := final.(picker.Model)
			if !ok || result.Canceled() || result.Binding().Empty() {
				return nil
			}

			binding := result.Binding()
			if directory.IsSyntheticIdentifier(binding.Identifier) {
				binding.Identifier = ""
			}
			return printJSON(cmd.OutOrStdout(), forms.ApplyBinding(def, ingest.Record{Entity: def.Entity}, binding))
		},
	}
	addFormFlag(cmd, &entity)
	return cmd
}
