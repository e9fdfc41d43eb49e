package hrconsolecli

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/ingest"
	"github.com/spf13/cobra"
)

func newTemplateCmd(opts *options) *cobra.Command {
	var (
		entity string
		output string
	)
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the blank import spreadsheet for a form.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			def, err := a.svc.Definition(entity)
			if err != nil {
				return err
			}
			data, err := ingest.Template(def.Schema)
			if err != nil {
				return err
			}
			if output == "" {
				output = ingest.TemplateName(def.Schema)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	addFormFlag(cmd, &entity)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default <form>-template.xlsx)")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Read a spreadsheet into form records and report invalid rows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			def, report, err := importFile(a, entity, args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if n := len(report.Invalid); n > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d of %d rows need fixing before submit\n", def.Entity, n, len(report.Records()))
			}
			return nil
		},
	}
	addFormFlag(cmd, &entity)
	return cmd
}

func newSubmitCmd(opts *options) *cobra.Command {
	var entity string
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Import a spreadsheet and submit every valid row to the backend.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			def, report, err := importFile(a, entity, args[0])
			if err != nil {
				return err
			}
			summary := a.svc.SubmitBatch(commandContext(cmd), def, report.BatchID, report.Records())
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if rejected := summary.Invalid + summary.Failed; rejected > 0 {
				return fmt.Errorf("%d of %d rows were not submitted", rejected, len(summary.Outcomes))
			}
			return nil
		},
	}
	addFormFlag(cmd, &entity)
	return cmd
}

func importFile(a *app, entity, path string) (forms.Definition, forms.ImportReport, error) {
	def, err := a.svc.Definition(entity)
	if err != nil {
		return forms.Definition{}, forms.ImportReport{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return forms.Definition{}, forms.ImportReport{}, fmt.Errorf("read %s: %w", path, err)
	}
	upload := ingest.Upload{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}
	report, err := a.svc.Import(def, upload)
	if err != nil {
		return forms.Definition{}, forms.ImportReport{}, fmt.Errorf("import %s: %w", path, err)
	}
	return def, report, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
