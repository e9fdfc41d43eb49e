// Package hrconsolecli is the hrconsole command line: the web console, the
// terminal employee picker, and spreadsheet import/submit for every form.
package hrconsolecli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phillip-england/hrconsole/internal/apiclient"
	"github.com/phillip-england/hrconsole/internal/config"
	"github.com/phillip-england/hrconsole/internal/forms"
	"github.com/phillip-england/hrconsole/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	envFile string
}

// Execute runs the command line with os.Args. An interrupt cancels the
// running command and is not reported as an error.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err := newRootCmd().ExecuteContext(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "hrconsole",
		Short:         "HR console: employee lookup, form import and submission.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to .env file")

	root.AddCommand(
		newSetupCmd(opts),
		newServeCmd(opts),
		newFormsCmd(opts),
		newDirectoryCmd(opts),
		newPickCmd(opts),
		newTemplateCmd(opts),
		newImportCmd(opts),
		newSubmitCmd(opts),
	)
	return root
}

// app is what every command but setup needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	svc    *forms.Service
}

func bootstrap(cmd *cobra.Command, opts *options) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.Bootstrap(cmd.ErrOrStderr(), cmd.Name())
	if err != nil {
		return nil, err
	}
	registry, err := forms.LoadRegistry(cfg.FormsFile)
	if err != nil {
		return nil, err
	}
	svc := forms.NewService(apiclient.New(cfg.APIBaseURL), registry,
		forms.WithLogger(logger),
		forms.WithDirectoryTimeout(cfg.DirectoryTimeout),
		forms.WithConcurrency(cfg.SubmitConcurrency),
	)
	return &app{cfg: cfg, logger: logger, svc: svc}, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func addFormFlag(cmd *cobra.Command, entity *string) {
	cmd.Flags().StringVarP(entity, "form", "f", "", "form entity, e.g. onboarding or resignation")
	_ = cmd.MarkFlagRequired("form")
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
