package hrconsolecli

import (
	"github.com/phillip-england/hrconsole/internal/console"
	"github.com/phillip-england/hrconsole/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HR console HTTP server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ConsoleAddr
			}

			// Either server failing stops the other.
			group, ctx := errgroup.WithContext(commandContext(cmd))
			group.Go(func() error {
				return metrics.Serve(ctx, a.cfg.MetricsAddr, a.logger)
			})
			group.Go(func() error {
				return console.Run(ctx, console.DefaultConfig(addr), a.svc, a.logger)
			})
			return ignoreCanceled(group.Wait())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default CONSOLE_ADDR)")
	return cmd
}
