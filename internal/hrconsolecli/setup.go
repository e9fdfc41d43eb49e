package hrconsolecli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/phillip-england/hrconsole/internal/config"
	"github.com/phillip-england/hrconsole/internal/envutil"
	"github.com/spf13/cobra"
)

func newSetupCmd(opts *options) *cobra.Command {
	var (
		apiBaseURL string
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a .env file with the console defaults.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkBaseURL(apiBaseURL); err != nil {
				return err
			}
			if err := envutil.WriteDotEnv(opts.envFile, config.DotEnvDefaults(apiBaseURL), force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.envFile)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiBaseURL, "api-base-url", "", "HR backend base URL (default http://localhost:8080)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing env file")
	return cmd
}

func checkBaseURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("--api-base-url must be an http(s) URL, got %q", raw)
	}
	return nil
}
