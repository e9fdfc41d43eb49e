package config

import (
	"strings"
	"time"

	"github.com/phillip-england/hrconsole/internal/envutil"
)

const (
	defaultAPIBaseURL        = "http://localhost:8080"
	defaultConsoleAddr       = ":3000"
	defaultDirectoryTimeout  = 8 * time.Second
	defaultSubmitConcurrency = 4
)

type Config struct {
	APIBaseURL        string
	ConsoleAddr       string
	MetricsAddr       string
	FormsFile         string
	DirectoryTimeout  time.Duration
	SubmitConcurrency int
}

// Load reads envPath (when present) and then the process environment.
func Load(envPath string) (Config, error) {
	if strings.TrimSpace(envPath) != "" {
		if err := envutil.LoadDotEnv(envPath); err != nil {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	return Config{
		APIBaseURL:        strings.TrimRight(envutil.OrDefault("API_BASE_URL", defaultAPIBaseURL), "/"),
		ConsoleAddr:       envutil.OrDefault("CONSOLE_ADDR", defaultConsoleAddr),
		MetricsAddr:       envutil.OrDefault("METRICS_ADDR", ""),
		FormsFile:         envutil.OrDefault("FORMS_FILE", ""),
		DirectoryTimeout:  envutil.DurationOrDefault("DIRECTORY_TIMEOUT", defaultDirectoryTimeout),
		SubmitConcurrency: envutil.IntOrDefault("SUBMIT_CONCURRENCY", defaultSubmitConcurrency),
	}
}

// DotEnvDefaults is the file written by `hrconsole setup`.
func DotEnvDefaults(apiBaseURL string) map[string]string {
	if strings.TrimSpace(apiBaseURL) == "" {
		apiBaseURL = defaultAPIBaseURL
	}
	return map[string]string{
		"API_BASE_URL":       apiBaseURL,
		"CONSOLE_ADDR":       defaultConsoleAddr,
		"DIRECTORY_TIMEOUT":  defaultDirectoryTimeout.String(),
		"SUBMIT_CONCURRENCY": "4",
		"LOG_FORMAT":         "text",
		"LOG_LEVEL":          "info",
	}
}
