package main

import (
	"log/slog"
	"os"

	"github.com/phillip-england/hrconsole/internal/hrconsolecli"
)

func main() {
	if err := hrconsolecli.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
