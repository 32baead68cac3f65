// Command reportctl inspects and maintains spill reports from a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"spill_report_service/internal/infra/bootstrap"
	"spill_report_service/internal/infra/cli"
	"spill_report_service/internal/infra/config"
	"spill_report_service/internal/infra/logger"
)

func main() {
	open := func(ctx context.Context) (*bootstrap.Runtime, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		logger.Init(cfg)
		// keep table output clean unless debugging
		if cfg.LogLevel != "debug" {
			logger.Log.SetOutput(io.Discard)
		}
		return bootstrap.Build(ctx, cfg, logger.Component("reportctl"))
	}

	if err := cli.NewRootCommand(open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
