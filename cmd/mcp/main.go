// Command mcp serves read-only report tools over the Model Context Protocol on stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"spill_report_service/internal/infra/bootstrap"
	"spill_report_service/internal/infra/config"
	"spill_report_service/internal/infra/logger"
	"spill_report_service/internal/infra/mcpserver"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	// stdout carries the protocol
	logger.Log.SetOutput(os.Stderr)
	mainLogger := logger.Component("mcp")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, logrus.NewEntry(logger.Get()))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize services")
	}
	defer rt.Close(context.Background())

	srv := mcpserver.NewServer(mcpserver.Deps{
		Reports:   rt.Reports,
		Dashboard: rt.Dashboard,
		Log:       mainLogger,
	})
	mainLogger.WithField("tools", srv.ListToolNames()).Info("MCP server ready")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		mainLogger.WithError(err).Error("MCP server stopped")
	}
}
