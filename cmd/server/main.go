package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/bootstrap"
	"spill_report_service/internal/infra/config"
	"spill_report_service/internal/infra/export"
	"spill_report_service/internal/infra/httpapi"
	"spill_report_service/internal/infra/logger"
	"spill_report_service/internal/infra/scheduler"
	"spill_report_service/internal/infra/telegram"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"store_driver":  cfg.StoreDriver,
		"sequence_mode": cfg.SequenceMode,
		"storage":       cfg.StorageProvider,
	}).Info("Configuration loaded")

	if err := cfg.ValidateHTTPAuth(); err != nil {
		mainLogger.WithError(err).Fatal("HTTP API authentication is not configured")
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := bootstrap.Build(ctx, cfg, logrus.NewEntry(logger.Get()))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize services")
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			mainLogger.WithError(err).Warn("Error while closing backends")
		}
	}()

	// Telegram bot and scheduled jobs are optional.
	var (
		bot            *telebot.Bot
		notifScheduler *scheduler.ReportScheduler
	)
	if cfg.TelegramToken != "" {
		botLogger := logger.Component("telegram")
		pref := telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				logCtx := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					logCtx = logCtx.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				logCtx.Error("Telebot error")
			},
		}
		bot, err = telebot.NewBot(pref)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}

		notifications := app.NewNotificationService(
			rt.Reports,
			rt.Dashboard,
			telegram.NewMessenger(bot),
			logger.Component("notifications"),
			cfg.ManagerTelegramID,
			cfg.StaleAfter,
		)
		notifications.AttachDigestExport(func(reports []report.Report, at time.Time) (string, []byte, error) {
			return export.File(export.FormatXLSX, reports, at)
		})
		rt.Reports.AddObserver(notifications)

		deps := telegram.BotDeps{
			Reports:           rt.Reports,
			Dashboard:         rt.Dashboard,
			Directory:         rt.Directory,
			Notifications:     notifications,
			AdminTelegramID:   cfg.AdminTelegramID,
			ManagerTelegramID: cfg.ManagerTelegramID,
		}
		telegram.RegisterBotCommands(ctx, bot, deps, botLogger)
		telegram.RegisterStatusButtons(ctx, bot, deps, botLogger)
		mainLogger.Info("Telegram handlers registered")

		notifScheduler = scheduler.NewReportScheduler(
			notifications,
			logger.Component("scheduler"),
			cfg.CronSpecDigest,
			cfg.CronSpecStaleCheck,
		)
		if err := notifScheduler.Start(); err != nil {
			mainLogger.WithError(err).Fatal("Could not start scheduler")
		}

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN not set, notifications disabled")
	}

	router := httpapi.NewRouter(httpapi.Services{
		Reports:     rt.Reports,
		Dashboard:   rt.Dashboard,
		Attachments: rt.Attachments,
		Directory:   rt.Directory,
	}, httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		UploadDir:      rt.LocalUploadDir,
		Auth: httpapi.AuthOptions{
			JWTSecret: []byte(cfg.AuthJWTSecret),
			APIToken:  cfg.APIToken,
			Disabled:  cfg.AuthDisabled,
		},
		Metrics: rt.Metrics,
		Log:            logger.Component("http"),
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	mainLogger.Info("Shutting down application...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if notifScheduler != nil {
		notifScheduler.Stop()
	}
	if bot != nil {
		bot.Stop()
	}
	cancel()
	mainLogger.Info("Application shut down gracefully")
}
