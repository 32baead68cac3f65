// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"strings"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// BotDeps holds what the command handlers need.
type BotDeps struct {
	Reports         *app.ReportService
	Dashboard       *app.DashboardService
	Directory       *app.DirectoryService
	Notifications   *app.NotificationService
	AdminTelegramID int64
	// ManagerTelegramID receives notifications and may use the status buttons.
	ManagerTelegramID int64
}

func (d BotDeps) isAdmin(senderID int64) bool {
	return senderID != 0 && senderID == d.AdminTelegramID
}

func (d BotDeps) isStaff(senderID int64) bool {
	return d.isAdmin(senderID) || (senderID != 0 && senderID == d.ManagerTelegramID)
}

const helpText = "Commandes disponibles :\n\n" +
	"/rapports [n] - les n derniers rapports (5 par défaut)\n" +
	"/rapport <ENV-AAAA-NNN> - détail d'un rapport\n" +
	"/stats - statistiques des déversements\n" +
	"/intervenants [terme] - répertoire des intervenants\n" +
	"/help - ce message"

const guestHelpText = "Les commandes de consultation sont réservées au personnel autorisé."

const adminHelpText = "\n\nAdministration :\n" +
	"/statut <ENV-AAAA-NNN> <code> - changer le statut\n" +
	"Codes : nouvelle, pris, traite, attente, intervention, complete, annule"

// staffOnly refuses the command to anyone but the admin and the manager.
func (d BotDeps) staffOnly(log *logrus.Entry) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Sender() == nil || !d.isStaff(c.Sender().ID) {
				entry := log
				if c.Sender() != nil {
					entry = entry.WithField("sender_id", c.Sender().ID)
				}
				entry.WithField("command", c.Text()).Warn("Unauthorized access attempt")
				return c.Send(userMessage(app.ErrNotAuthorized))
			}
			return next(c)
		}
	}
}

func RegisterBotCommands(ctx context.Context, b *telebot.Bot, deps BotDeps, baseLogger *logrus.Entry) {
	cmdLogger := baseLogger.WithField("handler_group", "commands")
	staff := deps.staffOnly(cmdLogger)

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		cmdLogger.WithField("command", "/start").WithField("sender_id", senderID).Info("Processing /start command")
		if deps.isStaff(senderID) {
			return c.Send("Bonjour " + c.Sender().FirstName + " ! Les nouveaux déversements vous seront signalés ici. /help pour la liste des commandes.")
		}
		return c.Send("Bonjour ! Ce bot suit les rapports de déversement. /help pour la liste des commandes.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		switch {
		case deps.isAdmin(c.Sender().ID):
			return c.Send(helpText + adminHelpText)
		case deps.isStaff(c.Sender().ID):
			return c.Send(helpText)
		}
		return c.Send(guestHelpText)
	})

	b.Handle("/rapports", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/rapports").WithField("sender_id", c.Sender().ID)
		n, err := parseListArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}
		list, err := deps.Reports.List(ctx, report.ListOptions{Limit: n})
		if err != nil {
			logCtx.WithError(err).Error("Failed to list reports")
			return c.Send(userMessage(err))
		}
		return c.Send(formatReportList(list))
	}, staff)

	b.Handle("/rapport", func(c telebot.Context) error {
		logCtx := cmdLogger.WithField("command", "/rapport").WithField("sender_id", c.Sender().ID)
		number, err := parseShowArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}
		r, found, err := deps.Reports.GetBySequenceNumber(ctx, number)
		if err != nil {
			logCtx.WithError(err).Error("Failed to get report")
			return c.Send(userMessage(err))
		}
		if !found {
			return c.Send("Aucun rapport " + number + ".")
		}
		return c.Send(app.FormatReportSummary(r), app.StatusKeyboard(r))
	}, staff)

	b.Handle("/statut", func(c telebot.Context) error {
		logCtx := cmdLogger.WithFields(logrus.Fields{"command": "/statut", "sender_id": c.Sender().ID})
		if !deps.isAdmin(c.Sender().ID) {
			logCtx.Warn("Unauthorized access attempt")
			return c.Send(userMessage(app.ErrNotAuthorized))
		}
		number, st, err := parseStatusArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}
		r, found, err := deps.Reports.GetBySequenceNumber(ctx, number)
		if err != nil {
			logCtx.WithError(err).Error("Failed to get report")
			return c.Send(userMessage(err))
		}
		if !found {
			return c.Send("Aucun rapport " + number + ".")
		}
		updated, err := deps.Reports.UpdateStatus(ctx, r.ID, st)
		if err != nil {
			logCtx.WithError(err).Error("Failed to update status")
			return c.Send(userMessage(err))
		}
		logCtx.WithField("report_id", updated.ID).WithField("status", updated.Status).Info("Status changed from bot")
		return c.Send(updated.EnvSequentialNumber + " : statut « " + string(updated.Status) + " »")
	})

	b.Handle("/stats", func(c telebot.Context) error {
		sum, err := deps.Dashboard.Summary(ctx, 0)
		if err != nil {
			cmdLogger.WithError(err).WithField("command", "/stats").Error("Failed to compute stats")
			return c.Send(userMessage(err))
		}
		return c.Send(formatStats(sum))
	}, staff)

	b.Handle("/intervenants", func(c telebot.Context) error {
		list, err := deps.Directory.Search(ctx, strings.Join(c.Args(), " "))
		if err != nil {
			cmdLogger.WithError(err).WithField("command", "/intervenants").Error("Failed to search directory")
			return c.Send(userMessage(err))
		}
		return c.Send(formatIntervenants(list))
	}, staff)
}

// RegisterStatusButtons handles the inline status buttons attached to report
// notifications.
func RegisterStatusButtons(ctx context.Context, b *telebot.Bot, deps BotDeps, baseLogger *logrus.Entry) {
	btn := &telebot.Btn{Unique: app.StatusCallbackUnique}

	b.Handle(btn, func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "status_button",
			"sender_id": c.Sender().ID,
		})
		if !deps.isStaff(c.Sender().ID) {
			logCtx.Warn("Unauthorized status button press")
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(app.ErrNotAuthorized)})
		}

		updated, err := deps.Notifications.ApplyStatusCallback(ctx, c.Callback().Data)
		if err != nil {
			logCtx.WithError(err).WithField("data", c.Callback().Data).Error("Failed to apply status button")
			return c.Respond(&telebot.CallbackResponse{Text: userMessage(err)})
		}
		if err := c.Edit(app.FormatReportSummary(updated), app.StatusKeyboard(updated)); err != nil {
			logCtx.WithError(err).Debug("Could not refresh notification message")
		}
		return c.Respond(&telebot.CallbackResponse{Text: "Statut : " + string(updated.Status)})
	})
}
