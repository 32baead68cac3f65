// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spill_report_service/internal/domain/report"
	domainTelegram "spill_report_service/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// StatusCallbackUnique identifies inline status buttons in callback data.
const StatusCallbackUnique = "st"

// maxDigestLines caps the number of reports listed in one digest message.
const maxDigestLines = 25

// NotificationService pushes report events to the manager over Telegram and
// runs the scheduled digest and stale-report reminders.
type NotificationService struct {
	reports           *ReportService
	dashboard         *DashboardService
	messenger         domainTelegram.Messenger
	log               *logrus.Entry
	managerTelegramID int64
	staleAfter        time.Duration
	digestExport      DigestExporter
}

// DigestExporter renders the reports of a digest as a file to attach to it.
type DigestExporter func(reports []report.Report, at time.Time) (name string, content []byte, err error)

func NewNotificationService(
	reports *ReportService,
	dashboard *DashboardService,
	messenger domainTelegram.Messenger,
	log *logrus.Entry,
	managerID int64,
	staleAfter time.Duration,
) *NotificationService {
	return &NotificationService{
		reports:           reports,
		dashboard:         dashboard,
		messenger:         messenger,
		log:               log,
		managerTelegramID: managerID,
		staleAfter:        staleAfter,
	}
}

// StatusKeyboard offers one button per status other than the current one.
func StatusKeyboard(r report.Report) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	var row []telebot.Btn
	var rows []telebot.Row
	for _, st := range report.AllStatuses {
		if st == r.Status {
			continue
		}
		row = append(row, markup.Data(string(st), StatusCallbackUnique, r.ID, st.Code()))
		if len(row) == 2 {
			rows = append(rows, markup.Row(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, markup.Row(row...))
	}
	markup.Inline(rows...)
	return markup
}

// ParseStatusCallback decodes the payload of a status button, "<reportID>|<code>".
func ParseStatusCallback(data string) (string, report.Status, error) {
	parts := strings.Split(data, "|")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("invalid status callback data %q", data)
	}
	st, err := report.ParseStatus(parts[1])
	if err != nil {
		return "", "", err
	}
	return parts[0], st, nil
}

// FormatReportSummary renders the short text used in notifications and bot replies.
func FormatReportSummary(r report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %s\n", r.EnvSequentialNumber, r.Status)
	if r.Details.Date != "" {
		fmt.Fprintf(&b, "Date: %s %s\n", r.Details.Date, r.Details.Time)
	}
	if r.Details.Location != "" {
		fmt.Fprintf(&b, "Lieu: %s\n", r.Details.Location)
	}
	if r.Details.Contaminant != "" {
		fmt.Fprintf(&b, "Contaminant: %s\n", r.Details.Contaminant)
	}
	if r.Details.Extent != "" {
		fmt.Fprintf(&b, "Étendue: %s\n", r.Details.Extent)
	}
	return strings.TrimRight(b.String(), "\n")
}

// AttachDigestExport makes SendDigest follow the message with the file fn renders.
func (s *NotificationService) AttachDigestExport(fn DigestExporter) {
	s.digestExport = fn
}

func (s *NotificationService) enabled() bool {
	return s.messenger != nil && s.managerTelegramID != 0
}

func (s *NotificationService) send(text string, markup *telebot.ReplyMarkup) error {
	if !s.enabled() {
		return nil
	}
	return s.messenger.Send(s.managerTelegramID, text, markup)
}

// ReportCreated notifies the manager with inline status buttons.
func (s *NotificationService) ReportCreated(_ context.Context, r report.Report) {
	text := "Nouveau déversement signalé\n\n" + FormatReportSummary(r)
	err := s.send(text, StatusKeyboard(r))
	logCtx := s.log.WithFields(logrus.Fields{"report_id": r.ID, "sequence_number": r.EnvSequentialNumber})
	if err != nil {
		logCtx.WithError(err).Error("Failed to notify manager of new report")
		return
	}
	logCtx.Debug("Manager notified of new report")
}

// ReportUpdated notifies the manager when the status changed.
func (s *NotificationService) ReportUpdated(_ context.Context, r report.Report, patch report.Patch) {
	if patch.Status == nil {
		return
	}
	text := fmt.Sprintf("%s : statut « %s »", r.EnvSequentialNumber, r.Status)
	if err := s.send(text, nil); err != nil {
		s.log.WithError(err).WithField("report_id", r.ID).Error("Failed to notify manager of status change")
	}
}

// ApplyStatusCallback applies a status chosen with an inline button.
func (s *NotificationService) ApplyStatusCallback(ctx context.Context, data string) (report.Report, error) {
	id, st, err := ParseStatusCallback(data)
	if err != nil {
		return report.Report{}, newOpError("status callback", ErrInvalidInput, err)
	}
	return s.reports.UpdateStatus(ctx, id, st)
}

// SendDigest sends the list of active reports to the manager.
func (s *NotificationService) SendDigest(ctx context.Context) error {
	active, err := s.dashboard.Search(ctx, Filter{Bucket: report.BucketActive}, report.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list active reports for digest: %w", err)
	}
	if len(active) == 0 {
		s.log.Info("No active reports, digest skipped")
		return nil
	}
	if err := s.send(FormatDigest(active), nil); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	if s.digestExport != nil && s.enabled() {
		name, content, err := s.digestExport(active, s.reports.Now())
		if err == nil {
			err = s.messenger.SendFile(s.managerTelegramID, name, content, "Déversements actifs")
		}
		if err != nil {
			// the text digest already went out
			s.log.WithError(err).Warn("Failed to attach digest export")
		}
	}
	s.log.WithField("active_reports", len(active)).Info("Digest sent")
	return nil
}

// FormatDigest renders the digest message for the given active reports.
func FormatDigest(active []report.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Déversements actifs : %d\n", len(active))
	for i, r := range active {
		if i == maxDigestLines {
			fmt.Fprintf(&b, "… et %d autres", len(active)-maxDigestLines)
			break
		}
		fmt.Fprintf(&b, "\n• %s · %s · %s", r.EnvSequentialNumber, r.Status, r.Details.Location)
	}
	return b.String()
}

// StaleReports returns reports still in the initial status after the given age.
func StaleReports(reports []report.Report, now time.Time, after time.Duration) []report.Report {
	var out []report.Report
	for _, r := range reports {
		if r.Status == report.StatusNew && now.Sub(r.CreatedAt) >= after {
			out = append(out, r)
		}
	}
	return out
}

// RemindStale sends one reminder per report nobody has taken in charge yet.
func (s *NotificationService) RemindStale(ctx context.Context) error {
	if s.staleAfter <= 0 {
		return nil
	}
	all, err := s.dashboard.Search(ctx, Filter{Status: report.StatusNew}, report.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list new reports for reminders: %w", err)
	}
	stale := StaleReports(all, s.reports.Now(), s.staleAfter)
	for _, r := range stale {
		text := fmt.Sprintf("Rappel : toujours « %s » depuis %s\n\n%s",
			r.Status, r.CreatedAt.Format("2006-01-02 15:04"), FormatReportSummary(r))
		if err := s.send(text, StatusKeyboard(r)); err != nil {
			s.log.WithError(err).WithField("report_id", r.ID).Error("Failed to send stale reminder")
		}
	}
	s.log.WithField("stale_reports", len(stale)).Info("Stale report check done")
	return nil
}
