package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/intervenant"
	"spill_report_service/internal/domain/report"
)

const (
	defaultListCount = 5
	maxListCount     = 30
)

var (
	ErrUsageList   = errors.New("usage: /rapports [nombre]")
	ErrUsageShow   = errors.New("usage: /rapport <ENV-AAAA-NNN>")
	ErrUsageStatus = errors.New("usage: /statut <ENV-AAAA-NNN> <code>")
)

// parseListArgs reads the optional count of /rapports, clamped to maxListCount.
func parseListArgs(args []string) (int, error) {
	if len(args) == 0 {
		return defaultListCount, nil
	}
	if len(args) > 1 {
		return 0, ErrUsageList
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return 0, ErrUsageList
	}
	if n > maxListCount {
		n = maxListCount
	}
	return n, nil
}

func parseShowArgs(args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsageShow
	}
	number := strings.ToUpper(strings.TrimSpace(args[0]))
	if !strings.HasPrefix(number, report.SequencePrefix+"-") {
		return "", ErrUsageShow
	}
	if _, _, err := report.ParseSequenceNumber(number); err != nil {
		return "", ErrUsageShow
	}
	return number, nil
}

// parseStatusArgs reads "/statut <number> <status>". The status may be a code
// or a full label spread over several words.
func parseStatusArgs(args []string) (string, report.Status, error) {
	if len(args) < 2 {
		return "", "", ErrUsageStatus
	}
	number, err := parseShowArgs(args[:1])
	if err != nil {
		return "", "", ErrUsageStatus
	}
	st, err := report.ParseStatus(strings.Join(args[1:], " "))
	if err != nil {
		return "", "", fmt.Errorf("%w (%v)", ErrUsageStatus, err)
	}
	return number, st, nil
}

func formatReportList(reports []report.Report) string {
	if len(reports) == 0 {
		return "Aucun rapport."
	}
	var b strings.Builder
	for i, r := range reports {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "• %s · %s", r.EnvSequentialNumber, r.Status)
		if r.Details.Location != "" {
			fmt.Fprintf(&b, " · %s", r.Details.Location)
		}
	}
	return b.String()
}

func formatStats(sum app.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rapports : %d (actifs %d, fermés %d)\n", sum.Total, sum.Active, sum.Closed)
	for _, st := range report.AllStatuses {
		if n := sum.ByStatus[st]; n > 0 {
			fmt.Fprintf(&b, "  %s : %d\n", st, n)
		}
	}

	causes := make([]string, 0, len(sum.ByCause))
	for c := range sum.ByCause {
		causes = append(causes, c)
	}
	sort.Slice(causes, func(i, j int) bool {
		if sum.ByCause[causes[i]] != sum.ByCause[causes[j]] {
			return sum.ByCause[causes[i]] > sum.ByCause[causes[j]]
		}
		return causes[i] < causes[j]
	})
	if len(causes) > 0 {
		b.WriteString("Causes :\n")
		for _, c := range causes {
			fmt.Fprintf(&b, "  %s : %d\n", c, sum.ByCause[c])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatIntervenants(list []intervenant.Intervenant) string {
	if len(list) == 0 {
		return "Aucun intervenant trouvé."
	}
	var b strings.Builder
	for i, it := range list {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s (%s)\n%s · %s", it.Name, it.Organization, it.Role, it.Contact)
		if it.Email != "" {
			fmt.Fprintf(&b, " · %s", it.Email)
		}
	}
	return b.String()
}

// userMessage turns a service error into a short French reply.
func userMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrUpdateTargetMissing):
		return "Rapport introuvable."
	case errors.Is(err, app.ErrInvalidInput):
		return "Requête invalide."
	case errors.Is(err, app.ErrStoreTimeout):
		return "Le stockage ne répond pas, réessayez plus tard."
	case errors.Is(err, app.ErrStoreUnavailable):
		return "Stockage indisponible, réessayez plus tard."
	case errors.Is(err, app.ErrNotAuthorized):
		return "Vous n'avez pas les droits pour cette commande."
	default:
		return "Une erreur est survenue."
	}
}
