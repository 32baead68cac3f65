package report

import (
	"fmt"
	"strings"
)

// Status is the position of a report in its processing lifecycle.
// No transition table is enforced: any value may follow any other.
type Status string

const (
	StatusNew                  Status = "Nouvelle demande" // initial, forced on create
	StatusTakenInCharge        Status = "Pris en charge"
	StatusProcessed            Status = "Traité"
	StatusAwaitingMinistry     Status = "En attente de retour du ministère"
	StatusInterventionRequired Status = "Intervention requise"
	StatusCompleted            Status = "Complété"
	StatusCancelled            Status = "Annulé"
)

// statusInProgressAlias is accepted on input as a synonym of StatusTakenInCharge.
const statusInProgressAlias = "En cours"

// Bucket is a read-time classification of statuses used by dashboard counts.
type Bucket string

const (
	BucketActive Bucket = "active"
	BucketClosed Bucket = "closed"
)

// AllStatuses lists the enumeration in lifecycle order.
var AllStatuses = []Status{
	StatusNew,
	StatusTakenInCharge,
	StatusProcessed,
	StatusAwaitingMinistry,
	StatusInterventionRequired,
	StatusCompleted,
	StatusCancelled,
}

// statusCodes are short ASCII identifiers, used where the French label does not
// fit (Telegram callback data, command arguments, query strings).
var statusCodes = map[Status]string{
	StatusNew:                  "nouvelle",
	StatusTakenInCharge:        "pris",
	StatusProcessed:            "traite",
	StatusAwaitingMinistry:     "attente",
	StatusInterventionRequired: "intervention",
	StatusCompleted:            "complete",
	StatusCancelled:            "annule",
}

// Valid reports whether s is one of the enumerated values.
func (s Status) Valid() bool {
	_, ok := statusCodes[s]
	return ok
}

// Code returns the short ASCII identifier of s, or "" for an unknown status.
func (s Status) Code() string {
	return statusCodes[s]
}

// Bucket classifies s as active or closed. Unknown values count as active so a
// report with a stray status never disappears from the open-work view.
func (s Status) Bucket() Bucket {
	switch s {
	case StatusProcessed, StatusCompleted, StatusCancelled:
		return BucketClosed
	default:
		return BucketActive
	}
}

// Terminal reports whether s is conventionally final. Not enforced.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus accepts either a French label (case-insensitive), the "En cours"
// synonym, or a short code.
func ParseStatus(raw string) (Status, error) {
	v := strings.TrimSpace(raw)
	if strings.EqualFold(v, statusInProgressAlias) {
		return StatusTakenInCharge, nil
	}
	for _, s := range AllStatuses {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, statusCodes[s]) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown report status %q", raw)
}

// ParseBucket accepts "active" or "closed".
func ParseBucket(raw string) (Bucket, error) {
	switch Bucket(strings.ToLower(strings.TrimSpace(raw))) {
	case BucketActive:
		return BucketActive, nil
	case BucketClosed:
		return BucketClosed, nil
	default:
		return "", fmt.Errorf("unknown status bucket %q", raw)
	}
}
