// internal/domain/report/report.go
package report

import "time"

// Report is a spill incident record and its remediation follow-up.
// Corresponds to the 'reports' table / collection.
type Report struct {
	ID                  string     `json:"id" bson:"_id"`
	EnvSequentialNumber string     `json:"envSequentialNumber" bson:"env_sequential_number"` // ENV-<year>-<seq>, assigned once
	Status              Status     `json:"status" bson:"status"`
	Details             Details    `json:"details" bson:"details"`
	PhotoURLs           []string   `json:"photoUrls" bson:"photo_urls"`
	Documents           []Document `json:"documents" bson:"documents"`
	CreatedAt           time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" bson:"updated_at"`
}

// Document is an attached file reference.
type Document struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url" bson:"url"`
	Type string `json:"type" bson:"type"`
	Date string `json:"date" bson:"date"` // RFC3339 upload time
}

// Details holds the descriptive fields filled in by the authoring form.
// The service stores them as given and never interprets them, except for
// dashboard aggregation (Cause, Date) and search (Location, Contaminant, Date).
type Details struct {
	// General information
	Date             string `json:"date,omitempty" bson:"date,omitempty"`
	Time             string `json:"time,omitempty" bson:"time,omitempty"`
	Location         string `json:"location,omitempty" bson:"location,omitempty"`
	WitnessedBy      string `json:"witnessedBy,omitempty" bson:"witnessedBy,omitempty"`
	Supervisor       string `json:"supervisor,omitempty" bson:"supervisor,omitempty"`
	EnvContactedName string `json:"envContactedName,omitempty" bson:"envContactedName,omitempty"`
	EnvContactedDate string `json:"envContactedDate,omitempty" bson:"envContactedDate,omitempty"`
	EnvContactedTime string `json:"envContactedTime,omitempty" bson:"envContactedTime,omitempty"`

	// Spill description
	Contaminant       string   `json:"contaminant,omitempty" bson:"contaminant,omitempty"`
	Extent            string   `json:"extent,omitempty" bson:"extent,omitempty"`
	SurfaceType       string   `json:"surfaceType,omitempty" bson:"surfaceType,omitempty"`
	SurfaceTypeOther  string   `json:"surfaceTypeOther,omitempty" bson:"surfaceTypeOther,omitempty"`
	EquipmentType     string   `json:"equipmentType,omitempty" bson:"equipmentType,omitempty"`
	ContainerQuantity string   `json:"containerQuantity,omitempty" bson:"containerQuantity,omitempty"`
	Duration          string   `json:"duration,omitempty" bson:"duration,omitempty"`
	SensitiveEnv      []string `json:"sensitiveEnv,omitempty" bson:"sensitiveEnv,omitempty"`
	SensitiveEnvOther string   `json:"sensitiveEnvOther,omitempty" bson:"sensitiveEnvOther,omitempty"`
	DisposalLocation  string   `json:"disposalLocation,omitempty" bson:"disposalLocation,omitempty"`

	// Incident details
	Description            string `json:"description,omitempty" bson:"description,omitempty"`
	ActionsTaken           string `json:"actionsTaken,omitempty" bson:"actionsTaken,omitempty"`
	EmergencyKitUsed       bool   `json:"emergencyKitUsed,omitempty" bson:"emergencyKitUsed,omitempty"`
	EmergencyKitRefilled   bool   `json:"emergencyKitRefilled,omitempty" bson:"emergencyKitRefilled,omitempty"`
	Cause                  string `json:"cause,omitempty" bson:"cause,omitempty"`
	CauseOther             string `json:"causeOther,omitempty" bson:"causeOther,omitempty"`
	ContaminantCollectedBy string `json:"contaminantCollectedBy,omitempty" bson:"contaminantCollectedBy,omitempty"`
	FollowUpBy             string `json:"followUpBy,omitempty" bson:"followUpBy,omitempty"`

	PhotosTakenBefore bool `json:"photosTakenBefore,omitempty" bson:"photosTakenBefore,omitempty"`
	PhotosTakenDuring bool `json:"photosTakenDuring,omitempty" bson:"photosTakenDuring,omitempty"`
	PhotosTakenAfter  bool `json:"photosTakenAfter,omitempty" bson:"photosTakenAfter,omitempty"`

	CompletedBy    string `json:"completedBy,omitempty" bson:"completedBy,omitempty"`
	CompletionDate string `json:"completionDate,omitempty" bson:"completionDate,omitempty"`

	// Regulatory notifications, one sub-record per agency
	MELCC *AgencyNotification `json:"melcc,omitempty" bson:"melcc,omitempty"` // Urgence-Environnement (provincial)
	ECCC  *AgencyNotification `json:"eccc,omitempty" bson:"eccc,omitempty"`   // Environnement et Changement climatique Canada
	RBQ   *AgencyNotification `json:"rbq,omitempty" bson:"rbq,omitempty"`     // Régie du bâtiment du Québec
}

// AgencyNotification records whether and how an external agency was notified.
type AgencyNotification struct {
	Contacted     bool   `json:"contacted" bson:"contacted"`
	Date          string `json:"date,omitempty" bson:"date,omitempty"`
	ContactedName string `json:"contactedName,omitempty" bson:"contactedName,omitempty"`
	By            string `json:"by,omitempty" bson:"by,omitempty"`
	FollowUp      string `json:"followUp,omitempty" bson:"followUp,omitempty"`
	Email         string `json:"email,omitempty" bson:"email,omitempty"`
}

// Draft is what a caller may supply when creating a report. Identity, sequential
// number, status and timestamps are assigned by the service and cannot be set here.
type Draft struct {
	Details   Details    `json:"details"`
	PhotoURLs []string   `json:"photoUrls,omitempty"`
	Documents []Document `json:"documents,omitempty"`
}
