// internal/domain/intervenant/intervenant.go
package intervenant

import (
	"context"
	"fmt"
	"time"
)

var ErrIntervenantNotFound = fmt.Errorf("intervenant not found")

// Intervenant is a directory contact: an external agency line or an internal role.
type Intervenant struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name" validate:"required,max=200"`
	Role         string    `json:"role" bson:"role" validate:"required,max=200"`
	Contact      string    `json:"contact" bson:"contact" validate:"required,max=100"`
	Organization string    `json:"organization" bson:"organization" validate:"required,max=200"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	PhoneE164    string    `json:"phoneE164,omitempty" bson:"phone_e164,omitempty"` // set when Contact is a valid dialable number
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Repository persists directory entries.
type Repository interface {
	Create(ctx context.Context, in Intervenant) (Intervenant, error)
	// List returns every entry ordered by organization, then name.
	List(ctx context.Context) ([]Intervenant, error)
	Count(ctx context.Context) (int, error)
}

// Defaults are the agencies and roles every installation starts with.
func Defaults() []Intervenant {
	return []Intervenant{
		{Name: "Urgence Environnement (MELCC)", Role: "Organisme Gouvernemental", Contact: "1-866-694-5454", Organization: "MELCC"},
		{Name: "Urgence Environnement (ECCC)", Role: "Organisme Gouvernemental", Contact: "1-866-283-2333", Organization: "ECCC"},
		{Name: "Régie du Bâtiment du Québec (RBQ)", Role: "Organisme Gouvernemental", Contact: "1-800-267-1420", Organization: "RBQ"},
		{Name: "Coordonnateur Environnement", Role: "Interne", Contact: "555-0101", Organization: "Ville de Val-d'Or"},
		{Name: "Superviseur des Travaux Publics", Role: "Interne", Contact: "555-0102", Organization: "Ville de Val-d'Or"},
	}
}
