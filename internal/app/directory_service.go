package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spill_report_service/internal/domain/intervenant"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
)

// PhoneRegion is the default region for contacts written without a country code.
const PhoneRegion = "CA"

// normalizePhone returns the E.164 form of contact, or "" when it is not a
// valid number (internal extensions such as 555-0101 stay as typed).
func normalizePhone(contact string) string {
	p, err := libphonenumber.Parse(contact, PhoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return ""
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}

// DirectoryService manages the intervenant contacts list.
type DirectoryService struct {
	repo     intervenant.Repository
	validate *validator.Validate
	log      *logrus.Entry
	now      func() time.Time
	timeout  time.Duration
}

// DirectoryOption customises a DirectoryService.
type DirectoryOption func(*DirectoryService)

func WithDirectoryTimeout(d time.Duration) DirectoryOption {
	return func(s *DirectoryService) { s.timeout = d }
}

func NewDirectoryService(repo intervenant.Repository, log *logrus.Entry, opts ...DirectoryOption) *DirectoryService {
	s := &DirectoryService{repo: repo, validate: validator.New(), log: log, now: time.Now, timeout: DefaultStoreTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DirectoryService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *DirectoryService) fail(op string, err error) error {
	classified := classifyStoreError(op, err)
	s.log.WithField("op", op).WithError(classified).Error("Directory store call failed")
	return classified
}

// Create validates and stores a new entry.
func (s *DirectoryService) Create(ctx context.Context, in intervenant.Intervenant) (intervenant.Intervenant, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.TrimSpace(in.Role)
	in.Contact = strings.TrimSpace(in.Contact)
	in.Organization = strings.TrimSpace(in.Organization)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return intervenant.Intervenant{}, newOpError("create intervenant", ErrInvalidInput, err)
	}
	in.PhoneE164 = normalizePhone(in.Contact)
	in.CreatedAt = s.now().UTC()

	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return intervenant.Intervenant{}, s.fail("create intervenant", err)
	}
	return created, nil
}

// List returns the whole directory.
func (s *DirectoryService) List(ctx context.Context) ([]intervenant.Intervenant, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.fail("list intervenants", err)
	}
	return all, nil
}

// Search matches term case-insensitively against name, role and organization.
func (s *DirectoryService) Search(ctx context.Context, term string) ([]intervenant.Intervenant, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return all, nil
	}
	out := make([]intervenant.Intervenant, 0, len(all))
	for _, it := range all {
		if strings.Contains(strings.ToLower(it.Name), term) ||
			strings.Contains(strings.ToLower(it.Role), term) ||
			strings.Contains(strings.ToLower(it.Organization), term) {
			out = append(out, it)
		}
	}
	return out, nil
}

// SeedDefaults inserts the default agencies when the directory is empty.
func (s *DirectoryService) SeedDefaults(ctx context.Context) error {
	cctx, cancel := s.storeContext(ctx)
	n, err := s.repo.Count(cctx)
	cancel()
	if err != nil {
		return s.fail("count intervenants", err)
	}
	if n > 0 {
		return nil
	}
	for _, it := range intervenant.Defaults() {
		if _, err := s.Create(ctx, it); err != nil {
			return fmt.Errorf("seed intervenant %q: %w", it.Name, err)
		}
	}
	s.log.WithField("count", len(intervenant.Defaults())).Info("Directory seeded with default intervenants")
	return nil
}
