// internal/app/report_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/sirupsen/logrus"
)

// DefaultStoreTimeout bounds every store call when no timeout is configured.
const DefaultStoreTimeout = 10 * time.Second

// Metrics receives counters from the report workflow.
type Metrics interface {
	ReportCreated()
	ReportUpdated()
	StoreFailure(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ReportCreated()      {}
func (nopMetrics) ReportUpdated()      {}
func (nopMetrics) StoreFailure(string) {}

// ReportObserver is told about successful writes. Observers run synchronously
// after the write and must not block for long.
type ReportObserver interface {
	ReportCreated(ctx context.Context, r report.Report)
	ReportUpdated(ctx context.Context, r report.Report, patch report.Patch)
}

// ReportService is the read/write contract around reports: creation with a
// sequential number, lookup, listing and partial update.
type ReportService struct {
	repo      report.Repository
	allocator SequenceAllocator
	log       *logrus.Entry
	metrics   Metrics
	observers []ReportObserver
	timeout   time.Duration
	now       func() time.Time
}

// ReportServiceOption customises a ReportService.
type ReportServiceOption func(*ReportService)

func WithStoreTimeout(d time.Duration) ReportServiceOption {
	return func(s *ReportService) { s.timeout = d }
}

func WithClock(now func() time.Time) ReportServiceOption {
	return func(s *ReportService) { s.now = now }
}

func WithMetrics(m Metrics) ReportServiceOption {
	return func(s *ReportService) { s.metrics = m }
}

func NewReportService(repo report.Repository, allocator SequenceAllocator, log *logrus.Entry, opts ...ReportServiceOption) *ReportService {
	s := &ReportService{
		repo:      repo,
		allocator: allocator,
		log:       log,
		metrics:   nopMetrics{},
		timeout:   DefaultStoreTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers o for create and update events.
func (s *ReportService) AddObserver(o ReportObserver) {
	s.observers = append(s.observers, o)
}

// Now returns the service clock's current time.
func (s *ReportService) Now() time.Time {
	return s.now()
}

func (s *ReportService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *ReportService) fail(op string, err error) error {
	classified := classifyStoreError(op, err)
	var opErr *OpError
	if errors.As(classified, &opErr) {
		s.metrics.StoreFailure(kindLabel(opErr.Kind))
	}
	s.log.WithField("op", op).WithError(classified).Error("Report store call failed")
	return classified
}

// PrimeAllocator synchronises the allocator with stored data when it needs it.
func (s *ReportService) PrimeAllocator(ctx context.Context) error {
	p, ok := s.allocator.(Primer)
	if !ok {
		return nil
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := p.Prime(ctx); err != nil {
		return s.fail("prime allocator", err)
	}
	return nil
}

// Create assigns the next sequential number, forces the initial status, stamps
// both timestamps with the same instant and persists the report.
func (s *ReportService) Create(ctx context.Context, draft report.Draft) (report.Report, error) {
	const op = "create report"
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	now := s.now()
	r := report.Report{
		Status:    report.StatusNew,
		Details:   draft.Details,
		PhotoURLs: draft.PhotoURLs,
		Documents: draft.Documents,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.allocator.Insert(ctx, now, r)
	if err != nil {
		return report.Report{}, s.fail(op, err)
	}

	s.metrics.ReportCreated()
	s.log.WithFields(logrus.Fields{
		"report_id":       created.ID,
		"sequence_number": created.EnvSequentialNumber,
	}).Info("Report created")
	for _, o := range s.observers {
		o.ReportCreated(ctx, created)
	}
	return created, nil
}

// Get returns found=false with a nil error when no report has that id.
func (s *ReportService) Get(ctx context.Context, id string) (report.Report, bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	r, err := s.repo.Get(ctx, id)
	if errors.Is(err, report.ErrReportNotFound) {
		return report.Report{}, false, nil
	}
	if err != nil {
		return report.Report{}, false, s.fail("get report", err)
	}
	return r, true, nil
}

// GetBySequenceNumber looks a report up by its ENV-<year>-<seq> number.
func (s *ReportService) GetBySequenceNumber(ctx context.Context, number string) (report.Report, bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	r, err := s.repo.FindBySequenceNumber(ctx, number)
	if errors.Is(err, report.ErrReportNotFound) {
		return report.Report{}, false, nil
	}
	if err != nil {
		return report.Report{}, false, s.fail("get report by number", err)
	}
	return r, true, nil
}

// List returns reports newest first.
func (s *ReportService) List(ctx context.Context, opts report.ListOptions) ([]report.Report, error) {
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, newOpError("list reports", ErrInvalidInput, fmt.Errorf("limit and offset must not be negative"))
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	reports, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, s.fail("list reports", err)
	}
	return reports, nil
}

// Update merges patch into the report and refreshes updatedAt. The sequential
// number and createdAt are never touched.
func (s *ReportService) Update(ctx context.Context, id string, patch report.Patch) (report.Report, error) {
	const op = "update report"
	if err := patch.Validate(); err != nil {
		return report.Report{}, newOpError(op, ErrInvalidInput, err)
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	updated, err := s.repo.Update(ctx, id, patch, s.now())
	if errors.Is(err, report.ErrReportNotFound) {
		return report.Report{}, newOpError(op, ErrUpdateTargetMissing, fmt.Errorf("report %s", id))
	}
	if err != nil {
		return report.Report{}, s.fail(op, err)
	}

	s.metrics.ReportUpdated()
	entry := s.log.WithField("report_id", id)
	if patch.Status != nil {
		entry = entry.WithField("status", *patch.Status)
	}
	entry.Info("Report updated")
	for _, o := range s.observers {
		o.ReportUpdated(ctx, updated, patch)
	}
	return updated, nil
}

// UpdateStatus is Update restricted to the status field.
func (s *ReportService) UpdateStatus(ctx context.Context, id string, status report.Status) (report.Report, error) {
	return s.Update(ctx, id, report.Patch{Status: &status})
}

func kindLabel(kind error) string {
	switch {
	case errors.Is(kind, ErrStoreTimeout):
		return "timeout"
	case errors.Is(kind, ErrAllocationConflict):
		return "conflict"
	default:
		return "unavailable"
	}
}
