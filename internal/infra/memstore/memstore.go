// Package memstore keeps reports, counters and directory entries in process
// memory. It backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"spill_report_service/internal/domain/intervenant"
	"spill_report_service/internal/domain/report"

	"github.com/google/uuid"
)

// ReportStore is a mutex-guarded report.Repository with a unique index on the
// sequential number.
type ReportStore struct {
	mu       sync.RWMutex
	byID     map[string]report.Report
	byNumber map[string]string
	order    []string // insertion order, used to break CreatedAt ties
	seq      map[string]int64
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		byID:     map[string]report.Report{},
		byNumber: map[string]string{},
		seq:      map[string]int64{},
	}
}

func cloneReport(r report.Report) report.Report {
	r.PhotoURLs = append([]string(nil), r.PhotoURLs...)
	r.Documents = append([]report.Document(nil), r.Documents...)
	r.Details.SensitiveEnv = append([]string(nil), r.Details.SensitiveEnv...)
	r.Details.MELCC = cloneAgency(r.Details.MELCC)
	r.Details.ECCC = cloneAgency(r.Details.ECCC)
	r.Details.RBQ = cloneAgency(r.Details.RBQ)
	return r
}

func cloneAgency(a *report.AgencyNotification) *report.AgencyNotification {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func (s *ReportStore) Insert(ctx context.Context, r report.Report) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(r)
}

func (s *ReportStore) insertLocked(r report.Report) (report.Report, error) {
	if _, taken := s.byNumber[r.EnvSequentialNumber]; taken {
		return report.Report{}, report.ErrDuplicateSequenceNumber
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r = cloneReport(r)
	s.byID[r.ID] = r
	s.byNumber[r.EnvSequentialNumber] = r.ID
	s.order = append(s.order, r.ID)
	return cloneReport(r), nil
}

func (s *ReportStore) Get(ctx context.Context, id string) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return report.Report{}, report.ErrReportNotFound
	}
	return cloneReport(r), nil
}

func (s *ReportStore) FindBySequenceNumber(ctx context.Context, number string) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[number]
	if !ok {
		return report.Report{}, report.ErrReportNotFound
	}
	return cloneReport(s.byID[id]), nil
}

func (s *ReportStore) Update(ctx context.Context, id string, patch report.Patch, updatedAt time.Time) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return report.Report{}, report.ErrReportNotFound
	}
	r = cloneReport(r)
	if err := patch.ApplyTo(&r); err != nil {
		return report.Report{}, err
	}
	r.UpdatedAt = updatedAt
	s.byID[id] = r
	return cloneReport(r), nil
}

// sorted returns ids newest first. Caller holds the lock.
func (s *ReportStore) sorted() []string {
	ids := make([]string, len(s.order))
	for i := range s.order {
		ids[i] = s.order[len(s.order)-1-i]
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return s.byID[ids[i]].CreatedAt.After(s.byID[ids[j]].CreatedAt)
	})
	return ids
}

func (s *ReportStore) List(ctx context.Context, opts report.ListOptions) ([]report.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sorted()
	if opts.Offset >= len(ids) {
		return []report.Report{}, nil
	}
	ids = ids[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(ids) {
		ids = ids[:opts.Limit]
	}
	out := make([]report.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneReport(s.byID[id]))
	}
	return out, nil
}

func (s *ReportStore) Latest(ctx context.Context) (report.Report, error) {
	list, err := s.List(ctx, report.ListOptions{Limit: 1})
	if err != nil {
		return report.Report{}, err
	}
	if len(list) == 0 {
		return report.Report{}, report.ErrReportNotFound
	}
	return list[0], nil
}

// Counter returns a sequence counter that shares the store's lock, so a
// numbered insert either stores the report and moves the counter or does
// neither.
func (s *ReportStore) Counter() *StoreCounter {
	return &StoreCounter{s: s}
}

// StoreCounter is the report.NumberedInserter of a ReportStore.
type StoreCounter struct {
	s *ReportStore
}

func (c *StoreCounter) Next(ctx context.Context, scope string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.seq[scope]++
	return c.s.seq[scope], nil
}

func (c *StoreCounter) Raise(ctx context.Context, scope string, floor int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.seq[scope] < floor {
		c.s.seq[scope] = floor
	}
	return nil
}

func (c *StoreCounter) InsertNumbered(ctx context.Context, scope string, number func(int64) string, r report.Report) (report.Report, error) {
	if err := ctx.Err(); err != nil {
		return report.Report{}, err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	seq := c.s.seq[scope] + 1
	r.EnvSequentialNumber = number(seq)
	created, err := c.s.insertLocked(r)
	if err != nil {
		return report.Report{}, err
	}
	c.s.seq[scope] = seq
	return created, nil
}

// Counter is an in-process report.SequenceCounter kept apart from any store.
type Counter struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewCounter() *Counter {
	return &Counter{values: map[string]int64{}}
}

func (c *Counter) Next(ctx context.Context, scope string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[scope]++
	return c.values[scope], nil
}

func (c *Counter) Raise(ctx context.Context, scope string, floor int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values[scope] < floor {
		c.values[scope] = floor
	}
	return nil
}

// Reserve hands fn the scope's next value and keeps it only when fn succeeds.
// Other callers on the same counter wait until fn returns.
func (c *Counter) Reserve(ctx context.Context, scope string, fn func(context.Context, int64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.values[scope] + 1
	if err := fn(ctx, seq); err != nil {
		return err
	}
	c.values[scope] = seq
	return nil
}

// IntervenantStore is an in-process intervenant.Repository.
type IntervenantStore struct {
	mu      sync.RWMutex
	entries []intervenant.Intervenant
}

func NewIntervenantStore() *IntervenantStore {
	return &IntervenantStore{}
}

func (s *IntervenantStore) Create(ctx context.Context, in intervenant.Intervenant) (intervenant.Intervenant, error) {
	if err := ctx.Err(); err != nil {
		return intervenant.Intervenant{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	s.entries = append(s.entries, in)
	return in, nil
}

func (s *IntervenantStore) List(ctx context.Context) ([]intervenant.Intervenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]intervenant.Intervenant(nil), s.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Organization != out[j].Organization {
			return out[i].Organization < out[j].Organization
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *IntervenantStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}
