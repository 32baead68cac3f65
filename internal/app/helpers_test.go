package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/memstore"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// steppingClock returns start, start+step, start+2*step, ...
type steppingClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func newSteppingClock(start time.Time) *steppingClock {
	return &steppingClock{next: start, step: time.Second}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

func (c *steppingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = t
}

type fixture struct {
	repo    *memstore.ReportStore
	counter *memstore.Counter
	clock   *steppingClock
	svc     *ReportService
}

func newCounterFixture(t *testing.T, start time.Time, resetYearly bool) *fixture {
	t.Helper()
	repo := memstore.NewReportStore()
	counter := memstore.NewCounter()
	clock := newSteppingClock(start)
	alloc := NewCounterAllocator(counter, repo, resetYearly, testLogger())
	svc := NewReportService(repo, alloc, testLogger(), WithClock(clock.Now))
	return &fixture{repo: repo, counter: counter, clock: clock, svc: svc}
}

func newLatestFixture(t *testing.T, start time.Time, resetYearly bool) *fixture {
	t.Helper()
	repo := memstore.NewReportStore()
	clock := newSteppingClock(start)
	alloc := NewLatestRecordAllocator(repo, resetYearly, testLogger())
	svc := NewReportService(repo, alloc, testLogger(), WithClock(clock.Now))
	return &fixture{repo: repo, clock: clock, svc: svc}
}

// gatedRepo holds every Latest call until `parties` callers have read the
// latest report, so they all observe the same previous number.
type gatedRepo struct {
	*memstore.ReportStore
	arrived sync.WaitGroup
}

func newGatedRepo(inner *memstore.ReportStore, parties int) *gatedRepo {
	g := &gatedRepo{ReportStore: inner}
	g.arrived.Add(parties)
	return g
}

func (g *gatedRepo) Latest(ctx context.Context) (report.Report, error) {
	r, err := g.ReportStore.Latest(ctx)
	g.arrived.Done()
	g.arrived.Wait()
	return r, err
}

// blockingCounter never answers before the context expires.
type blockingCounter struct{}

func (blockingCounter) Next(ctx context.Context, _ string) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (blockingCounter) Raise(ctx context.Context, _ string, _ int64) error {
	<-ctx.Done()
	return ctx.Err()
}

// brokenRepo fails every call with the same backend error.
type brokenRepo struct{ err error }

func (b brokenRepo) Insert(context.Context, report.Report) (report.Report, error) {
	return report.Report{}, b.err
}
func (b brokenRepo) Get(context.Context, string) (report.Report, error) {
	return report.Report{}, b.err
}
func (b brokenRepo) Update(context.Context, string, report.Patch, time.Time) (report.Report, error) {
	return report.Report{}, b.err
}
func (b brokenRepo) List(context.Context, report.ListOptions) ([]report.Report, error) {
	return nil, b.err
}
func (b brokenRepo) Latest(context.Context) (report.Report, error) {
	return report.Report{}, b.err
}
func (b brokenRepo) FindBySequenceNumber(context.Context, string) (report.Report, error) {
	return report.Report{}, b.err
}

type recordingObserver struct {
	mu      sync.Mutex
	created []report.Report
	updated []report.Report
}

func (o *recordingObserver) ReportCreated(_ context.Context, r report.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.created = append(o.created, r)
}

func (o *recordingObserver) ReportUpdated(_ context.Context, r report.Report, _ report.Patch) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updated = append(o.updated, r)
}

// failingInserts fails the next `remaining` inserts, then delegates.
type failingInserts struct {
	*memstore.ReportStore
	mu        sync.Mutex
	remaining int
	err       error
}

func (f *failingInserts) Insert(ctx context.Context, r report.Report) (report.Report, error) {
	f.mu.Lock()
	fail := f.remaining > 0
	if fail {
		f.remaining--
	}
	f.mu.Unlock()
	if fail {
		return report.Report{}, f.err
	}
	return f.ReportStore.Insert(ctx, r)
}

// plainCounter exposes only Next and Raise of the wrapped counter.
type plainCounter struct {
	report.SequenceCounter
}
