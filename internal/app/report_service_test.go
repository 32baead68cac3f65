package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march2024 = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

func TestCreateNumbersSequentially(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"counter", "latest"} {
		mode := mode
		t.Run(mode, func(t *testing.T) {
			t.Parallel()
			var f *fixture
			if mode == "counter" {
				f = newCounterFixture(t, march2024, false)
			} else {
				f = newLatestFixture(t, march2024, false)
			}
			ctx := context.Background()
			for i := 1; i <= 12; i++ {
				r, err := f.svc.Create(ctx, report.Draft{Details: report.Details{Location: fmt.Sprintf("site %d", i)}})
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("ENV-2024-%03d", i), r.EnvSequentialNumber)
				assert.Equal(t, report.StatusNew, r.Status)
				assert.NotEmpty(t, r.ID)
				assert.Equal(t, r.CreatedAt, r.UpdatedAt)
			}
		})
	}
}

func TestCreateAfterMalformedNumberFallsBack(t *testing.T) {
	t.Parallel()

	for _, previous := range []string{"garbage", "ENV-2024", "ENV-2024-abc"} {
		previous := previous
		t.Run(previous, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			f := newLatestFixture(t, march2024, false)
			_, err := f.repo.Insert(ctx, report.Report{EnvSequentialNumber: previous, CreatedAt: march2024.Add(-time.Hour)})
			require.NoError(t, err)
			r, err := f.svc.Create(ctx, report.Draft{})
			require.NoError(t, err)
			assert.Equal(t, "ENV-2024-001", r.EnvSequentialNumber)

			c := newCounterFixture(t, march2024, false)
			_, err = c.repo.Insert(ctx, report.Report{EnvSequentialNumber: previous, CreatedAt: march2024.Add(-time.Hour)})
			require.NoError(t, err)
			require.NoError(t, c.svc.PrimeAllocator(ctx))
			r, err = c.svc.Create(ctx, report.Draft{})
			require.NoError(t, err)
			assert.Equal(t, "ENV-2024-001", r.EnvSequentialNumber)
		})
	}
}

func TestPrimeContinuesFromStoredNumbers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newCounterFixture(t, march2024, false)
	_, err := f.repo.Insert(ctx, report.Report{EnvSequentialNumber: "ENV-2023-041", CreatedAt: march2024.Add(-24 * time.Hour)})
	require.NoError(t, err)
	require.NoError(t, f.svc.PrimeAllocator(ctx))

	r, err := f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-042", r.EnvSequentialNumber)

	// priming twice never lowers the counter
	require.NoError(t, f.svc.PrimeAllocator(ctx))
	r, err = f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-043", r.EnvSequentialNumber)
}

func TestYearRollover(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		mode  string
		reset bool
		want  string
	}{
		{"counter continues", "counter", false, "ENV-2025-003"},
		{"counter resets", "counter", true, "ENV-2025-001"},
		{"latest continues", "latest", false, "ENV-2025-003"},
		{"latest resets", "latest", true, "ENV-2025-001"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			start := time.Date(2024, 12, 31, 23, 59, 50, 0, time.UTC)
			var f *fixture
			if tc.mode == "counter" {
				f = newCounterFixture(t, start, tc.reset)
			} else {
				f = newLatestFixture(t, start, tc.reset)
			}
			_, err := f.svc.Create(ctx, report.Draft{})
			require.NoError(t, err)
			_, err = f.svc.Create(ctx, report.Draft{})
			require.NoError(t, err)

			f.clock.Set(time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
			r, err := f.svc.Create(ctx, report.Draft{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.EnvSequentialNumber)
		})
	}
}

func TestReportLifecycleScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)

	a, err := f.svc.Create(ctx, report.Draft{Details: report.Details{
		Location:    "Garage municipal",
		Contaminant: "Huile hydraulique",
		Cause:       "Bris mécanique",
	}})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-001", a.EnvSequentialNumber)
	assert.Equal(t, report.StatusNew, a.Status)

	b, err := f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-002", b.EnvSequentialNumber)

	_, err = f.svc.UpdateStatus(ctx, a.ID, report.StatusCompleted)
	require.NoError(t, err)

	got, found, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, report.StatusCompleted, got.Status)
	assert.Equal(t, a.EnvSequentialNumber, got.EnvSequentialNumber)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	assert.Equal(t, a.Details, got.Details)
	assert.True(t, got.UpdatedAt.After(a.CreatedAt))

	// C and D race; the counter hands out distinct numbers
	var wg sync.WaitGroup
	numbers := make([]string, 2)
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r, err := f.svc.Create(ctx, report.Draft{})
			numbers[i], errs[i] = r.EnvSequentialNumber, err
		}(i)
	}
	close(start)
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.ElementsMatch(t, []string{"ENV-2024-003", "ENV-2024-004"}, numbers)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)

	const n = 50
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := f.svc.Create(ctx, report.Draft{})
			if err == nil {
				results <- r.EnvSequentialNumber
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for num := range results {
		assert.False(t, seen[num], "duplicate %s", num)
		seen[num] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["ENV-2024-001"])
	assert.True(t, seen[fmt.Sprintf("ENV-2024-%03d", n)])
}

func TestFailedInsertKeepsNumberForNextCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	diskFull := errors.New("pq: could not extend file: No space left on device")

	inner := memstore.NewReportStore()
	repo := &failingInserts{ReportStore: inner, err: diskFull}
	alloc := NewCounterAllocator(memstore.NewCounter(), repo, false, testLogger())
	svc := NewReportService(repo, alloc, testLogger(), WithClock(newSteppingClock(march2024).Now))

	first, err := svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-001", first.EnvSequentialNumber)

	repo.mu.Lock()
	repo.remaining = 1
	repo.mu.Unlock()
	_, err = svc.Create(ctx, report.Draft{})
	require.Error(t, err)
	assert.ErrorIs(t, err, diskFull)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	next, err := svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-002", next.EnvSequentialNumber)
}

func TestPlainCounterSkipsNumberOnFailedInsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := memstore.NewReportStore()
	repo := &failingInserts{ReportStore: inner, remaining: 1, err: errors.New("connection reset")}
	alloc := NewCounterAllocator(plainCounter{memstore.NewCounter()}, repo, false, testLogger())
	svc := NewReportService(repo, alloc, testLogger(), WithClock(newSteppingClock(march2024).Now))

	_, err := svc.Create(ctx, report.Draft{})
	require.ErrorIs(t, err, ErrStoreUnavailable)

	r, err := svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-002", r.EnvSequentialNumber)
}

func TestLatestModeRaceSurfacesConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := memstore.NewReportStore()
	_, err := inner.Insert(ctx, report.Report{EnvSequentialNumber: "ENV-2024-002", CreatedAt: march2024.Add(-time.Minute)})
	require.NoError(t, err)

	repo := newGatedRepo(inner, 2)
	clock := newSteppingClock(march2024)
	svc := NewReportService(repo, NewLatestRecordAllocator(repo, false, testLogger()), testLogger(), WithClock(clock.Now))

	var wg sync.WaitGroup
	numbers := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Create(ctx, report.Draft{})
			numbers[i], errs[i] = r.EnvSequentialNumber, err
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for i := range errs {
		switch {
		case errs[i] == nil:
			ok++
			assert.Equal(t, "ENV-2024-003", numbers[i])
		case errors.Is(errs[i], ErrAllocationConflict):
			conflicts++
			assert.True(t, IsRetryable(errs[i]))
		default:
			t.Fatalf("unexpected error: %v", errs[i])
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestUpdateLeavesUntouchedFields(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)

	a, err := f.svc.Create(ctx, report.Draft{
		Details:   report.Details{Location: "Parc Lemoine", Contaminant: "Essence", Extent: "2 m2"},
		PhotoURLs: []string{"https://cdn/a.jpg"},
	})
	require.NoError(t, err)

	patch, err := report.DecodePatch([]byte(`{"details":{"extent":"4 m2","actionsTaken":"Absorbant appliqué"}}`))
	require.NoError(t, err)
	got, err := f.svc.Update(ctx, a.ID, patch)
	require.NoError(t, err)

	assert.Equal(t, a.EnvSequentialNumber, got.EnvSequentialNumber)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)
	assert.Equal(t, a.Status, got.Status)
	assert.Equal(t, "Parc Lemoine", got.Details.Location)
	assert.Equal(t, "Essence", got.Details.Contaminant)
	assert.Equal(t, "4 m2", got.Details.Extent)
	assert.Equal(t, "Absorbant appliqué", got.Details.ActionsTaken)
	assert.Equal(t, a.PhotoURLs, got.PhotoURLs)
	assert.True(t, got.UpdatedAt.After(a.UpdatedAt))

	// an empty patch still refreshes updatedAt
	again, err := f.svc.Update(ctx, a.ID, report.Patch{})
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(got.UpdatedAt))
	assert.Equal(t, got.Details, again.Details)
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)
	a, err := f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)

	bad := report.Status("Open")
	_, err = f.svc.Update(ctx, a.ID, report.Patch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Update(ctx, a.ID, report.Patch{Fields: map[string]json.RawMessage{"createdAt": json.RawMessage(`"2020-01-01"`)}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, err, report.ErrReservedField)
}

func TestUpdateMissingReport(t *testing.T) {
	t.Parallel()
	f := newCounterFixture(t, march2024, false)

	_, err := f.svc.UpdateStatus(context.Background(), "does-not-exist", report.StatusCancelled)
	assert.ErrorIs(t, err, ErrUpdateTargetMissing)
}

func TestGetMissingReportIsNotAnError(t *testing.T) {
	t.Parallel()
	f := newCounterFixture(t, march2024, false)

	_, found, err := f.svc.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = f.svc.GetBySequenceNumber(context.Background(), "ENV-2024-999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, report.Draft{})
		require.NoError(t, err)
	}
	list, err := f.svc.List(ctx, report.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "ENV-2024-003", list[0].EnvSequentialNumber)
	assert.Equal(t, "ENV-2024-001", list[2].EnvSequentialNumber)

	fresh, err := f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	list, err = f.svc.List(ctx, report.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, list[0].ID)

	page, err := f.svc.List(ctx, report.ListOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ENV-2024-003", page[0].EnvSequentialNumber)
	assert.Equal(t, "ENV-2024-002", page[1].EnvSequentialNumber)

	_, err = f.svc.List(ctx, report.ListOptions{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStoreTimeoutKind(t *testing.T) {
	t.Parallel()

	repo := memstore.NewReportStore()
	alloc := NewCounterAllocator(blockingCounter{}, repo, false, testLogger())
	svc := NewReportService(repo, alloc, testLogger(), WithStoreTimeout(20*time.Millisecond))

	_, err := svc.Create(context.Background(), report.Draft{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreTimeout)
	assert.False(t, IsRetryable(err))
}

func TestStoreUnavailableKind(t *testing.T) {
	t.Parallel()

	backend := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	repo := brokenRepo{err: backend}
	svc := NewReportService(repo, NewLatestRecordAllocator(repo, false, testLogger()), testLogger())

	_, err := svc.Create(context.Background(), report.Draft{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, backend)

	_, _, err = svc.Get(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.List(context.Background(), report.ListOptions{})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "list reports", opErr.Op)
}

func TestObserversSeeWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newCounterFixture(t, march2024, false)
	obs := &recordingObserver{}
	f.svc.AddObserver(obs)

	r, err := f.svc.Create(ctx, report.Draft{})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, r.ID, report.StatusTakenInCharge)
	require.NoError(t, err)

	require.Len(t, obs.created, 1)
	require.Len(t, obs.updated, 1)
	assert.Equal(t, report.StatusTakenInCharge, obs.updated[0].Status)
}
