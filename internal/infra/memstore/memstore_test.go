package memstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func number(seq int64) string { return report.FormatSequenceNumber(2024, seq) }

func TestInsertNumberedLeavesCounterOnFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewReportStore()
	c := s.Counter()

	// imported outside the counter, so the first numbered insert collides
	_, err := s.Insert(ctx, report.Report{EnvSequentialNumber: "ENV-2024-001"})
	require.NoError(t, err)

	_, err = c.InsertNumbered(ctx, "global", number, report.Report{})
	require.ErrorIs(t, err, report.ErrDuplicateSequenceNumber)

	require.NoError(t, c.Raise(ctx, "global", 1))
	r, err := c.InsertNumbered(ctx, "global", number, report.Report{})
	require.NoError(t, err)
	assert.Equal(t, "ENV-2024-002", r.EnvSequentialNumber)

	got, err := s.FindBySequenceNumber(ctx, "ENV-2024-002")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestInsertNumberedConcurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewReportStore()
	c := s.Counter()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.InsertNumbered(ctx, "global", number, report.Report{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 1; i <= n; i++ {
		_, err := s.FindBySequenceNumber(ctx, fmt.Sprintf("ENV-2024-%03d", i))
		assert.NoError(t, err)
	}
	next, err := c.Next(ctx, "global")
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), next)
}

func TestReserveGivesValueBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewCounter()

	boom := fmt.Errorf("insert failed")
	err := c.Reserve(ctx, "2024", func(context.Context, int64) error { return boom })
	require.ErrorIs(t, err, boom)

	var got int64
	require.NoError(t, c.Reserve(ctx, "2024", func(_ context.Context, seq int64) error {
		got = seq
		return nil
	}))
	assert.Equal(t, int64(1), got)
}

func TestConcurrentAppendsKeepEveryEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewReportStore()
	r, err := s.Insert(ctx, report.Report{EnvSequentialNumber: "ENV-2024-001"})
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Update(ctx, r.ID, report.Patch{AppendPhotoURLs: []string{fmt.Sprintf("u%d", i)}}, time.Now())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.PhotoURLs, n)
}
