package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/sirupsen/logrus"
)

// GlobalSequenceScope is the counter scope used when numbering never resets.
const GlobalSequenceScope = "global"

// SequenceAllocator numbers a new report and persists it. Numbering and insert
// go together so a failed insert does not consume a number where the backend
// can avoid it.
type SequenceAllocator interface {
	Insert(ctx context.Context, now time.Time, r report.Report) (report.Report, error)
}

// Primer is implemented by allocators that must be synchronised with existing
// data before they hand out numbers.
type Primer interface {
	Prime(ctx context.Context) error
}

// LatestRecordAllocator derives the next number from the most recently created
// report. Two concurrent calls can observe the same latest report; the unique
// index on the sequential number turns the loser into an allocation conflict.
type LatestRecordAllocator struct {
	repo        report.Repository
	resetYearly bool
	log         *logrus.Entry
}

func NewLatestRecordAllocator(repo report.Repository, resetYearly bool, log *logrus.Entry) *LatestRecordAllocator {
	return &LatestRecordAllocator{repo: repo, resetYearly: resetYearly, log: log}
}

func (a *LatestRecordAllocator) Insert(ctx context.Context, now time.Time, r report.Report) (report.Report, error) {
	previous := ""
	latest, err := a.repo.Latest(ctx)
	switch {
	case err == nil:
		previous = latest.EnvSequentialNumber
	case errors.Is(err, report.ErrReportNotFound):
	default:
		return report.Report{}, fmt.Errorf("read latest report: %w", err)
	}

	number, parseErr := report.NextSequenceNumber(previous, now.Year(), a.resetYearly)
	if parseErr != nil {
		a.log.WithFields(logrus.Fields{
			"previous": previous,
			"fallback": number,
		}).WithError(parseErr).Warn("Malformed previous sequential number, restarting sequence")
	}
	r.EnvSequentialNumber = number
	return a.repo.Insert(ctx, r)
}

// CounterAllocator takes the suffix from an atomic per-scope counter, so
// concurrent creations always receive distinct numbers. Counters that live
// with the reports (report.NumberedInserter) or can give a value back
// (report.Reserver) keep the sequence gapless when an insert fails. A plain
// counter loses the number in that case.
type CounterAllocator struct {
	counter     report.SequenceCounter
	repo        report.Repository
	resetYearly bool
	log         *logrus.Entry
}

func NewCounterAllocator(counter report.SequenceCounter, repo report.Repository, resetYearly bool, log *logrus.Entry) *CounterAllocator {
	return &CounterAllocator{counter: counter, repo: repo, resetYearly: resetYearly, log: log}
}

func (a *CounterAllocator) scope(year int) string {
	if a.resetYearly {
		return strconv.Itoa(year)
	}
	return GlobalSequenceScope
}

func (a *CounterAllocator) Insert(ctx context.Context, now time.Time, r report.Report) (report.Report, error) {
	year := now.Year()
	scope := a.scope(year)
	number := func(seq int64) string { return report.FormatSequenceNumber(year, seq) }

	switch c := a.counter.(type) {
	case report.NumberedInserter:
		return c.InsertNumbered(ctx, scope, number, r)
	case report.Reserver:
		var created report.Report
		err := c.Reserve(ctx, scope, func(ctx context.Context, seq int64) error {
			numbered := r
			numbered.EnvSequentialNumber = number(seq)
			var err error
			created, err = a.repo.Insert(ctx, numbered)
			return err
		})
		if err != nil {
			return report.Report{}, err
		}
		return created, nil
	}

	seq, err := a.counter.Next(ctx, scope)
	if err != nil {
		return report.Report{}, fmt.Errorf("allocate sequential number: %w", err)
	}
	r.EnvSequentialNumber = number(seq)
	created, err := a.repo.Insert(ctx, r)
	if err != nil {
		a.log.WithFields(logrus.Fields{"scope": scope, "sequence_number": r.EnvSequentialNumber}).
			WithError(err).Warn("Insert failed after the counter moved, number skipped")
		return report.Report{}, err
	}
	return created, nil
}

// Prime raises the counter to the suffix of the latest stored report so that
// numbering continues from data written before the counter existed.
func (a *CounterAllocator) Prime(ctx context.Context) error {
	latest, err := a.repo.Latest(ctx)
	if errors.Is(err, report.ErrReportNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	year, seq, err := report.ParseSequenceNumber(latest.EnvSequentialNumber)
	if err != nil {
		a.log.WithField("previous", latest.EnvSequentialNumber).WithError(err).
			Warn("Latest sequential number is malformed, counter not primed")
		return nil
	}
	scope := a.scope(year)
	if err := a.counter.Raise(ctx, scope, seq); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"scope": scope, "floor": seq}).Info("Sequence counter primed")
	return nil
}
