// Package bootstrap builds the application services from configuration.
// Every entry point (server, MCP, CLI) shares it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/attachment"
	"spill_report_service/internal/domain/intervenant"
	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/config"
	idb "spill_report_service/internal/infra/database"
	photoimaging "spill_report_service/internal/infra/imaging"
	"spill_report_service/internal/infra/memstore"
	"spill_report_service/internal/infra/metrics"
	"spill_report_service/internal/infra/mongostore"
	"spill_report_service/internal/infra/objectstore"
	"spill_report_service/internal/infra/redisseq"

	"github.com/sirupsen/logrus"
)

const primeLockTTL = 30 * time.Second

// Runtime is the assembled service graph plus what must be closed on exit.
type Runtime struct {
	Reports     *app.ReportService
	Dashboard   *app.DashboardService
	Directory   *app.DirectoryService
	Attachments *app.AttachmentService
	Metrics     *metrics.Metrics
	// LocalUploadDir is set when files are stored on local disk.
	LocalUploadDir string

	closers []func(context.Context) error
}

// Close releases connections in reverse order of creation.
func (r *Runtime) Close(ctx context.Context) error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type stores struct {
	reports      report.Repository
	counter      report.SequenceCounter
	intervenants intervenant.Repository
}

func (r *Runtime) openStores(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return stores{}, err
		}
		r.closers = append(r.closers, func(context.Context) error { return db.Close() })
		if err := idb.ApplySchema(ctx, db); err != nil {
			return stores{}, err
		}
		log.Info("PostgreSQL store ready")
		return stores{
			reports:      idb.NewPostgresReportRepository(db),
			counter:      idb.NewPostgresSequenceCounter(db),
			intervenants: idb.NewPostgresIntervenantRepository(db),
		}, nil

	case config.StoreDriverMongo:
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		r.closers = append(r.closers, ms.Disconnect)
		if err := ms.EnsureIndexes(ctx); err != nil {
			// a missing unique index weakens duplicate detection, so say so loudly
			log.WithError(err).Error("MongoDB index creation reported errors")
		}
		log.WithField("uri", mongostore.RedactURI(cfg.MongoURI)).Info("MongoDB store ready")
		return stores{reports: ms.Reports(), counter: ms.Counter(), intervenants: ms.Intervenants()}, nil

	case config.StoreDriverMemory:
		log.Warn("Using in-memory store, data is lost on exit")
		rs := memstore.NewReportStore()
		return stores{
			reports:      rs,
			counter:      rs.Counter(),
			intervenants: memstore.NewIntervenantStore(),
		}, nil
	}
	return stores{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func (r *Runtime) openObjectStore(ctx context.Context, cfg *config.AppConfig) (attachment.ObjectStore, error) {
	switch cfg.StorageProvider {
	case config.StorageProviderGCS:
		gcs, err := objectstore.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsJSON, cfg.StorageAccessBaseURL)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, func(context.Context) error { return gcs.Close() })
		return gcs, nil
	case config.StorageProviderLocal:
		local, err := objectstore.NewLocalStore(cfg.UploadDir, cfg.StorageAccessBaseURL)
		if err != nil {
			return nil, err
		}
		r.LocalUploadDir = cfg.UploadDir
		return local, nil
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
}

// Build connects every backend named by cfg, primes the sequence counter and
// seeds the directory when it is empty.
func Build(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New()}
	fail := func(err error) (*Runtime, error) {
		_ = rt.Close(context.Background())
		return nil, err
	}

	st, err := rt.openStores(ctx, cfg, log.WithField("component", "store"))
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}

	allocLog := log.WithField("component", "allocator")
	var (
		allocator app.SequenceAllocator
		redisSeq  *redisseq.SequenceCounter
	)
	switch cfg.SequenceMode {
	case config.SequenceModeLatest:
		allocLog.Warn("Sequence numbers derived from the latest report; concurrent creates may conflict")
		allocator = app.NewLatestRecordAllocator(st.reports, cfg.SequenceYearReset, allocLog)
	default:
		counter := st.counter
		if cfg.SequenceCounter == config.SequenceCounterRedis {
			rdb, err := redisseq.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return fail(err)
			}
			rt.closers = append(rt.closers, func(context.Context) error { return rdb.Close() })
			redisSeq = redisseq.NewSequenceCounter(rdb, "")
			counter = redisSeq
		}
		allocator = app.NewCounterAllocator(counter, st.reports, cfg.SequenceYearReset, allocLog)
	}

	rt.Reports = app.NewReportService(st.reports, allocator, log.WithField("component", "reports"),
		app.WithStoreTimeout(cfg.StoreTimeout),
		app.WithMetrics(rt.Metrics),
	)
	rt.Dashboard = app.NewDashboardService(rt.Reports)
	rt.Directory = app.NewDirectoryService(st.intervenants, log.WithField("component", "directory"),
		app.WithDirectoryTimeout(cfg.StoreTimeout))

	if redisSeq != nil {
		err = redisSeq.Guard(ctx, "prime", primeLockTTL, rt.Reports.PrimeAllocator)
	} else {
		err = rt.Reports.PrimeAllocator(ctx)
	}
	if err != nil {
		return fail(fmt.Errorf("prime sequence allocator: %w", err))
	}
	if err := rt.Directory.SeedDefaults(ctx); err != nil {
		log.WithError(err).Warn("Could not seed default intervenants")
	}

	objects, err := rt.openObjectStore(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("open object store: %w", err))
	}
	rt.Attachments = app.NewAttachmentService(objects, rt.Reports,
		photoimaging.NewDownscaler(cfg.PhotoMaxDimension), log.WithField("component", "attachments"))

	return rt, nil
}
