// Package mongostore keeps reports, counters and intervenants in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	reportsCollection      = "reports"
	countersCollection     = "report_sequence_counters"
	intervenantsCollection = "intervenants"

	connectTimeout = 15 * time.Second
	indexTimeout   = 10 * time.Second
)

// Store owns the client and hands out the collection-backed repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings it and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	dctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect %s: %w", RedactURI(uri), err)
	}
	if err = c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping %s: %w", RedactURI(uri), err)
	}
	return &Store{client: c, db: c.Database(dbName)}, nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{col: s.db.Collection(reportsCollection)}
}

func (s *Store) Counter() *SequenceCounter {
	return &SequenceCounter{
		client:  s.client,
		col:     s.db.Collection(countersCollection),
		reports: s.db.Collection(reportsCollection),
	}
}

func (s *Store) Intervenants() *IntervenantRepository {
	return &IntervenantRepository{col: s.db.Collection(intervenantsCollection)}
}

// EnsureIndexes creates the listing index and the unique sequential number
// index. The unique index is what turns a duplicate number into an error.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ictx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	var errs []string
	col := s.db.Collection(reportsCollection)
	if _, err := col.Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		errs = append(errs, "created_at: "+err.Error())
	}
	if _, err := col.Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys:    bson.D{{Key: "env_sequential_number", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		errs = append(errs, "env_sequential_number: "+err.Error())
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// RedactURI masks credentials so the URI can be logged.
func RedactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
