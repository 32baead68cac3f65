package mongostore

import (
	"context"
	"fmt"

	"spill_report_service/internal/domain/report"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SequenceCounter stores one {_id: scope, seq: n} document per scope.
// InsertNumbered needs a replica set or sharded cluster, since MongoDB only
// runs multi-document transactions there.
type SequenceCounter struct {
	client  *mongo.Client
	col     *mongo.Collection
	reports *mongo.Collection
}

type counterDoc struct {
	Scope string `bson:"_id"`
	Seq   int64  `bson:"seq"`
}

func (c *SequenceCounter) Next(ctx context.Context, scope string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := c.col.FindOneAndUpdate(ctx,
		bson.M{"_id": scope},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", scope, err)
	}
	return doc.Seq, nil
}

func (c *SequenceCounter) Raise(ctx context.Context, scope string, floor int64) error {
	_, err := c.col.UpdateOne(ctx,
		bson.M{"_id": scope},
		bson.M{"$max": bson.M{"seq": floor}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("raise counter %q: %w", scope, err)
	}
	return nil
}

// InsertNumbered increments the scope and inserts the report inside one
// session transaction. An aborted insert rolls the increment back with it.
func (c *SequenceCounter) InsertNumbered(ctx context.Context, scope string, number func(int64) string, rep report.Report) (report.Report, error) {
	sess, err := c.client.StartSession()
	if err != nil {
		return report.Report{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		seq, err := c.Next(sc, scope)
		if err != nil {
			return nil, err
		}
		numbered := rep
		numbered.EnvSequentialNumber = number(seq)
		return insertReport(sc, c.reports, numbered)
	})
	if err != nil {
		return report.Report{}, err
	}
	return res.(report.Report), nil
}
