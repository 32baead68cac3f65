package mongostore

import (
	"context"
	"fmt"

	"spill_report_service/internal/domain/intervenant"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type IntervenantRepository struct {
	col *mongo.Collection
}

func (r *IntervenantRepository) Create(ctx context.Context, in intervenant.Intervenant) (intervenant.Intervenant, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if _, err := r.col.InsertOne(ctx, in); err != nil {
		return intervenant.Intervenant{}, fmt.Errorf("insert intervenant: %w", err)
	}
	return in, nil
}

func (r *IntervenantRepository) List(ctx context.Context) ([]intervenant.Intervenant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "organization", Value: 1}, {Key: "name", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list intervenants: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]intervenant.Intervenant, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode intervenants: %w", err)
	}
	return out, nil
}

func (r *IntervenantRepository) Count(ctx context.Context) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count intervenants: %w", err)
	}
	return int(n), nil
}
