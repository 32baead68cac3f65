package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spill_report_service/internal/domain/report"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository struct {
	col *mongo.Collection
}

func (r *ReportRepository) Insert(ctx context.Context, rep report.Report) (report.Report, error) {
	return insertReport(ctx, r.col, rep)
}

func insertReport(ctx context.Context, col *mongo.Collection, rep report.Report) (report.Report, error) {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.PhotoURLs == nil {
		rep.PhotoURLs = []string{}
	}
	if rep.Documents == nil {
		rep.Documents = []report.Document{}
	}
	if _, err := col.InsertOne(ctx, rep); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return report.Report{}, report.ErrDuplicateSequenceNumber
		}
		return report.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) findOne(ctx context.Context, filter bson.M) (report.Report, error) {
	var rep report.Report
	if err := r.col.FindOne(ctx, filter).Decode(&rep); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("find report: %w", err)
	}
	return rep, nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (report.Report, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *ReportRepository) FindBySequenceNumber(ctx context.Context, number string) (report.Report, error) {
	return r.findOne(ctx, bson.M{"env_sequential_number": number})
}

// updateDocument translates a patch into $set/$unset/$push operators on the
// stored document. Descriptive fields live under "details.". Appends use $push
// so the server adds them to whatever the document holds at write time.
func updateDocument(patch report.Patch, updatedAt time.Time) (bson.M, error) {
	set := bson.M{"updated_at": updatedAt}
	unset := bson.M{}

	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.PhotoURLs != nil {
		set["photo_urls"] = append([]string{}, (*patch.PhotoURLs)...)
	}
	if patch.Documents != nil {
		set["documents"] = append([]report.Document{}, (*patch.Documents)...)
	}
	values, err := patch.DetailValues()
	if err != nil {
		return nil, err
	}
	for key, v := range values {
		if v == nil {
			unset["details."+key] = ""
			continue
		}
		set["details."+key] = v
	}

	push := bson.M{}
	if len(patch.AppendPhotoURLs) > 0 {
		push["photo_urls"] = bson.M{"$each": append([]string{}, patch.AppendPhotoURLs...)}
	}
	if len(patch.AppendDocuments) > 0 {
		push["documents"] = bson.M{"$each": append([]report.Document{}, patch.AppendDocuments...)}
	}

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	if len(push) > 0 {
		doc["$push"] = push
	}
	return doc, nil
}

func (r *ReportRepository) Update(ctx context.Context, id string, patch report.Patch, updatedAt time.Time) (report.Report, error) {
	if err := patch.Validate(); err != nil {
		return report.Report{}, err
	}
	doc, err := updateDocument(patch, updatedAt)
	if err != nil {
		return report.Report{}, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rep report.Report
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, doc, opts).Decode(&rep); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return report.Report{}, report.ErrReportNotFound
		}
		return report.Report{}, fmt.Errorf("update report: %w", err)
	}
	return rep, nil
}

func findOptions(opts report.ListOptions) *options.FindOptions {
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		fo.SetSkip(int64(opts.Offset))
	}
	return fo
}

func (r *ReportRepository) List(ctx context.Context, opts report.ListOptions) ([]report.Report, error) {
	cur, err := r.col.Find(ctx, bson.M{}, findOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]report.Report, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	return out, nil
}

func (r *ReportRepository) Latest(ctx context.Context) (report.Report, error) {
	list, err := r.List(ctx, report.ListOptions{Limit: 1})
	if err != nil {
		return report.Report{}, err
	}
	if len(list) == 0 {
		return report.Report{}, report.ErrReportNotFound
	}
	return list[0], nil
}
