package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spill_report_service/internal/domain/attachment"
	"spill_report_service/internal/domain/report"

	"github.com/sirupsen/logrus"
)

// PhotoProcessor may rewrite an image before it is stored, e.g. to shrink it.
type PhotoProcessor interface {
	Process(data []byte, contentType string) ([]byte, string, error)
}

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// AttachmentService stores photos and documents under the report's prefix and
// records the resulting references on the report.
type AttachmentService struct {
	store   attachment.ObjectStore
	reports *ReportService
	photos  PhotoProcessor
	log     *logrus.Entry
}

func NewAttachmentService(store attachment.ObjectStore, reports *ReportService, photos PhotoProcessor, log *logrus.Entry) *AttachmentService {
	return &AttachmentService{store: store, reports: reports, photos: photos, log: log}
}

// requireReport fails fast so nothing is uploaded for a missing report.
func (s *AttachmentService) requireReport(ctx context.Context, op, reportID string) error {
	_, found, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return err
	}
	if !found {
		return newOpError(op, ErrUpdateTargetMissing, fmt.Errorf("report %s", reportID))
	}
	return nil
}

// put writes the object under the report service's store timeout.
func (s *AttachmentService) put(ctx context.Context, op, objectPath, contentType string, data []byte) (string, error) {
	ctx, cancel := s.reports.storeContext(ctx)
	defer cancel()

	url, err := s.store.Put(ctx, objectPath, contentType, data)
	if err != nil {
		classified := classifyStoreError(op, err)
		s.log.WithField("object", objectPath).WithError(classified).Error("Object store write failed")
		return "", classified
	}
	return url, nil
}

// UploadPhoto stores the image and appends its URL to the report's photoUrls.
// The append happens in the repository, so concurrent uploads all land.
func (s *AttachmentService) UploadPhoto(ctx context.Context, reportID string, up Upload) (string, error) {
	const op = "upload photo"
	if len(up.Data) == 0 {
		return "", newOpError(op, ErrInvalidInput, attachment.ErrEmptyUpload)
	}
	if up.ContentType != "" && !strings.HasPrefix(up.ContentType, "image/") {
		return "", newOpError(op, ErrInvalidInput, fmt.Errorf("content type %q is not an image", up.ContentType))
	}
	if err := s.requireReport(ctx, op, reportID); err != nil {
		return "", err
	}

	data, contentType := up.Data, up.ContentType
	if s.photos != nil {
		processed, ct, err := s.photos.Process(data, contentType)
		if err != nil {
			s.log.WithError(err).WithField("report_id", reportID).Warn("Photo processing failed, storing original")
		} else {
			data, contentType = processed, ct
		}
	}

	objectPath := attachment.ObjectPath(reportID, attachment.KindPhoto, up.Name, s.reports.Now())
	url, err := s.put(ctx, op, objectPath, contentType, data)
	if err != nil {
		return "", err
	}

	if _, err := s.reports.Update(ctx, reportID, report.Patch{AppendPhotoURLs: []string{url}}); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"report_id": reportID, "object": objectPath}).Info("Photo uploaded")
	return url, nil
}

// UploadDocument stores the file and appends a document reference to the report.
func (s *AttachmentService) UploadDocument(ctx context.Context, reportID string, up Upload) (report.Document, error) {
	const op = "upload document"
	if len(up.Data) == 0 {
		return report.Document{}, newOpError(op, ErrInvalidInput, attachment.ErrEmptyUpload)
	}
	if err := s.requireReport(ctx, op, reportID); err != nil {
		return report.Document{}, err
	}

	at := s.reports.Now()
	objectPath := attachment.ObjectPath(reportID, attachment.KindDocument, up.Name, at)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.put(ctx, op, objectPath, contentType, up.Data)
	if err != nil {
		return report.Document{}, err
	}

	doc := report.Document{
		Name: up.Name,
		URL:  url,
		Type: contentType,
		Date: at.UTC().Format(time.RFC3339),
	}
	if _, err := s.reports.Update(ctx, reportID, report.Patch{AppendDocuments: []report.Document{doc}}); err != nil {
		return report.Document{}, err
	}
	s.log.WithFields(logrus.Fields{"report_id": reportID, "object": objectPath}).Info("Document uploaded")
	return doc, nil
}
