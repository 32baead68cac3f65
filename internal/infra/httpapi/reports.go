package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"spill_report_service/internal/app"
	"spill_report_service/internal/domain/report"
	"spill_report_service/internal/infra/export"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Q      string `form:"q"`
	Status string `form:"status"`
	Bucket string `form:"bucket"`
	Limit  int    `form:"limit" binding:"min=0,max=1000"`
	Offset int    `form:"offset" binding:"min=0"`
}

func (q listQuery) filter() (app.Filter, error) {
	f := app.Filter{Search: q.Q}
	if q.Status != "" {
		st, err := report.ParseStatus(q.Status)
		if err != nil {
			return app.Filter{}, err
		}
		f.Status = st
	}
	if q.Bucket != "" {
		b, err := report.ParseBucket(q.Bucket)
		if err != nil {
			return app.Filter{}, err
		}
		f.Bucket = b
	}
	return f, nil
}

func (h *handler) createReport(c *gin.Context) {
	var draft report.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, "invalid report: "+err.Error())
		return
	}
	created, err := h.svc.Reports.Create(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) listReports(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	f, err := q.filter()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	reports, err := h.svc.Dashboard.Search(c.Request.Context(), f, report.ListOptions{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// getReport accepts either the report id or its ENV-<year>-<seq> number.
func (h *handler) getReport(c *gin.Context) {
	id := c.Param("id")
	var (
		r     report.Report
		found bool
		err   error
	)
	if strings.HasPrefix(strings.ToUpper(id), report.SequencePrefix+"-") {
		r, found, err = h.svc.Reports.GetBySequenceNumber(c.Request.Context(), strings.ToUpper(id))
	} else {
		r, found, err = h.svc.Reports.Get(c.Request.Context(), id)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if !found {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *handler) updateReport(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "cannot read body")
		return
	}
	patch, err := report.DecodePatch(raw)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Reports.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// readUpload pulls the multipart "file" field, enforcing the size limit.
func (h *handler) readUpload(c *gin.Context) (app.Upload, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return app.Upload{}, false
		}
		badRequest(c, "multipart field \"file\" is required")
		return app.Upload{}, false
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		h.tooLarge(c)
		return app.Upload{}, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "cannot open upload")
		return app.Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, "cannot read upload")
		return app.Upload{}, false
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return app.Upload{Name: fh.Filename, ContentType: contentType, Data: data}, true
}

func (h *handler) tooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("file exceeds the %s limit", humanize.IBytes(uint64(h.maxUploadBytes))),
	})
}

func (h *handler) limitBody(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// room for the multipart envelope around the file
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}
}

func (h *handler) uploadPhoto(c *gin.Context) {
	h.limitBody(c)
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	url, err := h.svc.Attachments.UploadPhoto(c.Request.Context(), c.Param("id"), up)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *handler) uploadDocument(c *gin.Context) {
	h.limitBody(c)
	up, ok := h.readUpload(c)
	if !ok {
		return
	}
	doc, err := h.svc.Attachments.UploadDocument(c.Request.Context(), c.Param("id"), up)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *handler) exportReports(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", export.FormatXLSX))
	contentType, err := export.ContentType(format)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	f, err := q.filter()
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	reports, err := h.svc.Dashboard.Search(c.Request.Context(), f, report.ListOptions{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		h.fail(c, err)
		return
	}

	now := h.svc.Reports.Now()
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(format, now)))
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, reports, now); err != nil {
		h.log.WithError(err).Error("Export failed mid-stream")
	}
}
