package httpapi

import (
	"net/http"

	"spill_report_service/internal/domain/intervenant"

	"github.com/gin-gonic/gin"
)

type statsQuery struct {
	Year int `form:"year" binding:"omitempty,min=1900,max=9999"`
}

func (h *handler) stats(c *gin.Context) {
	var q statsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid year")
		return
	}
	sum, err := h.svc.Dashboard.Summary(c.Request.Context(), q.Year)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *handler) listIntervenants(c *gin.Context) {
	list, err := h.svc.Directory.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handler) createIntervenant(c *gin.Context) {
	var in intervenant.Intervenant
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid intervenant: "+err.Error())
		return
	}
	in.ID = ""
	created, err := h.svc.Directory.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
