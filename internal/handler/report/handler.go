package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citywatch/report-api/internal/handler"
	"github.com/citywatch/report-api/internal/middleware"
	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/service/report"
)

type Handler struct {
	svc *report.Service
}

func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	reports := r.Group("/notifications/report")
	reports.Use(auth.Authenticate(), auth.RequireRole(model.UserRolePrefecture))
	{
		reports.GET("", h.Generate)
	}
}

// Generate consolidates a citizen's current list into the official report
// structure (number, totals, flattened rows). Rendering is the client's job.
func (h *Handler) Generate(c *gin.Context) {
	owner := c.Query("user_id")
	if owner == "" {
		owner = c.GetString(middleware.ContextUserID)
	}

	rep, err := h.svc.Generate(c.Request.Context(), owner, c.Query("city"))
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(rep))
}
