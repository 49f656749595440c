package notification

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/citywatch/report-api/internal/handler"
	"github.com/citywatch/report-api/internal/middleware"
	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/service/notification"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	notifications := r.Group("/notifications")
	notifications.Use(auth.Authenticate())
	{
		notifications.POST("", h.Create)
		notifications.GET("", h.List)
		notifications.GET("/:id", h.Get)
		notifications.PUT("/:id", h.Update)
		notifications.DELETE("/:id", h.Delete)

		staff := notifications.Group("")
		staff.Use(auth.RequireRole(model.UserRolePrefecture))
		{
			staff.POST("/:id/response", h.Respond)
			staff.PUT("/:id/status", h.ChangeStatus)
		}
	}
}

// listOwner resolves which user's list a request addresses: citizens always
// get their own, prefecture staff name the citizen with the user_id query
// parameter.
func listOwner(c *gin.Context) string {
	if c.GetString(middleware.ContextUserRole) == model.UserRolePrefecture {
		if owner := c.Query("user_id"); owner != "" {
			return owner
		}
	}
	return c.GetString(middleware.ContextUserID)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.svc.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(record))
}

func (h *Handler) List(c *gin.Context) {
	var filter model.NotificationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	records, err := h.svc.List(c.Request.Context(), listOwner(c), &filter)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(records))
}

func (h *Handler) Get(c *gin.Context) {
	record, err := h.svc.Get(c.Request.Context(), listOwner(c), c.Param("id"))
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) Update(c *gin.Context) {
	var req model.UpdateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.svc.Edit(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"), &req)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id")); err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("notification deleted"))
}

func (h *Handler) Respond(c *gin.Context) {
	var req model.RespondNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.svc.Respond(c.Request.Context(), listOwner(c), c.Param("id"), req.Response)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req model.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	record, err := h.svc.ChangeStatus(c.Request.Context(), listOwner(c), c.Param("id"), req.Status)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(record))
}
