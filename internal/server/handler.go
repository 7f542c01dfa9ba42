package server

import (
	"net/http"

	"kodecompiler/internal/execution/model"
	appErr "kodecompiler/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Handler binds the HTTP routes to the service.
type Handler struct {
	service *ExecuteService
	ws      *WSHandler
}

func NewHandler(service *ExecuteService, ws *WSHandler) *Handler {
	return &Handler{service: service, ws: ws}
}

// RegisterRoutes mounts all endpoints on the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api")
	{
		api.POST("/execute", h.execute)
		api.POST("/execute/sync", h.executeSync)
		api.GET("/execute/:job_id/status", h.status)
		api.GET("/queue/status", h.queueStatus)
		api.GET("/languages", h.languages)
	}

	if h.ws != nil {
		router.GET("/ws", h.ws.Serve)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": model.StatusRejected,
			"error":  "language and code are required",
		})
		return
	}

	resp, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	if resp.Status == model.StatusRejected {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) executeSync(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": model.StatusRejected,
			"error":  "language and code are required",
		})
		return
	}

	result, err := h.service.ExecuteSync(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) status(c *gin.Context) {
	resp, err := h.service.Status(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) queueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.QueueStatus(c.Request.Context()))
}

func (h *Handler) languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": h.service.Languages()})
}

// writeError maps error codes onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	e := appErr.GetError(err)
	status := http.StatusInternalServerError
	switch e.Code {
	case appErr.InvalidParams, appErr.ValidationFailed, appErr.RequiredFieldEmpty,
		appErr.UnsupportedLanguage, appErr.SourceTooLarge, appErr.WrapperError:
		status = http.StatusBadRequest
	case appErr.NotFound, appErr.ResultNotReady, appErr.ResultExpired:
		status = http.StatusNotFound
	case appErr.AdmissionRejected:
		status = http.StatusServiceUnavailable
	case appErr.QueueUnavailable, appErr.ServiceUnavailable, appErr.CacheError:
		status = http.StatusServiceUnavailable
	case appErr.Timeout, appErr.WaitTimeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, gin.H{
		"code":  int(e.Code),
		"error": e.Error(),
	})
}
